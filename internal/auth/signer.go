package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL matches the lifetime backends expect for gateway-issued
// tokens.
const DefaultTokenTTL = 2 * time.Hour

// defaultGrants are assigned when the caller requests none.
var defaultGrants = []string{"read", "profile"}

// Signer issues HS256 bearer tokens for the token endpoint.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SignerOption is a functional option for the signer.
type SignerOption func(*Signer)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSignerClock sets the time source, used by tests.
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a new Signer with the shared signing secret.
func NewSigner(secret string, opts ...SignerOption) *Signer {
	s := &Signer{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign issues a signed token for the subject with the given grants.
func (s *Signer) Sign(subject string, grants []string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if len(grants) == 0 {
		grants = defaultGrants
	}

	now := s.now()
	header := tokenHeader{Algorithm: algHS256, Type: "JWT"}
	claims := tokenClaims{
		Subject:   subject,
		Grants:    grants,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
		JWTID:     uuid.New().String(),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to encode header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(claimsJSON)

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + signature, nil
}
