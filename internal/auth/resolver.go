package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Supported signing algorithm. The gateway and its backends share one
// HS256 secret; asymmetric schemes are not part of the deployment.
const algHS256 = "HS256"

// bearerPrefix is the expected Authorization scheme prefix.
const bearerPrefix = "Bearer "

// defaultClockSkew is the tolerance applied to expiry checks.
const defaultClockSkew = 30 * time.Second

// Resolver validates inbound bearer tokens and produces identities.
type Resolver struct {
	secret    []byte
	clockSkew time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// ResolverOption is a functional option for the resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for the resolver.
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClockSkew sets the clock skew tolerance for expiry checks.
func WithClockSkew(skew time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.clockSkew = skew
	}
}

// WithResolverClock sets the time source, used by tests.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a new Resolver with the shared signing secret.
func NewResolver(secret string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		secret:    []byte(secret),
		clockSkew: defaultClockSkew,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// tokenHeader is the decoded JOSE header.
type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

// tokenClaims is the decoded payload of a gateway token.
type tokenClaims struct {
	Subject   string   `json:"sub"`
	Grants    []string `json:"grants"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	JWTID     string   `json:"jti"`
}

// Authenticate validates the raw Authorization header value and returns
// the identity encoded in the bearer token. It fails with
// ErrUnauthenticated for a missing or malformed header, ErrTokenExpired
// for an expired token, and ErrTokenInvalid for any signature or claims
// failure.
func (r *Resolver) Authenticate(rawHeaderValue string) (*Identity, error) {
	if rawHeaderValue == "" {
		return nil, NewTokenError("missing authorization header", ErrUnauthenticated)
	}
	if !strings.HasPrefix(rawHeaderValue, bearerPrefix) {
		return nil, NewTokenError("authorization header is not a bearer token", ErrUnauthenticated)
	}

	token := strings.TrimSpace(strings.TrimPrefix(rawHeaderValue, bearerPrefix))
	if token == "" {
		return nil, NewTokenError("empty bearer token", ErrUnauthenticated)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, NewTokenError("token is malformed", ErrTokenInvalid)
	}

	header, err := decodeHeader(parts[0])
	if err != nil {
		return nil, NewTokenError("failed to decode header", ErrTokenInvalid)
	}
	if header.Algorithm != algHS256 {
		r.logger.Debug("rejecting token with unsupported algorithm",
			zap.String("alg", header.Algorithm))
		return nil, NewTokenError("unsupported signing algorithm", ErrTokenInvalid)
	}

	if err := r.verifySignature(parts[0]+"."+parts[1], parts[2]); err != nil {
		return nil, err
	}

	claims, err := decodeClaims(parts[1])
	if err != nil {
		return nil, NewTokenError("failed to decode payload", ErrTokenInvalid)
	}

	return r.validateClaims(claims)
}

// verifySignature checks the HMAC-SHA256 signature over signingInput.
func (r *Resolver) verifySignature(signingInput, signature string) error {
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return NewTokenError("failed to decode signature", ErrTokenInvalid)
	}

	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(signingInput))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return NewTokenError("signature mismatch", ErrTokenInvalid)
	}
	return nil
}

// validateClaims checks claim values and builds the Identity.
func (r *Resolver) validateClaims(claims *tokenClaims) (*Identity, error) {
	if claims.Subject == "" {
		return nil, NewTokenError("missing sub claim", ErrTokenInvalid)
	}
	if claims.ExpiresAt == 0 {
		return nil, NewTokenError("missing exp claim", ErrTokenInvalid)
	}

	expiresAt := time.Unix(claims.ExpiresAt, 0)
	if r.now().After(expiresAt.Add(r.clockSkew)) {
		return nil, NewTokenError("token expired", ErrTokenExpired)
	}

	return &Identity{
		Subject:   claims.Subject,
		Grants:    claims.Grants,
		ExpiresAt: expiresAt,
	}, nil
}

// decodeHeader decodes the base64url JOSE header segment.
func decodeHeader(segment string) (*tokenHeader, error) {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, err
	}
	var header tokenHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

// decodeClaims decodes the base64url payload segment.
func decodeClaims(segment string) (*tokenClaims, error) {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, err
	}
	var claims tokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
