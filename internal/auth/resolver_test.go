package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func TestAuthenticate_RoundTrip(t *testing.T) {
	t.Parallel()

	signer := NewSigner(testSecret)
	resolver := NewResolver(testSecret)

	token, err := signer.Sign("alice", []string{"read", "write"})
	require.NoError(t, err)

	identity, err := resolver.Authenticate("Bearer " + token)
	require.NoError(t, err)

	assert.Equal(t, "alice", identity.Subject)
	assert.Equal(t, []string{"read", "write"}, identity.Grants)
	assert.True(t, identity.ExpiresAt.After(time.Now()))
}

func TestAuthenticate_HeaderFailures(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(testSecret)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "missing header", header: "", wantErr: ErrUnauthenticated},
		{name: "not a bearer scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrUnauthenticated},
		{name: "empty bearer token", header: "Bearer ", wantErr: ErrUnauthenticated},
		{name: "not three segments", header: "Bearer abc.def", wantErr: ErrTokenInvalid},
		{name: "garbage segments", header: "Bearer a.b.c", wantErr: ErrTokenInvalid},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolver.Authenticate(tt.header)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	t.Parallel()

	signer := NewSigner(testSecret)
	resolver := NewResolver("a-different-secret")

	token, err := signer.Sign("alice", nil)
	require.NoError(t, err)

	_, err = resolver.Authenticate("Bearer " + token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticate_TamperedPayload(t *testing.T) {
	t.Parallel()

	signer := NewSigner(testSecret)
	resolver := NewResolver(testSecret)

	token, err := signer.Sign("alice", nil)
	require.NoError(t, err)

	// Swap the subject without re-signing.
	forged := []byte(`{"sub":"mallory","exp":9999999999}`)
	tampered := splitAndReplacePayload(t, token, forged)

	_, err = resolver.Authenticate("Bearer " + tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticate_Expired(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	signer := NewSigner(testSecret,
		WithTokenTTL(time.Hour),
		WithSignerClock(func() time.Time { return issued }),
	)
	token, err := signer.Sign("alice", nil)
	require.NoError(t, err)

	t.Run("within skew still valid", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(testSecret,
			WithResolverClock(func() time.Time { return issued.Add(time.Hour + 10*time.Second) }),
		)
		_, err := resolver.Authenticate("Bearer " + token)
		assert.NoError(t, err)
	})

	t.Run("beyond skew expired", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(testSecret,
			WithResolverClock(func() time.Time { return issued.Add(2 * time.Hour) }),
		)
		_, err := resolver.Authenticate("Bearer " + token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestAuthenticate_RejectsNonHS256(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(testSecret)

	// alg "none" with an arbitrary signature segment.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"alice","exp":9999999999}`))

	_, err := resolver.Authenticate("Bearer " + header + "." + payload + ".sig")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticate_MissingClaims(t *testing.T) {
	t.Parallel()

	signer := NewSigner(testSecret)
	resolver := NewResolver(testSecret)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing sub", payload: `{"exp":9999999999}`},
		{name: "missing exp", payload: `{"sub":"alice"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := signer.Sign("alice", nil)
			require.NoError(t, err)

			// Re-sign over the doctored payload so only claim validation fails.
			tampered := splitAndReplacePayload(t, token, []byte(tt.payload))
			resigned := resign(t, tampered, testSecret)

			_, err = resolver.Authenticate("Bearer " + resigned)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestJWXInterop(t *testing.T) {
	t.Parallel()

	t.Run("jwx verifies issued tokens", func(t *testing.T) {
		t.Parallel()

		signer := NewSigner(testSecret)
		raw, err := signer.Sign("alice", []string{"read"})
		require.NoError(t, err)

		parsed, err := jwt.Parse([]byte(raw),
			jwt.WithKey(jwa.HS256, []byte(testSecret)),
			jwt.WithValidate(true),
		)
		require.NoError(t, err)
		assert.Equal(t, "alice", parsed.Subject())

		grants, ok := parsed.PrivateClaims()["grants"]
		require.True(t, ok)
		assert.Equal(t, []interface{}{"read"}, grants)
	})

	t.Run("resolver accepts jwx-built tokens", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tok, err := jwt.NewBuilder().
			Subject("bob").
			IssuedAt(now).
			Expiration(now.Add(time.Hour)).
			Claim("grants", []string{"read", "profile"}).
			Build()
		require.NoError(t, err)

		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(testSecret)))
		require.NoError(t, err)

		resolver := NewResolver(testSecret)
		identity, err := resolver.Authenticate("Bearer " + string(signed))
		require.NoError(t, err)
		assert.Equal(t, "bob", identity.Subject)
		assert.Equal(t, []string{"read", "profile"}, identity.Grants)
	})
}

// splitAndReplacePayload swaps the payload segment of a compact token,
// keeping the original header and signature.
func splitAndReplacePayload(t *testing.T, token string, payload []byte) string {
	t.Helper()

	parts := splitToken(t, token)
	parts[1] = base64.RawURLEncoding.EncodeToString(payload)
	return parts[0] + "." + parts[1] + "." + parts[2]
}

// resign recomputes the signature segment with the given secret.
func resign(t *testing.T, token, secret string) string {
	t.Helper()

	parts := splitToken(t, token)
	input := parts[0] + "." + parts[1]

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(input))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return input + "." + sig
}

func splitToken(t *testing.T, token string) []string {
	t.Helper()

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	return parts
}
