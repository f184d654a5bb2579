package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth layer. Handlers map each to a 401.
var (
	// ErrUnauthenticated indicates a missing or malformed Authorization header.
	ErrUnauthenticated = errors.New("request is not authenticated")

	// ErrTokenExpired indicates that the bearer token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid indicates a signature or claims failure.
	ErrTokenInvalid = errors.New("token is invalid")
)

// TokenError carries detail about a token rejection.
type TokenError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *TokenError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TokenError) Is(target error) bool {
	_, ok := target.(*TokenError)
	return ok || errors.Is(e.Cause, target)
}

// NewTokenError creates a new TokenError.
func NewTokenError(message string, cause error) *TokenError {
	return &TokenError{Message: message, Cause: cause}
}

// IsAuthError reports whether err belongs to the auth taxonomy.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid)
}
