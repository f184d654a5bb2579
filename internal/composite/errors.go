package composite

import (
	"errors"
	"fmt"

	"github.com/vkorolev/shopgw/internal/registry"
)

// Sentinel errors for the composite engine.
var (
	// ErrUpstreamUnavailable indicates a transport-level failure: the
	// backend could not be reached at all (connection refused, timeout,
	// DNS failure). Distinct from a backend that answered with an error.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUnknownService aliases the registry sentinel so callers can
	// check either package.
	ErrUnknownService = registry.ErrUnknownService
)

// UpstreamError indicates that a backend was reachable but responded
// with a non-success status. It carries the backend's own status code
// and body for pass-through on direct proxy routes.
type UpstreamError struct {
	Service    registry.Service
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s responded with status %d", e.Service, e.StatusCode)
}

// Is checks if the error matches the target.
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)
	return ok
}

// UnavailableError wraps a transport failure with the offending service
// and the underlying error description.
type UnavailableError struct {
	Service registry.Service
	Cause   error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unreachable: %v", e.Service, e.Cause)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *UnavailableError) Is(target error) bool {
	if target == ErrUpstreamUnavailable {
		return true
	}
	_, ok := target.(*UnavailableError)
	return ok || errors.Is(e.Cause, target)
}

// IsUpstreamError reports whether err is a backend rejection and, if so,
// returns it.
func IsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
