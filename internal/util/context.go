// Package util provides request-scoped context plumbing for the gateway.
package util

import (
	"context"
	"time"

	"github.com/vkorolev/shopgw/internal/auth"
)

// RequestContext carries the per-request state that every downstream call
// needs: the correlation ID, the resolved identity (nil on public paths),
// the raw bearer token forwarded verbatim to backends, and the time the
// request entered the gateway. It is created once at the entry point and
// never shared across requests.
type RequestContext struct {
	CorrelationID string
	Identity      *auth.Identity
	BearerToken   string
	StartTime     time.Time
}

// Elapsed returns the time elapsed since the request entered the gateway.
func (rc *RequestContext) Elapsed() time.Duration {
	if rc == nil || rc.StartTime.IsZero() {
		return 0
	}
	return time.Since(rc.StartTime)
}

// Context keys.
type ctxKey string

const ctxKeyRequestContext ctxKey = "request_context"

// ContextWithRequestContext attaches a RequestContext to the context.
func ContextWithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKeyRequestContext, rc)
}

// RequestContextFromContext extracts the RequestContext from the context.
// It returns an empty RequestContext when none is attached so callers do
// not need a nil check before reading fields.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(ctxKeyRequestContext).(*RequestContext); ok && rc != nil {
		return rc
	}
	return &RequestContext{}
}
