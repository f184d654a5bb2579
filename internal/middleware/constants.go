// Package middleware provides gin middleware for the gateway.
package middleware

// HTTP header constants.
const (
	// HeaderCorrelationID is the correlation ID header, read on inbound
	// requests and attached to every downstream call.
	HeaderCorrelationID = "X-Correlation-ID"

	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"
)
