// Package composite implements the aggregation engine: the outbound
// client, the single-target router, the fan-out read aggregator, the
// fire-and-forget write dispatcher, and the synchronous write proxy.
package composite

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/observability"
	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

// CorrelationIDHeader is attached to every outbound call.
const CorrelationIDHeader = "X-Correlation-ID"

// maxResponseBody bounds how much of an upstream body the gateway reads.
const maxResponseBody = 10 << 20

// DefaultCallTimeout bounds a single outbound call when no timeout is
// configured.
const DefaultCallTimeout = 10 * time.Second

// Outcome label values for upstream call metrics.
const (
	outcomeSuccess       = "success"
	outcomeUpstreamError = "upstream_error"
	outcomeUnavailable   = "unavailable"
)

// Client performs outbound HTTP calls to backend services. The
// underlying http.Client and its connection pool are shared across all
// requests; one Client serves the whole process.
type Client struct {
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// ClientOption is a functional option for the client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics sets the metrics sink for the client.
func WithClientMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new outbound client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{},
		timeout: DefaultCallTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a read call to one backend service. The correlation ID and
// the caller's bearer token are forwarded on the request. A non-success
// status yields an *UpstreamError carrying the backend's status and
// body; a transport failure (including timeout) yields an
// *UnavailableError.
func (c *Client) Get(ctx context.Context, rc *util.RequestContext, service registry.Service, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &UnavailableError{Service: service, Cause: err}
	}
	c.setOutboundHeaders(req, rc)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordOutcome(service, outcomeUnavailable)
		return nil, &UnavailableError{Service: service, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.recordOutcome(service, outcomeUnavailable)
		return nil, &UnavailableError{Service: service, Cause: err}
	}

	c.logger.Debug("upstream call",
		zap.String("service", service.String()),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("correlation_id", rc.CorrelationID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordOutcome(service, outcomeUpstreamError)
		return nil, &UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: body}
	}

	c.recordOutcome(service, outcomeSuccess)
	return body, nil
}

// PostJSON issues a write call to one backend service and returns the
// backend's status code and body. Only transport-level failures yield an
// error; interpreting the status is the caller's concern.
func (c *Client) PostJSON(ctx context.Context, rc *util.RequestContext, service registry.Service, rawURL string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, &UnavailableError{Service: service, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.setOutboundHeaders(req, rc)

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordOutcome(service, outcomeUnavailable)
		return 0, nil, &UnavailableError{Service: service, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.recordOutcome(service, outcomeUnavailable)
		return 0, nil, &UnavailableError{Service: service, Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.recordOutcome(service, outcomeSuccess)
	} else {
		c.recordOutcome(service, outcomeUpstreamError)
	}

	return resp.StatusCode, body, nil
}

// setOutboundHeaders attaches the per-request headers every downstream
// call must carry.
func (c *Client) setOutboundHeaders(req *http.Request, rc *util.RequestContext) {
	if rc == nil {
		return
	}
	if rc.CorrelationID != "" {
		req.Header.Set(CorrelationIDHeader, rc.CorrelationID)
	}
	if rc.BearerToken != "" {
		req.Header.Set("Authorization", rc.BearerToken)
	}
}

// recordOutcome records an upstream call outcome when metrics are wired.
func (c *Client) recordOutcome(service registry.Service, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordUpstream(service.String(), outcome)
	}
}
