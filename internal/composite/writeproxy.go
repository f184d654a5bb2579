package composite

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

// WriteResult is the gateway-level result of a synchronously proxied
// write.
type WriteResult struct {
	StatusCode int
	Body       json.RawMessage
}

// WriteProxy forwards a single write payload synchronously to one
// backend's write endpoint.
type WriteProxy struct {
	client   *Client
	service  registry.Service
	writeURL string
	logger   *zap.Logger
}

// NewWriteProxy creates a new synchronous write proxy targeting writeURL
// on the given service.
func NewWriteProxy(client *Client, service registry.Service, writeURL string, logger *zap.Logger) *WriteProxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriteProxy{
		client:   client,
		service:  service,
		writeURL: writeURL,
		logger:   logger,
	}
}

// ForwardWrite posts the payload to the backend and translates the
// response. A creation status yields a success result. Any other status
// yields an *UpstreamError whose body is the backend's own response,
// parsed as JSON for pass-through or wrapped as an error detail when it
// is not JSON. A transport failure yields an *UnavailableError, which
// callers can tell apart from a backend rejection.
func (p *WriteProxy) ForwardWrite(ctx context.Context, rc *util.RequestContext, payload json.RawMessage) (*WriteResult, error) {
	status, body, err := p.client.PostJSON(ctx, rc, p.service, p.writeURL, payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusCreated {
		return &WriteResult{StatusCode: status, Body: normalizeBody(body)}, nil
	}

	p.logger.Error("write rejected by upstream",
		zap.String("service", p.service.String()),
		zap.Int("status", status),
		zap.String("correlation_id", rc.CorrelationID),
	)

	return nil, &UpstreamError{Service: p.service, StatusCode: status, Body: normalizeBody(body)}
}

// normalizeBody passes valid JSON through untouched and wraps anything
// else as an error detail object.
func normalizeBody(body []byte) json.RawMessage {
	if json.Valid(body) && len(body) > 0 {
		return json.RawMessage(body)
	}
	wrapped, _ := json.Marshal(map[string]string{"error": string(body)})
	return json.RawMessage(wrapped)
}
