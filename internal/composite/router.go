package composite

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

// Router resolves a single logical service name to one outbound read
// call and returns the backend's JSON body unmodified.
type Router struct {
	registry *registry.Registry
	client   *Client
	logger   *zap.Logger
}

// NewRouter creates a new single-target router.
func NewRouter(reg *registry.Registry, client *Client, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry: reg,
		client:   client,
		logger:   logger,
	}
}

// Route looks up the service and issues its read call. A present
// queryParam is appended using the service's own parameter name
// (each backend expects a different one); an absent queryParam calls the
// bare search path, which backends treat as list-all. The registry
// lookup failure (ErrUnknownService) never reaches the network.
func (r *Router) Route(ctx context.Context, rc *util.RequestContext, service registry.Service, queryParam string) (json.RawMessage, error) {
	desc, err := r.registry.Resolve(service)
	if err != nil {
		return nil, err
	}

	body, err := r.client.Get(ctx, rc, service, desc.SearchURL(queryParam, ""))
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}
