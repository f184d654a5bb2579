package composite

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/observability"
	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

// AggregateResult maps a service name to the ordered results of its
// calls. A service whose call failed is simply absent; absence is the
// failure signal, so callers must not conflate "absent" with "empty
// result". Every key present was in the registry at call time.
type AggregateResult map[string][]json.RawMessage

// Aggregator fans a read out to every registered backend concurrently
// and assembles a partial result from whatever settled successfully.
type Aggregator struct {
	registry   *registry.Registry
	client     *Client
	queryParam string
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// AggregatorOption is a functional option for the aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the logger for the aggregator.
func WithAggregatorLogger(logger *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithAggregatorMetrics sets the metrics sink for the aggregator.
func WithAggregatorMetrics(m *observability.Metrics) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithAggregateQueryParam sets the shared parameter name the aggregate
// applies to every service's search call.
func WithAggregateQueryParam(param string) AggregatorOption {
	return func(a *Aggregator) {
		if param != "" {
			a.queryParam = param
		}
	}
}

// NewAggregator creates a new fan-out read aggregator.
func NewAggregator(reg *registry.Registry, client *Client, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		registry:   reg,
		client:     client,
		queryParam: "user_id",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// QueryParam returns the shared parameter name the aggregate applies to
// every service's search call.
func (a *Aggregator) QueryParam() string {
	return a.queryParam
}

// fanoutResult is the outcome of one sub-task. Each sub-task owns its
// result exclusively until the coordinator merges it after the join.
type fanoutResult struct {
	service registry.Service
	body    []byte
	err     error
}

// AggregateAll issues one read per registered service concurrently,
// waits for every call to settle (join-all, no early return), and merges
// the successes. Failed calls are logged with the offending service name
// and omitted from the result; when every call fails the result is an
// empty mapping, not an error. A failure in one sub-task never cancels
// or delays another.
func (a *Aggregator) AggregateAll(ctx context.Context, rc *util.RequestContext, queryValue string) AggregateResult {
	descriptors := a.registry.All()
	results := make([]fanoutResult, len(descriptors))

	var wg sync.WaitGroup
	for i, desc := range descriptors {
		wg.Add(1)
		go func(i int, desc *registry.ServiceDescriptor) {
			defer wg.Done()
			url := desc.SearchURL(queryValue, a.queryParam)
			body, err := a.client.Get(ctx, rc, desc.Name, url)
			results[i] = fanoutResult{service: desc.Name, body: body, err: err}
		}(i, desc)
	}
	wg.Wait()

	merged := make(AggregateResult)
	for _, res := range results {
		if res.err != nil {
			a.logger.Warn("omitting service from aggregate",
				zap.String("service", res.service.String()),
				zap.String("correlation_id", rc.CorrelationID),
				zap.Error(res.err),
			)
			if a.metrics != nil {
				a.metrics.RecordFanoutOmission(res.service.String())
			}
			continue
		}
		merged[res.service.String()] = append(merged[res.service.String()], extractServiceField(res.service, res.body))
	}

	return merged
}

// extractServiceField pulls the field keyed by the service's own name
// out of the response body, falling back to the raw body when the field
// is absent or the body is not a JSON object.
func extractServiceField(service registry.Service, body []byte) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if field, ok := envelope[service.String()]; ok {
			return field
		}
	}
	return json.RawMessage(body)
}
