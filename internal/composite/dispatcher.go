package composite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/observability"
	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/util"
)

// WriteOutcome is the settled result of one dispatched write. It is
// consumed only by the logging sink and metrics, never returned to the
// original caller.
type WriteOutcome struct {
	PayloadIndex int
	Succeeded    bool
	Detail       string
}

// Dispatcher schedules fire-and-forget writes against the order
// service's write endpoint. Delivery is deliberately at-most-once and
// best-effort: a process crash between scheduling and completion
// silently drops in-flight writes, and there is no persistence or retry
// queue.
type Dispatcher struct {
	client   *Client
	service  registry.Service
	writeURL string
	logger   *zap.Logger
	metrics  *observability.Metrics
	wg       sync.WaitGroup
}

// DispatcherOption is a functional option for the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the dispatcher.
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDispatcherMetrics sets the metrics sink for the dispatcher.
func WithDispatcherMetrics(m *observability.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a new fire-and-forget write dispatcher targeting
// writeURL on the given service.
func NewDispatcher(client *Client, service registry.Service, writeURL string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		client:   client,
		service:  service,
		writeURL: writeURL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NormalizeBatch parses a request body as either a JSON array of write
// payloads or a single JSON object, which becomes a one-element batch.
func NormalizeBatch(data []byte) ([]json.RawMessage, error) {
	var batch []json.RawMessage
	if err := json.Unmarshal(data, &batch); err == nil {
		return batch, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("body is not a JSON object or array: %w", err)
	}
	return []json.RawMessage{single}, nil
}

// Dispatch schedules one independent concurrent write per payload and
// returns immediately, before any write has necessarily completed. The
// sub-tasks run on a detached background context so the end of the
// originating request never cancels them; each settles on its own and
// reports its outcome to the log sink only.
func (d *Dispatcher) Dispatch(rc *util.RequestContext, payloads []json.RawMessage) {
	// Snapshot the fields the sub-tasks need; the inbound request (and
	// its context) is gone by the time they settle.
	detached := &util.RequestContext{
		CorrelationID: rc.CorrelationID,
		BearerToken:   rc.BearerToken,
	}

	for i, payload := range payloads {
		if d.metrics != nil {
			d.metrics.RecordDispatchScheduled()
		}
		d.wg.Add(1)
		go d.send(detached, i, payload)
	}
}

// send performs one dispatched write and logs its outcome.
func (d *Dispatcher) send(rc *util.RequestContext, index int, payload json.RawMessage) {
	defer d.wg.Done()

	outcome := WriteOutcome{PayloadIndex: index}

	status, body, err := d.client.PostJSON(context.Background(), rc, d.service, d.writeURL, payload)
	switch {
	case err != nil:
		outcome.Detail = err.Error()
	case status == http.StatusCreated:
		outcome.Succeeded = true
		outcome.Detail = string(body)
	default:
		outcome.Detail = fmt.Sprintf("status %d: %s", status, body)
	}

	d.observe(rc, outcome)
}

// observe routes a settled outcome to the log sink and metrics.
func (d *Dispatcher) observe(rc *util.RequestContext, outcome WriteOutcome) {
	result := "failure"
	if outcome.Succeeded {
		result = "success"
	}
	if d.metrics != nil {
		d.metrics.RecordDispatchOutcome(result)
	}

	fields := []zap.Field{
		zap.Int("payload_index", outcome.PayloadIndex),
		zap.String("service", d.service.String()),
		zap.String("correlation_id", rc.CorrelationID),
		zap.String("detail", outcome.Detail),
	}
	if outcome.Succeeded {
		d.logger.Info("dispatched write succeeded", fields...)
	} else {
		d.logger.Error("dispatched write failed", fields...)
	}
}

// Drain waits for in-flight writes to settle, bounded by the context.
// Used during graceful shutdown; it never cancels the writes themselves.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
