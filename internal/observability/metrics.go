package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	upstreamTotal     *prometheus.CounterVec
	fanoutOmissions   *prometheus.CounterVec
	dispatchScheduled prometheus.Counter
	dispatchOutcomes  *prometheus.CounterVec
	registry          *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "path", "status"},
	)

	m.upstreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of outbound calls to backend services",
		},
		[]string{"service", "outcome"},
	)

	m.fanoutOmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_omissions_total",
			Help:      "Services omitted from aggregate results due to call failure",
		},
		[]string{"service"},
	)

	m.dispatchScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_scheduled_total",
			Help:      "Total number of fire-and-forget writes scheduled",
		},
	)

	m.dispatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_outcomes_total",
			Help:      "Settled fire-and-forget write outcomes",
		},
		[]string{"result"},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.upstreamTotal,
		m.fanoutOmissions,
		m.dispatchScheduled,
		m.dispatchOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest records an HTTP request with its duration in seconds.
func (m *Metrics) RecordRequest(method, path, status string, seconds float64) {
	m.requestsTotal.WithLabelValues(method, path, status).Inc()
	m.requestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

// RecordUpstream records the outcome of an outbound backend call.
func (m *Metrics) RecordUpstream(service, outcome string) {
	m.upstreamTotal.WithLabelValues(service, outcome).Inc()
}

// RecordFanoutOmission records a service omitted from an aggregate result.
func (m *Metrics) RecordFanoutOmission(service string) {
	m.fanoutOmissions.WithLabelValues(service).Inc()
}

// RecordDispatchScheduled records a scheduled fire-and-forget write.
func (m *Metrics) RecordDispatchScheduled() {
	m.dispatchScheduled.Inc()
}

// RecordDispatchOutcome records a settled fire-and-forget write outcome.
func (m *Metrics) RecordDispatchOutcome(result string) {
	m.dispatchOutcomes.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
