package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat outcomes recorded by ChatOutcomes.
const (
	OutcomeTriggered = "triggered"
	OutcomeGenerated = "generated"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics encapsulates Prometheus metrics for the server.
type Metrics struct {
	registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec

	ChatOutcomes       *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	GenerationFaults   *prometheus.CounterVec
	GenerationWaiting  prometheus.Gauge

	BackendHealthy      prometheus.Gauge
	HealthCheckDuration prometheus.Histogram
	HealthCheckErrors   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with a custom registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_http_active_requests",
				Help: "Number of currently active HTTP requests",
			},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		),
		ChatOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_chat_outcomes_total",
				Help: "Chat requests by outcome (triggered, generated, rejected, failed)",
			},
			[]string{"outcome"},
		),
		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parley_generation_duration_seconds",
				Help:    "Duration of tokenize, execute and decode for one reply",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		GenerationFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_generation_faults_total",
				Help: "Generation failures by stage (encode, execute, decode)",
			},
			[]string{"stage"},
		),
		GenerationWaiting: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_generation_waiting",
				Help: "Requests waiting for a model execution slot",
			},
		),
		BackendHealthy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parley_backend_healthy",
				Help: "Whether the last generation backend health check passed (1) or not (0)",
			},
		),
		HealthCheckDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parley_backend_health_check_duration_seconds",
				Help:    "Duration of generation backend health checks",
				Buckets: prometheus.DefBuckets,
			},
		),
		HealthCheckErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_backend_health_check_errors_total",
				Help: "Failed generation backend health checks",
			},
		),
	}

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, outcome := range []string{OutcomeTriggered, OutcomeGenerated, OutcomeRejected, OutcomeFailed} {
		m.ChatOutcomes.WithLabelValues(outcome).Add(0)
	}

	return m
}

// Registry exposes the registry so other components can register collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}
