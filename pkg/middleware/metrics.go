package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/start/pkg/server"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "start").
	Namespace string

	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "start",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the request and server function collectors.
//
// Metrics collected:
//   - start_requests_total: requests by kind (page, rpc, api) and status code
//   - start_request_duration_seconds: request duration by kind
//   - start_requests_in_flight: requests being served, streams included
//   - start_invocations_total: server function calls by outcome
//   - start_invocation_duration_seconds: server function duration by outcome
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	inFlight           prometheus.Gauge
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors. Registering twice with the same
// registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests by handling path and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request duration in seconds, until the last byte of a stream",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of requests being served",
			ConstLabels: config.ConstLabels,
		}),

		invocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invocations_total",
			Help:        "Total number of server function invocations by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		invocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invocation_duration_seconds",
			Help:        "Server function duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),
	}
}

// Handler returns HTTP middleware recording every request. classify labels
// the request; nil labels everything "page".
//
// Example:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	r.Use(m.Handler(app.Kind))
//	r.Handle("/metrics", promhttp.Handler())
func (m *Metrics) Handler(classify func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			kind := "page"
			if classify != nil {
				kind = classify(r)
			}

			m.inFlight.Inc()
			defer m.inFlight.Dec()

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			m.requestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(kind, strconv.Itoa(rec.Status())).Inc()
		})
	}
}

// InvokeStart implements server.InvokeHook.
func (m *Metrics) InvokeStart(ctx context.Context, call *server.Call) context.Context {
	return ctx
}

// InvokeEnd implements server.InvokeHook.
func (m *Metrics) InvokeEnd(ctx context.Context, call *server.Call, out server.Outcome, elapsed time.Duration) {
	outcome := out.Kind.String()
	m.invocationsTotal.WithLabelValues(outcome).Inc()
	m.invocationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

var _ server.InvokeHook = (*Metrics)(nil)
