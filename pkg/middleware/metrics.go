package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/shipyard/pkg/stream"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "shipyard").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request and action duration.
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
		Namespace: "shipyard",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the server's collectors.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeStreams   prometheus.Gauge
	streamedBytes   prometheus.Counter
	streamOutcomes  *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
}

// NewMetrics registers the collectors. Registering twice on the same
// registry panics, as with promauto.
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
			Name:        "http_requests_total",
			Help:        "Total HTTP requests by route pattern, method and status",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP handler duration in seconds, including streaming time",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "method"}),

		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_streams",
			Help:        "Number of open response streams",
			ConstLabels: config.ConstLabels,
		}),

		streamedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "streamed_bytes_total",
			Help:        "Total bytes written to response streams",
			ConstLabels: config.ConstLabels,
		}),

		streamOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_outcomes_total",
			Help:        "Closed streams by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_total",
			Help:        "Server action dispatches by reference and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"reference", "outcome"}),

		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_duration_seconds",
			Help:        "Time from dispatch to a ready response stream, in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),
	}
}

// Handler records request count and duration. Routes are labelled by the
// chi pattern once routing has happened, or "unmatched".
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

// Exposer serves the registry in the Prometheus text format.
func (m *Metrics) Exposer(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// StreamOpened implements stream.Observer.
func (m *Metrics) StreamOpened(*stream.Handle) {
	m.activeStreams.Inc()
}

// StreamClosed implements stream.Observer.
func (m *Metrics) StreamClosed(h *stream.Handle, err error) {
	m.activeStreams.Dec()
	m.streamedBytes.Add(float64(h.Bytes()))
	m.streamOutcomes.WithLabelValues(streamOutcome(err)).Inc()
}

// ActionDispatched implements dispatch.Observer. References that failed to
// resolve are collapsed into one label value to bound cardinality.
func (m *Metrics) ActionDispatched(reference, outcome string, elapsed time.Duration) {
	if outcome == "resolve" {
		reference = "unresolved"
	}
	m.actionsTotal.WithLabelValues(reference, outcome).Inc()
	m.actionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func streamOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, stream.ErrTransportClosed), errors.Is(err, context.Canceled):
		return "disconnected"
	case errors.Is(err, stream.ErrRender):
		return "render_error"
	default:
		return "error"
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
