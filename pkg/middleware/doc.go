// Package middleware provides HTTP middleware for shipyard servers.
//
// # OpenTelemetry
//
// OpenTelemetry opens a server span per request, named after the matched
// chi route pattern so that /rsc/{routeParam} does not explode span names:
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("shipyard"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	))
//
// The tracer comes from the global provider. Install one in main() before
// serving, or spans are no-ops.
//
// # Prometheus
//
// NewMetrics builds request, stream and action collectors on a registry.
// The returned Metrics is also a stream.Observer and a dispatch.Observer:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//	r.Handle("/metrics", m.Exposer(reg))
//
// Collected series (namespace "shipyard" by default):
//   - http_requests_total{route,method,status}
//   - http_request_duration_seconds{route,method}
//   - active_streams
//   - streamed_bytes_total
//   - stream_outcomes_total{outcome}
//   - actions_total{reference,outcome}
//   - action_duration_seconds{outcome}
package middleware
