// Package middleware provides net/http instrumentation for the scm-web API.
//
// This package includes:
//   - OpenTelemetry request tracing
//   - Prometheus request metrics
//
// Both are plain func(http.Handler) http.Handler middleware and work with
// any router. With chi, route patterns ("/api/components/{namespace}/{name}")
// are used as labels and span names instead of raw paths, which keeps
// cardinality bounded.
//
// # OpenTelemetry Middleware
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("scm-web"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// The tracer comes from the global provider unless WithTracerProvider is
// given. Incoming W3C trace context is honoured.
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics(middleware.WithNamespace("scm"))
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.Handler())
//
// Metrics collected:
//   - scm_http_requests_total{route,method,status}
//   - scm_http_request_duration_seconds{route,method}
//   - scm_http_requests_in_flight
//   - scm_http_response_cache_total{route,result}
package middleware
