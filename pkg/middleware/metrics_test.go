package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newInstrumentedRouter(m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/components/{namespace}/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return r
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	h := newInstrumentedRouter(m)

	for _, path := range []string{"/api/components/alice/button", "/api/components/bob/card", "/healthz"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/components/{namespace}/{name}", "GET", "404"))
	if got != 2 {
		t.Errorf("detail requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/healthz", "GET", "200")); got != 1 {
		t.Errorf("healthz requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(m.requestDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestMetricsUnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	h := newInstrumentedRouter(m)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/"+strings.Repeat("x", 10), nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestMetricsNamespaceAndCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"), WithSubsystem("api"),
		WithConstLabels(prometheus.Labels{"instance": "a"}), WithBuckets([]float64{0.1, 1}))

	m.RecordCache("/api/components", "hit")
	m.RecordCache("/api/components", "miss")
	m.RecordCache("/api/components", "hit")

	expected := `
# HELP test_api_response_cache_total Response cache lookups by route and result
# TYPE test_api_response_cache_total counter
test_api_response_cache_total{instance="a",result="hit",route="/api/components"} 2
test_api_response_cache_total{instance="a",result="miss",route="/api/components"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_api_response_cache_total"); err != nil {
		t.Error(err)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordCache("/x", "hit")
}

func TestPrometheusShorthand(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw := Prometheus(WithRegistry(reg))

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Error("expected registered metrics")
	}
}
