package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTracedRouter(opts ...OTelOption) (http.Handler, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	opts = append([]OTelOption{WithTracerProvider(tp), WithPropagator(propagation.TraceContext{})}, opts...)

	r := chi.NewRouter()
	r.Use(OpenTelemetry(opts...))
	r.Get("/api/components/{namespace}/{name}", func(w http.ResponseWriter, r *http.Request) {
		if !trace.SpanContextFromContext(r.Context()).IsValid() {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/components", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	return r, rec
}

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOpenTelemetrySpanPerRequest(t *testing.T) {
	h, rec := newTracedRouter(WithAttributeExtractor(func(r *http.Request) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("test.attr", "ok")}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/components/alice/button", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("handler did not see the span context: %d", w.Code)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /api/components/{namespace}/{name}" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", span.SpanKind())
	}
	if v, ok := attr(span, "http.response.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("status attribute = %v", v)
	}
	if v, ok := attr(span, "test.attr"); !ok || v.AsString() != "ok" {
		t.Errorf("custom attribute = %v", v)
	}
}

func TestOpenTelemetryServerErrors(t *testing.T) {
	h, rec := newTracedRouter()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/components", nil))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status())
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	h, rec := newTracedRouter(WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthz"
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if n := len(rec.Ended()); n != 0 {
		t.Errorf("got %d spans for a filtered request", n)
	}
}

func TestOpenTelemetryContinuesIncomingTrace(t *testing.T) {
	h, rec := newTracedRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/components/alice/button", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s", got)
	}
	if !spans[0].Parent().IsRemote() {
		t.Error("parent should be the remote span")
	}
}
