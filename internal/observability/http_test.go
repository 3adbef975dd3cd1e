package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTraceMiddlewareKeepsCallerTraceID(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/s-1/messages", nil)
	req.Header.Set(traceHeader, "chat-turn-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "chat-turn-7" {
		t.Fatalf("TraceIDFromContext() = %q", seen)
	}
	if got := rr.Header().Get(traceHeader); got != "chat-turn-7" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareAssignsDistinctTraceIDs(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	ids := make(map[string]bool)
	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
		id := rr.Header().Get(traceHeader)
		if len(id) != 32 {
			t.Fatalf("generated trace id = %q", id)
		}
		ids[id] = true
	}
	if len(ids) != 3 {
		t.Fatalf("trace ids not unique: %v", ids)
	}
}

func TestLoggingMiddlewareRecordsStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := TraceMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error_code":"not_found"}`))
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/gone", nil)
	req.Header.Set(traceHeader, "t-404")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["msg"] != "http_request" || line["trace_id"] != "t-404" {
		t.Fatalf("log line = %v", line)
	}
	if line["status"] != float64(http.StatusNotFound) || line["path"] != "/v1/sessions/gone" {
		t.Fatalf("log line = %v", line)
	}
	if line["bytes"] != float64(len(`{"error_code":"not_found"}`)) {
		t.Fatalf("bytes = %v", line["bytes"])
	}
}

func TestMetricsMiddlewareLabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := MetricsMiddleware(mux)

	pattern := httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /v1/sessions/{id}", "200")
	unmatched := httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforePattern := testutil.ToFloat64(pattern)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, id := range []string{"3f2a", "9b7c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/nowhere", nil))

	if delta := testutil.ToFloat64(pattern) - beforePattern; delta != 2 {
		t.Fatalf("pattern requests delta = %v", delta)
	}
	if delta := testutil.ToFloat64(unmatched) - beforeUnmatched; delta != 1 {
		t.Fatalf("unmatched requests delta = %v", delta)
	}
	for _, id := range []string{"3f2a", "9b7c"} {
		if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/sessions/"+id, "200")); got != 0 {
			t.Fatalf("raw path %q leaked into labels: %v", id, got)
		}
	}
}

func TestRouteLabelFallsBackWithoutPattern(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil)
	if got := routeLabel(req); got != "unmatched" {
		t.Fatalf("routeLabel() = %q", got)
	}
	req.Pattern = "GET /v1/sessions/{id}"
	if got := routeLabel(req); got != "GET /v1/sessions/{id}" {
		t.Fatalf("routeLabel() = %q", got)
	}
}
