package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResponseRecorderDefaultsToOK(t *testing.T) {
	rec := NewResponseRecorder(httptest.NewRecorder())
	if rec.Status() != http.StatusOK {
		t.Fatalf("expected default 200, got %d", rec.Status())
	}
}

func TestResponseRecorderCapturesStatus(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := NewResponseRecorder(underlying)
	rec.WriteHeader(http.StatusTeapot)
	if rec.Status() != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Status())
	}
	if underlying.Code != http.StatusTeapot {
		t.Fatalf("status must propagate to the wrapped writer, got %d", underlying.Code)
	}
}

func TestResponseRecorderFlushDelegates(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := NewResponseRecorder(underlying)
	rec.Flush()
	if !underlying.Flushed {
		t.Fatal("flush must reach the wrapped writer")
	}
}

func TestHTTPMiddlewareObservesRequests(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `shilohnova_http_requests_total{method="GET",path="/missing",status="404"} 1`) {
		t.Fatalf("request not observed:\n%s", out.String())
	}
}
