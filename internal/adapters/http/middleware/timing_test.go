package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trainingplan/internal/adapters/http/perf"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// TestTimingMiddleware_EmitsEntry verifies that a request entry is recorded.
func TestTimingMiddleware_EmitsEntry(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := Timing(collector, 0)(okHandler(http.StatusOK))

	req := httptest.NewRequest("GET", "/api/schedule", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_SkipsAssets verifies static assets are excluded from timing.
func TestTimingMiddleware_SkipsAssets(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := Timing(collector, 0)(okHandler(http.StatusOK))

	for _, p := range []string{"/css/style.css", "/js/schedule.js", "/favicon.ico"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", p, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", p, rr.Code)
		}
	}
	if collector.TotalRecorded() != 0 {
		t.Errorf("TotalRecorded = %d, want 0 (assets excluded)", collector.TotalRecorded())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/schedule.html", nil))
	if collector.TotalRecorded() != 1 {
		t.Errorf("pages must be timed, TotalRecorded = %d", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_CapturesStatusCode verifies the status code is captured.
func TestTimingMiddleware_CapturesStatusCode(t *testing.T) {
	collector := perf.NewCollector(1)
	handler := Timing(collector, 0)(okHandler(http.StatusNotFound))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/schedule", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	snap := collector.Snapshot(time.Time{}, 1)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "GET /api/schedule" {
		t.Fatalf("paths = %+v", snap.SlowestPaths)
	}
}

// TestTimingMiddleware_NilCollector verifies middleware works without a collector.
func TestTimingMiddleware_NilCollector(t *testing.T) {
	handler := Timing(nil, time.Nanosecond)(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/schedule", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_HandlerPanic verifies the deferred timing still runs when
// the handler panics, so the statusWriter goes back to the pool.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1 (defer must run even on panic)", collector.TotalRecorded())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// TestTimingMiddleware_PoolNoStateLeak verifies pool reuse does not leak status codes.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	collector := perf.NewCollector(100)

	rr1 := httptest.NewRecorder()
	Timing(collector, 0)(okHandler(http.StatusInternalServerError)).ServeHTTP(rr1, httptest.NewRequest("GET", "/api/fail", nil))
	if rr1.Code != 500 {
		t.Errorf("request 1 status = %d, want 500", rr1.Code)
	}

	// Implicit 200: a leaked 500 would show up here.
	collector2 := perf.NewCollector(1)
	handler200 := Timing(collector2, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rr2 := httptest.NewRecorder()
	handler200.ServeHTTP(rr2, httptest.NewRequest("GET", "/api/ok", nil))

	if rr2.Code != 200 {
		t.Errorf("request 2 status = %d, want 200", rr2.Code)
	}
	snap := collector2.Snapshot(time.Time{}, 1)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Count != 1 {
		t.Fatalf("paths = %+v", snap.SlowestPaths)
	}
}

// BenchmarkTimingMiddleware measures the per-request instrumentation cost.
func BenchmarkTimingMiddleware(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize)
	handler := Timing(collector, time.Second)(okHandler(http.StatusOK))
	req := httptest.NewRequest("GET", "/api/schedule", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
