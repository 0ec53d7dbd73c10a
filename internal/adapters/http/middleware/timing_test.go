package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// TestTimingMiddleware_LogsRequest verifies that a request entry is logged with its fields.
func TestTimingMiddleware_LogsRequest(t *testing.T) {
	log, logs := observedLogger()
	handler := Timing(log, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/kalender/code", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d request entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "POST" || fields["path"] != "/api/kalender/code" {
		t.Errorf("unexpected fields %v", fields)
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Errorf("status = %v, want 201", fields["status"])
	}
}

// TestTimingMiddleware_SkipsStatic verifies static assets are excluded from timing.
func TestTimingMiddleware_SkipsStatic(t *testing.T) {
	log, logs := observedLogger()
	handler := Timing(log, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if logs.Len() != 0 {
		t.Errorf("logged %d entries, want 0 (static excluded)", logs.Len())
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_SlowRequestWarns verifies requests over the threshold log at WARN.
func TestTimingMiddleware_SlowRequestWarns(t *testing.T) {
	log, logs := observedLogger()
	handler := Timing(log, time.Nanosecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/kalender", nil))

	slow := logs.FilterMessage("slow_request").All()
	if len(slow) != 1 {
		t.Fatalf("logged %d slow_request entries, want 1", len(slow))
	}
	if slow[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", slow[0].Level)
	}
}

// TestTimingMiddleware_NilLogger verifies middleware works without a logger.
func TestTimingMiddleware_NilLogger(t *testing.T) {
	handler := Timing(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/kalender", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// --- Resilience: Handler Panic ---

// TestTimingMiddleware_HandlerPanic verifies that the deferred logging still runs
// when the handler panics, and that the panic propagates.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	log, logs := observedLogger()
	handler := Timing(log, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if logs.Len() != 1 {
			t.Errorf("logged %d entries, want 1 (defer must run even on panic)", logs.Len())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// --- Resilience: Pool State Isolation ---

// TestTimingMiddleware_PoolNoStateLeak verifies that statusWriter pool reuse
// does not leak status codes between requests.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	log, logs := observedLogger()

	handler500 := Timing(log, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler500.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/fail", nil))

	// Implicit 200. If the pool leaks, the log shows 500 here.
	handler200 := Timing(log, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	handler200.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/ok", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if got := entries[1].ContextMap()["status"]; got != int64(http.StatusOK) {
		t.Errorf("request 2 status = %v, want 200 (pool must not leak 500)", got)
	}
}
