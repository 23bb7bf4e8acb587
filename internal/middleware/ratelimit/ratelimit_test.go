package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLimiterAllow(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("clients are counted separately")
	}

	m := rl.GetMetrics()
	if m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestLimiterCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	rl.Allow("10.0.0.1")
	rl.cleanupStaleEntries(time.Now().Add(time.Second))
	if got := rl.ActiveClients(); got != 0 {
		t.Errorf("ActiveClients = %d after cleanup", got)
	}
	if !rl.Allow("10.0.0.1") {
		t.Error("window should restart after cleanup")
	}
}

func TestLimiterStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}

func TestMiddlewareOnlyCountsConfiguredMethods(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	defer rl.Stop()

	h := rl.Middleware(
		func(*http.Request) string { return "10.0.0.9" },
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/products", nil))
		return rec
	}

	for i := 0; i < 5; i++ {
		if code := do(http.MethodGet).Code; code != http.StatusNoContent {
			t.Fatalf("GET %d: status %d", i, code)
		}
	}
	if code := do(http.MethodPost).Code; code != http.StatusNoContent {
		t.Fatalf("first POST: status %d", code)
	}

	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second POST: status %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q", got)
	}
}
