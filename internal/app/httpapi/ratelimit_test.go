package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.Handler(next)

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
		if token != "" {
			req.Header.Set(SessionHeader, token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("token-a"); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, code)
		}
	}
	if code := send("token-a"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exhausted: got %d, want 429", code)
	}

	// Another client has its own bucket.
	if code := send("token-b"); code != http.StatusOK {
		t.Fatalf("second client: got %d, want 200", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.get("stale")
	rl.get("fresh")

	rl.mu.Lock()
	rl.limiters["stale"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.Cleanup(30 * time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["stale"]; ok {
		t.Fatal("stale limiter survived cleanup")
	}
	if _, ok := rl.limiters["fresh"]; !ok {
		t.Fatal("fresh limiter dropped by cleanup")
	}
}
