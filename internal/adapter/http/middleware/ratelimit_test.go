package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_LimitsPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}

	if code := send("10.0.0.1:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected burst to be exhausted across ports, got %d", code)
	}

	if code := send("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", code)
	}
}

func TestRateLimiter_CleanupRemovesIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.getLimiter("10.0.0.1")
	now = now.Add(10 * time.Minute)
	rl.getLimiter("10.0.0.2")

	if removed := rl.CleanupLimiters(5 * time.Minute); removed != 1 {
		t.Fatalf("expected 1 idle limiter removed, got %d", removed)
	}

	if _, ok := rl.limiters["10.0.0.2"]; !ok {
		t.Fatalf("active client should be kept")
	}
}
