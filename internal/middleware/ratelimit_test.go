package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestRateLimiter(t *testing.T, general, registration int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:       1,
		GeneralBurst:      general,
		RegistrationRate:  0.1,
		RegistrationBurst: registration,
		CleanupInterval:   1 * time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// doRequest はuserIDが空でなければ認証済みとしてリクエストを処理する。
func doRequest(h http.Handler, userID, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := newTestRateLimiter(t, 5, 1)
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 5; i++ {
		if w := doRequest(handler, "user-1", ""); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	rl := newTestRateLimiter(t, 2, 1)
	handler := rl.GeneralMiddleware()(okHandler())

	doRequest(handler, "user-1", "")
	doRequest(handler, "user-1", "")
	w := doRequest(handler, "user-1", "")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive integer", w.Header().Get("Retry-After"))
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want %q", body.Code, "RATE_LIMIT_EXCEEDED")
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler())

	if w := doRequest(handler, "user-1", ""); w.Code != http.StatusOK {
		t.Fatalf("user-1 first request: status = %d", w.Code)
	}
	if w := doRequest(handler, "user-1", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want 429", w.Code)
	}
	if w := doRequest(handler, "user-2", ""); w.Code != http.StatusOK {
		t.Errorf("user-2 should have its own bucket, status = %d", w.Code)
	}
}

// TestRateLimitMiddleware_AnonymousKeyedByIP は未認証リクエストがIPごとに制限されることを検証する。
func TestRateLimitMiddleware_AnonymousKeyedByIP(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler())

	if w := doRequest(handler, "", "192.0.2.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	if w := doRequest(handler, "", "192.0.2.1:5678"); w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP different port: status = %d, want 429", w.Code)
	}
	if w := doRequest(handler, "", "192.0.2.2:1234"); w.Code != http.StatusOK {
		t.Errorf("different IP: status = %d, want 200", w.Code)
	}
}

func TestRegistrationRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	rl := newTestRateLimiter(t, 10, 1)
	registration := rl.RegistrationMiddleware()(okHandler())
	general := rl.GeneralMiddleware()(okHandler())

	if w := doRequest(registration, "", "192.0.2.1:1"); w.Code != http.StatusOK {
		t.Fatalf("first registration: status = %d", w.Code)
	}
	if w := doRequest(registration, "", "192.0.2.1:1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second registration: status = %d, want 429", w.Code)
	}
	if w := doRequest(general, "", "192.0.2.1:1"); w.Code != http.StatusOK {
		t.Errorf("general request: status = %d, want 200", w.Code)
	}
	if rl.RegistrationLimiterCount() != 1 || rl.GeneralLimiterCount() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", rl.RegistrationLimiterCount(), rl.GeneralLimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:       2,
		GeneralBurst:      5,
		RegistrationRate:  1,
		RegistrationBurst: 1,
		CleanupInterval:   50 * time.Millisecond,
	})
	defer rl.Stop()

	doRequest(rl.GeneralMiddleware()(okHandler()), "user-cleanup", "")
	if rl.GeneralLimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// TTLはCleanupIntervalの2倍
	time.Sleep(200 * time.Millisecond)

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2.0 {
		t.Errorf("GeneralRate = %f, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.RegistrationRate == 0 {
		t.Error("RegistrationRate should not be 0")
	}
	if cfg.RegistrationBurst != 10 {
		t.Errorf("RegistrationBurst = %d, want 10", cfg.RegistrationBurst)
	}
}
