package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client"), "request %d", i)
	}
	assert.False(t, rl.Allow("client"))
	assert.True(t, rl.Allow("other"), "buckets are per client")

	// 60 per minute refills one token per second
	now = now.Add(time.Second)
	assert.True(t, rl.Allow("client"))
	assert.False(t, rl.Allow("client"))

	limits := rl.GetLimits("client")
	assert.Equal(t, 60, limits.Limit)
	assert.Equal(t, 0, limits.Remaining)
	assert.True(t, limits.ResetTime.After(now))
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	limits := rl.GetLimits("client")
	assert.Equal(t, DefaultRequestsPerMinute, limits.Limit)
	assert.Equal(t, DefaultBurstSize, limits.Remaining)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("stale")
	now = now.Add(30 * time.Minute)
	rl.Allow("fresh")
	now = now.Add(45 * time.Minute)

	rl.CleanupExpiredClients()
	assert.NotContains(t, rl.clients, "stale")
	assert.Contains(t, rl.clients, "fresh")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	handler := rl.RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetClientID(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "forwarded", header: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, remote: "9.9.9.9:1", want: "1.2.3.4"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "4.3.2.1"}, remote: "9.9.9.9:1", want: "4.3.2.1"},
		{name: "remote addr", remote: "9.9.9.9:1234", want: "9.9.9.9"},
		{name: "remote without port", remote: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientID(req))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ := r.Context().Value(apiKeyContextKey).(string)
		_, _ = w.Write([]byte(key))
	})

	tests := []struct {
		name     string
		apiKey   string
		header   string
		wantCode int
	}{
		{name: "disabled", apiKey: "", header: "", wantCode: http.StatusOK},
		{name: "missing header", apiKey: "k", header: "", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", apiKey: "k", header: "Basic k", wantCode: http.StatusUnauthorized},
		{name: "wrong key", apiKey: "k", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "valid", apiKey: "k", header: "Bearer k", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthService(tt.apiKey)
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			auth.AuthMiddleware(next).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.name == "valid" {
				assert.Equal(t, "k", w.Body.String())
			}
		})
	}
}
