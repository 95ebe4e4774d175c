package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
)

// Default per-client limits
const (
	DefaultRequestsPerMinute = 100
	DefaultBurstSize         = 20
)

var _ interfaces.RateLimiter = (*RateLimiter)(nil)

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	clients map[string]*ClientBucket
	mutex   sync.Mutex
	now     func() time.Time

	defaultLimit *interfaces.RateLimit
}

// ClientBucket represents a token bucket for a specific client
type ClientBucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

// NewRateLimiter creates a new rate limiter; non-positive values use the defaults
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if burst <= 0 {
		burst = DefaultBurstSize
	}
	return &RateLimiter{
		clients: make(map[string]*ClientBucket),
		now:     time.Now,
		defaultLimit: &interfaces.RateLimit{
			RequestsPerMinute: requestsPerMinute,
			BurstSize:         burst,
			WindowSize:        time.Minute,
		},
	}
}

// Allow checks if a request should be allowed for the given client
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	bucket := rl.bucket(clientID, now)

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// bucket returns the refilled bucket of a client. Callers hold the mutex.
func (rl *RateLimiter) bucket(clientID string, now time.Time) *ClientBucket {
	limit := rl.defaultLimit
	bucket, exists := rl.clients[clientID]
	if !exists {
		bucket = &ClientBucket{tokens: float64(limit.BurstSize), lastRefill: now}
		rl.clients[clientID] = bucket
	}

	elapsed := now.Sub(bucket.lastRefill)
	if elapsed > 0 {
		bucket.tokens += elapsed.Minutes() * float64(limit.RequestsPerMinute)
		if bucket.tokens > float64(limit.BurstSize) {
			bucket.tokens = float64(limit.BurstSize)
		}
		bucket.lastRefill = now
	}
	bucket.lastSeen = now
	return bucket
}

// GetLimits returns the current rate limit status for a client
func (rl *RateLimiter) GetLimits(clientID string) *interfaces.RateLimitInfo {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	bucket := rl.bucket(clientID, now)
	missing := float64(rl.defaultLimit.BurstSize) - bucket.tokens
	refill := time.Duration(missing / float64(rl.defaultLimit.RequestsPerMinute) * float64(time.Minute))

	return &interfaces.RateLimitInfo{
		Limit:     rl.defaultLimit.RequestsPerMinute,
		Remaining: int(bucket.tokens),
		ResetTime: now.Add(refill),
	}
}

// RateLimitMiddleware provides rate limiting middleware for HTTP handlers
func (rl *RateLimiter) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := getClientID(r)
		allowed := rl.Allow(clientID)

		limits := rl.GetLimits(clientID)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limits.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limits.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", limits.ResetTime.Unix()))

		if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientID extracts a client identifier from the request
func getClientID(r *http.Request) string {
	if apiKey, ok := r.Context().Value(apiKeyContextKey).(string); ok {
		return apiKey
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CleanupExpiredClients removes buckets idle for longer than an hour
func (rl *RateLimiter) CleanupExpiredClients() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for clientID, bucket := range rl.clients {
		if now.Sub(bucket.lastSeen) > time.Hour {
			delete(rl.clients, clientID)
		}
	}
}
