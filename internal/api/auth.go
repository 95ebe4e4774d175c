package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// AuthService checks bearer tokens against the configured API key
type AuthService struct {
	apiKey string
}

// NewAuthService creates an auth service. An empty key disables the check.
func NewAuthService(apiKey string) *AuthService {
	return &AuthService{apiKey: apiKey}
}

// Enabled reports whether requests must carry the key
func (a *AuthService) Enabled() bool {
	return a.apiKey != ""
}

// ValidateAPIKey compares in constant time
func (a *AuthService) ValidateAPIKey(apiKey string) bool {
	if !a.Enabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.apiKey)) == 1
}

// AuthMiddleware rejects requests without a valid "Bearer <key>" header
func (a *AuthService) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid Authorization header format")
			return
		}

		if !a.ValidateAPIKey(parts[1]) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyContextKey, parts[1])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
