package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

// APIServer defines the interface for the REST API server
type APIServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	GetRouter() http.Handler
}

// RateLimiter defines the interface for API rate limiting
type RateLimiter interface {
	Allow(clientID string) bool
	GetLimits(clientID string) *RateLimitInfo
}

// RateLimit defines rate limiting parameters
type RateLimit struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	WindowSize        time.Duration `json:"window_size"`
}

// RateLimitInfo contains current rate limit status
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// SwapFilter defines filtering options for swap listings
type SwapFilter struct {
	Direction types.Direction     `json:"direction,omitempty"`
	Role      types.AdjacencyRole `json:"role,omitempty"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

// SwapListResponse is a page of indicator records
type SwapListResponse struct {
	Swaps  []types.IndicatorRecord `json:"swaps"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// TripleView is a triple with its three records inlined
type TripleView struct {
	types.Triple
	FrontRecord  types.IndicatorRecord `json:"front_record"`
	VictimRecord types.IndicatorRecord `json:"victim_record"`
	BackRecord   types.IndicatorRecord `json:"back_record"`
}

// StatusResponse is what /api/v1/status reports about the loaded analysis
type StatusResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Input      string    `json:"input"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Swaps      int       `json:"swaps"`
	Triples    int       `json:"triples"`
	Victims    int       `json:"victims"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
