package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mev-engine/ton-mev-lab/internal/config"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const rateLimiterCleanupInterval = 15 * time.Minute

// Server serves the loaded analysis over HTTP
type Server struct {
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
	handlers    *Handlers
	authService *AuthService
	rateLimiter *RateLimiter
	metrics     http.Handler
	stopCleanup context.CancelFunc
}

var _ interfaces.APIServer = (*Server)(nil)

// NewServer creates a new API server. metrics may be nil, in which case
// /metrics is not routed.
func NewServer(cfg *config.Config, handlers *Handlers, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &Server{
		config:      cfg,
		logger:      logger,
		handlers:    handlers,
		authService: NewAuthService(cfg.Server.APIKey),
		rateLimiter: NewRateLimiter(cfg.Server.RequestsPerMinute, cfg.Server.BurstSize),
		metrics:     metrics,
	}

	server.setupServer()

	return server
}

// Start begins listening. The listener runs until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting API server", zap.String("addr", s.server.Addr))

	cleanupCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopCleanup = cancel
	go s.rateLimiterCleanup(cleanupCtx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")
	if s.stopCleanup != nil {
		s.stopCleanup()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

// Load runs the analysis and publishes it to the handlers
func (s *Server) Load(ctx context.Context) error {
	start := time.Now()
	if err := s.handlers.Load(ctx); err != nil {
		return err
	}
	s.logger.Info("analysis loaded", zap.Duration("duration", time.Since(start)))
	return nil
}

// GetRouter returns the HTTP router
func (s *Server) GetRouter() http.Handler {
	return s.server.Handler
}

func (s *Server) setupServer() {
	router := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	router.Use(s.loggingMiddleware)
	router.Use(s.rateLimiter.RateLimitMiddleware)

	router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handlers.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handlers.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/swaps", s.handlers.GetSwaps).Methods(http.MethodGet)
	api.HandleFunc("/swaps/{query_id}", s.handlers.GetSwap).Methods(http.MethodGet)
	api.HandleFunc("/triples", s.handlers.GetTriples).Methods(http.MethodGet)
	api.HandleFunc("/pairs/{kind}", s.handlers.GetPairs).Methods(http.MethodGet)

	api.Handle("/reload", s.authService.AuthMiddleware(http.HandlerFunc(s.handlers.Reload))).
		Methods(http.MethodPost)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.handlers.Current() == nil {
		status = "loading"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   s.handlers.version,
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

func (s *Server) rateLimiterCleanup(ctx context.Context) {
	ticker := time.NewTicker(rateLimiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.CleanupExpiredClients()
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
