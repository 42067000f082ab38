package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/userstore/internal/core/ports/driven"
	"github.com/custodia-labs/userstore/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Host      string
	Port      int
	AuthToken string // shared secret for bearer authentication
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 8080,
	}
}

// Server represents the HTTP server. It assembles the middleware
// pipeline and binds routes to repository operations; it is the single
// composition point for request processing.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *slog.Logger

	userService driving.UserService
	limiter     driven.RateLimiter
	store       Pinger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	userService driving.UserService,
	limiter driven.RateLimiter,
	store Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:      http.NewServeMux(),
		logger:      logger,
		userService: userService,
		limiter:     limiter,
		store:       store,
	}

	s.setupRoutes(cfg)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes and the middleware pipeline.
// Panic containment is outermost so no stage above it observes a raw
// failure; correlation tagging and logging cover every route including
// health; rate limiting and authentication guard the user routes, in
// that order so unauthenticated callers still consume quota.
func (s *Server) setupRoutes(cfg Config) {
	recovery := NewRecoveryMiddleware(s.logger)
	correlation := NewCorrelationMiddleware()
	logging := NewLoggingMiddleware(s.logger)
	rateLimit := NewRateLimitMiddleware(s.limiter, s.logger)
	auth := NewAuthMiddleware(cfg.AuthToken)

	protected := Chain{rateLimit.Handler, auth.Handler}

	// Health endpoint (no auth, no quota)
	s.router.HandleFunc("GET /health", s.handleHealth)

	// User endpoints
	s.router.Handle("GET /users",
		protected.Then(http.HandlerFunc(s.handleListUsers)))
	s.router.Handle("GET /users/search",
		protected.Then(http.HandlerFunc(s.handleSearchUsers)))
	s.router.Handle("GET /users/{id}",
		protected.Then(http.HandlerFunc(s.handleGetUser)))
	s.router.Handle("POST /users",
		protected.Then(http.HandlerFunc(s.handleCreateUser)))
	s.router.Handle("PUT /users/{id}",
		protected.Then(http.HandlerFunc(s.handleUpdateUser)))
	s.router.Handle("DELETE /users/{id}",
		protected.Then(http.HandlerFunc(s.handleDeleteUser)))

	s.handler = Chain{recovery.Handler, correlation.Handler, logging.Handler}.Then(s.router)
}

// Handler returns the fully assembled request pipeline
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or listener failure
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
