package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/userstore/internal/core/ports/driven"
	"github.com/google/uuid"
)

// Middleware wraps a handler with pre- and post-processing. A stage may
// short-circuit by writing a response without invoking next.
type Middleware func(next http.Handler) http.Handler

// Chain is an ordered middleware pipeline; the first element is the
// outermost stage. Chains are built once at startup and never mutated.
type Chain []Middleware

// Then folds the chain around h, last to first, yielding one handler.
func (c Chain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}

// Context keys
type contextKey string

const correlationContextKey contextKey = "correlation_id"

// HeaderCorrelationID carries the per-request correlation token.
const HeaderCorrelationID = "X-Correlation-ID"

// Recovery middleware

// RecoveryMiddleware converts panics anywhere downstream into a logged
// generic internal-error response. It must be the outermost stage: no
// stage above it ever observes a raw failure.
type RecoveryMiddleware struct {
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware(logger *slog.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

// Handler wraps an http.Handler with panic containment
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", err,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Correlation middleware

// CorrelationMiddleware ensures every request carries a correlation
// token: a caller-supplied X-Correlation-ID is reused, otherwise a
// fresh one is minted. The same token is echoed on the response.
type CorrelationMiddleware struct{}

// NewCorrelationMiddleware creates a new CorrelationMiddleware
func NewCorrelationMiddleware() *CorrelationMiddleware {
	return &CorrelationMiddleware{}
}

// Handler wraps an http.Handler with correlation tagging
func (m *CorrelationMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderCorrelationID))
		if id == "" {
			id = uuid.NewString()
		}

		// The header map is shared with every wrapping stage, so setting
		// it here keeps the token on responses written above this stage
		// (panic containment included). The wrapped writer re-asserts it
		// just before headers are sent in case a downstream stage
		// cleared it.
		w.Header().Set(HeaderCorrelationID, id)

		ctx := context.WithValue(r.Context(), correlationContextKey, id)
		next.ServeHTTP(&correlationWriter{ResponseWriter: w, id: id}, r.WithContext(ctx))
	})
}

type correlationWriter struct {
	http.ResponseWriter
	id string
}

func (cw *correlationWriter) WriteHeader(code int) {
	if cw.Header().Get(HeaderCorrelationID) == "" {
		cw.Header().Set(HeaderCorrelationID, cw.id)
	}
	cw.ResponseWriter.WriteHeader(code)
}

// CorrelationID retrieves the request's correlation token from ctx.
// Returns the empty string for untagged requests.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationContextKey).(string)
	return id
}

// Logging middleware

// LoggingMiddleware logs HTTP requests with their final status. It sits
// inside correlation tagging and outside rate limiting and auth, so the
// short-circuit statuses those stages produce are observed too.
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
			"correlation_id", CorrelationID(r.Context()),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Rate limit middleware

// RateLimitMiddleware rejects requests over the caller's quota with a
// 429 before they reach authentication or the repository.
type RateLimitMiddleware struct {
	limiter driven.RateLimiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter driven.RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Handler wraps an http.Handler with quota enforcement
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := m.limiter.Allow(r.Context(), callerKey(r))
		if err != nil {
			m.logger.Error("rate limit check failed",
				"error", err,
				"correlation_id", CorrelationID(r.Context()),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerKey buckets requests by caller address and route. Distinct
// routes get independent windows; ids within a route share one.
func callerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	route := r.Pattern
	if route == "" {
		route = r.Method + " " + r.URL.Path
	}
	return host + ":" + route
}

// Auth middleware

// AuthMiddleware requires a bearer credential matching the configured
// shared secret on every wrapped route.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Handler wraps an http.Handler with shared-secret authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), m.secret) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
