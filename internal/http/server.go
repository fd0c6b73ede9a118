// Package http is the JSON API surface: auth, record collections, party
// directories and health probes.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/auth"
	"tally/internal/services"
)

type Server struct {
	http.Server

	records *services.RecordService
	authn   *auth.PasswordAuthenticator
	tokens  *auth.JWTManager

	requestTimeout time.Duration
	rateLimiter    *rateLimiter
	metrics        *securityMetrics
	shutdownOnce   sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, records *services.RecordService, authn *auth.PasswordAuthenticator, tokens *auth.JWTManager, requestTimeout time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		records:        records,
		authn:          authn,
		tokens:         tokens,
		requestTimeout: requestTimeout,
		rateLimiter:    newRateLimiter(),
		metrics:        &securityMetrics{},
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.withSecurity(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withSecurity(s.handleLogin))

	mux.HandleFunc("GET /api/{kind}/records", s.withSecurity(s.withAuth(s.handleListRecords)))
	mux.HandleFunc("POST /api/{kind}/records", s.withSecurity(s.withAuth(s.handleSaveBatch)))
	mux.HandleFunc("DELETE /api/{kind}/records", s.withSecurity(s.withAuth(s.handleClearRecords)))
	mux.HandleFunc("GET /api/{kind}/records/{id}", s.withSecurity(s.withAuth(s.handleGetRecord)))
	mux.HandleFunc("DELETE /api/{kind}/records/{id}", s.withSecurity(s.withAuth(s.handleDeleteRecord)))

	mux.HandleFunc("GET /api/{kind}/parties", s.withSecurity(s.withAuth(s.handleListParties)))
	mux.HandleFunc("POST /api/{kind}/parties", s.withSecurity(s.withAuth(s.handleAddParty)))
	mux.HandleFunc("DELETE /api/{kind}/parties/{name}", s.withSecurity(s.withAuth(s.handleRemoveParty)))

	return s
}

// Shutdown stops the cleanup goroutines alongside the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurity adds security headers, rate limiting and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				"client_ip", clientIP,
				"method", r.Method,
				"url", r.URL.Path)
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// withAuth validates the bearer token and stashes the claims in the context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.authenticate(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	claimsKey    contextKey = "claims"
)

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
