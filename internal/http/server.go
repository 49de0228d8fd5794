// Package http exposes the donation ledger as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"monthlyaid/internal/auth"
	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"
	"monthlyaid/internal/payment"
	"monthlyaid/internal/services"
)

type Server struct {
	http.Server
	store         ledger.Store
	donations     *services.DonationService
	beneficiaries *services.BeneficiaryService
	payments      *payment.Client
	tokens        *auth.TokenIssuer
	rateLimiter   *rateLimiter
	shutdownOnce  sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, store ledger.Store, donations *services.DonationService, beneficiaries *services.BeneficiaryService, payments *payment.Client, tokens *auth.TokenIssuer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:         store,
		donations:     donations,
		beneficiaries: beneficiaries,
		payments:      payments,
		tokens:        tokens,
		rateLimiter:   newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/signup", s.withMiddleware(s.handleSignup))
	mux.HandleFunc("POST /api/login", s.withMiddleware(s.handleLogin))

	mux.HandleFunc("POST /api/donations/anonymous", s.withMiddleware(s.handleRecordAnonymous))
	mux.HandleFunc("POST /api/donations", s.withMiddleware(s.handleRecordForDonor))
	mux.HandleFunc("POST /api/donations/log", s.withMiddleware(s.handleLogDonation))
	mux.HandleFunc("GET /api/donations/recent", s.withMiddleware(s.handleRecentDonations))

	mux.HandleFunc("GET /api/months/current", s.withMiddleware(s.handleCurrentMonthlyTotal))
	mux.HandleFunc("GET /api/months/{key}", s.withMiddleware(s.handleMonthlyTotal))

	mux.HandleFunc("POST /api/payments/order", s.withMiddleware(s.handleCreatePaymentOrder))

	mux.HandleFunc("GET /api/villages", s.withMiddleware(s.handleListVillages))
	mux.HandleFunc("POST /api/villages/seed", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleSeedVillages)))
	mux.HandleFunc("POST /api/villages/import", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleImportVillages)))
	mux.HandleFunc("PUT /api/villages/{id}/status", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleUpdateVillageStatus)))

	mux.HandleFunc("POST /api/summaries", s.withMiddleware(s.requireRole(auth.RoleVillageAdmin, s.handleSummarize)))

	mux.HandleFunc("POST /api/beneficiaries", s.withMiddleware(s.requireRole(auth.RoleVillageAdmin, s.handleSubmitBeneficiary)))
	mux.HandleFunc("GET /api/beneficiaries", s.withMiddleware(s.handleListBeneficiaries))
	mux.HandleFunc("GET /api/beneficiaries/{id}", s.withMiddleware(s.handleGetBeneficiary))
	mux.HandleFunc("POST /api/beneficiaries/{id}/decide", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleDecideBeneficiary)))
	mux.HandleFunc("DELETE /api/beneficiaries/{id}", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleDeleteBeneficiary)))
	mux.HandleFunc("PUT /api/beneficiaries/{id}/featured", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleSetBeneficiaryFeatured)))

	mux.HandleFunc("GET /api/donors/featured", s.withMiddleware(s.handleFeaturedDonors))
	mux.HandleFunc("GET /api/donors/{id}", s.withMiddleware(s.handleGetDonor))
	mux.HandleFunc("PUT /api/donors/{id}/featured", s.withMiddleware(s.requireRole(auth.RoleAdmin, s.handleSetDonorFeatured)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
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

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Apply rate limiting to mutating requests
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireRole verifies the bearer token and checks its role before calling
// the handler. The verified principal is placed on the request context.
func (s *Server) requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.tokens.FromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if p.Role != role {
			s.writeError(w, r, core.Authorizationf("role %s required", role))
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next(w, r.WithContext(ctx))
	}
}

type requestIDKey struct{}
type principalKey struct{}

func principalFrom(r *http.Request) (auth.Principal, bool) {
	p, ok := r.Context().Value(principalKey{}).(auth.Principal)
	return p, ok
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrExternalService):
		status = http.StatusBadGateway
	case errors.Is(err, core.ErrPersistence):
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "status", status, "error", err)
	} else {
		slog.WarnContext(r.Context(), "Request rejected",
			"method", r.Method, "url", r.URL.Path, "status", status, "error", err)
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.Validationf("invalid request body: %v", err)
	}
	return nil
}
