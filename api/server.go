// Package api provides the HTTP API server for scopequote
// Exposes the estimation pipeline, draft quotes, and operational endpoints
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"scope-quote/db/clickhouse"
	"scope-quote/db/postgres"
	"scope-quote/decision/estimation"
	"scope-quote/internal/logging"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Estimator runs one estimation request.
type Estimator interface {
	Process(ctx context.Context, req estimation.Request) *estimation.Result
}

// ResultSink persists a completed run.
type ResultSink interface {
	SaveResult(ctx context.Context, res *estimation.Result) error
}

// QuoteReader loads stored draft quotes.
type QuoteReader interface {
	GetQuote(ctx context.Context, id string) (*estimation.GeneratedQuote, error)
}

// QuoteLister lists stored draft quotes, newest first.
type QuoteLister interface {
	ListDrafts(ctx context.Context, limit int) ([]postgres.QuoteSummary, error)
}

// AuditReader queries persisted audit trails.
type AuditReader interface {
	ListActions(ctx context.Context, trailID string) ([]clickhouse.AuditAction, error)
	Stats(ctx context.Context, since time.Time) (*clickhouse.RunStats, error)
}

// Pinger reports backing-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	estimator  Estimator
	sinks      map[string]ResultSink
	sinkOrder  []string
	quotes     QuoteReader
	lister     QuoteLister
	audit      AuditReader
	pingers    map[string]Pinger
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	config     *Config
}

// Config holds server configuration
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	ShutdownGrace  time.Duration
	MaxRequestSize int64
	CORSOrigins    []string
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 20 * time.Second,
		ShutdownGrace:  10 * time.Second,
		MaxRequestSize: 1 << 20, // 1MB
		CORSOrigins:    []string{"*"},
	}
}

// Option configures a Server.
type Option func(*Server)

// WithSink adds a named persistence collaborator. Sinks run in the order added.
func WithSink(name string, sink ResultSink) Option {
	return func(s *Server) {
		if sink == nil {
			return
		}
		if _, ok := s.sinks[name]; !ok {
			s.sinkOrder = append(s.sinkOrder, name)
		}
		s.sinks[name] = sink
	}
}

// WithQuoteReader enables GET /api/v1/quotes/{id}.
func WithQuoteReader(q QuoteReader) Option {
	return func(s *Server) { s.quotes = q }
}

// WithQuoteLister enables GET /api/v1/quotes.
func WithQuoteLister(l QuoteLister) Option {
	return func(s *Server) { s.lister = l }
}

// WithAuditReader enables the /api/v1/audit endpoints.
func WithAuditReader(a AuditReader) Option {
	return func(s *Server) { s.audit = a }
}

// WithReadinessCheck adds a dependency to /ready.
func WithReadinessCheck(name string, p Pinger) Option {
	return func(s *Server) {
		if p != nil {
			s.pingers[name] = p
		}
	}
}

// WithGatherer exposes metrics from g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

// NewServer creates a new API server
func NewServer(estimator Estimator, config *Config, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Server{
		estimator: estimator,
		sinks:     make(map[string]ResultSink),
		pingers:   make(map[string]Pinger),
		logger:    zap.NewNop(),
		config:    config,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/api/v1/estimate", s.handleEstimate)
	mux.HandleFunc("/api/v1/quotes", s.handleListQuotes)
	mux.HandleFunc("/api/v1/quotes/", s.handleGetQuote)
	mux.HandleFunc("/api/v1/audit/stats", s.handleAuditStats)
	mux.HandleFunc("/api/v1/audit/", s.handleAuditTrail)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Wrap with middleware
	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("API server starting", zap.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown() error {
	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		// Check if origin is allowed
		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.pingers))
	ready := true
	for name, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": checks,
		})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}

// =============================================================================
// ESTIMATE ENDPOINT
// =============================================================================

// EstimateResponse is the estimation result plus persistence outcomes
type EstimateResponse struct {
	*estimation.Result
	PersistenceWarnings []string `json:"persistence_warnings,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Limit request size
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	// Parse request
	var req estimation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if strings.TrimSpace(req.ScopeText) == "" {
		s.jsonError(w, http.StatusBadRequest, "scope_text is required")
		return
	}

	ctx := r.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	result := s.estimator.Process(ctx, req)

	// Persistence is non-fatal
	resp := EstimateResponse{Result: result}
	for _, name := range s.sinkOrder {
		if err := s.sinks[name].SaveResult(ctx, result); err != nil {
			s.logger.Error("failed to persist estimation",
				zap.String("sink", name),
				zap.String("request_id", result.RequestID),
				zap.Error(err),
			)
			resp.PersistenceWarnings = append(resp.PersistenceWarnings, fmt.Sprintf("%s: %v", name, err))
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// =============================================================================
// QUOTE ENDPOINT
// =============================================================================

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.lister == nil {
		s.jsonError(w, http.StatusNotImplemented, "quote storage is not configured")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	drafts, err := s.lister.ListDrafts(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list quotes", zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, "failed to list quotes")
		return
	}
	if drafts == nil {
		drafts = []postgres.QuoteSummary{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"quotes": drafts,
		"count":  len(drafts),
	})
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.quotes == nil {
		s.jsonError(w, http.StatusNotImplemented, "quote storage is not configured")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/quotes/")
	if id == "" || strings.Contains(id, "/") {
		s.jsonError(w, http.StatusBadRequest, "quote id is required")
		return
	}

	quote, err := s.quotes.GetQuote(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load quote", zap.String("quote_id", id), zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, "failed to load quote")
		return
	}
	if quote == nil {
		s.jsonError(w, http.StatusNotFound, "quote not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, quote)
}

// =============================================================================
// AUDIT ENDPOINTS
// =============================================================================

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.audit == nil {
		s.jsonError(w, http.StatusNotImplemented, "audit storage is not configured")
		return
	}

	trailID := strings.TrimPrefix(r.URL.Path, "/api/v1/audit/")
	if trailID == "" || strings.Contains(trailID, "/") {
		s.jsonError(w, http.StatusBadRequest, "trail id is required")
		return
	}

	actions, err := s.audit.ListActions(r.Context(), trailID)
	if err != nil {
		s.logger.Error("failed to load audit trail", zap.String("trail_id", trailID), zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, "failed to load audit trail")
		return
	}
	if len(actions) == 0 {
		s.jsonError(w, http.StatusNotFound, "audit trail not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"trail_id": trailID,
		"actions":  actions,
	})
}

func (s *Server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.audit == nil {
		s.jsonError(w, http.StatusNotImplemented, "audit storage is not configured")
		return
	}

	window := 24 * time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			s.jsonError(w, http.StatusBadRequest, "since must be a positive duration such as 24h")
			return
		}
		window = d
	}

	stats, err := s.audit.Stats(r.Context(), time.Now().Add(-window))
	if err != nil {
		s.logger.Error("failed to load audit stats", zap.Error(err))
		s.jsonError(w, http.StatusInternalServerError, "failed to load audit stats")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"since": window.String(),
		"stats": stats,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
