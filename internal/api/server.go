// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	apihandler "github.com/newthinker/btdesk/internal/api/handler/api"
	"github.com/newthinker/btdesk/internal/api/handler/web"
	"github.com/newthinker/btdesk/internal/api/middleware"
	"github.com/newthinker/btdesk/internal/api/response"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/metrics"
	"github.com/newthinker/btdesk/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	healthTimeout = 3 * time.Second
	sweepInterval = time.Minute
)

// Backend is the backtest service as the server uses it.
type Backend interface {
	apihandler.Backend
	Health(ctx context.Context) error
}

// Server represents the HTTP server for the backtest desk
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	backend    Backend
	sessions   *session.Store
	metrics    *metrics.Registry

	stop     chan struct{}
	stopOnce sync.Once
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	TemplatesDir string
	APIKey       string
	Variant      layout.Variant
	SessionTTL   time.Duration
	MaxSessions  int
	MetricsPath  string // empty disables the endpoint
}

// Dependencies holds the collaborators the server routes to.
type Dependencies struct {
	Backend Backend
	Metrics *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.Variant.Name == "" {
		cfg.Variant = layout.Wide
	}

	mux := http.NewServeMux()

	s := &Server{
		logger:   logger,
		mux:      mux,
		backend:  deps.Backend,
		sessions: session.NewStore(cfg.MaxSessions, cfg.SessionTTL),
		metrics:  deps.Metrics,
		stop:     make(chan struct{}),
	}

	// Set up routes
	if err := s.setupRoutes(cfg); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	var handler http.Handler = mux
	if s.metrics != nil {
		handler = metrics.HTTPMiddleware(s.metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Backtests are not bounded by a client timeout, so neither is the response.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) error {
	ctrl := session.NewController(s.backend, s.logger)
	var recorder apihandler.ValidationRecorder
	if s.metrics != nil {
		ctrl.SetValidationRecorder(s.metrics)
		recorder = s.metrics
	}

	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, s.sessions, ctrl)
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	webHandler.SetVariant(cfg.Variant)
	webHandler.SetLogger(s.logger)

	s.mux.HandleFunc("GET /{$}", webHandler.Index)
	s.mux.HandleFunc("POST /run", webHandler.Run)

	// JSON API
	auth := middleware.APIKeyAuth(cfg.APIKey)
	backtests := apihandler.NewBacktestHandler(s.backend, recorder, s.logger)
	s.mux.Handle("GET /api/v1/backtest/{symbol}", auth(http.HandlerFunc(backtests.Get)))
	s.mux.Handle("GET /api/v1/prices/{symbol}", auth(http.HandlerFunc(backtests.Prices)))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	return nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sweepSessions()

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.stopOnce.Do(func() { close(s.stop) })
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) sweepSessions() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Server) sweepOnce() {
	remaining := s.sessions.Sweep()
	if s.metrics != nil {
		s.metrics.SetSessionsActive(remaining)
	}
	s.logger.Debug("swept sessions", zap.Int("remaining", remaining))
}

// HealthStatus is the body of /api/health.
type HealthStatus struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Sessions int    `json:"sessions"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := HealthStatus{Status: "ok", Backend: "ok", Sessions: s.sessions.Len()}
	if err := s.backend.Health(ctx); err != nil {
		status.Status = "degraded"
		status.Backend = "unreachable"
		status.Error = err.Error()
	}
	response.JSON(w, http.StatusOK, status)
}
