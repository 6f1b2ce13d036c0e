// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	apihandler "github.com/newthinker/backtester/internal/api/handler/api"
	"github.com/newthinker/backtester/internal/api/handler/web"
	"github.com/newthinker/backtester/internal/api/response"
	"github.com/newthinker/backtester/internal/metrics"
	"github.com/newthinker/backtester/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the backtester UI
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	TemplatesDir string
	// MetricsPath serves Prometheus metrics when set and a registry is given.
	MetricsPath string
}

// Dependencies holds the components the handlers need.
type Dependencies struct {
	Runner   web.Runner
	Sessions *session.Store
	Metrics  *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			ReadTimeout: 15 * time.Second,
			// no WriteTimeout: a submission waits on the service for as long as it takes
			IdleTimeout: 60 * time.Second,
		},
		logger: logger,
		mux:    mux,
		deps:   deps,
	}

	routes, err := s.setupRoutes(cfg)
	if err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics, routes...)(handler)
	}
	s.httpServer.Handler = metrics.LoggingMiddleware(logger)(handler)

	return s, nil
}

// setupRoutes configures all HTTP routes and returns the fixed paths for
// metric labels.
func (s *Server) setupRoutes(cfg Config) ([]string, error) {
	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, s.deps.Runner, s.deps.Sessions)
	if err != nil {
		return nil, fmt.Errorf("creating web handler: %w", err)
	}
	webHandler.SetLogger(s.logger)

	s.mux.HandleFunc("GET /{$}", webHandler.Index)
	s.mux.HandleFunc("POST /backtest", webHandler.Submit)

	// JSON API routes
	backtestHandler := apihandler.NewBacktestHandler(s.deps.Runner, s.deps.Sessions)
	s.mux.HandleFunc("POST /api/backtests", backtestHandler.Create)
	s.mux.HandleFunc("GET /api/sessions/{id}", backtestHandler.GetSession)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	routes := []string{"/", "/backtest", "/api/backtests", "/api/health"}

	if cfg.MetricsPath != "" && s.deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
		routes = append(routes, cfg.MetricsPath)
	}

	return routes, nil
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.deps.Sessions.Len(),
	})
}
