// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handlerapi "github.com/newthinker/sigma/internal/api/handler/api"
	"github.com/newthinker/sigma/internal/api/middleware"
	"github.com/newthinker/sigma/internal/app"
	"github.com/newthinker/sigma/internal/metrics"
	"github.com/newthinker/sigma/internal/storage/signal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for SIGMA
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies are the components the routes are served from.
type Dependencies struct {
	Engine      handlerapi.SignalGenerator
	App         *app.App
	SignalStore signal.Store
	Metrics     *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("signal engine is required")
	}
	if deps.SignalStore == nil {
		deps.SignalStore = signal.NewMemoryStore(1000)
	}

	s := &Server{
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes(cfg, deps)

	var handler http.Handler = s.mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	v1 := http.NewServeMux()

	signals := handlerapi.NewSignalsHandler(deps.SignalStore)
	generate := handlerapi.NewGenerateHandler(deps.Engine)
	v1.HandleFunc("GET /api/v1/signals", signals.List)
	v1.HandleFunc("GET /api/v1/signals/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		signals.GetByID(w, r, r.PathValue("id"))
	})
	v1.HandleFunc("GET /api/v1/signals/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		generate.Get(w, r, r.PathValue("symbol"))
	})
	v1.HandleFunc("POST /api/v1/signals/generate", generate.Generate)
	v1.HandleFunc("POST /api/v1/signals/batch", generate.Batch)

	if deps.App != nil {
		watchlist := handlerapi.NewWatchlistHandler(deps.App)
		analysis := handlerapi.NewAnalysisHandler(deps.App)
		v1.HandleFunc("GET /api/v1/watchlist", watchlist.List)
		v1.HandleFunc("POST /api/v1/watchlist", watchlist.Add)
		v1.HandleFunc("DELETE /api/v1/watchlist/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			watchlist.Remove(w, r, r.PathValue("symbol"))
		})
		v1.HandleFunc("POST /api/v1/watchlist/run", analysis.Trigger)
		v1.HandleFunc("GET /api/v1/watchlist/signals", analysis.Latest)
	}

	s.mux.Handle("/api/v1/", middleware.APIKeyAuth(cfg.APIKey)(v1))
}

// Handler returns the root handler with middleware applied.
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
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
