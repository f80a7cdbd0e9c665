package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/phishguard/internal/campaign"
	"github.com/foxzi/phishguard/internal/catalog"
	"github.com/foxzi/phishguard/internal/config"
	"github.com/foxzi/phishguard/internal/metrics"
	"github.com/foxzi/phishguard/internal/stats"
	"github.com/foxzi/phishguard/internal/tracker"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	campaigns  *campaign.Manager
	tracker    *tracker.Tracker
	stats      *stats.Aggregator
	catalog    *catalog.Catalog
	config     *config.APIConfig
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(cm *campaign.Manager, tr *tracker.Tracker, ag *stats.Aggregator, cat *catalog.Catalog, cfg *config.APIConfig, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		campaigns: cm,
		tracker:   tr,
		stats:     ag,
		catalog:   cat,
		config:    cfg,
		logger:    logger,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	// Tracking endpoint: this is the link inside the simulation mail, so it
	// must stay reachable without any credentials.
	s.router.Get("/track/{token}", s.handleTrack)

	// Operator routes (auth required)
	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/setup", s.handleSetup)
		r.Post("/campaign/launch", s.handleLaunch)
		r.Get("/campaign/{id}/results", s.handleResults)
		r.Get("/company/{id}/dashboard", s.handleDashboard)
		r.Get("/templates", s.handleTemplates)
	})
}

// Router returns the HTTP handler, for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
