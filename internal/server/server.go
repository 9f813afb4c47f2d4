package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Import for side effects (registers pprof handlers)
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/blend/internal/compositor"
	"github.com/zsiec/blend/internal/config"
	"github.com/zsiec/blend/internal/errors"
	"github.com/zsiec/blend/internal/health"
	"github.com/zsiec/blend/internal/logger"
)

// SessionStatsFunc supplies the current compositing session snapshot
// for the stats API.
type SessionStatsFunc func() compositor.Stats

// Server exposes the service's HTTP surface: health probes, version,
// session statistics and optional debug endpoints.
type Server struct {
	config       *config.ServerConfig
	router       *mux.Router
	httpServer   *http.Server
	logger       *logrus.Logger
	healthMgr    *health.Manager
	errorHandler *errors.ErrorHandler
	stats        SessionStatsFunc
	routesOnce   sync.Once
}

// New creates a new server instance. stats may be nil when no session
// is running; the stats endpoint then returns 404.
func New(cfg *config.ServerConfig, log *logrus.Logger, stats SessionStatsFunc) *Server {
	s := &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		healthMgr:    health.NewManager(log),
		errorHandler: errors.NewErrorHandler(log),
		stats:        stats,
	}

	s.registerHealthCheckers()

	return s
}

// Start runs the server until ctx is canceled, then shuts it down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	go s.healthMgr.StartPeriodicChecks(ctx, 30*time.Second)

	addr := fmt.Sprintf("%s:%d", s.config.ListenAddr, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.WithField("addr", addr).Info("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.routesOnce.Do(s.buildRoutes)
}

func (s *Server) buildRoutes() {
	// Apply global middleware
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(logger.RequestLoggerMiddleware(s.logger))
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.errorHandler.Middleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.corsMiddleware)

	// Health endpoints
	healthHandler := health.NewHandler(s.healthMgr)
	s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods("GET")
	s.router.HandleFunc("/live", healthHandler.HandleLive).Methods("GET")

	// Version endpoint
	s.router.HandleFunc("/version", s.handleVersion).Methods("GET")

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/session", s.handleSessionStats).Methods("GET")
	api.HandleFunc("/session/streams", s.handleStreamStats).Methods("GET")
	api.HandleFunc("/session/streams/{id}", s.handleStreamStat).Methods("GET")

	// Debug endpoints (only if enabled)
	if s.config.DebugEndpoints {
		s.setupDebugEndpoints()
	}

	// 404 handler
	s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
}

// registerHealthCheckers registers the process-level health checkers.
// Session checkers are registered by the caller through Health once a
// session exists.
func (s *Server) registerHealthCheckers() {
	s.healthMgr.Register(health.NewMemoryChecker(2 << 30))
	s.healthMgr.Register(health.NewGoroutineChecker(4096))
}

// setupDebugEndpoints registers debug endpoints like pprof
func (s *Server) setupDebugEndpoints() {
	s.logger.Info("Enabling debug endpoints")

	// pprof registers itself on the default mux; mount it here.
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

// Health returns the health manager so callers can register additional
// checkers.
func (s *Server) Health() *health.Manager {
	return s.healthMgr
}

// GetRouter returns the router for testing.
func (s *Server) GetRouter() *mux.Router {
	s.setupRoutes()
	return s.router
}
