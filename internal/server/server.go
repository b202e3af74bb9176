package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/config"
	"github.com/labring/sunmi-print-server/pkg/console"
	"github.com/labring/sunmi-print-server/pkg/handlers/websocket"
	"github.com/labring/sunmi-print-server/pkg/metrics"
	"github.com/labring/sunmi-print-server/pkg/middleware"
	"github.com/labring/sunmi-print-server/pkg/printer"
	"github.com/labring/sunmi-print-server/pkg/router"
	"github.com/labring/sunmi-print-server/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// publicPaths skip token auth
var publicPaths = []string{"/health", "/health/ready", "/metrics"}

// Server represents the main application server
type Server struct {
	router *router.Router
	config *config.Config

	driver       printer.Driver
	log          *activity.Log
	state        *console.State
	orchestrator *session.Orchestrator
	registry     *prometheus.Registry
	websocket    *websocket.WebSocketHandler
}

// New creates a new server instance using the driver named in cfg
func New(cfg *config.Config) (*Server, error) {
	driver, err := printer.New(printer.Options{
		Kind:        cfg.Driver,
		Addr:        cfg.PrinterAddr,
		PaperWidth:  cfg.PaperWidth,
		SimFailures: cfg.SimFailures,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create printer driver: %w", err)
	}
	return NewWithDriver(cfg, driver)
}

// NewWithDriver creates a new server instance around driver
func NewWithDriver(cfg *config.Config, driver printer.Driver) (*Server, error) {
	// Initialize logging via slog (default is set in main.go)
	slog.Info("Initializing server...",
		slog.String("driver", cfg.Driver),
		slog.Int("log_capacity", cfg.LogCapacity),
		slog.String("phase_timeout", cfg.PhaseTimeout.String()),
	)

	log := activity.New(activity.Options{Capacity: cfg.LogCapacity})
	state := console.NewState(log)
	registry := metrics.NewRegistry()

	orchestrator := session.NewOrchestrator(driver, log, session.Options{
		PhaseTimeout: cfg.PhaseTimeout,
		Presenter:    state,
		Recorder:     metrics.NewSessionMetrics(registry),
	})

	srv := &Server{
		router:       router.NewRouter(),
		config:       cfg,
		driver:       driver,
		log:          log,
		state:        state,
		orchestrator: orchestrator,
		registry:     registry,
		websocket:    websocket.NewWebSocketHandler(log, state, nil),
	}

	if err := srv.setupRoutes(srv.router); err != nil {
		srv.websocket.Close()
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	slog.Info("Server initialized successfully")

	return srv, nil
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ActivityLog returns the activity log shared by every handler
func (s *Server) ActivityLog() *activity.Log {
	return s.log
}

// Cleanup stops the live stream and releases the printer if a session left it connected
func (s *Server) Cleanup() error {
	slog.Info("Performing server cleanup...")

	s.websocket.Close()

	// A failed printer-info fetch leaves the device connected.
	if err := s.driver.Disconnect(context.Background()); err != nil {
		slog.Debug("printer disconnect on cleanup", slog.String("error", err.Error()))
	}

	return nil
}

// setupRoutes configures the router and registers routes
func (s *Server) setupRoutes(r *router.Router) error {
	if s.config.Token == "" {
		return fmt.Errorf("token is required")
	}

	chain := middleware.Chain(
		middleware.Logger(),
		middleware.Recovery(),
		middleware.TokenAuth(s.config.Token, publicPaths),
	)

	limiter := middleware.NewRateLimiter(s.config.RateLimit, s.config.RateBurst)

	s.registerRoutes(r, chain, limiter.Middleware())

	return nil
}
