package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labring/sunmi-print-server/pkg/handlers"
	"github.com/labring/sunmi-print-server/pkg/handlers/action"
	"github.com/labring/sunmi-print-server/pkg/handlers/view"
	"github.com/labring/sunmi-print-server/pkg/metrics"
	"github.com/labring/sunmi-print-server/pkg/middleware"
	"github.com/labring/sunmi-print-server/pkg/printer"
	"github.com/labring/sunmi-print-server/pkg/router"
)

const readinessTimeout = 2 * time.Second

// routeConfig defines route configuration
type routeConfig struct {
	Method      string
	Pattern     string
	Handler     http.Handler
	RateLimited bool
}

// registerRoutes registers all routes using configuration
func (s *Server) registerRoutes(r *router.Router, middlewareChain, rateLimit middleware.Middleware) {
	healthHandler := handlers.NewHealthHandler()
	if pinger, ok := s.driver.(printer.Pinger); ok {
		healthHandler.AddCheck("printer", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer cancel()
			return pinger.Ping(ctx)
		})
	}

	actionHandler := action.NewActionHandler(s.orchestrator, s.state)
	viewHandler := view.NewViewHandler(s.state)

	routes := []routeConfig{
		// Health endpoints
		{"GET", "/health", http.HandlerFunc(healthHandler.HealthCheck), false},
		{"GET", "/health/ready", http.HandlerFunc(healthHandler.ReadinessCheck), false},

		// Metrics
		{"GET", "/metrics", metrics.Handler(s.registry), false},

		// Text input
		{"GET", "/api/v1/input", http.HandlerFunc(viewHandler.GetInput), false},
		{"POST", "/api/v1/input", http.HandlerFunc(viewHandler.SetInput), false},

		// Printer actions
		{"POST", "/api/v1/actions/print-custom", http.HandlerFunc(actionHandler.PrintCustom), true},
		{"POST", "/api/v1/actions/print-test", http.HandlerFunc(actionHandler.PrintTest), true},
		{"POST", "/api/v1/actions/printer-info", http.HandlerFunc(actionHandler.PrinterInfo), true},

		// Activity log and device-info modal
		{"GET", "/api/v1/logs", http.HandlerFunc(viewHandler.GetLogs), false},
		{"GET", "/api/v1/modal", http.HandlerFunc(viewHandler.GetModal), false},
		{"POST", "/api/v1/modal/dismiss", http.HandlerFunc(viewHandler.DismissModal), false},

		// WebSocket endpoint
		{"GET", "/ws", http.HandlerFunc(s.websocket.HandleWebSocket), false},
	}

	for _, route := range routes {
		slog.Debug("Registering route",
			slog.String("method", route.Method),
			slog.String("pattern", route.Pattern),
			slog.Bool("rate_limited", route.RateLimited),
		)

		handler := route.Handler
		if route.RateLimited {
			handler = rateLimit(handler)
		}
		r.Handle(route.Method, route.Pattern, middlewareChain(handler))
	}
}
