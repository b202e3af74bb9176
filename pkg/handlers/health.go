package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// Minimal health response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    int64  `json:"uptime"`
	Version   string `json:"version"`
}

// Readiness response with named checks
type ReadinessResponse struct {
	Status    string          `json:"status"`
	Ready     bool            `json:"ready"`
	Timestamp string          `json:"timestamp"`
	Checks    map[string]bool `json:"checks"`
}

// ReadinessFunc reports why a dependency is not ready, or nil
type ReadinessFunc func() error

// HealthHandler handles health check operations
type HealthHandler struct {
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]ReadinessFunc
}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		checks:    make(map[string]ReadinessFunc),
	}
}

// AddCheck registers a readiness check under name
func (h *HealthHandler) AddCheck(name string, check ReadinessFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthCheck returns minimal health information
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Truncate(time.Second).Format(time.RFC3339),
		Uptime:    int64(time.Since(h.startTime).Seconds()),
		Version:   Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadinessCheck runs every registered check
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ready := true
	checks := make(map[string]bool, len(names))
	for _, name := range names {
		if err := h.checks[name](); err != nil {
			slog.Warn("readiness check failed", slog.String("check", name), slog.String("error", err.Error()))
			checks[name] = false
			ready = false
			continue
		}
		checks[name] = true
	}
	h.mu.RUnlock()

	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Ready:     ready,
		Timestamp: time.Now().Truncate(time.Second).Format(time.RFC3339),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}
