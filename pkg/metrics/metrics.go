// Package metrics exposes Prometheus metrics for printer sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/labring/sunmi-print-server/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sunmi_print"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// SessionMetrics records printer session outcomes. It implements session.Recorder.
type SessionMetrics struct {
	PhaseOutcomes   *prometheus.CounterVec
	SessionDuration *prometheus.HistogramVec
	SessionsWaiting prometheus.Gauge
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		PhaseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_outcomes_total",
			Help:      "Total number of session phases, by operation, phase and result.",
		}, []string{"operation", "phase", "result"}),
		SessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of printer sessions in seconds, excluding time spent waiting for the device.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		SessionsWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_waiting",
			Help:      "Number of sessions waiting for the printer.",
		}),
	}

	reg.MustRegister(m.PhaseOutcomes, m.SessionDuration, m.SessionsWaiting)
	return m
}

func (m *SessionMetrics) PhaseCompleted(kind session.Kind, phase string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.PhaseOutcomes.WithLabelValues(string(kind), phase, result).Inc()
}

func (m *SessionMetrics) SessionCompleted(kind session.Kind, duration time.Duration) {
	m.SessionDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (m *SessionMetrics) Waiting(delta int) {
	m.SessionsWaiting.Add(float64(delta))
}
