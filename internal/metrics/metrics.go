// Package metrics exposes Prometheus collectors for the economy service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

const namespace = "hideout"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	economyOps         *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	realtimeReconnects prometheus.Counter
	degenerated        prometheus.Counter
}

// New creates a registry with process and Go collectors plus the service metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		economyOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "economy_operations_total",
			Help:      "Economy operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications emitted by type.",
		}, []string{"type"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open student mirror sessions.",
		}),
		realtimeReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_reconnects_total",
			Help:      "Realtime websocket reconnects.",
		}),
		degenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pets_degenerated_total",
			Help:      "Pets updated by the degeneration check.",
		}),
	}
	reg.MustRegister(m.economyOps, m.notifications, m.activeSessions, m.realtimeReconnects, m.degenerated)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// EconomyOp counts one economy operation; err decides the outcome label.
func (m *Metrics) EconomyOp(op string, err error) {
	if m == nil {
		return
	}
	m.economyOps.WithLabelValues(op, Outcome(err)).Inc()
}

// Notification counts one emitted notification.
func (m *Metrics) Notification(t domain.NotificationType) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(t.String()).Inc()
}

// SessionOpened and SessionClosed track the session gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

// RealtimeReconnect counts one websocket reconnect.
func (m *Metrics) RealtimeReconnect() {
	if m != nil {
		m.realtimeReconnects.Inc()
	}
}

// Degenerated counts pets penalized by the degeneration check.
func (m *Metrics) Degenerated(n int) {
	if m != nil && n > 0 {
		m.degenerated.Add(float64(n))
	}
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientPoints):
		return "insufficient"
	case errors.Is(err, domain.ErrAlreadyOwned), errors.Is(err, domain.ErrNotOwned):
		return "ownership"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
		return "denied"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
