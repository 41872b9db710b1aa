package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to a health check.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	checks  map[string]Pinger
	names   []string
	version string
}

// NewHealthHandler creates a HealthHandler over the named dependency checks.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return &HealthHandler{checks: checks, names: names, version: version}
}

// HealthResponse is the JSON response for /health and /ready.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Live answers liveness checks. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready answers readiness checks: 200 if every dependency answers, 503 if not.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	_, ok := h.check(r.Context())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Health is the full health check with per-component latency and version.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	components, ok := h.check(r.Context())

	status, overall := http.StatusOK, "ok"
	if !ok {
		status, overall = http.StatusServiceUnavailable, "down"
	}

	writeJSON(w, status, HealthResponse{
		Status:     overall,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	})
}

// check pings every dependency concurrently under one deadline.
func (h *HealthHandler) check(ctx context.Context) (map[string]CompStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	results := make([]CompStatus, len(h.names))
	var g errgroup.Group
	for i, name := range h.names {
		g.Go(func() error {
			start := time.Now()
			if err := h.checks[name].Ping(ctx); err != nil {
				results[i] = CompStatus{Status: "down", Error: err.Error()}
				return nil
			}
			results[i] = CompStatus{Status: "ok", Latency: time.Since(start).String()}
			return nil
		})
	}
	_ = g.Wait()

	components := make(map[string]CompStatus, len(h.names))
	ok := true
	for i, name := range h.names {
		components[name] = results[i]
		ok = ok && results[i].Status == "ok"
	}
	return components, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
