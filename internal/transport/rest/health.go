package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a dependency probed by the readiness and health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names a probed dependency. An Optional dependency that fails marks
// the service degraded but keeps it ready.
type Check struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusDown     = "down"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	checks  []Check
	version string
}

// NewHealthHandler creates a HealthHandler probing checks in order.
func NewHealthHandler(version string, checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
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
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    statusOK,
		Timestamp: time.Now(),
	})
}

// Ready is the readiness probe: 503 only when a required dependency is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status, _ := h.probe(r.Context())
	writeJSON(w, statusCode(status), HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
	})
}

// Health is the full health check with per-dependency latency and version.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, components := h.probe(r.Context())
	writeJSON(w, statusCode(status), HealthResponse{
		Status:     status,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	})
}

func (h *HealthHandler) probe(ctx context.Context) (string, map[string]CompStatus) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	overall := statusOK
	components := make(map[string]CompStatus, len(h.checks))
	for _, c := range h.checks {
		start := time.Now()
		if err := c.Pinger.Ping(ctx); err != nil {
			components[c.Name] = CompStatus{Status: statusDown}
			switch {
			case !c.Optional:
				overall = statusDown
			case overall == statusOK:
				overall = statusDegraded
			}
			continue
		}
		components[c.Name] = CompStatus{Status: statusOK, Latency: time.Since(start).String()}
	}
	return overall, components
}

func statusCode(status string) int {
	if status == statusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
