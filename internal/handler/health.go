package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler provides liveness and readiness endpoints
type HealthHandler struct {
	startTime time.Time
	version   string
	ready     func() error
}

// NewHealthHandler creates a health handler. The ready probe is consulted by
// the readiness endpoint; a nil probe means always ready.
func NewHealthHandler(version string, ready func() error) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		ready:     ready,
	}
}

// LivenessHandler handles GET /health/live
func (h *HealthHandler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
	})
}

// ReadinessHandler handles GET /health/ready
func (h *HealthHandler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "not_ready",
				"reason":    err.Error(),
				"timestamp": time.Now().UTC(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
	})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a standardized JSON error response
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]interface{}{
		"error":     message,
		"code":      status,
		"timestamp": time.Now().UTC(),
	})
}
