package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

// AdminHandler exposes the gateway's diagnostics and control surface.
// Breaker states, fast-path cache contents, and call metrics are all
// reachable here without going through the dispatch router.
type AdminHandler struct {
	gw     *gateway.Gateway
	logger *logger.Logger
}

// NewAdminHandler creates a new admin handler over the gateway context
func NewAdminHandler(gw *gateway.Gateway, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		gw:     gw,
		logger: log,
	}
}

// Register wires the admin routes onto the given subrouter
func (h *AdminHandler) Register(r *mux.Router) {
	r.HandleFunc("/breakers", h.ListBreakersHandler).Methods(http.MethodGet)
	r.HandleFunc("/breakers/reset", h.ResetBreakersHandler).Methods(http.MethodPost)
	r.HandleFunc("/breakers/{name}", h.GetBreakerHandler).Methods(http.MethodGet)
	r.HandleFunc("/fastpath", h.FastPathStatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/fastpath/clear", h.ClearFastPathHandler).Methods(http.MethodPost)
	r.HandleFunc("/fastpath/enable", h.EnableFastPathHandler).Methods(http.MethodPost)
	r.HandleFunc("/fastpath/disable", h.DisableFastPathHandler).Methods(http.MethodPost)
	r.HandleFunc("/metrics", h.MetricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/metrics/reset", h.ResetMetricsHandler).Methods(http.MethodPost)
}

// ListBreakersHandler handles GET /admin/breakers
func (h *AdminHandler) ListBreakersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    h.gw.Breakers.Count(),
		"breakers": h.gw.Breakers.AllStates(),
	})
}

// GetBreakerHandler handles GET /admin/breakers/{name}
func (h *AdminHandler) GetBreakerHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cb, ok := h.gw.Breakers.Lookup(name)
	if !ok {
		writeError(w, "no circuit breaker named "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cb.Snapshot())
}

// ResetBreakersHandler handles POST /admin/breakers/reset
func (h *AdminHandler) ResetBreakersHandler(w http.ResponseWriter, r *http.Request) {
	h.gw.Breakers.ResetAll()
	h.logger.Info("All circuit breakers reset via admin API")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reset": h.gw.Breakers.Count(),
	})
}

// FastPathStatsHandler handles GET /admin/fastpath
func (h *AdminHandler) FastPathStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.gw.FastPath.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":             stats.Enabled,
		"size":                stats.Size,
		"cached_keys":         stats.CachedKeys,
		"promotion_threshold": h.gw.Router.PromotionThreshold(),
		"resolutions":         h.gw.Router.ResolutionCount(),
	})
}

// ClearFastPathHandler handles POST /admin/fastpath/clear.
// Clearing evicts cached handlers but leaves call counters alone, so hot
// keys re-promote on their next dispatch.
func (h *AdminHandler) ClearFastPathHandler(w http.ResponseWriter, r *http.Request) {
	cleared := h.gw.FastPath.Clear()
	h.logger.WithField("cleared", cleared).Info("Fast-path cache cleared via admin API")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": cleared,
	})
}

// EnableFastPathHandler handles POST /admin/fastpath/enable
func (h *AdminHandler) EnableFastPathHandler(w http.ResponseWriter, r *http.Request) {
	h.gw.FastPath.Enable()
	writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": true})
}

// DisableFastPathHandler handles POST /admin/fastpath/disable
func (h *AdminHandler) DisableFastPathHandler(w http.ResponseWriter, r *http.Request) {
	h.gw.FastPath.Disable()
	writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
}

// MetricsHandler handles GET /admin/metrics
func (h *AdminHandler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.Metrics.GetStats())
}

// ResetMetricsHandler handles POST /admin/metrics/reset
func (h *AdminHandler) ResetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	h.gw.Metrics.Reset()
	h.gw.Router.ResetCounters()
	writeJSON(w, http.StatusOK, map[string]interface{}{"reset": true})
}
