package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ev-dashboard/internal/cache"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AdminHandler serves health and cache administration endpoints
type AdminHandler struct {
	base
	db     HealthChecker
	caches []cache.Invalidator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db HealthChecker, caches []cache.Invalidator, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AdminHandler {
	return &AdminHandler{
		base:   base{logger: logger, metrics: metricsCollector},
		db:     db,
		caches: caches,
	}
}

// HealthCheck handles GET /health
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"database":  "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_DEGRADED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "degraded"
		status["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

// InvalidateResponse lists the caches that were cleared
type InvalidateResponse struct {
	Invalidated []string `json:"invalidated"`
}

// InvalidateCaches handles POST /api/admin/cache/invalidate. An optional
// cache query parameter limits invalidation to one named cache.
func (h *AdminHandler) InvalidateCaches(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("cache")

	resp := InvalidateResponse{Invalidated: []string{}}
	for _, c := range h.caches {
		if name != "" && c.Name() != name {
			continue
		}
		c.InvalidateAll()
		resp.Invalidated = append(resp.Invalidated, c.Name())
	}

	if name != "" && len(resp.Invalidated) == 0 {
		h.metrics.RecordAPIError("not_found", "/api/admin/cache/invalidate")
		h.sendError(w, "unknown cache: "+name, http.StatusNotFound)
		return
	}

	h.logger.Info(r.Context(), "[CACHE_INVALIDATE] Caches invalidated", logging.Fields{
		"caches": resp.Invalidated,
	})

	h.sendJSON(w, resp, http.StatusOK)
}

// RegisterRoutes registers health and admin routes
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/admin/cache/invalidate", h.InvalidateCaches).Methods("POST")
}
