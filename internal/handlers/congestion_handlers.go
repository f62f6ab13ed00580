package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"ev-dashboard/internal/congestion"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// CongestionHandler handles charging congestion endpoints
type CongestionHandler struct {
	base
	service *services.CongestionService
}

// NewCongestionHandler creates a new congestion handler
func NewCongestionHandler(service *services.CongestionService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CongestionHandler {
	return &CongestionHandler{
		base:    base{logger: logger, metrics: metricsCollector},
		service: service,
	}
}

// TableResponse is the classified hourly table with its cut points
type TableResponse struct {
	ChargeType string                           `json:"charge_type,omitempty"`
	Rows       congestion.Table                 `json:"rows"`
	Thresholds map[string]congestion.Thresholds `json:"thresholds"`
}

// GetTable handles GET /api/congestion
func (h *CongestionHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chargeType := r.URL.Query().Get("charge_type")

	table, err := h.service.Table(ctx, chargeType)
	if err != nil {
		h.sendServiceError(w, r, "/api/congestion", "[API_CONGESTION_TABLE_ERROR] Failed to build congestion table",
			"failed to build congestion table", err)
		return
	}

	thresholds := table.Thresholds()
	if table == nil {
		table = congestion.Table{}
	}

	h.sendJSON(w, TableResponse{ChargeType: chargeType, Rows: table, Thresholds: thresholds}, http.StatusOK)
}

// GetCategories handles GET /api/congestion/categories
func (h *CongestionHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "/api/congestion/categories", "[API_CONGESTION_CATEGORIES_ERROR] Failed to list charge types",
			"failed to build congestion table", err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	h.sendJSON(w, map[string][]string{"charge_types": categories}, http.StatusOK)
}

// GetCurrent handles GET /api/congestion/current
func (h *CongestionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var hour *int
	if raw := q.Get("hour"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.metrics.RecordAPIError("validation_error", "/api/congestion/current")
			h.sendError(w, "invalid hour, expected integer between 0 and 23", http.StatusBadRequest)
			return
		}
		hour = &v
	}

	current, err := h.service.Current(r.Context(), q.Get("charge_type"), hour)
	if err != nil {
		h.sendServiceError(w, r, "/api/congestion/current", "[API_CONGESTION_CURRENT_ERROR] Failed to look up congestion",
			"failed to look up congestion", err)
		return
	}

	h.sendJSON(w, current, http.StatusOK)
}

// GetChart handles GET /api/congestion/chart.png
func (h *CongestionHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	// render fully before writing so failures can still become JSON errors
	var buf bytes.Buffer
	if err := h.service.Chart(r.Context(), &buf, r.URL.Query().Get("charge_type")); err != nil {
		h.sendServiceError(w, r, "/api/congestion/chart.png", "[API_CONGESTION_CHART_ERROR] Failed to render chart",
			"failed to render chart", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// RegisterRoutes registers all congestion API routes
func (h *CongestionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/congestion", h.GetTable).Methods("GET")
	router.HandleFunc("/api/congestion/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/api/congestion/current", h.GetCurrent).Methods("GET")
	router.HandleFunc("/api/congestion/chart.png", h.GetChart).Methods("GET")
}
