package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// FAQHandler handles manufacturer FAQ endpoints
type FAQHandler struct {
	base
	service *services.FAQService
}

// NewFAQHandler creates a new FAQ handler
func NewFAQHandler(service *services.FAQService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FAQHandler {
	return &FAQHandler{
		base:    base{logger: logger, metrics: metricsCollector},
		service: service,
	}
}

// SearchBrandFAQ handles GET /api/brands/{brand}/faq
func (h *FAQHandler) SearchBrandFAQ(w http.ResponseWriter, r *http.Request) {
	brand := mux.Vars(r)["brand"]

	result, err := h.service.Search(r.Context(), brand, r.URL.Query().Get("q"))
	if err != nil {
		h.sendServiceError(w, r, "/api/brands/{brand}/faq", "[API_BRAND_FAQ_ERROR] Failed to search brand faq",
			"failed to retrieve brand faq", err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// RegisterRoutes registers all FAQ API routes
func (h *FAQHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/brands/{brand}/faq", h.SearchBrandFAQ).Methods("GET")
}
