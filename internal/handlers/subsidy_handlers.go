package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"ev-dashboard/internal/repository"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// SubsidyHandler handles subsidy, contact and subsidy-FAQ endpoints
type SubsidyHandler struct {
	base
	service *services.SubsidyService
}

// NewSubsidyHandler creates a new subsidy handler
func NewSubsidyHandler(service *services.SubsidyService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SubsidyHandler {
	return &SubsidyHandler{
		base:    base{logger: logger, metrics: metricsCollector},
		service: service,
	}
}

// ListRegions handles GET /api/subsidies/regions
func (h *SubsidyHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	regions, err := h.service.ListRegions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.sendServiceError(w, r, "/api/subsidies/regions", "[API_LIST_REGIONS_ERROR] Failed to list region subsidies",
			"failed to retrieve region subsidies", err)
		return
	}

	h.sendJSON(w, paginate(regions, page, limit), http.StatusOK)
}

// ModelOptions handles GET /api/subsidies/models/options
func (h *SubsidyHandler) ModelOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := services.ModelSelection{
		RegionName:   q.Get("region"),
		VehicleType:  q.Get("vehicle_type"),
		Manufacturer: q.Get("manufacturer"),
	}

	opts, err := h.service.ModelOptions(r.Context(), sel)
	if err != nil {
		h.sendServiceError(w, r, "/api/subsidies/models/options", "[API_MODEL_OPTIONS_ERROR] Failed to resolve model options",
			"failed to retrieve model options", err)
		return
	}

	h.sendJSON(w, opts, http.StatusOK)
}

// ModelDetail handles GET /api/subsidies/models/detail
func (h *SubsidyHandler) ModelDetail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := repository.ModelKey{
		RegionName:   q.Get("region"),
		VehicleType:  q.Get("vehicle_type"),
		Manufacturer: q.Get("manufacturer"),
		ModelName:    q.Get("model"),
	}

	detail, err := h.service.ModelDetail(r.Context(), key)
	if err != nil {
		h.sendServiceError(w, r, "/api/subsidies/models/detail", "[API_MODEL_DETAIL_ERROR] Failed to get model subsidy",
			"failed to retrieve model subsidy", err)
		return
	}

	h.sendJSON(w, detail, http.StatusOK)
}

// ListContacts handles GET /api/contacts
func (h *SubsidyHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)

	contacts, err := h.service.ListContacts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.sendServiceError(w, r, "/api/contacts", "[API_LIST_CONTACTS_ERROR] Failed to list contacts",
			"failed to retrieve contacts", err)
		return
	}

	h.sendJSON(w, paginate(contacts, page, limit), http.StatusOK)
}

// SubsidyFAQ handles GET /api/subsidies/faq
func (h *SubsidyHandler) SubsidyFAQ(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SubsidyFAQ(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		h.sendServiceError(w, r, "/api/subsidies/faq", "[API_SUBSIDY_FAQ_ERROR] Failed to list subsidy faq",
			"failed to retrieve subsidy faq", err)
		return
	}

	h.sendJSON(w, result, http.StatusOK)
}

// RegisterRoutes registers all subsidy API routes
func (h *SubsidyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/subsidies/regions", h.ListRegions).Methods("GET")
	router.HandleFunc("/api/subsidies/models/options", h.ModelOptions).Methods("GET")
	router.HandleFunc("/api/subsidies/models/detail", h.ModelDetail).Methods("GET")
	router.HandleFunc("/api/subsidies/faq", h.SubsidyFAQ).Methods("GET")
	router.HandleFunc("/api/contacts", h.ListContacts).Methods("GET")
}
