package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ev-dashboard/internal/models"
	"ev-dashboard/internal/repository"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const (
	defaultPage  = 1
	defaultLimit = 100
	maxLimit     = 1000
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// base carries what every handler needs to log and respond
type base struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// sendJSON sends a JSON response
func (h *base) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *base) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// sendServiceError maps service errors onto HTTP statuses. Anything not
// recognised is logged and reported as 500 with a generic message.
func (h *base) sendServiceError(w http.ResponseWriter, r *http.Request, endpoint, tag, message string, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *repository.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr),
		errors.Is(err, services.ErrUnknownBrand),
		errors.Is(err, services.ErrNoCongestionData):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), tag, logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, message, http.StatusInternalServerError)
	}
}

// parsePagination reads page and limit, falling back to 1 and 100
func parsePagination(r *http.Request) (page, limit int) {
	page, limit = defaultPage, defaultLimit

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	return page, limit
}

// paginate slices items for the requested page
func paginate[T any](items []T, page, limit int) PaginatedResponse {
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return PaginatedResponse{
		Data:       items[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}
