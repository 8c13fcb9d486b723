package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
	"github.com/kindredhq/kindred-engine/pkg/services"
)

// defaultSearchLimit bounds search responses when the caller does not ask
// for a specific page size.
const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// SearchResponse wraps search results for the frontend.
type SearchResponse struct {
	Customers []*models.CustomerRecord `json:"customers"`
	Count     int                      `json:"count"`
}

// HistoryResponse wraps a customer's interaction history.
type HistoryResponse struct {
	CustomerID string               `json:"customer_id"`
	History    []models.Interaction `json:"history"`
	Count      int                  `json:"count"`
}

// ResolveRequest is the POST /api/customers/resolve body: look the customer
// up, creating from fallback_data on a miss.
type ResolveRequest struct {
	Identifier     string         `json:"identifier"`
	IdentifierType string         `json:"identifier_type"`
	FallbackData   map[string]any `json:"fallback_data,omitempty"`
}

// CustomersHandler exposes customer lookup, write, and search endpoints over
// the data manager.
type CustomersHandler struct {
	service services.CustomerDataService
	logger  *zap.Logger
}

// NewCustomersHandler creates a new CustomersHandler.
func NewCustomersHandler(service services.CustomerDataService, logger *zap.Logger) *CustomersHandler {
	return &CustomersHandler{service: service, logger: logger}
}

// RegisterRoutes registers the customer routes on the given mux.
func (h *CustomersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/customers", h.Get)
	mux.HandleFunc("POST /api/customers", h.Create)
	mux.HandleFunc("PUT /api/customers/{id}", h.Update)
	mux.HandleFunc("GET /api/customers/search", h.Search)
	mux.HandleFunc("GET /api/customers/{id}/history", h.History)
	mux.HandleFunc("POST /api/customers/resolve", h.Resolve)
}

// Get handles GET /api/customers?identifier=...&type=id|email|phone&provider=...
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_identifier", "identifier query parameter is required")
		return
	}

	identifierType := r.URL.Query().Get("type")
	if identifierType == "" {
		identifierType = services.IdentifierID
	}

	record, err := h.service.Get(r.Context(), identifier, identifierType, r.URL.Query().Get("provider"))
	if err != nil {
		h.writeCustomerError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, record); err != nil {
		h.logger.Error("Failed to encode customer response", zap.Error(err))
	}
}

// Create handles POST /api/customers. The body is a flat JSON object of
// customer fields; an optional provider query parameter targets a specific
// provider instead of the primary.
func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "request body must be a JSON object")
		return
	}

	record, err := h.service.Create(r.Context(), data, r.URL.Query().Get("provider"))
	if err != nil {
		h.writeCustomerError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, record); err != nil {
		h.logger.Error("Failed to encode customer response", zap.Error(err))
	}
}

// Update handles PUT /api/customers/{id}. The body is a full customer
// record; the path id wins over any id in the body.
func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var record models.CustomerRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "request body must be a customer record")
		return
	}
	record.CustomerID = r.PathValue("id")

	if !h.service.Update(r.Context(), &record, r.URL.Query().Get("provider")) {
		_ = ErrorResponse(w, http.StatusBadGateway, "update_failed", "no provider accepted the update")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"updated": true, "customer_id": record.CustomerID}); err != nil {
		h.logger.Error("Failed to encode update response", zap.Error(err))
	}
}

// Search handles GET /api/customers/search?q=...&limit=...&provider=...
func (h *CustomersHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxSearchLimit)
	}

	customers := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit, r.URL.Query().Get("provider"))

	response := SearchResponse{Customers: customers, Count: len(customers)}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode search response", zap.Error(err))
	}
}

// History handles GET /api/customers/{id}/history?provider=...
func (h *CustomersHandler) History(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("id")

	history := h.service.History(r.Context(), customerID, r.URL.Query().Get("provider"))

	response := HistoryResponse{CustomerID: customerID, History: history, Count: len(history)}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode history response", zap.Error(err))
	}
}

// Resolve handles POST /api/customers/resolve: get-or-create.
func (h *CustomersHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "request body must be a resolve request")
		return
	}
	if req.Identifier == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_identifier", "identifier is required")
		return
	}
	if req.IdentifierType == "" {
		req.IdentifierType = services.IdentifierEmail
	}

	record, err := h.service.GetOrCreate(r.Context(), req.Identifier, req.IdentifierType, req.FallbackData)
	if err != nil {
		h.writeCustomerError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, record); err != nil {
		h.logger.Error("Failed to encode customer response", zap.Error(err))
	}
}

// writeCustomerError maps service errors onto HTTP statuses. A miss is an
// expected outcome, not a server failure; an unreachable provider on a write
// path is a gateway problem.
func (h *CustomersHandler) writeCustomerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "customer not found")
	case errors.Is(err, apperrors.ErrInvalidData):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_data", err.Error())
	case errors.Is(err, apperrors.ErrNoProviderAvailable):
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "no_provider", "no data provider available")
	case providers.IsConnectionError(err):
		h.logger.Error("Provider request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "provider_error", "provider request failed")
	default:
		h.logger.Error("Customer request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
