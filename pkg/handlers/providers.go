package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/providers"
	"github.com/kindredhq/kindred-engine/pkg/services"
)

// ProviderInfoResponse describes the configured providers plus the adapter
// types this build knows how to construct.
type ProviderInfoResponse struct {
	services.ProviderInfo
	RegisteredTypes []providers.Info `json:"registered_types"`
}

// ProvidersHealthResponse aggregates per-provider connection probes. Status
// is "ok" only when every provider probe succeeded; a partial outage reports
// "degraded" so callers can tell shrunken results from healthy ones.
type ProvidersHealthResponse struct {
	Status    string                                `json:"status"`
	Providers map[string]providers.ConnectionStatus `json:"providers"`
}

// ProvidersHandler exposes provider discovery and health endpoints.
type ProvidersHandler struct {
	service services.CustomerDataService
	logger  *zap.Logger
}

// NewProvidersHandler creates a new ProvidersHandler.
func NewProvidersHandler(service services.CustomerDataService, logger *zap.Logger) *ProvidersHandler {
	return &ProvidersHandler{service: service, logger: logger}
}

// RegisterRoutes registers the provider routes on the given mux.
func (h *ProvidersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/providers", h.Info)
	mux.HandleFunc("GET /api/providers/health", h.Health)
}

// Info handles GET /api/providers.
func (h *ProvidersHandler) Info(w http.ResponseWriter, r *http.Request) {
	response := ProviderInfoResponse{
		ProviderInfo:    h.service.ProviderInfo(),
		RegisteredTypes: providers.Registered(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode provider info response", zap.Error(err))
	}
}

// Health handles GET /api/providers/health. The endpoint itself never
// fails; each provider entry carries its own outcome.
func (h *ProvidersHandler) Health(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.TestAllConnections(r.Context())

	status := "ok"
	for _, probe := range statuses {
		if probe.Status != providers.StatusSuccess {
			status = "degraded"
			break
		}
	}

	response := ProvidersHealthResponse{Status: status, Providers: statuses}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode provider health response", zap.Error(err))
	}
}
