package providers

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/models"
)

// Info describes a registered adapter for discovery surfaces.
type Info struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// Registration contains info plus the factory for creating adapter instances
// from an IntegrationConfig.
type Registration struct {
	Info    Info
	Factory func(cfg *models.IntegrationConfig, logger *zap.Logger) (Provider, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// Registered returns info for all registered adapter types.
func Registered() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Info, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// IsRegistered checks whether an adapter type is available.
func IsRegistered(providerType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[providerType]
	return ok
}

// Build creates an adapter for the config's provider_type. An unregistered
// type is a configuration error, caught when the registry is consulted at
// configuration-load time rather than mid-request.
func Build(cfg *models.IntegrationConfig, logger *zap.Logger) (Provider, error) {
	registryMu.RLock()
	reg, ok := registry[cfg.ProviderType]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownProviderType, cfg.ProviderType)
	}
	return reg.Factory(cfg, logger)
}
