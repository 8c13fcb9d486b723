package hubspot

import (
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

func init() {
	providers.Register(providers.Registration{
		Info: providers.Info{
			Type:        models.ProviderTypeHubSpot,
			DisplayName: "HubSpot",
			Description: "HubSpot CRM Contacts and Tickets",
		},
		Factory: func(cfg *models.IntegrationConfig, logger *zap.Logger) (providers.Provider, error) {
			hsCfg, err := FromConfig(cfg)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg.ProviderName, hsCfg, cfg.FieldMappings, logger), nil
		},
	})
}
