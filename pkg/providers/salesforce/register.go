package salesforce

import (
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

func init() {
	providers.Register(providers.Registration{
		Info: providers.Info{
			Type:        models.ProviderTypeSalesforce,
			DisplayName: "Salesforce",
			Description: "Salesforce CRM Contacts and Cases",
		},
		Factory: func(cfg *models.IntegrationConfig, logger *zap.Logger) (providers.Provider, error) {
			sfCfg, err := FromConfig(cfg)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg.ProviderName, sfCfg, cfg.FieldMappings, logger), nil
		},
	})
}
