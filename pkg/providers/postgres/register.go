package postgres

import (
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

func init() {
	providers.Register(providers.Registration{
		Info: providers.Info{
			Type:        models.ProviderTypePostgreSQL,
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+ customers table",
		},
		Factory: func(cfg *models.IntegrationConfig, logger *zap.Logger) (providers.Provider, error) {
			pgCfg, err := FromConfig(cfg)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg.ProviderName, pgCfg, cfg.FieldMappings, logger), nil
		},
	})
}
