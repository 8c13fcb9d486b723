package mssql

import (
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

func init() {
	providers.Register(providers.Registration{
		Info: providers.Info{
			Type:        models.ProviderTypeMSSQL,
			DisplayName: "SQL Server",
			Description: "SQL Server 2019+, Azure SQL Database customers table",
		},
		Factory: func(cfg *models.IntegrationConfig, logger *zap.Logger) (providers.Provider, error) {
			msCfg, err := FromConfig(cfg)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg.ProviderName, msCfg, cfg.FieldMappings, logger), nil
		},
	})
}
