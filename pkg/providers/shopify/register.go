package shopify

import (
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

func init() {
	providers.Register(providers.Registration{
		Info: providers.Info{
			Type:        models.ProviderTypeShopify,
			DisplayName: "Shopify",
			Description: "Shopify Admin API customers and orders",
		},
		Factory: func(cfg *models.IntegrationConfig, logger *zap.Logger) (providers.Provider, error) {
			shopCfg, err := FromConfig(cfg)
			if err != nil {
				return nil, err
			}
			return NewAdapter(cfg.ProviderName, shopCfg, cfg.FieldMappings, logger), nil
		},
	})
}
