package shopify

import (
	"fmt"
	"strings"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// DefaultAPIVersion is the Shopify Admin API version requests are issued
// against unless the integration overrides it.
const DefaultAPIVersion = "2024-01"

// Config contains Shopify-specific connection options. Authentication is an
// Admin API access token sent in the X-Shopify-Access-Token header.
type Config struct {
	BaseURL     string
	AccessToken string
}

// FromConfig extracts Shopify settings from an integration config. The shop
// domain lives in custom_config and determines the API host; api_endpoint
// overrides the host outright when set.
func FromConfig(cfg *models.IntegrationConfig) (*Config, error) {
	out := &Config{
		BaseURL:     cfg.APIEndpoint,
		AccessToken: cfg.APIKey,
	}

	if out.BaseURL == "" {
		shopDomain := cfg.CustomString("shop_domain", "")
		if shopDomain == "" {
			return nil, fmt.Errorf("shopify: shop_domain (or api_endpoint) is required")
		}
		version := cfg.CustomString("api_version", DefaultAPIVersion)
		out.BaseURL = fmt.Sprintf("https://%s/admin/api/%s", shopDomain, version)
	}
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")

	if out.AccessToken == "" {
		return nil, fmt.Errorf("shopify: api_key (Admin API access token) is required")
	}
	return out, nil
}
