package models

import (
	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
)

// Provider type discriminators. Adapters register themselves under these in
// the provider registry; an IntegrationConfig naming an unregistered type is
// a configuration error, not a runtime surprise.
const (
	ProviderTypeSalesforce = "salesforce"
	ProviderTypeHubSpot    = "hubspot"
	ProviderTypeZendesk    = "zendesk"
	ProviderTypeShopify    = "shopify"
	ProviderTypePostgreSQL = "postgresql"
	ProviderTypeMSSQL      = "mssql"
)

// IntegrationConfig describes one configured data provider. Credential
// fields are all optional; their semantics are provider-specific.
type IntegrationConfig struct {
	ProviderType string `yaml:"provider_type" json:"provider_type" validate:"required"`
	// ProviderName is the unique key the data manager indexes by.
	ProviderName string `yaml:"provider_name" json:"provider_name" validate:"required"`

	APIEndpoint string `yaml:"api_endpoint" json:"api_endpoint,omitempty"`
	APIKey      string `yaml:"api_key" json:"-"`
	APISecret   string `yaml:"api_secret" json:"-"`
	Username    string `yaml:"username" json:"-"`
	Password    string `yaml:"password" json:"-"`
	DatabaseURL string `yaml:"database_url" json:"-"`

	// CustomConfig holds provider-specific settings (instance_url, subdomain,
	// shop_domain, table_name, ...).
	CustomConfig map[string]any `yaml:"custom_config" json:"custom_config,omitempty"`

	// FieldMappings translates canonical fields to this provider's native
	// field names.
	FieldMappings fieldmap.Mapping `yaml:"field_mappings" json:"field_mappings,omitempty"`

	// Enabled defaults to true when omitted from configuration.
	Enabled *bool `yaml:"enabled" json:"enabled"`
}

// IsEnabled reports whether the integration should be instantiated.
func (c *IntegrationConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CustomString returns a string value from CustomConfig, or fallback when
// absent or not a string.
func (c *IntegrationConfig) CustomString(key, fallback string) string {
	if v, ok := c.CustomConfig[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
