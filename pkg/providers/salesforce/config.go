package salesforce

import (
	"fmt"
	"strings"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// DefaultAPIVersion is the Salesforce REST API version requests are issued
// against unless the integration overrides it.
const DefaultAPIVersion = "v58.0"

// Config contains Salesforce-specific connection options. Authentication is
// the OAuth username-password flow; the security token is appended to the
// password when the org requires one.
type Config struct {
	InstanceURL   string
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	SecurityToken string
	APIVersion    string
}

// FromConfig extracts Salesforce settings from an integration config.
// instance_url lives in custom_config (api_endpoint is accepted as a
// fallback); the OAuth client pair maps to api_key/api_secret.
func FromConfig(cfg *models.IntegrationConfig) (*Config, error) {
	out := &Config{
		InstanceURL:   cfg.CustomString("instance_url", cfg.APIEndpoint),
		ClientID:      cfg.APIKey,
		ClientSecret:  cfg.APISecret,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SecurityToken: cfg.CustomString("security_token", ""),
		APIVersion:    cfg.CustomString("api_version", DefaultAPIVersion),
	}

	if out.InstanceURL == "" {
		return nil, fmt.Errorf("salesforce: instance_url is required")
	}
	out.InstanceURL = strings.TrimRight(out.InstanceURL, "/")

	if out.ClientID == "" || out.ClientSecret == "" {
		return nil, fmt.Errorf("salesforce: api_key and api_secret (OAuth client credentials) are required")
	}
	if out.Username == "" || out.Password == "" {
		return nil, fmt.Errorf("salesforce: username and password are required")
	}

	return out, nil
}
