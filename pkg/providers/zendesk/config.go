package zendesk

import (
	"fmt"
	"strings"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// Config contains Zendesk-specific connection options. Authentication is
// basic auth with "{email}/token" as the user and the API token as the
// password.
type Config struct {
	BaseURL  string
	Email    string
	APIToken string
}

// FromConfig extracts Zendesk settings from an integration config. The
// account subdomain lives in custom_config and determines the API host;
// api_endpoint overrides the host outright when set.
func FromConfig(cfg *models.IntegrationConfig) (*Config, error) {
	out := &Config{
		BaseURL:  cfg.APIEndpoint,
		Email:    cfg.Username,
		APIToken: cfg.APIKey,
	}

	if out.BaseURL == "" {
		subdomain := cfg.CustomString("subdomain", "")
		if subdomain == "" {
			return nil, fmt.Errorf("zendesk: subdomain (or api_endpoint) is required")
		}
		out.BaseURL = fmt.Sprintf("https://%s.zendesk.com/api/v2", subdomain)
	}
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")

	if out.Email == "" || out.APIToken == "" {
		return nil, fmt.Errorf("zendesk: username (agent email) and api_key (API token) are required")
	}
	return out, nil
}
