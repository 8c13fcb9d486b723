package hubspot

import (
	"fmt"
	"strings"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// DefaultBaseURL is the public HubSpot API host. Tests and private proxies
// override it through api_endpoint.
const DefaultBaseURL = "https://api.hubapi.com"

// Config contains HubSpot-specific connection options. Authentication is a
// private-app access token sent as a bearer token.
type Config struct {
	BaseURL     string
	AccessToken string
}

// FromConfig extracts HubSpot settings from an integration config.
func FromConfig(cfg *models.IntegrationConfig) (*Config, error) {
	out := &Config{
		BaseURL:     cfg.APIEndpoint,
		AccessToken: cfg.APIKey,
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")

	if out.AccessToken == "" {
		return nil, fmt.Errorf("hubspot: api_key (private app access token) is required")
	}
	return out, nil
}
