// Package config loads server and business configuration. Configuration
// comes from a YAML file with environment variable overrides; environment
// always wins for fields that support both.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// Config holds all configuration for kindred-engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Business configuration: who the customers are and where they live.
	Business BusinessConfig `yaml:"business"`
}

var validate = validator.New()

// Load reads configuration from path with environment variable overrides,
// applies industry defaults, and validates the result. The version parameter
// is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Business.applyIndustryDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the business configuration: every provider entry must be
// structurally valid, names must be unique, and the primary provider must
// name a configured, enabled integration.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Business.Providers))
	enabled := make(map[string]struct{}, len(c.Business.Providers))

	for i := range c.Business.Providers {
		provider := &c.Business.Providers[i]
		if err := validate.Struct(provider); err != nil {
			return fmt.Errorf("provider %d: %w", i, err)
		}
		if _, dup := seen[provider.ProviderName]; dup {
			return fmt.Errorf("duplicate provider_name %q", provider.ProviderName)
		}
		seen[provider.ProviderName] = struct{}{}
		if provider.IsEnabled() {
			enabled[provider.ProviderName] = struct{}{}
		}
	}

	if c.Business.PrimaryProvider != "" {
		if _, ok := enabled[c.Business.PrimaryProvider]; !ok {
			return fmt.Errorf("primary_provider %q is not a configured enabled provider",
				c.Business.PrimaryProvider)
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// EnabledProviders returns the integrations that should be instantiated.
func (b *BusinessConfig) EnabledProviders() []models.IntegrationConfig {
	out := make([]models.IntegrationConfig, 0, len(b.Providers))
	for _, provider := range b.Providers {
		if provider.IsEnabled() {
			out = append(out, provider)
		}
	}
	return out
}
