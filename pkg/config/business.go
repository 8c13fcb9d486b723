package config

import (
	"github.com/kindredhq/kindred-engine/pkg/models"
)

// BusinessConfig describes the business the engine serves: its industry,
// its configured data providers, and which customer fields matter for
// completeness scoring.
type BusinessConfig struct {
	BusinessName string `yaml:"business_name" env:"BUSINESS_NAME" env-default:""`
	// Industry selects field defaults: "ecommerce", "saas", "healthcare",
	// "financial", or "retail".
	Industry string `yaml:"industry" env:"INDUSTRY" env-default:"saas"`

	// PrimaryProvider is consulted first on lookups and receives writes that
	// no other provider claims. Empty means the first enabled provider.
	PrimaryProvider string `yaml:"primary_provider" env:"PRIMARY_PROVIDER" env-default:""`

	// RequiredFields and OptionalFields drive completeness scoring. Empty
	// lists inherit the industry defaults.
	RequiredFields []string `yaml:"required_fields"`
	OptionalFields []string `yaml:"optional_fields"`

	Providers []models.IntegrationConfig `yaml:"providers"`
}

// industryTemplate carries the per-industry field defaults.
type industryTemplate struct {
	RequiredFields []string
	OptionalFields []string
}

var industryTemplates = map[string]industryTemplate{
	"ecommerce": {
		RequiredFields: []string{"name", "email"},
		OptionalFields: []string{"phone", "shipping_address", "billing_address"},
	},
	"saas": {
		RequiredFields: []string{"name", "email", "company"},
		OptionalFields: []string{"phone", "job_title", "company_size"},
	},
	"healthcare": {
		RequiredFields: []string{"name", "email", "phone", "date_of_birth"},
		OptionalFields: []string{"address", "emergency_contact", "insurance_provider"},
	},
	"financial": {
		RequiredFields: []string{"name", "email", "phone", "address"},
		OptionalFields: []string{"ssn_last_four", "account_type", "preferred_contact_method"},
	},
	"retail": {
		RequiredFields: []string{"name", "email"},
		OptionalFields: []string{"phone", "address", "preferred_store_location"},
	},
}

// fallbackIndustry is used when the configured industry has no template.
const fallbackIndustry = "saas"

// applyIndustryDefaults fills empty field lists from the industry template.
// Explicitly configured lists are left alone.
func (b *BusinessConfig) applyIndustryDefaults() {
	template, ok := industryTemplates[b.Industry]
	if !ok {
		template = industryTemplates[fallbackIndustry]
	}

	if len(b.RequiredFields) == 0 {
		b.RequiredFields = append([]string(nil), template.RequiredFields...)
	}
	if len(b.OptionalFields) == 0 {
		b.OptionalFields = append([]string(nil), template.OptionalFields...)
	}
}
