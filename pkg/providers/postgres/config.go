package postgres

import (
	"fmt"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// Default table names; both can be overridden per integration.
const (
	DefaultTableName         = "customers"
	DefaultInteractionsTable = "customer_interactions"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	DatabaseURL       string
	TableName         string
	InteractionsTable string

	// ManageSchema applies the bundled customers schema migrations before
	// the first query. Leave false when the tables are owned elsewhere.
	ManageSchema bool
}

// FromConfig extracts PostgreSQL settings from an integration config.
func FromConfig(cfg *models.IntegrationConfig) (*Config, error) {
	out := &Config{
		DatabaseURL:       cfg.DatabaseURL,
		TableName:         cfg.CustomString("table_name", DefaultTableName),
		InteractionsTable: cfg.CustomString("interactions_table", DefaultInteractionsTable),
	}
	if manage, ok := cfg.CustomConfig["manage_schema"].(bool); ok {
		out.ManageSchema = manage
	}

	if out.DatabaseURL == "" {
		return nil, fmt.Errorf("postgresql: database_url is required")
	}
	return out, nil
}
