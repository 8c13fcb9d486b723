// Package providers defines the customer data provider contract and the
// registry concrete adapters register into. One adapter instance serves one
// configured integration; the customer data manager orchestrates them.
package providers

import (
	"context"

	"github.com/kindredhq/kindred-engine/pkg/models"
)

// Connection test outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ConnectionStatus is the result of a provider health probe.
type ConnectionStatus struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Provider is the capability set every integration adapter implements.
//
// Lookups return apperrors.ErrNotFound for a clean miss and a
// *ConnectionError for transport or auth failures; adapters never surface a
// raw transport error. History returns an empty slice when the customer has
// none; "no history" is not an error. TestConnection never returns an error:
// timeouts and failures are captured in the returned status.
type Provider interface {
	// Name returns the configured provider_name, the key the data manager
	// indexes by.
	Name() string
	// Type returns the provider_type discriminator ("salesforce", ...).
	Type() string

	GetByID(ctx context.Context, id string) (*models.CustomerRecord, error)
	GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error)
	GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error)

	// Create persists a new customer and returns the stored record. It fails
	// when the remote call fails or the remote system returns no identifier.
	Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error)

	// Update pushes the record's canonical fields back to the provider.
	Update(ctx context.Context, record *models.CustomerRecord) error

	History(ctx context.Context, customerID string) ([]models.Interaction, error)

	// Search returns at most limit matching records.
	Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error)

	TestConnection(ctx context.Context) ConnectionStatus

	// Close releases any connections the adapter owns.
	Close() error
}
