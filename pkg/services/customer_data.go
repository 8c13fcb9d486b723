package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/config"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/phone"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// Identifier types accepted by customer lookups.
const (
	IdentifierID    = "id"
	IdentifierEmail = "email"
	IdentifierPhone = "phone"
)

// ProviderInfo summarizes the configured providers for discovery surfaces.
type ProviderInfo struct {
	TotalProviders     int      `json:"total_providers"`
	PrimaryProvider    string   `json:"primary_provider,omitempty"`
	AvailableProviders []string `json:"available_providers"`
	BusinessName       string   `json:"business_name,omitempty"`
	Industry           string   `json:"industry"`
}

// CustomerDataService orchestrates customer lookups, writes, and searches
// across the configured providers with fallback between them.
type CustomerDataService interface {
	// Get looks up a customer by identifier. With providerName set and known,
	// only that provider is consulted; otherwise providers are tried
	// sequentially, primary first, and the first hit wins. All providers
	// missing (or failing) yields apperrors.ErrNotFound.
	Get(ctx context.Context, identifier, identifierType, providerName string) (*models.CustomerRecord, error)

	// Create persists a new customer in the named provider, or the primary
	// when none is named. Unlike reads, a create failure is surfaced: the
	// caller has no fallback target for writes.
	Create(ctx context.Context, data map[string]any, providerName string) (*models.CustomerRecord, error)

	// Update pushes the record back to the named provider, else the provider
	// it came from, else the primary. Returns false on any failure.
	Update(ctx context.Context, record *models.CustomerRecord, providerName string) bool

	// History returns the customer's interaction history from the named
	// provider or the primary. Failures yield an empty slice.
	History(ctx context.Context, customerID, providerName string) []models.Interaction

	// GetOrCreate looks the customer up and, on a miss with fallbackData
	// supplied, injects the identifier into the matching field and creates.
	GetOrCreate(ctx context.Context, identifier, identifierType string, fallbackData map[string]any) (*models.CustomerRecord, error)

	// Search fans out to the named provider or all providers concurrently,
	// deduplicates by email, and truncates to limit.
	Search(ctx context.Context, query string, limit int, providerName string) []*models.CustomerRecord

	// TestAllConnections probes every provider concurrently. The aggregate
	// never fails as a whole; each entry reports its own status.
	TestAllConnections(ctx context.Context) map[string]providers.ConnectionStatus

	ProviderInfo() ProviderInfo

	// Reload builds a replacement service from a new business configuration.
	// The current instance keeps serving until the caller swaps it out and
	// closes it; provider sets are never mutated in place.
	Reload(business config.BusinessConfig) (CustomerDataService, error)

	// Close releases every provider's connections.
	Close() error
}

// customerDataService implements CustomerDataService. The provider set is
// immutable after construction; configuration changes build a replacement
// instance instead of mutating this one.
type customerDataService struct {
	business config.BusinessConfig
	ordered  []providers.Provider
	byName   map[string]providers.Provider
	primary  providers.Provider
	logger   *zap.Logger
}

// NewCustomerDataService builds adapters for every enabled provider in the
// business configuration. An unknown provider_type fails construction; it is
// a configuration error, not something to discover mid-request.
func NewCustomerDataService(business config.BusinessConfig, logger *zap.Logger) (CustomerDataService, error) {
	s := &customerDataService{
		business: business,
		byName:   make(map[string]providers.Provider),
		logger:   logger,
	}

	for i := range business.Providers {
		cfg := &business.Providers[i]
		if !cfg.IsEnabled() {
			continue
		}

		provider, err := providers.Build(cfg, logger)
		if err != nil {
			s.closeAll()
			return nil, fmt.Errorf("initialize provider %s: %w", cfg.ProviderName, err)
		}

		s.ordered = append(s.ordered, provider)
		s.byName[cfg.ProviderName] = provider
		logger.Info("Provider initialized",
			zap.String("provider", cfg.ProviderName),
			zap.String("type", cfg.ProviderType))
	}

	if name := business.PrimaryProvider; name != "" {
		s.primary = s.byName[name]
	}
	if s.primary == nil && len(s.ordered) > 0 {
		s.primary = s.ordered[0]
	}

	return s, nil
}

func (s *customerDataService) Get(ctx context.Context, identifier, identifierType, providerName string) (*models.CustomerRecord, error) {
	if identifierType == IdentifierPhone {
		identifier = phone.NormalizeE164(identifier)
	}

	for _, provider := range s.attemptOrder(providerName) {
		record, err := s.lookup(ctx, provider, identifier, identifierType)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidData) {
				return nil, err
			}
			s.logMiss(provider, identifierType, err)
			continue
		}

		s.logger.Info("Customer found",
			zap.String("provider", provider.Name()),
			zap.String("identifier_type", identifierType))
		return record, nil
	}

	s.logger.Info("Customer not found",
		zap.String("identifier_type", identifierType))
	return nil, apperrors.ErrNotFound
}

// lookup dispatches to the provider method matching the identifier type.
func (s *customerDataService) lookup(ctx context.Context, provider providers.Provider, identifier, identifierType string) (*models.CustomerRecord, error) {
	switch identifierType {
	case IdentifierID:
		return provider.GetByID(ctx, identifier)
	case IdentifierEmail:
		return provider.GetByEmail(ctx, identifier)
	case IdentifierPhone:
		return provider.GetByPhone(ctx, identifier)
	default:
		return nil, fmt.Errorf("%w: unknown identifier type %q", apperrors.ErrInvalidData, identifierType)
	}
}

// logMiss distinguishes a clean miss from a provider failure; both continue
// the fallback chain.
func (s *customerDataService) logMiss(provider providers.Provider, identifierType string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Debug("Customer not in provider",
			zap.String("provider", provider.Name()),
			zap.String("identifier_type", identifierType))
		return
	}
	s.logger.Warn("Provider lookup failed",
		zap.String("provider", provider.Name()),
		zap.String("identifier_type", identifierType),
		zap.Error(err))
}

// attemptOrder returns the providers to try: only the named provider when it
// is known, otherwise the primary followed by the rest in configuration
// order.
func (s *customerDataService) attemptOrder(providerName string) []providers.Provider {
	if providerName != "" {
		if provider, ok := s.byName[providerName]; ok {
			return []providers.Provider{provider}
		}
	}

	order := make([]providers.Provider, 0, len(s.ordered))
	if s.primary != nil {
		order = append(order, s.primary)
	}
	for _, provider := range s.ordered {
		if provider != s.primary {
			order = append(order, provider)
		}
	}
	return order
}

func (s *customerDataService) Create(ctx context.Context, data map[string]any, providerName string) (*models.CustomerRecord, error) {
	if err := validateCreateData(data); err != nil {
		return nil, err
	}

	provider := s.writeTarget(providerName, "")
	if provider == nil {
		return nil, apperrors.ErrNoProviderAvailable
	}

	record, err := provider.Create(ctx, data)
	if err != nil {
		s.logger.Error("Customer create failed",
			zap.String("provider", provider.Name()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Customer created", zap.String("provider", provider.Name()))
	return record, nil
}

// validateCreateData rejects input no provider could store: no identifying
// field at all, or a malformed email.
func validateCreateData(data map[string]any) error {
	if email, ok := data["email"].(string); ok && email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: malformed email %q", apperrors.ErrInvalidData, email)
		}
	}

	for _, field := range []string{"email", "phone", "name", "first_name", "last_name"} {
		if value, ok := data[field].(string); ok && value != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no identifying field supplied", apperrors.ErrInvalidData)
}

func (s *customerDataService) Update(ctx context.Context, record *models.CustomerRecord, providerName string) bool {
	provider := s.writeTarget(providerName, record.DataSource)
	if provider == nil {
		s.logger.Error("No provider available for customer update")
		return false
	}

	if err := provider.Update(ctx, record); err != nil {
		s.logger.Error("Customer update failed",
			zap.String("provider", provider.Name()),
			zap.String("customer_id", record.CustomerID),
			zap.Error(err))
		return false
	}

	s.logger.Info("Customer updated",
		zap.String("provider", provider.Name()),
		zap.String("customer_id", record.CustomerID))
	return true
}

// writeTarget resolves the provider for a write: the named provider, then
// the record's source provider, then the primary.
func (s *customerDataService) writeTarget(providerName, sourceName string) providers.Provider {
	if provider, ok := s.byName[providerName]; ok {
		return provider
	}
	if provider, ok := s.byName[sourceName]; ok {
		return provider
	}
	return s.primary
}

func (s *customerDataService) History(ctx context.Context, customerID, providerName string) []models.Interaction {
	provider, ok := s.byName[providerName]
	if !ok {
		provider = s.primary
	}
	if provider == nil {
		return []models.Interaction{}
	}

	history, err := provider.History(ctx, customerID)
	if err != nil {
		s.logger.Error("Customer history fetch failed",
			zap.String("provider", provider.Name()),
			zap.String("customer_id", customerID),
			zap.Error(err))
		return []models.Interaction{}
	}
	if history == nil {
		history = []models.Interaction{}
	}
	return history
}

func (s *customerDataService) GetOrCreate(ctx context.Context, identifier, identifierType string, fallbackData map[string]any) (*models.CustomerRecord, error) {
	record, err := s.Get(ctx, identifier, identifierType, "")
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if fallbackData == nil {
		return nil, apperrors.ErrNotFound
	}

	data := make(map[string]any, len(fallbackData)+1)
	for key, value := range fallbackData {
		data[key] = value
	}
	switch identifierType {
	case IdentifierEmail:
		data["email"] = identifier
	case IdentifierPhone:
		data["phone"] = phone.NormalizeE164(identifier)
	}

	return s.Create(ctx, data, "")
}

func (s *customerDataService) Search(ctx context.Context, query string, limit int, providerName string) []*models.CustomerRecord {
	targets := s.ordered
	if provider, ok := s.byName[providerName]; ok {
		targets = []providers.Provider{provider}
	}

	// Per-target result slots keep aggregation in configuration order, so
	// dedup below is deterministic regardless of response arrival order.
	results := make([][]*models.CustomerRecord, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range targets {
		g.Go(func() error {
			records, err := provider.Search(gctx, query, limit)
			if err != nil {
				s.logger.Warn("Provider search failed",
					zap.String("provider", provider.Name()),
					zap.Error(err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	// Union and dedup by email, first occurrence wins. Records without an
	// email carry no dedup key and are passed through as-is.
	seen := make(map[string]bool)
	merged := make([]*models.CustomerRecord, 0, limit)
	for _, records := range results {
		for _, record := range records {
			if record.Email != "" {
				if seen[record.Email] {
					continue
				}
				seen[record.Email] = true
			}
			merged = append(merged, record)
		}
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (s *customerDataService) TestAllConnections(ctx context.Context) map[string]providers.ConnectionStatus {
	var mu sync.Mutex
	statuses := make(map[string]providers.ConnectionStatus, len(s.ordered))

	var wg sync.WaitGroup
	for _, provider := range s.ordered {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := provider.TestConnection(ctx)
			mu.Lock()
			statuses[provider.Name()] = status
			mu.Unlock()
		}()
	}
	wg.Wait()

	return statuses
}

func (s *customerDataService) ProviderInfo() ProviderInfo {
	info := ProviderInfo{
		TotalProviders:     len(s.ordered),
		AvailableProviders: make([]string, 0, len(s.ordered)),
		BusinessName:       s.business.BusinessName,
		Industry:           s.business.Industry,
	}
	if s.primary != nil {
		info.PrimaryProvider = s.primary.Name()
	}
	for _, provider := range s.ordered {
		info.AvailableProviders = append(info.AvailableProviders, provider.Name())
	}
	return info
}

func (s *customerDataService) Reload(business config.BusinessConfig) (CustomerDataService, error) {
	return NewCustomerDataService(business, s.logger)
}

func (s *customerDataService) Close() error {
	s.closeAll()
	return nil
}

func (s *customerDataService) closeAll() {
	for _, provider := range s.ordered {
		if err := provider.Close(); err != nil {
			s.logger.Warn("Provider close failed",
				zap.String("provider", provider.Name()),
				zap.Error(err))
		}
	}
}
