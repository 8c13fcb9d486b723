package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/config"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// mockProvider is a configurable Provider for testing the data manager's
// orchestration without remote calls.
type mockProvider struct {
	name string

	record     *models.CustomerRecord
	getErr     error
	createErr  error
	updateErr  error
	history    []models.Interaction
	historyErr error
	results    []*models.CustomerRecord
	searchErr  error
	status     providers.ConnectionStatus

	// Capture inputs for verification
	lookedUp     []string
	createdData  map[string]any
	updated      *models.CustomerRecord
	searched     string
	closed       bool
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Type() string { return "mock" }

func (m *mockProvider) get(identifier string) (*models.CustomerRecord, error) {
	m.lookedUp = append(m.lookedUp, identifier)
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.record == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.record, nil
}

func (m *mockProvider) GetByID(ctx context.Context, id string) (*models.CustomerRecord, error) {
	return m.get(id)
}

func (m *mockProvider) GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error) {
	return m.get(email)
}

func (m *mockProvider) GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error) {
	return m.get(phone)
}

func (m *mockProvider) Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error) {
	m.createdData = data
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.CustomerRecord{CustomerID: "created-1", DataSource: m.name}, nil
}

func (m *mockProvider) Update(ctx context.Context, record *models.CustomerRecord) error {
	m.updated = record
	return m.updateErr
}

func (m *mockProvider) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

func (m *mockProvider) Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error) {
	m.searched = query
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockProvider) TestConnection(ctx context.Context) providers.ConnectionStatus {
	if m.status.Provider == "" {
		return providers.ConnectionStatus{Provider: m.name, Status: providers.StatusSuccess}
	}
	return m.status
}

func (m *mockProvider) Close() error {
	m.closed = true
	return nil
}

// newTestService wires mock providers directly; the first one is primary.
func newTestService(business config.BusinessConfig, mocks ...*mockProvider) *customerDataService {
	s := &customerDataService{
		business: business,
		byName:   make(map[string]providers.Provider),
		logger:   zap.NewNop(),
	}
	for _, m := range mocks {
		s.ordered = append(s.ordered, m)
		s.byName[m.name] = m
	}
	if len(s.ordered) > 0 {
		s.primary = s.ordered[0]
	}
	return s
}

func TestGet_PrimaryFailureFallsBackToSecondary(t *testing.T) {
	primary := &mockProvider{
		name:   "crm",
		getErr: providers.NewConnectionError("crm", "get customer", errors.New("connection refused")),
	}
	secondary := &mockProvider{
		name:   "store",
		record: &models.CustomerRecord{CustomerID: "42", Email: "jane@example.com", DataSource: "store"},
	}
	service := newTestService(config.BusinessConfig{}, primary, secondary)

	record, err := service.Get(context.Background(), "jane@example.com", IdentifierEmail, "")
	require.NoError(t, err)
	assert.Equal(t, "store", record.DataSource)
	assert.Len(t, primary.lookedUp, 1, "primary should be tried first")
}

func TestGet_AllProvidersMissReturnsNotFound(t *testing.T) {
	service := newTestService(config.BusinessConfig{},
		&mockProvider{name: "crm"},
		&mockProvider{name: "store"},
	)

	_, err := service.Get(context.Background(), "77", IdentifierID, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGet_ExplicitProviderOnly(t *testing.T) {
	primary := &mockProvider{
		name:   "crm",
		record: &models.CustomerRecord{CustomerID: "1", DataSource: "crm"},
	}
	other := &mockProvider{
		name:   "store",
		record: &models.CustomerRecord{CustomerID: "2", DataSource: "store"},
	}
	service := newTestService(config.BusinessConfig{}, primary, other)

	record, err := service.Get(context.Background(), "2", IdentifierID, "store")
	require.NoError(t, err)
	assert.Equal(t, "store", record.DataSource)
	assert.Empty(t, primary.lookedUp, "primary should not be consulted")
}

func TestGet_UnknownExplicitProviderFallsBackToAll(t *testing.T) {
	primary := &mockProvider{
		name:   "crm",
		record: &models.CustomerRecord{CustomerID: "1", DataSource: "crm"},
	}
	service := newTestService(config.BusinessConfig{}, primary)

	record, err := service.Get(context.Background(), "1", IdentifierID, "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "crm", record.DataSource)
}

func TestGet_NormalizesPhoneIdentifier(t *testing.T) {
	provider := &mockProvider{
		name:   "crm",
		record: &models.CustomerRecord{CustomerID: "1"},
	}
	service := newTestService(config.BusinessConfig{}, provider)

	_, err := service.Get(context.Background(), "(555) 123-4567", IdentifierPhone, "")
	require.NoError(t, err)
	require.Len(t, provider.lookedUp, 1)
	assert.Equal(t, "+15551234567", provider.lookedUp[0])
}

func TestGet_UnknownIdentifierType(t *testing.T) {
	service := newTestService(config.BusinessConfig{}, &mockProvider{name: "crm"})

	_, err := service.Get(context.Background(), "x", "ssn", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidData)
}

func TestCreate_UsesPrimaryWhenUnnamed(t *testing.T) {
	primary := &mockProvider{name: "crm"}
	other := &mockProvider{name: "store"}
	service := newTestService(config.BusinessConfig{}, primary, other)

	record, err := service.Create(context.Background(), map[string]any{"email": "new@example.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, "crm", record.DataSource)
	assert.Equal(t, "new@example.com", primary.createdData["email"])
	assert.Nil(t, other.createdData)
}

func TestCreate_NoProviderAvailable(t *testing.T) {
	service := newTestService(config.BusinessConfig{})

	_, err := service.Create(context.Background(), map[string]any{"email": "new@example.com"}, "")
	assert.ErrorIs(t, err, apperrors.ErrNoProviderAvailable)
}

func TestCreate_FailureIsSurfaced(t *testing.T) {
	primary := &mockProvider{
		name:      "crm",
		createErr: providers.NewConnectionError("crm", "create customer", errors.New("boom")),
	}
	service := newTestService(config.BusinessConfig{}, primary)

	_, err := service.Create(context.Background(), map[string]any{"email": "new@example.com"}, "")
	assert.True(t, providers.IsConnectionError(err))
}

func TestCreate_ValidatesInput(t *testing.T) {
	service := newTestService(config.BusinessConfig{}, &mockProvider{name: "crm"})

	_, err := service.Create(context.Background(), map[string]any{"tier": "premium"}, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidData)

	_, err = service.Create(context.Background(), map[string]any{"email": "not-an-email"}, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidData)
}

func TestUpdate_PrefersRecordSourceOverPrimary(t *testing.T) {
	primary := &mockProvider{name: "crm"}
	source := &mockProvider{name: "store"}
	service := newTestService(config.BusinessConfig{}, primary, source)

	record := &models.CustomerRecord{CustomerID: "9", DataSource: "store"}
	ok := service.Update(context.Background(), record, "")
	assert.True(t, ok)
	assert.Same(t, record, source.updated)
	assert.Nil(t, primary.updated)
}

func TestUpdate_FailureReturnsFalse(t *testing.T) {
	primary := &mockProvider{
		name:      "crm",
		updateErr: providers.NewConnectionError("crm", "update customer", errors.New("boom")),
	}
	service := newTestService(config.BusinessConfig{}, primary)

	ok := service.Update(context.Background(), &models.CustomerRecord{CustomerID: "9"}, "")
	assert.False(t, ok)
}

func TestUpdate_NoProviderReturnsFalse(t *testing.T) {
	service := newTestService(config.BusinessConfig{})

	ok := service.Update(context.Background(), &models.CustomerRecord{CustomerID: "9"}, "")
	assert.False(t, ok)
}

func TestHistory_FailureYieldsEmptySlice(t *testing.T) {
	primary := &mockProvider{
		name:       "crm",
		historyErr: providers.NewConnectionError("crm", "get history", errors.New("boom")),
	}
	service := newTestService(config.BusinessConfig{}, primary)

	history := service.History(context.Background(), "9", "")
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistory_ExplicitProvider(t *testing.T) {
	primary := &mockProvider{name: "crm"}
	other := &mockProvider{
		name:    "desk",
		history: []models.Interaction{{ID: "t1", Type: "ticket", Source: "desk"}},
	}
	service := newTestService(config.BusinessConfig{}, primary, other)

	history := service.History(context.Background(), "9", "desk")
	require.Len(t, history, 1)
	assert.Equal(t, "t1", history[0].ID)
}

func TestSearch_DeduplicatesByEmail(t *testing.T) {
	shared := "shared@example.com"
	makeResults := func(source string, n int) []*models.CustomerRecord {
		records := make([]*models.CustomerRecord, 0, n)
		for i := 0; i < n; i++ {
			email := shared
			if i > 0 {
				email = fmt.Sprintf("%s-%d@example.com", source, i)
			}
			records = append(records, &models.CustomerRecord{
				CustomerID: fmt.Sprintf("%s-%d", source, i),
				Email:      email,
				DataSource: source,
			})
		}
		return records
	}

	service := newTestService(config.BusinessConfig{},
		&mockProvider{name: "crm", results: makeResults("crm", 6)},
		&mockProvider{name: "store", results: makeResults("store", 6)},
	)

	results := service.Search(context.Background(), "", 10, "")
	assert.LessOrEqual(t, len(results), 10)

	count := 0
	for _, record := range results {
		if record.Email == shared {
			count++
			assert.Equal(t, "crm", record.DataSource, "first occurrence should win")
		}
	}
	assert.Equal(t, 1, count, "shared email should appear exactly once")
}

func TestSearch_FailingProviderContributesNothing(t *testing.T) {
	service := newTestService(config.BusinessConfig{},
		&mockProvider{
			name:      "crm",
			searchErr: providers.NewConnectionError("crm", "search", errors.New("boom")),
		},
		&mockProvider{
			name:    "store",
			results: []*models.CustomerRecord{{CustomerID: "1", Email: "a@example.com"}},
		},
	)

	results := service.Search(context.Background(), "a", 10, "")
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].CustomerID)
}

func TestSearch_KeepsRecordsWithoutEmail(t *testing.T) {
	service := newTestService(config.BusinessConfig{},
		&mockProvider{name: "crm", results: []*models.CustomerRecord{
			{CustomerID: "1"},
			{CustomerID: "2"},
		}},
	)

	results := service.Search(context.Background(), "", 10, "")
	assert.Len(t, results, 2)
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	records := make([]*models.CustomerRecord, 5)
	for i := range records {
		records[i] = &models.CustomerRecord{
			CustomerID: fmt.Sprintf("%d", i),
			Email:      fmt.Sprintf("c%d@example.com", i),
		}
	}
	service := newTestService(config.BusinessConfig{}, &mockProvider{name: "crm", results: records})

	results := service.Search(context.Background(), "", 3, "")
	assert.Len(t, results, 3)
}

func TestGetOrCreate_InjectsIdentifierIntoFallback(t *testing.T) {
	primary := &mockProvider{name: "crm"}
	service := newTestService(config.BusinessConfig{}, primary)

	record, err := service.GetOrCreate(context.Background(), "new@example.com", IdentifierEmail,
		map[string]any{"first_name": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "created-1", record.CustomerID)
	assert.Equal(t, "new@example.com", primary.createdData["email"])
	assert.Equal(t, "Jane", primary.createdData["first_name"])
}

func TestGetOrCreate_NoFallbackDataIsNotFound(t *testing.T) {
	service := newTestService(config.BusinessConfig{}, &mockProvider{name: "crm"})

	_, err := service.GetOrCreate(context.Background(), "new@example.com", IdentifierEmail, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetOrCreate_ReturnsExistingCustomer(t *testing.T) {
	primary := &mockProvider{
		name:   "crm",
		record: &models.CustomerRecord{CustomerID: "42", Email: "jane@example.com"},
	}
	service := newTestService(config.BusinessConfig{}, primary)

	record, err := service.GetOrCreate(context.Background(), "jane@example.com", IdentifierEmail,
		map[string]any{"first_name": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "42", record.CustomerID)
	assert.Nil(t, primary.createdData, "no create on a hit")
}

func TestTestAllConnections_AggregatesEveryProvider(t *testing.T) {
	service := newTestService(config.BusinessConfig{},
		&mockProvider{name: "crm"},
		&mockProvider{name: "store", status: providers.ConnectionStatus{
			Provider: "store",
			Status:   providers.StatusError,
			Error:    "connection refused",
		}},
	)

	statuses := service.TestAllConnections(context.Background())
	require.Len(t, statuses, 2)
	assert.Equal(t, providers.StatusSuccess, statuses["crm"].Status)
	assert.Equal(t, providers.StatusError, statuses["store"].Status)
}

func TestProviderInfo(t *testing.T) {
	service := newTestService(
		config.BusinessConfig{BusinessName: "Acme", Industry: "retail"},
		&mockProvider{name: "crm"},
		&mockProvider{name: "store"},
	)

	info := service.ProviderInfo()
	assert.Equal(t, 2, info.TotalProviders)
	assert.Equal(t, "crm", info.PrimaryProvider)
	assert.Equal(t, []string{"crm", "store"}, info.AvailableProviders)
	assert.Equal(t, "Acme", info.BusinessName)
	assert.Equal(t, "retail", info.Industry)
}

func TestClose_ClosesAllProviders(t *testing.T) {
	first := &mockProvider{name: "crm"}
	second := &mockProvider{name: "store"}
	service := newTestService(config.BusinessConfig{}, first, second)

	require.NoError(t, service.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestReload_ReturnsIndependentInstance(t *testing.T) {
	service := newTestService(config.BusinessConfig{}, &mockProvider{name: "crm"})

	reloaded, err := service.Reload(config.BusinessConfig{Industry: "retail"})
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ProviderInfo().TotalProviders)
	assert.Equal(t, 1, service.ProviderInfo().TotalProviders, "original instance untouched")
}

func TestNewCustomerDataService_UnknownTypeFailsConstruction(t *testing.T) {
	business := config.BusinessConfig{
		Providers: []models.IntegrationConfig{
			{ProviderType: "carrier-pigeon", ProviderName: "pigeon"},
		},
	}

	_, err := NewCustomerDataService(business, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrUnknownProviderType)
}

func TestNewCustomerDataService_SkipsDisabledProviders(t *testing.T) {
	disabled := false
	business := config.BusinessConfig{
		Providers: []models.IntegrationConfig{
			{ProviderType: "carrier-pigeon", ProviderName: "pigeon", Enabled: &disabled},
		},
	}

	service, err := NewCustomerDataService(business, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, service.ProviderInfo().TotalProviders)
}
