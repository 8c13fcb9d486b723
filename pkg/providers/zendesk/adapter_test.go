package zendesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "basic auth missing")
		assert.Equal(t, "agent@example.com/token", user)
		assert.Equal(t, "zd-token", pass)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg, err := FromConfig(&models.IntegrationConfig{
		ProviderType: models.ProviderTypeZendesk,
		ProviderName: "zendesk_main",
		APIEndpoint:  server.URL,
		APIKey:       "zd-token",
		Username:     "agent@example.com",
	})
	require.NoError(t, err)

	return NewAdapter("zendesk_main", cfg, nil, zap.NewNop())
}

func TestFromConfig_BuildsSubdomainURL(t *testing.T) {
	cfg, err := FromConfig(&models.IntegrationConfig{
		ProviderType: models.ProviderTypeZendesk,
		ProviderName: "zd",
		APIKey:       "token",
		Username:     "agent@example.com",
		CustomConfig: map[string]any{"subdomain": "acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.zendesk.com/api/v2", cfg.BaseURL)
}

func TestFromConfig_RequiresSubdomain(t *testing.T) {
	_, err := FromConfig(&models.IntegrationConfig{
		ProviderType: models.ProviderTypeZendesk,
		ProviderName: "zd",
		APIKey:       "token",
		Username:     "agent@example.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subdomain")
}

func TestGetByID(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/387", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{
			"id":    float64(387),
			"name":  "Jane Doe",
			"email": "jane@example.com",
			"tags":  []any{"vip"},
		}})
	})

	record, err := adapter.GetByID(context.Background(), "387")
	require.NoError(t, err)
	assert.Equal(t, "387", record.CustomerID, "numeric ids must not gain an exponent")
	assert.Equal(t, "Jane Doe", record.Name)
	assert.Equal(t, "jane@example.com", record.Email)
	assert.Equal(t, "387", record.ExternalIDs["zendesk_main"])
}

func TestGetByEmail_SearchQuery(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/search.json", r.URL.Path)
		assert.Equal(t, "email:jane@example.com", r.URL.Query().Get("query"))
		json.NewEncoder(w).Encode(userList{Users: []map[string]any{
			{"id": float64(5), "email": "jane@example.com"},
		}})
	})

	record, err := adapter.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "5", record.CustomerID)
}

func TestGetByPhone_EmptyIsNotFound(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(userList{})
	})

	_, err := adapter.GetByPhone(context.Background(), "+15550000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_ComposesNameAndUserFields(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		user := body["user"]
		assert.Equal(t, "Jane Doe", user["name"])
		assert.Equal(t, "end-user", user["role"])
		assert.Equal(t, false, user["verified"])
		fields := user["user_fields"].(map[string]any)
		assert.Equal(t, "gold", fields["loyalty"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{
			"id":   float64(42),
			"name": "Jane Doe",
		}})
	})

	record, err := adapter.Create(context.Background(), map[string]any{
		"first_name":    "Jane",
		"last_name":     "Doe",
		"custom_fields": map[string]any{"loyalty": "gold"},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", record.CustomerID)
}

func TestUpdate(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": float64(42)}})
	})

	err := adapter.Update(context.Background(), &models.CustomerRecord{
		CustomerID:  "unified-3",
		ExternalIDs: map[string]string{"zendesk_main": "42"},
		FirstName:   "Jane",
		LastName:    "Doe",
	})
	require.NoError(t, err)
}

func TestHistory(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/387/tickets/requested", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"tickets": []map[string]any{
			{
				"id":          float64(9001),
				"subject":     "Billing question",
				"description": "Charged twice",
				"status":      "solved",
				"priority":    "normal",
				"created_at":  "2026-07-14T09:30:00Z",
			},
		}})
	})

	history, err := adapter.History(context.Background(), "387")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "9001", history[0].ID)
	assert.Equal(t, "ticket", history[0].Type)
	assert.Equal(t, "Charged twice", history[0].Content)
	assert.Equal(t, "zendesk_main", history[0].Source)
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(userList{Users: []map[string]any{
			{"id": float64(1)}, {"id": float64(2)}, {"id": float64(3)},
		}})
	})

	records, err := adapter.Search(context.Background(), "jane", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTestConnection(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": float64(1)}})
	})

	status := adapter.TestConnection(context.Background())
	assert.Equal(t, providers.StatusSuccess, status.Status)
}
