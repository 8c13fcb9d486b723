package shopify

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
		assert.Equal(t, "shpat-test", r.Header.Get("X-Shopify-Access-Token"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg, err := FromConfig(&models.IntegrationConfig{
		ProviderType: models.ProviderTypeShopify,
		ProviderName: "shopify_main",
		APIEndpoint:  server.URL,
		APIKey:       "shpat-test",
	})
	require.NoError(t, err)

	return NewAdapter("shopify_main", cfg, nil, zap.NewNop())
}

func TestFromConfig_BuildsShopURL(t *testing.T) {
	cfg, err := FromConfig(&models.IntegrationConfig{
		ProviderType: models.ProviderTypeShopify,
		ProviderName: "shop",
		APIKey:       "shpat",
		CustomConfig: map[string]any{"shop_domain": "acme.myshopify.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.myshopify.com/admin/api/2024-01", cfg.BaseURL)
}

func TestFromConfig_RequiresShopDomain(t *testing.T) {
	_, err := FromConfig(&models.IntegrationConfig{
		ProviderType: models.ProviderTypeShopify,
		ProviderName: "shop",
		APIKey:       "shpat",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop_domain")
}

func TestGetByID(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/207119551.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{
			"id":           float64(207119551),
			"first_name":   "Jane",
			"last_name":    "Doe",
			"email":        "jane@example.com",
			"orders_count": float64(3),
		}})
	})

	record, err := adapter.GetByID(context.Background(), "207119551")
	require.NoError(t, err)
	assert.Equal(t, "207119551", record.CustomerID)
	assert.Equal(t, "Jane", record.FirstName)
	assert.Equal(t, float64(3), record.CustomFields["orders_count"])
}

func TestGetByEmail(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/search.json", r.URL.Path)
		assert.Equal(t, "email:jane@example.com", r.URL.Query().Get("query"))
		json.NewEncoder(w).Encode(customerList{Customers: []map[string]any{
			{"id": float64(1), "email": "jane@example.com"},
		}})
	})

	record, err := adapter.GetByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", record.CustomerID)
}

func TestGetByPhone_EmptyIsNotFound(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(customerList{})
	})

	_, err := adapter.GetByPhone(context.Background(), "+15550000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_CustomFieldsBecomeMetafields(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers.json", r.URL.Path)
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		customer := body["customer"]
		assert.Equal(t, false, customer["verified_email"])

		metafields := customer["metafields"].([]any)
		require.Len(t, metafields, 1)
		field := metafields[0].(map[string]any)
		assert.Equal(t, "custom", field["namespace"])
		assert.Equal(t, "loyalty", field["key"])
		assert.Equal(t, "gold", field["value"])
		assert.Equal(t, "single_line_text_field", field["type"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{
			"id":         float64(999),
			"first_name": "Jane",
		}})
	})

	record, err := adapter.Create(context.Background(), map[string]any{
		"first_name":    "Jane",
		"last_name":     "Doe",
		"custom_fields": map[string]any{"loyalty": "gold"},
	})
	require.NoError(t, err)
	assert.Equal(t, "999", record.CustomerID)
}

func TestUpdate(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/customers/999.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{"id": float64(999)}})
	})

	err := adapter.Update(context.Background(), &models.CustomerRecord{
		CustomerID:  "unified-7",
		ExternalIDs: map[string]string{"shopify_main": "999"},
		FirstName:   "Jane",
	})
	require.NoError(t, err)
}

func TestHistory_MapsOrders(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/207119551/orders.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"orders": []map[string]any{
			{
				"id":               float64(450789469),
				"order_number":     float64(1001),
				"total_price":      "199.00",
				"financial_status": "paid",
				"created_at":       "2026-06-02T12:00:00-04:00",
			},
		}})
	})

	history, err := adapter.History(context.Background(), "207119551")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "450789469", history[0].ID)
	assert.Equal(t, "order", history[0].Type)
	assert.Equal(t, "Order #1001", history[0].Subject)
	assert.Equal(t, "Total 199.00", history[0].Content)
	assert.Equal(t, "paid", history[0].Status)
}

func TestSearch_PassesLimit(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(customerList{Customers: []map[string]any{
			{"id": float64(1)}, {"id": float64(2)},
		}})
	})

	records, err := adapter.Search(context.Background(), "jane", 4)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTestConnection(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shop.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"shop": map[string]any{"name": "Acme"}})
	})

	status := adapter.TestConnection(context.Background())
	assert.Equal(t, providers.StatusSuccess, status.Status)
	assert.Equal(t, "shopify_main", status.Provider)
}
