// Package shopify implements the customer data provider contract against the
// Shopify Admin REST API. Shop customers are the customer entity and their
// orders form the interaction history.
package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// defaultMapping translates canonical fields to Shopify customer fields when
// the integration declares no mapping of its own. Shopify already uses the
// canonical first_name/last_name/email/phone names.
var defaultMapping = fieldmap.Mapping{
	fieldmap.FieldFirstName: "first_name",
	fieldmap.FieldLastName:  "last_name",
	fieldmap.FieldEmail:     "email",
	fieldmap.FieldPhone:     "phone",
}

// Adapter is a Shopify-backed customer data provider.
type Adapter struct {
	name    string
	mapping fieldmap.Mapping
	client  *providers.RESTClient
	logger  *zap.Logger
}

// NewAdapter creates a Shopify adapter for one configured integration.
func NewAdapter(name string, cfg *Config, mapping fieldmap.Mapping, logger *zap.Logger) *Adapter {
	if len(mapping) == 0 {
		mapping = defaultMapping
	}
	return &Adapter{
		name:    name,
		mapping: mapping,
		logger:  logger,
		client: providers.NewRESTClient(cfg.BaseURL, 0, func(req *http.Request) {
			req.Header.Set("X-Shopify-Access-Token", cfg.AccessToken)
		}),
	}
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return models.ProviderTypeShopify }

type customerEnvelope struct {
	Customer map[string]any `json:"customer"`
}

type customerList struct {
	Customers []map[string]any `json:"customers"`
}

func (a *Adapter) recordFromCustomer(customer map[string]any) *models.CustomerRecord {
	return models.NewFromProviderData(customer, a.name, a.mapping)
}

func (a *Adapter) GetByID(ctx context.Context, id string) (*models.CustomerRecord, error) {
	var envelope customerEnvelope
	err := a.client.DoJSON(ctx, http.MethodGet, "/customers/"+url.PathEscape(id)+".json", nil, &envelope)
	if err != nil {
		if providers.IsHTTPStatus(err, http.StatusNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, providers.NewConnectionError(a.name, "get customer", err)
	}
	if envelope.Customer == nil {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromCustomer(envelope.Customer), nil
}

func (a *Adapter) searchOne(ctx context.Context, op, query string) (*models.CustomerRecord, error) {
	var list customerList
	path := "/customers/search.json?query=" + url.QueryEscape(query)
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, providers.NewConnectionError(a.name, op, err)
	}
	if len(list.Customers) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromCustomer(list.Customers[0]), nil
}

func (a *Adapter) GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error) {
	return a.searchOne(ctx, "search customer by email", "email:"+email)
}

func (a *Adapter) GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error) {
	return a.searchOne(ctx, "search customer by phone", "phone:"+phone)
}

func (a *Adapter) Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error) {
	lastName := fieldmap.Stringify(data["last_name"])
	if lastName == "" {
		lastName = fieldmap.Stringify(data["name"])
	}
	if lastName == "" {
		lastName = "Unknown"
	}

	customer := map[string]any{
		"first_name":         fieldmap.Stringify(data["first_name"]),
		"last_name":          lastName,
		"email":              fieldmap.Stringify(data["email"]),
		"phone":              fieldmap.Stringify(data["phone"]),
		"verified_email":     false,
		"send_email_welcome": false,
	}

	// Custom fields travel as metafields under the "custom" namespace.
	if custom, ok := data["custom_fields"].(map[string]any); ok && len(custom) > 0 {
		metafields := make([]map[string]any, 0, len(custom))
		for key, value := range custom {
			metafields = append(metafields, map[string]any{
				"namespace": "custom",
				"key":       key,
				"value":     fieldmap.Stringify(value),
				"type":      "single_line_text_field",
			})
		}
		customer["metafields"] = metafields
	}

	var created customerEnvelope
	err := a.client.DoJSON(ctx, http.MethodPost, "/customers.json",
		map[string]any{"customer": customer}, &created)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "create customer", err)
	}
	if created.Customer == nil {
		return nil, fmt.Errorf("shopify returned no customer")
	}
	return a.recordFromCustomer(created.Customer), nil
}

func (a *Adapter) Update(ctx context.Context, record *models.CustomerRecord) error {
	id := record.ExternalIDs[a.name]
	if id == "" {
		id = record.CustomerID
	}

	customer := map[string]any{
		"id":         id,
		"first_name": record.FirstName,
		"last_name":  record.LastName,
		"email":      record.Email,
		"phone":      record.Phone,
	}

	var updated customerEnvelope
	err := a.client.DoJSON(ctx, http.MethodPut, "/customers/"+url.PathEscape(id)+".json",
		map[string]any{"customer": customer}, &updated)
	if err != nil {
		return providers.NewConnectionError(a.name, "update customer", err)
	}
	if updated.Customer == nil {
		return fmt.Errorf("shopify did not acknowledge update of customer %s", id)
	}
	return nil
}

func (a *Adapter) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	var result struct {
		Orders []map[string]any `json:"orders"`
	}
	path := "/customers/" + url.PathEscape(customerID) + "/orders.json"
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, providers.NewConnectionError(a.name, "list orders", err)
	}

	history := make([]models.Interaction, 0, len(result.Orders))
	for _, order := range result.Orders {
		subject := ""
		if number := fieldmap.Stringify(order["order_number"]); number != "" {
			subject = "Order #" + number
		}
		content := ""
		if total := fieldmap.Stringify(order["total_price"]); total != "" {
			content = "Total " + total
		}
		history = append(history, models.Interaction{
			ID:          fieldmap.Stringify(order["id"]),
			Type:        "order",
			Subject:     subject,
			Content:     content,
			Status:      fieldmap.Stringify(order["financial_status"]),
			CreatedDate: fieldmap.Stringify(order["created_at"]),
			Source:      a.name,
		})
	}
	return history, nil
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error) {
	var list customerList
	path := "/customers/search.json?query=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, providers.NewConnectionError(a.name, "search customers", err)
	}

	records := make([]*models.CustomerRecord, 0, len(list.Customers))
	for _, customer := range list.Customers {
		records = append(records, a.recordFromCustomer(customer))
	}
	return records, nil
}

func (a *Adapter) TestConnection(ctx context.Context) providers.ConnectionStatus {
	var shop struct {
		Shop map[string]any `json:"shop"`
	}
	if err := a.client.DoJSON(ctx, http.MethodGet, "/shop.json", nil, &shop); err != nil {
		return providers.ConnectionStatus{
			Provider: a.name,
			Status:   providers.StatusError,
			Error:    err.Error(),
		}
	}
	return providers.ConnectionStatus{
		Provider: a.name,
		Status:   providers.StatusSuccess,
		Message:  "Connection successful",
	}
}

func (a *Adapter) Close() error { return nil }
