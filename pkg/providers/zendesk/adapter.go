// Package zendesk implements the customer data provider contract against the
// Zendesk Support API. End users are the customer entity and their requested
// tickets form the interaction history.
package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// defaultMapping translates canonical fields to Zendesk user fields when the
// integration declares no mapping of its own. Zendesk stores one display
// name rather than a first/last split.
var defaultMapping = fieldmap.Mapping{
	fieldmap.FieldName:  "name",
	fieldmap.FieldEmail: "email",
	fieldmap.FieldPhone: "phone",
}

// Adapter is a Zendesk-backed customer data provider.
type Adapter struct {
	name    string
	mapping fieldmap.Mapping
	client  *providers.RESTClient
	logger  *zap.Logger
}

// NewAdapter creates a Zendesk adapter for one configured integration.
func NewAdapter(name string, cfg *Config, mapping fieldmap.Mapping, logger *zap.Logger) *Adapter {
	if len(mapping) == 0 {
		mapping = defaultMapping
	}
	return &Adapter{
		name:    name,
		mapping: mapping,
		logger:  logger,
		client: providers.NewRESTClient(cfg.BaseURL, 0, func(req *http.Request) {
			req.SetBasicAuth(cfg.Email+"/token", cfg.APIToken)
		}),
	}
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return models.ProviderTypeZendesk }

type userEnvelope struct {
	User map[string]any `json:"user"`
}

type userList struct {
	Users []map[string]any `json:"users"`
}

func (a *Adapter) recordFromUser(user map[string]any) *models.CustomerRecord {
	return models.NewFromProviderData(user, a.name, a.mapping)
}

func (a *Adapter) GetByID(ctx context.Context, id string) (*models.CustomerRecord, error) {
	var envelope userEnvelope
	err := a.client.DoJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &envelope)
	if err != nil {
		if providers.IsHTTPStatus(err, http.StatusNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, providers.NewConnectionError(a.name, "get user", err)
	}
	if envelope.User == nil {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromUser(envelope.User), nil
}

// searchOne runs a fielded user search ("email:x", "phone:y") and returns
// the first hit.
func (a *Adapter) searchOne(ctx context.Context, op, query string) (*models.CustomerRecord, error) {
	var list userList
	path := "/users/search.json?query=" + url.QueryEscape(query)
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, providers.NewConnectionError(a.name, op, err)
	}
	if len(list.Users) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromUser(list.Users[0]), nil
}

func (a *Adapter) GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error) {
	return a.searchOne(ctx, "search user by email", "email:"+email)
}

func (a *Adapter) GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error) {
	return a.searchOne(ctx, "search user by phone", "phone:"+phone)
}

func (a *Adapter) Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error) {
	name := fieldmap.Stringify(data["name"])
	if name == "" {
		name = joinName(fieldmap.Stringify(data["first_name"]), fieldmap.Stringify(data["last_name"]))
	}

	user := map[string]any{
		"name":     name,
		"email":    fieldmap.Stringify(data["email"]),
		"phone":    fieldmap.Stringify(data["phone"]),
		"role":     "end-user",
		"verified": false,
	}
	if custom, ok := data["custom_fields"].(map[string]any); ok && len(custom) > 0 {
		user["user_fields"] = custom
	}

	var created userEnvelope
	err := a.client.DoJSON(ctx, http.MethodPost, "/users", map[string]any{"user": user}, &created)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "create user", err)
	}
	if created.User == nil {
		return nil, fmt.Errorf("zendesk returned no user")
	}
	return a.recordFromUser(created.User), nil
}

func (a *Adapter) Update(ctx context.Context, record *models.CustomerRecord) error {
	id := record.ExternalIDs[a.name]
	if id == "" {
		id = record.CustomerID
	}

	user := map[string]any{
		"name":  joinName(record.FirstName, record.LastName),
		"email": record.Email,
		"phone": record.Phone,
	}
	if len(record.CustomFields) > 0 {
		user["user_fields"] = record.CustomFields
	}

	var updated userEnvelope
	err := a.client.DoJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(id),
		map[string]any{"user": user}, &updated)
	if err != nil {
		return providers.NewConnectionError(a.name, "update user", err)
	}
	if updated.User == nil {
		return fmt.Errorf("zendesk did not acknowledge update of user %s", id)
	}
	return nil
}

func (a *Adapter) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	var result struct {
		Tickets []map[string]any `json:"tickets"`
	}
	path := "/users/" + url.PathEscape(customerID) + "/tickets/requested"
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, providers.NewConnectionError(a.name, "list requested tickets", err)
	}

	history := make([]models.Interaction, 0, len(result.Tickets))
	for _, ticket := range result.Tickets {
		history = append(history, models.Interaction{
			ID:          fieldmap.Stringify(ticket["id"]),
			Type:        "ticket",
			Subject:     fieldmap.Stringify(ticket["subject"]),
			Content:     fieldmap.Stringify(ticket["description"]),
			Status:      fieldmap.Stringify(ticket["status"]),
			Priority:    fieldmap.Stringify(ticket["priority"]),
			CreatedDate: fieldmap.Stringify(ticket["created_at"]),
			Source:      a.name,
		})
	}
	return history, nil
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error) {
	var list userList
	path := "/users/search.json?query=" + url.QueryEscape(query)
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, providers.NewConnectionError(a.name, "search users", err)
	}

	users := list.Users
	if len(users) > limit {
		users = users[:limit]
	}
	records := make([]*models.CustomerRecord, 0, len(users))
	for _, user := range users {
		records = append(records, a.recordFromUser(user))
	}
	return records, nil
}

func (a *Adapter) TestConnection(ctx context.Context) providers.ConnectionStatus {
	var me userEnvelope
	if err := a.client.DoJSON(ctx, http.MethodGet, "/users/me", nil, &me); err != nil {
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

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
