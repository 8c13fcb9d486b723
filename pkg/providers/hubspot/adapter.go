// Package hubspot implements the customer data provider contract against the
// HubSpot CRM v3 API. Contacts are the customer entity and Tickets form the
// interaction history.
package hubspot

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

// historyPageSize bounds the ticket scan used to assemble interaction
// history. HubSpot exposes ticket associations per page, not per contact.
const historyPageSize = 100

// defaultMapping translates canonical fields to HubSpot contact properties
// when the integration declares no mapping of its own.
var defaultMapping = fieldmap.Mapping{
	fieldmap.FieldFirstName: "firstname",
	fieldmap.FieldLastName:  "lastname",
	fieldmap.FieldEmail:     "email",
	fieldmap.FieldPhone:     "phone",
	fieldmap.FieldCompany:   "company",
	fieldmap.FieldJobTitle:  "jobtitle",
}

// Adapter is a HubSpot-backed customer data provider.
type Adapter struct {
	name    string
	mapping fieldmap.Mapping
	client  *providers.RESTClient
	logger  *zap.Logger
}

// NewAdapter creates a HubSpot adapter for one configured integration.
func NewAdapter(name string, cfg *Config, mapping fieldmap.Mapping, logger *zap.Logger) *Adapter {
	if len(mapping) == 0 {
		mapping = defaultMapping
	}
	return &Adapter{
		name:    name,
		mapping: mapping,
		logger:  logger,
		client: providers.NewRESTClient(cfg.BaseURL, 0, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+cfg.AccessToken)
		}),
	}
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return models.ProviderTypeHubSpot }

// contactObject is the CRM v3 object envelope: the row id sits beside the
// property bag, never inside it.
type contactObject struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

type contactPage struct {
	Results []contactObject `json:"results"`
}

func (a *Adapter) recordFromContact(contact contactObject) *models.CustomerRecord {
	data := make(map[string]any, len(contact.Properties)+1)
	for key, value := range contact.Properties {
		data[key] = value
	}
	data["customer_id"] = contact.ID
	return models.NewFromProviderData(data, a.name, a.mapping)
}

func (a *Adapter) GetByID(ctx context.Context, id string) (*models.CustomerRecord, error) {
	var contact contactObject
	err := a.client.DoJSON(ctx, http.MethodGet, "/crm/v3/objects/contacts/"+url.PathEscape(id), nil, &contact)
	if err != nil {
		if providers.IsHTTPStatus(err, http.StatusNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, providers.NewConnectionError(a.name, "get contact", err)
	}
	return a.recordFromContact(contact), nil
}

func (a *Adapter) GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error) {
	var contact contactObject
	path := "/crm/v3/objects/contacts/" + url.PathEscape(email) + "?idProperty=email"
	err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &contact)
	if err != nil {
		if providers.IsHTTPStatus(err, http.StatusNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, providers.NewConnectionError(a.name, "get contact by email", err)
	}
	return a.recordFromContact(contact), nil
}

func (a *Adapter) GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error) {
	search := map[string]any{
		"filterGroups": []any{
			map[string]any{
				"filters": []any{
					map[string]any{
						"propertyName": "phone",
						"operator":     "EQ",
						"value":        phone,
					},
				},
			},
		},
		"limit": 1,
	}

	var page contactPage
	err := a.client.DoJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", search, &page)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "search contact by phone", err)
	}
	if len(page.Results) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromContact(page.Results[0]), nil
}

func (a *Adapter) Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error) {
	lastName := fieldmap.Stringify(data["last_name"])
	if lastName == "" {
		lastName = fieldmap.Stringify(data["name"])
	}
	if lastName == "" {
		lastName = "Unknown"
	}

	properties := map[string]any{
		"firstname":      fieldmap.Stringify(data["first_name"]),
		"lastname":       lastName,
		"email":          fieldmap.Stringify(data["email"]),
		"phone":          fieldmap.Stringify(data["phone"]),
		"hs_lead_status": "NEW",
	}
	if custom, ok := data["custom_fields"].(map[string]any); ok {
		for key, value := range custom {
			properties[key] = value
		}
	}

	var created contactObject
	err := a.client.DoJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts",
		map[string]any{"properties": properties}, &created)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "create contact", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("hubspot returned no contact id")
	}

	return a.GetByID(ctx, created.ID)
}

func (a *Adapter) Update(ctx context.Context, record *models.CustomerRecord) error {
	id := record.ExternalIDs[a.name]
	if id == "" {
		id = record.CustomerID
	}

	properties := map[string]any{
		"firstname": record.FirstName,
		"lastname":  record.LastName,
		"email":     record.Email,
		"phone":     record.Phone,
	}
	for key, value := range record.CustomFields {
		properties[key] = value
	}

	var updated contactObject
	err := a.client.DoJSON(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+url.PathEscape(id),
		map[string]any{"properties": properties}, &updated)
	if err != nil {
		return providers.NewConnectionError(a.name, "update contact", err)
	}
	if updated.ID == "" {
		return fmt.Errorf("hubspot did not acknowledge update of contact %s", id)
	}
	return nil
}

type ticketObject struct {
	ID           string         `json:"id"`
	Properties   map[string]any `json:"properties"`
	Associations struct {
		Contacts struct {
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
		} `json:"contacts"`
	} `json:"associations"`
}

func (a *Adapter) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	var page struct {
		Results []ticketObject `json:"results"`
	}
	path := "/crm/v3/objects/tickets?associations=contact&limit=" + strconv.Itoa(historyPageSize)
	if err := a.client.DoJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, providers.NewConnectionError(a.name, "list tickets", err)
	}

	history := make([]models.Interaction, 0)
	for _, ticket := range page.Results {
		var associated bool
		for _, assoc := range ticket.Associations.Contacts.Results {
			if assoc.ID == customerID {
				associated = true
				break
			}
		}
		if !associated {
			continue
		}

		props := ticket.Properties
		history = append(history, models.Interaction{
			ID:          ticket.ID,
			Type:        "ticket",
			Subject:     fieldmap.Stringify(props["subject"]),
			Content:     fieldmap.Stringify(props["content"]),
			Status:      fieldmap.Stringify(props["hs_ticket_status"]),
			Priority:    fieldmap.Stringify(props["hs_ticket_priority"]),
			CreatedDate: fieldmap.Stringify(props["createdate"]),
			Source:      a.name,
		})
	}
	return history, nil
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error) {
	search := map[string]any{
		"query": query,
		"limit": limit,
		"after": 0,
	}

	var page contactPage
	err := a.client.DoJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", search, &page)
	if err != nil {
		return nil, providers.NewConnectionError(a.name, "search contacts", err)
	}

	records := make([]*models.CustomerRecord, 0, len(page.Results))
	for _, contact := range page.Results {
		records = append(records, a.recordFromContact(contact))
	}
	return records, nil
}

func (a *Adapter) TestConnection(ctx context.Context) providers.ConnectionStatus {
	var page contactPage
	err := a.client.DoJSON(ctx, http.MethodGet, "/crm/v3/objects/contacts?limit=1", nil, &page)
	if err != nil {
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
