// Package salesforce implements the customer data provider contract against
// the Salesforce REST API. Contacts are the customer entity and Cases form
// the interaction history.
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kindredhq/kindred-engine/pkg/apperrors"
	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
	"github.com/kindredhq/kindred-engine/pkg/models"
	"github.com/kindredhq/kindred-engine/pkg/providers"
)

// tokenLifetime is how long an issued access token is trusted before a
// fresh one is requested. Salesforce session timeouts default to two hours;
// the slack keeps a token from expiring mid-request.
const (
	tokenLifetime = 2 * time.Hour
	tokenSlack    = time.Minute
)

// defaultMapping translates canonical fields to Salesforce Contact fields
// when the integration declares no mapping of its own.
var defaultMapping = fieldmap.Mapping{
	fieldmap.FieldFirstName: "FirstName",
	fieldmap.FieldLastName:  "LastName",
	fieldmap.FieldEmail:     "Email",
	fieldmap.FieldPhone:     "Phone",
	fieldmap.FieldCompany:   "Account.Name",
}

// Adapter is a Salesforce-backed customer data provider.
type Adapter struct {
	name    string
	cfg     *Config
	mapping fieldmap.Mapping
	client  *providers.RESTClient
	logger  *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	// tokenClient posts the form-encoded OAuth request; token issuance does
	// not go through the JSON client.
	tokenClient *http.Client
}

// NewAdapter creates a Salesforce adapter for one configured integration.
func NewAdapter(name string, cfg *Config, mapping fieldmap.Mapping, logger *zap.Logger) *Adapter {
	if len(mapping) == 0 {
		mapping = defaultMapping
	}
	a := &Adapter{
		name:        name,
		cfg:         cfg,
		mapping:     mapping,
		logger:      logger,
		tokenClient: &http.Client{Timeout: providers.DefaultRequestTimeout},
	}
	a.client = providers.NewRESTClient(
		cfg.InstanceURL+"/services/data/"+cfg.APIVersion,
		0,
		func(req *http.Request) {
			a.mu.Lock()
			token := a.accessToken
			a.mu.Unlock()
			req.Header.Set("Authorization", "Bearer "+token)
		},
	)
	return a
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return models.ProviderTypeSalesforce }

// ensureToken refreshes the cached OAuth token when missing or near expiry.
func (a *Adapter) ensureToken(ctx context.Context) error {
	a.mu.Lock()
	valid := a.accessToken != "" && time.Now().Before(a.tokenExpiry.Add(-tokenSlack))
	a.mu.Unlock()
	if valid {
		return nil
	}

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"username":      {a.cfg.Username},
		"password":      {a.cfg.Password + a.cfg.SecurityToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.InstanceURL+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.tokenClient.Do(req)
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("auth failed: HTTP %d: %s", resp.StatusCode, body)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("auth response carried no access token")
	}

	a.mu.Lock()
	a.accessToken = token.AccessToken
	a.tokenExpiry = time.Now().Add(tokenLifetime)
	a.mu.Unlock()
	return nil
}

func (a *Adapter) get(ctx context.Context, path string, out any) error {
	if err := a.ensureToken(ctx); err != nil {
		return err
	}
	return a.client.DoJSON(ctx, http.MethodGet, path, nil, out)
}

type queryResponse struct {
	TotalSize int              `json:"totalSize"`
	Records   []map[string]any `json:"records"`
}

// soqlQuote escapes a literal for inclusion in a SOQL string comparison.
func soqlQuote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return value
}

// recordFromContact normalizes a Contact payload into a customer record.
// Salesforce reports the row id as "Id" and attaches an attributes envelope
// that carries no customer data.
func (a *Adapter) recordFromContact(contact map[string]any) *models.CustomerRecord {
	data := make(map[string]any, len(contact))
	for key, value := range contact {
		data[key] = value
	}
	delete(data, "attributes")
	if id, ok := data["Id"]; ok {
		data["id"] = id
		delete(data, "Id")
	}
	return models.NewFromProviderData(data, a.name, a.mapping)
}

func (a *Adapter) GetByID(ctx context.Context, id string) (*models.CustomerRecord, error) {
	var contact map[string]any
	err := a.get(ctx, "/sobjects/Contact/"+url.PathEscape(id), &contact)
	if err != nil {
		if providers.IsHTTPStatus(err, http.StatusNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, providers.NewConnectionError(a.name, "get contact", err)
	}
	return a.recordFromContact(contact), nil
}

func (a *Adapter) getByField(ctx context.Context, field, value string) (*models.CustomerRecord, error) {
	soql := fmt.Sprintf(
		"SELECT Id, FirstName, LastName, Email, Phone, Account.Name FROM Contact WHERE %s = '%s' LIMIT 1",
		field, soqlQuote(value))

	var result queryResponse
	if err := a.get(ctx, "/query/?q="+url.QueryEscape(soql), &result); err != nil {
		return nil, providers.NewConnectionError(a.name, "query contact", err)
	}
	if len(result.Records) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return a.recordFromContact(result.Records[0]), nil
}

func (a *Adapter) GetByEmail(ctx context.Context, email string) (*models.CustomerRecord, error) {
	return a.getByField(ctx, "Email", email)
}

func (a *Adapter) GetByPhone(ctx context.Context, phone string) (*models.CustomerRecord, error) {
	return a.getByField(ctx, "Phone", phone)
}

func (a *Adapter) Create(ctx context.Context, data map[string]any) (*models.CustomerRecord, error) {
	lastName := fieldmap.Stringify(data["last_name"])
	if lastName == "" {
		lastName = fieldmap.Stringify(data["name"])
	}
	if lastName == "" {
		// Contact.LastName is mandatory in Salesforce.
		lastName = "Unknown"
	}

	payload := map[string]any{
		"FirstName":  fieldmap.Stringify(data["first_name"]),
		"LastName":   lastName,
		"Email":      fieldmap.Stringify(data["email"]),
		"Phone":      fieldmap.Stringify(data["phone"]),
		"LeadSource": "Customer Service",
	}
	if custom, ok := data["custom_fields"].(map[string]any); ok {
		for key, value := range custom {
			if strings.HasSuffix(key, "__c") {
				payload[key] = value
			}
		}
	}

	if err := a.ensureToken(ctx); err != nil {
		return nil, providers.NewConnectionError(a.name, "create contact", err)
	}

	var result struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
		Errors  []any  `json:"errors"`
	}
	if err := a.client.DoJSON(ctx, http.MethodPost, "/sobjects/Contact", payload, &result); err != nil {
		return nil, providers.NewConnectionError(a.name, "create contact", err)
	}
	if !result.Success || result.ID == "" {
		return nil, fmt.Errorf("salesforce rejected contact: %v", result.Errors)
	}

	return a.GetByID(ctx, result.ID)
}

func (a *Adapter) Update(ctx context.Context, record *models.CustomerRecord) error {
	id := record.ExternalIDs[a.name]
	if id == "" {
		id = record.CustomerID
	}

	payload := map[string]any{
		"FirstName": record.FirstName,
		"LastName":  record.LastName,
		"Email":     record.Email,
		"Phone":     record.Phone,
	}
	for key, value := range record.CustomFields {
		if strings.HasSuffix(key, "__c") {
			payload[key] = value
		}
	}

	if err := a.ensureToken(ctx); err != nil {
		return providers.NewConnectionError(a.name, "update contact", err)
	}
	if err := a.client.DoJSON(ctx, http.MethodPatch, "/sobjects/Contact/"+url.PathEscape(id), payload, nil); err != nil {
		return providers.NewConnectionError(a.name, "update contact", err)
	}
	return nil
}

func (a *Adapter) History(ctx context.Context, customerID string) ([]models.Interaction, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Subject, Description, Status, CreatedDate, Priority FROM Case WHERE ContactId = '%s' ORDER BY CreatedDate DESC",
		soqlQuote(customerID))

	var result queryResponse
	if err := a.get(ctx, "/query/?q="+url.QueryEscape(soql), &result); err != nil {
		return nil, providers.NewConnectionError(a.name, "query cases", err)
	}

	history := make([]models.Interaction, 0, len(result.Records))
	for _, record := range result.Records {
		history = append(history, models.Interaction{
			ID:          fieldmap.Stringify(record["Id"]),
			Type:        "case",
			Subject:     fieldmap.Stringify(record["Subject"]),
			Content:     fieldmap.Stringify(record["Description"]),
			Status:      fieldmap.Stringify(record["Status"]),
			Priority:    fieldmap.Stringify(record["Priority"]),
			CreatedDate: fieldmap.Stringify(record["CreatedDate"]),
			Source:      a.name,
		})
	}
	return history, nil
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]*models.CustomerRecord, error) {
	sosl := fmt.Sprintf(
		"FIND {*%s*} IN ALL FIELDS RETURNING Contact(Id, FirstName, LastName, Email, Phone) LIMIT %d",
		soslQuote(query), limit)

	var result struct {
		SearchRecords []map[string]any `json:"searchRecords"`
	}
	if err := a.get(ctx, "/search/?q="+url.QueryEscape(sosl), &result); err != nil {
		return nil, providers.NewConnectionError(a.name, "search contacts", err)
	}

	records := make([]*models.CustomerRecord, 0, len(result.SearchRecords))
	for _, contact := range result.SearchRecords {
		records = append(records, a.recordFromContact(contact))
	}
	return records, nil
}

// soslQuote escapes the characters SOSL reserves inside FIND clauses.
func soslQuote(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`{`, `\{`,
		`}`, `\}`,
		`"`, `\"`,
		`'`, `\'`,
	)
	return replacer.Replace(value)
}

func (a *Adapter) TestConnection(ctx context.Context) providers.ConnectionStatus {
	var result queryResponse
	err := a.get(ctx, "/query/?q="+url.QueryEscape("SELECT Id FROM Contact LIMIT 1"), &result)
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
