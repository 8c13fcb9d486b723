// Package models contains domain types for kindred-engine.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
)

// Customer tier constants.
const (
	TierStandard   = "standard"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

// DefaultAccountStatus is assigned to records that arrive without one.
const DefaultAccountStatus = "active"

// ConversationSource marks records synthesized from conversation-collected
// data rather than fetched from an integration.
const ConversationSource = "conversation"

// interactionHistoryKey is the custom-fields slot holding recent interactions.
const interactionHistoryKey = "interaction_history"

// maxInteractionHistory caps the per-record interaction history; oldest
// entries are dropped first.
const maxInteractionHistory = 10

// CustomerRecord is the normalized representation of a customer, independent
// of the provider it came from. Scores are never computed on construction;
// callers recompute them after any field change they care about.
type CustomerRecord struct {
	CustomerID  string            `json:"customer_id"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`

	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	JobTitle  string `json:"job_title,omitempty"`

	Tier          string   `json:"tier"`
	AccountStatus string   `json:"account_status"`
	Tags          []string `json:"tags,omitempty"`

	CustomFields map[string]any `json:"custom_fields,omitempty"`

	DataSource  string   `json:"data_source,omitempty"`
	DataSources []string `json:"data_sources,omitempty"`

	DataQualityScore  float64 `json:"data_quality_score"`
	CompletenessScore float64 `json:"completeness_score"`

	InteractionCount int        `json:"interaction_count"`
	LastInteraction  *time.Time `json:"last_interaction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InteractionRecord is one entry in a record's interaction history.
type InteractionRecord struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// NewFromProviderData builds a CustomerRecord from provider-native data via
// the field mapper. The provider's id ("id" or "customer_id" key) becomes the
// record's customer_id and its external id for that provider.
func NewFromProviderData(data map[string]any, providerName string, mapping fieldmap.Mapping) *CustomerRecord {
	now := time.Now()
	record := &CustomerRecord{
		Tier:          TierStandard,
		AccountStatus: DefaultAccountStatus,
		DataSource:    providerName,
		DataSources:   []string{providerName},
		ExternalIDs:   make(map[string]string),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	fields, custom := fieldmap.Apply(data, mapping)

	if id, ok := data["id"]; ok {
		record.CustomerID = fieldmap.Stringify(id)
	} else if id, ok := data["customer_id"]; ok {
		record.CustomerID = fieldmap.Stringify(id)
	}
	delete(custom, "id")
	delete(custom, "customer_id")

	for field, value := range fields {
		record.setCanonical(field, value)
	}
	if len(custom) > 0 {
		record.CustomFields = custom
	}

	record.composeName()

	if record.CustomerID != "" {
		record.ExternalIDs[providerName] = record.CustomerID
	}

	return record
}

// NewFromGatheredData synthesizes a record from fields collected during a
// conversation. The record gets a temp_* id until a provider persists it;
// keys outside the canonical schema route to custom fields.
func NewFromGatheredData(gathered map[string]any) *CustomerRecord {
	now := time.Now()
	record := &CustomerRecord{
		CustomerID:    "temp_" + uuid.NewString()[:8],
		Tier:          TierStandard,
		AccountStatus: DefaultAccountStatus,
		DataSource:    ConversationSource,
		DataSources:   []string{ConversationSource},
		ExternalIDs:   make(map[string]string),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for key, value := range gathered {
		if fieldmap.IsCanonical(key) {
			record.setCanonical(key, fieldmap.Stringify(value))
			continue
		}
		if record.CustomFields == nil {
			record.CustomFields = make(map[string]any)
		}
		record.CustomFields[key] = value
	}

	record.composeName()
	return record
}

// setCanonical assigns a canonical field by name. The switch is the closed
// schema; unknown names are dropped (the mapper routes those to custom).
func (r *CustomerRecord) setCanonical(field, value string) {
	switch field {
	case fieldmap.FieldName:
		r.Name = value
	case fieldmap.FieldFirstName:
		r.FirstName = value
	case fieldmap.FieldLastName:
		r.LastName = value
	case fieldmap.FieldEmail:
		r.Email = value
	case fieldmap.FieldPhone:
		r.Phone = value
	case fieldmap.FieldCompany:
		r.Company = value
	case fieldmap.FieldJobTitle:
		r.JobTitle = value
	case fieldmap.FieldTier:
		r.Tier = value
	case fieldmap.FieldAccountStatus:
		r.AccountStatus = value
	}
}

// Canonical returns a canonical field's value by name, empty for unknown
// names.
func (r *CustomerRecord) Canonical(field string) string {
	switch field {
	case fieldmap.FieldName:
		return r.Name
	case fieldmap.FieldFirstName:
		return r.FirstName
	case fieldmap.FieldLastName:
		return r.LastName
	case fieldmap.FieldEmail:
		return r.Email
	case fieldmap.FieldPhone:
		return r.Phone
	case fieldmap.FieldCompany:
		return r.Company
	case fieldmap.FieldJobTitle:
		return r.JobTitle
	case fieldmap.FieldTier:
		return r.Tier
	case fieldmap.FieldAccountStatus:
		return r.AccountStatus
	}
	return ""
}

// CanonicalFields returns the record's populated canonical fields as a map,
// the input shape the field mapper's provider-bound direction expects.
func (r *CustomerRecord) CanonicalFields() map[string]string {
	out := make(map[string]string)
	for _, field := range fieldmap.CanonicalFields() {
		if value := r.Canonical(field); value != "" {
			out[field] = value
		}
	}
	return out
}

// composeName fills Name from the name parts when absent.
func (r *CustomerRecord) composeName() {
	if r.Name != "" || (r.FirstName == "" && r.LastName == "") {
		return
	}
	parts := make([]string, 0, 2)
	if r.FirstName != "" {
		parts = append(parts, r.FirstName)
	}
	if r.LastName != "" {
		parts = append(parts, r.LastName)
	}
	r.Name = strings.Join(parts, " ")
}

// DisplayName returns the best human-readable name for the customer:
// full name, then first+last, then first name, then the email local part,
// then "Customer <id>".
func (r *CustomerRecord) DisplayName() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.FirstName != "" && r.LastName != "":
		return r.FirstName + " " + r.LastName
	case r.FirstName != "":
		return r.FirstName
	case r.Email != "":
		return strings.SplitN(r.Email, "@", 2)[0]
	default:
		return fmt.Sprintf("Customer %s", r.CustomerID)
	}
}

// ContactInfo returns the contact channels present on the record.
func (r *CustomerRecord) ContactInfo() map[string]string {
	info := make(map[string]string)
	if r.Email != "" {
		info["email"] = r.Email
	}
	if r.Phone != "" {
		info["phone"] = r.Phone
	}
	return info
}

// AddInteraction appends an interaction to the record's history, bumping the
// interaction counters. History is capped at the 10 most recent entries.
func (r *CustomerRecord) AddInteraction(interactionType string, details map[string]any) {
	now := time.Now()
	r.InteractionCount++
	r.LastInteraction = &now
	r.UpdatedAt = now

	if r.CustomFields == nil {
		r.CustomFields = make(map[string]any)
	}

	history, _ := r.CustomFields[interactionHistoryKey].([]InteractionRecord)
	history = append(history, InteractionRecord{
		Type:      interactionType,
		Timestamp: now,
		Details:   details,
	})
	if len(history) > maxInteractionHistory {
		history = history[len(history)-maxInteractionHistory:]
	}
	r.CustomFields[interactionHistoryKey] = history
}

// InteractionHistory returns the record's recent interactions, most recent
// last. Nil when the record has none.
func (r *CustomerRecord) InteractionHistory() []InteractionRecord {
	history, _ := r.CustomFields[interactionHistoryKey].([]InteractionRecord)
	return history
}

// Clone returns a copy of the record safe to mutate independently. Maps and
// slices are copied one level deep, which covers every mutation the merge
// engine performs.
func (r *CustomerRecord) Clone() *CustomerRecord {
	clone := *r

	if r.ExternalIDs != nil {
		clone.ExternalIDs = make(map[string]string, len(r.ExternalIDs))
		for k, v := range r.ExternalIDs {
			clone.ExternalIDs[k] = v
		}
	}
	if r.DataSources != nil {
		clone.DataSources = append([]string(nil), r.DataSources...)
	}
	if r.Tags != nil {
		clone.Tags = append([]string(nil), r.Tags...)
	}
	if r.CustomFields != nil {
		clone.CustomFields = make(map[string]any, len(r.CustomFields))
		for k, v := range r.CustomFields {
			if history, ok := v.([]InteractionRecord); ok {
				clone.CustomFields[k] = append([]InteractionRecord(nil), history...)
				continue
			}
			clone.CustomFields[k] = v
		}
	}

	return &clone
}

// HasDataSource reports whether providerName has contributed to this record.
func (r *CustomerRecord) HasDataSource(providerName string) bool {
	for _, source := range r.DataSources {
		if source == providerName {
			return true
		}
	}
	return false
}
