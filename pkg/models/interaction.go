package models

// Interaction is one provider-side interaction record: a Salesforce case, a
// HubSpot or Zendesk ticket, a Shopify order, or a database row. CreatedDate
// carries the provider's native timestamp string; formats vary by source.
type Interaction struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Subject     string `json:"subject,omitempty"`
	Content     string `json:"content,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
	Source      string `json:"source"`
}
