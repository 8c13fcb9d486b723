package models

import (
	"time"

	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
)

// mergeFields are the canonical fields the merge engine reconciles
// value-by-value across providers.
var mergeFields = []string{
	fieldmap.FieldFirstName,
	fieldmap.FieldLastName,
	fieldmap.FieldName,
	fieldmap.FieldEmail,
	fieldmap.FieldPhone,
	fieldmap.FieldCompany,
}

// MergeProviderData reconciles base with data from another provider and
// returns a new record; base is never mutated.
//
// For each merge field the candidate value wins only when it is non-empty and
// either the base value is empty or the candidate is strictly longer. Length
// is a proxy for completeness here, not a correctness guarantee: a longer but
// stale value beats a shorter current one. Candidate custom fields overwrite
// on collision, provenance unions, and the candidate's external id wins its
// provider's slot.
func MergeProviderData(base *CustomerRecord, data map[string]any, providerName string, mapping fieldmap.Mapping) *CustomerRecord {
	candidate := NewFromProviderData(data, providerName, mapping)

	merged := base.Clone()

	for _, field := range mergeFields {
		candidateValue := candidate.Canonical(field)
		if candidateValue == "" {
			continue
		}
		baseValue := merged.Canonical(field)
		if baseValue == "" || len(candidateValue) > len(baseValue) {
			merged.setCanonical(field, candidateValue)
		}
	}

	if len(candidate.CustomFields) > 0 && merged.CustomFields == nil {
		merged.CustomFields = make(map[string]any, len(candidate.CustomFields))
	}
	for key, value := range candidate.CustomFields {
		merged.CustomFields[key] = value
	}

	if !merged.HasDataSource(providerName) {
		merged.DataSources = append(merged.DataSources, providerName)
	}

	if merged.ExternalIDs == nil {
		merged.ExternalIDs = make(map[string]string, len(candidate.ExternalIDs))
	}
	for provider, id := range candidate.ExternalIDs {
		merged.ExternalIDs[provider] = id
	}

	merged.UpdatedAt = time.Now()
	return merged
}
