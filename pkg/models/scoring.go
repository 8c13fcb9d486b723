package models

import (
	"strings"

	"github.com/kindredhq/kindred-engine/pkg/fieldmap"
)

// requiredFieldWeight weights required fields heavier than optional ones in
// the completeness score.
const requiredFieldWeight = 1.5

// CalculateCompleteness computes the weighted fraction of required and
// optional fields populated on the record. Required fields count 1.5x,
// optional 1x. A field is present when its canonical value is non-empty or,
// failing that, a same-named non-empty custom field exists. The result is
// clamped to [0,1]; with no fields to check the record is trivially complete.
func (r *CustomerRecord) CalculateCompleteness(required, optional []string) float64 {
	if len(required)+len(optional) == 0 {
		return 1.0
	}

	var completed float64
	for _, field := range required {
		if r.hasFieldValue(field) {
			completed += requiredFieldWeight
		}
	}
	for _, field := range optional {
		if r.hasFieldValue(field) {
			completed += 1
		}
	}

	maxPossible := float64(len(required))*requiredFieldWeight + float64(len(optional))
	score := completed / maxPossible
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasFieldValue reports whether a field holds a meaningful value. Canonical
// fields are checked against the schema first, then the custom bag; empty
// strings, slices, and maps all count as absent.
func (r *CustomerRecord) hasFieldValue(field string) bool {
	if fieldmap.IsCanonical(field) {
		if strings.TrimSpace(r.Canonical(field)) != "" {
			return true
		}
	}
	return hasValue(r.CustomFields[field])
}

func hasValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case []InteractionRecord:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case map[string]string:
		return len(v) > 0
	default:
		return true
	}
}

// UpdateDataQualityScore recomputes the record's heuristic quality score and
// stores it. Each populated field contributes a format check; fields that are
// absent are excluded from the average rather than scored as zero. The name
// check always applies: a record with no name at all is a quality problem.
func (r *CustomerRecord) UpdateDataQualityScore() float64 {
	var factors []float64

	if r.Email != "" {
		factors = append(factors, emailQuality(r.Email))
	}
	if r.Phone != "" {
		factors = append(factors, phoneQuality(r.Phone))
	}
	factors = append(factors, r.nameQuality())

	if len(factors) == 0 {
		r.DataQualityScore = 0.0
		return r.DataQualityScore
	}

	var sum float64
	for _, f := range factors {
		sum += f
	}
	r.DataQualityScore = sum / float64(len(factors))
	return r.DataQualityScore
}

// emailQuality scores 1.0 for addresses with an "@" and a dot in the domain.
func emailQuality(email string) float64 {
	at := strings.LastIndex(email, "@")
	if at > 0 && strings.Contains(email[at+1:], ".") {
		return 1.0
	}
	return 0.0
}

// phoneQuality scores 1.0 for numbers with at least 10 digits, 0.5 for
// anything shorter (present but suspect).
func phoneQuality(phone string) float64 {
	digits := 0
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	if digits >= 10 {
		return 1.0
	}
	return 0.5
}

// nameQuality scores 1.0 for a full name (or both parts), 0.7 for a partial
// name, 0.0 for none.
func (r *CustomerRecord) nameQuality() float64 {
	switch {
	case r.Name != "" || (r.FirstName != "" && r.LastName != ""):
		return 1.0
	case r.FirstName != "" || r.LastName != "":
		return 0.7
	default:
		return 0.0
	}
}
