// Package fieldmap translates provider-native field names to the canonical
// customer schema. Mappings are declared per integration as canonical field →
// provider-native field; anything the mapping does not claim is preserved
// verbatim as extension data.
package fieldmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical field names. This is the closed schema for customer records:
// a key is either one of these or it routes to the custom bag. There is no
// reflection-based field discovery.
const (
	FieldName          = "name"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldCompany       = "company"
	FieldJobTitle      = "job_title"
	FieldTier          = "tier"
	FieldAccountStatus = "account_status"
)

var canonicalFields = map[string]struct{}{
	FieldName:          {},
	FieldFirstName:     {},
	FieldLastName:      {},
	FieldEmail:         {},
	FieldPhone:         {},
	FieldCompany:       {},
	FieldJobTitle:      {},
	FieldTier:          {},
	FieldAccountStatus: {},
}

// IsCanonical reports whether name is part of the canonical customer schema.
func IsCanonical(name string) bool {
	_, ok := canonicalFields[name]
	return ok
}

// CanonicalFields returns the canonical schema field names.
func CanonicalFields() []string {
	fields := make([]string, 0, len(canonicalFields))
	for f := range canonicalFields {
		fields = append(fields, f)
	}
	return fields
}

// Mapping declares canonical field → provider-native field. Provider fields
// may use dotted paths ("Account.Name") to descend into nested objects.
type Mapping map[string]string

// Apply maps provider-native data onto canonical fields.
//
// With a configured mapping, each canonical field is resolved through its
// provider-native path; a missing path is a silent miss. Provider keys not
// referenced by the mapping's value set are returned in the custom bag
// unchanged. With no mapping, keys that are themselves canonical names map
// through and everything else goes to the custom bag.
func Apply(data map[string]any, mapping Mapping) (fields map[string]string, custom map[string]any) {
	fields = make(map[string]string)
	custom = make(map[string]any)

	if len(mapping) == 0 {
		for key, value := range data {
			if IsCanonical(key) {
				if s := Stringify(value); s != "" {
					fields[key] = s
				}
				continue
			}
			custom[key] = value
		}
		return fields, custom
	}

	mappedProviderKeys := make(map[string]struct{}, len(mapping))
	for canonical, providerField := range mapping {
		mappedProviderKeys[providerField] = struct{}{}

		if !IsCanonical(canonical) {
			continue
		}
		value, ok := lookupPath(data, providerField)
		if !ok {
			continue
		}
		if s := Stringify(value); s != "" {
			fields[canonical] = s
		}
	}

	for key, value := range data {
		if _, claimed := mappedProviderKeys[key]; claimed {
			continue
		}
		custom[key] = value
	}

	return fields, custom
}

// ToProvider builds a provider-native payload from canonical field values,
// placing each value under its mapped provider field. Dotted paths produce
// nested objects. Canonical fields without a mapping entry are carried under
// their canonical name so that unmapped integrations still round-trip.
func ToProvider(fields map[string]string, mapping Mapping) map[string]any {
	out := make(map[string]any)
	for canonical, value := range fields {
		if value == "" {
			continue
		}
		providerField, ok := mapping[canonical]
		if !ok {
			providerField = canonical
		}
		setPath(out, providerField, value)
	}
	return out
}

// Invert flips a mapping into provider-native field → canonical field.
// Used when reconciling provider responses against what was sent.
func Invert(mapping Mapping) map[string]string {
	inverted := make(map[string]string, len(mapping))
	for canonical, providerField := range mapping {
		inverted[providerField] = canonical
	}
	return inverted
}

// lookupPath resolves a possibly-dotted path inside nested provider data.
// A missing intermediate is a miss, not an error.
func lookupPath(data map[string]any, path string) (any, bool) {
	if !strings.Contains(path, ".") {
		value, ok := data[path]
		return value, ok
	}

	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at a possibly-dotted path, creating intermediate maps.
func setPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Stringify renders a provider value as a canonical string field. JSON
// numbers arrive as float64; integer-valued ids must not grow an exponent.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
