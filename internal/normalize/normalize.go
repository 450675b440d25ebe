// Package normalize provides declarative field mapping between
// free-form JSON records. A Mapping is a table from destination field
// to a rule: either a source-field alias or a pure transform of the
// whole source record, with an optional fallback when the source value
// is absent. Mappings are total - unknown input fields are ignored and
// required outputs get their fallback - which keeps them trivially
// testable without network or storage.
package normalize

// Record is a raw JSON object as decoded by encoding/json.
type Record = map[string]any

// Rule describes how one destination field is produced.
type Rule struct {
	// From names the source field when the mapping is a plain alias.
	From string

	// Transform computes the value from the whole source record.
	// When set, it wins over From.
	Transform func(Record) any

	// Fallback substitutes when the source value is absent or nil.
	Fallback any
}

// Mapping maps destination field name to its rule.
type Mapping map[string]Rule

// Apply produces the destination record. Pure: the source is never
// mutated and rules must be side-effect-free.
func (m Mapping) Apply(src Record) Record {
	dst := make(Record, len(m))
	for field, rule := range m {
		var v any
		switch {
		case rule.Transform != nil:
			v = rule.Transform(src)
		case rule.From != "":
			v = src[rule.From]
		default:
			v = src[field]
		}
		if v == nil {
			v = rule.Fallback
		}
		if v != nil {
			dst[field] = v
		}
	}
	return dst
}

// String reads a string field, returning fallback when absent or of
// another type.
func String(rec Record, key, fallback string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return fallback
}

// Int reads a numeric field. JSON numbers decode as float64, so both
// representations are accepted.
func Int(rec Record, key string, fallback int) int {
	switch v := rec[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// Bool reads a boolean field, returning fallback when absent.
func Bool(rec Record, key string, fallback bool) bool {
	if v, ok := rec[key].(bool); ok {
		return v
	}
	return fallback
}
