package submission

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/formvoice/core/internal/modules/formbuilder"
)

// ToSubmissionData keeps only values whose key names a field and coerces
// checkbox input to bool and number input to float64 (nil when empty).
// Number input that does not parse is kept verbatim so Validate can report it.
func ToSubmissionData(fields []formbuilder.Field, values map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok := values[f.Key]
		if !ok {
			continue
		}
		switch f.Type {
		case formbuilder.FieldCheckbox:
			out[f.Key] = toBool(v)
		case formbuilder.FieldNumber:
			out[f.Key] = toNumber(v)
		default:
			out[f.Key] = v
		}
	}
	return out
}

// Prefill is the editor value set rebuilt from a stored submission.
type Prefill struct {
	Values map[string]any `json:"values"`
	// Dropped lists stored keys that no longer match any field.
	Dropped []string `json:"dropped,omitempty"`
}

// FromSubmission is the inverse of ToSubmissionData. Stored keys with no
// matching field are left out of Values and listed in Dropped.
func FromSubmission(fields []formbuilder.Field, data map[string]any) Prefill {
	known := make(map[string]formbuilder.Field, len(fields))
	for _, f := range fields {
		known[f.Key] = f
	}

	p := Prefill{Values: make(map[string]any, len(fields))}
	for key, v := range data {
		f, ok := known[key]
		if !ok {
			p.Dropped = append(p.Dropped, key)
			continue
		}
		switch f.Type {
		case formbuilder.FieldCheckbox:
			p.Values[key] = toBool(v)
		case formbuilder.FieldNumber:
			p.Values[key] = toNumber(v)
		default:
			p.Values[key] = v
		}
	}
	sort.Strings(p.Dropped)
	return p
}

func toBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "on", "yes", "1", "checked":
			return true
		}
		return false
	case []any:
		return len(t) > 0
	default:
		if f, ok := asFloat(v); ok {
			return f != 0
		}
		return false
	}
}

func toNumber(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
			return f
		}
		return t
	default:
		if f, ok := asFloat(v); ok {
			return f
		}
		return v
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, finite(t)
	case float32:
		return float64(t), finite(float64(t))
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && finite(f)
	}
	return 0, false
}

// finite rejects NaN and the infinities, which ParseFloat accepts but JSON
// cannot store.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
