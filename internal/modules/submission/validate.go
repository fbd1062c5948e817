package submission

import (
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"github.com/formvoice/core/internal/modules/formbuilder"
)

// Validate checks mapped submission data against every field's rules and
// returns all violations together, or nil.
func Validate(fields []formbuilder.Field, data map[string]any) error {
	var vs Violations
	for _, f := range fields {
		vs = append(vs, validateField(f, data[f.Key])...)
	}
	if len(vs) == 0 {
		return nil
	}
	return vs
}

func validateField(f formbuilder.Field, v any) Violations {
	var out Violations

	required, requiredMsg := f.Required, ""
	for _, r := range f.ValidationRules {
		if r.Type == formbuilder.RuleRequired {
			required = true
			if requiredMsg == "" {
				requiredMsg = r.Message
			}
		}
	}

	if isEmpty(f, v) {
		if required {
			out = append(out, requiredFieldMissing(f.Key, requiredMsg))
		}
		return out
	}

	if f.Type == formbuilder.FieldNumber {
		if _, ok := asFloat(v); !ok {
			return append(out, invalidNumber(f.Key))
		}
	}

	emailChecked := false
	if f.Type == formbuilder.FieldEmail {
		emailChecked = true
		if !isEmail(v) {
			out = append(out, invalidEmailFormat(f.Key, ruleMessage(f, formbuilder.RuleEmail)))
		}
	}

	if f.Type.HasOptions() && len(f.Options) > 0 && !inOptions(f.Options, v) {
		out = append(out, invalidOption(f.Key))
	}

	for _, r := range f.ValidationRules {
		switch r.Type {
		case formbuilder.RuleEmail:
			if emailChecked {
				continue
			}
			emailChecked = true
			if !isEmail(v) {
				out = append(out, invalidEmailFormat(f.Key, r.Message))
			}
		case formbuilder.RuleMin, formbuilder.RuleMax:
			bound, ok := asFloat(r.Value)
			if !ok {
				continue
			}
			measured, ok := measure(f, v)
			if !ok {
				continue
			}
			if (r.Type == formbuilder.RuleMin && measured < bound) ||
				(r.Type == formbuilder.RuleMax && measured > bound) {
				out = append(out, outOfRange(f.Key, bound, r.Message))
			}
		case formbuilder.RulePattern:
			expr, _ := r.Value.(string)
			if expr == "" {
				continue
			}
			if !formbuilder.MatchPattern(expr, toText(v)) {
				out = append(out, patternMismatch(f.Key, r.Message))
			}
		}
	}
	return out
}

// measure returns the numeric value for number fields and the rune length for
// text-like fields; other types are not range-checked.
func measure(f formbuilder.Field, v any) (float64, bool) {
	if f.Type == formbuilder.FieldNumber {
		return asFloat(v)
	}
	if f.Type.IsTextual() {
		return float64(utf8.RuneCountInString(toText(v))), true
	}
	return 0, false
}

func isEmpty(f formbuilder.Field, v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return f.Type == formbuilder.FieldCheckbox && !t
	case []any:
		return len(t) == 0
	}
	return false
}

func isEmail(v any) bool {
	s, ok := v.(string)
	return ok && govalidator.IsEmail(strings.TrimSpace(s))
}

func inOptions(opts []formbuilder.Option, v any) bool {
	want := toText(v)
	for _, o := range opts {
		if toText(o.Value) == want {
			return true
		}
	}
	return false
}

func ruleMessage(f formbuilder.Field, t formbuilder.RuleType) string {
	for _, r := range f.ValidationRules {
		if r.Type == t && r.Message != "" {
			return r.Message
		}
	}
	return ""
}
