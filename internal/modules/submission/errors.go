package submission

import (
	"fmt"
	"strconv"
	"strings"

	"emperror.dev/errors"
)

const (
	ErrRequiredFieldMissing = errors.Sentinel("required field missing")
	ErrInvalidEmailFormat   = errors.Sentinel("invalid email format")
	ErrOutOfRange           = errors.Sentinel("value out of range")
	ErrPatternMismatch      = errors.Sentinel("pattern mismatch")
	ErrInvalidNumber        = errors.Sentinel("not a number")
	ErrInvalidOption        = errors.Sentinel("value is not one of the options")
)

// Violation is a single failed check for one field.
type Violation struct {
	Kind    error    `json:"-"`
	Code    string   `json:"code"`
	Key     string   `json:"key"`
	Bound   *float64 `json:"bound,omitempty"`
	Message string   `json:"message"`
}

func (v Violation) Error() string {
	if v.Bound != nil {
		return fmt.Sprintf("%s: %s (bound %s)", v.Key, v.Kind, strconv.FormatFloat(*v.Bound, 'f', -1, 64))
	}
	return fmt.Sprintf("%s: %s", v.Key, v.Kind)
}

func (v Violation) Unwrap() error { return v.Kind }

// Violations is every failure found in one submission, in field order.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Error()
	}
	return "submission invalid: " + strings.Join(parts, "; ")
}

func (vs Violations) Unwrap() []error {
	out := make([]error, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// ForKey returns the violations reported for one field key.
func (vs Violations) ForKey(key string) Violations {
	var out Violations
	for _, v := range vs {
		if v.Key == key {
			out = append(out, v)
		}
	}
	return out
}

// AsViolations extracts the batch from err.
func AsViolations(err error) (Violations, bool) {
	var vs Violations
	if errors.As(err, &vs) {
		return vs, true
	}
	return nil, false
}

func newViolation(kind error, code, key, message string) Violation {
	if message == "" {
		message = kind.Error()
	}
	return Violation{Kind: kind, Code: code, Key: key, Message: message}
}

func requiredFieldMissing(key, msg string) Violation {
	return newViolation(ErrRequiredFieldMissing, "required_field_missing", key, msg)
}

func invalidEmailFormat(key, msg string) Violation {
	return newViolation(ErrInvalidEmailFormat, "invalid_email_format", key, msg)
}

func outOfRange(key string, bound float64, msg string) Violation {
	v := newViolation(ErrOutOfRange, "out_of_range", key, msg)
	v.Bound = &bound
	return v
}

func patternMismatch(key, msg string) Violation {
	return newViolation(ErrPatternMismatch, "pattern_mismatch", key, msg)
}

func invalidNumber(key string) Violation {
	return newViolation(ErrInvalidNumber, "invalid_number", key, "")
}

func invalidOption(key string) Violation {
	return newViolation(ErrInvalidOption, "invalid_option", key, "")
}
