package formbuilder

import (
	"time"

	"emperror.dev/errors"
)

// FieldType enumerates the input kinds a form field can render as.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldDate     FieldType = "date"
	FieldFile     FieldType = "file"
	FieldEditor   FieldType = "editor"
)

var fieldTypes = []FieldType{
	FieldText, FieldEmail, FieldNumber, FieldTextarea, FieldSelect,
	FieldCheckbox, FieldRadio, FieldDate, FieldFile, FieldEditor,
}

// FieldTypes returns every supported field type in display order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	for _, v := range fieldTypes {
		if v == t {
			return true
		}
	}
	return false
}

// HasOptions reports whether the type draws its choices from Field.Options.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio
}

// IsTextual reports whether min/max rules measure string length for this type.
func (t FieldType) IsTextual() bool {
	switch t {
	case FieldText, FieldEmail, FieldTextarea, FieldEditor, FieldSelect, FieldRadio, FieldDate:
		return true
	}
	return false
}

// Icon returns the material icon name the admin UI shows for the type.
func (t FieldType) Icon() string {
	switch t {
	case FieldEmail:
		return "email"
	case FieldNumber:
		return "numbers"
	case FieldTextarea:
		return "subject"
	case FieldSelect:
		return "arrow_drop_down"
	case FieldCheckbox:
		return "check_box"
	case FieldRadio:
		return "radio_button_checked"
	case FieldDate:
		return "event"
	case FieldFile, FieldEditor:
		return "attach_file"
	default:
		return "text_fields"
	}
}

// RuleType enumerates validation rule kinds.
type RuleType string

const (
	RuleRequired RuleType = "required"
	RuleEmail    RuleType = "email"
	RuleMin      RuleType = "min"
	RuleMax      RuleType = "max"
	RulePattern  RuleType = "pattern"
)

// Valid reports whether r is a known rule type.
func (r RuleType) Valid() bool {
	switch r {
	case RuleRequired, RuleEmail, RuleMin, RuleMax, RulePattern:
		return true
	}
	return false
}

// Option is one label/value choice of a select or radio field.
type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ValidationRule is a single constraint checked when a form is filled.
// Value is a number for min/max and a regular expression for pattern.
type ValidationRule struct {
	Type    RuleType `json:"type"`
	Value   any      `json:"value,omitempty"`
	Message string   `json:"message"`
}

// Field is one input definition of a form.
type Field struct {
	ID              string           `json:"id,omitempty"`
	FormID          string           `json:"form_id,omitempty"`
	Name            string           `json:"field_name"`
	Key             string           `json:"field_key"`
	Type            FieldType        `json:"field_type"`
	Placeholder     string           `json:"placeholder"`
	Required        bool             `json:"is_required"`
	Options         []Option         `json:"options"`
	ValidationRules []ValidationRule `json:"validation_rules"`
	SortOrder       int              `json:"sort_order"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
}

// Clone returns a deep copy; nested option and rule slices are never shared.
func (f Field) Clone() Field {
	out := f
	out.Options = make([]Option, len(f.Options))
	copy(out.Options, f.Options)
	out.ValidationRules = make([]ValidationRule, len(f.ValidationRules))
	copy(out.ValidationRules, f.ValidationRules)
	if f.CreatedAt != nil {
		t := *f.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// NewField returns a blank text field positioned at sortOrder.
func NewField(sortOrder int) Field {
	return Field{
		Type:            FieldText,
		Options:         []Option{},
		ValidationRules: []ValidationRule{},
		SortOrder:       sortOrder,
	}
}

// CloneFields deep-copies a field slice.
func CloneFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// CheckTypes rejects a field whose type or any rule type is unknown, or whose
// pattern rule does not compile.
func (f Field) CheckTypes() error {
	if f.Type != "" && !f.Type.Valid() {
		return errors.WithStack(&ValidationError{Kind: ErrUnknownType, Key: string(f.Type)})
	}
	for _, r := range f.ValidationRules {
		if !r.Type.Valid() {
			return errors.WithStack(&ValidationError{Kind: ErrUnknownType, Key: string(r.Type)})
		}
		if r.Type != RulePattern {
			continue
		}
		if expr, _ := r.Value.(string); expr != "" {
			if _, err := CompilePattern(expr); err != nil {
				return errors.WithStack(&ValidationError{Kind: ErrInvalidPattern, Key: f.Key})
			}
		}
	}
	return nil
}
