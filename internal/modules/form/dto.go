package form

import (
	"github.com/formvoice/core/internal/modules/formbuilder"
)

type CreateFormDTO struct {
	Name        string              `json:"name"        binding:"required,max=255"`
	Description string              `json:"description"`
	IsActive    *bool               `json:"is_active"`
	Fields      []formbuilder.Field `json:"form_fields"`
}

type UpdateFormDTO struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// FieldDTO carries one field for the direct field endpoints.
type FieldDTO struct {
	FieldName       *string                       `json:"field_name"`
	FieldKey        *string                       `json:"field_key"`
	FieldType       *formbuilder.FieldType        `json:"field_type"`
	Placeholder     *string                       `json:"placeholder"`
	IsRequired      *bool                         `json:"is_required"`
	Options         *[]formbuilder.Option         `json:"options"`
	ValidationRules *[]formbuilder.ValidationRule `json:"validation_rules"`
}

// apply merges the set attributes into f.
func (d FieldDTO) apply(f *formbuilder.Field) {
	if d.FieldName != nil {
		f.Name = *d.FieldName
	}
	if d.FieldKey != nil {
		f.Key = *d.FieldKey
	}
	if d.FieldType != nil {
		f.Type = *d.FieldType
	}
	if d.Placeholder != nil {
		f.Placeholder = *d.Placeholder
	}
	if d.IsRequired != nil {
		f.Required = *d.IsRequired
	}
	if d.Options != nil {
		f.Options = append([]formbuilder.Option{}, (*d.Options)...)
	}
	if d.ValidationRules != nil {
		f.ValidationRules = append([]formbuilder.ValidationRule{}, (*d.ValidationRules)...)
	}
}

type SubmitDTO struct {
	FormData map[string]any `json:"form_data" binding:"required"`
}

type formResponse struct {
	formbuilder.Meta
	Fields []formbuilder.Field `json:"form_fields"`
}

func toResponse(f formbuilder.Form) formResponse {
	return formResponse{Meta: f.Meta, Fields: f.Fields}
}
