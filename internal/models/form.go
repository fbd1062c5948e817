package models

import (
	"sort"
	"time"

	"github.com/formvoice/core/internal/modules/formbuilder"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormModel is a user-defined data-collection form.
type FormModel struct {
	Base
	Name        string           `json:"name"                  gorm:"size:255;not null"`
	Description string           `json:"description"           gorm:"type:text"`
	IsActive    bool             `json:"is_active"             gorm:"not null;index"`
	CreatedBy   string           `json:"created_by,omitempty"  gorm:"size:64;index"`
	Fields      []FormFieldModel `json:"form_fields,omitempty" gorm:"foreignKey:FormID"`
}

func (FormModel) TableName() string { return TableForms }

// FormFieldModel is one input of a form. Keys are case-sensitive and unique
// within a form; the field editor enforces this on commit, not the database.
type FormFieldModel struct {
	Base
	FormID          string                       `json:"form_id"          gorm:"type:char(36);not null;index:idx_form_field_key,priority:1"`
	FieldName       string                       `json:"field_name"       gorm:"size:255;not null"`
	FieldKey        string                       `json:"field_key"        gorm:"size:191;not null;index:idx_form_field_key,priority:2"`
	FieldType       string                       `json:"field_type"       gorm:"size:32;not null"`
	Placeholder     string                       `json:"placeholder"      gorm:"size:255"`
	IsRequired      bool                         `json:"is_required"`
	Options         []formbuilder.Option         `json:"options"          gorm:"type:longtext;serializer:json"`
	ValidationRules []formbuilder.ValidationRule `json:"validation_rules" gorm:"type:longtext;serializer:json"`
	SortOrder       int                          `json:"sort_order"       gorm:"not null;index"`
}

func (FormFieldModel) TableName() string { return TableFormFields }

// ToField converts the row into the builder's value type.
func (m FormFieldModel) ToField() formbuilder.Field {
	f := formbuilder.Field{
		ID:              m.ID,
		FormID:          m.FormID,
		Name:            m.FieldName,
		Key:             m.FieldKey,
		Type:            formbuilder.FieldType(m.FieldType),
		Placeholder:     m.Placeholder,
		Required:        m.IsRequired,
		Options:         m.Options,
		ValidationRules: m.ValidationRules,
		SortOrder:       m.SortOrder,
	}
	if !m.CreatedAt.IsZero() {
		t := m.CreatedAt
		f.CreatedAt = &t
	}
	return f.Clone()
}

// NewFormFieldModel builds a row for formID from a builder field, keeping the
// field's identity when it has one.
func NewFormFieldModel(formID string, f formbuilder.Field) FormFieldModel {
	f = f.Clone()
	m := FormFieldModel{
		Base:            Base{ID: f.ID},
		FormID:          formID,
		FieldName:       f.Name,
		FieldKey:        f.Key,
		FieldType:       string(f.Type),
		Placeholder:     f.Placeholder,
		IsRequired:      f.Required,
		Options:         f.Options,
		ValidationRules: f.ValidationRules,
		SortOrder:       f.SortOrder,
	}
	if f.CreatedAt != nil {
		m.CreatedAt = *f.CreatedAt
	}
	return m
}

// ToForm converts the form and its loaded fields into the builder aggregate
// input, ordered by sort_order.
func (m FormModel) ToForm() formbuilder.Form {
	created, updated := m.CreatedAt, m.UpdatedAt
	form := formbuilder.Form{
		Meta: formbuilder.Meta{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			IsActive:    m.IsActive,
			CreatedBy:   m.CreatedBy,
			CreatedAt:   &created,
			UpdatedAt:   &updated,
		},
		Fields: make([]formbuilder.Field, 0, len(m.Fields)),
	}
	for _, f := range SortedFields(m.Fields) {
		form.Fields = append(form.Fields, f.ToField())
	}
	return form
}

// SortedFields returns fields ordered by sort_order, stable on ties.
func SortedFields(fields []FormFieldModel) []FormFieldModel {
	out := append([]FormFieldModel(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// FormSubmissionModel is one filled-out instance of a form.
type FormSubmissionModel struct {
	ID          string            `json:"id"                     gorm:"type:char(36);primaryKey"`
	FormID      string            `json:"form_id"                gorm:"type:char(36);not null;index"`
	FormData    datatypes.JSONMap `json:"form_data"`
	SubmittedBy string            `json:"submitted_by,omitempty" gorm:"size:64;index"`
	SubmittedAt time.Time         `json:"submitted_at"           gorm:"index"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (FormSubmissionModel) TableName() string { return TableSubmissions }

func (s *FormSubmissionModel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now()
	}
	return nil
}
