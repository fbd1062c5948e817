package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table names double as the collection names used by the persistence backend.
const (
	TableForms       = "custom_forms"
	TableFormFields  = "form_fields"
	TableSubmissions = "form_submissions"
	TableTemplates   = "invoice_templates"
	TableInvoices    = "invoices"
)

// Base is the base model for all entities.
// Rows are retired by flipping an is_active flag where the entity has one, so
// there is no deleted_at column.
type Base struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
