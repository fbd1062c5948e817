package models

// Template types.
const (
	TemplateTypeHTML = "html"
	TemplateTypeVue  = "vue"
)

// InvoiceTemplateModel is an uploaded (or seeded default) invoice layout whose
// markup lives in the blob store at FilePath.
type InvoiceTemplateModel struct {
	Base
	Name         string `json:"name"                  gorm:"size:255;not null"`
	Description  string `json:"description"           gorm:"type:text"`
	FilePath     string `json:"file_path"             gorm:"size:512;not null"`
	PreviewURL   string `json:"preview_url,omitempty" gorm:"size:1024"`
	TemplateType string `json:"template_type"         gorm:"size:16;not null"`
	IsDefault    bool   `json:"is_default"            gorm:"not null;index"`
	IsActive     bool   `json:"is_active"             gorm:"not null;index"`
}

func (InvoiceTemplateModel) TableName() string { return TableTemplates }
