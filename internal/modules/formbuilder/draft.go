package formbuilder

import "time"

// Meta is the form-level metadata edited alongside the field list.
type Meta struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Form is a persisted form together with its ordered fields.
type Form struct {
	Meta
	Fields []Field `json:"fields"`
}

// Payload is what the persistence layer receives when a draft is saved.
type Payload struct {
	Meta   Meta    `json:"meta"`
	Fields []Field `json:"fields"`
}

// Draft holds form metadata plus its field list before and after saving.
type Draft struct {
	meta Meta
	list *FieldList
}

// NewDraft returns an empty, active draft.
func NewDraft() *Draft {
	d := &Draft{}
	d.Clear()
	return d
}

// Load populates the draft from a persisted form.
func (d *Draft) Load(f Form) {
	d.meta = f.Meta
	d.list = NewFieldList(f.Fields)
}

// Clear resets metadata to defaults and empties the field list.
func (d *Draft) Clear() {
	d.meta = Meta{IsActive: true}
	d.list = NewFieldList(nil)
}

// Meta returns the current metadata.
func (d *Draft) Meta() Meta { return d.meta }

// SetMeta merges name/description/active flag into the metadata.
func (d *Draft) SetMeta(name, description *string, isActive *bool) {
	if name != nil {
		d.meta.Name = *name
	}
	if description != nil {
		d.meta.Description = *description
	}
	if isActive != nil {
		d.meta.IsActive = *isActive
	}
}

// SetIdentity records the id assigned by the backend after the first save.
func (d *Draft) SetIdentity(id string) { d.meta.ID = id }

// Fields exposes the draft's field list.
func (d *Draft) Fields() *FieldList { return d.list }

// IsPersisted reports whether the draft already has a backend identity.
func (d *Draft) IsPersisted() bool { return d.meta.ID != "" }

// ToPayload returns metadata and fields ordered by SortOrder. No I/O happens here.
func (d *Draft) ToPayload() Payload {
	d.list.Resequence()
	return Payload{Meta: d.meta, Fields: d.list.Fields()}
}
