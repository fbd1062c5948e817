package formbuilder

import (
	"strings"

	"emperror.dev/errors"
	"github.com/iancoleman/strcase"
)

// ErrEditedFieldGone is returned when the field being edited left the list before commit.
const ErrEditedFieldGone = errors.Sentinel("edited field no longer exists")

// Editor holds the single candidate field of an add/edit dialog.
// The candidate is a private copy; the committed list only changes on Commit.
type Editor struct {
	open        bool
	editing     bool
	originalKey string
	original    Field
	candidate   Field
}

// EditorSnapshot is the serialisable form of an Editor.
type EditorSnapshot struct {
	Open        bool   `json:"open"`
	Editing     bool   `json:"editing"`
	OriginalKey string `json:"original_key,omitempty"`
	Original    *Field `json:"original,omitempty"`
	Candidate   Field  `json:"candidate"`
}

// Open starts a session. With forEdit nil the candidate is reset to defaults
// positioned after the last committed field.
func (e *Editor) Open(list *FieldList, forEdit *Field) {
	e.open = true
	if forEdit == nil {
		e.editing = false
		e.originalKey = ""
		e.original = Field{}
		e.candidate = NewField(list.Len())
		return
	}
	e.editing = true
	e.originalKey = forEdit.Key
	e.original = forEdit.Clone()
	e.candidate = forEdit.Clone()
}

// Close discards the candidate and leaves edit mode.
func (e *Editor) Close() {
	*e = Editor{}
}

// IsOpen reports whether a candidate is being edited.
func (e *Editor) IsOpen() bool { return e.open }

// IsEditing reports whether the candidate replaces an existing field.
func (e *Editor) IsEditing() bool { return e.open && e.editing }

// Candidate returns a copy of the field being edited.
func (e *Editor) Candidate() Field { return e.candidate.Clone() }

// Edit applies fn to the candidate.
func (e *Editor) Edit(fn func(f *Field)) error {
	if !e.open {
		return errors.WithStack(ErrEditorClosed)
	}
	fn(&e.candidate)
	return nil
}

// AddOption appends an empty option to the candidate.
func (e *Editor) AddOption() error {
	return e.Edit(func(f *Field) {
		f.Options = append(f.Options, Option{Label: "", Value: ""})
	})
}

// RemoveOption drops the candidate option at index i.
func (e *Editor) RemoveOption(i int) error {
	if !e.open {
		return errors.WithStack(ErrEditorClosed)
	}
	if i < 0 || i >= len(e.candidate.Options) {
		return outOfRange(i)
	}
	e.candidate.Options = append(e.candidate.Options[:i:i], e.candidate.Options[i+1:]...)
	return nil
}

// AddValidationRule appends a blank required rule to the candidate.
func (e *Editor) AddValidationRule() error {
	return e.Edit(func(f *Field) {
		f.ValidationRules = append(f.ValidationRules, ValidationRule{Type: RuleRequired, Message: ""})
	})
}

// RemoveValidationRule drops the candidate rule at index i.
func (e *Editor) RemoveValidationRule(i int) error {
	if !e.open {
		return errors.WithStack(ErrEditorClosed)
	}
	if i < 0 || i >= len(e.candidate.ValidationRules) {
		return outOfRange(i)
	}
	e.candidate.ValidationRules = append(e.candidate.ValidationRules[:i:i], e.candidate.ValidationRules[i+1:]...)
	return nil
}

// SuggestKey derives a snake_case key from the candidate label.
func (e *Editor) SuggestKey() string {
	return strcase.ToSnake(strings.TrimSpace(e.candidate.Name))
}

// Commit validates the candidate against list and merges it in.
// On failure the list is left untouched and the editor stays open.
func (e *Editor) Commit(list *FieldList) error {
	if !e.open {
		return errors.WithStack(ErrEditorClosed)
	}
	c := e.candidate
	if c.Name == "" || c.Key == "" {
		return errors.WithStack(&ValidationError{Kind: ErrMissingRequiredAttribute})
	}

	for _, f := range list.fields {
		if f.Key != c.Key {
			continue
		}
		if e.editing && f.Key == e.originalKey {
			continue
		}
		return duplicateKey(c.Key)
	}

	if c.Type == "" {
		c.Type = FieldText
	}
	if c.Options == nil {
		c.Options = []Option{}
	}
	if c.ValidationRules == nil {
		c.ValidationRules = []ValidationRule{}
	}

	if e.editing {
		idx := list.IndexOfKey(e.originalKey)
		if idx < 0 {
			return errors.WithStack(ErrEditedFieldGone)
		}
		c.ID = e.original.ID
		c.FormID = e.original.FormID
		c.CreatedAt = e.original.CreatedAt
		if err := list.Replace(idx, c); err != nil {
			return err
		}
	} else {
		list.Append(c)
	}

	e.Close()
	return nil
}

// Snapshot captures the editor state.
func (e *Editor) Snapshot() EditorSnapshot {
	s := EditorSnapshot{
		Open:        e.open,
		Editing:     e.editing,
		OriginalKey: e.originalKey,
		Candidate:   e.candidate.Clone(),
	}
	if e.editing {
		orig := e.original.Clone()
		s.Original = &orig
	}
	return s
}

// RestoreEditor rebuilds an Editor from a snapshot.
func RestoreEditor(s EditorSnapshot) *Editor {
	e := &Editor{
		open:        s.Open,
		editing:     s.Editing,
		originalKey: s.OriginalKey,
		candidate:   s.Candidate.Clone(),
	}
	if s.Original != nil {
		e.original = s.Original.Clone()
	}
	return e
}
