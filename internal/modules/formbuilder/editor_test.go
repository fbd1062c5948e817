package formbuilder

import (
	"errors"
	"testing"
	"time"
)

func TestCommitNewField(t *testing.T) {
	l := NewFieldList(keyed("a", "b"))
	var e Editor
	e.Open(l, nil)
	if e.IsEditing() {
		t.Fatalf("new field session reported as editing")
	}
	if got := e.Candidate().SortOrder; got != 2 {
		t.Fatalf("expected default sort order 2, got %d", got)
	}
	_ = e.Edit(func(f *Field) {
		f.Name = "Email"
		f.Key = "email"
		f.Type = FieldEmail
	})
	if err := e.Commit(l); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := keysOf(l); !equalKeys(got, []string{"a", "b", "email"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if e.IsOpen() {
		t.Fatalf("editor should close after commit")
	}
	assertContiguous(t, l)
}

func TestCommitMissingAttributes(t *testing.T) {
	l := NewFieldList(nil)
	var e Editor
	e.Open(l, nil)
	_ = e.Edit(func(f *Field) { f.Name = "Only a label" })
	err := e.Commit(l)
	if !errors.Is(err, ErrMissingRequiredAttribute) {
		t.Fatalf("expected ErrMissingRequiredAttribute, got %v", err)
	}
	if !IsValidation(err) {
		t.Fatalf("missing attribute should be a validation error")
	}
	if l.Len() != 0 {
		t.Fatalf("list changed after failed commit")
	}
	if !e.IsOpen() {
		t.Fatalf("editor should stay open after failed commit")
	}
}

func TestCommitDuplicateKey(t *testing.T) {
	l := NewFieldList(keyed("name", "age"))
	before := l.Fields()

	var e Editor
	e.Open(l, nil)
	_ = e.Edit(func(f *Field) {
		f.Name = "Age again"
		f.Key = "age"
	})
	err := e.Commit(l)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Key != "age" {
		t.Fatalf("expected validation error carrying key, got %#v", err)
	}
	after := l.Fields()
	if len(after) != len(before) || after[1].Name != before[1].Name {
		t.Fatalf("list changed after duplicate commit")
	}
}

func TestCommitKeyIsCaseSensitive(t *testing.T) {
	l := NewFieldList(keyed("age"))
	var e Editor
	e.Open(l, nil)
	_ = e.Edit(func(f *Field) {
		f.Name = "Age"
		f.Key = "Age"
	})
	if err := e.Commit(l); err != nil {
		t.Fatalf("keys differing by case should commit: %v", err)
	}
}

func TestEditPreservesIdentityAndAllowsOwnKey(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fields := keyed("first", "second")
	fields[1].ID = "fld-2"
	fields[1].FormID = "form-1"
	fields[1].CreatedAt = &created
	l := NewFieldList(fields)

	orig, _ := l.At(1)
	var e Editor
	e.Open(l, &orig)
	if !e.IsEditing() {
		t.Fatalf("expected edit mode")
	}
	_ = e.Edit(func(f *Field) {
		f.Name = "Second (renamed)"
		f.ID = "tampered"
	})
	if err := e.Commit(l); err != nil {
		t.Fatalf("commit own key: %v", err)
	}
	got, _ := l.At(1)
	if got.Name != "Second (renamed)" || got.Key != "second" {
		t.Fatalf("edit not applied: %+v", got)
	}
	if got.ID != "fld-2" || got.FormID != "form-1" || got.CreatedAt == nil || !got.CreatedAt.Equal(created) {
		t.Fatalf("identity metadata not preserved: %+v", got)
	}
}

func TestEditRenameToOtherKeyFails(t *testing.T) {
	l := NewFieldList(keyed("first", "second"))
	orig, _ := l.At(1)
	var e Editor
	e.Open(l, &orig)
	_ = e.Edit(func(f *Field) { f.Key = "first" })
	if err := e.Commit(l); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestEditDoesNotMutateCommittedList(t *testing.T) {
	fields := keyed("color")
	fields[0].Type = FieldSelect
	fields[0].Options = []Option{{Label: "Red", Value: "red"}}
	fields[0].ValidationRules = []ValidationRule{{Type: RuleRequired, Message: "pick one"}}
	l := NewFieldList(fields)

	orig, _ := l.At(0)
	var e Editor
	e.Open(l, &orig)
	_ = e.AddOption()
	_ = e.Edit(func(f *Field) { f.Options[0].Label = "Crimson" })
	_ = e.RemoveValidationRule(0)

	committed, _ := l.At(0)
	if len(committed.Options) != 1 || committed.Options[0].Label != "Red" {
		t.Fatalf("committed options mutated: %+v", committed.Options)
	}
	if len(committed.ValidationRules) != 1 {
		t.Fatalf("committed rules mutated: %+v", committed.ValidationRules)
	}

	e.Close()
	after, _ := l.At(0)
	if after.Options[0].Label != "Red" {
		t.Fatalf("close altered the list")
	}
}

func TestCandidateListMutations(t *testing.T) {
	l := NewFieldList(nil)
	var e Editor
	if err := e.AddOption(); !errors.Is(err, ErrEditorClosed) {
		t.Fatalf("expected ErrEditorClosed, got %v", err)
	}
	e.Open(l, nil)
	_ = e.AddOption()
	_ = e.AddOption()
	_ = e.AddValidationRule()
	c := e.Candidate()
	if len(c.Options) != 2 || len(c.ValidationRules) != 1 {
		t.Fatalf("unexpected candidate lists: %+v", c)
	}
	if c.ValidationRules[0].Type != RuleRequired {
		t.Fatalf("default rule should be required, got %s", c.ValidationRules[0].Type)
	}
	if err := e.RemoveOption(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := e.RemoveOption(0); err != nil {
		t.Fatalf("remove option: %v", err)
	}
	if len(e.Candidate().Options) != 1 {
		t.Fatalf("option not removed")
	}
	if l.Len() != 0 {
		t.Fatalf("candidate mutations touched the list")
	}
}

func TestSuggestKey(t *testing.T) {
	l := NewFieldList(nil)
	var e Editor
	e.Open(l, nil)
	_ = e.Edit(func(f *Field) { f.Name = "Customer Email Address" })
	if got := e.SuggestKey(); got != "customer_email_address" {
		t.Fatalf("unexpected key suggestion %q", got)
	}
}

func TestEditorSnapshotRoundTrip(t *testing.T) {
	l := NewFieldList(keyed("a", "b"))
	orig, _ := l.At(0)
	var e Editor
	e.Open(l, &orig)
	_ = e.Edit(func(f *Field) { f.Placeholder = "type here" })

	restored := RestoreEditor(e.Snapshot())
	if !restored.IsEditing() || restored.Candidate().Placeholder != "type here" {
		t.Fatalf("snapshot lost state: %+v", restored.Snapshot())
	}
	_ = restored.Edit(func(f *Field) { f.Key = "b" })
	if err := restored.Commit(l); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("restored editor should still guard duplicates, got %v", err)
	}
}
