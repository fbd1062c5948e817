package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/formvoice/core/internal/database"
	"github.com/formvoice/core/internal/modules/form"
	"github.com/formvoice/core/internal/modules/formbuilder"
	"github.com/formvoice/core/internal/pkg/backend"
)

func newForms(t *testing.T) *form.Service {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return form.NewService(backend.New(db), nil, nil)
}

func ptr[T any](v T) *T { return &v }

type failingStore struct{ FormStore }

func (failingStore) Save(context.Context, formbuilder.Payload) (formbuilder.Form, error) {
	return formbuilder.Form{}, errors.New("database unavailable")
}

func addField(t *testing.T, svc *Service, sid, name string, typ formbuilder.FieldType) Session {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.OpenEditor(ctx, sid, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.EditCandidate(ctx, sid, CandidatePatch{Name: ptr(name), Type: ptr(typ), SuggestKey: true}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	s, err := svc.Commit(ctx, sid)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return s
}

func TestBuildSaveAndReload(t *testing.T) {
	ctx := context.Background()
	forms := newForms(t)
	svc := NewService(NewMemoryRepository(time.Hour), forms, nil)

	s, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Persisted || len(s.Fields) != 0 {
		t.Fatalf("new session should be empty: %+v", s)
	}

	addField(t, svc, s.ID, "Full Name", formbuilder.FieldText)
	s = addField(t, svc, s.ID, "  Contact Email ", formbuilder.FieldEmail)
	if len(s.Fields) != 2 || s.Fields[0].Key != "full_name" || s.Fields[1].Key != "contact_email" {
		t.Fatalf("unexpected fields %+v", s.Fields)
	}
	if s.Fields[1].Name != "Contact Email" {
		t.Fatalf("label not trimmed: %q", s.Fields[1].Name)
	}
	if s.Editor.Open {
		t.Fatalf("editor should close after commit")
	}

	if _, err := svc.Save(ctx, s.ID, "owner"); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected name required, got %v", err)
	}
	if _, err := svc.SetMeta(ctx, s.ID, ptr("Signup"), ptr("Join us"), nil); err != nil {
		t.Fatal(err)
	}
	if s, err = svc.MoveField(ctx, s.ID, 1, 0); err != nil || s.Fields[0].Key != "contact_email" {
		t.Fatalf("move: %v %+v", err, s.Fields)
	}

	s, err = svc.Save(ctx, s.ID, "owner")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !s.Persisted || s.Meta.CreatedBy != "owner" {
		t.Fatalf("saved session should carry identity: %+v", s.Meta)
	}
	for i, f := range s.Fields {
		if f.ID == "" || f.SortOrder != i {
			t.Fatalf("field %d not reloaded from store: %+v", i, f)
		}
	}

	stored, err := forms.Get(ctx, s.Meta.ID)
	if err != nil || len(stored.Fields) != 2 || stored.Fields[0].Key != "contact_email" {
		t.Fatalf("stored form mismatch: %v %+v", err, stored)
	}

	other, _ := svc.Create(ctx)
	loaded, err := svc.Load(ctx, other.ID, s.Meta.ID)
	if err != nil || loaded.Meta.Name != "Signup" || len(loaded.Fields) != 2 {
		t.Fatalf("load: %v %+v", err, loaded)
	}
}

func TestEditExistingFieldAndDuplicateKey(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(time.Hour), newForms(t), nil)
	s, _ := svc.Create(ctx)
	addField(t, svc, s.ID, "Name", formbuilder.FieldText)
	addField(t, svc, s.ID, "Email", formbuilder.FieldEmail)

	if _, err := svc.OpenEditor(ctx, s.ID, ptr(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EditCandidate(ctx, s.ID, CandidatePatch{Key: ptr("name")}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Commit(ctx, s.ID); !errors.Is(err, formbuilder.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	s, err := svc.Get(ctx, s.ID)
	if err != nil || !s.Editor.Open || s.Fields[1].Key != "email" {
		t.Fatalf("failed commit must leave state untouched: %v %+v", err, s)
	}

	s, err = svc.EditCandidate(ctx, s.ID, CandidatePatch{Key: ptr("work_email"), Required: ptr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if s, err = svc.Commit(ctx, s.ID); err != nil || s.Fields[1].Key != "work_email" || !s.Fields[1].Required {
		t.Fatalf("edit commit: %v %+v", err, s.Fields)
	}

	if _, err := svc.DeleteField(ctx, s.ID, 5); !errors.Is(err, formbuilder.ErrIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if s, err = svc.Clear(ctx, s.ID); err != nil || len(s.Fields) != 0 {
		t.Fatalf("clear: %v %+v", err, s)
	}
}

func TestOptionsRequireOpenEditor(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(time.Hour), newForms(t), nil)
	s, _ := svc.Create(ctx)
	if _, err := svc.AddOption(ctx, s.ID); !errors.Is(err, formbuilder.ErrEditorClosed) {
		t.Fatalf("expected editor closed, got %v", err)
	}
	svc.OpenEditor(ctx, s.ID, nil)
	svc.AddOption(ctx, s.ID)
	s, err := svc.AddRule(ctx, s.ID)
	if err != nil || len(s.Editor.Candidate.Options) != 1 || len(s.Editor.Candidate.ValidationRules) != 1 {
		t.Fatalf("candidate not extended: %v %+v", err, s.Editor)
	}
	if s, err = svc.RemoveOption(ctx, s.ID, 0); err != nil || len(s.Editor.Candidate.Options) != 0 {
		t.Fatalf("remove option: %v", err)
	}
	if s, err = svc.CloseEditor(ctx, s.ID); err != nil || s.Editor.Open {
		t.Fatalf("close: %v", err)
	}
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(time.Hour), failingStore{}, nil)
	s, _ := svc.Create(ctx)
	svc.SetMeta(ctx, s.ID, ptr("Survey"), nil, nil)
	addField(t, svc, s.ID, "Rating", formbuilder.FieldNumber)

	if _, err := svc.Save(ctx, s.ID, "owner"); err == nil {
		t.Fatalf("expected save failure")
	}
	s, err := svc.Get(ctx, s.ID)
	if err != nil || s.Persisted || s.Meta.Name != "Survey" || len(s.Fields) != 1 {
		t.Fatalf("draft changed after failed save: %v %+v", err, s)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := NewService(NewMemoryRepository(time.Hour), newForms(t), nil)
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := svc.Discard(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestMemorySessionsExpire(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(50*time.Millisecond), newForms(t), nil)
	s, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, s.ID); err != nil {
		t.Fatalf("fresh session missing: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	if _, err := svc.Get(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session should be gone, got %v", err)
	}
}
