package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/formvoice/core/internal/database"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/pkg/backend"
)

func newBackend(t *testing.T) *backend.Gorm {
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
	return backend.New(db)
}

func TestInsertQueryAndPreload(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	form := &models.FormModel{
		Name:     "Contact",
		IsActive: true,
		Fields: []models.FormFieldModel{
			{FieldName: "Email", FieldKey: "email", FieldType: "email", SortOrder: 1},
			{FieldName: "Name", FieldKey: "name", FieldType: "text", SortOrder: 0},
		},
	}
	if err := b.Insert(ctx, models.TableForms, form); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if form.ID == "" || form.Fields[0].FormID != form.ID {
		t.Fatalf("ids not assigned: %+v", form)
	}
	inactive := &models.FormModel{Name: "Old", IsActive: false}
	if err := b.Insert(ctx, models.TableForms, inactive); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var active []models.FormModel
	q := backend.Query{
		Filters: []backend.Filter{backend.Where("is_active", true)},
		Preload: []string{"Fields"},
	}
	if err := b.Query(ctx, models.TableForms, q, &active); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Contact" {
		t.Fatalf("unexpected active forms %+v", active)
	}
	if len(active[0].Fields) != 2 || active[0].Fields[0].FieldKey != "name" {
		t.Fatalf("fields should be preloaded in sort order: %+v", active[0].Fields)
	}

	n, err := b.Count(ctx, models.TableForms, backend.Query{})
	if err != nil || n != 2 {
		t.Fatalf("count: %d %v", n, err)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	b := newBackend(t)
	var form models.FormModel
	err := b.Get(context.Background(), models.TableForms, "nope", &form)
	if !errors.Is(err, backend.ErrNotFound) || !backend.IsPersistence(err) {
		t.Fatalf("expected persistence not-found error, got %v", err)
	}
}

func TestDuplicateKeyIsConflict(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	form := &models.FormModel{Name: "F", IsActive: true}
	if err := b.Insert(ctx, models.TableForms, form); err != nil {
		t.Fatal(err)
	}
	first := &models.FormFieldModel{FormID: form.ID, FieldName: "A", FieldKey: "a", FieldType: "text"}
	if err := b.Insert(ctx, models.TableFormFields, first); err != nil {
		t.Fatal(err)
	}
	dup := &models.FormFieldModel{FormID: form.ID, FieldName: "A2", FieldKey: "a", FieldType: "text"}
	if err := b.Insert(ctx, models.TableFormFields, dup); !errors.Is(err, backend.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateSoftDeleteAndDelete(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	tpl := &models.InvoiceTemplateModel{Name: "Basic", FilePath: "templates/a.html", TemplateType: "html", IsActive: true}
	if err := b.Insert(ctx, models.TableTemplates, tpl); err != nil {
		t.Fatal(err)
	}

	var updated models.InvoiceTemplateModel
	if err := b.Update(ctx, models.TableTemplates, tpl.ID, map[string]any{"name": "Renamed"}, &updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("update not reloaded: %+v", updated)
	}
	if err := b.Update(ctx, models.TableTemplates, "missing", map[string]any{"name": "x"}, nil); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	if err := b.SoftDelete(ctx, models.TableTemplates, tpl.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	var after models.InvoiceTemplateModel
	if err := b.Get(ctx, models.TableTemplates, tpl.ID, &after); err != nil {
		t.Fatalf("soft-deleted row must remain: %v", err)
	}
	if after.IsActive {
		t.Fatalf("soft delete should clear is_active")
	}

	if _, err := b.Delete(ctx, models.TableTemplates, &models.InvoiceTemplateModel{}); err == nil {
		t.Fatalf("unfiltered delete must be refused")
	}
	n, err := b.Delete(ctx, models.TableTemplates, &models.InvoiceTemplateModel{}, backend.Where("id", tpl.ID))
	if err != nil || n != 1 {
		t.Fatalf("delete: %d %v", n, err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	boom := errors.New("boom")
	err := b.Transaction(ctx, func(tx backend.Backend) error {
		if err := tx.Insert(ctx, models.TableForms, &models.FormModel{Name: "T", IsActive: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	n, _ := b.Count(ctx, models.TableForms, backend.Query{})
	if n != 0 {
		t.Fatalf("transaction should roll back, found %d rows", n)
	}
}

func TestQueryRejectsUnsafeColumns(t *testing.T) {
	b := newBackend(t)
	var out []models.FormModel
	q := backend.Query{Filters: []backend.Filter{backend.Where("name; DROP TABLE x", 1)}}
	if err := b.Query(context.Background(), models.TableForms, q, &out); err == nil {
		t.Fatalf("expected invalid column error")
	}
}
