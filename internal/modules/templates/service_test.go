package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/formvoice/core/internal/database"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/blobstore"
)

const bucket = "invoice-templates"

type failingInsert struct {
	backend.Backend
}

func (failingInsert) Insert(context.Context, string, any) error {
	return errors.New("insert refused")
}

type failingRemove struct {
	*blobstore.Local
}

func (failingRemove) Remove(context.Context, string, ...string) error {
	return errors.New("remove refused")
}

func newBackend(t *testing.T) backend.Backend {
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

func newStore(t *testing.T) *blobstore.Local {
	t.Helper()
	store, err := blobstore.NewLocal(t.TempDir(), "http://localhost/storage")
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func newService(t *testing.T) (*Service, *blobstore.Local) {
	store := newStore(t)
	svc := NewService(newBackend(t), store, bucket, 5*1024*1024, nil, nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, store
}

func stored(t *testing.T, store *blobstore.Local) []string {
	t.Helper()
	objs, err := store.List(context.Background(), bucket, "")
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Path
	}
	return out
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"My Invoice (final).html": "My_Invoice_final_.html",
		"__a  b__.vue":            "a_b_.vue",
		"ünïcode.html":            "n_code.html",
		"plain-name.v2.html":      "plain-name.v2.html",
		"***":                     "",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadStoresAndRecords(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	row, err := svc.Upload(ctx, Upload{Filename: "My Layout.vue", Data: []byte("<template><div/></template>")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if row.FilePath != "templates/1700000000000-My_Layout.vue" {
		t.Fatalf("unexpected path %s", row.FilePath)
	}
	if row.TemplateType != models.TemplateTypeVue || row.Description != "Uploaded VUE template" {
		t.Fatalf("unexpected type/description %+v", row)
	}
	if row.Name != "My Layout.vue" || !row.IsActive || row.IsDefault {
		t.Fatalf("unexpected flags %+v", row)
	}
	if !strings.HasPrefix(row.PreviewURL, "http://localhost/storage/invoice-templates/templates/") {
		t.Fatalf("unexpected preview url %s", row.PreviewURL)
	}
	if got := stored(t, store); len(got) != 1 {
		t.Fatalf("expected one stored file, got %v", got)
	}

	custom, _ := svc.Custom(ctx)
	if len(custom) != 1 || custom[0].ID != row.ID {
		t.Fatalf("custom list: %+v", custom)
	}
}

func TestUploadRejectsBeforeStorage(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	svc.maxBytes = 1024 * 1024

	_, err := svc.Upload(ctx, Upload{Filename: "big.html", Size: 2 * 1024 * 1024})
	if !errors.Is(err, ErrTooLarge) || !strings.Contains(err.Error(), "1 MB") {
		t.Fatalf("expected size error naming the limit, got %v", err)
	}
	_, err = svc.Upload(ctx, Upload{Filename: "logo.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected type error, got %v", err)
	}
	if _, err := svc.Upload(ctx, Upload{Filename: "layout", ContentType: "text/html; charset=utf-8", Data: []byte("<html></html>")}); err != nil {
		t.Fatalf("html content type should be accepted: %v", err)
	}
	if got := stored(t, store); len(got) != 1 {
		t.Fatalf("rejected uploads must not reach storage: %v", got)
	}
	if svc.Status().Loading {
		t.Fatalf("loading left set")
	}
}

func TestUploadCompensatesFailedInsert(t *testing.T) {
	store := newStore(t)
	svc := NewService(failingInsert{newBackend(t)}, store, bucket, 1<<20, nil, nil)

	if _, err := svc.Upload(context.Background(), Upload{Filename: "a.html", Data: []byte("<p>a</p>")}); err == nil {
		t.Fatalf("expected insert failure")
	}
	if got := stored(t, store); len(got) != 0 {
		t.Fatalf("stored file should have been removed: %v", got)
	}
	if svc.Status().Error != "insert refused" {
		t.Fatalf("insert error should be recorded, got %q", svc.Status().Error)
	}
}

func TestUploadCleanupFailureKeepsOriginalError(t *testing.T) {
	store := newStore(t)
	svc := NewService(failingInsert{newBackend(t)}, failingRemove{store}, bucket, 1<<20, nil, nil)

	_, err := svc.Upload(context.Background(), Upload{Filename: "a.html", Data: []byte("<p>a</p>")})
	if err == nil || err.Error() != "insert refused" {
		t.Fatalf("expected the insert error, got %v", err)
	}
}

func TestDeleteTemplate(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	if err := svc.EnsureDefault(ctx); err != nil {
		t.Fatalf("ensure default: %v", err)
	}
	if err := svc.EnsureDefault(ctx); err != nil {
		t.Fatalf("second ensure default: %v", err)
	}
	defaults, _ := svc.Defaults(ctx)
	if len(defaults) != 1 {
		t.Fatalf("expected exactly one default, got %d", len(defaults))
	}
	if err := svc.Delete(ctx, defaults[0].ID); !errors.Is(err, ErrDefaultProtected) {
		t.Fatalf("default delete should be refused, got %v", err)
	}

	row, _ := svc.Upload(ctx, Upload{Filename: "c.html", Data: []byte("<p>c</p>")})
	if err := svc.Delete(ctx, row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := svc.Get(ctx, row.ID)
	if got.IsActive {
		t.Fatalf("template should be soft deleted")
	}
	if _, err := os.Stat(filepath.Join(store.Root(), bucket, filepath.FromSlash(row.FilePath))); !os.IsNotExist(err) {
		t.Fatalf("file should be removed, stat err %v", err)
	}
	if _, err := svc.Select(ctx, row.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("inactive template should not be selectable, got %v", err)
	}
	sel, err := svc.Select(ctx, "")
	if err != nil || sel.ID != defaults[0].ID {
		t.Fatalf("empty id should select default: %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 {
		t.Fatalf("list should only show active templates, got %d", len(list))
	}
}

func TestDeleteIgnoresStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	be := newBackend(t)
	svc := NewService(be, store, bucket, 1<<20, nil, nil)
	row, err := svc.Upload(ctx, Upload{Filename: "d.html", Data: []byte("<p>d</p>")})
	if err != nil {
		t.Fatal(err)
	}

	broken := NewService(be, failingRemove{store}, bucket, 1<<20, nil, nil)
	if err := broken.Delete(ctx, row.ID); err != nil {
		t.Fatalf("storage failure should only be logged, got %v", err)
	}
	got, _ := broken.Get(ctx, row.ID)
	if got.IsActive {
		t.Fatalf("row should still be deactivated")
	}
}

func TestSweepOrphans(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	if err := svc.EnsureDefault(ctx); err != nil {
		t.Fatal(err)
	}
	kept, _ := svc.Upload(ctx, Upload{Filename: "kept.html", Data: []byte("<p>k</p>")})
	if _, err := store.Put(ctx, bucket, "templates/1-orphan.html", []byte("x"), blobstore.PutOptions{}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.SweepOrphans(ctx, time.Hour)
	if err != nil || len(res.Removed) != 0 {
		t.Fatalf("fresh orphans must survive the grace period: %v %+v", err, res)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	res, err = svc.SweepOrphans(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 3 || len(res.Removed) != 1 || res.Removed[0] != "templates/1-orphan.html" {
		t.Fatalf("unexpected sweep result %+v", res)
	}
	got := stored(t, store)
	if len(got) != 2 {
		t.Fatalf("expected default and %s to remain, got %v", kept.FilePath, got)
	}
}
