package templates

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/pkg/actionstate"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/blobstore"
	"github.com/formvoice/core/internal/pkg/events"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	ErrTooLarge         = errors.Sentinel("template file too large")
	ErrUnsupportedType  = errors.Sentinel("unsupported template file type")
	ErrDefaultProtected = errors.Sentinel("default templates cannot be deleted")
)

const (
	pathPrefix     = "templates/"
	defaultPath    = pathPrefix + "default.html"
	immutableCache = "public, max-age=31536000, immutable"
)

//go:embed default.html
var defaultMarkup []byte

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	underscores = regexp.MustCompile(`_+`)
)

// SanitizeFilename keeps letters, digits, dots and dashes; everything else
// becomes a single underscore.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// TypeOf returns the template type implied by a filename.
func TypeOf(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".vue") {
		return models.TemplateTypeVue
	}
	return models.TemplateTypeHTML
}

// Upload is one template file received from a client.
type Upload struct {
	Name        string
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Service manages invoice templates: rows in the backend, markup in the blob store.
type Service struct {
	be       backend.Backend
	store    blobstore.Store
	bucket   string
	maxBytes int64
	hub      *events.Hub
	log      *zap.Logger
	state    *actionstate.State
	now      func() time.Time
}

func NewService(be backend.Backend, store blobstore.Store, bucket string, maxBytes int64, hub *events.Hub, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		be:       be,
		store:    store,
		bucket:   bucket,
		maxBytes: maxBytes,
		hub:      hub,
		log:      log.Named("templates"),
		state:    actionstate.New(),
		now:      time.Now,
	}
}

func (s *Service) Status() actionstate.Snapshot { return s.state.Snapshot() }

// Bucket is where template markup is stored.
func (s *Service) Bucket() string { return s.bucket }

// MaxBytes is the upload size ceiling.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

func (s *Service) query(ctx context.Context, filters ...backend.Filter) ([]models.InvoiceTemplateModel, error) {
	q := backend.Query{
		Filters: append([]backend.Filter{backend.Where("is_active", true)}, filters...),
		Order:   []backend.Order{{Column: "is_default", Desc: true}, {Column: "created_at", Desc: true}},
	}
	items := []models.InvoiceTemplateModel{}
	if err := s.be.Query(ctx, models.TableTemplates, q, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns active templates, defaults first.
func (s *Service) List(ctx context.Context) ([]models.InvoiceTemplateModel, error) {
	return s.query(ctx)
}

func (s *Service) Defaults(ctx context.Context) ([]models.InvoiceTemplateModel, error) {
	return s.query(ctx, backend.Where("is_default", true))
}

func (s *Service) Custom(ctx context.Context) ([]models.InvoiceTemplateModel, error) {
	return s.query(ctx, backend.Where("is_default", false))
}

func (s *Service) Get(ctx context.Context, id string) (*models.InvoiceTemplateModel, error) {
	var row models.InvoiceTemplateModel
	if err := s.be.Get(ctx, models.TableTemplates, id, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Select resolves the template to render with: the given active template, or
// the newest default when id is empty.
func (s *Service) Select(ctx context.Context, id string) (*models.InvoiceTemplateModel, error) {
	if id == "" {
		defaults, err := s.Defaults(ctx)
		if err != nil {
			return nil, err
		}
		if len(defaults) == 0 {
			return nil, errors.WrapIf(backend.ErrNotFound, "no default template")
		}
		return &defaults[0], nil
	}
	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.IsActive {
		return nil, errors.WrapIf(backend.ErrNotFound, "template is inactive")
	}
	return row, nil
}

// Markup fetches a template's stored file.
func (s *Service) Markup(ctx context.Context, t *models.InvoiceTemplateModel) ([]byte, error) {
	return s.store.Get(ctx, s.bucket, t.FilePath)
}

// Check validates size and type before any storage call.
func (s *Service) Check(u Upload) error {
	size := u.Size
	if int64(len(u.Data)) > size {
		size = int64(len(u.Data))
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return errors.WrapIff(ErrTooLarge, "file is %d bytes, limit is %d MB", size, s.maxBytes/(1024*1024))
	}
	lower := strings.ToLower(u.Filename)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".vue") {
		return nil
	}
	ct := u.ContentType
	if ct == "" && len(u.Data) > 0 {
		ct = mimetype.Detect(u.Data).String()
	}
	ct = strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	if ct == "text/html" || ct == "application/octet-stream" {
		return nil
	}
	return errors.WrapIff(ErrUnsupportedType, "%s (%s)", u.Filename, ct)
}

// Upload stores the file and records it. If the row cannot be written the
// stored file is removed again; a failed removal is only logged.
func (s *Service) Upload(ctx context.Context, u Upload) (*models.InvoiceTemplateModel, error) {
	var row models.InvoiceTemplateModel
	err := s.state.Run("upload_template", func() error {
		if err := s.Check(u); err != nil {
			return err
		}
		name := SanitizeFilename(u.Filename)
		if name == "" {
			name = "template.html"
		}
		typ := TypeOf(u.Filename)
		objectPath := fmt.Sprintf("%s%d-%s", pathPrefix, s.now().UnixMilli(), name)

		obj, err := s.store.Put(ctx, s.bucket, objectPath, u.Data, blobstore.PutOptions{
			ContentType:  contentTypeFor(typ),
			CacheControl: immutableCache,
		})
		if err != nil {
			return err
		}

		display := strings.TrimSpace(u.Name)
		if display == "" {
			display = strings.TrimSpace(u.Filename)
		}
		row = models.InvoiceTemplateModel{
			Name:         display,
			Description:  fmt.Sprintf("Uploaded %s template", strings.ToUpper(typ)),
			FilePath:     obj.Path,
			PreviewURL:   s.store.PublicURL(s.bucket, obj.Path),
			TemplateType: typ,
			IsActive:     true,
		}
		if err := s.be.Insert(ctx, models.TableTemplates, &row); err != nil {
			if rmErr := s.store.Remove(ctx, s.bucket, obj.Path); rmErr != nil {
				s.log.Warn("cleanup of uploaded template failed", zap.String("path", obj.Path), zap.Error(rmErr))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(events.TemplateUploaded, map[string]string{"id": row.ID})
	return &row, nil
}

// Delete deactivates a custom template and removes its file. Storage errors
// are logged; the template stays deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.state.Run("delete_template", func() error {
		row, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if row.IsDefault {
			return errors.WithStack(ErrDefaultProtected)
		}
		if err := s.be.SoftDelete(ctx, models.TableTemplates, id); err != nil {
			return err
		}
		if err := s.store.Remove(ctx, s.bucket, row.FilePath); err != nil {
			s.log.Warn("template file removal failed", zap.String("id", id), zap.String("path", row.FilePath), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.hub.Publish(events.TemplateDeleted, map[string]string{"id": id})
	return nil
}

// EnsureDefault installs the built-in template when no default exists yet.
func (s *Service) EnsureDefault(ctx context.Context) error {
	n, err := s.be.Count(ctx, models.TableTemplates, backend.Query{Filters: []backend.Filter{
		backend.Where("is_default", true), backend.Where("is_active", true),
	}})
	if err != nil || n > 0 {
		return err
	}
	obj, err := s.store.Put(ctx, s.bucket, defaultPath, defaultMarkup, blobstore.PutOptions{
		Overwrite:   true,
		ContentType: contentTypeFor(models.TemplateTypeHTML),
	})
	if err != nil {
		return err
	}
	row := models.InvoiceTemplateModel{
		Name:         "Classic",
		Description:  "Built-in HTML template",
		FilePath:     obj.Path,
		PreviewURL:   s.store.PublicURL(s.bucket, obj.Path),
		TemplateType: models.TemplateTypeHTML,
		IsDefault:    true,
		IsActive:     true,
	}
	if err := s.be.Insert(ctx, models.TableTemplates, &row); err != nil {
		return err
	}
	s.log.Info("default invoice template installed", zap.String("id", row.ID))
	return nil
}

// ReferencedPaths returns the file paths of active templates.
func (s *Service) ReferencedPaths(ctx context.Context) (map[string]struct{}, error) {
	var rows []models.InvoiceTemplateModel
	if err := s.be.Query(ctx, models.TableTemplates, backend.Query{}, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.IsActive {
			out[r.FilePath] = struct{}{}
		}
	}
	return out, nil
}

func contentTypeFor(typ string) string {
	if typ == models.TemplateTypeVue {
		return "text/plain; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}
