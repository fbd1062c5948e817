package form

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/modules/formbuilder"
	"github.com/formvoice/core/internal/modules/submission"
	"github.com/formvoice/core/internal/pkg/actionstate"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/events"
	"github.com/formvoice/core/internal/pkg/pagination"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	formCacheTTL     = 5 * time.Minute
	formCacheCleanup = 10 * time.Minute
)

// Service owns forms, their fields and submissions.
type Service struct {
	be    backend.Backend
	hub   *events.Hub
	log   *zap.Logger
	forms *cache.Cache
	state *actionstate.State
}

func NewService(be backend.Backend, hub *events.Hub, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		be:    be,
		hub:   hub,
		log:   log.Named("form"),
		forms: cache.New(formCacheTTL, formCacheCleanup),
		state: actionstate.New(),
	}
}

// Status reports the in-flight/last-error state of form actions.
func (s *Service) Status() actionstate.Snapshot { return s.state.Snapshot() }

func (s *Service) List(ctx context.Context, activeOnly bool) ([]formbuilder.Form, error) {
	q := backend.Query{
		Order:   []backend.Order{{Column: "created_at", Desc: true}},
		Preload: []string{"Fields"},
	}
	if activeOnly {
		q.Filters = append(q.Filters, backend.Where("is_active", true))
	}
	var rows []models.FormModel
	if err := s.be.Query(ctx, models.TableForms, q, &rows); err != nil {
		return nil, err
	}
	out := make([]formbuilder.Form, len(rows))
	for i, r := range rows {
		out[i] = r.ToForm()
	}
	return out, nil
}

// Get loads a form with its fields ordered by sort_order.
func (s *Service) Get(ctx context.Context, id string) (formbuilder.Form, error) {
	var row models.FormModel
	if err := s.be.Get(ctx, models.TableForms, id, &row, "Fields"); err != nil {
		return formbuilder.Form{}, err
	}
	return row.ToForm(), nil
}

// cached serves the fill and prefill paths, which read the same form often.
func (s *Service) cached(ctx context.Context, id string) (formbuilder.Form, error) {
	if v, ok := s.forms.Get(id); ok {
		f := v.(formbuilder.Form)
		f.Fields = formbuilder.CloneFields(f.Fields)
		return f, nil
	}
	f, err := s.Get(ctx, id)
	if err != nil {
		return formbuilder.Form{}, err
	}
	s.forms.SetDefault(id, formbuilder.Form{Meta: f.Meta, Fields: formbuilder.CloneFields(f.Fields)})
	return f, nil
}

func (s *Service) changed(event, formID string) {
	s.forms.Delete(formID)
	s.hub.Publish(event, map[string]string{"id": formID})
}

// Create runs every field through the editor commit so key and attribute
// rules match the builder exactly, then saves the result.
func (s *Service) Create(ctx context.Context, dto CreateFormDTO, userID string) (formbuilder.Form, error) {
	draft := formbuilder.NewDraft()
	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}
	draft.SetMeta(&dto.Name, &dto.Description, &active)
	if err := commitAll(draft.Fields(), dto.Fields); err != nil {
		s.state.SetError(err)
		return formbuilder.Form{}, err
	}
	payload := draft.ToPayload()
	payload.Meta.CreatedBy = userID
	return s.Save(ctx, payload)
}

func commitAll(list *formbuilder.FieldList, fields []formbuilder.Field) error {
	var ed formbuilder.Editor
	for _, f := range fields {
		if err := f.CheckTypes(); err != nil {
			return err
		}
		ed.Open(list, nil)
		_ = ed.Edit(func(c *formbuilder.Field) {
			pos := c.SortOrder
			*c = f.Clone()
			c.ID, c.FormID, c.CreatedAt = "", "", nil
			c.SortOrder = pos
		})
		if err := ed.Commit(list); err != nil {
			return err
		}
	}
	return nil
}

// Save persists a builder payload. A payload without an id inserts a new
// form; otherwise metadata is updated and the field rows are replaced, keeping
// field ids. Returns the reloaded form.
func (s *Service) Save(ctx context.Context, p formbuilder.Payload) (formbuilder.Form, error) {
	id := p.Meta.ID
	err := s.state.Run("save_form", func() error {
		return s.be.Transaction(ctx, func(tx backend.Backend) error {
			if id == "" {
				row := models.FormModel{
					Name:        p.Meta.Name,
					Description: p.Meta.Description,
					IsActive:    p.Meta.IsActive,
					CreatedBy:   p.Meta.CreatedBy,
				}
				if err := tx.Insert(ctx, models.TableForms, &row); err != nil {
					return err
				}
				id = row.ID
			} else {
				err := tx.Update(ctx, models.TableForms, id, map[string]any{
					"name":        p.Meta.Name,
					"description": p.Meta.Description,
					"is_active":   p.Meta.IsActive,
				}, nil)
				if err != nil {
					return err
				}
				if _, err := tx.Delete(ctx, models.TableFormFields, &models.FormFieldModel{}, backend.Where("form_id", id)); err != nil {
					return err
				}
			}
			for _, f := range p.Fields {
				row := models.NewFormFieldModel(id, f)
				if err := tx.Insert(ctx, models.TableFormFields, &row); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return formbuilder.Form{}, err
	}

	event := events.FormUpdated
	if p.Meta.ID == "" {
		event = events.FormCreated
	}
	s.changed(event, id)
	return s.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateFormDTO) (formbuilder.Form, error) {
	partial := map[string]any{}
	if dto.Name != nil {
		partial["name"] = *dto.Name
	}
	if dto.Description != nil {
		partial["description"] = *dto.Description
	}
	if dto.IsActive != nil {
		partial["is_active"] = *dto.IsActive
	}
	if len(partial) == 0 {
		return s.Get(ctx, id)
	}
	err := s.state.Run("update_form", func() error {
		return s.be.Update(ctx, models.TableForms, id, partial, nil)
	})
	if err != nil {
		return formbuilder.Form{}, err
	}
	s.changed(events.FormUpdated, id)
	return s.Get(ctx, id)
}

// Delete deactivates the form. Rows are kept so submissions stay readable.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.state.Run("delete_form", func() error {
		return s.be.SoftDelete(ctx, models.TableForms, id)
	})
	if err != nil {
		return err
	}
	s.changed(events.FormDeleted, id)
	return nil
}

// AddField appends a field to a persisted form.
func (s *Service) AddField(ctx context.Context, formID string, dto FieldDTO) (formbuilder.Field, error) {
	var row models.FormFieldModel
	err := s.state.Run("add_field", func() error {
		form, err := s.Get(ctx, formID)
		if err != nil {
			return err
		}
		list := formbuilder.NewFieldList(form.Fields)
		var ed formbuilder.Editor
		ed.Open(list, nil)
		_ = ed.Edit(func(f *formbuilder.Field) { dto.apply(f) })
		if err := checkCandidate(&ed, list); err != nil {
			return err
		}
		added, _ := list.At(list.Len() - 1)
		row = models.NewFormFieldModel(formID, added)
		return s.be.Insert(ctx, models.TableFormFields, &row)
	})
	if err != nil {
		return formbuilder.Field{}, err
	}
	s.changed(events.FieldChanged, formID)
	return row.ToField(), nil
}

func checkCandidate(ed *formbuilder.Editor, list *formbuilder.FieldList) error {
	c := ed.Candidate()
	if err := c.CheckTypes(); err != nil {
		return err
	}
	return ed.Commit(list)
}

// UpdateField edits one field of a persisted form in place.
func (s *Service) UpdateField(ctx context.Context, fieldID string, dto FieldDTO) (formbuilder.Field, error) {
	var current models.FormFieldModel
	err := s.state.Run("update_field", func() error {
		if err := s.be.Get(ctx, models.TableFormFields, fieldID, &current); err != nil {
			return err
		}
		form, err := s.Get(ctx, current.FormID)
		if err != nil {
			return err
		}
		list := formbuilder.NewFieldList(form.Fields)
		idx := list.IndexOfKey(current.FieldKey)
		existing, err := list.At(idx)
		if err != nil {
			return err
		}
		var ed formbuilder.Editor
		ed.Open(list, &existing)
		_ = ed.Edit(func(f *formbuilder.Field) { dto.apply(f) })
		if err := checkCandidate(&ed, list); err != nil {
			return err
		}
		updated, _ := list.At(idx)

		options, err := json.Marshal(updated.Options)
		if err != nil {
			return errors.WithStack(err)
		}
		rules, err := json.Marshal(updated.ValidationRules)
		if err != nil {
			return errors.WithStack(err)
		}
		return s.be.Update(ctx, models.TableFormFields, fieldID, map[string]any{
			"field_name":       updated.Name,
			"field_key":        updated.Key,
			"field_type":       string(updated.Type),
			"placeholder":      updated.Placeholder,
			"is_required":      updated.Required,
			"options":          string(options),
			"validation_rules": string(rules),
		}, &current)
	})
	if err != nil {
		return formbuilder.Field{}, err
	}
	s.changed(events.FieldChanged, current.FormID)
	return current.ToField(), nil
}

// DeleteField removes a field and closes the gap in sort_order.
func (s *Service) DeleteField(ctx context.Context, fieldID string) error {
	var row models.FormFieldModel
	err := s.state.Run("delete_field", func() error {
		if err := s.be.Get(ctx, models.TableFormFields, fieldID, &row); err != nil {
			return err
		}
		form, err := s.Get(ctx, row.FormID)
		if err != nil {
			return err
		}
		stored := make(map[string]int, len(form.Fields))
		for _, f := range form.Fields {
			stored[f.ID] = f.SortOrder
		}
		list := formbuilder.NewFieldList(form.Fields)
		if err := list.Delete(list.IndexOfKey(row.FieldKey)); err != nil {
			return err
		}

		return s.be.Transaction(ctx, func(tx backend.Backend) error {
			if _, err := tx.Delete(ctx, models.TableFormFields, &models.FormFieldModel{}, backend.Where("id", fieldID)); err != nil {
				return err
			}
			for _, f := range list.Fields() {
				if stored[f.ID] == f.SortOrder {
					continue
				}
				if err := tx.Update(ctx, models.TableFormFields, f.ID, map[string]any{"sort_order": f.SortOrder}, nil); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.changed(events.FieldChanged, row.FormID)
	return nil
}

// Submit maps, validates and stores a filled form.
func (s *Service) Submit(ctx context.Context, formID string, values map[string]any, userID string) (*models.FormSubmissionModel, error) {
	var row models.FormSubmissionModel
	err := s.state.Run("submit", func() error {
		form, err := s.cached(ctx, formID)
		if err != nil {
			return err
		}
		if !form.IsActive {
			return errors.WrapIf(backend.ErrNotFound, "form is not accepting submissions")
		}
		data := submission.ToSubmissionData(form.Fields, values)
		if err := submission.Validate(form.Fields, data); err != nil {
			return err
		}
		row = models.FormSubmissionModel{FormID: formID, FormData: datatypes.JSONMap(data), SubmittedBy: userID}
		return s.be.Insert(ctx, models.TableSubmissions, &row)
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(events.SubmissionCreated, map[string]string{"id": row.ID, "form_id": formID})
	return &row, nil
}

func (s *Service) ListSubmissions(ctx context.Context, formID string, pq pagination.Query) ([]models.FormSubmissionModel, response.Pagination, error) {
	if _, err := s.cached(ctx, formID); err != nil {
		return nil, response.Pagination{}, err
	}
	q := backend.Query{
		Filters: []backend.Filter{backend.Where("form_id", formID)},
		Order:   []backend.Order{{Column: "submitted_at", Desc: true}},
	}
	total, err := s.be.Count(ctx, models.TableSubmissions, q)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	items := []models.FormSubmissionModel{}
	if err := s.be.Query(ctx, models.TableSubmissions, pq.Apply(q), &items); err != nil {
		return nil, response.Pagination{}, err
	}
	return items, pq.Meta(total), nil
}

func (s *Service) GetSubmission(ctx context.Context, id string) (*models.FormSubmissionModel, error) {
	var row models.FormSubmissionModel
	if err := s.be.Get(ctx, models.TableSubmissions, id, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Prefill rebuilds editor values from a stored submission against the form's
// current fields.
func (s *Service) Prefill(ctx context.Context, id string) (submission.Prefill, error) {
	row, err := s.GetSubmission(ctx, id)
	if err != nil {
		return submission.Prefill{}, err
	}
	form, err := s.cached(ctx, row.FormID)
	if err != nil {
		return submission.Prefill{}, err
	}
	p := submission.FromSubmission(form.Fields, row.FormData)
	if len(p.Dropped) > 0 {
		s.log.Info("stale submission keys dropped",
			zap.String("submission", id), zap.Strings("keys", p.Dropped))
	}
	return p, nil
}

// UpdateSubmission replaces a submission's data after validating it against
// the form's current fields.
func (s *Service) UpdateSubmission(ctx context.Context, id string, values map[string]any) (*models.FormSubmissionModel, error) {
	var row models.FormSubmissionModel
	err := s.state.Run("update_submission", func() error {
		if err := s.be.Get(ctx, models.TableSubmissions, id, &row); err != nil {
			return err
		}
		form, err := s.cached(ctx, row.FormID)
		if err != nil {
			return err
		}
		data := submission.ToSubmissionData(form.Fields, values)
		if err := submission.Validate(form.Fields, data); err != nil {
			return err
		}
		return s.be.Update(ctx, models.TableSubmissions, id, map[string]any{"form_data": datatypes.JSONMap(data)}, &row)
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(events.SubmissionUpdated, map[string]string{"id": id, "form_id": row.FormID})
	return &row, nil
}
