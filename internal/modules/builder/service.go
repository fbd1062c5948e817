package builder

import (
	"context"
	"strings"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/modules/formbuilder"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ErrNameRequired = errors.Sentinel("form name is required")

// FormStore is the persisted-form side the builder loads from and saves to.
type FormStore interface {
	Get(ctx context.Context, id string) (formbuilder.Form, error)
	Save(ctx context.Context, p formbuilder.Payload) (formbuilder.Form, error)
}

// Session is a builder state addressed by id.
type Session struct {
	ID string `json:"id"`
	formbuilder.Snapshot
	Persisted bool `json:"persisted"`
}

// CandidatePatch updates the field under edit. Nil members are left alone.
type CandidatePatch struct {
	Name            *string                       `json:"field_name"`
	Key             *string                       `json:"field_key"`
	Type            *formbuilder.FieldType        `json:"field_type"`
	Placeholder     *string                       `json:"placeholder"`
	Required        *bool                         `json:"is_required"`
	Options         *[]formbuilder.Option         `json:"options"`
	ValidationRules *[]formbuilder.ValidationRule `json:"validation_rules"`
	// SuggestKey derives the key from the label when no key is given.
	SuggestKey bool `json:"suggest_key"`
}

type Service struct {
	repo  Repository
	forms FormStore
	log   *zap.Logger
}

func NewService(repo Repository, forms FormStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, forms: forms, log: log.Named("builder")}
}

func session(sid string, b *formbuilder.Builder) Session {
	return Session{ID: sid, Snapshot: b.Snapshot(), Persisted: b.Draft().IsPersisted()}
}

// Create starts a session over an empty draft.
func (s *Service) Create(ctx context.Context) (Session, error) {
	sid := uuid.NewString()
	b := formbuilder.NewBuilder()
	if err := s.repo.Save(ctx, sid, b.Snapshot()); err != nil {
		return Session{}, err
	}
	return session(sid, b), nil
}

func (s *Service) Get(ctx context.Context, sid string) (Session, error) {
	snap, err := s.repo.Load(ctx, sid)
	if err != nil {
		return Session{}, err
	}
	return session(sid, formbuilder.RestoreBuilder(snap)), nil
}

func (s *Service) Discard(ctx context.Context, sid string) error {
	if _, err := s.repo.Load(ctx, sid); err != nil {
		return err
	}
	return s.repo.Delete(ctx, sid)
}

// mutate restores the session, applies fn and stores the result. Nothing is
// stored when fn fails.
func (s *Service) mutate(ctx context.Context, sid string, fn func(b *formbuilder.Builder) error) (Session, error) {
	snap, err := s.repo.Load(ctx, sid)
	if err != nil {
		return Session{}, err
	}
	b := formbuilder.RestoreBuilder(snap)
	cancel := b.Subscribe(func(ev formbuilder.Event) {
		s.log.Debug("builder change",
			zap.String("session", sid),
			zap.String("event", string(ev.Type)),
			zap.Int("fields", len(ev.State.Fields)))
	})
	defer cancel()

	if err := fn(b); err != nil {
		return Session{}, err
	}
	if err := s.repo.Save(ctx, sid, b.Snapshot()); err != nil {
		return Session{}, err
	}
	return session(sid, b), nil
}

// Load replaces the draft with a persisted form.
func (s *Service) Load(ctx context.Context, sid, formID string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		f, err := s.forms.Get(ctx, formID)
		if err != nil {
			return err
		}
		b.Load(f)
		return nil
	})
}

func (s *Service) SetMeta(ctx context.Context, sid string, name, description *string, isActive *bool) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		b.SetMeta(name, description, isActive)
		return nil
	})
}

// OpenEditor opens the editor on a new field, or on a copy of the field at
// index when one is given.
func (s *Service) OpenEditor(ctx context.Context, sid string, index *int) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		if index == nil {
			b.OpenNew()
			return nil
		}
		return b.OpenEdit(*index)
	})
}

func (s *Service) EditCandidate(ctx context.Context, sid string, p CandidatePatch) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		err := b.EditCandidate(func(f *formbuilder.Field) {
			if p.Name != nil {
				f.Name = *p.Name
			}
			if p.Key != nil {
				f.Key = *p.Key
			}
			if p.Type != nil {
				f.Type = *p.Type
			}
			if p.Placeholder != nil {
				f.Placeholder = *p.Placeholder
			}
			if p.Required != nil {
				f.Required = *p.Required
			}
			if p.Options != nil {
				f.Options = append([]formbuilder.Option{}, (*p.Options)...)
			}
			if p.ValidationRules != nil {
				f.ValidationRules = append([]formbuilder.ValidationRule{}, (*p.ValidationRules)...)
			}
		})
		if err != nil {
			return err
		}
		if p.SuggestKey && p.Key == nil {
			key := b.Editor().SuggestKey()
			return b.EditCandidate(func(f *formbuilder.Field) { f.Key = key })
		}
		return nil
	})
}

func (s *Service) AddOption(ctx context.Context, sid string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error { return b.AddOption() })
}

func (s *Service) RemoveOption(ctx context.Context, sid string, i int) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error { return b.RemoveOption(i) })
}

func (s *Service) AddRule(ctx context.Context, sid string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error { return b.AddValidationRule() })
}

func (s *Service) RemoveRule(ctx context.Context, sid string, i int) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error { return b.RemoveValidationRule(i) })
}

// Commit merges the candidate into the field list.
func (s *Service) Commit(ctx context.Context, sid string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		c := b.Editor().Candidate()
		c.Name = strings.TrimSpace(c.Name)
		c.Key = strings.TrimSpace(c.Key)
		if err := c.CheckTypes(); err != nil {
			return err
		}
		if err := b.EditCandidate(func(f *formbuilder.Field) { f.Name, f.Key = c.Name, c.Key }); err != nil {
			return err
		}
		return b.Commit()
	})
}

func (s *Service) CloseEditor(ctx context.Context, sid string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		b.CloseEditor()
		return nil
	})
}

func (s *Service) DeleteField(ctx context.Context, sid string, i int) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error { return b.DeleteField(i) })
}

func (s *Service) MoveField(ctx context.Context, sid string, from, to int) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error { return b.MoveField(from, to) })
}

func (s *Service) Clear(ctx context.Context, sid string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		b.Clear()
		return nil
	})
}

// Save persists the draft. On success the draft is reloaded from the stored
// form so it carries the assigned ids; on failure the draft is left as it was.
func (s *Service) Save(ctx context.Context, sid, userID string) (Session, error) {
	return s.mutate(ctx, sid, func(b *formbuilder.Builder) error {
		payload := b.Draft().ToPayload()
		if strings.TrimSpace(payload.Meta.Name) == "" {
			return errors.WithStack(ErrNameRequired)
		}
		if payload.Meta.ID == "" && payload.Meta.CreatedBy == "" {
			payload.Meta.CreatedBy = userID
		}
		saved, err := s.forms.Save(ctx, payload)
		if err != nil {
			return err
		}
		b.Load(saved)
		return nil
	})
}
