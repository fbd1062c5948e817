package builder

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/modules/formbuilder"
	pkgredis "github.com/formvoice/core/internal/pkg/redis"
	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
)

const ErrSessionNotFound = errors.Sentinel("builder session not found")

const keyPrefix = "formvoice:builder:"

// Repository persists builder snapshots between requests.
type Repository interface {
	Load(ctx context.Context, sid string) (formbuilder.Snapshot, error)
	Save(ctx context.Context, sid string, s formbuilder.Snapshot) error
	Delete(ctx context.Context, sid string) error
}

// RedisRepository keeps each session as one JSON value with a sliding TTL.
type RedisRepository struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

func NewRedisRepository(rc *pkgredis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rc: rc, ttl: ttl}
}

func (r *RedisRepository) Load(ctx context.Context, sid string) (formbuilder.Snapshot, error) {
	raw, ok, err := r.rc.Get(ctx, keyPrefix+sid)
	if err != nil {
		return formbuilder.Snapshot{}, errors.Wrap(err, "load builder session")
	}
	if !ok {
		return formbuilder.Snapshot{}, errors.WithStack(ErrSessionNotFound)
	}
	var s formbuilder.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return formbuilder.Snapshot{}, errors.Wrap(err, "decode builder session")
	}
	return s, nil
}

func (r *RedisRepository) Save(ctx context.Context, sid string, s formbuilder.Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode builder session")
	}
	return errors.Wrap(r.rc.Set(ctx, keyPrefix+sid, raw, r.ttl), "save builder session")
}

func (r *RedisRepository) Delete(ctx context.Context, sid string) error {
	return errors.Wrap(r.rc.Del(ctx, keyPrefix+sid), "delete builder session")
}

// MemoryRepository is an in-process Repository for single-instance setups
// without Redis. Sessions expire after the same sliding TTL as in Redis.
type MemoryRepository struct {
	sessions *cache.Cache
}

func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{sessions: cache.New(ttl, ttl/2)}
}

func (m *MemoryRepository) Load(_ context.Context, sid string) (formbuilder.Snapshot, error) {
	v, ok := m.sessions.Get(sid)
	if !ok {
		return formbuilder.Snapshot{}, errors.WithStack(ErrSessionNotFound)
	}
	var s formbuilder.Snapshot
	return s, errors.WithStack(json.Unmarshal(v.([]byte), &s))
}

func (m *MemoryRepository) Save(_ context.Context, sid string, s formbuilder.Snapshot) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.WithStack(err)
	}
	m.sessions.SetDefault(sid, raw)
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, sid string) error {
	m.sessions.Delete(sid)
	return nil
}
