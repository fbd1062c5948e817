// Package backend is the persistence collaborator: a small collection-oriented
// API over the relational store.
package backend

import (
	"context"
	"strings"
	"time"

	"emperror.dev/errors"
	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	ErrNotFound = errors.Sentinel("record not found")
	ErrConflict = errors.Sentinel("record already exists")
)

const mysqlDuplicateEntry = 1062

// PersistenceError wraps any failure reported by the store for one operation.
type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return e.Op + " " + e.Collection + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err came from the backend.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Op is a filter comparison.
type Op string

const (
	Eq  Op = "="
	Neq Op = "<>"
	Lt  Op = "<"
	Gt  Op = ">"
	In  Op = "IN"
)

// Filter restricts a query to rows where Column Op Value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Where is shorthand for an equality filter.
func Where(column string, value any) Filter {
	return Filter{Column: column, Op: Eq, Value: value}
}

// Order sorts query results by Column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a read against one collection.
type Query struct {
	Filters []Filter
	Order   []Order
	// Preload names associations to load alongside each row.
	Preload []string
	Limit   int
	Offset  int
}

// Backend is what services persist through. Every method runs exactly once;
// there are no retries.
type Backend interface {
	Query(ctx context.Context, collection string, q Query, dest any) error
	Get(ctx context.Context, collection, id string, dest any, preload ...string) error
	Count(ctx context.Context, collection string, q Query) (int64, error)
	Insert(ctx context.Context, collection string, record any) error
	Update(ctx context.Context, collection, id string, partial map[string]any, dest any) error
	SoftDelete(ctx context.Context, collection, id string) error
	Delete(ctx context.Context, collection string, model any, filters ...Filter) (int64, error)
	Transaction(ctx context.Context, fn func(tx Backend) error) error
}

// Gorm implements Backend on a gorm connection.
type Gorm struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// DB returns the underlying connection.
func (g *Gorm) DB() *gorm.DB { return g.db }

func (g *Gorm) Query(ctx context.Context, collection string, q Query, dest any) error {
	tx, err := apply(g.db.WithContext(ctx).Table(collection), q)
	if err != nil {
		return wrap("query", collection, err)
	}
	for _, assoc := range q.Preload {
		tx = tx.Preload(assoc, preloadOrder(assoc))
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	return wrap("query", collection, tx.Find(dest).Error)
}

func (g *Gorm) Get(ctx context.Context, collection, id string, dest any, preload ...string) error {
	tx := g.db.WithContext(ctx).Table(collection)
	for _, assoc := range preload {
		tx = tx.Preload(assoc, preloadOrder(assoc))
	}
	return wrap("get", collection, tx.Where("id = ?", id).Take(dest).Error)
}

func (g *Gorm) Count(ctx context.Context, collection string, q Query) (int64, error) {
	tx, err := apply(g.db.WithContext(ctx).Table(collection), Query{Filters: q.Filters})
	if err != nil {
		return 0, wrap("count", collection, err)
	}
	var n int64
	return n, wrap("count", collection, tx.Count(&n).Error)
}

func (g *Gorm) Insert(ctx context.Context, collection string, record any) error {
	return wrap("insert", collection, g.db.WithContext(ctx).Table(collection).Create(record).Error)
}

// Update applies partial to the row and, when dest is non-nil, reloads it.
func (g *Gorm) Update(ctx context.Context, collection, id string, partial map[string]any, dest any) error {
	values := make(map[string]any, len(partial)+1)
	for k, v := range partial {
		values[k] = v
	}
	if _, ok := values["updated_at"]; !ok {
		values["updated_at"] = time.Now()
	}
	res := g.db.WithContext(ctx).Table(collection).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return wrap("update", collection, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := g.db.WithContext(ctx).Table(collection).Where("id = ?", id).Count(&n).Error; err != nil {
			return wrap("update", collection, err)
		}
		if n == 0 {
			return wrap("update", collection, gorm.ErrRecordNotFound)
		}
	}
	if dest == nil {
		return nil
	}
	return g.Get(ctx, collection, id, dest)
}

// SoftDelete flags the row inactive; it is never physically removed.
func (g *Gorm) SoftDelete(ctx context.Context, collection, id string) error {
	return g.Update(ctx, collection, id, map[string]any{"is_active": false}, nil)
}

// Delete physically removes rows of model matching filters. At least one
// filter is required.
func (g *Gorm) Delete(ctx context.Context, collection string, model any, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, wrap("delete", collection, errors.New("refusing to delete without a filter"))
	}
	tx, err := apply(g.db.WithContext(ctx).Table(collection), Query{Filters: filters})
	if err != nil {
		return 0, wrap("delete", collection, err)
	}
	res := tx.Delete(model)
	return res.RowsAffected, wrap("delete", collection, res.Error)
}

func (g *Gorm) Transaction(ctx context.Context, fn func(tx Backend) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func apply(tx *gorm.DB, q Query) (*gorm.DB, error) {
	for _, f := range q.Filters {
		if !validColumn(f.Column) {
			return nil, errors.Errorf("invalid column %q", f.Column)
		}
		switch f.Op {
		case "", Eq:
			if f.Value == nil {
				tx = tx.Where(f.Column + " IS NULL")
			} else {
				tx = tx.Where(f.Column+" = ?", f.Value)
			}
		case Neq, Lt, Gt:
			tx = tx.Where(f.Column+" "+string(f.Op)+" ?", f.Value)
		case In:
			tx = tx.Where(f.Column+" IN ?", f.Value)
		default:
			return nil, errors.Errorf("unsupported operator %q", f.Op)
		}
	}
	for _, o := range q.Order {
		if !validColumn(o.Column) {
			return nil, errors.Errorf("invalid order column %q", o.Column)
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		tx = tx.Order(o.Column + dir)
	}
	return tx, nil
}

func preloadOrder(assoc string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if assoc == "Fields" {
			return tx.Order("sort_order ASC")
		}
		return tx
	}
}

func validColumn(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = errors.WithStack(ErrNotFound)
	case isDuplicate(err):
		err = errors.WrapIf(ErrConflict, err.Error())
	default:
		err = errors.WithStack(err)
	}
	return &PersistenceError{Op: op, Collection: collection, Err: err}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
