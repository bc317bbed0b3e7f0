// Package repos implements the data-access layer. Every repository embeds
// Base for uniform CRUD semantics: absent rows read as nil without error,
// writes validate before touching the database, and all driver errors are
// translated to the dberr taxonomy before they cross the package boundary.
package repos

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/axai-ai/docstore/internal/data/dberr"
	"github.com/axai-ai/docstore/internal/pkg/dbctx"
	"github.com/axai-ai/docstore/internal/platform/logger"
)

var validate = validator.New()

// QueryOptions tunes list-shaped reads.
type QueryOptions struct {
	Limit    int
	Offset   int
	OrderBy  string
	Preloads []string
}

// Base provides shared CRUD over one entity type. Per-entity repositories
// embed it and add their domain queries.
type Base[T any] struct {
	name string
	db   *gorm.DB
	log  *logger.Logger
}

func NewBase[T any](name string, db *gorm.DB, baseLog *logger.Logger) *Base[T] {
	return &Base[T]{name: name, db: db, log: baseLog.With("repo", name)}
}

// Name is the repository identity used for cache keys and metrics labels.
func (b *Base[T]) Name() string { return b.name }

// DB exposes the underlying handle for repositories that open their own
// transactions.
func (b *Base[T]) DB() *gorm.DB { return b.db }

// conn resolves the handle for one call: the ambient transaction when the
// caller runs inside one, the pooled handle otherwise.
func (b *Base[T]) conn(dc dbctx.Context) *gorm.DB {
	tx := dc.Tx
	if tx == nil {
		tx = b.db
	}
	return tx.WithContext(dc.Ctx)
}

// FindByID loads one entity by primary key. Absence is not an error: the
// result is nil with a nil error.
func (b *Base[T]) FindByID(dc dbctx.Context, id any) (*T, error) {
	var entity T
	if err := b.conn(dc).Where("id = ?", id).First(&entity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Translate(err)
	}
	return &entity, nil
}

// FindMany lists entities matching every criteria column exactly.
func (b *Base[T]) FindMany(dc dbctx.Context, criteria map[string]any, opts QueryOptions) ([]*T, error) {
	q := b.conn(dc).Model(new(T))
	if len(criteria) > 0 {
		q = q.Where(criteria)
	}
	q = applyOptions(q, opts)

	var results []*T
	if err := q.Find(&results).Error; err != nil {
		return nil, dberr.Translate(err)
	}
	return results, nil
}

// Create validates and persists one entity in place. Generated fields
// (id, timestamps) are populated on the passed value.
func (b *Base[T]) Create(dc dbctx.Context, entity *T) error {
	if err := validate.Struct(entity); err != nil {
		return fmt.Errorf("%w: %v", dberr.ErrValidation, err)
	}
	if err := b.conn(dc).Create(entity).Error; err != nil {
		return dberr.Translate(err)
	}
	return nil
}

// Update applies a column patch to the row with the given id and returns the
// updated entity. A missing row is ErrNotFound. The patch and the confirming
// re-read run as one transaction so a concurrent delete cannot make a
// successful write report ErrNotFound.
func (b *Base[T]) Update(dc dbctx.Context, id any, patch map[string]any) (*T, error) {
	if len(patch) == 0 {
		return b.requireByID(dc, id)
	}

	var updated *T
	apply := func(inner dbctx.Context) error {
		res := b.conn(inner).Model(new(T)).Where("id = ?", id).Updates(patch)
		if res.Error != nil {
			return dberr.Translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return dberr.ErrNotFound
		}
		entity, err := b.requireByID(inner, id)
		if err != nil {
			return err
		}
		updated = entity
		return nil
	}

	var err error
	if dc.Tx != nil {
		err = apply(dc)
	} else {
		err = b.Transaction(dc.Ctx, apply)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the row with the given id. The bool reports whether a row
// actually existed.
func (b *Base[T]) Delete(dc dbctx.Context, id any) (bool, error) {
	res := b.conn(dc).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return false, dberr.Translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (b *Base[T]) Count(dc dbctx.Context, criteria map[string]any) (int64, error) {
	q := b.conn(dc).Model(new(T))
	if len(criteria) > 0 {
		q = q.Where(criteria)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, dberr.Translate(err)
	}
	return count, nil
}

// Transaction runs fn inside a database transaction. fn receives a context
// carrying the transaction so nested repository calls share it. Any error
// rolls the whole unit back.
func (b *Base[T]) Transaction(ctx context.Context, fn func(dc dbctx.Context) error) error {
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.WithTx(ctx, tx))
	})
	if err != nil {
		return dberr.Translate(err)
	}
	return nil
}

// requireByID is FindByID with absence promoted to ErrNotFound, for paths
// where the row is known to exist.
func (b *Base[T]) requireByID(dc dbctx.Context, id any) (*T, error) {
	entity, err := b.FindByID(dc, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, dberr.ErrNotFound
	}
	return entity, nil
}

func applyOptions(q *gorm.DB, opts QueryOptions) *gorm.DB {
	if opts.OrderBy != "" {
		q = q.Order(opts.OrderBy)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	for _, preload := range opts.Preloads {
		q = q.Preload(preload)
	}
	return q
}
