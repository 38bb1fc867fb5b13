package entity

import (
	"context"
	"errors"
)

// Repository creates and persists entities of one type and reports failures
// as errors instead of booleans. The errors are *Error values, so callers
// can tell why an operation failed with errors.Is or KindOf.
type Repository[T any, PT entityPtr[T]] struct {
	exec    Executor
	options []BindOption
}

func NewRepository[T any, PT entityPtr[T]](exec Executor, options ...BindOption) *Repository[T, PT] {
	return &Repository[T, PT]{
		exec:    exec,
		options: options,
	}
}

// New returns a zero entity bound to the repository's executor.
func (r *Repository[T, PT]) New() PT {
	return New[T, PT](r.exec, r.options...)
}

func (r *Repository[T, PT]) TableDef() (TableDef, error) {
	return Describe(r.New())
}

func (r *Repository[T, PT]) Get(ctx context.Context, id uint64, options ...LoadOption) (PT, error) {
	e := r.New()
	if !e.base().Load(ctx, id, options...) {
		return nil, e.base().Err()
	}

	return e, nil
}

func (r *Repository[T, PT]) Create(ctx context.Context, e PT) error {
	b := r.bind(e)
	if !b.Insert(ctx) {
		return b.Err()
	}

	return nil
}

// Save inserts e if it is not saved and updates it if it is modified.
// Saving a clean entity, or one whose only marked fields are auto columns,
// does nothing.
func (r *Repository[T, PT]) Save(ctx context.Context, e PT) error {
	b := r.bind(e)
	switch {
	case !b.IsSaved():
		if !b.Insert(ctx) {
			return b.Err()
		}
	case b.IsModified():
		if !b.Update(ctx) && !errors.Is(b.Err(), ErrNotModified) {
			return b.Err()
		}
	}

	return nil
}

func (r *Repository[T, PT]) Delete(ctx context.Context, e PT) error {
	b := r.bind(e)
	if !b.DeleteFromDatabase(ctx) {
		return b.Err()
	}

	return nil
}

func (r *Repository[T, PT]) bind(e PT) *Base {
	b := e.base()
	if b.self == nil || b.exec == nil {
		Bind(e, r.exec, r.options...)
	}

	return b
}
