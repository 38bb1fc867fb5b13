// Package entity maps Go structs onto database rows. A concrete type embeds
// Base, names its table and gets insert, update, delete and load-by-id
// statements generated from its persisted fields, including one-to-one
// references to other entities that can be resolved eagerly or lazily.
package entity

import (
	"log/slog"
	"reflect"
)

// Base carries the persistence state of an entity. It must be embedded by
// value and bound with Bind or created with New before use.
//
// Base does no locking; an entity graph must not be used from more than one
// goroutine at a time.
type Base struct {
	id       uint64
	modified []string
	// shadow holds related ids recorded by a lazy Load, keyed by column.
	shadow    map[string]uint64
	disposed  bool
	busy      bool
	self      Entity
	exec      Executor
	logger    *slog.Logger
	observers []func(Change)
	lastErr   error
}

func (b *Base) base() *Base {
	return b
}

// Bind attaches e to exec. Related entities created while loading inherit
// the executor and logger of their owner.
func Bind(e Entity, exec Executor, options ...BindOption) {
	opt := &bindOption{}
	for _, op := range options {
		op(opt)
	}

	b := e.base()
	b.self = e
	b.exec = exec
	if opt.logger != nil {
		b.logger = opt.logger
	}
}

// New returns a zero T bound to exec.
func New[T any, PT entityPtr[T]](exec Executor, options ...BindOption) PT {
	e := PT(new(T))
	Bind(e, exec, options...)
	return e
}

// ID returns the database id, 0 while the entity is not saved.
func (b *Base) ID() uint64 {
	return b.id
}

// IsSaved reports whether the entity has a database id.
func (b *Base) IsSaved() bool {
	return b.id != 0
}

// IsModified reports whether a field was marked modified since the entity
// was created, loaded or last written.
func (b *Base) IsModified() bool {
	return len(b.modified) > 0
}

// IsDisposed reports whether the entity was deleted from the database.
func (b *Base) IsDisposed() bool {
	return b.disposed
}

// ModifiedFields returns the modified column names in the order they were
// first marked.
func (b *Base) ModifiedFields() []string {
	return append([]string(nil), b.modified...)
}

// MarkModified records that a persisted field changed. Setters of concrete
// types call it with the column or Go field name.
func (b *Base) MarkModified(field string) {
	if b.self != nil {
		if cols, err := columnsOf(reflect.TypeOf(b.self)); err == nil {
			for _, col := range cols {
				if col.Field == field {
					field = col.Name
					break
				}
			}
		}
	}

	if !sliceContains(b.modified, field) {
		b.modified = append(b.modified, field)
	}

	b.notify(field)
}

// ShadowID returns the related id a lazy Load recorded for field.
func (b *Base) ShadowID(field string) (uint64, bool) {
	if b.self != nil {
		if td, err := Describe(b.self); err == nil {
			if col, ok := td.column(field); ok {
				field = col.Name
			}
		}
	}

	id, ok := b.shadow[field]
	return id, ok
}

// Err returns why the last operation failed, or nil if it succeeded.
func (b *Base) Err() error {
	return b.lastErr
}

// OnChange registers fn to be called when the id is assigned or a field is
// marked modified.
func (b *Base) OnChange(fn func(Change)) {
	b.observers = append(b.observers, fn)
}

func (b *Base) setID(id uint64) {
	if id == b.id {
		return
	}

	b.id = id
	b.notify(KeyField)
}

func (b *Base) notify(field string) {
	for _, fn := range b.observers {
		fn(Change{Entity: b.self, Field: field})
	}
}

func (b *Base) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
