package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
)

// Insert writes the entity as a new row and assigns the generated id.
// It returns false without touching the database if the entity is already
// saved.
func (b *Base) Insert(ctx context.Context) bool {
	return b.finish("insert", b.insert(ctx))
}

// Update writes the modified fields of a saved entity. It returns false
// without executing anything if the entity is not saved or not modified.
func (b *Base) Update(ctx context.Context) bool {
	return b.finish("update", b.update(ctx))
}

// DeleteFromDatabase deletes the row of the entity. On success the entity
// is disposed and every later operation on it fails. Related entities are
// not deleted.
func (b *Base) DeleteFromDatabase(ctx context.Context) bool {
	return b.finish("delete", b.delete(ctx))
}

// Load replaces every persisted field with the row identified by id. If no
// row exists the entity is left unchanged.
func (b *Base) Load(ctx context.Context, id uint64, options ...LoadOption) bool {
	return b.finish("load", b.load(ctx, id, newLoadOption(options)))
}

// LoadRelated resolves an entity-reference field that a lazy Load left
// unset. The load options apply to the related entity's own references.
func (b *Base) LoadRelated(ctx context.Context, field string, options ...LoadOption) bool {
	return b.finish("load related", b.loadRelated(ctx, field, newLoadOption(options)))
}

func (b *Base) finish(op string, err error) bool {
	if b.record(err) {
		return true
	}

	attrs := []any{"op", op, "id", b.id, "error", err}
	if b.self != nil {
		attrs = append(attrs, "table", b.self.TableName())
	}

	switch KindOf(err) {
	case KindPrecondition, KindNoRow:
		b.log().Warn("entity operation not performed", attrs...)
	default:
		b.log().Error("entity operation failed", attrs...)
	}

	return false
}

// record keeps err as the result of the last operation without logging it.
// Nested operations on related entities use it so a failure is logged once,
// by the operation the caller started.
func (b *Base) record(err error) bool {
	b.lastErr = err
	return err == nil
}

func (b *Base) ready(op string) (TableDef, error) {
	if b.self == nil || b.exec == nil {
		return TableDef{}, &Error{Op: op, Kind: KindPrecondition, Err: ErrUnbound}
	}

	td, err := Describe(b.self)
	if err != nil {
		return td, &Error{Op: op, Kind: KindPrepare, Table: b.self.TableName(), Err: err}
	}

	if b.disposed {
		return td, &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Err: ErrDisposed}
	}

	if b.busy {
		return td, &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Err: fmt.Errorf("entity references itself while being written")}
	}

	return td, nil
}

func (b *Base) insert(ctx context.Context) error {
	const op = "insert"
	td, err := b.ready(op)
	if err != nil {
		return err
	}

	if b.IsSaved() {
		return &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Err: ErrAlreadySaved}
	}

	b.busy = true
	defer func() { b.busy = false }()

	args, err := b.bindArgs(ctx, op, td, td.insertColumns())
	if err != nil {
		return err
	}

	res, err := b.execute(ctx, op, td, insertQuery(td), args)
	if err != nil {
		return err
	}

	if id, ok := res.GeneratedID(); ok {
		b.setID(id)
	}

	b.modified = nil
	return nil
}

func (b *Base) update(ctx context.Context) error {
	const op = "update"
	td, err := b.ready(op)
	if err != nil {
		return err
	}

	if !b.IsSaved() {
		return &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Err: ErrNotSaved}
	}

	// A field marked before Bind is stored under its Go name, so the same
	// column can appear twice.
	var cols []ColumnInfo
	for _, name := range b.modified {
		col, ok := td.column(name)
		if !ok {
			return &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Field: name, Err: ErrUnknownField}
		}

		if col.IsAuto || sliceContainsFunc(cols, func(val ColumnInfo) bool { return val.Name == col.Name }) {
			continue
		}
		cols = append(cols, col)
	}

	if len(cols) == 0 {
		// only auto columns were marked; the database owns them
		b.modified = nil
		return &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Err: ErrNotModified}
	}

	b.busy = true
	defer func() { b.busy = false }()

	args, err := b.bindArgs(ctx, op, td, cols)
	if err != nil {
		return err
	}
	args[td.KeyField] = int64(b.id)

	if _, err := b.execute(ctx, op, td, updateQuery(td, cols), args); err != nil {
		return err
	}

	b.modified = nil
	return nil
}

func (b *Base) delete(ctx context.Context) error {
	const op = "delete"
	td, err := b.ready(op)
	if err != nil {
		return err
	}

	args := map[string]any{td.KeyField: int64(b.id)}
	if _, err := b.execute(ctx, op, td, deleteQuery(td), args); err != nil {
		return err
	}

	b.disposed = true
	return nil
}

func (b *Base) execute(ctx context.Context, op string, td TableDef, query string, args map[string]any) (Result, error) {
	stmt, err := b.exec.Prepare(ctx, query)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindPrepare, Table: td.Name, Err: err}
	}
	defer stmt.Close()

	res, err := stmt.Exec(ctx, args)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindExecute, Table: td.Name, Err: err}
	}

	return res, nil
}

// bindArgs reads the values of cols. A related entity is inserted first if
// it is not saved, updated first if it is modified, and bound by its id.
func (b *Base) bindArgs(ctx context.Context, op string, td TableDef, cols []ColumnInfo) (map[string]any, error) {
	v := reflect.ValueOf(b.self).Elem()
	args := make(map[string]any, len(cols)+1)
	for _, col := range cols {
		fv := v.FieldByIndex(col.index)
		if !col.IsEntity {
			args[col.Name] = fv.Interface()
			continue
		}

		if fv.IsNil() {
			args[col.Name] = nil
			continue
		}

		related := fv.Interface().(Entity)
		rb := related.base()
		if rb.self == nil || rb.exec == nil {
			Bind(related, b.exec, WithLogger(b.logger))
		}

		if !rb.IsSaved() {
			if !rb.record(rb.insert(ctx)) {
				return nil, &Error{Op: op, Kind: KindOf(rb.Err()), Table: td.Name, Field: col.Name, Err: rb.Err()}
			}

			if !rb.IsSaved() {
				return nil, &Error{Op: op, Kind: KindExecute, Table: td.Name, Field: col.Name, Err: fmt.Errorf("related %s has no generated id", related.TableName())}
			}
		} else if rb.IsModified() {
			if err := rb.update(ctx); !rb.record(err) && !errors.Is(err, ErrNotModified) {
				return nil, &Error{Op: op, Kind: KindOf(rb.Err()), Table: td.Name, Field: col.Name, Err: rb.Err()}
			}
		}

		args[col.Name] = int64(rb.id)
	}

	return args, nil
}

func (b *Base) load(ctx context.Context, id uint64, opt *loadOption) error {
	const op = "load"
	td, err := b.ready(op)
	if err != nil {
		return err
	}

	staged, err := b.fetch(ctx, op, td, id)
	if err != nil {
		return err
	}

	ctx = withLoadPath(ctx, td.Name, id)
	values := make([]reflect.Value, len(td.Columns))
	shadow := make(map[string]uint64)
	for i, col := range td.Columns {
		if !col.IsEntity {
			values[i] = staged[i].Elem()
			continue
		}

		values[i] = reflect.Zero(col.Type)
		raw := staged[i].Interface().(*sql.NullInt64)
		if !raw.Valid {
			continue
		}

		relatedID := uint64(raw.Int64)
		if !opt.eager || onLoadPath(ctx, col.Type, relatedID) {
			shadow[col.Name] = relatedID
			continue
		}

		related, err := b.loadEntity(ctx, col, relatedID, opt.eager)
		if err != nil {
			return &Error{Op: op, Kind: KindWriteBack, Table: td.Name, Field: col.Name, Err: err}
		}
		values[i] = reflect.ValueOf(related)
	}

	v := reflect.ValueOf(b.self).Elem()
	for i, col := range td.Columns {
		v.FieldByIndex(col.index).Set(values[i])
	}

	b.setID(id)
	b.modified = nil
	b.shadow = nil
	if len(shadow) > 0 {
		b.shadow = shadow
	}

	return nil
}

// fetch reads the row with id into values of the column types, one per
// column. Entity-reference columns are read as *sql.NullInt64.
func (b *Base) fetch(ctx context.Context, op string, td TableDef, id uint64) ([]reflect.Value, error) {
	stmt, err := b.exec.Prepare(ctx, selectQuery(td))
	if err != nil {
		return nil, &Error{Op: op, Kind: KindPrepare, Table: td.Name, Err: err}
	}
	defer stmt.Close()

	rows, err := stmt.Query(ctx, map[string]any{td.KeyField: int64(id)})
	if err != nil {
		return nil, &Error{Op: op, Kind: KindExecute, Table: td.Name, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &Error{Op: op, Kind: KindExecute, Table: td.Name, Err: err}
		}
		return nil, &Error{Op: op, Kind: KindNoRow, Table: td.Name, Err: ErrNoRow}
	}

	var rowID int64
	staged := make([]reflect.Value, len(td.Columns))
	dest := make([]any, 0, len(td.Columns)+1)
	dest = append(dest, &rowID)
	for i, col := range td.Columns {
		if col.IsEntity {
			staged[i] = reflect.ValueOf(&sql.NullInt64{})
		} else {
			staged[i] = reflect.New(col.Type)
		}
		dest = append(dest, staged[i].Interface())
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, &Error{Op: op, Kind: KindWriteBack, Table: td.Name, Err: err}
	}

	return staged, nil
}

func (b *Base) loadRelated(ctx context.Context, field string, opt *loadOption) error {
	const op = "load related"
	td, err := b.ready(op)
	if err != nil {
		return err
	}

	col, ok := td.column(field)
	if !ok || !col.IsEntity {
		return &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Field: field, Err: ErrUnknownField}
	}

	relatedID, ok := b.shadow[col.Name]
	if !ok {
		return &Error{Op: op, Kind: KindPrecondition, Table: td.Name, Field: col.Name, Err: ErrNoShadowID}
	}

	related, err := b.loadEntity(ctx, col, relatedID, opt.eager)
	if err != nil {
		return &Error{Op: op, Kind: KindOf(err), Table: td.Name, Field: col.Name, Err: err}
	}

	reflect.ValueOf(b.self).Elem().FieldByIndex(col.index).Set(reflect.ValueOf(related))
	delete(b.shadow, col.Name)
	return nil
}

// loadEntity creates an instance of the type of col and loads it by id.
func (b *Base) loadEntity(ctx context.Context, col ColumnInfo, id uint64, eager bool) (Entity, error) {
	related, err := instantiate(col.Type)
	if err != nil {
		return nil, &Error{Op: "load", Kind: KindPrecondition, Field: col.Name, Err: err}
	}

	rb := related.base()
	if rb.self == nil || rb.exec == nil {
		Bind(related, b.exec, WithLogger(b.logger))
	}

	if !rb.record(rb.load(ctx, id, &loadOption{eager: eager})) {
		return nil, rb.Err()
	}

	return related, nil
}

type loadPathKey struct{}

type loadStep struct {
	table string
	id    uint64
}

// withLoadPath records that table/id is being loaded so an eager load
// does not recurse into a row that is already on its path.
func withLoadPath(ctx context.Context, table string, id uint64) context.Context {
	path, _ := ctx.Value(loadPathKey{}).([]loadStep)
	path = append(append([]loadStep(nil), path...), loadStep{table: table, id: id})
	return context.WithValue(ctx, loadPathKey{}, path)
}

func onLoadPath(ctx context.Context, t reflect.Type, id uint64) bool {
	path, _ := ctx.Value(loadPathKey{}).([]loadStep)
	if len(path) == 0 {
		return false
	}

	related, err := instantiate(t)
	if err != nil {
		return false
	}

	for _, step := range path {
		if step.table == related.TableName() && step.id == id {
			return true
		}
	}

	return false
}
