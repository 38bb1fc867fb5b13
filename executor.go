package entity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Executor prepares statements written with :name placeholders.
type Executor interface {
	Prepare(ctx context.Context, query string) (Statement, error)
}

type Statement interface {
	Exec(ctx context.Context, args map[string]any) (Result, error)
	Query(ctx context.Context, args map[string]any) (Rows, error)
	Close() error
}

// Result reports the id the database generated for an inserted row.
type Result interface {
	GeneratedID() (uint64, bool)
}

// Rows is a cursor over the rows of a query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// NamedPreparer is implemented by *sqlx.DB and *sqlx.Tx.
type NamedPreparer interface {
	PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
	DriverName() string
}

type sqlxExecutor struct {
	db        NamedPreparer
	returning bool
	// emptyRows is the form of an insert that writes no columns.
	emptyRows string
}

const defaultValues = "DEFAULT VALUES"

// NewExecutor returns an Executor over db. Passing a *sqlx.Tx runs every
// statement inside that transaction; committing it is up to the caller.
//
// Drivers with $n placeholders do not report LastInsertId, so inserts run
// through them read the id from a RETURNING clause.
//
// MySQL has no DEFAULT VALUES clause; inserts of entities without writable
// columns are sent as "() VALUES ()" there.
func NewExecutor(db NamedPreparer) Executor {
	x := &sqlxExecutor{
		db:        db,
		returning: sqlx.BindType(db.DriverName()) == sqlx.DOLLAR,
		emptyRows: defaultValues,
	}

	switch db.DriverName() {
	case "mysql", "nrmysql":
		x.emptyRows = "() VALUES ()"
	}

	return x
}

func (x *sqlxExecutor) Prepare(ctx context.Context, query string) (Statement, error) {
	returning := x.returning && isInsert(query)
	if isInsert(query) && x.emptyRows != defaultValues && strings.HasSuffix(query, " "+defaultValues) {
		query = strings.TrimSuffix(query, defaultValues) + x.emptyRows
	}

	if returning {
		query = fmt.Sprintf("%s RETURNING %s", query, KeyField)
	}

	stmt, err := x.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("entity/sql: prepare: %w", err)
	}

	return &sqlxStatement{stmt: stmt, returning: returning}, nil
}

type sqlxStatement struct {
	stmt      *sqlx.NamedStmt
	returning bool
}

func (s *sqlxStatement) Exec(ctx context.Context, args map[string]any) (Result, error) {
	if s.returning {
		var id int64
		if err := s.stmt.QueryRowxContext(ctx, args).Scan(&id); err != nil {
			return nil, fmt.Errorf("entity/sql: exec: %w", err)
		}

		return insertResult{id: id}, nil
	}

	res, err := s.stmt.ExecContext(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("entity/sql: exec: %w", err)
	}

	return execResult{res}, nil
}

func (s *sqlxStatement) Query(ctx context.Context, args map[string]any) (Rows, error) {
	rows, err := s.stmt.QueryxContext(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("entity/sql: query: %w", err)
	}

	return rows, nil
}

func (s *sqlxStatement) Close() error {
	return s.stmt.Close()
}

type execResult struct {
	sql.Result
}

func (r execResult) GeneratedID() (uint64, bool) {
	id, err := r.LastInsertId()
	if err != nil || id <= 0 {
		return 0, false
	}

	return uint64(id), true
}

type insertResult struct {
	id int64
}

func (r insertResult) GeneratedID() (uint64, bool) {
	return uint64(r.id), r.id > 0
}

func isInsert(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT")
}
