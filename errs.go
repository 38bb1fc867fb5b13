package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNoRow        = errors.New("no row")
	ErrAlreadySaved = errors.New("entity already saved")
	ErrNotSaved     = errors.New("entity not saved")
	ErrNotModified  = errors.New("entity not modified")
	ErrNoShadowID   = errors.New("no pending related id")
	ErrDisposed     = errors.New("entity deleted from database")
	ErrUnbound      = errors.New("entity not bound to an executor")
	ErrUnknownField = errors.New("unknown field")
)

// Kind classifies why an operation failed.
type Kind int

const (
	KindPrecondition Kind = iota + 1
	KindPrepare
	KindExecute
	KindNoRow
	KindWriteBack
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindPrepare:
		return "prepare"
	case KindExecute:
		return "execute"
	case KindNoRow:
		return "no row"
	case KindWriteBack:
		return "write back"
	default:
		return "unknown"
	}
}

// Error is the failure of a single entity operation.
type Error struct {
	Op    string
	Kind  Kind
	Table string
	Field string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("entity: ")
	b.WriteString(e.Op)
	if e.Table != "" {
		fmt.Fprintf(&b, " %s", e.Table)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ".%s", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsConstraintError reports whether err resulted from a unique, foreign key
// or check constraint violation in the database.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgerrcode.IsIntegrityConstraintViolation(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1451, 1452, 3819:
			return true
		}
		return false
	}

	return containsAny(err.Error(),
		"UNIQUE constraint failed",
		"FOREIGN KEY constraint failed",
		"CHECK constraint failed",
		"NOT NULL constraint failed",
	)
}

// IsUniqueViolation reports whether err resulted from a duplicate key.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
