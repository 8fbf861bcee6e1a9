package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Runtime backend errors pass through this core unmodified; the helpers
// below only classify them so callers can branch on constraint violations
// without driver-specific imports.

// sqlStateError is implemented by drivers that expose SQLSTATE codes
// (pgx and friends) without a concrete error type dependency.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL/MariaDB error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row.
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row.
	mysqlCheckConstraintViolate = 3819
)

// IsConstraintError reports whether the error resulted from any database
// constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether the error resulted from a
// uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return string(pqe.Code) == pgUniqueViolation
	}
	var mye *mysql.MySQLError
	if errors.As(err, &mye) {
		return mye.Number == mysqlDuplicateEntry
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState() == pgUniqueViolation
	}
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL string fallback.
		"violates unique constraint", // Postgres string fallback.
		"UNIQUE constraint failed",   // SQLite.
	)
}

// IsForeignKeyConstraintError reports whether the error resulted from a
// foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return string(pqe.Code) == pgForeignKeyViolation
	}
	var mye *mysql.MySQLError
	if errors.As(err, &mye) {
		return mye.Number == mysqlForeignKeyParent || mye.Number == mysqlForeignKeyChild
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState() == pgForeignKeyViolation
	}
	return containsAny(err.Error(),
		"Error 1451",
		"Error 1452",
		"violates foreign key constraint",
		"FOREIGN KEY constraint failed",
	)
}

// IsCheckConstraintError reports whether the error resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return string(pqe.Code) == pgCheckViolation
	}
	var mye *mysql.MySQLError
	if errors.As(err, &mye) {
		return mye.Number == mysqlCheckConstraintViolate
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState() == pgCheckViolation
	}
	return containsAny(err.Error(),
		"Error 3819",
		"violates check constraint",
		"CHECK constraint failed",
	)
}

// asError extracts an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
