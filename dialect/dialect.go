// Package dialect provides the backend abstraction for the quarry query
// core: dialect identifiers, the driver interfaces that delimit the
// executor boundary, and per-backend capability descriptors used for
// compile-time feature gating.
package dialect

import (
	"context"
	"strings"
)

// Supported dialect identifiers.
const (
	// SQLite is the SQLite dialect.
	SQLite = "sqlite"
	// MySQL is the MySQL dialect.
	MySQL = "mysql"
	// MariaDB is the MariaDB dialect. It shares placeholder and quoting
	// conventions with MySQL but has its own capability profile.
	MariaDB = "mariadb"
	// Postgres is the PostgreSQL dialect.
	Postgres = "postgres"
	// Oracle is the Oracle dialect.
	Oracle = "oracle"
	// SQLServer is the Microsoft SQL Server dialect.
	SQLServer = "sqlserver"
)

// All returns the identifiers of every supported dialect.
func All() []string {
	return []string{SQLite, MySQL, MariaDB, Postgres, Oracle, SQLServer}
}

// Normalize maps a driver name to a supported dialect identifier. Driver
// names often carry suffixes (e.g. an instrumented "mysql-tracing"); the
// longest matching dialect prefix wins.
func Normalize(name string) string {
	for _, d := range []string{MariaDB, MySQL, SQLServer, SQLite, Postgres, Oracle} {
		if strings.HasPrefix(name, d) {
			return d
		}
	}
	return name
}

// ExecQuerier wraps the Exec and Query methods of the execution layer.
// The core compiles plans into (sql, args) pairs and hands them to an
// ExecQuerier; it performs no I/O itself.
type ExecQuerier interface {
	// Exec executes a statement that returns no rows. The args parameter
	// must be a []any and v, when non-nil, a *sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows. The args parameter
	// must be a []any and v a *sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface the execution layer implements per backend
// connection.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect identifier of the driver.
	Dialect() string
}

// Tx wraps transactional statement execution.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// FeatureReporter is implemented by drivers that expose the capability
// descriptor of their backend. The compiler consults it when gating plan
// features; drivers that do not implement it get the dialect's default
// descriptor.
type FeatureReporter interface {
	Features() *Features
}
