// Package dialect defines the backend abstraction of the quarry query
// core.
//
// # Dialects
//
// Six backends are supported, identified by constants:
//
//	dialect.SQLite    = "sqlite"
//	dialect.MySQL     = "mysql"
//	dialect.MariaDB   = "mariadb"
//	dialect.Postgres  = "postgres"
//	dialect.Oracle    = "oracle"
//	dialect.SQLServer = "sqlserver"
//
// # Driver interface
//
// The Driver interface is the executor boundary: everything above it is
// pure computation, everything below it is I/O.
//
//	type Driver interface {
//		Exec(ctx context.Context, query string, args, v any) error
//		Query(ctx context.Context, query string, args, v any) error
//		Tx(ctx context.Context) (Tx, error)
//		Close() error
//		Dialect() string
//	}
//
// # Capabilities
//
// Features describes what a connected backend can do, per category
// (CTEs, window functions, set operations, pagination syntax, ...).
// Descriptors are built once per connection by Detect from the server
// version and are immutable, so the compiler and test-selection tooling
// can consult them without locking:
//
//	f := dialect.Detect(dialect.SQLite, "3.40.1")
//	f.SupportsCategory(dialect.CategoryCTE)        // true
//	f.Supports(dialect.CategoryCTE, dialect.CTERecursive)
package dialect
