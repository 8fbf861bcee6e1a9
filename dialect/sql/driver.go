package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/quarry-orm/quarry/dialect"
)

// Driver is a dialect.Driver implementation for database/sql based
// backends. It carries the backend's capability descriptor so compilers
// can gate features against the connected server.
type Driver struct {
	Conn
	dialect  string
	features *dialect.Features
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(d string, c Conn) *Driver {
	return &Driver{dialect: d, Conn: c, features: dialect.Detect(d, "")}
}

// Open wraps database/sql.Open and returns a dialect.Driver.
func Open(d, source string) (*Driver, error) {
	db, err := sql.Open(d, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(d, Conn{db}), nil
}

// OpenDB wraps an existing database/sql.DB with a Driver.
func OpenDB(d string, db *sql.DB) *Driver {
	return NewDriver(d, Conn{db})
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Driver method.
func (d *Driver) Dialect() string {
	return dialect.Normalize(d.dialect)
}

// Features returns the backend's capability descriptor. Until
// DetectFeatures runs, it is the dialect's default descriptor.
func (d *Driver) Features() *dialect.Features {
	return d.features
}

// DetectFeatures queries the server version and rebuilds the capability
// descriptor from it. It is the one startup round trip the capability
// model allows; the descriptor is immutable afterwards.
func (d *Driver) DetectFeatures(ctx context.Context) error {
	query := versionQuery(d.Dialect())
	if query == "" {
		return nil
	}
	rows := &Rows{}
	if err := d.Query(ctx, query, []any{}, rows); err != nil {
		return fmt.Errorf("dialect/sql: detect server version: %w", err)
	}
	defer rows.Close()
	var version string
	if rows.Next() {
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("dialect/sql: scan server version: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	d.features = dialect.Detect(d.Dialect(), version)
	return nil
}

func versionQuery(d string) string {
	switch d {
	case dialect.SQLite:
		return "SELECT sqlite_version()"
	case dialect.MySQL, dialect.MariaDB:
		return "SELECT VERSION()"
	case dialect.Postgres:
		return "SHOW server_version"
	case dialect.Oracle:
		return "SELECT version FROM v$instance"
	case dialect.SQLServer:
		return "SELECT SERVERPROPERTY('productversion')"
	}
	return ""
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements the dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods of database/sql.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given an ExecQuerier.
type Conn struct {
	ExecQuerier
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

var (
	_ dialect.Driver          = (*Driver)(nil)
	_ dialect.FeatureReporter = (*Driver)(nil)
)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime represents a time.Time that may be null.
	NullTime = sql.NullTime
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// NullScanner implements the sql.Scanner interface such that it can be
// used as a scan destination, similar to the types above.
type NullScanner struct {
	S     sql.Scanner
	Valid bool // Valid is true if the Scan value is not NULL.
}

// Scan implements the Scanner interface.
func (n *NullScanner) Scan(value any) error {
	n.Valid = value != nil
	if n.Valid {
		return n.S.Scan(value)
	}
	return nil
}

// ColumnScanner is the interface that wraps the standard sql.Rows methods
// used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}
