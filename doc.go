// Package quarry is the query-expression core of a database-agnostic ORM.
//
// It provides an immutable SQL expression tree, a chainable query builder,
// per-dialect compilers that turn plans into parameterized SQL for SQLite,
// MySQL, MariaDB, PostgreSQL, Oracle and SQL Server, a batched eager-load
// resolver for model relations, and a registry of bidirectional type
// adapters between Go values and column representations.
//
// The root package holds the error taxonomy shared by all sub-packages and
// the per-instance relation cache. The heavy lifting lives below:
//
//   - dialect: dialect constants, driver interfaces, capability descriptors
//   - dialect/sql: expression AST, query plans, compilers, select builder
//   - dialect/sql/sqlgraph: relation declarations and the eager-load resolver
//   - schema/relation: static relation descriptors
//   - schema/mixin: composable lifecycle capabilities for queries
//   - adapter: host-type to column-type conversion registry
//
// All structural validation (plan shape, set-operation arity, capability
// gating, relation-path resolution) happens before any statement reaches a
// backend; the core fails fast instead of emitting best-effort SQL.
package quarry
