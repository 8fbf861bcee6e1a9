// Package sql provides the expression AST, query plans, per-dialect
// compilers and the chainable select builder of the quarry query core.
//
// The pieces compose in one direction: a Selector accumulates fragments
// and emits an immutable Plan; a Compiler renders the Plan into SQL text
// plus an ordered parameter list for one dialect; a dialect.Driver (the
// executor boundary) runs the output. Construction and compilation are
// pure and synchronous; only the driver performs I/O.
//
//	sel := sql.Select("id", "name").
//		From("users").
//		Where(sql.And(sql.GTE("age", 18), sql.EQ("active", true))).
//		OrderBy("name").
//		Limit(10)
//	query, args, err := sel.ToSQL(dialect.Postgres)
//
// The same selector can be branched without the branches sharing state:
//
//	base := sql.Select().From("orders").Where(sql.EQ("status", "paid"))
//	byDay := base.GroupBy("day")
//	byUser := base.GroupBy("user_id") // unaffected by byDay
package sql
