package sql

import (
	"context"
	"sort"

	"github.com/quarry-orm/quarry"
	"github.com/quarry-orm/quarry/dialect"
)

// Selector accumulates query-plan fragments through a chainable API and
// produces a Plan on demand. Every modifier clones before mutating, so
// branching a base query (reusing a filtered selector for two different
// aggregations) never lets one branch observe the other's state.
type Selector struct {
	plan    *Plan
	drv     dialect.Driver
	explain bool
	label   string
}

// Select returns a selector over the given columns. No columns selects *.
func Select(columns ...string) *Selector {
	s := &Selector{plan: NewPlan()}
	if len(columns) == 0 {
		return s
	}
	return s.AppendSelect(columns...)
}

// SelectExpr returns a selector over the given select expressions.
func SelectExpr(exprs ...Expr) *Selector {
	s := &Selector{plan: NewPlan()}
	c := s.clone()
	c.plan.Selects = append(c.plan.Selects, exprs...)
	return c
}

func (s *Selector) clone() *Selector {
	c := *s
	c.plan = s.plan.clone()
	return &c
}

// AppendSelect adds columns to the select list.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	c := s.clone()
	for _, col := range columns {
		c.plan.Selects = append(c.plan.Selects, C(col))
	}
	return c
}

// AppendSelectExpr adds expressions to the select list.
func (s *Selector) AppendSelectExpr(exprs ...Expr) *Selector {
	c := s.clone()
	c.plan.Selects = append(c.plan.Selects, exprs...)
	return c
}

// From sets the source table.
func (s *Selector) From(table string) *Selector {
	c := s.clone()
	c.plan.From = Table{Name: table}
	if c.label == "" {
		c.label = table
	}
	return c
}

// FromAlias sets the source table with an alias.
func (s *Selector) FromAlias(table, alias string) *Selector {
	c := s.clone()
	c.plan.From = Table{Name: table, Alias: alias}
	if c.label == "" {
		c.label = table
	}
	return c
}

// FromSelect uses a subquery as the source.
func (s *Selector) FromSelect(sub *Selector, alias string) *Selector {
	c := s.clone()
	c.plan.From = Subquery{Plan: sub.Plan(), Alias: alias}
	return c
}

// Where adds a predicate, AND-composed with any previous ones. A nil
// predicate is ignored.
func (s *Selector) Where(p Expr) *Selector {
	if p == nil {
		return s
	}
	c := s.clone()
	if c.plan.Where == nil {
		c.plan.Where = p
	} else {
		c.plan.Where = And(c.plan.Where, p)
	}
	return c
}

// WhereMap adds equality predicates from a column-to-value map. A nil value
// compiles to IS NULL. Keys are applied in sorted order so the output is
// deterministic.
func (s *Selector) WhereMap(m map[string]any) *Selector {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	c := s
	for _, k := range keys {
		if m[k] == nil {
			c = c.Where(IsNull(k))
		} else {
			c = c.Where(EQ(k, m[k]))
		}
	}
	return c
}

// Join adds an inner join.
func (s *Selector) Join(table string, on Expr) *Selector {
	return s.JoinSource(InnerJoin, Table{Name: table}, on)
}

// LeftJoin adds a left outer join.
func (s *Selector) LeftJoin(table string, on Expr) *Selector {
	return s.JoinSource(LeftJoin, Table{Name: table}, on)
}

// RightJoin adds a right outer join.
func (s *Selector) RightJoin(table string, on Expr) *Selector {
	return s.JoinSource(RightJoin, Table{Name: table}, on)
}

// FullJoin adds a full outer join.
func (s *Selector) FullJoin(table string, on Expr) *Selector {
	return s.JoinSource(FullJoin, Table{Name: table}, on)
}

// CrossJoin adds a cross join. Cross joins carry no ON expression.
func (s *Selector) CrossJoin(table string) *Selector {
	return s.JoinSource(CrossJoin, Table{Name: table}, nil)
}

// JoinSource adds a join of any kind over any source. Self-joins must alias
// the target or the plan fails validation.
func (s *Selector) JoinSource(kind JoinKind, target Source, on Expr) *Selector {
	c := s.clone()
	c.plan.Joins = append(c.plan.Joins, Join{Kind: kind, Target: target, On: on})
	return c
}

// GroupBy adds grouping columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	c := s.clone()
	for _, col := range columns {
		c.plan.GroupBys = append(c.plan.GroupBys, C(col))
	}
	return c
}

// GroupByExpr adds grouping expressions.
func (s *Selector) GroupByExpr(exprs ...Expr) *Selector {
	c := s.clone()
	c.plan.GroupBys = append(c.plan.GroupBys, exprs...)
	return c
}

// Having sets the HAVING predicate. A plan with HAVING and no GROUP BY is
// rejected at compile time.
func (s *Selector) Having(p Expr) *Selector {
	c := s.clone()
	if c.plan.Having == nil {
		c.plan.Having = p
	} else {
		c.plan.Having = And(c.plan.Having, p)
	}
	return c
}

// OrderBy adds ascending ordering columns.
func (s *Selector) OrderBy(columns ...string) *Selector {
	c := s.clone()
	for _, col := range columns {
		c.plan.Orders = append(c.plan.Orders, Asc(col))
	}
	return c
}

// OrderByDesc adds descending ordering columns.
func (s *Selector) OrderByDesc(columns ...string) *Selector {
	c := s.clone()
	for _, col := range columns {
		c.plan.Orders = append(c.plan.Orders, Desc(col))
	}
	return c
}

// OrderByExpr adds ordering terms.
func (s *Selector) OrderByExpr(orders ...OrderExpr) *Selector {
	c := s.clone()
	c.plan.Orders = append(c.plan.Orders, orders...)
	return c
}

// Limit caps the number of returned rows.
func (s *Selector) Limit(n int) *Selector {
	c := s.clone()
	c.plan.Limit = n
	return c
}

// Offset skips the first n rows.
func (s *Selector) Offset(n int) *Selector {
	c := s.clone()
	c.plan.Offset = n
	return c
}

// Distinct sets DISTINCT on the select list.
func (s *Selector) Distinct() *Selector {
	c := s.clone()
	c.plan.Distinct = true
	return c
}

// CTEOption configures a CTE attached with WithCTE.
type CTEOption func(*CTE)

// CTEColumns names the CTE's output columns.
func CTEColumns(columns ...string) CTEOption {
	return func(c *CTE) { c.Columns = columns }
}

// CTEMaterialized sets the MATERIALIZED / NOT MATERIALIZED hint.
func CTEMaterialized(v bool) CTEOption {
	return func(c *CTE) { c.Materialized = &v }
}

// CTERecursive marks the CTE recursive. Its query must combine the anchor
// and recursive member with a UNION, or the plan fails validation.
func CTERecursive() CTEOption {
	return func(c *CTE) { c.Recursive = true }
}

// WithCTE attaches a common table expression to the query.
func (s *Selector) WithCTE(name string, query *Selector, opts ...CTEOption) *Selector {
	c := s.clone()
	cte := CTE{Name: name, Plan: query.Plan()}
	for _, opt := range opts {
		opt(&cte)
	}
	c.plan.CTEs = append(c.plan.CTEs, cte)
	return c
}

// Union combines with another selector via UNION.
func (s *Selector) Union(other *Selector) *Selector {
	return s.setOp(UnionOp, false, other)
}

// UnionAll combines with another selector via UNION ALL.
func (s *Selector) UnionAll(other *Selector) *Selector {
	return s.setOp(UnionOp, true, other)
}

// Intersect combines with another selector via INTERSECT.
func (s *Selector) Intersect(other *Selector) *Selector {
	return s.setOp(IntersectOp, false, other)
}

// Except combines with another selector via EXCEPT (MINUS on Oracle).
func (s *Selector) Except(other *Selector) *Selector {
	return s.setOp(ExceptOp, false, other)
}

func (s *Selector) setOp(kind SetOpKind, all bool, other *Selector) *Selector {
	c := s.clone()
	c.plan.SetOps = append(c.plan.SetOps, SetClause{Kind: kind, All: all, Plan: other.Plan()})
	return c
}

// Explain marks the selector so that row-returning terminals (All,
// Aggregate) compile the plan wrapped in the dialect's EXPLAIN syntax.
// It has no effect on One, Exists or Count.
func (s *Selector) Explain() *Selector {
	c := s.clone()
	c.explain = true
	return c
}

// RunWith binds the selector to a driver for terminal calls.
func (s *Selector) RunWith(drv dialect.Driver) *Selector {
	c := s.clone()
	c.drv = drv
	return c
}

// Plan returns a copy of the accumulated query plan.
func (s *Selector) Plan() *Plan {
	return s.plan.clone()
}

// ToSQL compiles the accumulated plan for the given dialect without
// executing anything.
func (s *Selector) ToSQL(d string, opts ...CompilerOption) (string, []any, error) {
	return NewCompiler(d, opts...).Compile(s.plan)
}

func (s *Selector) compiler() (*Compiler, error) {
	if s.drv == nil {
		return nil, quarry.NewInvalidPlanError("selector has no driver; call RunWith first")
	}
	opts := []CompilerOption{}
	if fr, ok := s.drv.(dialect.FeatureReporter); ok {
		opts = append(opts, WithFeatures(fr.Features()))
	}
	return NewCompiler(s.drv.Dialect(), opts...), nil
}

// All executes the query and returns every row as a column-to-value map.
// With Explain set, the backend's plan rows are returned instead.
func (s *Selector) All(ctx context.Context) ([]Row, error) {
	cl, err := s.compiler()
	if err != nil {
		return nil, err
	}
	var (
		query string
		args  []any
	)
	if s.explain {
		query, args, err = cl.CompileExplain(s.plan)
	} else {
		query, args, err = cl.Compile(s.plan)
	}
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, query, args)
}

// One executes the query and returns exactly one row. Zero rows yield a
// NotFoundError, more than one a NotSingularError.
func (s *Selector) One(ctx context.Context) (Row, error) {
	c := s.Limit(2)
	c.explain = false
	rows, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, quarry.NewNotFoundError(s.labelOrTable())
	case 1:
		return rows[0], nil
	default:
		return nil, quarry.NewNotSingularError(s.labelOrTable())
	}
}

// Exists reports whether the query matches at least one row.
func (s *Selector) Exists(ctx context.Context) (bool, error) {
	cl, err := s.compiler()
	if err != nil {
		return false, err
	}
	inner, args, err := cl.Compile(s.plan)
	if err != nil {
		return false, err
	}
	var query string
	switch cl.Dialect() {
	case dialect.SQLServer:
		query = "SELECT CASE WHEN EXISTS (" + inner + ") THEN 1 ELSE 0 END"
	case dialect.Oracle:
		query = "SELECT CASE WHEN EXISTS (" + inner + ") THEN 1 ELSE 0 END FROM DUAL"
	default:
		query = "SELECT EXISTS (" + inner + ")"
	}
	rows, err := s.queryRows(ctx, query, args)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	for _, v := range rows[0] {
		return truthy(v), nil
	}
	return false, nil
}

// Count executes SELECT COUNT(*) over the accumulated plan, dropping any
// ordering and pagination.
func (s *Selector) Count(ctx context.Context) (int64, error) {
	c := s.clone()
	c.explain = false
	c.plan.Selects = []Expr{Count("*").As("count")}
	c.plan.Orders = nil
	c.plan.Limit = -1
	c.plan.Offset = -1
	row, err := c.aggregateRow(ctx)
	if err != nil {
		return 0, err
	}
	return toInt64(row["count"]), nil
}

// Aggregate replaces the select list with the given aggregate calls and
// returns the single result row keyed by alias. With Explain set, the
// backend's plan is compiled instead of the aggregation.
func (s *Selector) Aggregate(ctx context.Context, fns ...Func) (Row, error) {
	c := s.clone()
	c.plan.Selects = make([]Expr, len(fns))
	for i, f := range fns {
		c.plan.Selects[i] = f
	}
	return c.aggregateRow(ctx)
}

func (s *Selector) aggregateRow(ctx context.Context) (Row, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, quarry.NewNotFoundError(s.labelOrTable())
	}
	return rows[0], nil
}

func (s *Selector) queryRows(ctx context.Context, query string, args []any) ([]Row, error) {
	rows := &Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

func (s *Selector) labelOrTable() string {
	if s.label != "" {
		return s.label
	}
	return "row"
}

// Row is a single result row keyed by column name. It is the bound-row
// output consumed by the external object-instantiation layer.
type Row map[string]any

// ScanRows drains a result set into column-keyed maps.
func ScanRows(rows *Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v == "1" || v == "t" || v == "true"
	case []byte:
		return len(v) > 0 && (v[0] == '1' || v[0] == 't')
	default:
		return false
	}
}

func toInt64(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case uint64:
		return int64(v)
	default:
		return 0
	}
}
