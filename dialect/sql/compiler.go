package sql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quarry-orm/quarry"
	"github.com/quarry-orm/quarry/adapter"
	"github.com/quarry-orm/quarry/dialect"
)

// Compiler renders a Plan into SQL text and an ordered parameter list for
// one dialect. Compilation is pure: the same plan compiled twice yields
// byte-identical SQL and parameters, and no I/O happens before the caller
// hands the output to an executor.
type Compiler struct {
	dialect  string
	features *dialect.Features
	registry *adapter.Registry
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithFeatures sets the capability descriptor consulted for feature gating.
// Defaults to the dialect's descriptor for an unknown (current) server.
func WithFeatures(f *dialect.Features) CompilerOption {
	return func(c *Compiler) { c.features = f }
}

// WithRegistry sets the type-adapter registry used to encode literals at
// bind time. Defaults to the process-wide registry.
func WithRegistry(r *adapter.Registry) CompilerOption {
	return func(c *Compiler) { c.registry = r }
}

// NewCompiler returns a compiler for the given dialect.
func NewCompiler(d string, opts ...CompilerOption) *Compiler {
	c := &Compiler{dialect: dialect.Normalize(d)}
	for _, opt := range opts {
		opt(c)
	}
	if c.features == nil {
		c.features = dialect.Detect(c.dialect, "")
	}
	if c.registry == nil {
		c.registry = adapter.Default()
	}
	return c
}

// Dialect returns the target dialect.
func (c *Compiler) Dialect() string { return c.dialect }

// Features returns the capability descriptor the compiler gates against.
func (c *Compiler) Features() *dialect.Features { return c.features }

// Compile renders the plan. Structural validation and capability gating run
// first; on failure no SQL is produced.
func (c *Compiler) Compile(p *Plan) (string, []any, error) {
	if err := p.Validate(); err != nil {
		return "", nil, err
	}
	if err := c.gate(p); err != nil {
		return "", nil, err
	}
	pr := &printer{c: c}
	pr.plan(p, true)
	if pr.err != nil {
		return "", nil, pr.err
	}
	return pr.b.String(), pr.args, nil
}

// CompileExplain renders the plan wrapped in the dialect's EXPLAIN syntax.
func (c *Compiler) CompileExplain(p *Plan) (string, []any, error) {
	if !c.features.Supports(dialect.CategoryExplain, dialect.ExplainStatement) {
		return "", nil, quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategoryExplain), "")
	}
	sqlText, args, err := c.Compile(p)
	if err != nil {
		return "", nil, err
	}
	switch c.dialect {
	case dialect.SQLite:
		return "EXPLAIN QUERY PLAN " + sqlText, args, nil
	case dialect.Oracle:
		return "EXPLAIN PLAN FOR " + sqlText, args, nil
	default:
		return "EXPLAIN " + sqlText, args, nil
	}
}

// gate walks the plan and rejects any feature the capability descriptor
// does not declare, before a single byte of SQL is emitted.
func (c *Compiler) gate(p *Plan) error {
	for _, cte := range p.CTEs {
		if !c.features.Supports(dialect.CategoryCTE, dialect.CTEBasic) {
			return quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategoryCTE), "basic")
		}
		if cte.Recursive && !c.features.Supports(dialect.CategoryCTE, dialect.CTERecursive) {
			return quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategoryCTE), "recursive")
		}
		if cte.Materialized != nil && !c.features.Supports(dialect.CategoryCTE, dialect.CTEMaterialized) {
			return quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategoryCTE), "materialized")
		}
		if err := c.gate(cte.Plan); err != nil {
			return err
		}
	}
	for _, s := range p.SetOps {
		var bit dialect.Capability
		switch s.Kind {
		case UnionOp:
			bit = dialect.SetOpUnion
		case IntersectOp:
			bit = dialect.SetOpIntersect
		case ExceptOp:
			bit = dialect.SetOpExcept
		}
		if !c.features.Supports(dialect.CategorySetOps, bit) {
			return quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategorySetOps), strings.ToLower(s.Kind.String()))
		}
		if err := c.gate(s.Plan); err != nil {
			return err
		}
	}
	if sq, ok := p.From.(Subquery); ok {
		if err := c.gate(sq.Plan); err != nil {
			return err
		}
	}
	for _, j := range p.Joins {
		if sq, ok := j.Target.(Subquery); ok {
			if err := c.gate(sq.Plan); err != nil {
				return err
			}
		}
		if j.On != nil {
			if err := c.gateExpr(j.On); err != nil {
				return err
			}
		}
	}
	for _, e := range p.Selects {
		if err := c.gateExpr(e); err != nil {
			return err
		}
	}
	for _, g := range p.GroupBys {
		if err := c.gateExpr(g); err != nil {
			return err
		}
	}
	for _, o := range p.Orders {
		if err := c.gateExpr(o.Expr); err != nil {
			return err
		}
	}
	for _, e := range []Expr{p.Where, p.Having} {
		if e != nil {
			if err := c.gateExpr(e); err != nil {
				return err
			}
		}
	}
	return nil
}

var windowCaps = map[string]dialect.Capability{
	"ROW_NUMBER": dialect.WindowRowNumber,
	"RANK":       dialect.WindowRank,
	"DENSE_RANK": dialect.WindowDenseRank,
	"LAG":        dialect.WindowLag,
	"LEAD":       dialect.WindowLead,
	"NTILE":      dialect.WindowNtile,
}

func (c *Compiler) gateExpr(e Expr) error {
	switch e := e.(type) {
	case Func:
		if e.Over != nil {
			if !c.features.SupportsCategory(dialect.CategoryWindow) {
				return quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategoryWindow), "")
			}
			if bit, ok := windowCaps[strings.ToUpper(e.Name)]; ok && !c.features.Supports(dialect.CategoryWindow, bit) {
				return quarry.NewUnsupportedFeatureError(c.dialect, string(dialect.CategoryWindow), strings.ToLower(e.Name))
			}
		}
		for _, a := range e.Args {
			if err := c.gateExpr(a); err != nil {
				return err
			}
		}
	case Binary:
		if err := c.gateExpr(e.Left); err != nil {
			return err
		}
		return c.gateExpr(e.Right)
	case Unary:
		return c.gateExpr(e.Operand)
	case Tuple:
		for _, el := range e.Elems {
			if err := c.gateExpr(el); err != nil {
				return err
			}
		}
	case Case:
		for _, b := range e.Branches {
			if err := c.gateExpr(b.When); err != nil {
				return err
			}
			if err := c.gateExpr(b.Then); err != nil {
				return err
			}
		}
		if e.Else != nil {
			return c.gateExpr(e.Else)
		}
	case Subquery:
		return c.gate(e.Plan)
	case ExistsExpr:
		return c.gate(e.Query)
	}
	return nil
}

// printer accumulates SQL text and parameters during a single compilation.
type printer struct {
	c    *Compiler
	b    strings.Builder
	args []any
	n    int
	err  error
}

func (pr *printer) write(s string) {
	if pr.err == nil {
		pr.b.WriteString(s)
	}
}

// bind encodes the value through the adapter registry, appends it to the
// parameter list and writes the dialect placeholder. Duplicate values are
// deliberately not deduplicated: each occurrence gets its own placeholder
// and parameter entry so the index correspondence stays one-to-one.
func (pr *printer) bind(v any) {
	if pr.err != nil {
		return
	}
	encoded, err := pr.c.registry.ToDatabase(v)
	if err != nil {
		pr.err = err
		return
	}
	pr.n++
	pr.args = append(pr.args, encoded)
	switch pr.c.dialect {
	case dialect.Postgres:
		pr.write("$" + strconv.Itoa(pr.n))
	case dialect.Oracle:
		pr.write(":p" + strconv.Itoa(pr.n))
	case dialect.SQLServer:
		pr.write("@p" + strconv.Itoa(pr.n))
	default:
		pr.write("?")
	}
}

var plainIdent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ident writes an identifier, quoting it when it is a reserved word or
// contains characters outside the plain identifier set. Unreserved plain
// identifiers stay unquoted to keep the generated SQL readable.
func (pr *printer) ident(name string) {
	if name == "*" {
		pr.write("*")
		return
	}
	if !reservedWords[strings.ToUpper(name)] && plainIdent.MatchString(name) {
		pr.write(name)
		return
	}
	switch pr.c.dialect {
	case dialect.MySQL, dialect.MariaDB:
		pr.write("`" + strings.ReplaceAll(name, "`", "``") + "`")
	case dialect.SQLServer:
		pr.write("[" + strings.ReplaceAll(name, "]", "]]") + "]")
	default:
		pr.write(`"` + strings.ReplaceAll(name, `"`, `""`) + `"`)
	}
}

func (pr *printer) plan(p *Plan, outer bool) {
	if pr.err != nil {
		return
	}
	// Pagination fallbacks wrap only the text rendered from this point on,
	// never any enclosing statement already in the buffer.
	start := pr.b.Len()
	pr.ctes(p)
	pr.core(p)
	for _, s := range p.SetOps {
		pr.write(" " + pr.setOpKeyword(s) + " ")
		pr.core(s.Plan)
	}
	if len(p.Orders) > 0 {
		pr.write(" ORDER BY ")
		for i, o := range p.Orders {
			if i > 0 {
				pr.write(", ")
			}
			pr.expr(o.Expr)
			if o.Desc {
				pr.write(" DESC")
			}
		}
	}
	pr.pagination(p, start)
}

func (pr *printer) setOpKeyword(s SetClause) string {
	kw := s.Kind.String()
	if s.Kind == ExceptOp && pr.c.dialect == dialect.Oracle {
		kw = "MINUS"
	}
	if s.All {
		kw += " ALL"
	}
	return kw
}

func (pr *printer) ctes(p *Plan) {
	if len(p.CTEs) == 0 {
		return
	}
	pr.write("WITH ")
	if pr.recursiveKeyword() {
		for _, cte := range p.CTEs {
			if cte.Recursive {
				pr.write("RECURSIVE ")
				break
			}
		}
	}
	for i, cte := range p.CTEs {
		if i > 0 {
			pr.write(", ")
		}
		pr.ident(cte.Name)
		if len(cte.Columns) > 0 {
			pr.write(" (")
			for j, col := range cte.Columns {
				if j > 0 {
					pr.write(", ")
				}
				pr.ident(col)
			}
			pr.write(")")
		}
		pr.write(" AS ")
		if cte.Materialized != nil {
			if *cte.Materialized {
				pr.write("MATERIALIZED ")
			} else {
				pr.write("NOT MATERIALIZED ")
			}
		}
		pr.write("(")
		pr.plan(cte.Plan, false)
		pr.write(") ")
	}
}

// recursiveKeyword reports whether the dialect spells out RECURSIVE in the
// WITH clause. Oracle and SQL Server treat every CTE as potentially
// recursive and reject the keyword.
func (pr *printer) recursiveKeyword() bool {
	switch pr.c.dialect {
	case dialect.Oracle, dialect.SQLServer:
		return false
	}
	return true
}

// core renders the SELECT..HAVING part of a plan, without set operations,
// ordering or pagination.
func (pr *printer) core(p *Plan) {
	pr.write("SELECT ")
	if p.Distinct {
		pr.write("DISTINCT ")
	}
	if len(p.Selects) == 0 {
		pr.write("*")
	} else {
		for i, s := range p.Selects {
			if i > 0 {
				pr.write(", ")
			}
			pr.selectItem(s)
		}
	}
	switch {
	case p.From != nil:
		pr.write(" FROM ")
		pr.source(p.From)
	case pr.c.dialect == dialect.Oracle:
		pr.write(" FROM DUAL")
	}
	for _, j := range p.Joins {
		pr.write(" " + j.Kind.String() + " ")
		pr.source(j.Target)
		if j.On != nil {
			pr.write(" ON ")
			pr.expr(j.On)
		}
	}
	if p.Where != nil {
		pr.write(" WHERE ")
		pr.expr(p.Where)
	}
	if len(p.GroupBys) > 0 {
		pr.write(" GROUP BY ")
		for i, g := range p.GroupBys {
			if i > 0 {
				pr.write(", ")
			}
			pr.expr(g)
		}
	}
	if p.Having != nil {
		pr.write(" HAVING ")
		pr.expr(p.Having)
	}
}

func (pr *printer) source(s Source) {
	switch s := s.(type) {
	case Table:
		pr.ident(s.Name)
		pr.sourceAlias(s.Alias)
	case Subquery:
		pr.write("(")
		pr.plan(s.Plan, false)
		pr.write(")")
		pr.sourceAlias(s.Alias)
	default:
		pr.err = quarry.NewInvalidPlanError("unknown source type %T", s)
	}
}

// sourceAlias writes a table or subquery alias. Oracle rejects the AS
// keyword in front of table aliases (ORA-00933), column aliases only.
func (pr *printer) sourceAlias(alias string) {
	if alias == "" {
		return
	}
	if pr.c.dialect == dialect.Oracle {
		pr.write(" ")
	} else {
		pr.write(" AS ")
	}
	pr.ident(alias)
}

// selectItem renders an expression in select-list position, where output
// aliases are legal.
func (pr *printer) selectItem(e Expr) {
	switch e := e.(type) {
	case Column:
		pr.column(e)
		if e.Alias != "" {
			pr.write(" AS ")
			pr.ident(e.Alias)
		}
	case Func:
		pr.funcCall(e)
		if e.Alias != "" {
			pr.write(" AS ")
			pr.ident(e.Alias)
		}
	default:
		pr.expr(e)
	}
}

func (pr *printer) column(c Column) {
	if c.Table != "" {
		pr.ident(c.Table)
		pr.write(".")
	}
	pr.ident(c.Name)
}

func (pr *printer) expr(e Expr) {
	if pr.err != nil {
		return
	}
	switch e := e.(type) {
	case Column:
		pr.column(e)
	case Literal:
		pr.bind(e.Value)
	case Raw:
		pr.write(e.SQL)
	case FalseExpr:
		pr.write("1 = 0")
	case Binary:
		pr.binary(e)
	case Unary:
		switch e.Op {
		case OpIsNull:
			pr.expr(e.Operand)
			pr.write(" IS NULL")
		case OpNotNull:
			pr.expr(e.Operand)
			pr.write(" IS NOT NULL")
		case OpNot:
			pr.write("NOT (")
			pr.expr(e.Operand)
			pr.write(")")
		default:
			pr.err = quarry.NewInvalidPlanError("operator %q is not unary", e.Op)
		}
	case Tuple:
		pr.write("(")
		for i, el := range e.Elems {
			if i > 0 {
				pr.write(", ")
			}
			pr.expr(el)
		}
		pr.write(")")
	case Func:
		pr.funcCall(e)
	case Subquery:
		pr.write("(")
		pr.plan(e.Plan, false)
		pr.write(")")
	case ExistsExpr:
		pr.write("EXISTS (")
		pr.plan(e.Query, false)
		pr.write(")")
	case Case:
		pr.write("CASE")
		for _, b := range e.Branches {
			pr.write(" WHEN ")
			pr.expr(b.When)
			pr.write(" THEN ")
			pr.expr(b.Then)
		}
		if e.Else != nil {
			pr.write(" ELSE ")
			pr.expr(e.Else)
		}
		pr.write(" END")
	case nil:
		pr.err = quarry.NewInvalidPlanError("nil expression")
	default:
		pr.err = quarry.NewInvalidPlanError("unknown expression type %T", e)
	}
}

// binary renders a binary node. Boolean and arithmetic nodes are always
// parenthesized: precedence lives in the tree, never in reader knowledge
// of operator binding.
func (pr *printer) binary(e Binary) {
	switch e.Op {
	case OpAnd, OpOr, OpAdd, OpSub, OpMul, OpDiv, OpMod:
		pr.write("(")
		pr.expr(e.Left)
		pr.write(" " + e.Op.String() + " ")
		pr.expr(e.Right)
		pr.write(")")
	case OpIn, OpNotIn:
		pr.expr(e.Left)
		pr.write(" " + e.Op.String() + " ")
		switch r := e.Right.(type) {
		case Tuple, Subquery:
			pr.expr(r)
		default:
			pr.write("(")
			pr.expr(r)
			pr.write(")")
		}
	default:
		pr.expr(e.Left)
		pr.write(" " + e.Op.String() + " ")
		pr.expr(e.Right)
	}
}

// funcMap maps canonical function names to dialect spellings. Functions not
// listed here pass through verbatim, which keeps vendor-specific calls
// usable without a mapping entry per dialect.
var funcMap = map[string]map[string]string{
	"IFNULL": {
		dialect.Postgres:  "COALESCE",
		dialect.Oracle:    "NVL",
		dialect.SQLServer: "ISNULL",
	},
	"RANDOM": {
		dialect.MySQL:     "RAND",
		dialect.MariaDB:   "RAND",
		dialect.SQLServer: "RAND",
		dialect.Oracle:    "DBMS_RANDOM.VALUE",
	},
	"LENGTH": {
		dialect.SQLServer: "LEN",
	},
}

func (pr *printer) funcCall(f Func) {
	name := strings.ToUpper(f.Name)
	if mapped, ok := funcMap[name][pr.c.dialect]; ok {
		name = mapped
	}
	pr.write(name + "(")
	if f.Distinct {
		pr.write("DISTINCT ")
	}
	for i, a := range f.Args {
		if i > 0 {
			pr.write(", ")
		}
		pr.expr(a)
	}
	pr.write(")")
	if f.Over != nil {
		pr.write(" OVER (")
		sep := ""
		if len(f.Over.PartitionBy) > 0 {
			pr.write("PARTITION BY ")
			for i, p := range f.Over.PartitionBy {
				if i > 0 {
					pr.write(", ")
				}
				pr.expr(p)
			}
			sep = " "
		}
		if len(f.Over.OrderBy) > 0 {
			pr.write(sep + "ORDER BY ")
			for i, o := range f.Over.OrderBy {
				if i > 0 {
					pr.write(", ")
				}
				pr.expr(o.Expr)
				if o.Desc {
					pr.write(" DESC")
				}
			}
			sep = " "
		}
		if f.Over.Frame != "" {
			pr.write(sep + f.Over.Frame)
		}
		pr.write(")")
	}
}

func (pr *printer) pagination(p *Plan, start int) {
	if p.Limit < 0 && p.Offset < 0 {
		return
	}
	f := pr.c.features
	switch {
	case f.Supports(dialect.CategoryPagination, dialect.PaginationLimitOffset):
		pr.limitOffset(p)
	case f.Supports(dialect.CategoryPagination, dialect.PaginationFetchNext):
		pr.fetchNext(p)
	default:
		pr.rownumWrap(p, start)
	}
}

func (pr *printer) limitOffset(p *Plan) {
	limit := p.Limit
	if limit < 0 {
		// OFFSET without LIMIT needs a syntactic limit on some backends.
		switch pr.c.dialect {
		case dialect.MySQL, dialect.MariaDB:
			pr.write(" LIMIT 18446744073709551615 OFFSET " + strconv.Itoa(p.Offset))
			return
		case dialect.SQLite:
			pr.write(" LIMIT -1 OFFSET " + strconv.Itoa(p.Offset))
			return
		}
	} else {
		pr.write(" LIMIT " + strconv.Itoa(limit))
	}
	if p.Offset >= 0 {
		pr.write(" OFFSET " + strconv.Itoa(p.Offset))
	}
}

func (pr *printer) fetchNext(p *Plan) {
	// SQL Server rejects OFFSET without ORDER BY.
	if len(p.Orders) == 0 && pr.c.dialect == dialect.SQLServer {
		pr.write(" ORDER BY (SELECT NULL)")
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	pr.write(" OFFSET " + strconv.Itoa(offset) + " ROWS")
	if p.Limit >= 0 {
		pr.write(" FETCH NEXT " + strconv.Itoa(p.Limit) + " ROWS ONLY")
	}
}

// rownumWrap is the pagination fallback for backends without native fetch
// syntax (pre-12c Oracle). The text rendered for the current plan, from
// start onward, is wrapped in a ROWNUM subquery; text before start belongs
// to an enclosing statement and stays untouched.
func (pr *printer) rownumWrap(p *Plan, start int) {
	if pr.err != nil {
		return
	}
	full := pr.b.String()
	prefix, inner := full[:start], full[start:]
	pr.b.Reset()
	pr.b.WriteString(prefix)
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	pr.write(`SELECT * FROM (SELECT "_q".*, ROWNUM "_rn" FROM (`)
	pr.b.WriteString(inner)
	pr.write(`) "_q"`)
	if p.Limit >= 0 {
		pr.write(" WHERE ROWNUM <= " + strconv.Itoa(offset+p.Limit))
	}
	pr.write(`) WHERE "_rn" > ` + strconv.Itoa(offset))
}
