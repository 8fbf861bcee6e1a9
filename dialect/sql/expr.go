package sql

// Expr is a node in the expression tree. Nodes are immutable once
// constructed: combinators allocate new nodes and never modify operands,
// so a fragment can be shared between plans safely.
//
// Nodes carry no dialect knowledge. Rendering, quoting, placeholder style
// and capability gating all belong to the Compiler.
type Expr interface {
	expr()
}

// Op is a binary or unary operator.
type Op int

// Operators, in rough precedence groups.
const (
	OpEQ Op = iota
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpLike
	OpIn
	OpNotIn
	OpIsNull
	OpNotNull
	OpAnd
	OpOr
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var opText = [...]string{
	OpEQ:      "=",
	OpNEQ:     "<>",
	OpGT:      ">",
	OpGTE:     ">=",
	OpLT:      "<",
	OpLTE:     "<=",
	OpLike:    "LIKE",
	OpIn:      "IN",
	OpNotIn:   "NOT IN",
	OpIsNull:  "IS NULL",
	OpNotNull: "IS NOT NULL",
	OpAnd:     "AND",
	OpOr:      "OR",
	OpNot:     "NOT",
	OpAdd:     "+",
	OpSub:     "-",
	OpMul:     "*",
	OpDiv:     "/",
	OpMod:     "%",
}

// String returns the SQL text of the operator.
func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return ""
}

// Column references a column, optionally qualified and aliased.
type Column struct {
	Table string
	Name  string
	Alias string
}

func (Column) expr() {}

// C returns an unqualified column reference.
func C(name string) Column { return Column{Name: name} }

// T returns a table-qualified column reference.
func T(table, name string) Column { return Column{Table: table, Name: name} }

// As returns a copy of the column with an output alias.
func (c Column) As(alias string) Column {
	c.Alias = alias
	return c
}

// Literal is a host-language value bound as a query parameter. The value is
// encoded through the type-adapter registry at compile (bind) time, not at
// construction time.
type Literal struct {
	Value any
}

func (Literal) expr() {}

// V returns a literal bound as a parameter.
func V(value any) Literal { return Literal{Value: value} }

// Raw is pre-rendered SQL text spliced verbatim into the output. It is the
// escape hatch for vendor syntax the tree does not model.
type Raw struct {
	SQL string
}

func (Raw) expr() {}

// Expression wraps raw SQL text as an expression.
func Expression(sql string) Raw { return Raw{SQL: sql} }

// Binary applies an operator to two operands. Precedence is carried by the
// tree shape; the compiler parenthesizes nested boolean operands, so
// ambiguity cannot arise from rendered text.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (Binary) expr() {}

// Unary applies an operator to a single operand.
type Unary struct {
	Op      Op
	Operand Expr
}

func (Unary) expr() {}

// Tuple is an ordered list of expressions, rendered comma-separated. Used
// as the right operand of IN.
type Tuple struct {
	Elems []Expr
}

func (Tuple) expr() {}

// FalseExpr is an always-false predicate. The compiler renders it with the
// dialect's canonical form (e.g. 1 = 0). It is what an IN over an empty
// collection compiles to, instead of invalid SQL.
type FalseExpr struct{}

func (FalseExpr) expr() {}

// False returns an always-false predicate.
func False() FalseExpr { return FalseExpr{} }

// Func is a function call, optionally DISTINCT-qualified and optionally
// windowed with an OVER clause. Function names are mapped per dialect by
// the compiler; unmapped names pass through verbatim.
type Func struct {
	Name     string
	Args     []Expr
	Distinct bool
	Over     *WindowSpec
	Alias    string
}

func (Func) expr() {}

// As returns a copy of the function call with an output alias.
func (f Func) As(alias string) Func {
	f.Alias = alias
	return f
}

// OverWindow returns a copy of the function call with a window specification.
func (f Func) OverWindow(w WindowSpec) Func {
	f.Over = &w
	return f
}

// WindowSpec is the OVER clause of a window function.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderExpr
	Frame       string // Rendered verbatim (e.g. "ROWS UNBOUNDED PRECEDING").
}

// OrderExpr is an ordering term.
type OrderExpr struct {
	Expr Expr
	Desc bool
}

// Asc returns an ascending ordering term for the column.
func Asc(column string) OrderExpr { return OrderExpr{Expr: C(column)} }

// Desc returns a descending ordering term for the column.
func Desc(column string) OrderExpr { return OrderExpr{Expr: C(column), Desc: true} }

// Subquery embeds a full plan as an expression or a FROM source.
type Subquery struct {
	Plan  *Plan
	Alias string
}

func (Subquery) expr()   {}
func (Subquery) source() {}

// CaseBranch is one WHEN/THEN arm of a Case expression.
type CaseBranch struct {
	When Expr
	Then Expr
}

// Case is a searched CASE expression.
type Case struct {
	Branches []CaseBranch
	Else     Expr
}

func (Case) expr() {}

// ExistsExpr is an EXISTS predicate over a subquery.
type ExistsExpr struct {
	Query *Plan
}

func (ExistsExpr) expr() {}

// Exists returns an EXISTS predicate over the given plan.
func Exists(p *Plan) ExistsExpr { return ExistsExpr{Query: p} }

// And combines predicates with AND. Returns nil for no operands and the
// operand itself for a single one.
func And(ps ...Expr) Expr {
	return combine(OpAnd, ps)
}

// Or combines predicates with OR.
func Or(ps ...Expr) Expr {
	return combine(OpOr, ps)
}

func combine(op Op, ps []Expr) Expr {
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	}
	e := ps[0]
	for _, p := range ps[1:] {
		e = Binary{Op: op, Left: e, Right: p}
	}
	return e
}

// Not negates a predicate.
func Not(p Expr) Expr { return Unary{Op: OpNot, Operand: p} }

// EQ returns a column = value predicate.
func EQ(column string, value any) Expr { return Binary{Op: OpEQ, Left: C(column), Right: V(value)} }

// NEQ returns a column <> value predicate.
func NEQ(column string, value any) Expr { return Binary{Op: OpNEQ, Left: C(column), Right: V(value)} }

// GT returns a column > value predicate.
func GT(column string, value any) Expr { return Binary{Op: OpGT, Left: C(column), Right: V(value)} }

// GTE returns a column >= value predicate.
func GTE(column string, value any) Expr { return Binary{Op: OpGTE, Left: C(column), Right: V(value)} }

// LT returns a column < value predicate.
func LT(column string, value any) Expr { return Binary{Op: OpLT, Left: C(column), Right: V(value)} }

// LTE returns a column <= value predicate.
func LTE(column string, value any) Expr { return Binary{Op: OpLTE, Left: C(column), Right: V(value)} }

// Like returns a column LIKE pattern predicate.
func Like(column, pattern string) Expr {
	return Binary{Op: OpLike, Left: C(column), Right: V(pattern)}
}

// IsNull returns a column IS NULL predicate.
func IsNull(column string) Expr { return Unary{Op: OpIsNull, Operand: C(column)} }

// NotNull returns a column IS NOT NULL predicate.
func NotNull(column string) Expr { return Unary{Op: OpNotNull, Operand: C(column)} }

// In returns a column IN (values...) predicate. An empty value list
// compiles to an always-false clause rather than invalid SQL.
func In(column string, values ...any) Expr {
	if len(values) == 0 {
		return False()
	}
	elems := make([]Expr, len(values))
	for i, v := range values {
		elems[i] = V(v)
	}
	return Binary{Op: OpIn, Left: C(column), Right: Tuple{Elems: elems}}
}

// NotIn returns a column NOT IN (values...) predicate. An empty value list
// matches everything, so it compiles to no constraint (nil).
func NotIn(column string, values ...any) Expr {
	if len(values) == 0 {
		return nil
	}
	elems := make([]Expr, len(values))
	for i, v := range values {
		elems[i] = V(v)
	}
	return Binary{Op: OpNotIn, Left: C(column), Right: Tuple{Elems: elems}}
}

// InSubquery returns a column IN (subquery) predicate.
func InSubquery(column string, p *Plan) Expr {
	return Binary{Op: OpIn, Left: C(column), Right: Subquery{Plan: p}}
}

// Between returns a low <= column AND column <= high predicate.
func Between(column string, low, high any) Expr {
	return And(GTE(column, low), LTE(column, high))
}

// ColEQ returns a column = column predicate, used for join conditions.
func ColEQ(left, right Column) Expr { return Binary{Op: OpEQ, Left: left, Right: right} }

// Count returns a COUNT(arg) call. Use "*" for COUNT(*).
func Count(arg string) Func { return fn("COUNT", arg) }

// CountDistinct returns a COUNT(DISTINCT arg) call.
func CountDistinct(arg string) Func {
	f := fn("COUNT", arg)
	f.Distinct = true
	return f
}

// Sum returns a SUM(column) call.
func Sum(column string) Func { return fn("SUM", column) }

// Avg returns an AVG(column) call.
func Avg(column string) Func { return fn("AVG", column) }

// Min returns a MIN(column) call.
func Min(column string) Func { return fn("MIN", column) }

// Max returns a MAX(column) call.
func Max(column string) Func { return fn("MAX", column) }

// IfNull returns the dialect's null-coalescing function over the column and
// fallback value (IFNULL, COALESCE, NVL or ISNULL depending on backend).
func IfNull(column string, fallback any) Func {
	return Func{Name: "IFNULL", Args: []Expr{C(column), V(fallback)}}
}

// RowNumber returns a ROW_NUMBER() call to be windowed with OverWindow.
func RowNumber() Func { return Func{Name: "ROW_NUMBER"} }

// Rank returns a RANK() call to be windowed with OverWindow.
func Rank() Func { return Func{Name: "RANK"} }

// Lag returns a LAG(column) call to be windowed with OverWindow.
func Lag(column string) Func { return fn("LAG", column) }

// Lead returns a LEAD(column) call to be windowed with OverWindow.
func Lead(column string) Func { return fn("LEAD", column) }

// Call returns a call of an arbitrary function over column arguments.
// Unknown names are passed through to the backend verbatim.
func Call(name string, args ...Expr) Func { return Func{Name: name, Args: args} }

func fn(name, arg string) Func {
	if arg == "*" {
		return Func{Name: name, Args: []Expr{Raw{SQL: "*"}}}
	}
	return Func{Name: name, Args: []Expr{C(arg)}}
}
