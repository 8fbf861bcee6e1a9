package sql

import (
	"github.com/quarry-orm/quarry"
)

// Source is a FROM or JOIN target: a named table or a subquery.
type Source interface {
	source()
}

// Table is a named table source.
type Table struct {
	Name  string
	Alias string
}

func (Table) source() {}

// As returns a copy of the table with an alias.
func (t Table) As(alias string) Table {
	t.Alias = alias
	return t
}

// JoinKind enumerates the join types.
type JoinKind int

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

var joinText = [...]string{
	InnerJoin: "JOIN",
	LeftJoin:  "LEFT JOIN",
	RightJoin: "RIGHT JOIN",
	FullJoin:  "FULL JOIN",
	CrossJoin: "CROSS JOIN",
}

// String returns the SQL keyword of the join kind.
func (k JoinKind) String() string { return joinText[k] }

// Join is a single join clause. Non-CROSS joins must carry an ON
// expression; self-joins must alias their target.
type Join struct {
	Kind   JoinKind
	Target Source
	On     Expr
}

// SetOpKind enumerates set operations.
type SetOpKind int

// Set operations.
const (
	UnionOp SetOpKind = iota
	IntersectOp
	ExceptOp
)

var setOpText = [...]string{
	UnionOp:     "UNION",
	IntersectOp: "INTERSECT",
	ExceptOp:    "EXCEPT",
}

// String returns the SQL keyword of the set operation.
func (k SetOpKind) String() string { return setOpText[k] }

// SetClause combines the plan with another plan through a set operation.
// Clauses fold left in declaration order.
type SetClause struct {
	Kind SetOpKind
	All  bool
	Plan *Plan
}

// CTE is a common table expression attached to a plan.
type CTE struct {
	Name      string
	Columns   []string
	Plan      *Plan
	Recursive bool
	// Materialized is a three-state hint: nil emits nothing, true emits
	// MATERIALIZED, false emits NOT MATERIALIZED.
	Materialized *bool
}

// Plan is the abstract representation of a single SELECT statement,
// accumulated by the Selector and consumed by the Compiler. The zero value
// is an empty plan.
type Plan struct {
	Selects  []Expr
	Distinct bool
	From     Source
	Joins    []Join
	Where    Expr
	GroupBys []Expr
	Having   Expr
	Orders   []OrderExpr
	// Limit and Offset are disabled when negative.
	Limit  int
	Offset int
	CTEs   []CTE
	SetOps []SetClause
}

// NewPlan returns an empty plan with pagination disabled.
func NewPlan() *Plan {
	return &Plan{Limit: -1, Offset: -1}
}

// Arity returns the number of selected columns, or -1 when the plan selects
// a wildcard and the count cannot be known statically.
func (p *Plan) Arity() int {
	if len(p.Selects) == 0 {
		return -1
	}
	for _, s := range p.Selects {
		if r, ok := s.(Raw); ok && r.SQL == "*" {
			return -1
		}
	}
	return len(p.Selects)
}

// Validate performs the structural checks that run before any SQL is
// generated. All failures are local and static; nothing reaches a backend.
func (p *Plan) Validate() error {
	if p.Having != nil && len(p.GroupBys) == 0 {
		return quarry.NewInvalidPlanError("HAVING requires GROUP BY")
	}
	if err := p.validateJoins(); err != nil {
		return err
	}
	if err := p.validateSetOps(); err != nil {
		return err
	}
	for _, cte := range p.CTEs {
		if cte.Name == "" {
			return quarry.NewInvalidPlanError("CTE requires a name")
		}
		if cte.Plan == nil {
			return quarry.NewInvalidPlanError("CTE %q has no query", cte.Name)
		}
		if cte.Recursive && len(cte.Plan.SetOps) == 0 {
			return quarry.NewInvalidPlanError("recursive CTE %q must combine anchor and recursive member with UNION", cte.Name)
		}
		if err := cte.Plan.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) validateJoins() error {
	fromName := ""
	if t, ok := p.From.(Table); ok {
		fromName = t.Name
	}
	for _, j := range p.Joins {
		if j.Kind != CrossJoin && j.On == nil {
			return quarry.NewInvalidPlanError("%s requires an ON expression", j.Kind)
		}
		t, ok := j.Target.(Table)
		if !ok {
			continue
		}
		if t.Name == fromName && t.Alias == "" {
			return quarry.NewInvalidPlanError("self-join on %q requires an alias", t.Name)
		}
	}
	return nil
}

func (p *Plan) validateSetOps() error {
	if len(p.SetOps) == 0 {
		return nil
	}
	arity := p.Arity()
	for _, s := range p.SetOps {
		if s.Plan == nil {
			return quarry.NewInvalidPlanError("%s requires an operand query", s.Kind)
		}
		// ORDER BY, LIMIT and WITH are only legal on the outermost wrapper,
		// never inside an operand.
		if len(s.Plan.Orders) > 0 || s.Plan.Limit >= 0 || s.Plan.Offset >= 0 {
			return quarry.NewInvalidPlanError("%s operand must not carry ORDER BY or LIMIT", s.Kind)
		}
		if len(s.Plan.CTEs) > 0 {
			return quarry.NewInvalidPlanError("%s operand must not carry a WITH clause", s.Kind)
		}
		if other := s.Plan.Arity(); arity >= 0 && other >= 0 && other != arity {
			return quarry.NewArityMismatchError(s.Kind.String(), arity, other)
		}
		if err := s.Plan.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// clone returns a shallow-slice copy of the plan. Expression nodes are
// immutable, so sharing them between clones is safe; only the slices and
// scalar fields are copied.
func (p *Plan) clone() *Plan {
	c := *p
	c.Selects = append([]Expr(nil), p.Selects...)
	c.Joins = append([]Join(nil), p.Joins...)
	c.GroupBys = append([]Expr(nil), p.GroupBys...)
	c.Orders = append([]OrderExpr(nil), p.Orders...)
	c.CTEs = append([]CTE(nil), p.CTEs...)
	c.SetOps = append([]SetClause(nil), p.SetOps...)
	return &c
}
