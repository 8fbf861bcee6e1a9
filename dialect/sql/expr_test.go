package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnConstructors(t *testing.T) {
	assert.Equal(t, Column{Name: "id"}, C("id"))
	assert.Equal(t, Column{Table: "users", Name: "id"}, T("users", "id"))
	assert.Equal(t, Column{Name: "id", Alias: "uid"}, C("id").As("uid"))

	// As copies, it never mutates the receiver.
	c := C("id")
	_ = c.As("uid")
	assert.Empty(t, c.Alias)
}

func TestCombinators(t *testing.T) {
	t.Run("AndEmpty", func(t *testing.T) {
		assert.Nil(t, And())
	})

	t.Run("AndSingle", func(t *testing.T) {
		p := EQ("id", 1)
		assert.Equal(t, p, And(p))
	})

	t.Run("AndFoldsLeft", func(t *testing.T) {
		e := And(EQ("a", 1), EQ("b", 2), EQ("c", 3))
		outer, ok := e.(Binary)
		require.True(t, ok)
		assert.Equal(t, OpAnd, outer.Op)
		inner, ok := outer.Left.(Binary)
		require.True(t, ok)
		assert.Equal(t, OpAnd, inner.Op)
	})

	t.Run("Or", func(t *testing.T) {
		e := Or(EQ("a", 1), EQ("b", 2))
		b, ok := e.(Binary)
		require.True(t, ok)
		assert.Equal(t, OpOr, b.Op)
	})

	t.Run("Not", func(t *testing.T) {
		e := Not(EQ("a", 1))
		u, ok := e.(Unary)
		require.True(t, ok)
		assert.Equal(t, OpNot, u.Op)
	})
}

func TestInOverEmptyCollection(t *testing.T) {
	// Empty IN is a valid, always-false predicate, never invalid SQL.
	e := In("id")
	assert.Equal(t, False(), e)

	// Empty NOT IN constrains nothing.
	assert.Nil(t, NotIn("id"))
}

func TestInOverValues(t *testing.T) {
	e := In("id", 1, 2, 3)
	b, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpIn, b.Op)
	tuple, ok := b.Right.(Tuple)
	require.True(t, ok)
	assert.Len(t, tuple.Elems, 3)
}

func TestBetween(t *testing.T) {
	e := Between("age", 18, 65)
	b, ok := e.(Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, b.Op)
}

func TestImmutability(t *testing.T) {
	// Sharing a fragment between two trees is safe: combinators allocate,
	// they never modify operands.
	base := EQ("tenant_id", 7)
	left := And(base, EQ("status", "active"))
	right := Or(base, EQ("status", "archived"))

	lb := left.(Binary)
	rb := right.(Binary)
	assert.Equal(t, base, lb.Left)
	assert.Equal(t, base, rb.Left)
}

func TestFuncConstructors(t *testing.T) {
	t.Run("CountStar", func(t *testing.T) {
		f := Count("*")
		require.Len(t, f.Args, 1)
		assert.Equal(t, Raw{SQL: "*"}, f.Args[0])
	})

	t.Run("CountDistinct", func(t *testing.T) {
		f := CountDistinct("email")
		assert.True(t, f.Distinct)
	})

	t.Run("Alias", func(t *testing.T) {
		f := Sum("amount").As("total")
		assert.Equal(t, "total", f.Alias)
	})

	t.Run("OverWindow", func(t *testing.T) {
		f := RowNumber().OverWindow(WindowSpec{OrderBy: []OrderExpr{Desc("salary")}})
		require.NotNil(t, f.Over)
		assert.Len(t, f.Over.OrderBy, 1)

		// OverWindow copies; the original call stays un-windowed.
		base := RowNumber()
		_ = base.OverWindow(WindowSpec{})
		assert.Nil(t, base.Over)
	})
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "=", OpEQ.String())
	assert.Equal(t, "NOT IN", OpNotIn.String())
	assert.Equal(t, "IS NOT NULL", OpNotNull.String())
	assert.Equal(t, "%", OpMod.String())
}
