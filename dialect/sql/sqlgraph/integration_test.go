package sqlgraph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/quarry-orm/quarry/dialect"
	"github.com/quarry-orm/quarry/dialect/sql"
	"github.com/quarry-orm/quarry/schema/relation"
)

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	drv, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// One in-memory database per connection, so pin the pool to one.
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	return drv
}

func execAll(t *testing.T, drv *sql.Driver, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range stmts {
		require.NoError(t, drv.Exec(ctx, stmt, []any{}, nil))
	}
}

func TestSQLiteEagerLoadQueryBound(t *testing.T) {
	drv := openSQLite(t)
	ctx := context.Background()
	execAll(t, drv,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT)",
		"CREATE TABLE comments (id INTEGER PRIMARY KEY, post_id INTEGER, body TEXT)",
	)
	for i := 1; i <= 50; i++ {
		require.NoError(t, drv.Exec(ctx,
			"INSERT INTO users (id, name) VALUES (?, ?)",
			[]any{i, fmt.Sprintf("user-%d", i)}, nil))
		for j := 0; j < 2; j++ {
			postID := i*100 + j
			require.NoError(t, drv.Exec(ctx,
				"INSERT INTO posts (id, user_id, title) VALUES (?, ?, ?)",
				[]any{postID, i, fmt.Sprintf("post-%d", postID)}, nil))
			require.NoError(t, drv.Exec(ctx,
				"INSERT INTO comments (id, post_id, body) VALUES (?, ?, ?)",
				[]any{postID*10, postID, "hi"}, nil))
		}
	}

	schema := NewSchema()
	_, err := schema.Register(ModelSpec{
		Name:      "user",
		Relations: []relation.Descriptor{relation.HasMany("posts").Build()},
	})
	require.NoError(t, err)
	_, err = schema.Register(ModelSpec{
		Name:      "post",
		Relations: []relation.Descriptor{relation.HasMany("comments").Build()},
	})
	require.NoError(t, err)

	stats := sql.NewStatsDriver(drv)
	rows, err := sql.Select("id", "name").From("users").RunWith(stats).All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 50)

	roots := make([]*Node, len(rows))
	for i, row := range rows {
		roots[i] = NewNode("user", row)
	}

	loader := NewLoader(schema, stats)
	report, err := loader.Load(ctx, "user", roots, With("posts.comments"))
	require.NoError(t, err)

	// Root query plus one batch per load node: 3 statements for 50 roots.
	assert.Equal(t, int64(2), report.Queries())
	assert.Equal(t, int64(3), stats.Stats().TotalQueries)

	for _, root := range roots {
		posts, err := root.Many("posts")
		require.NoError(t, err)
		require.Len(t, posts, 2)
		for _, p := range posts {
			comments, err := p.Many("comments")
			require.NoError(t, err)
			assert.Len(t, comments, 1)
		}
	}
}

func TestSQLiteEmptyInMatchesNothing(t *testing.T) {
	drv := openSQLite(t)
	ctx := context.Background()
	execAll(t, drv,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO users (id, name) VALUES (1, 'ada')",
	)

	rows, err := sql.Select().From("users").Where(sql.In("id")).RunWith(drv).All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteRecursiveCTE(t *testing.T) {
	drv := openSQLite(t)
	ctx := context.Background()
	execAll(t, drv,
		"CREATE TABLE categories (id INTEGER PRIMARY KEY, parent_id INTEGER, name TEXT)",
		"INSERT INTO categories VALUES (1, NULL, 'root')",
		"INSERT INTO categories VALUES (2, 1, 'a')",
		"INSERT INTO categories VALUES (3, 2, 'b')",
		"INSERT INTO categories VALUES (4, 3, 'c')",
		"INSERT INTO categories VALUES (5, 4, 'd')",
	)

	anchor := sql.SelectExpr(sql.C("id"), sql.C("parent_id"), sql.Expression("0")).
		From("categories").
		Where(sql.IsNull("parent_id"))
	member := sql.SelectExpr(sql.T("c", "id"), sql.T("c", "parent_id"), sql.Expression("t.depth + 1")).
		FromAlias("categories", "c").
		JoinSource(sql.InnerJoin, sql.Table{Name: "tree", Alias: "t"}, sql.ColEQ(sql.T("c", "parent_id"), sql.T("t", "id"))).
		// Depth guard: terminates even if the data ever forms a cycle.
		Where(sql.Expression("t.depth < 10"))

	rows, err := sql.Select().From("tree").
		WithCTE("tree", anchor.UnionAll(member), sql.CTERecursive(), sql.CTEColumns("id", "parent_id", "depth")).
		OrderBy("depth").
		RunWith(drv).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, int64(0), rows[0]["depth"])
	assert.Equal(t, int64(4), rows[4]["depth"])
}

func TestSQLiteDetectFeatures(t *testing.T) {
	drv := openSQLite(t)
	require.NoError(t, drv.DetectFeatures(context.Background()))

	f := drv.Features()
	assert.NotEmpty(t, f.Version())
	assert.True(t, f.Supports(dialect.CategoryCTE, dialect.CTERecursive))
	assert.True(t, f.SupportsCategory(dialect.CategoryWindow))
}
