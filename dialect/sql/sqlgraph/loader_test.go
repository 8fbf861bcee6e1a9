package sqlgraph

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-orm/quarry"
	"github.com/quarry-orm/quarry/dialect"
	"github.com/quarry-orm/quarry/dialect/sql"
	"github.com/quarry-orm/quarry/schema/relation"
)

func newMockDriver(t *testing.T, d string) (*sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sql.OpenDB(d, db), mock
}

func blogSchema(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema()
	_, err := s.Register(ModelSpec{
		Name: "user",
		Relations: []relation.Descriptor{
			relation.HasMany("posts").Build(),
			relation.HasOne("profile").Build(),
		},
	})
	require.NoError(t, err)
	_, err = s.Register(ModelSpec{
		Name: "post",
		Relations: []relation.Descriptor{
			relation.HasMany("comments").Build(),
			relation.BelongsTo("author").Model("user").Build(),
		},
	})
	require.NoError(t, err)
	return s
}

func userNodes(ids ...int64) []*Node {
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = NewNode("user", sql.Row{"id": id})
	}
	return nodes
}

func TestLoaderBatchesPerRelation(t *testing.T) {
	// One query per load node, regardless of root count.
	for _, n := range []int{1, 10, 1000} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			drv, mock := newMockDriver(t, dialect.Postgres)
			loader := NewLoader(blogSchema(t), drv)

			ids := make([]int64, n)
			for i := range ids {
				ids[i] = int64(i + 1)
			}
			roots := userNodes(ids...)

			rows := sqlmock.NewRows([]string{"id", "user_id", "title"})
			for i, id := range ids {
				rows.AddRow(int64(1000+i), id, "t")
			}
			mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN (")).
				WillReturnRows(rows)

			report, err := loader.Load(context.Background(), "user", roots, With("posts"))
			require.NoError(t, err)
			assert.Equal(t, int64(1), report.Queries())
			require.NoError(t, mock.ExpectationsWereMet())

			for _, root := range roots {
				posts, err := root.Many("posts")
				require.NoError(t, err)
				assert.Len(t, posts, 1)
			}
		})
	}
}

func TestLoaderNestedPaths(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := userNodes(1, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN ($1, $2)")).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).
			AddRow(int64(10), int64(1)).
			AddRow(int64(11), int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM comments WHERE post_id IN ($1, $2)")).
		WithArgs(10, 11).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).
			AddRow(int64(100), int64(10)).
			AddRow(int64(101), int64(10)))

	report, err := loader.Load(context.Background(), "user", roots, With("posts.comments"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Queries())
	require.NoError(t, mock.ExpectationsWereMet())

	posts, err := roots[0].Many("posts")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	comments, err := posts[0].Many("comments")
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	// The second user's post loaded with no comments: an empty, loaded
	// collection, never nil.
	posts, err = roots[1].Many("posts")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	comments, err = posts[0].Many("comments")
	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)
}

func TestLoaderEmptyMatches(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := userNodes(1, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN ($1, $2)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM profiles WHERE user_id IN ($1, $2)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))

	_, err := loader.Load(context.Background(), "user", roots, With("posts"), With("profile"))
	require.NoError(t, err)

	for _, root := range roots {
		// Plural relations cache an empty slice.
		posts, err := root.Many("posts")
		require.NoError(t, err)
		assert.NotNil(t, posts)
		assert.Empty(t, posts)

		// Singular relations cache nil, still a loaded state.
		profile, err := root.One("profile")
		require.NoError(t, err)
		assert.Nil(t, profile)
		assert.True(t, root.Rels.Loaded("profile"))
	}
}

func TestLoaderBelongsTo(t *testing.T) {
	// BelongsTo reverses the join: the child row holds the key.
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	posts := []*Node{
		NewNode("post", sql.Row{"id": int64(10), "author_id": int64(1)}),
		NewNode("post", sql.Row{"id": int64(11), "author_id": int64(1)}),
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id IN ($1)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada"))

	_, err := loader.Load(context.Background(), "post", posts, With("author"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	for _, p := range posts {
		author, err := p.One("author")
		require.NoError(t, err)
		require.NotNil(t, author)
		assert.Equal(t, "ada", author.Value("name"))
	}
}

func TestLoaderPolymorphic(t *testing.T) {
	s := NewSchema()
	_, err := s.Register(ModelSpec{
		Name: "post",
		Relations: []relation.Descriptor{
			relation.Polymorphic("comments", "commentable_type").Build(),
		},
	})
	require.NoError(t, err)

	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(s, drv)
	posts := []*Node{NewNode("post", sql.Row{"id": int64(10)})}

	// The discriminator column narrows the batch to this parent model.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM comments WHERE (post_id IN ($1) AND commentable_type = $2)")).
		WithArgs(10, "post").
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "commentable_type"}).
			AddRow(int64(100), int64(10), "post"))

	_, err = loader.Load(context.Background(), "post", posts, With("comments"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	comments, err := posts[0].Many("comments")
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestLoaderModifier(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := userNodes(1)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE (user_id IN ($1) AND status = $2)")).
		WithArgs(1, "published").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(int64(10), int64(1)))

	_, err := loader.Load(context.Background(), "user", roots,
		WithFilter("posts", func(s *sql.Selector) *sql.Selector {
			return s.Where(sql.EQ("status", "published"))
		}))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderKeyDeduplication(t *testing.T) {
	// Duplicate parent keys collapse to one IN entry, in first-seen order.
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := userNodes(2, 1, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN ($1, $2)")).
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(int64(10), int64(2)))

	_, err := loader.Load(context.Background(), "user", roots, With("posts"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// Both nodes with the same key share the loaded result.
	a, err := roots[0].Many("posts")
	require.NoError(t, err)
	b, err := roots[2].Many("posts")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoaderKeyWidening(t *testing.T) {
	// An int parent key still matches the int64 a driver scans back.
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := []*Node{NewNode("user", sql.Row{"id": 1})}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN ($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(int64(10), int64(1)))

	_, err := loader.Load(context.Background(), "user", roots, With("posts"))
	require.NoError(t, err)

	posts, err := roots[0].Many("posts")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestLoaderUnknownRelationFailsFast(t *testing.T) {
	// Validation covers the whole tree before the first query is issued.
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := userNodes(1)

	_, err := loader.Load(context.Background(), "user", roots, With("posts"), With("bogus"))
	require.True(t, quarry.IsUnknownRelation(err))
	require.NoError(t, mock.ExpectationsWereMet(), "no query may run when validation fails")

	_, err = loader.Load(context.Background(), "user", roots, With("posts.bogus"))
	assert.True(t, quarry.IsUnknownRelation(err))
}

func TestLoaderCancellation(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)
	roots := userNodes(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, "user", roots, With("posts"))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// Unfinished relations stay not loaded, so a later access re-triggers
	// the load instead of reporting a false empty result.
	_, err = roots[0].Many("posts")
	assert.True(t, quarry.IsNotLoaded(err))
}

func TestLoaderCrossBackend(t *testing.T) {
	pgDrv, pgMock := newMockDriver(t, dialect.Postgres)
	liteDrv, liteMock := newMockDriver(t, dialect.SQLite)

	s := NewSchema()
	_, err := s.Register(ModelSpec{
		Name:      "user",
		Relations: []relation.Descriptor{relation.HasOne("profile").Build()},
	})
	require.NoError(t, err)
	_, err = s.Register(ModelSpec{Name: "profile", Driver: liteDrv})
	require.NoError(t, err)

	loader := NewLoader(s, pgDrv)
	roots := userNodes(1)

	// The child batch runs on its own backend, with its placeholder style.
	liteMock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM profiles WHERE user_id IN (?)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(int64(7), int64(1)))

	report, err := loader.Load(context.Background(), "user", roots, With("profile"))
	require.NoError(t, err)
	require.NoError(t, liteMock.ExpectationsWereMet())
	require.NoError(t, pgMock.ExpectationsWereMet())

	conds := report.CrossBackend()
	require.Len(t, conds, 1)
	assert.Equal(t, "profile", conds[0].Relation)
	assert.Equal(t, dialect.Postgres, conds[0].ParentDialect)
	assert.Equal(t, dialect.SQLite, conds[0].ChildDialect)

	profile, err := roots[0].One("profile")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, int64(7), profile.Value("id"))
}

func TestLoaderNoRoots(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	loader := NewLoader(blogSchema(t), drv)

	report, err := loader.Load(context.Background(), "user", nil, With("posts"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Queries())
	require.NoError(t, mock.ExpectationsWereMet())
}
