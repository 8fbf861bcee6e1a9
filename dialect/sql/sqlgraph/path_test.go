package sqlgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-orm/quarry/dialect/sql"
)

func TestBuildTreeMergesPrefixes(t *testing.T) {
	// "posts" and "posts.comments" share the posts node: posts load once.
	tree := buildTree([]LoadOption{With("posts"), With("posts.comments")})
	require.Len(t, tree, 1)
	assert.Equal(t, "posts", tree[0].rel)
	require.Len(t, tree[0].children, 1)
	assert.Equal(t, "comments", tree[0].children[0].rel)
	assert.Equal(t, 2, countNodes(tree))
}

func TestBuildTreeSiblings(t *testing.T) {
	tree := buildTree([]LoadOption{With("posts.comments"), With("posts.tags"), With("profile")})
	require.Len(t, tree, 2)
	assert.Equal(t, "posts", tree[0].rel)
	assert.Len(t, tree[0].children, 2)
	assert.Equal(t, "profile", tree[1].rel)
	assert.Equal(t, 4, countNodes(tree))
}

func TestBuildTreeModifierGetsOwnNode(t *testing.T) {
	published := func(s *sql.Selector) *sql.Selector {
		return s.Where(sql.EQ("status", "published"))
	}

	t.Run("ModifiedAndUnmodifiedStaySeparate", func(t *testing.T) {
		tree := buildTree([]LoadOption{With("posts"), WithFilter("posts", published)})
		require.Len(t, tree, 2)
		assert.Nil(t, tree[0].modifier)
		assert.NotNil(t, tree[1].modifier)
	})

	t.Run("ModifierBindsToLastSegment", func(t *testing.T) {
		tree := buildTree([]LoadOption{WithFilter("posts.comments", published)})
		require.Len(t, tree, 1)
		assert.Nil(t, tree[0].modifier)
		require.Len(t, tree[0].children, 1)
		assert.NotNil(t, tree[0].children[0].modifier)
	})

	t.Run("ModifiedPathDoesNotMergeIntoPrefix", func(t *testing.T) {
		// The unmodified prefix of a filtered path still merges with plain
		// requests for the same relation.
		tree := buildTree([]LoadOption{With("posts.comments"), WithFilter("posts.comments", published)})
		require.Len(t, tree, 1)
		assert.Len(t, tree[0].children, 2)
		assert.Equal(t, 3, countNodes(tree))
	})
}

func TestBuildTreeIgnoresEmptyPaths(t *testing.T) {
	assert.Empty(t, buildTree([]LoadOption{With("")}))
	assert.Empty(t, buildTree(nil))
}

func TestBuildTreeRepeatedPath(t *testing.T) {
	// Requesting the same unmodified path twice still loads it once.
	tree := buildTree([]LoadOption{With("posts"), With("posts")})
	assert.Equal(t, 1, countNodes(tree))
}
