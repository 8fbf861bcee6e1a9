package sqlgraph

import (
	"strings"

	"github.com/quarry-orm/quarry/dialect/sql"
)

// Modifier customizes the batch query of one relation path before it
// executes (extra predicates, ordering, column pruning).
type Modifier func(*sql.Selector) *sql.Selector

// LoadOption requests one relation path for eager loading.
type LoadOption struct {
	path     string
	modifier Modifier
}

// With requests a dotted relation path (e.g. "posts.comments").
func With(path string) LoadOption {
	return LoadOption{path: path}
}

// WithFilter requests a relation path with a modifier applied to that
// path's batch query. The modifier affects only this exact path: a sibling
// request for the same relation name without a modifier still gets its own
// unmodified batch.
func WithFilter(path string, m Modifier) LoadOption {
	return LoadOption{path: path, modifier: m}
}

// loadNode is one level of the merged load tree.
type loadNode struct {
	rel      string
	modifier Modifier
	children []*loadNode
}

// buildTree merges the requested paths into a tree of relation loads.
// Overlapping unmodified prefixes share a node ("posts" and
// "posts.comments" load posts once); each (path, modifier) combination
// keeps its own node even when the relation name repeats.
func buildTree(opts []LoadOption) []*loadNode {
	var roots []*loadNode
	for _, opt := range opts {
		segments := strings.Split(opt.path, ".")
		roots = insert(roots, segments, opt.modifier)
	}
	return roots
}

func insert(level []*loadNode, segments []string, m Modifier) []*loadNode {
	if len(segments) == 0 || segments[0] == "" {
		return level
	}
	// The modifier belongs to the last segment of its path.
	var nodeMod Modifier
	if len(segments) == 1 {
		nodeMod = m
	}
	var node *loadNode
	if nodeMod == nil {
		for _, n := range level {
			if n.rel == segments[0] && n.modifier == nil {
				node = n
				break
			}
		}
	}
	if node == nil {
		node = &loadNode{rel: segments[0], modifier: nodeMod}
		level = append(level, node)
	}
	node.children = insert(node.children, segments[1:], m)
	return level
}

// countNodes returns the total number of load nodes in the tree, which is
// the number of batch queries a full load issues.
func countNodes(nodes []*loadNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + countNodes(n.children)
	}
	return total
}
