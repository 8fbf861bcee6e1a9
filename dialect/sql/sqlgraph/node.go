package sqlgraph

import (
	"github.com/quarry-orm/quarry"
	"github.com/quarry-orm/quarry/dialect/sql"
)

// Node is a generic model instance: one scanned row plus the relation
// cache the loader attaches results to. The object-instantiation layer
// that turns nodes into typed structs sits outside this core.
type Node struct {
	// Model is the lowercased model name the node belongs to.
	Model string
	// Values holds the row's column values.
	Values sql.Row
	// Rels is the node's relation cache. It is owned exclusively by this
	// node; the shared relation descriptors stay read-only.
	Rels quarry.RelationCache
}

// NewNode returns a node for the given model and row.
func NewNode(model string, values sql.Row) *Node {
	return &Node{Model: model, Values: values}
}

// Value returns a column value from the node's row.
func (n *Node) Value(column string) any {
	return n.Values[column]
}

// Many returns the cached child nodes of a plural relation. Accessing a
// relation that was not loaded returns a NotLoadedError, which is distinct
// from a loaded-but-empty result.
func (n *Node) Many(rel string) ([]*Node, error) {
	v, err := n.Rels.Get(rel)
	if err != nil {
		return nil, err
	}
	nodes, _ := v.([]*Node)
	return nodes, nil
}

// One returns the cached node of a singular relation, or nil when the
// relation loaded empty.
func (n *Node) One(rel string) (*Node, error) {
	v, err := n.Rels.Get(rel)
	if err != nil {
		return nil, err
	}
	node, _ := v.(*Node)
	return node, nil
}
