package nestedset

import (
	"fmt"

	"github.com/arbordb/arbor/models"
)

// Tree is a materialized node with its children in pre-order.
type Tree struct {
	Node     models.Node
	Children []*Tree
}

// Count returns the number of nodes in the subtree, itself included.
func (t *Tree) Count() int {
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

type treeCursor struct {
	nodes []models.Node
	pos   int
}

// BuildForest reconstructs parent/child ownership from a flat,
// left-ordered (pre-order) dump. Single forward pass over the input;
// recursion depth equals tree depth. A contained node whose level does
// not step by exactly one is an invariant violation, never a silent
// skip or reattach.
func BuildForest(nodes []models.Node) ([]*Tree, error) {
	c := &treeCursor{nodes: nodes}
	var forest []*Tree
	for c.pos < len(c.nodes) {
		t, err := c.subtree(nil)
		if err != nil {
			return nil, err
		}
		forest = append(forest, t)
	}
	return forest, nil
}

// BuildTree is BuildForest for a dump known to hold a single subtree.
func BuildTree(nodes []models.Node) (*Tree, error) {
	forest, err := BuildForest(nodes)
	if err != nil {
		return nil, err
	}
	if len(forest) != 1 {
		return nil, fmt.Errorf("%w: expected a single subtree, got %d top-level nodes", ErrInvariantViolation, len(forest))
	}
	return forest[0], nil
}

func (c *treeCursor) subtree(parent *models.Node) (*Tree, error) {
	n := c.nodes[c.pos]
	if n.Lft >= n.Rgt {
		return nil, fmt.Errorf("%w: node %d has interval [%d, %d]", ErrInvariantViolation, n.ID, n.Lft, n.Rgt)
	}
	if parent != nil && n.Level != parent.Level+1 {
		return nil, fmt.Errorf("%w: node %d at level %d contained in node %d at level %d",
			ErrInvariantViolation, n.ID, n.Level, parent.ID, parent.Level)
	}
	c.pos++
	t := &Tree{Node: n}
	for c.pos < len(c.nodes) {
		next := c.nodes[c.pos]
		if !(n.Lft < next.Lft && next.Rgt < n.Rgt) {
			break
		}
		child, err := c.subtree(&t.Node)
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, child)
	}
	return t, nil
}

// Flatten re-emits a forest as the left-ordered flat slice it was
// built from.
func Flatten(forest []*Tree) []models.Node {
	var out []models.Node
	for _, t := range forest {
		out = flattenInto(out, t)
	}
	return out
}

func flattenInto(out []models.Node, t *Tree) []models.Node {
	out = append(out, t.Node)
	for _, c := range t.Children {
		out = flattenInto(out, c)
	}
	return out
}
