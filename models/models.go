package models

import (
	"time"
)

// RootParentID is the sentinel ParentID of top-level nodes.
const RootParentID uint = 0

// Node is a single row of a nested-set encoded tree. Lft, Rgt and Level
// are authoritative for structure and are written only by the tree
// manager; ParentID is a denormalized convenience copy. Label, Code and
// Status are opaque payload.
type Node struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Label    string
	Code     string `gorm:"index:idx_node_code,unique"`
	Status   string `gorm:"index"`
	ParentID uint   `gorm:"index"`
	Level    int32
	Lft      int32 `gorm:"column:lft;index"`
	Rgt      int32 `gorm:"column:rgt;index"`
}

// Width is the number of axis slots the node's subtree occupies; it is
// always twice the subtree's node count.
func (n *Node) Width() int32 {
	return n.Rgt - n.Lft + 1
}

// Contains reports whether other lies strictly inside n's interval,
// i.e. other is a descendant of n.
func (n *Node) Contains(other *Node) bool {
	return n.Lft < other.Lft && other.Rgt < n.Rgt
}

// IsRoot reports whether the node sits at the top level of the forest.
func (n *Node) IsRoot() bool {
	return n.Level == 0
}

// Direction selects which end of the left-ordered axis a query starts
// from.
type Direction int

const (
	DirectionAsc Direction = iota
	DirectionDesc
)

func (d Direction) String() string {
	if d == DirectionDesc {
		return "desc"
	}
	return "asc"
}

// Depth bounds how many levels below a node a read materializes.
type Depth int32

const (
	// DepthSelf returns just the node itself.
	DepthSelf Depth = 0
	// DepthChildren returns the node and its direct children.
	DepthChildren Depth = 1
	// DepthFull returns the entire subtree.
	DepthFull Depth = 1<<31 - 1
)
