package treemap

import (
	"strings"

	"github.com/matzehuels/cellmap/pkg/geom"
)

// Hierarchy depths. The tree always has exactly three levels below the root.
const (
	DepthRoot = iota
	DepthRegion
	DepthGroup
	DepthCluster

	MaxDepth = DepthCluster
)

// Node is one node of the weighted hierarchy.
//
// Value holds the node's weight; for internal nodes it is the sum of the
// children's values. Polygon and Site are filled by [Partition], Color by
// the coloring pass.
type Node struct {
	Key      string
	Value    float64
	Depth    int
	Count    int // number of input records aggregated into the node
	Children []*Node
	Parent   *Node

	Polygon geom.Polygon
	Site    geom.Point
	Color   string
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Path returns the keys from the region down to n. The root has an empty
// path.
func (n *Node) Path() []string {
	var keys []string
	for c := n; c != nil && c.Parent != nil; c = c.Parent {
		keys = append(keys, c.Key)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

// PathString returns Path joined with "/".
func (n *Node) PathString() string { return strings.Join(n.Path(), "/") }

// ParentKey returns the key of n's parent, or "" for the root.
func (n *Node) ParentKey() string {
	if n.Parent == nil {
		return ""
	}
	return n.Parent.Key
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Descendants returns every node below n in pre-order.
func (n *Node) Descendants() []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c != n {
			out = append(out, c)
		}
		return true
	})
	return out
}

// AtDepth returns the nodes at the given depth in pre-order.
func (n *Node) AtDepth(depth int) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Depth == depth {
			out = append(out, c)
			return false
		}
		return c.Depth < depth
	})
	return out
}

// Leaves returns the leaf nodes below n.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.IsLeaf() {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Find returns the node at the given key path below n.
func (n *Node) Find(path ...string) (*Node, bool) {
	cur := n
	for _, key := range path {
		var next *Node
		for _, c := range cur.Children {
			if c.Key == key {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Siblings returns the children of n's parent, including n.
func (n *Node) Siblings() []*Node {
	if n.Parent == nil {
		return []*Node{n}
	}
	return n.Parent.Children
}

// Sum recomputes internal values bottom-up from the leaves and returns the
// root value.
func (n *Node) Sum() float64 {
	if n.IsLeaf() {
		return n.Value
	}
	var total float64
	for _, c := range n.Children {
		total += c.Sum()
	}
	n.Value = total
	return total
}
