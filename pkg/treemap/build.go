package treemap

import (
	"errors"
	"math"
	"strings"
)

// ErrEmptyDataset is returned by Build when no record has a region.
var ErrEmptyDataset = errors.New("treemap: no records with a region")

// Record is one flat input row. Size is the record's weight; NaN means
// absent and counts as 1.
type Record struct {
	Region  string  `json:"region" yaml:"region"`
	Group   string  `json:"group" yaml:"group"`
	Cluster string  `json:"cluster" yaml:"cluster"`
	Size    float64 `json:"size" yaml:"size"`
}

// Build groups records into the region -> group -> cluster hierarchy.
//
// Sizes are summed per cluster. An absent size counts as 1, a negative size
// as 0, and a cluster whose sizes sum to 0 gets 1 so that every leaf has a
// cell. Records whose region is empty or whitespace are dropped. Children
// keep the order in which their keys first appear, and internal values are
// recomputed so each parent equals the sum of its children.
func Build(records []Record) (*Node, error) {
	root := &Node{Depth: DepthRoot}
	index := make(map[*Node]map[string]*Node)

	child := func(parent *Node, key string) *Node {
		m, ok := index[parent]
		if !ok {
			m = make(map[string]*Node)
			index[parent] = m
		}
		if c, ok := m[key]; ok {
			return c
		}
		c := &Node{Key: key, Depth: parent.Depth + 1, Parent: parent}
		parent.Children = append(parent.Children, c)
		m[key] = c
		return c
	}

	for _, r := range records {
		if strings.TrimSpace(r.Region) == "" {
			continue
		}
		region := child(root, r.Region)
		group := child(region, r.Group)
		cluster := child(group, r.Cluster)

		cluster.Value += recordSize(r.Size)
		for n := cluster; n != nil; n = n.Parent {
			n.Count++
		}
	}
	if len(root.Children) == 0 {
		return nil, ErrEmptyDataset
	}

	for _, leaf := range root.Leaves() {
		if leaf.Value == 0 {
			leaf.Value = 1
		}
	}
	root.Sum()
	return root, nil
}

func recordSize(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0 || math.IsInf(v, 0):
		return 0
	}
	return v
}
