// Package position proposes starting points for relaxation sites.
//
// A [Hint] pins a hierarchy node to a location on the canvas so the same
// entity lands in a stable place across re-renders. Hints are advisory:
// a hint that falls outside the current clip polygon is remapped into it
// with [MapIntoPolygon], and nodes without a hint fall back to [Sample].
//
// Hints are prepared once per render with [NormalizeHints], which rescales
// them per sibling group and breaks exact duplicates with a deterministic
// golden-angle spiral (see [Jitter]).
package position

import (
	"math"

	"github.com/matzehuels/cellmap/pkg/geom"
)

// Hint pins the node (Depth, Parent, Key) to normalized canvas coordinates
// in [0, 1]. Parent is the key of the node's parent; an empty Parent matches
// any sibling group at that depth.
type Hint struct {
	Depth  int     `json:"depth" yaml:"depth"`
	Key    string  `json:"key" yaml:"key"`
	Parent string  `json:"parent,omitempty" yaml:"parent,omitempty"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
}

// Point returns the hint as a point in normalized canvas space.
func (h Hint) Point() geom.Point { return geom.Pt(h.X, h.Y) }

type group struct {
	depth  int
	parent string
}

type hintKey struct {
	group
	key string
}

func (h Hint) group() group { return group{h.Depth, h.Parent} }

// Normalized hints are spread over this band of their group's extent.
const (
	outerMin = 0.15
	outerMax = 0.85
)

// NormalizeHints rescales hints and separates duplicates.
//
// Depth-1 hints are rescaled over their joint extent into [0.15, 0.85],
// deeper hints per sibling group (same Depth and Parent). A degenerate axis
// maps to 0.5. Hints that still coincide within a group afterwards are
// spread by [Jitter]. The input is not modified and order is preserved.
func NormalizeHints(hints []Hint) []Hint {
	out := make([]Hint, len(hints))
	copy(out, hints)

	groups := make(map[group][]int)
	var order []group
	for i, h := range out {
		g := h.group()
		if h.Depth == 1 {
			g.parent = ""
		}
		if _, ok := groups[g]; !ok {
			order = append(order, g)
		}
		groups[g] = append(groups[g], i)
	}

	for _, g := range order {
		idx := groups[g]
		ext := geom.EmptyRect()
		for _, i := range idx {
			ext = ext.Extend(out[i].Point())
		}
		for _, i := range idx {
			out[i].X = rescale(out[i].X, ext.MinX, ext.MaxX, outerMin, outerMax)
			out[i].Y = rescale(out[i].Y, ext.MinY, ext.MaxY, outerMin, outerMax)
		}
	}

	j := NewJitter()
	for _, g := range order {
		for _, i := range groups[g] {
			p := j.Apply(g.depth, g.parent, out[i].Point())
			out[i].X, out[i].Y = p.X, p.Y
		}
	}
	return out
}

func rescale(v, from, to, lo, hi float64) float64 {
	span := to - from
	if span == 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return 0.5
	}
	return lo + (v-from)/span*(hi-lo)
}

// Index looks hints up by hierarchy position.
type Index struct {
	hints map[hintKey]Hint
}

// NewIndex indexes hints. Later duplicates of the same node win.
func NewIndex(hints []Hint) *Index {
	ix := &Index{hints: make(map[hintKey]Hint, len(hints))}
	for _, h := range hints {
		ix.hints[hintKey{h.group(), h.Key}] = h
	}
	return ix
}

// Len returns the number of indexed hints.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.hints)
}

// Lookup returns the hint for key under parent at depth. A hint recorded
// without a parent matches any parent.
func (ix *Index) Lookup(depth int, parent, key string) (Hint, bool) {
	if ix == nil {
		return Hint{}, false
	}
	if h, ok := ix.hints[hintKey{group{depth, parent}, key}]; ok {
		return h, true
	}
	h, ok := ix.hints[hintKey{group{depth, ""}, key}]
	return h, ok
}

// SiblingExtent returns the bounding box, in normalized canvas space, of
// the hints found for keys under parent at depth. ok is false when none of
// the siblings has a hint.
func (ix *Index) SiblingExtent(depth int, parent string, keys []string) (ext geom.Rect, ok bool) {
	ext = geom.EmptyRect()
	for _, k := range keys {
		if h, found := ix.Lookup(depth, parent, k); found {
			ext = ext.Extend(h.Point())
			ok = true
		}
	}
	return ext, ok
}
