// Package label places the text labels of a partitioned treemap.
//
// Every labelled node gets a font size from its share of the total value,
// a wrapped set of lines and an anchor derived from its cell's site. After
// the boxes are measured, [Engine] nudges group labels off their region
// label and cluster labels off their group label, vertically only and never
// out of the node's own cell.
//
// Box coordinates are top-left based; [Box.Center] gives the text anchor.
package label

import (
	"github.com/matzehuels/cellmap/pkg/geom"
)

// horizontalMargin shrinks the horizontal overlap test, so labels that only
// touch at their edges are left alone.
const horizontalMargin = -3

// Box is the measured rectangle of one rendered label.
type Box struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
	Lines  int     `json:"lines" bson:"lines"`
}

// CenteredBox returns a box of the given size centered on p.
func CenteredBox(p geom.Point, w, h float64, lines int) Box {
	return Box{X: p.X - w/2, Y: p.Y - h/2, Width: w, Height: h, Lines: lines}
}

// Center returns the center of b.
func (b Box) Center() geom.Point {
	return geom.Pt(b.X+b.Width/2, b.Y+b.Height/2)
}

// Measured reports whether b has a non-zero size.
func (b Box) Measured() bool {
	return b.Width != 0 && b.Height != 0
}

// Resolve moves child vertically off parent, staying inside cell. It returns
// child's new top-left corner, which equals the original one when the boxes
// do not overlap, either box is unmeasured, or no move fits in cell.
func Resolve(child, parent Box, cell geom.Rect) (x, y float64) {
	return ResolveSpacing(child, parent, cell, 0)
}

// ResolveSpacing is Resolve with extra vertical spacing required between
// the two boxes.
func ResolveSpacing(child, parent Box, cell geom.Rect, spacing float64) (x, y float64) {
	x, y = child.X, child.Y
	if !child.Measured() || !parent.Measured() {
		return x, y
	}
	if !overlaps(child, parent, spacing/2) {
		return x, y
	}

	var corr float64
	if child.Lines > 1 {
		corr = child.Height / float64(child.Lines-1) / 4
	}
	if child.Center().Y < parent.Center().Y {
		if cand := parent.Y - child.Height + corr; cand >= cell.MinY {
			return x, cand
		}
		return x, y
	}
	if cand := parent.Y + parent.Height + corr; cand+child.Height <= cell.MaxY {
		return x, cand
	}
	return x, y
}

// overlaps reports whether a and b overlap. margin widens both boxes
// vertically; horizontally they are narrowed by horizontalMargin.
func overlaps(a, b Box, margin float64) bool {
	ac, bc := a.Center(), b.Center()
	if ac.X+a.Width/2+horizontalMargin < bc.X-b.Width/2 ||
		ac.X-a.Width/2-horizontalMargin > bc.X+b.Width/2 {
		return false
	}
	aTop, aBottom := a.Y-margin, a.Y+a.Height+margin
	bTop, bBottom := b.Y-margin, b.Y+b.Height+margin
	return aBottom > bTop && aTop < bBottom
}
