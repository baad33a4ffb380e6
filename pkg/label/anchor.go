package label

import (
	"math"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// minAnchorOffset is the smallest vertical distance kept between a lone
// cluster label and its group label.
const minAnchorOffset = 18

// Anchor returns the anchor of a cluster label of the given box size.
//
// Regions and clusters with siblings are anchored at their site. A lone
// child would share its parent's anchor, so it is pushed away from the
// parent's site by at least max(18, boxHeight/2) vertically, and by half
// the box width horizontally when the sites are close, then clamped so the
// box stays within the parent's bounds.
func Anchor(n *treemap.Node, boxWidth, boxHeight float64) geom.Point {
	if n.Depth <= treemap.DepthRegion || n.Parent == nil {
		return n.Site
	}
	if len(n.Parent.Children) > 1 {
		return n.Site
	}

	cur, parent := n.Site, n.Parent.Site
	dx, dy := cur.X-parent.X, cur.Y-parent.Y
	minOffset := math.Max(minAnchorOffset, boxHeight/2)

	var offX, offY float64
	if math.Abs(dy) < minOffset {
		offY = sign(dy) * minOffset
		if math.Abs(dx) < boxWidth {
			offX = sign(dx) * boxWidth / 2
		}
	}

	b := n.Parent.Polygon.Bounds()
	px, py := cur.X+offX, cur.Y+offY
	switch {
	case px < b.MinX+boxWidth/2:
		offX = b.MinX + boxWidth/2 - cur.X
	case px > b.MaxX-boxWidth/2:
		offX = b.MaxX - boxWidth/2 - cur.X
	}
	switch {
	case py < b.MinY+boxHeight/2:
		offY = b.MinY + boxHeight/2 - cur.Y
	case py > b.MaxY-boxHeight/2:
		offY = b.MaxY - boxHeight/2 - cur.Y
	}
	return geom.Pt(cur.X+offX, cur.Y+offY)
}

func sign(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return -1
}
