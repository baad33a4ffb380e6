package treemap

import (
	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/position"
	"github.com/matzehuels/cellmap/pkg/voronoi"
)

// initialPosition proposes the starting point of one child site.
//
// A hinted child is placed at its hint scaled to the canvas when that point
// falls inside the current clip. Otherwise the hint is taken relative to its
// siblings' hints and projected into the clip by angle, so the siblings keep
// their relative arrangement. Children without a hint are sampled uniformly.
func (p *partitioner) initialPosition(site voronoi.Site, _ int, all []voronoi.Site, h voronoi.Handle) geom.Point {
	if site.Depth == DepthRoot {
		return h.Extent().Center()
	}
	hint, ok := p.hints.Lookup(site.Depth, site.Parent, site.Key)
	if !ok {
		return position.Sample(h.Rand(), h.Clip())
	}

	clip := h.Clip()
	pt := geom.Pt(
		p.canvas.MinX+hint.X*p.canvas.Width(),
		p.canvas.MinY+hint.Y*p.canvas.Height(),
	)
	if clip.Contains(pt) {
		return pt
	}

	keys := make([]string, len(all))
	for i, s := range all {
		keys[i] = s.Key
	}
	ext, _ := p.hints.SiblingExtent(site.Depth, site.Parent, keys)
	q := ext.Normalize(hint.Point())
	return position.MapIntoPolygon(q.X, q.Y, clip, p.opts.RadiusCap)
}
