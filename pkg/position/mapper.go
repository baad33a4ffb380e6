package position

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/matzehuels/cellmap/pkg/geom"
)

// DefaultRadiusCap limits how far toward the boundary MapIntoPolygon places
// a point, as a fraction of the boundary distance in that direction.
const DefaultRadiusCap = 0.9

// MaxSampleAttempts bounds rejection sampling in Sample.
const MaxSampleAttempts = 10000

// pullSteps bounds the walk toward an interior point when a mapped point
// lands in a concavity.
const pullSteps = 32

type polar struct {
	angle float64
	p     geom.Point
}

// MapIntoPolygon maps a normalized target (nx, ny) in [-1, 1]² onto the
// interior of clip.
//
// The target's direction selects a point on the clip boundary by
// interpolating between the two clip vertices whose polar angles (measured
// in the clip's own normalized bounding box) bracket it. The target's
// radius, divided by the half diagonal and capped at 1, is multiplied by
// radiusCap and scales that boundary point toward the box center. Any
// direction therefore lands inside the polygon, even for targets far
// outside it. A non-positive radiusCap means DefaultRadiusCap.
func MapIntoPolygon(nx, ny float64, clip geom.Polygon, radiusCap float64) geom.Point {
	if radiusCap <= 0 {
		radiusCap = DefaultRadiusCap
	}
	box := clip.Bounds()
	if len(clip) < 3 || box.Empty() {
		if len(clip) == 0 {
			return geom.Point{}
		}
		return box.Center()
	}

	verts := make([]polar, len(clip))
	for i, v := range clip {
		n := box.Normalize(v)
		verts[i] = polar{n.Angle(), n}
	}
	sort.SliceStable(verts, func(i, j int) bool { return verts[i].angle < verts[j].angle })

	q := geom.Pt(nx, ny)
	boundary := boundaryAt(verts, q.Angle())
	r := math.Min(q.Len()/math.Sqrt2, 1) * radiusCap
	p := box.Denormalize(boundary.Scale(r))

	if !clip.Contains(p) {
		c := clip.InteriorPoint()
		for i := 0; i < pullSteps && !clip.Contains(p); i++ {
			p = p.Lerp(c, 0.5)
		}
		if !clip.Contains(p) {
			p = c
		}
	}
	return p
}

// boundaryAt interpolates the boundary point in direction angle from
// vertices sorted by polar angle.
func boundaryAt(verts []polar, angle float64) geom.Point {
	n := len(verts)
	hi := sort.Search(n, func(i int) bool { return verts[i].angle > angle })
	lo := hi - 1

	var a, b polar
	switch {
	case hi == 0:
		a = polar{verts[n-1].angle - 2*math.Pi, verts[n-1].p}
		b = verts[0]
	case hi == n:
		a = verts[n-1]
		b = polar{verts[0].angle + 2*math.Pi, verts[0].p}
	default:
		a, b = verts[lo], verts[hi]
	}

	span := b.angle - a.angle
	if span <= 0 {
		return a.p
	}
	return a.p.Lerp(b.p, (angle-a.angle)/span)
}

// Sample draws a uniform point inside clip by rejection sampling over its
// bounding box. After MaxSampleAttempts misses, or for a zero-area clip, it
// returns an interior point so it always terminates.
func Sample(rng *rand.Rand, clip geom.Polygon) geom.Point {
	if len(clip) == 0 {
		return geom.Point{}
	}
	box := clip.Bounds()
	if len(clip) >= 3 && box.Width() > 0 && box.Height() > 0 {
		for i := 0; i < MaxSampleAttempts; i++ {
			p := geom.Pt(
				box.MinX+rng.Float64()*box.Width(),
				box.MinY+rng.Float64()*box.Height(),
			)
			if clip.Contains(p) {
				return p
			}
		}
	}
	return clip.InteriorPoint()
}
