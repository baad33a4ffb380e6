package geom

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of the vertices of p using the
// monotone chain algorithm. The hull is returned without a repeated first
// vertex, with collinear points removed.
func (p Polygon) ConvexHull() Polygon {
	if len(p) <= 1 {
		return p.Clone()
	}
	pts := p.Clone()
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	pts = dedupe(pts)
	if len(pts) <= 2 {
		return pts
	}

	lower := make(Polygon, 0, len(pts))
	for _, pt := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], pt) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, pt)
	}
	upper := make(Polygon, 0, len(pts))
	for i := len(pts) - 1; i >= 0; i-- {
		pt := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], pt) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, pt)
	}

	hull := make(Polygon, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func dedupe(sorted Polygon) Polygon {
	out := sorted[:0]
	for i, v := range sorted {
		if i > 0 && math.Abs(v.X-out[len(out)-1].X) < Epsilon && math.Abs(v.Y-out[len(out)-1].Y) < Epsilon {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ClipHalfPlane returns the part of the convex polygon p that satisfies
// a*x + b*y <= c. The result keeps the winding of p and may be empty.
func (p Polygon) ClipHalfPlane(a, b, c float64) Polygon {
	if len(p) == 0 {
		return nil
	}
	side := func(q Point) float64 { return a*q.X + b*q.Y - c }

	out := make(Polygon, 0, len(p)+1)
	prev := p[len(p)-1]
	prevSide := side(prev)
	for _, cur := range p {
		curSide := side(cur)
		if curSide <= 0 {
			if prevSide > 0 {
				out = append(out, intersect(prev, cur, prevSide, curSide))
			}
			out = append(out, cur)
		} else if prevSide <= 0 {
			out = append(out, intersect(prev, cur, prevSide, curSide))
		}
		prev, prevSide = cur, curSide
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

func intersect(p, q Point, sp, sq float64) Point {
	t := sp / (sp - sq)
	return p.Lerp(q, t)
}
