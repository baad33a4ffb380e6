package geom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Polygon is an ordered vertex loop. The closing edge from the last vertex
// back to the first is implicit.
type Polygon []Point

// Clone returns a copy of p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Bounds returns the bounding box of p.
func (p Polygon) Bounds() Rect {
	r := EmptyRect()
	for _, v := range p {
		r = r.Extend(v)
	}
	return r
}

// Ring converts p into a closed orb.Ring.
func (p Polygon) Ring() orb.Ring {
	if len(p) == 0 {
		return nil
	}
	r := make(orb.Ring, 0, len(p)+1)
	for _, v := range p {
		r = append(r, orb.Point{v.X, v.Y})
	}
	if !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

// FromRing converts an orb.Ring into a Polygon, dropping the closing vertex.
func FromRing(r orb.Ring) Polygon {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	out := make(Polygon, n)
	for i := 0; i < n; i++ {
		out[i] = Point{r[i][0], r[i][1]}
	}
	return out
}

// Contains reports whether q lies inside p. Points on the boundary count
// as inside.
func (p Polygon) Contains(q Point) bool {
	if len(p) < 3 {
		return false
	}
	return planar.RingContains(p.Ring(), orb.Point{q.X, q.Y})
}

// SignedArea returns the shoelace area of p. The sign reflects winding order.
func (p Polygon) SignedArea() float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return a / 2
}

// Area returns the absolute area of p.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	return math.Abs(planar.Area(p.Ring()))
}

// Centroid returns the area centroid of p. Degenerate polygons fall back
// to the vertex average.
func (p Polygon) Centroid() Point {
	switch len(p) {
	case 0:
		return Point{}
	case 1, 2:
		return p.mean()
	}
	c, a := planar.CentroidArea(p.Ring())
	if math.Abs(a) < Epsilon*Epsilon || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return p.mean()
	}
	return Point{c[0], c[1]}
}

func (p Polygon) mean() Point {
	var s Point
	for _, v := range p {
		s = s.Add(v)
	}
	return s.Scale(1 / float64(len(p)))
}

// SortByAngle returns a copy of p ordered by polar angle around center,
// angles normalized to [0, 2π).
func (p Polygon) SortByAngle(center Point) Polygon {
	out := p.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sub(center).Angle() < out[j].Sub(center).Angle()
	})
	return out
}

// CCW returns p in counter-clockwise order in SVG coordinates (y down),
// which is clockwise in the mathematical orientation.
func (p Polygon) CCW() Polygon {
	if p.SignedArea() > 0 {
		return p.Reversed()
	}
	return p.Clone()
}

// Reversed returns p with its vertex order reversed.
func (p Polygon) Reversed() Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// IsConvex reports whether every turn of p has the same direction and the
// loop winds exactly once. Collinear runs are allowed; self-intersecting
// loops such as figure eights and stars are not convex.
func (p Polygon) IsConvex() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	var sign float64
	for i := 0; i < n; i++ {
		c := cross(p[i], p[(i+1)%n], p[(i+2)%n])
		if math.Abs(c) < Epsilon {
			continue
		}
		if sign == 0 {
			sign = c
		} else if sign*c < 0 {
			return false
		}
	}
	if sign == 0 {
		return false
	}

	edges := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		if e := p[(i+1)%n].Sub(p[i]); e.Len() > Epsilon {
			edges = append(edges, e)
		}
	}
	var turning float64
	for i, e := range edges {
		next := edges[(i+1)%len(edges)]
		turning += math.Atan2(e.Cross(next), e.Dot(next))
	}
	return math.Abs(math.Abs(turning)-2*math.Pi) < 1e-6
}

// Edges calls fn for every edge of the closed loop.
func (p Polygon) Edges(fn func(a, b Point)) {
	for i := range p {
		fn(p[i], p[(i+1)%len(p)])
	}
}

// Perimeter returns the length of the closed loop.
func (p Polygon) Perimeter() float64 {
	var l float64
	p.Edges(func(a, b Point) { l += a.Dist(b) })
	return l
}

// InteriorPoint returns a point inside p. It prefers the centroid and falls
// back to the centroid of the first ear whose triangle centroid lies inside,
// which exists for every simple polygon.
func (p Polygon) InteriorPoint() Point {
	c := p.Centroid()
	if len(p) < 3 || p.Contains(c) {
		return c
	}
	n := len(p)
	for i := 0; i < n; i++ {
		tri := Polygon{p[(i-1+n)%n], p[i], p[(i+1)%n]}
		if tri.Area() < Epsilon {
			continue
		}
		if m := tri.mean(); p.Contains(m) {
			return m
		}
	}
	return c
}
