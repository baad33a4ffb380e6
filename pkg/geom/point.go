package geom

import "math"

// Epsilon merges points and edges that differ only by rounding error.
const Epsilon = 1e-7

// Point is a 2-D coordinate.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point         { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point         { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(f float64) Point     { return Point{p.X * f, p.Y * f} }
func (p Point) Dot(q Point) float64       { return p.X*q.X + p.Y*q.Y }
func (p Point) Cross(q Point) float64     { return p.X*q.Y - p.Y*q.X }
func (p Point) Len() float64              { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64      { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Dist2 returns the squared distance between p and q.
func (p Point) Dist2(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Unit returns p scaled to length 1, or the zero point when p has no length.
func (p Point) Unit() Point {
	l := p.Len()
	if l == 0 {
		return Point{}
	}
	return Point{p.X / l, p.Y / l}
}

// Angle returns the polar angle of p normalized to [0, 2π).
func (p Point) Angle() float64 {
	a := math.Atan2(p.Y, p.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// cross returns the z component of (a-o) × (b-o).
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
