package geom

import "math"

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64 `json:"min_x" bson:"min_x"`
	MinY float64 `json:"min_y" bson:"min_y"`
	MaxX float64 `json:"max_x" bson:"max_x"`
	MaxY float64 `json:"max_y" bson:"max_y"`
}

// EmptyRect returns an inverted rectangle that any Extend call will replace.
func EmptyRect() Rect {
	return Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

// Extend grows r to include p.
func (r Rect) Extend(p Point) Rect {
	return Rect{
		MinX: math.Min(r.MinX, p.X),
		MinY: math.Min(r.MinY, p.Y),
		MaxX: math.Max(r.MaxX, p.X),
		MaxY: math.Max(r.MaxY, p.Y),
	}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }
func (r Rect) Center() Point   { return Point{(r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2} }
func (r Rect) Min() Point      { return Point{r.MinX, r.MinY} }
func (r Rect) Max() Point      { return Point{r.MaxX, r.MaxY} }

// Empty reports whether r contains no points.
func (r Rect) Empty() bool { return r.MinX > r.MaxX || r.MinY > r.MaxY }

// Contains reports whether p lies inside r or on its border.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Normalize maps p into [-1, 1]² relative to r. A degenerate axis maps to 0.
func (r Rect) Normalize(p Point) Point {
	return Point{normAxis(p.X, r.MinX, r.MaxX), normAxis(p.Y, r.MinY, r.MaxY)}
}

// Denormalize is the inverse of Normalize.
func (r Rect) Denormalize(p Point) Point {
	return Point{
		r.MinX + (p.X+1)/2*r.Width(),
		r.MinY + (p.Y+1)/2*r.Height(),
	}
}

func normAxis(v, lo, hi float64) float64 {
	if hi-lo == 0 {
		return 0
	}
	return (v-lo)/(hi-lo)*2 - 1
}
