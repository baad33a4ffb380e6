package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// SimplifySpacing drops vertices closer than minSpacing to the previously
// kept vertex, and the final kept vertex when it is closer than minSpacing
// to the first one. It returns p unchanged when minSpacing <= 0 or when p
// has at most 3 vertices.
//
// ok is false when simplification would leave fewer than 3 vertices; p is
// returned unchanged in that case.
func (p Polygon) SimplifySpacing(minSpacing float64) (_ Polygon, ok bool) {
	if minSpacing <= 0 || len(p) <= 3 {
		return p, true
	}

	out := Polygon{p[0]}
	last := p[0]
	for _, v := range p[1:] {
		if v.Dist(last) >= minSpacing {
			out = append(out, v)
			last = v
		}
	}
	if len(out) > 1 && out[len(out)-1].Dist(out[0]) < minSpacing {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return p, false
	}
	return out, true
}

// SimplifyDP reduces p with the Douglas-Peucker algorithm. Results with
// fewer than 3 vertices fall back to p.
func (p Polygon) SimplifyDP(tolerance float64) Polygon {
	if tolerance <= 0 || len(p) <= 3 {
		return p.Clone()
	}
	ring := simplify.DouglasPeucker(tolerance).Simplify(p.Ring())
	r, ok := ring.(orb.Ring)
	if !ok {
		return p.Clone()
	}
	out := FromRing(r)
	if len(out) < 3 {
		return p.Clone()
	}
	return out
}
