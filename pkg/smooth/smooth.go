// Package smooth turns cell polygons into rounded, pebble-like outlines.
//
// [Smooth] replaces every corner of a polygon with a quadratic curve whose
// control point is the original vertex. The trim distance along each edge
// adapts to the corner angle and to the edge lengths, so short edges and
// spikes never produce self-intersecting fillets.
//
//	path := smooth.Smooth(cell.Polygon, smooth.Options{Radius: 10})
//	fmt.Fprintf(buf, `<path d="%s"/>`, path.SVG())
//
// Smoothing is deterministic: the same input always yields the same path.
package smooth

import (
	"math"

	"github.com/matzehuels/cellmap/pkg/geom"
)

// DefaultRadius is the corner radius used when Options.Radius is zero.
const DefaultRadius = 10.0

const (
	// degenerateEdge is the shortest edge that still gets a rounded corner.
	degenerateEdge = 1e-7

	// sharpAngle marks corners (40°) that get half the requested radius.
	sharpAngle = math.Pi / 4.5

	// edgeShare caps the trim at 1/2.1 of the shorter adjacent edge.
	edgeShare = 2.1
)

// Options controls corner rounding.
type Options struct {
	// Radius is the requested corner radius. Zero means DefaultRadius.
	Radius float64 `json:"radius" bson:"radius"`

	// MinSpacing drops consecutive vertices closer than this distance
	// before rounding. Zero disables simplification.
	MinSpacing float64 `json:"min_spacing,omitempty" bson:"min_spacing,omitempty"`
}

// Smooth converts a polygon into a closed path with rounded corners.
//
// Polygons with fewer than 3 vertices, and polygons that simplification
// would collapse below 3 vertices, are emitted unmodified as straight
// segments. Vertices whose adjacent edges are shorter than 1e-7 are passed
// through as plain line vertices and counted in [Path.Degenerate].
func Smooth(points geom.Polygon, opts Options) Path {
	radius := opts.Radius
	if radius == 0 {
		radius = DefaultRadius
	}

	if len(points) < 3 {
		return straight(points)
	}
	pts, ok := points.SimplifySpacing(opts.MinSpacing)
	if !ok {
		return straight(points)
	}

	n := len(pts)
	path := Path{Segments: make([]Segment, 0, 2*n+1)}
	for i := 0; i < n; i++ {
		p0 := pts[(i-1+n)%n]
		p1 := pts[i]
		p2 := pts[(i+1)%n]

		vIn := p0.Sub(p1)
		vOut := p2.Sub(p1)
		lenIn, lenOut := vIn.Len(), vOut.Len()
		if lenIn < degenerateEdge || lenOut < degenerateEdge {
			path.Degenerate++
			path.lineTo(p1)
			continue
		}

		uIn := vIn.Scale(1 / lenIn)
		uOut := vOut.Scale(1 / lenOut)
		angle := math.Acos(clamp(uIn.Dot(uOut), -1, 1))

		r := radius
		if angle < sharpAngle {
			r /= 2
		}
		d := trim(r, angle, lenIn, lenOut)

		start := p1.Add(uIn.Scale(d))
		end := p1.Add(uOut.Scale(d))
		path.lineTo(start)
		path.Segments = append(path.Segments, Segment{Kind: Quad, Ctrl: p1, To: end})
	}
	path.Segments = append(path.Segments, Segment{Kind: Close})
	return path
}

// trim returns how far the fillet starts from the vertex along each edge.
func trim(r, angle, lenIn, lenOut float64) float64 {
	tanHalf := math.Tan(angle / 2)
	shorter := math.Min(lenIn, lenOut)
	d := math.Min(lenIn, lenOut)
	if tanHalf > 0 {
		d = math.Min(d, r/tanHalf)
		d = math.Min(d, (shorter/edgeShare)/tanHalf)
	}
	return d
}

// straight emits the polygon as plain line segments.
func straight(points geom.Polygon) Path {
	path := Path{Segments: make([]Segment, 0, len(points)+1)}
	for _, p := range points {
		path.lineTo(p)
	}
	if len(points) > 0 {
		path.Segments = append(path.Segments, Segment{Kind: Close})
	}
	return path
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
