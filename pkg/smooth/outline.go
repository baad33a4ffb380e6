package smooth

import "github.com/matzehuels/cellmap/pkg/geom"

// Outline defaults for the two outlined hierarchy depths.
const (
	DefaultPebbleRound = 25.0
	DefaultPebbleWidth = 3.0

	// RegionFill colors the depth-1 pebble border.
	RegionFill = "#555"

	groupRadius     = 8.0
	groupMinSpacing = 2.0
)

// Outline is a ring-shaped border: the straight polygon path followed by its
// smoothed path, filled with the even-odd rule so only the sliver between
// the two is painted.
type Outline struct {
	Path        string  `json:"path,omitempty" bson:"path,omitempty"`
	Depth       int     `json:"depth" bson:"depth"`
	D           string  `json:"d" bson:"d"`
	Fill        string  `json:"fill" bson:"fill"`
	StrokeWidth float64 `json:"stroke_width" bson:"stroke_width"`
	Degenerate  int     `json:"degenerate,omitempty" bson:"degenerate,omitempty"`

	// Smoothing records the corner options D was built with, so rasterizers
	// can rebuild the curve from the cell polygon.
	Smoothing Options `json:"smoothing" bson:"smoothing"`
}

// RegionOutline builds the pebble border of a depth-1 cell.
func RegionOutline(poly geom.Polygon, round, width float64) Outline {
	if round == 0 {
		round = DefaultPebbleRound
	}
	return ring(1, poly, Options{Radius: round}, RegionFill, width)
}

// GroupOutline builds the finer border of a depth-2 cell, painted in color.
func GroupOutline(poly geom.Polygon, color string) Outline {
	return ring(2, poly, Options{Radius: groupRadius, MinSpacing: groupMinSpacing}, color, 0)
}

func ring(depth int, poly geom.Polygon, opts Options, fill string, width float64) Outline {
	smoothed := Smooth(poly, opts)
	return Outline{
		Depth:       depth,
		D:           PolygonSVG(poly) + " " + smoothed.SVG(),
		Fill:        fill,
		StrokeWidth: width,
		Degenerate:  smoothed.Degenerate,
		Smoothing:   Options{Radius: opts.Radius, MinSpacing: opts.MinSpacing},
	}
}
