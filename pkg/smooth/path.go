package smooth

import (
	"strconv"
	"strings"

	"github.com/matzehuels/cellmap/pkg/geom"
)

// SegmentKind identifies a path command.
type SegmentKind int

const (
	Move SegmentKind = iota
	Line
	Quad
	Close
)

// String returns the SVG command letter.
func (k SegmentKind) String() string {
	switch k {
	case Move:
		return "M"
	case Line:
		return "L"
	case Quad:
		return "Q"
	case Close:
		return "Z"
	}
	return "?"
}

// Segment is one command of a smoothed path. Ctrl is only meaningful for
// Quad segments.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Ctrl geom.Point  `json:"ctrl,omitempty"`
	To   geom.Point  `json:"to,omitempty"`
}

// Path is an ordered sequence of segments that ends in a Close.
type Path struct {
	Segments []Segment `json:"segments"`

	// Degenerate counts vertices emitted without rounding because an
	// adjacent edge had no usable length.
	Degenerate int `json:"degenerate,omitempty"`
}

// lineTo appends a Move for the first drawn point and a Line afterwards.
func (p *Path) lineTo(pt geom.Point) {
	kind := Line
	if len(p.Segments) == 0 {
		kind = Move
	}
	p.Segments = append(p.Segments, Segment{Kind: kind, To: pt})
}

// Count returns the number of segments of the given kind.
func (p Path) Count(kind SegmentKind) int {
	n := 0
	for _, s := range p.Segments {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Empty reports whether the path draws nothing.
func (p Path) Empty() bool { return len(p.Segments) == 0 }

// SVG renders the path as an SVG path data attribute.
func (p Path) SVG() string {
	var b strings.Builder
	for i, s := range p.Segments {
		if i > 0 && s.Kind != Close {
			b.WriteByte(' ')
		}
		b.WriteString(s.Kind.String())
		switch s.Kind {
		case Move, Line:
			writePoint(&b, s.To)
		case Quad:
			writePoint(&b, s.Ctrl)
			b.WriteByte(' ')
			writePoint(&b, s.To)
		}
	}
	return b.String()
}

// PolygonSVG renders a polygon as straight path data ("M x,y L x,y ... Z").
func PolygonSVG(poly geom.Polygon) string {
	if len(poly) == 0 {
		return ""
	}
	return straight(poly).SVG()
}

func writePoint(b *strings.Builder, p geom.Point) {
	b.WriteString(fmtFloat(p.X))
	b.WriteByte(',')
	b.WriteString(fmtFloat(p.Y))
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
