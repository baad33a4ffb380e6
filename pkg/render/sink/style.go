package sink

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/palette"
)

// Fixed label colors.
const (
	valueFill   = "#c25a50"
	percentFill = "#ffffff"
	regionFill  = "#ffffff"
	background  = "#ffffff"
)

// Cell strokes per depth, shared by the SVG and PNG sinks.
var cellStrokes = map[int]struct {
	color string
	width float64
}{
	1: {"#464749aa", 1.5},
	2: {"#46474955", 0.7},
	3: {"#ffffffb0", 0.5},
}

// textStyle is how one label is painted.
type textStyle struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Bold        bool
	Class       string
}

// cellIndex looks up cells by their "/"-joined path.
type cellIndex map[string]layout.Cell

func indexCells(l layout.Layout) cellIndex {
	idx := make(cellIndex, len(l.Cells))
	for _, c := range l.Cells {
		idx[c.PathString()] = c
	}
	return idx
}

func (idx cellIndex) color(path string) string {
	if c, ok := idx[path]; ok && c.Color != "" {
		return c.Color
	}
	return palette.RootColor
}

func (idx cellIndex) parentColor(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return palette.RootColor
	}
	return idx.color(path[:i])
}

func (idx cellIndex) style(l label.Label) textStyle {
	switch l.Kind {
	case label.KindRegion:
		return textStyle{
			Fill:        regionFill,
			Stroke:      palette.Vary(idx.color(l.Path), 0, -0.05, -0.2),
			StrokeWidth: 3,
			Bold:        true,
			Class:       "region",
		}
	case label.KindGroup:
		return textStyle{Fill: palette.Tint(idx.parentColor(l.Path), 0, 0.2, -0.2), Bold: true, Class: "field"}
	case label.KindCluster:
		return textStyle{Fill: palette.Vary(idx.color(l.Path), 0, -0.1, -0.3), Class: "sector"}
	case label.KindPercent:
		return textStyle{Fill: percentFill, Class: "budget percent"}
	default:
		return textStyle{Fill: valueFill, Class: "budget"}
	}
}

// baseline returns the y coordinate of line i of a label's box.
func baseline(l label.Label, i int) float64 {
	advance := l.FontSize * label.LineHeight
	return l.Box.Y + advance*float64(i) + l.FontSize*0.8
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
