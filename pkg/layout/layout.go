// Package layout defines the serialized result of a cellmap run.
//
// A [Layout] holds everything a renderer needs: the canvas size, one [Cell]
// per hierarchy node with its polygon and color, the placed labels, the
// smoothed outlines and the solver diagnostics. It is produced once by the
// pipeline and treated as immutable afterwards, so it can be cached, stored
// in MongoDB, served over HTTP and rendered again without recomputation.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/smooth"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// Clip shapes.
const (
	ShapeEllipse   = "ellipse"
	ShapeRectangle = "rectangle"
)

// =============================================================================
// Layout
// =============================================================================

// Layout is the complete, render-ready result of partitioning a dataset.
type Layout struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`

	Width  float64      `json:"width" bson:"width"`
	Height float64      `json:"height" bson:"height"`
	Seed   uint64       `json:"seed" bson:"seed"`
	Shape  string       `json:"shape" bson:"shape"`
	Clip   geom.Polygon `json:"clip" bson:"clip"`
	Total  float64      `json:"total" bson:"total"`

	Cells    []Cell           `json:"cells" bson:"cells"`
	Labels   []label.Label    `json:"labels,omitempty" bson:"labels,omitempty"`
	Outlines []smooth.Outline `json:"outlines,omitempty" bson:"outlines,omitempty"`

	Diagnostics Diagnostics `json:"diagnostics" bson:"diagnostics"`
}

// Cell is the region of one hierarchy node.
type Cell struct {
	Path    []string     `json:"path" bson:"path"`
	Depth   int          `json:"depth" bson:"depth"`
	Value   float64      `json:"value" bson:"value"`
	Count   int          `json:"count" bson:"count"`
	Polygon geom.Polygon `json:"polygon" bson:"polygon"`
	Site    geom.Point   `json:"site" bson:"site"`
	Color   string       `json:"color" bson:"color"`
}

// Key returns the last element of the cell's path.
func (c Cell) Key() string {
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[len(c.Path)-1]
}

// PathString returns the path joined with "/".
func (c Cell) PathString() string { return strings.Join(c.Path, "/") }

// Diagnostics collects the non-fatal problems of a run.
type Diagnostics struct {
	Partition treemap.Diagnostics `json:"partition" bson:"partition"`
	Labels    label.Stats         `json:"labels" bson:"labels"`

	// DegenerateCorners counts outline vertices left unrounded.
	DegenerateCorners int `json:"degenerate_corners" bson:"degenerate_corners"`
}

// CellsFromTree flattens root into cells in pre-order, root first.
func CellsFromTree(root *treemap.Node) []Cell {
	var cells []Cell
	root.Walk(func(n *treemap.Node) bool {
		cells = append(cells, Cell{
			Path:    n.Path(),
			Depth:   n.Depth,
			Value:   n.Value,
			Count:   n.Count,
			Polygon: n.Polygon,
			Site:    n.Site,
			Color:   n.Color,
		})
		return true
	})
	return cells
}

// AtDepth returns the cells at depth, in layout order.
func (l *Layout) AtDepth(depth int) []Cell {
	var out []Cell
	for _, c := range l.Cells {
		if c.Depth == depth {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the cell at the given "/"-joined path.
func (l *Layout) Find(path string) (Cell, bool) {
	for _, c := range l.Cells {
		if c.PathString() == path {
			return c, true
		}
	}
	return Cell{}, false
}

// Share returns the fraction of the total value held by c.
func (l *Layout) Share(c Cell) float64 {
	if l.Total <= 0 {
		return 0
	}
	return c.Value / l.Total
}

// AreaShare returns the fraction of the clip area covered by c.
func (l *Layout) AreaShare(c Cell) float64 {
	total := l.Clip.Area()
	if total <= 0 || len(c.Polygon) < 3 {
		return 0
	}
	return c.Polygon.Area() / total
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal serializes a Layout to pretty-printed JSON bytes.
func Marshal(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Layout and checks that it can be
// rendered.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate reports whether l is complete enough to render.
func (l *Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("layout must have a positive size, got %gx%g", l.Width, l.Height)
	}
	if len(l.Cells) == 0 {
		return fmt.Errorf("layout must contain cells")
	}
	if l.Cells[0].Depth != treemap.DepthRoot {
		return fmt.Errorf("layout must start with the root cell")
	}
	return nil
}

// WriteFile writes a Layout to a JSON file.
func WriteFile(l Layout, path string) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Layout from a JSON file.
func ReadFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
