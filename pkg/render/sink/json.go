package sink

import (
	"encoding/json"

	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/layout"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	diagnostics  bool
	hiddenLabels bool
	simplify     float64
}

// WithJSONDiagnostics includes the solver and label diagnostics.
func WithJSONDiagnostics() JSONOption { return func(r *jsonRenderer) { r.diagnostics = true } }

// WithJSONHiddenLabels keeps labels whose visibility is off, for clients
// that reveal them on hover.
func WithJSONHiddenLabels() JSONOption { return func(r *jsonRenderer) { r.hiddenLabels = true } }

// WithJSONSimplify reduces cell polygons with the Douglas-Peucker algorithm
// at the given tolerance. Zero keeps every vertex.
func WithJSONSimplify(tolerance float64) JSONOption {
	return func(r *jsonRenderer) { r.simplify = tolerance }
}

type jsonOutput struct {
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	Seed        uint64              `json:"seed"`
	Total       float64             `json:"total"`
	Cells       []jsonCell          `json:"cells"`
	Labels      []jsonLabel         `json:"labels,omitempty"`
	Outlines    []jsonOutline       `json:"outlines,omitempty"`
	Diagnostics *layout.Diagnostics `json:"diagnostics,omitempty"`
}

type jsonCell struct {
	Path    string       `json:"path"`
	Key     string       `json:"key"`
	Depth   int          `json:"depth"`
	Value   float64      `json:"value"`
	Share   float64      `json:"share"`
	Color   string       `json:"color"`
	Polygon [][2]float64 `json:"polygon"`
}

type jsonLabel struct {
	Kind     label.Kind `json:"kind"`
	Path     string     `json:"path"`
	Lines    []string   `json:"lines"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	FontSize float64    `json:"font_size"`
	Fill     string     `json:"fill"`
	Stroke   string     `json:"stroke,omitempty"`
	Visible  bool       `json:"visible"`
}

type jsonOutline struct {
	Path  string  `json:"path"`
	Depth int     `json:"depth"`
	D     string  `json:"d"`
	Fill  string  `json:"fill"`
	Width float64 `json:"stroke_width,omitempty"`
}

// RenderJSON exports the layout as a compact, render-oriented JSON document
// for web clients: flattened polygons, resolved label colors and anchors.
// Use [layout.Marshal] for the lossless form that can be read back.
//
// [layout.Marshal]: github.com/matzehuels/cellmap/pkg/layout.Marshal
func RenderJSON(l layout.Layout, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Width:  l.Width,
		Height: l.Height,
		Seed:   l.Seed,
		Total:  l.Total,
		Cells:  buildJSONCells(l, r.simplify),
		Labels: buildJSONLabels(l, r.hiddenLabels),
	}
	for _, o := range l.Outlines {
		out.Outlines = append(out.Outlines, jsonOutline{Path: o.Path, Depth: o.Depth, D: o.D, Fill: o.Fill, Width: o.StrokeWidth})
	}
	if r.diagnostics {
		out.Diagnostics = &l.Diagnostics
	}
	return json.MarshalIndent(out, "", "  ")
}

func buildJSONCells(l layout.Layout, tolerance float64) []jsonCell {
	cells := make([]jsonCell, 0, len(l.Cells))
	for _, c := range l.Cells {
		polygon := c.Polygon
		if tolerance > 0 {
			polygon = polygon.SimplifyDP(tolerance)
		}
		poly := make([][2]float64, len(polygon))
		for i, p := range polygon {
			poly[i] = [2]float64{p.X, p.Y}
		}
		cells = append(cells, jsonCell{
			Path:    c.PathString(),
			Key:     c.Key(),
			Depth:   c.Depth,
			Value:   c.Value,
			Share:   l.Share(c),
			Color:   c.Color,
			Polygon: poly,
		})
	}
	return cells
}

func buildJSONLabels(l layout.Layout, hidden bool) []jsonLabel {
	idx := indexCells(l)
	var labels []jsonLabel
	for _, lb := range l.Labels {
		if !lb.Visible && !hidden {
			continue
		}
		st := idx.style(lb)
		labels = append(labels, jsonLabel{
			Kind:     lb.Kind,
			Path:     lb.Path,
			Lines:    lb.Lines,
			X:        lb.Anchor.X,
			Y:        lb.Anchor.Y,
			FontSize: lb.FontSize,
			Fill:     st.Fill,
			Stroke:   st.Stroke,
			Visible:  lb.Visible,
		})
	}
	return labels
}
