package sink

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/matzehuels/cellmap/pkg/fonts"
	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/smooth"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	scale  float64
	margin float64

	regular, bold *opentype.Font
	faces         map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// WithPNGMargin pads the image on every side, in layout units.
func WithPNGMargin(m float64) PNGOption {
	return func(r *pngRenderer) { r.margin = m }
}

// RenderPNG rasterizes the layout directly, without an external converter.
// Text is set in the embedded Go font.
func RenderPNG(l layout.Layout, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 2.0, faces: make(map[faceKey]font.Face)}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		r.scale = 1
	}
	var err error
	if r.regular, err = opentype.Parse(fonts.Regular()); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if r.bold, err = opentype.Parse(fonts.Bold()); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	w := int(math.Ceil((l.Width + 2*r.margin) * r.scale))
	h := int(math.Ceil((l.Height + 2*r.margin) * r.scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", w, h)
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor(background)
	dc.Clear()
	dc.Scale(r.scale, r.scale)
	dc.Translate(r.margin, r.margin)

	drawCells(dc, l)
	drawOutlines(dc, l)
	if err := r.drawLabels(dc, l); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCells(dc *gg.Context, l layout.Layout) {
	for _, c := range l.Cells {
		if c.Depth == 0 || len(c.Polygon) < 3 {
			continue
		}
		tracePolygon(dc, c.Polygon)
		if c.Depth == 3 {
			dc.SetHexColor(c.Color)
			dc.FillPreserve()
		}
		stroke := cellStrokes[c.Depth]
		dc.SetHexColor(stroke.color)
		dc.SetLineWidth(stroke.width)
		dc.Stroke()
	}
}

func drawOutlines(dc *gg.Context, l layout.Layout) {
	if len(l.Outlines) == 0 {
		return
	}
	idx := indexCells(l)
	dc.SetFillRuleEvenOdd()
	defer dc.SetFillRuleWinding()

	for _, o := range l.Outlines {
		c, ok := idx[o.Path]
		if !ok || len(c.Polygon) < 3 {
			continue
		}
		tracePolygon(dc, c.Polygon)
		tracePath(dc, smooth.Smooth(c.Polygon, o.Smoothing))
		dc.SetHexColor(o.Fill)
		if o.StrokeWidth > 0 {
			dc.FillPreserve()
			dc.SetLineWidth(o.StrokeWidth)
			dc.Stroke()
		} else {
			dc.Fill()
		}
	}
}

// strokeOffsets approximates a text halo by redrawing it around a circle.
var strokeOffsets = func() []geom.Point {
	const n = 8
	out := make([]geom.Point, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / n
		out[i] = geom.Pt(math.Cos(a), math.Sin(a))
	}
	return out
}()

func (r *pngRenderer) drawLabels(dc *gg.Context, l layout.Layout) error {
	idx := indexCells(l)
	for _, lb := range l.Labels {
		if !lb.Visible || lb.FontSize <= 0 {
			continue
		}
		st := idx.style(lb)
		face, err := r.face(lb.FontSize, st.Bold)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)

		cx := lb.Box.X + lb.Box.Width/2
		for i, line := range lb.Lines {
			y := baseline(lb, i)
			if st.Stroke != "" {
				dc.SetHexColor(st.Stroke)
				d := st.StrokeWidth / 2
				for _, off := range strokeOffsets {
					dc.DrawStringAnchored(line, cx+off.X*d, y+off.Y*d, 0.5, 0)
				}
			}
			dc.SetHexColor(st.Fill)
			dc.DrawStringAnchored(line, cx, y, 0.5, 0)
		}
	}
	return nil
}

func (r *pngRenderer) face(size float64, bold bool) (font.Face, error) {
	key := faceKey{size, bold}
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	src := r.regular
	if bold {
		src = r.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	r.faces[key] = f
	return f, nil
}

func tracePolygon(dc *gg.Context, poly geom.Polygon) {
	dc.NewSubPath()
	for i, p := range poly {
		if i == 0 {
			dc.MoveTo(p.X, p.Y)
		} else {
			dc.LineTo(p.X, p.Y)
		}
	}
	dc.ClosePath()
}

func tracePath(dc *gg.Context, p smooth.Path) {
	dc.NewSubPath()
	for _, s := range p.Segments {
		switch s.Kind {
		case smooth.Move:
			dc.MoveTo(s.To.X, s.To.Y)
		case smooth.Line:
			dc.LineTo(s.To.X, s.To.Y)
		case smooth.Quad:
			dc.QuadraticTo(s.Ctrl.X, s.Ctrl.Y, s.To.X, s.To.Y)
		case smooth.Close:
			dc.ClosePath()
		}
	}
}
