package sink

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/cellmap/pkg/fonts"
	"github.com/matzehuels/cellmap/pkg/layout"
)

const cellmapCSS = `
    .regionArea1 { stroke: #464749aa; stroke-width: 1.5; }
    .regionArea2 { stroke: #46474955; stroke-width: 0.7; }
    .regionArea3 { stroke: #ffffffb0; stroke-width: 0.5; }
    .region { font-weight: 700; paint-order: stroke; pointer-events: none; }
    .field { font-weight: 600; pointer-events: none; }
    .sector { font-weight: 400; pointer-events: none; }
    .budget { pointer-events: none; }
    .title { font-size: 22px; font-weight: 600; }
    .caption { font-size: 15px; fill: #888; }`

const interactionCSS = `
    .regionArea3 { cursor: pointer; transition: filter 0.2s ease; }
    .regionArea3:hover { filter: hue-rotate(-5deg) brightness(0.95); }`

// interactionJS reveals the group and cluster labels of a hovered cell and
// restores their computed visibility on leave.
const interactionJS = `
    document.querySelectorAll('.regionArea3').forEach(cell => {
      const related = () => document.querySelectorAll(
        '[data-label="' + cell.dataset.path + '"], [data-label="' + cell.dataset.parent + '"]');
      cell.addEventListener('mouseenter', () => related().forEach(t => t.setAttribute('opacity', 1)));
      cell.addEventListener('mouseleave', () => related().forEach(t => t.setAttribute('opacity', t.dataset.visible === 'true' ? 1 : 0)));
    });`

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	margin      float64
	title       string
	caption     string
	embedFont   bool
	interactive bool
}

// WithMargin pads the drawing on every side.
func WithMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// WithTitle draws a centered title above the drawing.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// WithCaption draws a centered caption below the drawing.
func WithCaption(s string) SVGOption { return func(r *svgRenderer) { r.caption = s } }

// WithEmbeddedFont inlines the label font so the SVG renders with the
// measured glyph widths everywhere.
func WithEmbeddedFont() SVGOption { return func(r *svgRenderer) { r.embedFont = true } }

// WithInteractive adds hover highlighting and keeps hidden labels in the
// document so hovering a cell can reveal them.
func WithInteractive() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// frame is the outer geometry of the document.
type frame struct {
	width, height float64
	left, top     float64
}

func (r *svgRenderer) frame(l layout.Layout) frame {
	f := frame{left: r.margin, top: r.margin}
	if r.title != "" {
		f.top += 40
	}
	bottom := r.margin
	if r.caption != "" {
		bottom += 40
	}
	f.width = l.Width + 2*r.margin
	f.height = l.Height + f.top + bottom
	return f
}

// RenderSVG renders the layout as a standalone SVG document.
func RenderSVG(l layout.Layout, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	f := r.frame(l)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%.0f" height="%.0f">`+"\n",
		num(f.width), num(f.height), f.width, f.height)
	r.renderDefs(&buf)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", background)

	if r.title != "" {
		fmt.Fprintf(&buf, `  <text class="title" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
			num(f.width/2), num(f.top-15), escapeXML(r.title))
	}

	fmt.Fprintf(&buf, `  <g transform="translate(%s,%s)" font-family="%s">`+"\n",
		num(f.left), num(f.top), escapeXML(fonts.FallbackFontFamily))
	renderCells(&buf, l)
	renderOutlines(&buf, l)
	r.renderLabels(&buf, l)
	buf.WriteString("  </g>\n")

	if r.caption != "" {
		fmt.Fprintf(&buf, `  <text class="caption" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
			num(f.width/2), num(f.top+l.Height+30), escapeXML(r.caption))
	}
	if r.interactive {
		fmt.Fprintf(&buf, "  <script><![CDATA[%s\n  ]]></script>\n", interactionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <style>")
	if r.embedFont {
		fmt.Fprintf(buf, "\n    @font-face { font-family: '%s'; src: url(data:font/ttf;base64,%s) format('truetype'); }",
			fonts.FontFamily, fonts.RegularBase64())
	}
	buf.WriteString(cellmapCSS)
	if r.interactive {
		buf.WriteString(interactionCSS)
	}
	buf.WriteString("\n  </style>\n")
}

func renderCells(buf *bytes.Buffer, l layout.Layout) {
	buf.WriteString(`    <g class="cell">` + "\n")
	for _, c := range l.Cells {
		if c.Depth == 0 || len(c.Polygon) < 3 {
			continue
		}
		opacity := 0
		if c.Depth == 3 {
			opacity = 1
		}
		parent := strings.Join(c.Path[:len(c.Path)-1], "/")
		fmt.Fprintf(buf, `      <path class="regionArea%d" d="%s" fill="%s" fill-opacity="%d" data-path="%s" data-parent="%s"/>`+"\n",
			c.Depth, polygonPath(c), c.Color, opacity, escapeXML(c.PathString()), escapeXML(parent))
	}
	buf.WriteString("    </g>\n")
}

func renderOutlines(buf *bytes.Buffer, l layout.Layout) {
	if len(l.Outlines) == 0 {
		return
	}
	buf.WriteString(`    <g class="outlines">` + "\n")
	for _, o := range l.Outlines {
		fmt.Fprintf(buf, `      <path class="pebble%d" d="%s" fill="%s" fill-rule="evenodd"`, o.Depth, o.D, o.Fill)
		if o.StrokeWidth > 0 {
			fmt.Fprintf(buf, ` stroke="%s" stroke-width="%s"`, o.Fill, num(o.StrokeWidth))
		}
		buf.WriteString("/>\n")
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderLabels(buf *bytes.Buffer, l layout.Layout) {
	idx := indexCells(l)
	buf.WriteString(`    <g class="labels">` + "\n")
	for _, lb := range l.Labels {
		if !lb.Visible && !r.interactive {
			continue
		}
		st := idx.style(lb)
		opacity := 1
		if !lb.Visible {
			opacity = 0
		}
		fmt.Fprintf(buf, `      <text class="%s" font-size="%s" fill="%s" text-anchor="middle" opacity="%d" data-label="%s" data-visible="%t"`,
			st.Class, num(lb.FontSize), st.Fill, opacity, escapeXML(lb.Path), lb.Visible)
		if st.Stroke != "" {
			fmt.Fprintf(buf, ` stroke="%s" stroke-width="%s" stroke-opacity="0.85"`, st.Stroke, num(st.StrokeWidth))
		}
		buf.WriteString(">")
		cx := lb.Box.X + lb.Box.Width/2
		for i, line := range lb.Lines {
			fmt.Fprintf(buf, `<tspan x="%s" y="%s">%s</tspan>`, num(cx), num(baseline(lb, i)), escapeXML(line))
		}
		buf.WriteString("</text>\n")
	}
	buf.WriteString("    </g>\n")
}

func polygonPath(c layout.Cell) string {
	var b bytes.Buffer
	for i, p := range c.Polygon {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('L')
		}
		b.WriteString(num(p.X))
		b.WriteByte(',')
		b.WriteString(num(p.Y))
	}
	b.WriteByte('Z')
	return b.String()
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
