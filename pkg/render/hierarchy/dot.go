package hierarchy

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/palette"
)

// rootID names the root node, whose path is empty.
const rootID = "(root)"

// Options configures hierarchy diagram generation.
type Options struct {
	// Detailed adds the value and percentage to node labels.
	Detailed bool

	// MaxDepth limits the rendered depth. Zero renders every level.
	MaxDepth int
}

// ToDOT converts the cells of a layout to Graphviz DOT source.
func ToDOT(l layout.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowhead=none, color=\"#888888\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.15;\n")
	buf.WriteString("\n")

	var edges []string
	for _, c := range l.Cells {
		if opts.MaxDepth > 0 && c.Depth > opts.MaxDepth {
			continue
		}
		id := nodeID(c.Path)
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(fmtAttrs(l, c, opts.Detailed), ", "))
		if len(c.Path) > 0 {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", nodeID(c.Path[:len(c.Path)-1]), id))
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(path []string) string {
	if len(path) == 0 {
		return rootID
	}
	return strings.Join(path, "/")
}

func fmtLabel(l layout.Layout, c layout.Cell, detailed bool) string {
	name := c.Key()
	if name == "" {
		name = "total"
	}
	if !detailed {
		return name
	}
	return fmt.Sprintf("%s\n%s (%s)", name, label.FormatValue(c.Value), label.FormatPercent(l.Share(c), 1))
}

func fmtAttrs(l layout.Layout, c layout.Cell, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(l, c, detailed))}
	if c.Color != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c.Color), fmt.Sprintf("color=%q", palette.Outline(c.Color)))
	}
	if c.Depth == 1 {
		attrs = append(attrs, "penwidth=2", "fontname=\"Helvetica-Bold\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
//
// [render.ToPDF]: github.com/matzehuels/cellmap/pkg/render.ToPDF
// [render.ToPNG]: github.com/matzehuels/cellmap/pkg/render.ToPNG
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz pt-sized root element with one
// sized in pixels, so the diagram scales like the cellmap SVG.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
