// Package render turns a computed [layout.Layout] into images.
//
// # Overview
//
// Rendering is a pure function of the layout: nothing here partitions,
// colors or places labels. The subpackages provide the output formats:
//
//   - [sink]: SVG, PNG, PDF and JSON output of a cellmap
//   - [hierarchy]: a Graphviz node-link view of the region/group/cluster tree
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg):
//
//	svg := sink.RenderSVG(l)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// PNG output without librsvg is available through [sink.RenderPNG], which
// rasterizes the layout directly.
//
// [layout.Layout]: github.com/matzehuels/cellmap/pkg/layout.Layout
// [sink]: github.com/matzehuels/cellmap/pkg/render/sink
// [sink.RenderPNG]: github.com/matzehuels/cellmap/pkg/render/sink.RenderPNG
// [hierarchy]: github.com/matzehuels/cellmap/pkg/render/hierarchy
package render
