// Package sink provides output format renderers for cellmap layouts.
//
// # Overview
//
// A "sink" transforms a computed [layout.Layout] into a final output format:
//
//   - SVG: vector output with optional hover interaction
//   - PNG: raster output drawn directly with fogleman/gg
//   - PDF: print output (requires rsvg-convert)
//   - JSON: a compact, render-oriented export for web clients
//
// Every sink paints the same scene: clusters filled with their color, region
// and group borders stroked, the pebble outlines filled with the even-odd
// rule, and the visible labels on top.
//
//	svg := sink.RenderSVG(l, sink.WithTitle("Budget"), sink.WithInteractive())
//	png, err := sink.RenderPNG(l, sink.WithScale(2))
//
// Sinks never modify the layout and are safe to call concurrently.
//
// [layout.Layout]: github.com/matzehuels/cellmap/pkg/layout.Layout
package sink
