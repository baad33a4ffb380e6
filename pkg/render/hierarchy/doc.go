// Package hierarchy renders the region, group and cluster tree of a layout
// as a node-link diagram.
//
// # Overview
//
// The cellmap shows sizes by area; the hierarchy view shows the same nested
// structure as a left-to-right tree drawn by Graphviz. Nodes are filled with
// their cell color so both views can be read side by side.
//
//	dot := hierarchy.ToDOT(l, hierarchy.Options{Detailed: true})
//	svg, err := hierarchy.RenderSVG(dot)
//
// For PDF or PNG output, use [RenderPDF] and [RenderPNG], which convert the
// SVG with rsvg-convert.
//
// # Options
//
//   - Detailed: label nodes with their value and share of the total
//   - MaxDepth: stop at a depth (1 = regions only); zero shows every level
package hierarchy
