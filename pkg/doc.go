// Package pkg provides the core libraries for Cellmap nested Voronoi treemaps.
//
// # Overview
//
// Cellmap turns flat records (region, group, cluster, size) into a treemap
// whose cells are Voronoi polygons: every cell covers a share of its parent
// proportional to its value, and every level is drawn inside the level above.
//
// # Architecture
//
// The data flow through Cellmap:
//
//	Records (JSON, YAML, CSV)
//	         ↓
//	    [records] package (decode and normalize)
//	         ↓
//	    [treemap] package (build the hierarchy, partition recursively)
//	         ↓
//	    [smooth], [label], [palette] (outlines, labels, colors)
//	         ↓
//	    [layout] package (serializable result)
//	         ↓
//	    [render] packages (SVG, PNG, PDF, JSON, DOT)
//
// # Quick Start
//
//	recs, _ := records.Import("budget.csv")
//	l, _ := pipeline.GenerateLayout(ctx, recs, pipeline.Options{Seed: 7})
//	svg := sink.RenderSVG(l, sink.WithTitle("Budget"))
//
// # Main Packages
//
// ## Geometry
//
// [geom] - Points, polygons, convex hulls, clipping and the ellipse and
// rectangle clip shapes.
//
// [voronoi] - Weighted Voronoi relaxation. The [voronoi.Solver] interface
// hides the power diagram solver; [voronoi.Lloyd] is the default.
//
// [position] - Initial site placement: random samples inside a polygon and
// user hints remapped into it.
//
// [treemap] - The hierarchy and the recursive partitioner.
//
// [smooth] - Rounded region outlines built from the cell polygons.
//
// ## Presentation
//
// [label] - Label measurement, value formatting and placement.
//
// [palette] - Region colors and their lighter shades for nested levels.
//
// [fonts] - The embedded font used for measurement and PNG output.
//
// [render/sink] and [render/hierarchy] - Output formats.
//
// ## Infrastructure
//
// [pipeline] - Load, layout and render stages shared by the CLI and the
// HTTP server, with caching through [cache].
//
// [cache] - File, memory, null and Redis caches.
//
// [store] - Stored layouts for the HTTP server: memory, file or MongoDB.
//
// [observability] - Hooks for metrics and tracing.
//
// [errors] - Error codes and input validation.
//
// [records]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/records
// [treemap]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/treemap
// [smooth]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/smooth
// [label]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/label
// [palette]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/palette
// [layout]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/render
// [render/sink]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/render/sink
// [render/hierarchy]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/render/hierarchy
// [geom]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/geom
// [voronoi]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/voronoi
// [voronoi.Solver]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/voronoi#Solver
// [voronoi.Lloyd]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/voronoi#Lloyd
// [position]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/position
// [fonts]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/fonts
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/cellmap/pkg/errors
package pkg
