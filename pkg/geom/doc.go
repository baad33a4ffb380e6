// Package geom provides planar polygon primitives for Voronoi treemap layout.
//
// # Overview
//
// All layout stages share the same two value types: [Point] and [Polygon].
// A Polygon is an ordered loop of vertices without a repeated closing vertex.
// Coordinates follow SVG conventions (x grows right, y grows down), so the
// sign of [Polygon.SignedArea] is the opposite of the mathematical one.
//
// # Operations
//
// The package covers what the partitioner, the position mapper, the path
// smoother and the label engine need:
//
//   - Bounding boxes: [Polygon.Bounds], [Rect]
//   - Membership: [Polygon.Contains]
//   - Measures: [Polygon.Area], [Polygon.Centroid]
//   - Ordering: [Polygon.SortByAngle]
//   - Simplification: [Polygon.SimplifySpacing], [Polygon.SimplifyDP]
//   - Convexity: [Polygon.ConvexHull], [Polygon.IsConvex], [Polygon.ClipHalfPlane]
//   - Shapes: [Rectangle], [Ellipse]
//
// Containment, area and centroid delegate to github.com/paulmach/orb/planar;
// Douglas-Peucker simplification delegates to github.com/paulmach/orb/simplify.
package geom
