// Package records reads and writes the flat input of a cellmap layout.
//
// # Overview
//
// A dataset is a list of records, one row per observation. Each record names
// a region, a group inside the region and a cluster inside the group, plus an
// optional size:
//
//	[
//	  {"region": "north", "group": "A", "cluster": "a1", "size": 12},
//	  {"region": "north", "group": "A", "cluster": "a2"}
//	]
//
// Records with the same region, group and cluster are summed by
// [treemap.Build]. A missing size counts as 1.
//
// # Formats
//
// JSON, YAML and CSV are supported. The format is chosen from the file
// extension by [Import], or passed explicitly to [Read]:
//
//   - JSON: an array of objects, or an object with a "records" array
//   - YAML: the same shapes as JSON
//   - CSV: a header row naming the columns, in any order
//
// The field names bigClusterLabel, clusterLabel and bubbleSize are accepted
// as aliases of group, cluster and size.
//
// # Hints
//
// Position hints seed the layout with a preferred arrangement. They are read
// with [ReadHints] and [ImportHints] from JSON or YAML:
//
//	[
//	  {"depth": 1, "key": "north", "x": 0.5, "y": 0.1},
//	  {"depth": 2, "key": "A", "parent": "north", "x": 0.2, "y": 0.4}
//	]
//
// Coordinates are in any consistent unit; they are rescaled per sibling group
// before use.
//
// [treemap.Build]: github.com/matzehuels/cellmap/pkg/treemap.Build
package records
