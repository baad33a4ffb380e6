package treemap

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/position"
)

func sampleRecords() []Record {
	return []Record{
		{Region: "north", Group: "A", Cluster: "a1", Size: 4},
		{Region: "north", Group: "A", Cluster: "a2", Size: 2},
		{Region: "north", Group: "B", Cluster: "b1", Size: 3},
		{Region: "south", Group: "C", Cluster: "c1", Size: 5},
		{Region: "south", Group: "C", Cluster: "c2", Size: 1},
		{Region: "south", Group: "D", Cluster: "d1", Size: 2},
		{Region: "east", Group: "E", Cluster: "e1", Size: 3},
	}
}

func mustBuild(t *testing.T, records []Record) *Node {
	t.Helper()
	root, err := Build(records)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return root
}

func TestBuild(t *testing.T) {
	root := mustBuild(t, sampleRecords())

	if got := len(root.Children); got != 3 {
		t.Fatalf("regions = %d, want 3", got)
	}
	want := []string{"north", "south", "east"}
	for i, c := range root.Children {
		if c.Key != want[i] {
			t.Errorf("region %d = %q, want %q", i, c.Key, want[i])
		}
		if c.Depth != DepthRegion {
			t.Errorf("region %q depth = %d", c.Key, c.Depth)
		}
	}
	if root.Value != 20 {
		t.Errorf("root value = %v, want 20", root.Value)
	}
	if root.Count != 7 {
		t.Errorf("root count = %d, want 7", root.Count)
	}

	n, ok := root.Find("north", "A", "a2")
	if !ok {
		t.Fatal("north/A/a2 not found")
	}
	if n.Depth != DepthCluster || n.Value != 2 {
		t.Errorf("a2 = depth %d value %v", n.Depth, n.Value)
	}
	if got := n.PathString(); got != "north/A/a2" {
		t.Errorf("PathString() = %q", got)
	}
	if got := len(root.Leaves()); got != 7 {
		t.Errorf("leaves = %d, want 7", got)
	}
}

func TestBuildSumInvariant(t *testing.T) {
	root := mustBuild(t, sampleRecords())
	root.Walk(func(n *Node) bool {
		if n.IsLeaf() {
			return true
		}
		var sum float64
		for _, c := range n.Children {
			sum += c.Value
			if c.Parent != n {
				t.Errorf("%q parent link broken", c.PathString())
			}
		}
		if sum != n.Value {
			t.Errorf("%q value = %v, children sum = %v", n.PathString(), n.Value, sum)
		}
		return true
	})
}

func TestBuildSizes(t *testing.T) {
	tests := []struct {
		name  string
		sizes []float64
		want  float64
	}{
		{"absent counts as one", []float64{math.NaN()}, 1},
		{"summed", []float64{2, 3}, 5},
		{"negative ignored", []float64{-4, 2}, 2},
		{"zero sum becomes one", []float64{0, 0}, 1},
		{"all negative becomes one", []float64{-1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []Record
			for _, s := range tt.sizes {
				records = append(records, Record{Region: "r", Group: "g", Cluster: "c", Size: s})
			}
			root := mustBuild(t, records)
			leaf, _ := root.Find("r", "g", "c")
			if leaf.Value != tt.want {
				t.Errorf("value = %v, want %v", leaf.Value, tt.want)
			}
			if leaf.Count != len(tt.sizes) {
				t.Errorf("count = %d, want %d", leaf.Count, len(tt.sizes))
			}
		})
	}
}

func TestBuildDropsBlankRegions(t *testing.T) {
	root := mustBuild(t, []Record{
		{Region: "", Group: "g", Cluster: "c", Size: 1},
		{Region: "  ", Group: "g", Cluster: "c", Size: 1},
		{Region: "r", Group: "g", Cluster: "c", Size: 1},
	})
	if len(root.Children) != 1 || root.Children[0].Key != "r" {
		t.Errorf("regions = %v", root.Children)
	}

	_, err := Build([]Record{{Region: " ", Size: 1}})
	if !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("Build() error = %v, want ErrEmptyDataset", err)
	}
}

func TestNodeHelpers(t *testing.T) {
	root := mustBuild(t, sampleRecords())

	if got := len(root.AtDepth(DepthGroup)); got != 5 {
		t.Errorf("AtDepth(group) = %d, want 5", got)
	}
	if got := len(root.Descendants()); got != 3+5+7 {
		t.Errorf("Descendants() = %d, want 15", got)
	}
	if root.PathString() != "" {
		t.Errorf("root path = %q", root.PathString())
	}
	b, _ := root.Find("north", "B")
	if got := len(b.Siblings()); got != 2 {
		t.Errorf("Siblings() = %d, want 2", got)
	}
	if b.ParentKey() != "north" {
		t.Errorf("ParentKey() = %q", b.ParentKey())
	}
	if _, ok := root.Find("north", "Z"); ok {
		t.Error("Find() should miss unknown key")
	}
}

// within reports whether every vertex of inner lies in outer or on its
// boundary.
func within(inner, outer geom.Polygon) bool {
	for _, v := range inner {
		if outer.Contains(v) {
			continue
		}
		onEdge := false
		outer.Edges(func(a, b geom.Point) {
			if segmentDist(v, a, b) < 1e-6 {
				onEdge = true
			}
		})
		if !onEdge {
			return false
		}
	}
	return true
}

func segmentDist(p, a, b geom.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Dist(a)
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Dist(a.Add(ab.Scale(t)))
}

func partition(t *testing.T, root *Node, opts Options) Diagnostics {
	t.Helper()
	diag, err := Partition(context.Background(), geom.Rectangle(0, 0, 500, 300), root, opts)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	return diag
}

func TestPartitionContainment(t *testing.T) {
	root := mustBuild(t, sampleRecords())
	diag := partition(t, root, Options{Seed: 10})

	root.Walk(func(n *Node) bool {
		if len(n.Polygon) < 3 {
			t.Errorf("%q has no polygon", n.PathString())
			return true
		}
		if n.Parent != nil && !within(n.Polygon, n.Parent.Polygon) {
			t.Errorf("%q escapes its parent", n.PathString())
		}
		return true
	})

	// root, 3 regions and 5 groups are relaxed
	if got := len(diag.Nodes); got != 9 {
		t.Errorf("diagnostics nodes = %d, want 9", got)
	}
	if len(diag.Degenerate) != 0 {
		t.Errorf("degenerate = %v", diag.Degenerate)
	}
}

func TestPartitionCoversParent(t *testing.T) {
	root := mustBuild(t, sampleRecords())
	partition(t, root, Options{Seed: 3, MaxIterations: 200})

	root.Walk(func(n *Node) bool {
		if n.IsLeaf() {
			return true
		}
		var sum float64
		for _, c := range n.Children {
			sum += c.Polygon.Area()
		}
		if a := n.Polygon.Area(); math.Abs(sum-a) > a*1e-6 {
			t.Errorf("%q children cover %v of %v", n.PathString(), sum, a)
		}
		return true
	})
}

func TestPartitionSingleChildKeepsClip(t *testing.T) {
	root := mustBuild(t, []Record{{Region: "only", Group: "g", Cluster: "c", Size: 1}})
	partition(t, root, Options{})

	clip := geom.Rectangle(0, 0, 500, 300)
	leaf, _ := root.Find("only", "g", "c")
	if len(leaf.Polygon) != len(clip) {
		t.Fatalf("polygon = %v, want %v", leaf.Polygon, clip)
	}
	for i := range clip {
		if leaf.Polygon[i] != clip[i] {
			t.Fatalf("polygon = %v, want %v", leaf.Polygon, clip)
		}
	}
}

func TestPartitionTwoEqualChildren(t *testing.T) {
	root := mustBuild(t, []Record{
		{Region: "a", Group: "g", Cluster: "c", Size: 1},
		{Region: "b", Group: "g", Cluster: "c", Size: 1},
	})
	partition(t, root, Options{Seed: 1, MaxIterations: 200})

	total := 500.0 * 300.0
	for _, c := range root.Children {
		if share := c.Polygon.Area() / total; math.Abs(share-0.5) > 0.02 {
			t.Errorf("%q share = %v, want ~0.5", c.Key, share)
		}
	}
}

func TestPartitionDeterministic(t *testing.T) {
	a := mustBuild(t, sampleRecords())
	b := mustBuild(t, sampleRecords())
	partition(t, a, Options{Seed: 7})
	partition(t, b, Options{Seed: 7, Parallel: true, Workers: 4})

	an, bn := a.Descendants(), b.Descendants()
	for i := range an {
		if len(an[i].Polygon) != len(bn[i].Polygon) {
			t.Fatalf("%q differs between runs", an[i].PathString())
		}
		for j := range an[i].Polygon {
			if an[i].Polygon[j] != bn[i].Polygon[j] {
				t.Fatalf("%q differs between runs", an[i].PathString())
			}
		}
	}
}

func TestPartitionHints(t *testing.T) {
	root := mustBuild(t, []Record{
		{Region: "west", Group: "g", Cluster: "c", Size: 1},
		{Region: "east", Group: "g", Cluster: "c", Size: 1},
	})
	hints := []position.Hint{
		{Depth: DepthRegion, Key: "west", X: 0.1, Y: 0.5},
		{Depth: DepthRegion, Key: "east", X: 0.9, Y: 0.5},
	}
	partition(t, root, Options{Seed: 5, Hints: hints, MaxIterations: 5})

	west, _ := root.Find("west")
	east, _ := root.Find("east")
	if west.Polygon.Centroid().X >= east.Polygon.Centroid().X {
		t.Errorf("west centroid %v should lie left of east %v",
			west.Polygon.Centroid(), east.Polygon.Centroid())
	}
}

func TestPartitionDuplicateHintsDiverge(t *testing.T) {
	root := mustBuild(t, []Record{
		{Region: "r", Group: "A", Cluster: "c", Size: 1},
		{Region: "r", Group: "B", Cluster: "c", Size: 1},
	})
	hints := []position.Hint{
		{Depth: DepthGroup, Key: "A", Parent: "r", X: 0.4, Y: 0.4},
		{Depth: DepthGroup, Key: "B", Parent: "r", X: 0.4, Y: 0.4},
	}
	partition(t, root, Options{Seed: 2, Hints: hints})

	a, _ := root.Find("r", "A")
	b, _ := root.Find("r", "B")
	if a.Site == b.Site {
		t.Errorf("sites coincide at %v", a.Site)
	}
	if a.Polygon.Area() == 0 || b.Polygon.Area() == 0 {
		t.Error("duplicate hints should still yield two cells")
	}
}

func TestResolveHintParents(t *testing.T) {
	root := mustBuild(t, sampleRecords())
	got := resolveHintParents(root, []position.Hint{
		{Depth: DepthGroup, Key: "C"},
		{Depth: DepthCluster, Key: "a1"},
		{Depth: DepthCluster, Key: "zz"},
		{Depth: DepthRegion, Key: "north"},
	})
	want := []string{"south", "A", "", ""}
	for i, h := range got {
		if h.Parent != want[i] {
			t.Errorf("hint %q parent = %q, want %q", h.Key, h.Parent, want[i])
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	root := mustBuild(t, sampleRecords())
	_, err := Partition(context.Background(), geom.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}, root, Options{})
	if !errors.Is(err, ErrInvalidClip) {
		t.Errorf("error = %v, want ErrInvalidClip", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Partition(ctx, geom.Rectangle(0, 0, 10, 10), root, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPartitionNonConvexClipUsesHull(t *testing.T) {
	star := make(geom.Polygon, 5)
	for i := range star {
		a := float64(i) * 4 * math.Pi / 5
		star[i] = geom.Pt(50+40*math.Cos(a), 50+40*math.Sin(a))
	}
	tests := []struct {
		name string
		clip geom.Polygon
	}{
		{"reflex vertex", geom.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5, Y: 5}, {X: 0, Y: 10}}},
		{"ellipse", geom.Ellipse(800, 600, 100)},
		{"small ellipse", geom.Ellipse(1, 1, 100)},
		{"bow tie", geom.Polygon{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}}},
		{"pentagram", star},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustBuild(t, sampleRecords())
			if _, err := Partition(context.Background(), tt.clip, root, Options{Seed: 5}); err != nil {
				t.Fatalf("Partition() error = %v", err)
			}
			hull := tt.clip.ConvexHull()
			want := hull.Area()
			if got := root.Polygon.Area(); math.Abs(got-want) > want*1e-9 {
				t.Errorf("root area = %v, want hull area %v", got, want)
			}
			root.Walk(func(n *Node) bool {
				if n.Parent != nil && !within(n.Polygon, n.Parent.Polygon) {
					t.Errorf("%q escapes its parent", n.PathString())
				}
				return true
			})
		})
	}
}
