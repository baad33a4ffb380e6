package label

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestResolve(t *testing.T) {
	parent := Box{X: 0, Y: 0, Width: 100, Height: 20, Lines: 1}
	cell := geom.Rect{MinX: -200, MinY: -200, MaxX: 200, MaxY: 200}

	tests := []struct {
		name  string
		child Box
		cell  geom.Rect
		wantX float64
		wantY float64
	}{
		{"unmeasured", Box{X: 10, Y: 5, Width: 0, Height: 10, Lines: 1}, cell, 10, 5},
		{"beside", Box{X: 200, Y: 5, Width: 50, Height: 10, Lines: 1}, cell, 200, 5},
		{"within horizontal margin", Box{X: 98, Y: 5, Width: 10, Height: 10, Lines: 1}, cell, 98, 5},
		{"below without overlap", Box{X: 10, Y: 50, Width: 50, Height: 10, Lines: 1}, cell, 10, 50},
		{"moved above", Box{X: 10, Y: -5, Width: 50, Height: 10, Lines: 1}, cell, 10, -10},
		{"moved below", Box{X: 10, Y: 15, Width: 50, Height: 10, Lines: 1}, cell, 10, 20},
		{"multi-line correction", Box{X: 10, Y: 15, Width: 50, Height: 20, Lines: 3}, cell, 10, 22.5},
		{"below rejected by cell", Box{X: 10, Y: 15, Width: 50, Height: 10, Lines: 1},
			geom.Rect{MinX: -200, MinY: -200, MaxX: 200, MaxY: 25}, 10, 15},
		{"above rejected by cell", Box{X: 10, Y: -5, Width: 50, Height: 10, Lines: 1},
			geom.Rect{MinX: -200, MinY: -8, MaxX: 200, MaxY: 200}, 10, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Resolve(tt.child, parent, tt.cell)
			if !near(x, tt.wantX) || !near(y, tt.wantY) {
				t.Errorf("Resolve() = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestResolveSpacing(t *testing.T) {
	parent := Box{X: 0, Y: 0, Width: 100, Height: 20, Lines: 1}
	child := Box{X: 10, Y: 22, Width: 50, Height: 10, Lines: 1}
	cell := geom.Rect{MinX: -200, MinY: -200, MaxX: 200, MaxY: 200}

	if _, y := Resolve(child, parent, cell); y != 22 {
		t.Errorf("without spacing y = %v, want 22", y)
	}
	if _, y := ResolveSpacing(child, parent, cell, 6); y != 20 {
		t.Errorf("with spacing y = %v, want 20", y)
	}
}

func TestFontScale(t *testing.T) {
	if got := FontScale(20, 100); !near(got, 1.5) {
		t.Errorf("FontScale(20%%) = %v, want 1.5", got)
	}
	if FontScale(0, 100) != FontScale(0.1, 100) {
		t.Error("shares below 0.2% should clamp")
	}
	if FontScale(90, 100) != FontScale(40, 100) {
		t.Error("shares above 30% should clamp")
	}
	if got := FontScale(1, 0); got != FontScale(0, 100) {
		t.Errorf("zero total = %v", got)
	}
	if got := FontScaleDetail(0.1, 100); !near(got, 0.5) {
		t.Errorf("FontScaleDetail(0.1%%) = %v, want 0.5", got)
	}
	if got := FontScaleDetail(50, 100); got >= 0.8 || got != FontScaleDetail(10, 100) {
		t.Errorf("FontScaleDetail(50%%) = %v", got)
	}
	if got := HeightOffset(1, 1); got != -8 {
		t.Errorf("HeightOffset(1, 1) = %v", got)
	}
	if got := HeightOffset(0.5, 4); got != 8 {
		t.Errorf("HeightOffset(0.5, 4) = %v", got)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Seoul", []string{"Seoul"}},
		{"North America", []string{"North", "America"}},
		{"a b c", []string{"a b c"}},
		{"a,b", []string{"a b"}},
		{"Line one\nLine two", []string{"Line one", "Line two"}},
		{"Extraordinarily", []string{"Extraordinarily"}},
		{"서울특별시 강남구", []string{"서울특별시", "강남구"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Wrap(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextWidth(t *testing.T) {
	if got := TextWidth("il"); !near(got, 0.8) {
		t.Errorf("TextWidth(il) = %v", got)
	}
	if got := TextWidth("xx"); got != 2 {
		t.Errorf("TextWidth(xx) = %v", got)
	}
	if got := TextWidth("서울"); got != 2 {
		t.Errorf("TextWidth(서울) = %v", got)
	}
	if got := MaxWidth([]string{"il", "xxx"}); got != 3 {
		t.Errorf("MaxWidth = %v", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1234, "1,234"},
		{56780000, "5,678만"},
		{123456789, "1억 2,345만"},
		{150000000, "1억 5,000만"},
		{2.5e12, "2조 5,000억"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatValue(math.NaN()); got != "" {
		t.Errorf("FormatValue(NaN) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.256, 0); got != "26%" {
		t.Errorf("FormatPercent(0.256, 0) = %q", got)
	}
	if got := FormatPercent(0.256, 1); got != "25.6%" {
		t.Errorf("FormatPercent(0.256, 1) = %q", got)
	}
}

func TestMeasurers(t *testing.T) {
	fm, err := NewFontMeasurer(nil)
	if err != nil {
		t.Fatalf("NewFontMeasurer() error = %v", err)
	}
	for name, m := range map[string]Measurer{"estimate": EstimateMeasurer{}, "font": fm} {
		t.Run(name, func(t *testing.T) {
			if _, _, ok := m.Measure(nil, 16); ok {
				t.Error("empty text should not be measurable")
			}
			w1, h1, ok := m.Measure([]string{"Hello"}, 16)
			if !ok || w1 <= 0 || h1 != 16 {
				t.Fatalf("Measure(Hello) = %v, %v, %v", w1, h1, ok)
			}
			w2, h2, _ := m.Measure([]string{"Hello", "Hello world"}, 16)
			if w2 <= w1 || h2 != 32 {
				t.Errorf("two lines = %v x %v", w2, h2)
			}
		})
	}
	if _, err := NewFontMeasurer([]byte("not a font")); err == nil {
		t.Error("NewFontMeasurer() should reject garbage")
	}
}

func TestAnchor(t *testing.T) {
	mk := func(site geom.Point, children ...geom.Point) *treemap.Node {
		g := &treemap.Node{Key: "g", Depth: treemap.DepthGroup, Site: site, Polygon: geom.Rectangle(0, 0, 100, 100)}
		for _, s := range children {
			g.Children = append(g.Children, &treemap.Node{Key: "c", Depth: treemap.DepthCluster, Parent: g, Site: s})
		}
		return g
	}

	tests := []struct {
		name string
		node *treemap.Node
		want geom.Point
	}{
		{"siblings keep site", mk(geom.Pt(50, 50), geom.Pt(30, 40), geom.Pt(70, 60)).Children[0], geom.Pt(30, 40)},
		{"lone child pushed", mk(geom.Pt(50, 50), geom.Pt(50, 50)).Children[0], geom.Pt(60, 68)},
		{"lone child clamped", mk(geom.Pt(50, 95), geom.Pt(50, 95)).Children[0], geom.Pt(60, 95)},
		{"far child kept", mk(geom.Pt(50, 20), geom.Pt(50, 60)).Children[0], geom.Pt(50, 60)},
		{"region", &treemap.Node{Depth: treemap.DepthRegion, Site: geom.Pt(3, 4)}, geom.Pt(3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Anchor(tt.node, 20, 10); !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
				t.Errorf("Anchor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineResolve(t *testing.T) {
	cell := geom.Rect{MinX: -100, MinY: -100, MaxX: 200, MaxY: 200}
	labels := []Label{
		{Kind: KindRegion, Key: "r", Path: "r", Box: Box{Width: 100, Height: 20, Lines: 1}},
		{Kind: KindGroup, Key: "g", Path: "r/g", Parent: "r", Cell: cell,
			Box: Box{X: 10, Y: 15, Width: 50, Height: 10, Lines: 1}},
		{Kind: KindCluster, Key: "c", Path: "r/g/c", Parent: "r/g", Cell: cell,
			Box: Box{X: 10, Y: 25, Width: 50, Height: 10, Lines: 1}},
		{Kind: KindRegion, Key: "  ", Path: "  ", Box: Box{Width: 100, Height: 20, Lines: 1}},
		{Kind: KindGroup, Key: "h", Path: "  /h", Parent: "  ", Cell: cell,
			Box: Box{X: 10, Y: 15, Width: 50, Height: 10, Lines: 1}},
	}

	moved := Engine{}.Resolve(labels)
	if moved != 2 {
		t.Errorf("moved = %d, want 2", moved)
	}
	if labels[1].Box.Y != 20 || !labels[1].Moved {
		t.Errorf("group box = %+v", labels[1].Box)
	}
	// the cluster is resolved against the group's new position
	if labels[2].Box.Y != 30 {
		t.Errorf("cluster box = %+v", labels[2].Box)
	}
	if c := labels[2].Box.Center(); c != labels[2].Anchor {
		t.Errorf("anchor %v not at box center %v", labels[2].Anchor, c)
	}
	if labels[4].Moved {
		t.Error("blank region label should not push")
	}
}

func TestLayout(t *testing.T) {
	root, err := treemap.Build([]treemap.Record{
		{Region: "north", Group: "A", Cluster: "a1", Size: 40000},
		{Region: "north", Group: "A", Cluster: "a2", Size: 200},
		{Region: "north", Group: "B", Cluster: "b1", Size: 3000},
		{Region: "south", Group: "C", Cluster: "c1", Size: 5000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := treemap.Partition(context.Background(), geom.Rectangle(0, 0, 500, 300), root, treemap.Options{Seed: 10}); err != nil {
		t.Fatal(err)
	}

	labels, stats := Layout(root, Options{ShowRegion: true, SizeLimit: DefaultSizeLimit})

	// 2 regions, 3 groups, 4 clusters, 2 percents, 4 values
	if len(labels) != 15 || stats.Labels != 15 {
		t.Fatalf("labels = %d, stats = %+v", len(labels), stats)
	}
	if stats.Missing != 0 {
		t.Errorf("missing = %d", stats.Missing)
	}

	visibleValues := 0
	for _, l := range labels {
		if c := l.Box.Center(); !near(c.X, l.Anchor.X) || !near(c.Y, l.Anchor.Y) {
			t.Errorf("%s %q anchor %v not at box center %v", l.Kind, l.Path, l.Anchor, c)
		}
		if l.FontSize <= 0 {
			t.Errorf("%s %q font size = %v", l.Kind, l.Path, l.FontSize)
		}
		if l.Kind == KindValue && l.Visible {
			visibleValues++
		}
	}
	if visibleValues != 3 {
		t.Errorf("visible values = %d, want 3", visibleValues)
	}
}
