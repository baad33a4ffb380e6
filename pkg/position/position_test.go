package position

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/matzehuels/cellmap/pkg/geom"
)

func unitSquare() geom.Polygon {
	return geom.Polygon{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}}
}

func TestMapIntoPolygon(t *testing.T) {
	sq := unitSquare()
	tests := []struct {
		name   string
		nx, ny float64
		want   geom.Point
	}{
		{"center", 0, 0, geom.Pt(0.5, 0.5)},
		{"far corner", 10, 10, geom.Pt(0.95, 0.95)},
		{"far left", -50, 0, geom.Pt(0.05, 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapIntoPolygon(tt.nx, tt.ny, sq, 0)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("MapIntoPolygon(%v, %v) = %v, want %v", tt.nx, tt.ny, got, tt.want)
			}
		})
	}
}

func TestMapIntoPolygonMembership(t *testing.T) {
	clips := map[string]geom.Polygon{
		"square":   unitSquare(),
		"triangle": {{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 8}},
		"ellipse":  geom.Ellipse(500, 300, 100).ConvexHull(),
		"concave":  {{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 5, Y: 2}, {X: 0, Y: 10}},
	}
	rng := rand.New(rand.NewPCG(7, 11))
	for name, clip := range clips {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				nx, ny := rng.Float64()*4-2, rng.Float64()*4-2
				p := MapIntoPolygon(nx, ny, clip, DefaultRadiusCap)
				if !clip.Contains(p) {
					t.Fatalf("MapIntoPolygon(%v, %v) = %v outside clip", nx, ny, p)
				}
			}
		})
	}
}

func TestMapIntoPolygonRadiusCap(t *testing.T) {
	sq := unitSquare()
	narrow := MapIntoPolygon(10, 0, sq, 0.5)
	wide := MapIntoPolygon(10, 0, sq, 0.9)
	if narrow.X >= wide.X {
		t.Errorf("smaller cap should stay closer to the center: %v vs %v", narrow, wide)
	}
}

func TestMapIntoPolygonDegenerate(t *testing.T) {
	if got := MapIntoPolygon(0.3, 0.3, nil, 0); got != (geom.Point{}) {
		t.Errorf("empty clip = %v, want origin", got)
	}
	seg := geom.Polygon{{X: 0, Y: 0}, {X: 2, Y: 2}}
	if got := MapIntoPolygon(0.3, 0.3, seg, 0); got != geom.Pt(1, 1) {
		t.Errorf("segment clip = %v, want (1, 1)", got)
	}
}

func TestOffset(t *testing.T) {
	if Offset(0) != (geom.Point{}) {
		t.Error("first occurrence should not move")
	}
	for k := 1; k < 10; k++ {
		o := Offset(k)
		want := JitterStep * math.Sqrt(float64(k))
		if math.Abs(o.Len()-want) > 1e-12 {
			t.Errorf("Offset(%d) radius = %v, want %v", k, o.Len(), want)
		}
		if o != Offset(k) {
			t.Errorf("Offset(%d) not deterministic", k)
		}
	}
}

func TestJitter(t *testing.T) {
	j := NewJitter()
	p := geom.Pt(0.5, 0.5)

	first := j.Apply(2, "A", p)
	second := j.Apply(2, "A", p)
	other := j.Apply(2, "B", p)

	if first != p {
		t.Errorf("first = %v, want unchanged", first)
	}
	if d := first.Dist(second); d < JitterStep-1e-12 {
		t.Errorf("duplicates diverge by %v, want >= %v", d, JitterStep)
	}
	if other != p {
		t.Errorf("different sibling group should not be jittered, got %v", other)
	}

	edge := NewJitter()
	edge.Apply(1, "", geom.Pt(0.96, 0.96))
	q := edge.Apply(1, "", geom.Pt(0.96, 0.96))
	if q.X > 0.95 || q.Y > 0.95 || q.X < 0.05 || q.Y < 0.05 {
		t.Errorf("jittered point %v not clamped to [0.05, 0.95]", q)
	}
}

func TestNormalizeHints(t *testing.T) {
	hints := []Hint{
		{Depth: 1, Key: "north", X: 0.2, Y: 0.1},
		{Depth: 1, Key: "south", X: 0.6, Y: 0.9},
		{Depth: 2, Key: "A", Parent: "north", X: 0.5, Y: 0.5},
		{Depth: 2, Key: "A", Parent: "north", X: 0.5, Y: 0.5},
		{Depth: 2, Key: "B", Parent: "south", X: 3, Y: 4},
		{Depth: 2, Key: "C", Parent: "south", X: 5, Y: 8},
	}
	got := NormalizeHints(hints)

	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-12 }
	if !near(got[0].X, outerMin) || !near(got[0].Y, outerMin) || !near(got[1].X, outerMax) || !near(got[1].Y, outerMax) {
		t.Errorf("depth-1 hints = %+v %+v, want band [%v, %v]", got[0], got[1], outerMin, outerMax)
	}
	if got[2].X != 0.5 || got[2].Y != 0.5 {
		t.Errorf("degenerate group should map to 0.5, got %+v", got[2])
	}
	if d := got[2].Point().Dist(got[3].Point()); d < JitterStep-1e-12 {
		t.Errorf("duplicate hints diverge by %v, want >= %v", d, JitterStep)
	}
	if !near(got[4].X, outerMin) || !near(got[4].Y, outerMin) || !near(got[5].X, outerMax) || !near(got[5].Y, outerMax) {
		t.Errorf("sibling group rescale = %+v %+v", got[4], got[5])
	}
	if hints[4].X != 3 {
		t.Error("NormalizeHints modified its input")
	}

	again := NormalizeHints(hints)
	for i := range got {
		if got[i] != again[i] {
			t.Errorf("hint %d not deterministic: %+v vs %+v", i, got[i], again[i])
		}
	}
}

func TestIndex(t *testing.T) {
	ix := NewIndex([]Hint{
		{Depth: 2, Key: "A", Parent: "north", X: 0.1, Y: 0.2},
		{Depth: 2, Key: "B", Parent: "north", X: 0.7, Y: 0.9},
		{Depth: 3, Key: "x", X: 0.4, Y: 0.4},
	})

	h, ok := ix.Lookup(2, "north", "A")
	if !ok || h.X != 0.1 {
		t.Errorf("Lookup(2, north, A) = %+v, %v", h, ok)
	}
	if _, ok := ix.Lookup(2, "south", "A"); ok {
		t.Error("Lookup should not match a different parent")
	}
	if _, ok := ix.Lookup(3, "anything", "x"); !ok {
		t.Error("parentless hint should match any parent")
	}

	ext, ok := ix.SiblingExtent(2, "north", []string{"A", "B", "C"})
	if !ok || ext.MinX != 0.1 || ext.MaxX != 0.7 || ext.MinY != 0.2 || ext.MaxY != 0.9 {
		t.Errorf("SiblingExtent = %+v, %v", ext, ok)
	}
	if _, ok := ix.SiblingExtent(2, "north", []string{"C"}); ok {
		t.Error("SiblingExtent without hints should report !ok")
	}

	var nilIndex *Index
	if _, ok := nilIndex.Lookup(1, "", "a"); ok || nilIndex.Len() != 0 {
		t.Error("nil index should be empty")
	}
}

func TestSample(t *testing.T) {
	tri := geom.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 8}}
	a := rand.New(rand.NewPCG(1, 2))
	b := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		p := Sample(a, tri)
		if !tri.Contains(p) {
			t.Fatalf("Sample() = %v outside triangle", p)
		}
		if q := Sample(b, tri); p != q {
			t.Fatalf("Sample not deterministic: %v vs %v", p, q)
		}
	}

	flat := geom.Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	if p := Sample(a, flat); !p.Finite() {
		t.Errorf("Sample on zero-area clip = %v, want finite", p)
	}
}
