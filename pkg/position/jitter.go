package position

import (
	"math"
	"strconv"

	"github.com/matzehuels/cellmap/pkg/geom"
)

const (
	// GoldenAngle is the spiral step between successive duplicates, in radians.
	GoldenAngle = 2.4

	// JitterStep scales the spiral radius: the k-th duplicate moves
	// JitterStep*sqrt(k) away from the shared coordinate.
	JitterStep = 0.02

	jitterMin = 0.05
	jitterMax = 0.95

	dedupDigits = 6
)

// Offset returns the spiral offset for the k-th repeat of a coordinate.
// The first occurrence (k = 0) is not moved.
func Offset(k int) geom.Point {
	if k <= 0 {
		return geom.Point{}
	}
	angle := math.Mod(GoldenAngle*float64(k), 2*math.Pi)
	r := JitterStep * math.Sqrt(float64(k))
	return geom.Pt(r*math.Cos(angle), r*math.Sin(angle))
}

// Jitter separates hints that share a coordinate within a sibling group.
// It is stateful: every call records the coordinate it saw.
type Jitter struct {
	seen map[string]int
}

// NewJitter returns an empty Jitter.
func NewJitter() *Jitter {
	return &Jitter{seen: make(map[string]int)}
}

// Apply returns p unchanged the first time a coordinate is seen in the
// group, and offsets later repeats along the golden-angle spiral, clamped
// to [0.05, 0.95].
func (j *Jitter) Apply(depth int, parent string, p geom.Point) geom.Point {
	key := dedupKey(depth, parent, p)
	k := j.seen[key]
	j.seen[key] = k + 1
	if k == 0 {
		return p
	}
	q := p.Add(Offset(k))
	return geom.Pt(clamp(q.X, jitterMin, jitterMax), clamp(q.Y, jitterMin, jitterMax))
}

func dedupKey(depth int, parent string, p geom.Point) string {
	return strconv.Itoa(depth) + "\x00" + parent + "\x00" +
		strconv.FormatFloat(p.X, 'f', dedupDigits, 64) + "," +
		strconv.FormatFloat(p.Y, 'f', dedupDigits, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
