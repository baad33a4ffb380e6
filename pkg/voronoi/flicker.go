package voronoi

import "math"

const flickerHistory = 10

// flicker tracks how often the total area error changed direction recently.
// Frequent reversals mean sites oscillate; the ratio damps the next updates.
type flicker struct {
	errors  []float64
	trends  []float64
	changes []bool
	weights []float64
	sum     float64
}

func newFlicker() *flicker {
	f := &flicker{weights: make([]float64, flickerHistory)}
	// 3, 2, then 1 for the rest: recent reversals count more.
	for i := range f.weights {
		f.weights[i] = math.Max(3-float64(i), 1)
		f.sum += f.weights[i]
	}
	return f
}

func (f *flicker) add(areaError float64) {
	f.errors = prepend(f.errors, areaError)
	if len(f.errors) > 1 {
		f.trends = prepend(f.trends, sign(f.errors[0]-f.errors[1]))
	}
	if len(f.trends) > 1 {
		f.changes = prependBool(f.changes, f.trends[0] != f.trends[1])
	}
	if len(f.errors) > flickerHistory+2 {
		f.errors = f.errors[:len(f.errors)-1]
		f.trends = f.trends[:len(f.trends)-1]
		f.changes = f.changes[:len(f.changes)-1]
	}
}

// ratio returns the weighted share of recent direction changes in [0, 1].
func (f *flicker) ratio() float64 {
	var w float64
	for i, changed := range f.changes {
		if changed && i < len(f.weights) {
			w += f.weights[i]
		}
	}
	return w / f.sum
}

func prepend(s []float64, v float64) []float64 {
	return append([]float64{v}, s...)
}

func prependBool(s []bool, v bool) []bool {
	return append([]bool{v}, s...)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
