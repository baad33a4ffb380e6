package label

import "math"

// BaseFontSize is the pixel size of 1em.
const BaseFontSize = 16

// Font scales per label kind, in em.
const (
	RegionFontFactor = 1.15
	PercentFontScale = 0.8
)

// FontScale returns the font scale, in em, for a node holding value out of
// total. The share in percent is clamped to [0.2, 30] and mapped
// logarithmically from [0.1, 20] onto [0.3, 1.5].
func FontScale(value, total float64) float64 {
	return logScale(share(value, total, 0.2, 30), 0.1, 20, 0.3, 1.5)
}

// FontScaleDetail is FontScale for cluster labels: the share is clamped to
// [0.1, 5] and mapped from [0.1, 8] onto [0.5, 0.8].
func FontScaleDetail(value, total float64) float64 {
	return logScale(share(value, total, 0.1, 5), 0.1, 8, 0.5, 0.8)
}

// HeightOffset returns the vertical offset of a region or group label
// block so that multi-line labels stay centered on their anchor.
func HeightOffset(scale float64, lines int) float64 {
	return scale * 8 * float64(lines-2)
}

func share(value, total, lo, hi float64) float64 {
	if total <= 0 || math.IsNaN(value) {
		return lo
	}
	return math.Max(lo, math.Min(hi, value/total*100))
}

func logScale(v, d0, d1, r0, r1 float64) float64 {
	t := (math.Log(v) - math.Log(d0)) / (math.Log(d1) - math.Log(d0))
	return r0 + t*(r1-r0)
}
