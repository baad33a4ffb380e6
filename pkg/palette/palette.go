// Package palette colors a partitioned treemap.
//
// Regions take colors from a palette, largest region first; groups and
// clusters are lightness variations of their parent's color, darker for
// larger values. All colors are "#rrggbb" strings.
package palette

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/cellmap/pkg/treemap"
)

// RootColor is the color of the root cell.
const RootColor = "#ddd"

// DefaultColors is the region palette.
var DefaultColors = strings.Split("#afc7dd,#ffe9a9,#f69f8f,#b4c8af,#e9e4d6,#bed1d8,#f8dba1,#fcbc8b,"+
	"#d7e0c4,#c5b5a6,#b5ccc1,#e9bfb4,#e9f0f6,#fffefb,#fce0db,#e1e9df,#f1f5f7,#fef8ed,#feeada,#fbfcf9,"+
	"#e5ded7,#e5edea,#fbf5f3,#96b6d3,#ffdf85,#f3836e,#a0b99a,#ddd4be,#a7c1cb,#f5cf80,#fba868,#c7d4ac,"+
	"#b7a490,#a0bdb0,#e1a799,#d7e3ee,#fff7e1,#facbc3,#d3dfd0,#fdfcfa,#e1eaed,#fcefd5,#fddcc2,#f0f3e9,"+
	"#dbd2c8,#d6e3dd,#f6e4df,#dee8f1,#fffaeb,#fbd4cc,#d9e3d6,#e7eef1,#fcf3df,#fee1cc,#f4f7ef,#dfd7ce,"+
	"#dce7e2,#f8ebe7,#e5edf4,#fffdf5,#fcdcd6,#dfe7dc,#eef3f5,#fdf6e8,#fee7d6,#f9faf6,#e3dcd4,#e2ebe7,"+
	"#faf1ef,#d0b7ba,#b8cec4,#d2b6b6,#b6bdd6,#d9b8b7,#ded5b6,#bac2d7,#c8d5be,#e3bfb7,#f9dfb3,#eac2b8,"+
	"#c1d3da,#ddc7c1,#d9e2c7,#cfdad5,#eecdc1,#ccdddf,#c7d7e6,#ded6cf,#e7d1cb,#ced9e5,#eedbc8,#d7e3e2,"+
	"#e3ead2,#ecdcd2,#d9e0e5,#efe1d2,#ebdad7,#eed6da,#e1e6de,#dde4e8,#eee1d8,#f5e8d7,#f1e6dd,#f5e8de,"+
	"#f3e7e1,#f5eee1,#f5f2ec", ",")

// Options configures Assign.
type Options struct {
	// Colors is the region palette, cycled when there are more regions.
	// Defaults to DefaultColors.
	Colors []string

	// Overrides fixes the color of regions by key.
	Overrides map[string]string
}

// Assign sets Color on every node of root.
func Assign(root *treemap.Node, opts Options) {
	regions := RegionColors(root, opts)
	root.Color = RootColor
	root.Walk(func(n *treemap.Node) bool {
		switch n.Depth {
		case treemap.DepthRegion:
			n.Color = regions[n.Key]
		case treemap.DepthGroup:
			n.Color = ByValue(n.Parent.Color, values(n.Parent.Children), n.Value)
		case treemap.DepthCluster:
			n.Color = ByValue(n.Parent.Color, values(n.Parent.Siblings()), n.Value)
		}
		return true
	})
}

// RegionColors maps every region key to its color. Regions are ranked by
// value, largest first; ties keep tree order.
func RegionColors(root *treemap.Node, opts Options) map[string]string {
	colors := opts.Colors
	if len(colors) == 0 {
		colors = DefaultColors
	}
	regions := slices.Clone(root.Children)
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Value > regions[j].Value })

	out := make(map[string]string, len(regions))
	for i, r := range regions {
		out[r.Key] = colors[i%len(colors)]
	}
	for k, c := range opts.Overrides {
		out[k] = c
	}
	return out
}

func values(nodes []*treemap.Node) []float64 {
	out := make([]float64, len(nodes))
	for i, n := range nodes {
		out[i] = n.Value
	}
	return out
}

// ByValue varies the lightness of color by where value falls in the extent
// of domain: the smallest value is lightened by 0.02, the largest darkened
// by 0.05. The base lightness is capped at 0.8 and the result at 0.9.
func ByValue(color string, domain []float64, value float64) string {
	c, ok := parse(color)
	if !ok {
		return color
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range domain {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	t := 0.5
	if hi > lo {
		t = (value - lo) / (hi - lo)
	}
	scaled := 0.3 + t*0.7

	h, s, l := c.Hsl()
	l = math.Min(l, 0.8)
	l += (0.5 - scaled) * 0.1
	l = math.Min(l, 0.9)
	return format(h, s, l)
}

// Vary shifts color in HSL space by dh degrees of hue and ds, dl of
// saturation and lightness.
func Vary(color string, dh, ds, dl float64) string {
	c, ok := parse(color)
	if !ok {
		return color
	}
	h, s, l := c.Hsl()
	return format(h+dh, s+ds, l+dl)
}

// Tint is Vary with the lightness capped at 0.95, so the result never
// washes out to white.
func Tint(color string, dh, ds, dl float64) string {
	c, ok := parse(color)
	if !ok {
		return color
	}
	h, s, l := c.Hsl()
	return format(h+dh, s+ds, math.Min(l+dl, 0.95))
}

// Muted returns a dark, desaturated version of color for text drawn on
// top of it.
func Muted(color string) string {
	c, ok := parse(color)
	if !ok {
		return color
	}
	h, _, l := c.Hsl()
	return format(h, 0.25, math.Max(0.1, math.Min(l*0.3, 0.95)))
}

// Outline returns the stroke color of group outlines drawn over a region
// of the given color.
func Outline(regionColor string) string {
	return Tint(regionColor, 0, -0.2, -0.15)
}

func parse(color string) (colorful.Color, bool) {
	c, err := colorful.Hex(expand(color))
	return c, err == nil
}

// expand turns #rgb into #rrggbb.
func expand(color string) string {
	if len(color) != 4 || color[0] != '#' {
		return color
	}
	return string([]byte{'#', color[1], color[1], color[2], color[2], color[3], color[3]})
}

func format(h, s, l float64) string {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = math.Max(0, math.Min(1, s))
	l = math.Max(0, math.Min(1, l))
	return colorful.Hsl(h, s, l).Clamped().Hex()
}
