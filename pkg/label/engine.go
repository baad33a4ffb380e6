package label

import (
	"math"
	"strings"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// Kind identifies what a label shows.
type Kind string

const (
	KindRegion  Kind = "region"
	KindGroup   Kind = "group"
	KindCluster Kind = "cluster"
	KindValue   Kind = "value"
	KindPercent Kind = "percent"
)

// DefaultSizeLimit is the value above which cluster values are shown.
const DefaultSizeLimit = 1000

// Label is one placed text element. Anchor is the center of Box.
type Label struct {
	Kind     Kind       `json:"kind" bson:"kind"`
	Key      string     `json:"key" bson:"key"`
	Path     string     `json:"path" bson:"path"`
	Parent   string     `json:"parent,omitempty" bson:"parent,omitempty"`
	Depth    int        `json:"depth" bson:"depth"`
	Lines    []string   `json:"lines" bson:"lines"`
	FontSize float64    `json:"font_size" bson:"font_size"`
	Anchor   geom.Point `json:"anchor" bson:"anchor"`
	Box      Box        `json:"box" bson:"box"`
	Visible  bool       `json:"visible" bson:"visible"`
	Moved    bool       `json:"moved,omitempty" bson:"moved,omitempty"`

	// Cell bounds the node's polygon; resolved labels stay inside it.
	Cell geom.Rect `json:"-" bson:"-"`
}

// Options configures Layout.
type Options struct {
	// Measurer sizes label boxes. Defaults to EstimateMeasurer.
	Measurer Measurer

	// VerticalSpacing is the extra gap kept between resolved labels.
	VerticalSpacing float64

	// RatioLimit hides group and cluster labels whose share of the total
	// is below it.
	RatioLimit float64

	// SizeLimit hides cluster values not above it.
	SizeLimit float64

	ShowRegion  bool
	ShowPercent bool

	// UnderLabel places cluster labels below their group label instead of
	// at their own site.
	UnderLabel bool
}

// Stats summarizes a Layout run.
type Stats struct {
	Labels  int `json:"labels" bson:"labels"`
	Moved   int `json:"moved" bson:"moved"`
	Missing int `json:"missing" bson:"missing"`
}

// Layout builds and places the labels of a partitioned tree. Labels come
// out grouped by kind in the order regions, groups, clusters, percents,
// values, each in tree order.
func Layout(root *treemap.Node, opts Options) ([]Label, Stats) {
	if opts.Measurer == nil {
		opts.Measurer = EstimateMeasurer{}
	}
	b := builder{total: root.Value, opts: opts}

	var labels []Label
	for _, n := range root.AtDepth(treemap.DepthRegion) {
		labels = append(labels, b.heading(n, KindRegion))
	}
	for _, n := range root.AtDepth(treemap.DepthGroup) {
		labels = append(labels, b.heading(n, KindGroup))
	}
	clusters := root.AtDepth(treemap.DepthCluster)
	for _, n := range clusters {
		labels = append(labels, b.cluster(n))
	}
	percentDepth := treemap.DepthRegion
	if len(root.Children) <= 1 {
		percentDepth = treemap.DepthGroup
	}
	for _, n := range root.AtDepth(percentDepth) {
		labels = append(labels, b.percent(n))
	}
	for _, n := range clusters {
		labels = append(labels, b.value(n))
	}

	stats := Stats{Labels: len(labels)}
	for i := range labels {
		if !labels[i].Box.Measured() {
			stats.Missing++
		}
	}
	if opts.ShowRegion {
		stats.Moved = Engine{VerticalSpacing: opts.VerticalSpacing}.Resolve(labels)
	}
	return labels, stats
}

type builder struct {
	total float64
	opts  Options
}

func (b builder) share(n *treemap.Node) float64 {
	if b.total <= 0 {
		return 0
	}
	return n.Value / b.total
}

func (b builder) base(n *treemap.Node, kind Kind, lines []string, size float64) Label {
	return Label{
		Kind:     kind,
		Key:      n.Key,
		Path:     n.PathString(),
		Parent:   n.Parent.PathString(),
		Depth:    n.Depth,
		Lines:    lines,
		FontSize: size,
		Cell:     n.Polygon.Bounds(),
	}
}

// place measures l and centers its box on anchor.
func (b builder) place(l Label, anchor geom.Point) Label {
	l.Anchor = anchor
	w, h, ok := b.opts.Measurer.Measure(l.Lines, l.FontSize)
	if !ok {
		w, h = 0, 0
	}
	l.Box = CenteredBox(anchor, w, h, len(l.Lines))
	return l
}

// heading labels a region or group at its site, shifted so multi-line
// blocks stay centered.
func (b builder) heading(n *treemap.Node, kind Kind) Label {
	scale := FontScale(n.Value, b.total)
	size := scale * BaseFontSize
	visible := b.share(n) >= b.opts.RatioLimit
	if kind == KindRegion {
		size *= RegionFontFactor
		visible = b.opts.ShowRegion
	}
	lines := Wrap(n.Key)
	l := b.base(n, kind, lines, size)
	l.Visible = visible
	return b.place(l, n.Site.Add(geom.Pt(0, HeightOffset(scale, len(lines)))))
}

func (b builder) cluster(n *treemap.Node) Label {
	scale := FontScaleDetail(n.Value, b.total)
	lines := Wrap(n.Key)
	l := b.base(n, KindCluster, lines, scale*BaseFontSize)
	l.Visible = b.share(n) > b.opts.RatioLimit

	var anchor geom.Point
	if b.opts.UnderLabel {
		g := n.Parent
		off := FontScale(g.Value, b.total) * 8 * (float64(len(Wrap(g.Key))) + 0.5)
		anchor = n.Site.Add(geom.Pt(0, off))
	} else {
		boxW := scale * 6 * MaxWidth(lines)
		boxH := scale * 6 * float64(len(lines))
		anchor = Anchor(n, boxW, boxH)
	}
	return b.place(l, anchor)
}

func (b builder) percent(n *treemap.Node) Label {
	scale := FontScale(n.Value, b.total)
	share := b.share(n)
	l := b.base(n, KindPercent, []string{FormatPercent(share, 0)}, scale*PercentFontScale*BaseFontSize)
	l.Visible = b.opts.ShowPercent && math.Round(share*100) > 0
	off := scale * 8 * (float64(len(Wrap(n.Key))) + 2.2)
	return b.place(l, n.Site.Add(geom.Pt(0, off)))
}

func (b builder) value(n *treemap.Node) Label {
	scale := FontScaleDetail(n.Value, b.total)
	l := b.base(n, KindValue, []string{FormatValue(n.Value)}, scale*PercentFontScale*BaseFontSize)
	l.Visible = n.Value > b.opts.SizeLimit

	var off float64
	if rows := len(Wrap(n.Key)); rows > 0 {
		off = scale*6*float64(rows)/2 + 20
	} else {
		g := n.Parent
		off = FontScale(g.Value, b.total)*30*float64(len(Wrap(g.Key)))/2 + 8
	}
	return b.place(l, n.Site.Add(geom.Pt(0, off)))
}

// Engine resolves overlaps between nested labels.
type Engine struct {
	VerticalSpacing float64
}

// Resolve runs two passes over labels: group labels are moved off their
// region label, then cluster labels off their group label. Region labels
// whose key is blank never push. Labels are updated in place; the number
// of moved labels is returned.
func (e Engine) Resolve(labels []Label) int {
	byPath := func(kind Kind) map[string]int {
		m := make(map[string]int)
		for i, l := range labels {
			if l.Kind == kind {
				m[l.Path] = i
			}
		}
		return m
	}

	moved := 0
	regions := byPath(KindRegion)
	for i := range labels {
		l := &labels[i]
		if l.Kind != KindGroup {
			continue
		}
		j, ok := regions[l.Parent]
		if !ok || strings.Trim(labels[j].Key, " ") == "" {
			continue
		}
		if e.move(l, labels[j].Box) {
			moved++
		}
	}

	groups := byPath(KindGroup)
	for i := range labels {
		l := &labels[i]
		if l.Kind != KindCluster {
			continue
		}
		j, ok := groups[l.Parent]
		if !ok {
			continue
		}
		if e.move(l, labels[j].Box) {
			moved++
		}
	}
	return moved
}

func (e Engine) move(l *Label, parent Box) bool {
	x, y := ResolveSpacing(l.Box, parent, l.Cell, e.VerticalSpacing)
	if x == l.Box.X && y == l.Box.Y {
		return false
	}
	l.Box.X, l.Box.Y = x, y
	l.Anchor = l.Box.Center()
	l.Moved = true
	return true
}
