// Package voronoi defines the weighted relaxation solver used to partition
// one hierarchy level, and ships a default implementation.
//
// A [Solver] is configured once per internal node with the node's children
// as weighted [Site] values and the node's polygon as clip. The returned
// [Handle] is stepped until [State.Ended]:
//
//	h, err := voronoi.Lloyd{}.Configure(cfg)
//	if err != nil {
//		return err
//	}
//	st := h.Step()
//	for !st.Ended {
//		st = h.Step()
//	}
//
// Each step moves sites toward their cell centroids and adapts their
// weights until every cell's area is close to its share of the clip area.
//
// [Lloyd] computes cells as a power diagram clipped to a convex region. A
// non-convex clip is replaced by its convex hull before relaxation.
package voronoi

import (
	"errors"
	"math/rand/v2"

	"github.com/matzehuels/cellmap/pkg/geom"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultConvergenceRatio = 0.01
	DefaultMaxIterations    = 50
	DefaultMinWeightRatio   = 0.01
)

// Sentinel errors returned by Configure.
var (
	// ErrNoSites is returned when a configuration has no sites.
	ErrNoSites = errors.New("voronoi: no sites")

	// ErrInvalidClip is returned when the clip polygon has no area.
	ErrInvalidClip = errors.New("voronoi: clip polygon has no area")
)

// Site is one weighted generator. Index is the site's position in
// Config.Sites; Key, Parent and Depth identify the hierarchy node it
// stands for.
type Site struct {
	Index  int
	Key    string
	Parent string
	Depth  int
	Value  float64
}

// InitialPositionFunc proposes a starting point for site. It is called once
// per site during Configure, in order, and may read h.Clip, h.Extent and
// h.Rand. Points outside the clip are replaced by a random interior point.
type InitialPositionFunc func(site Site, index int, all []Site, h Handle) geom.Point

// Config configures one relaxation.
type Config struct {
	Sites []Site
	Clip  geom.Polygon

	// ConvergenceRatio is the total area error, as a fraction of the clip
	// area, below which the relaxation stops.
	ConvergenceRatio float64
	MaxIterations    int

	// MinWeightRatio floors every site's value at this fraction of the
	// largest value, so zero-valued sites still get a sliver.
	MinWeightRatio float64

	Rand            *rand.Rand
	InitialPosition InitialPositionFunc
}

func (c Config) withDefaults() Config {
	if c.ConvergenceRatio <= 0 {
		c.ConvergenceRatio = DefaultConvergenceRatio
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MinWeightRatio <= 0 {
		c.MinWeightRatio = DefaultMinWeightRatio
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(0, 0))
	}
	return c
}

// Cell is the current region of one site.
type Cell struct {
	Site    Site         `json:"site"`
	Point   geom.Point   `json:"point"`
	Weight  float64      `json:"weight"`
	Target  float64      `json:"target"`
	Polygon geom.Polygon `json:"polygon"`
}

// State is a snapshot of a relaxation. Cells are in site order and a cell
// whose site was crowded out has a nil Polygon.
type State struct {
	Ended     bool
	Converged bool
	Iteration int
	Cells     []Cell
}

// Solver configures relaxations.
type Solver interface {
	Configure(cfg Config) (Handle, error)
}

// Handle is a configured relaxation.
type Handle interface {
	// Step advances one iteration unless the relaxation has ended, and
	// returns the resulting state.
	Step() State

	// Clip returns the (convex) clip polygon in use.
	Clip() geom.Polygon

	// Extent returns the bounding box of Clip.
	Extent() geom.Rect

	// Rand returns the relaxation's random source.
	Rand() *rand.Rand

	// Iteration returns the number of completed steps.
	Iteration() int

	// AreaError returns the last total area error as a fraction of the
	// clip area.
	AreaError() float64
}
