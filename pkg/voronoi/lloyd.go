package voronoi

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/position"
)

const (
	epsilon = 1e-10

	// Share of the flicker ratio that damps position and weight updates.
	positionFlickerInfluence = 0.5
	weightFlickerInfluence   = 0.1

	maxOverweightFixes = 1000
)

// Lloyd is the default Solver: weighted Lloyd relaxation over a power
// diagram.
type Lloyd struct{}

var _ Solver = Lloyd{}

// Configure validates cfg, computes initial positions and returns a handle
// positioned before the first step.
func (Lloyd) Configure(cfg Config) (Handle, error) {
	if len(cfg.Sites) == 0 {
		return nil, ErrNoSites
	}
	cfg = cfg.withDefaults()

	clip := cfg.Clip.Clone()
	if !clip.IsConvex() {
		clip = clip.ConvexHull()
	}
	area := clip.Area()
	if len(clip) < 3 || area < geom.Epsilon {
		return nil, ErrInvalidClip
	}

	s := &simulation{
		cfg:       cfg,
		clip:      clip,
		extent:    clip.Bounds(),
		totalArea: area,
		threshold: cfg.ConvergenceRatio * area,
		flicker:   newFlicker(),
	}
	s.init()
	return s, nil
}

type mapPoint struct {
	pos    geom.Point
	weight float64
	target float64
}

type simulation struct {
	cfg       Config
	clip      geom.Polygon
	extent    geom.Rect
	totalArea float64
	threshold float64

	points    []mapPoint
	cells     []geom.Polygon
	iteration int
	areaError float64
	converged bool
	ended     bool
	flicker   *flicker
}

func (s *simulation) Clip() geom.Polygon { return s.clip }
func (s *simulation) Extent() geom.Rect  { return s.extent }
func (s *simulation) Rand() *rand.Rand   { return s.cfg.Rand }
func (s *simulation) Iteration() int     { return s.iteration }

func (s *simulation) AreaError() float64 {
	return s.areaError / s.totalArea
}

func (s *simulation) init() {
	sites := s.cfg.Sites
	n := len(sites)

	maxValue := math.Inf(-1)
	for _, site := range sites {
		maxValue = math.Max(maxValue, site.Value)
	}
	floor := maxValue * s.cfg.MinWeightRatio

	values := make([]float64, n)
	var total float64
	for i, site := range sites {
		values[i] = math.Max(site.Value, floor)
		total += values[i]
	}
	if !(total > 0) {
		for i := range values {
			values[i] = 1
		}
		total = float64(n)
	}

	initialWeight := s.totalArea / float64(n) / 2
	s.points = make([]mapPoint, n)
	for i, site := range sites {
		p := s.initialPosition(site, i)
		s.points[i] = mapPoint{
			pos:    p,
			weight: initialWeight,
			target: s.totalArea * values[i] / total,
		}
	}
	s.separate()
	s.handleOverweighted()
	s.cells = powerCells(s.clip, s.points)
	s.areaError = s.computeAreaError()
}

func (s *simulation) initialPosition(site Site, i int) geom.Point {
	if s.cfg.InitialPosition != nil {
		p := s.cfg.InitialPosition(site, i, s.cfg.Sites, s)
		if p.Finite() && s.clip.Contains(p) {
			return p
		}
	}
	return position.Sample(s.cfg.Rand, s.clip)
}

// separate moves sites that share a position apart. Coincident sites have
// no bisector and would claim the same cell.
func (s *simulation) separate() {
	nudge := 1e-6 * math.Hypot(s.extent.Width(), s.extent.Height())
	for i := range s.points {
		for j := 0; j < i; j++ {
			if s.points[i].pos.Dist2(s.points[j].pos) > nudge*nudge {
				continue
			}
			angle := s.cfg.Rand.Float64() * 2 * math.Pi
			p := s.points[i].pos.Add(geom.Pt(math.Cos(angle), math.Sin(angle)).Scale(nudge * 10))
			if !s.clip.Contains(p) {
				p = position.Sample(s.cfg.Rand, s.clip)
			}
			s.points[i].pos = p
		}
	}
}

// Step runs one relaxation iteration.
func (s *simulation) Step() State {
	if !s.ended {
		ratio := s.flicker.ratio()
		s.adaptPositions(ratio)
		s.cells = powerCells(s.clip, s.points)
		s.adaptWeights(ratio)
		s.cells = powerCells(s.clip, s.points)

		s.iteration++
		s.areaError = s.computeAreaError()
		s.flicker.add(s.areaError)
		s.converged = s.areaError < s.threshold
		s.ended = s.converged || s.iteration >= s.cfg.MaxIterations
	}
	return s.state()
}

func (s *simulation) state() State {
	cells := make([]Cell, len(s.points))
	for i, p := range s.points {
		cells[i] = Cell{
			Site:    s.cfg.Sites[i],
			Point:   p.pos,
			Weight:  p.weight,
			Target:  p.target,
			Polygon: s.cells[i].Clone(),
		}
	}
	return State{
		Ended:     s.ended,
		Converged: s.converged,
		Iteration: s.iteration,
		Cells:     cells,
	}
}

func (s *simulation) adaptPositions(flickerRatio float64) {
	damp := 1 - positionFlickerInfluence*flickerRatio
	for i := range s.points {
		if s.cells[i] == nil {
			continue
		}
		c := s.cells[i].Centroid()
		s.points[i].pos = s.points[i].pos.Add(c.Sub(s.points[i].pos).Scale(damp))
	}
	s.handleOverweighted()
}

func (s *simulation) adaptWeights(flickerRatio float64) {
	damp := weightFlickerInfluence * flickerRatio
	lo := 1 - weightFlickerInfluence + damp
	hi := 1 + weightFlickerInfluence - damp
	for i := range s.points {
		ratio := hi
		if area := s.cells[i].Area(); area > 0 {
			ratio = math.Max(lo, math.Min(hi, s.points[i].target/area))
		}
		s.points[i].weight = math.Max(s.points[i].weight*ratio, epsilon)
	}
	s.handleOverweighted()
}

// handleOverweighted lowers the heavier weight of any pair whose weight
// difference exceeds their squared distance; such a site would swallow the
// lighter one entirely.
func (s *simulation) handleOverweighted() {
	for fixes := 0; fixes <= maxOverweightFixes; fixes++ {
		if !s.fixOverweight() {
			return
		}
	}
}

func (s *simulation) fixOverweight() bool {
	for i := range s.points {
		for j := i + 1; j < len(s.points); j++ {
			heavy, light := &s.points[i], &s.points[j]
			if light.weight > heavy.weight {
				heavy, light = light, heavy
			}
			d2 := heavy.pos.Dist2(light.pos)
			if d2 < heavy.weight-light.weight {
				heavy.weight = math.Max(d2+light.weight/2, epsilon)
				return true
			}
		}
	}
	return false
}

func (s *simulation) computeAreaError() float64 {
	var sum float64
	for i, p := range s.points {
		sum += math.Abs(p.target - s.cells[i].Area())
	}
	return sum
}

// powerCells clips the convex clip polygon with the power bisector of every
// other site. Site i owns the points x with
// |x-si|² - wi <= |x-sj|² - wj, that is
// 2x·(sj-si) <= |sj|² - |si|² - wj + wi.
func powerCells(clip geom.Polygon, pts []mapPoint) []geom.Polygon {
	cells := make([]geom.Polygon, len(pts))
	for i, pi := range pts {
		cell := clip
		for j, pj := range pts {
			if i == j {
				continue
			}
			a := 2 * (pj.pos.X - pi.pos.X)
			b := 2 * (pj.pos.Y - pi.pos.Y)
			c := pj.pos.Dot(pj.pos) - pi.pos.Dot(pi.pos) - pj.weight + pi.weight
			if cell = cell.ClipHalfPlane(a, b, c); cell == nil {
				break
			}
		}
		if len(pts) == 1 {
			cell = clip.Clone()
		}
		cells[i] = cell
	}
	return cells
}
