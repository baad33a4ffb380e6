package treemap

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/observability"
	"github.com/matzehuels/cellmap/pkg/position"
	"github.com/matzehuels/cellmap/pkg/voronoi"
)

// ErrInvalidClip is returned when the root clip polygon has no area.
var ErrInvalidClip = errors.New("treemap: clip polygon has no area")

// Options configures Partition. Zero values select the solver defaults.
type Options struct {
	// Solver relaxes one level of siblings. Defaults to voronoi.Lloyd.
	Solver voronoi.Solver

	ConvergenceRatio float64
	MaxIterations    int
	MinWeightRatio   float64

	// Seed seeds every node's random source together with its key path.
	Seed uint64

	// Width and Height are the canvas size hints are scaled by. Zero
	// values use the root clip's bounding box.
	Width  float64
	Height float64

	// Hints are advisory initial positions in normalized canvas space.
	Hints []position.Hint

	// RadiusCap is passed to position.MapIntoPolygon.
	RadiusCap float64

	// Parallel partitions sibling subtrees concurrently, at most Workers
	// at a time (default GOMAXPROCS).
	Parallel bool
	Workers  int

	Logger *log.Logger
}

// NodeStats reports how the relaxation of one internal node went.
type NodeStats struct {
	Path       string  `json:"path" bson:"path"`
	Sites      int     `json:"sites" bson:"sites"`
	Iterations int     `json:"iterations" bson:"iterations"`
	AreaError  float64 `json:"area_error" bson:"area_error"`
	Converged  bool    `json:"converged" bson:"converged"`
}

// Diagnostics summarizes a Partition run. Nodes are in pre-order.
type Diagnostics struct {
	Nodes        []NodeStats `json:"nodes" bson:"nodes"`
	NonConverged int         `json:"non_converged" bson:"non_converged"`

	// Degenerate lists the paths of nodes the solver returned no polygon
	// for. They are given a polygon made of their site only.
	Degenerate []string `json:"degenerate,omitempty" bson:"degenerate,omitempty"`
}

// Partition assigns clip (or its convex hull, when clip is not convex) to
// root and recursively splits every node's polygon among its children, in
// proportion to their values.
//
// Each level is relaxed by the solver with a random source derived from
// Seed and the node's key path, so the result does not depend on Parallel.
// Non-convergence and crowded-out cells are reported in the returned
// Diagnostics, never as errors. ctx is checked between nodes.
func Partition(ctx context.Context, clip geom.Polygon, root *Node, opts Options) (Diagnostics, error) {
	if len(clip) >= 3 && !clip.IsConvex() {
		clip = clip.ConvexHull()
	}
	if len(clip) < 3 || clip.Area() < geom.Epsilon {
		return Diagnostics{}, ErrInvalidClip
	}
	p := newPartitioner(clip, root, opts)
	root.Polygon = clip.Clone()
	root.Site = clip.InteriorPoint()

	level := []*Node{root}
	for len(level) > 0 {
		if err := p.partitionLevel(ctx, level); err != nil {
			return Diagnostics{}, err
		}
		var next []*Node
		for _, n := range level {
			next = append(next, n.Children...)
		}
		level = next
	}
	return p.diagnostics(root), nil
}

type partitioner struct {
	opts   Options
	solver voronoi.Solver
	canvas geom.Rect
	hints  *position.Index
	logger *log.Logger

	mu         sync.Mutex
	stats      map[*Node]NodeStats
	degenerate map[*Node]bool
}

func newPartitioner(clip geom.Polygon, root *Node, opts Options) *partitioner {
	solver := opts.Solver
	if solver == nil {
		solver = voronoi.Lloyd{}
	}
	bounds := clip.Bounds()
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = bounds.Width(), bounds.Height()
	}
	return &partitioner{
		opts:       opts,
		solver:     solver,
		canvas:     geom.Rect{MinX: 0, MinY: 0, MaxX: w, MaxY: h},
		hints:      position.NewIndex(position.NormalizeHints(resolveHintParents(root, opts.Hints))),
		logger:     opts.Logger,
		stats:      make(map[*Node]NodeStats),
		degenerate: make(map[*Node]bool),
	}
}

// partitionLevel relaxes every internal node of one depth. Nodes of one
// level own disjoint subtrees, so they can run concurrently.
func (p *partitioner) partitionLevel(ctx context.Context, level []*Node) error {
	if !p.opts.Parallel || len(level) < 2 {
		for _, n := range level {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.partitionNode(ctx, n); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for _, n := range level {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.partitionNode(gctx, n)
		})
	}
	return g.Wait()
}

// partitionNode splits n.Polygon among n's children.
func (p *partitioner) partitionNode(ctx context.Context, n *Node) error {
	if n.IsLeaf() {
		return nil
	}
	path := n.PathString()
	sites := make([]voronoi.Site, len(n.Children))
	for i, c := range n.Children {
		sites[i] = voronoi.Site{
			Index:  i,
			Key:    c.Key,
			Parent: n.Key,
			Depth:  c.Depth,
			Value:  c.Value,
		}
	}

	hooks := observability.Solver()
	hooks.OnRelaxStart(ctx, path, len(sites))
	start := time.Now()

	h, err := p.solver.Configure(voronoi.Config{
		Sites:            sites,
		Clip:             n.Polygon,
		ConvergenceRatio: p.opts.ConvergenceRatio,
		MaxIterations:    p.opts.MaxIterations,
		MinWeightRatio:   p.opts.MinWeightRatio,
		Rand:             nodeRand(p.opts.Seed, path),
		InitialPosition:  p.initialPosition,
	})
	if errors.Is(err, voronoi.ErrInvalidClip) {
		// The node's own cell collapsed; its children collapse with it.
		p.collapse(n)
		return nil
	}
	if err != nil {
		return fmt.Errorf("partition %q: %w", path, err)
	}

	var state voronoi.State
	for !state.Ended {
		state = h.Step()
	}

	for i, cell := range state.Cells {
		c := n.Children[i]
		c.Site = cell.Point
		if len(cell.Polygon) < 3 {
			c.Polygon = geom.Polygon{cell.Point}
			p.markDegenerate(c)
			continue
		}
		c.Polygon = cell.Polygon
	}

	stats := NodeStats{
		Path:       path,
		Sites:      len(sites),
		Iterations: state.Iteration,
		AreaError:  h.AreaError(),
		Converged:  state.Converged,
	}
	p.mu.Lock()
	p.stats[n] = stats
	p.mu.Unlock()

	dur := time.Since(start)
	hooks.OnRelaxComplete(ctx, path, stats.Iterations, stats.AreaError, stats.Converged, dur)
	if p.logger != nil {
		p.logger.Debug("relaxed", "path", path, "sites", stats.Sites, "iterations", stats.Iterations,
			"error", stats.AreaError, "converged", stats.Converged, "duration", dur)
	}
	return nil
}

// collapse gives every descendant of n the degenerate polygon of n's site.
func (p *partitioner) collapse(n *Node) {
	for _, c := range n.Descendants() {
		c.Site = n.Site
		c.Polygon = geom.Polygon{n.Site}
		p.markDegenerate(c)
	}
}

func (p *partitioner) markDegenerate(n *Node) {
	p.mu.Lock()
	p.degenerate[n] = true
	p.mu.Unlock()
}

func (p *partitioner) diagnostics(root *Node) Diagnostics {
	var d Diagnostics
	root.Walk(func(n *Node) bool {
		if s, ok := p.stats[n]; ok {
			d.Nodes = append(d.Nodes, s)
			if !s.Converged {
				d.NonConverged++
			}
		}
		if p.degenerate[n] {
			d.Degenerate = append(d.Degenerate, n.PathString())
		}
		return true
	})
	return d
}

// nodeRand returns the random source for the node at path.
func nodeRand(seed uint64, path string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(path))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

// resolveHintParents fills in the parent of depth 2 and 3 hints recorded
// without one, using the first node at that depth with the hint's key.
func resolveHintParents(root *Node, hints []position.Hint) []position.Hint {
	if len(hints) == 0 {
		return nil
	}
	type depthKey struct {
		depth int
		key   string
	}
	firstParent := make(map[depthKey]string)
	root.Walk(func(n *Node) bool {
		if n.Depth >= DepthGroup {
			k := depthKey{n.Depth, n.Key}
			if _, ok := firstParent[k]; !ok {
				firstParent[k] = n.ParentKey()
			}
		}
		return true
	})

	out := make([]position.Hint, len(hints))
	copy(out, hints)
	for i, h := range out {
		if h.Depth < DepthGroup || h.Parent != "" {
			continue
		}
		if parent, ok := firstParent[depthKey{h.Depth, h.Key}]; ok {
			out[i].Parent = parent
		}
	}
	return out
}
