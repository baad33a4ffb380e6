package pipeline

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/matzehuels/cellmap/pkg/errors"
	"github.com/matzehuels/cellmap/pkg/geom"
	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/palette"
	"github.com/matzehuels/cellmap/pkg/smooth"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout builds the hierarchy of recs and computes a complete
// layout: partitioned cells, colors, labels and outlines.
//
// Geometry problems (non-converged relaxations, degenerate corners,
// unmeasurable labels) never fail the run. They are reported in the
// layout's Diagnostics.
func GenerateLayout(ctx context.Context, recs []treemap.Record, opts Options) (layout.Layout, error) {
	opts.SetLayoutDefaults()

	root, err := treemap.Build(recs)
	if errors.Is(err, treemap.ErrEmptyDataset) {
		return layout.Layout{}, cerrors.Wrap(cerrors.ErrCodeEmptyDataset, err, "nothing to lay out")
	}
	if err != nil {
		return layout.Layout{}, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "build hierarchy")
	}

	diag, err := treemap.Partition(ctx, Clip(opts.Shape, opts.Width, opts.Height), root, treemap.Options{
		Solver:           opts.Solver,
		ConvergenceRatio: opts.ConvergenceRatio,
		MaxIterations:    opts.MaxIterations,
		MinWeightRatio:   opts.MinWeightRatio,
		Seed:             opts.Seed,
		Width:            opts.Width,
		Height:           opts.Height,
		Hints:            opts.Hints,
		RadiusCap:        opts.RadiusCap,
		Parallel:         opts.Parallel,
		Workers:          opts.Workers,
		Logger:           opts.Logger,
	})
	if errors.Is(err, treemap.ErrInvalidClip) {
		return layout.Layout{}, cerrors.Wrap(cerrors.ErrCodeInvalidClip, err, "%s clip of %gx%g", opts.Shape, opts.Width, opts.Height)
	}
	if err != nil {
		return layout.Layout{}, fmt.Errorf("partition: %w", err)
	}
	if diag.NonConverged > 0 {
		opts.Logger.Warn("relaxation did not converge", "nodes", diag.NonConverged)
	}

	palette.Assign(root, palette.Options{Colors: opts.Colors, Overrides: opts.ColorOverrides})

	labels, stats := label.Layout(root, label.Options{
		Measurer:        opts.Measurer,
		VerticalSpacing: opts.VerticalSpacing,
		RatioLimit:      opts.RatioLimit,
		SizeLimit:       opts.SizeLimit,
		ShowRegion:      opts.ShowRegions(),
		ShowPercent:     opts.ShowPercent,
		UnderLabel:      opts.UnderLabel,
	})
	if stats.Missing > 0 {
		opts.Logger.Debug("labels without measurement", "count", stats.Missing)
	}

	outlines, degenerate := buildOutlines(root, opts)

	return layout.Layout{
		Width:    opts.Width,
		Height:   opts.Height,
		Seed:     opts.Seed,
		Shape:    opts.Shape,
		Clip:     root.Polygon,
		Total:    root.Value,
		Cells:    layout.CellsFromTree(root),
		Labels:   labels,
		Outlines: outlines,
		Diagnostics: layout.Diagnostics{
			Partition:         diag,
			Labels:            stats,
			DegenerateCorners: degenerate,
		},
	}, nil
}

// Clip returns the root clip polygon of a w×h canvas. Unknown shapes fall
// back to the ellipse.
func Clip(shape string, w, h float64) geom.Polygon {
	if shape == layout.ShapeRectangle {
		return geom.Rectangle(0, 0, w, h)
	}
	return geom.Ellipse(w, h, DefaultClipPoints)
}

// =============================================================================
// Outlines
// =============================================================================

// buildOutlines smooths the borders of every region (depth 1) and group
// (depth 2). It returns the outlines, regions first, and the number of
// corners left unrounded.
func buildOutlines(root *treemap.Node, opts Options) ([]smooth.Outline, int) {
	var (
		outlines   []smooth.Outline
		degenerate int
	)
	add := func(n *treemap.Node, o smooth.Outline) {
		o.Path = n.PathString()
		degenerate += o.Degenerate
		outlines = append(outlines, o)
	}
	for _, n := range root.AtDepth(treemap.DepthRegion) {
		if len(n.Polygon) < 3 {
			continue
		}
		add(n, smooth.RegionOutline(n.Polygon, opts.PebbleRound, opts.PebbleWidth))
	}
	for _, n := range root.AtDepth(treemap.DepthGroup) {
		if len(n.Polygon) < 3 {
			continue
		}
		add(n, smooth.GroupOutline(n.Polygon, palette.Outline(n.Parent.Color)))
	}
	return outlines, degenerate
}
