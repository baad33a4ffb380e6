package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/pipeline"
)

// layoutCommand creates the layout command for computing cellmap layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}
	setCLIDefaults(&opts)

	cmd := &cobra.Command{
		Use:   "layout [records]",
		Short: "Compute a cellmap layout from a records file",
		Long: `Compute a cellmap layout from a records file.

The layout command reads flat records (JSON, YAML or CSV with the columns
region, group, cluster, size), builds the hierarchy and partitions the canvas.
The output is a layout.json file holding every cell polygon, label and
outline, plus convergence diagnostics. Render it with 'visualize' or browse
it with 'inspect'.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.applyConfig(cmd, &opts); err != nil {
				return err
			}
			opts.Input = args[0]
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	addLayoutFlags(cmd, &opts)

	return cmd
}

// addLayoutFlags binds the layout stage options to cmd's flags.
func addLayoutFlags(cmd *cobra.Command, opts *pipeline.Options) {
	f := cmd.Flags()
	f.Float64Var(&opts.Width, "width", opts.Width, "canvas width")
	f.Float64Var(&opts.Height, "height", opts.Height, "canvas height")
	f.StringVar(&opts.Shape, "shape", opts.Shape, "clip shape: ellipse (default), rectangle")
	f.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	f.Float64Var(&opts.ConvergenceRatio, "convergence-ratio", opts.ConvergenceRatio, "stop relaxing once the area error is below this share of the cell")
	f.IntVar(&opts.MaxIterations, "max-iterations", opts.MaxIterations, "relaxation iteration cap per cell")
	f.Float64Var(&opts.MinWeightRatio, "min-weight-ratio", opts.MinWeightRatio, "minimum site weight relative to the heaviest sibling")
	f.Float64Var(&opts.RadiusCap, "radius-cap", opts.RadiusCap, "how far toward the border hinted sites may be placed (0-1)")
	f.BoolVar(&opts.Parallel, "parallel", opts.Parallel, "partition sibling cells concurrently")
	f.IntVar(&opts.Workers, "workers", opts.Workers, "concurrent partitions (default: number of CPUs)")
	f.StringVar(&opts.HintsFile, "hints", opts.HintsFile, "initial position hints file (JSON or YAML)")
	f.StringSliceVar(&opts.Colors, "colors", opts.Colors, "region palette (comma-separated hex colors)")
	f.StringToStringVar(&opts.ColorOverrides, "color", opts.ColorOverrides, "region color override, e.g. --color Seoul=#ff0000")
	f.BoolVar(&opts.HideRegions, "hide-regions", opts.HideRegions, "skip region labels")
	f.BoolVar(&opts.ShowPercent, "percent", opts.ShowPercent, "label groups with their share of the total")
	f.BoolVar(&opts.UnderLabel, "under-label", opts.UnderLabel, "put value labels under the group name")
	f.Float64Var(&opts.RatioLimit, "ratio-limit", opts.RatioLimit, "hide group labels of cells below this share of the total")
	f.Float64Var(&opts.SizeLimit, "size-limit", opts.SizeLimit, "hide value labels of cells below this value")
	f.Float64Var(&opts.VerticalSpacing, "vertical-spacing", opts.VerticalSpacing, "extra spacing between stacked labels")
	f.Float64Var(&opts.PebbleRound, "pebble-round", opts.PebbleRound, "corner radius of region outlines")
	f.Float64Var(&opts.PebbleWidth, "pebble-width", opts.PebbleWidth, "stroke width of region outlines")
}

// runLayout loads the records, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %s...", opts.Input))
	spinner.Start()

	recs, err := runner.Load(ctx, opts)
	if err != nil {
		spinner.StopWithError("Load failed")
		return fmt.Errorf("load records %s: %w", opts.Input, err)
	}

	prog := newProgress(c.Logger)
	spinner.SetMessage(fmt.Sprintf("Partitioning %d records...", len(recs)))

	l, cacheHit, err := runner.GenerateLayoutWithCacheInfo(ctx, recs, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Partitioned %d cells", len(l.Cells)))

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(opts.Input, filepath.Ext(opts.Input))
		outputPath = base + ".layout.json"
	}

	if err := layout.WriteFile(l, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(l.Cells), len(l.Labels), cacheHit)
	printDiagnostics(l)
	printNewline()
	printNextStep("Render", appName+" visualize "+outputPath)

	return nil
}
