package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cellmap/pkg/pipeline"
)

// renderCommand creates the render command, a shortcut from records to
// artifacts.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.Options{}
	setCLIDefaults(&opts)

	cmd := &cobra.Command{
		Use:   "render [records]",
		Short: "Render a records file to SVG, PNG, PDF, JSON or DOT",
		Long: `Render a records file to SVG, PNG, PDF, JSON or DOT.

The render command runs the whole pipeline: it loads the records, computes
the layout and renders the requested formats in one go. It is equivalent to
'layout' followed by 'visualize'.

Use -t hierarchy to draw the record hierarchy as a Graphviz tree instead of
the cellmap.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formatsStr)
			if err := c.applyConfig(cmd, &opts); err != nil {
				return err
			}
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			opts.Input = args[0]
			return c.runRender(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, json, dot (comma-separated)")
	addLayoutFlags(cmd, &opts)
	addRenderFlags(cmd, &opts)

	return cmd
}

// addRenderFlags binds the render stage options to cmd's flags.
func addRenderFlags(cmd *cobra.Command, opts *pipeline.Options) {
	f := cmd.Flags()
	f.StringVarP(&opts.VizType, "type", "t", opts.VizType, "visualization type: cellmap (default), hierarchy")
	f.StringVar(&opts.Title, "title", opts.Title, "title drawn above the map")
	f.StringVar(&opts.Caption, "caption", opts.Caption, "caption drawn below the map")
	f.Float64Var(&opts.Margin, "margin", opts.Margin, "margin around the canvas")
	f.Float64Var(&opts.Scale, "scale", opts.Scale, "PNG scale factor")
	f.BoolVar(&opts.Interactive, "interactive", opts.Interactive, "add hover highlighting to SVG output")
	f.BoolVar(&opts.Detailed, "detailed", opts.Detailed, "show values and shares (hierarchy)")
	f.IntVar(&opts.TreeDepth, "tree-depth", opts.TreeDepth, "deepest level drawn (hierarchy)")
	f.Float64Var(&opts.Simplify, "simplify", opts.Simplify, "Douglas-Peucker tolerance for JSON polygons (0 keeps every vertex)")
}

// runRender executes the full pipeline and writes the artifacts.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.Input))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   opts.Formats,
		input:     opts.Input,
		output:    output,
		cacheHit:  result.CacheInfo.RenderHit,
	}); err != nil {
		return err
	}
	printStats(result.Stats.CellCount, result.Stats.LabelCount, result.CacheInfo.LayoutHit)
	printDiagnostics(result.Layout)
	return nil
}

// =============================================================================
// Artifact Output
// =============================================================================

// artifactWriteParams describes a set of rendered artifacts to write.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string
	output    string
	cacheHit  bool
}

// writeArtifacts writes one file per format. A single format goes to output
// as given; several formats share output as base path.
func writeArtifacts(p artifactWriteParams) error {
	paths := artifactPaths(p.formats, p.input, p.output)

	status := "Rendered"
	if p.cacheHit {
		status = "Rendered (cached)"
	}

	var written []string
	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			continue
		}
		path := paths[format]
		if err := writeOutput(path, data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	printSuccess("%s %d file(s)", status, len(written))
	for _, path := range written {
		printFile(path)
	}
	return nil
}

// artifactPaths maps each format to its output path.
func artifactPaths(formats []string, input, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, format := range formats {
		paths[format] = base + "." + format
	}
	return paths
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input (and a trailing
// ".layout" left by the layout command).
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		return strings.TrimSuffix(base, ".layout")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is "-", it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
