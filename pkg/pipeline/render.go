package pipeline

import (
	cerrors "github.com/matzehuels/cellmap/pkg/errors"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/render/hierarchy"
	"github.com/matzehuels/cellmap/pkg/render/sink"
)

// Render generates output artifacts in the requested formats.
func Render(l layout.Layout, opts Options) (map[string][]byte, error) {
	opts.SetRenderDefaults()
	if opts.IsHierarchy() {
		return renderHierarchy(l, opts)
	}
	return renderCellmap(l, opts)
}

// renderCellmap generates cellmap outputs.
func renderCellmap(l layout.Layout, opts Options) (map[string][]byte, error) {
	svgOpts := buildSVGOptions(opts)
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(l, svgOpts...)
		case FormatPNG:
			data, err = sink.RenderPNG(l, sink.WithScale(opts.Scale), sink.WithPNGMargin(opts.Margin))
		case FormatPDF:
			data, err = sink.RenderPDF(l, sink.WithPDFSVGOptions(svgOpts...))
		case FormatJSON:
			data, err = sink.RenderJSON(l, sink.WithJSONDiagnostics(), sink.WithJSONHiddenLabels(), sink.WithJSONSimplify(opts.Simplify))
		case FormatDOT:
			data = []byte(hierarchy.ToDOT(l, hierarchyOptions(opts)))
		default:
			return nil, cerrors.New(cerrors.ErrCodeUnsupported, "unsupported cellmap format: %s", format)
		}

		if err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeRenderFailed, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// renderHierarchy generates Graphviz tree outputs. The JSON artifact is the
// layout itself.
func renderHierarchy(l layout.Layout, opts Options) (map[string][]byte, error) {
	dot := hierarchy.ToDOT(l, hierarchyOptions(opts))
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = hierarchy.RenderSVG(dot)
		case FormatPNG:
			data, err = hierarchy.RenderPNG(dot, opts.Scale)
		case FormatPDF:
			data, err = hierarchy.RenderPDF(dot)
		case FormatJSON:
			data, err = layout.Marshal(l)
		case FormatDOT:
			data = []byte(dot)
		default:
			return nil, cerrors.New(cerrors.ErrCodeUnsupported, "unsupported hierarchy format: %s", format)
		}

		if err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeRenderFailed, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// buildSVGOptions builds SVG rendering options.
func buildSVGOptions(opts Options) []sink.SVGOption {
	var svgOpts []sink.SVGOption
	if opts.Margin > 0 {
		svgOpts = append(svgOpts, sink.WithMargin(opts.Margin))
	}
	if opts.Title != "" {
		svgOpts = append(svgOpts, sink.WithTitle(opts.Title))
	}
	if opts.Caption != "" {
		svgOpts = append(svgOpts, sink.WithCaption(opts.Caption))
	}
	if opts.Interactive {
		svgOpts = append(svgOpts, sink.WithInteractive())
	}
	return svgOpts
}

func hierarchyOptions(opts Options) hierarchy.Options {
	return hierarchy.Options{Detailed: opts.Detailed, MaxDepth: opts.TreeDepth}
}
