// Package pipeline provides the core layout pipeline for cellmap.
//
// This package implements the complete load → layout → render pipeline that
// is shared by the CLI and the HTTP server. By centralizing this logic, both
// entry points apply the same defaults, validation and caching.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read flat records from a JSON, YAML or CSV file (or take them inline)
//  2. Layout: Build the hierarchy, partition the clip shape, color, label and outline it
//  3. Render: Generate output in various formats (SVG, PNG, PDF, JSON, DOT)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "budget.csv",
//	    Formats: []string{"svg", "png"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	// Load only
//	recs, err := runner.Load(ctx, opts)
//
//	// Layout with existing records
//	l, err := runner.GenerateLayout(ctx, recs, opts)
//
//	// Render with existing layout
//	artifacts, err := runner.Render(ctx, l, opts)
package pipeline

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cellmap/pkg/cache"
	cerrors "github.com/matzehuels/cellmap/pkg/errors"
	"github.com/matzehuels/cellmap/pkg/label"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/position"
	"github.com/matzehuels/cellmap/pkg/smooth"
	"github.com/matzehuels/cellmap/pkg/treemap"
	"github.com/matzehuels/cellmap/pkg/voronoi"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultWidth is the default canvas width.
	DefaultWidth = 500.0

	// DefaultHeight is the default canvas height.
	DefaultHeight = 300.0

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(10)

	// DefaultShape is the default clip shape.
	DefaultShape = layout.ShapeEllipse

	// DefaultClipPoints is the number of vertices sampled for the ellipse clip.
	DefaultClipPoints = 100

	// DefaultSizeLimit hides cluster values not above it.
	DefaultSizeLimit = label.DefaultSizeLimit

	// DefaultScale is the default PNG scale factor.
	DefaultScale = 2.0

	// DefaultTreeDepth limits the hierarchy diagram to groups.
	DefaultTreeDepth = treemap.DepthGroup
)

// Visualization types.
const (
	// VizTypeCellmap draws the partitioned cells.
	VizTypeCellmap = "cellmap"

	// VizTypeHierarchy draws the hierarchy as a Graphviz tree.
	VizTypeHierarchy = "hierarchy"
)

// DefaultVizType is the default visualization type.
const DefaultVizType = VizTypeCellmap

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
	FormatDOT:  true,
}

// ValidShapes is the set of supported clip shapes.
var ValidShapes = map[string]bool{
	layout.ShapeEllipse:   true,
	layout.ShapeRectangle: true,
}

// ValidVizTypes is the set of supported visualization types.
var ValidVizTypes = map[string]bool{
	VizTypeCellmap:   true,
	VizTypeHierarchy: true,
}

// defaultMeasurer measures labels with the embedded Go font.
var defaultMeasurer = sync.OnceValues(func() (*label.FontMeasurer, error) {
	return label.NewFontMeasurer(nil)
})

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the layout pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Input     string           `json:"input,omitempty"`   // Records file (json, yaml, csv)
	Records   []treemap.Record `json:"records,omitempty"` // Inline records, used instead of Input
	HintsFile string           `json:"hints_file,omitempty"`
	Hints     []position.Hint  `json:"hints,omitempty"`
	Refresh   bool             `json:"refresh,omitempty"`

	// Layout options
	Width            float64           `json:"width,omitempty"`
	Height           float64           `json:"height,omitempty"`
	Shape            string            `json:"shape,omitempty"`
	Seed             uint64            `json:"seed,omitempty"`
	ConvergenceRatio float64           `json:"convergence_ratio,omitempty"`
	MaxIterations    int               `json:"max_iterations,omitempty"`
	MinWeightRatio   float64           `json:"min_weight_ratio,omitempty"`
	RadiusCap        float64           `json:"radius_cap,omitempty"`
	Parallel         bool              `json:"parallel,omitempty"`
	Workers          int               `json:"workers,omitempty"`
	Colors           []string          `json:"colors,omitempty"`
	ColorOverrides   map[string]string `json:"color_overrides,omitempty"`
	HideRegions      bool              `json:"hide_regions,omitempty"` // Skip region labels and collision resolution
	ShowPercent      bool              `json:"show_percent,omitempty"`
	UnderLabel       bool              `json:"under_label,omitempty"`
	RatioLimit       float64           `json:"ratio_limit,omitempty"`
	SizeLimit        float64           `json:"size_limit,omitempty"`
	VerticalSpacing  float64           `json:"vertical_spacing,omitempty"`
	PebbleRound      float64           `json:"pebble_round,omitempty"`
	PebbleWidth      float64           `json:"pebble_width,omitempty"`

	// Render options
	VizType     string   `json:"viz_type,omitempty"`
	Formats     []string `json:"formats,omitempty"`
	Title       string   `json:"title,omitempty"`
	Caption     string   `json:"caption,omitempty"`
	Margin      float64  `json:"margin,omitempty"`
	Scale       float64  `json:"scale,omitempty"`
	Interactive bool     `json:"interactive,omitempty"`
	Detailed    bool     `json:"detailed,omitempty"`   // Values and shares in hierarchy nodes
	TreeDepth   int      `json:"tree_depth,omitempty"` // Deepest level drawn in the hierarchy
	Simplify    float64  `json:"simplify,omitempty"`   // Douglas-Peucker tolerance for JSON polygons

	// Runtime options (not serialized)
	Logger   *log.Logger    `json:"-"`
	Measurer label.Measurer `json:"-"`
	Solver   voronoi.Solver `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Records are the loaded input records.
	Records []treemap.Record

	// DatasetHash is the content hash of the records.
	DatasetHash string

	// Layout is the partitioned, labeled cellmap.
	Layout layout.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RecordCount  int
	CellCount    int
	LabelCount   int
	NonConverged int
	LoadTime     time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LoadHit   bool // Whether the records came from cache
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return cerrors.New(cerrors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, png, pdf, json, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateShape checks that a clip shape is valid.
func ValidateShape(shape string) error {
	if !ValidShapes[shape] {
		return cerrors.New(cerrors.ErrCodeInvalidClip,
			"invalid shape: %q (must be one of: ellipse, rectangle)", shape)
	}
	return nil
}

// ValidateVizType checks that a visualization type is valid.
func ValidateVizType(vizType string) error {
	if !ValidVizTypes[vizType] {
		return cerrors.New(cerrors.ErrCodeInvalidOptions,
			"invalid viz_type: %q (must be one of: cellmap, hierarchy)", vizType)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" && len(o.Records) == 0 {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "input file or records are required")
	}
	if o.Input != "" {
		if err := cerrors.ValidatePath(o.Input); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Shape == "" {
		o.Shape = DefaultShape
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.ConvergenceRatio == 0 {
		o.ConvergenceRatio = voronoi.DefaultConvergenceRatio
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = voronoi.DefaultMaxIterations
	}
	if o.MinWeightRatio == 0 {
		o.MinWeightRatio = voronoi.DefaultMinWeightRatio
	}
	if o.RadiusCap == 0 {
		o.RadiusCap = position.DefaultRadiusCap
	}
	if o.SizeLimit == 0 {
		o.SizeLimit = DefaultSizeLimit
	}
	if o.PebbleRound == 0 {
		o.PebbleRound = smooth.DefaultPebbleRound
	}
	if o.PebbleWidth == 0 {
		o.PebbleWidth = smooth.DefaultPebbleWidth
	}
	if o.Measurer == nil {
		if m, err := defaultMeasurer(); err == nil {
			o.Measurer = m
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateShape(o.Shape); err != nil {
		return err
	}
	if err := cerrors.ValidatePositive("width", o.Width); err != nil {
		return err
	}
	if err := cerrors.ValidatePositive("height", o.Height); err != nil {
		return err
	}
	if err := cerrors.ValidateRange("convergence_ratio", o.ConvergenceRatio, 0, 1); err != nil {
		return err
	}
	if err := cerrors.ValidateRange("min_weight_ratio", o.MinWeightRatio, 0, 1); err != nil {
		return err
	}
	if err := cerrors.ValidateRange("radius_cap", o.RadiusCap, 0, 1); err != nil {
		return err
	}
	if err := cerrors.ValidateRange("ratio_limit", o.RatioLimit, 0, 1); err != nil {
		return err
	}
	if o.MaxIterations < 0 {
		return cerrors.New(cerrors.ErrCodeInvalidOptions, "max_iterations must not be negative")
	}
	for _, c := range o.Colors {
		if err := cerrors.ValidateColor(c); err != nil {
			return err
		}
	}
	for k, c := range o.ColorOverrides {
		if err := cerrors.ValidateKey(k); err != nil {
			return err
		}
		if err := cerrors.ValidateColor(c); err != nil {
			return err
		}
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if o.VizType == "" {
		o.VizType = DefaultVizType
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.TreeDepth == 0 {
		o.TreeDepth = DefaultTreeDepth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateVizType(o.VizType); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := cerrors.ValidatePositive("scale", o.Scale); err != nil {
		return err
	}
	if o.Margin < 0 {
		return cerrors.New(cerrors.ErrCodeInvalidOptions, "margin must not be negative")
	}
	if o.Simplify < 0 {
		return cerrors.New(cerrors.ErrCodeInvalidOptions, "simplify tolerance must not be negative")
	}
	return nil
}

// IsCellmap returns true if this is a cellmap visualization.
func (o *Options) IsCellmap() bool {
	return o.VizType == "" || o.VizType == VizTypeCellmap
}

// IsHierarchy returns true if this is a hierarchy visualization.
func (o *Options) IsHierarchy() bool {
	return o.VizType == VizTypeHierarchy
}

// ShowRegions returns whether region labels are drawn and labels resolved.
func (o *Options) ShowRegions() bool {
	return !o.HideRegions
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	opts := cache.LayoutKeyOpts{
		Width:            o.Width,
		Height:           o.Height,
		Shape:            o.Shape,
		Seed:             o.Seed,
		ConvergenceRatio: o.ConvergenceRatio,
		MaxIterations:    o.MaxIterations,
		MinWeightRatio:   o.MinWeightRatio,
		RadiusCap:        o.RadiusCap,
		Colors:           o.Colors,
		ColorOverrides:   o.ColorOverrides,
		ShowRegion:       o.ShowRegions(),
		ShowPercent:      o.ShowPercent,
		UnderLabel:       o.UnderLabel,
		RatioLimit:       o.RatioLimit,
		SizeLimit:        o.SizeLimit,
		PebbleRound:      o.PebbleRound,
		PebbleWidth:      o.PebbleWidth,
	}
	if len(o.Hints) > 0 {
		opts.HintsHash = cache.HashJSON(o.Hints)
	}
	return opts
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		VizType:     o.VizType,
		Format:      format,
		Title:       o.Title,
		Caption:     o.Caption,
		Margin:      o.Margin,
		Scale:       o.Scale,
		Interactive: o.Interactive,
		Detailed:    o.Detailed,
		TreeDepth:   o.TreeDepth,
		Simplify:    o.Simplify,
	}
}

// describe names the input for logs and hooks.
func (o *Options) describe() string {
	if o.Input != "" {
		return o.Input
	}
	return fmt.Sprintf("%d inline records", len(o.Records))
}
