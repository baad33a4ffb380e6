package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cellmap/pkg/cache"
	"github.com/matzehuels/cellmap/pkg/layout"
	"github.com/matzehuels/cellmap/pkg/observability"
	"github.com/matzehuels/cellmap/pkg/records"
	"github.com/matzehuels/cellmap/pkg/treemap"
)

// Cache key types reported to the observability hooks.
const (
	keyTypeDataset  = "dataset"
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	recs, loadHit, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Records = recs
	result.DatasetHash = DatasetHash(recs)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.RecordCount = len(recs)
	result.CacheInfo.LoadHit = loadHit

	r.Logger.Info("loaded records",
		"records", len(recs),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layoutStart := time.Now()
	l, layoutHit, err := r.GenerateLayoutWithCacheInfo(ctx, recs, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.CellCount = len(l.Cells)
	result.Stats.LabelCount = l.Diagnostics.Labels.Labels
	result.Stats.NonConverged = l.Diagnostics.Partition.NonConverged
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"cells", len(l.Cells),
		"labels", len(l.Labels),
		"non_converged", l.Diagnostics.Partition.NonConverged,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LoadWithCacheInfo loads records with caching and returns cache hit info.
// Inline records are returned as they are and never cached.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) (recs []treemap.Record, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, false, err
	}

	source := opts.describe()
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, source)
	defer func() {
		observability.Pipeline().OnLoadComplete(ctx, source, len(recs), time.Since(start), err)
	}()

	if len(opts.Records) > 0 {
		return opts.Records, false, nil
	}

	data, err := readInput(opts.Input)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.DatasetKey(cache.Hash(data))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if cached, ok := r.get(ctx, cacheKey, keyTypeDataset); ok {
			if out, err := records.ReadJSON(bytes.NewReader(cached)); err == nil {
				return out, true, nil // Cache hit
			}
		}
	}

	recs, err = decodeRecords(opts.Input, data)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	if encoded, err := encodeRecords(recs); err == nil {
		r.set(ctx, cacheKey, keyTypeDataset, encoded, cache.TTLDataset)
	}

	return recs, false, nil // Cache miss
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards the cache hit info.
func (r *Runner) Load(ctx context.Context, opts Options) ([]treemap.Record, error) {
	recs, _, err := r.LoadWithCacheInfo(ctx, opts)
	return recs, err
}

// GenerateLayoutWithCacheInfo generates a layout with caching and returns cache hit info.
func (r *Runner) GenerateLayoutWithCacheInfo(ctx context.Context, recs []treemap.Record, opts Options) (l layout.Layout, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, false, err
	}

	hints, err := LoadHints(opts)
	if err != nil {
		return layout.Layout{}, false, err
	}
	opts.Hints = hints

	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, len(recs))
	defer func() {
		observability.Pipeline().OnLayoutComplete(ctx, len(l.Cells), time.Since(start), err)
	}()

	// Compute cache key
	cacheKey := r.Keyer.LayoutKey(DatasetHash(recs), opts.LayoutKeyOpts())

	// Try cache first
	if !opts.Refresh {
		if data, ok := r.get(ctx, cacheKey, keyTypeLayout); ok {
			cached, err := layout.Unmarshal(data)
			if err == nil {
				return cached, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
			r.Logger.Debug("discarding unreadable cached layout", "error", err)
		}
	}

	// Generate layout
	l, err = GenerateLayout(ctx, recs, opts)
	if err != nil {
		return layout.Layout{}, false, err
	}

	// Cache the result
	if data, err := layout.Marshal(l); err == nil {
		r.set(ctx, cacheKey, keyTypeLayout, data, cache.TTLLayout)
	}

	return l, false, nil // Cache miss
}

// GenerateLayout is a convenience wrapper that calls GenerateLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) GenerateLayout(ctx context.Context, recs []treemap.Record, opts Options) (layout.Layout, error) {
	l, _, err := r.GenerateLayoutWithCacheInfo(ctx, recs, opts)
	return l, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l layout.Layout, opts Options) (artifacts map[string][]byte, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	defer func() {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	}()

	// Compute cache key from layout data. Identity fields are cleared so a
	// stored layout shares artifacts with the computation it came from.
	keyed := l
	keyed.ID = ""
	keyed.CreatedAt = time.Time{}
	layoutData, err := layout.Marshal(keyed)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	allCached := !opts.Refresh
	artifacts = make(map[string][]byte)

	for _, format := range opts.Formats {
		if !allCached {
			break
		}
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		data, ok := r.get(ctx, cacheKey, keyTypeArtifact)
		if !ok {
			allCached = false
			break
		}
		artifacts[format] = data
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil // All artifacts from cache
	}

	// Render all formats
	rendered, err := Render(l, opts)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		r.set(ctx, cacheKey, keyTypeArtifact, data, cache.TTLArtifact)
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// get reads a cache entry and reports the outcome to the cache hooks.
// Cache errors are logged and treated as misses.
func (r *Runner) get(ctx context.Context, key, keyType string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "type", keyType, "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

// set writes a cache entry. Failures only cost a recomputation later.
func (r *Runner) set(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
