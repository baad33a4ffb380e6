// Package cache stores computed datasets, layouts and rendered artifacts.
//
// # Overview
//
// Partitioning is the expensive step of a cellmap run, and it is fully
// deterministic for a given dataset and option set. The pipeline therefore
// caches three tiers, each keyed by a hash of its inputs:
//
//   - Dataset: the parsed records of an input file
//   - Layout: the partitioned, labeled [layout.Layout] as JSON
//   - Artifact: a rendered SVG, PNG, PDF or JSON document
//
// # Backends
//
//   - [NewFileCache]: one JSON file per entry, for the CLI
//   - [NewRedisCache]: a shared Redis instance, for the HTTP server
//   - [NewMemoryCache]: an in-process map, for tests and single runs
//   - [NewNullCache]: caching disabled
//
// # Keys
//
// A [Keyer] derives keys from content hashes plus the options that affect
// the cached value. [NewScopedKeyer] prefixes every key, which isolates
// tenants that share one Redis instance.
//
// [layout.Layout]: github.com/matzehuels/cellmap/pkg/layout.Layout
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. A miss is reported as
// (nil, false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry lifetimes per tier.
const (
	TTLDataset  = 24 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	DatasetKey(sourceHash string) string
	LayoutKey(datasetHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts lists every option that changes a computed layout.
type LayoutKeyOpts struct {
	Width            float64           `json:"width"`
	Height           float64           `json:"height"`
	Shape            string            `json:"shape"`
	Seed             uint64            `json:"seed"`
	ConvergenceRatio float64           `json:"convergence_ratio"`
	MaxIterations    int               `json:"max_iterations"`
	MinWeightRatio   float64           `json:"min_weight_ratio"`
	RadiusCap        float64           `json:"radius_cap"`
	HintsHash        string            `json:"hints_hash,omitempty"`
	Colors           []string          `json:"colors,omitempty"`
	ColorOverrides   map[string]string `json:"color_overrides,omitempty"`
	ShowRegion       bool              `json:"show_region"`
	ShowPercent      bool              `json:"show_percent"`
	UnderLabel       bool              `json:"under_label"`
	RatioLimit       float64           `json:"ratio_limit"`
	SizeLimit        float64           `json:"size_limit"`
	PebbleRound      float64           `json:"pebble_round"`
	PebbleWidth      float64           `json:"pebble_width"`
}

// ArtifactKeyOpts lists every option that changes a rendered artifact.
type ArtifactKeyOpts struct {
	VizType     string  `json:"viz_type"`
	Format      string  `json:"format"`
	Title       string  `json:"title,omitempty"`
	Caption     string  `json:"caption,omitempty"`
	Margin      float64 `json:"margin,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
	Interactive bool    `json:"interactive,omitempty"`
	Detailed    bool    `json:"detailed,omitempty"`
	TreeDepth   int     `json:"tree_depth,omitempty"`
	Simplify    float64 `json:"simplify,omitempty"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DatasetKey returns the key of a parsed dataset.
func (DefaultKeyer) DatasetKey(sourceHash string) string {
	return "dataset:" + sourceHash
}

// LayoutKey returns the key of a layout computed from a dataset.
func (DefaultKeyer) LayoutKey(datasetHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", datasetHash, opts)
}

// ArtifactKey returns the key of an artifact rendered from a layout.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
