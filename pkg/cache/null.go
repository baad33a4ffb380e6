package cache

import (
	"context"
	"time"
)

// NullCache disables caching. The CLI uses it for --no-cache and when no
// cache directory can be resolved, and a Runner built without a cache falls
// back to it. Every lookup misses, so layouts and artifacts are always
// recomputed.
type NullCache struct{}

var _ Cache = NullCache{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)       { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
