package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/observability"
)

// Cached serves lookups from a cache and falls back to an inner catalog on a miss.
// Only successful lookups are stored. Cache read and write failures are treated as
// misses so a broken cache never fails a lookup.
type Cached struct {
	inner     Catalog
	cache     cache.Cache
	keyer     cache.Keyer
	sourceTTL time.Duration
	layoutTTL time.Duration
}

// CachedOption configures [Cached].
type CachedOption func(*Cached)

// WithKeyer replaces the default key layout, for example with a scoped keyer.
func WithKeyer(k cache.Keyer) CachedOption {
	return func(c *Cached) { c.keyer = k }
}

// WithTTL sets the expiry of source and layout entries.
func WithTTL(source, layout time.Duration) CachedOption {
	return func(c *Cached) {
		c.sourceTTL = source
		c.layoutTTL = layout
	}
}

// NewCached wraps inner with c.
func NewCached(inner Catalog, c cache.Cache, opts ...CachedOption) *Cached {
	cc := &Cached{
		inner:     inner,
		cache:     c,
		keyer:     cache.NewDefaultKeyer(),
		sourceTTL: cache.SourceTTL,
		layoutTTL: cache.LayoutTTL,
	}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

// Source returns the cached descriptor or fetches it from the inner catalog.
func (c *Cached) Source(ctx context.Context, id string) (*flow.Source, error) {
	key := c.keyer.SourceKey(id)
	var src flow.Source
	if c.load(ctx, ResourceSource, key, &src) {
		return &src, nil
	}
	fetched, err := c.inner.Source(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, ResourceSource, key, fetched, c.sourceTTL)
	return fetched, nil
}

// Layout returns the cached columns or fetches them from the inner catalog.
func (c *Cached) Layout(ctx context.Context, dataSourceID string) ([]Field, error) {
	key := c.keyer.LayoutKey(dataSourceID)
	var fields []Field
	if c.load(ctx, ResourceLayout, key, &fields) {
		return fields, nil
	}
	fetched, err := c.inner.Layout(ctx, dataSourceID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, ResourceLayout, key, fetched, c.layoutTTL)
	return fetched, nil
}

func (c *Cached) load(ctx context.Context, resource, key string, v any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok || json.Unmarshal(data, v) != nil {
		observability.Cache().OnCacheMiss(ctx, resource)
		return false
	}
	observability.Cache().OnCacheHit(ctx, resource)
	return true
}

func (c *Cached) store(ctx context.Context, resource, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, resource, len(data))
	}
}

var _ Catalog = (*Cached)(nil)
