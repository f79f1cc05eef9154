// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through package-level hooks; the binary decides what receives
// them. The defaults are no-ops, so library code never depends on a metrics backend.
//
// # Usage
//
// Register hooks at startup, before serving requests:
//
//	func main() {
//	    m := metrics.New()
//	    observability.SetPipelineHooks(m)
//	    observability.SetCacheHooks(m)
//	    observability.SetCatalogHooks(m)
//	}
//
// Libraries call the registered hooks:
//
//	start := time.Now()
//	doc, err := compile.Compile(g, meta)
//	observability.Pipeline().OnCompile(ctx, g.NodeCount(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from validation, compilation and decompilation.
type PipelineHooks interface {
	// OnValidate records one validation run and its verdict.
	OnValidate(ctx context.Context, nodes, edges int, valid bool, duration time.Duration)

	// OnCompile records one compilation of a graph with the given node count.
	OnCompile(ctx context.Context, nodes int, duration time.Duration, err error)

	// OnDecompile records one decompilation with the number of nodes produced and
	// the number of sources that could not be resolved.
	OnDecompile(ctx context.Context, nodes, failures int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cached catalog lookups. keyType is "source" or
// "layout".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Catalog Hooks
// =============================================================================

// CatalogHooks receives events from catalog backends.
type CatalogHooks interface {
	// OnFetch records one lookup. backend is "http", "mongo" or "document";
	// resource is "source" or "layout".
	OnFetch(ctx context.Context, backend, resource string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnValidate(context.Context, int, int, bool, time.Duration)   {}
func (NoopPipelineHooks) OnCompile(context.Context, int, time.Duration, error)        {}
func (NoopPipelineHooks) OnDecompile(context.Context, int, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopCatalogHooks is a no-op implementation of CatalogHooks.
type NoopCatalogHooks struct{}

func (NoopCatalogHooks) OnFetch(context.Context, string, string, time.Duration, error) {}

// =============================================================================
// Registry
// =============================================================================

// hookSet is replaced as a whole on every registration, so readers never observe
// a half-updated set.
type hookSet struct {
	pipeline PipelineHooks
	cache    CacheHooks
	catalog  CatalogHooks
}

var (
	noops = hookSet{NoopPipelineHooks{}, NoopCacheHooks{}, NoopCatalogHooks{}}

	setMu   sync.Mutex
	current atomic.Pointer[hookSet]
)

func init() { Reset() }

func update(fn func(*hookSet)) {
	setMu.Lock()
	defer setMu.Unlock()
	next := *current.Load()
	fn(&next)
	current.Store(&next)
}

// SetPipelineHooks registers pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(s *hookSet) { s.pipeline = h })
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

// SetCatalogHooks registers catalog hooks. A nil h is ignored.
func SetCatalogHooks(h CatalogHooks) {
	if h != nil {
		update(func(s *hookSet) { s.catalog = h })
	}
}

func Pipeline() PipelineHooks { return current.Load().pipeline }
func Cache() CacheHooks       { return current.Load().cache }
func Catalog() CatalogHooks   { return current.Load().catalog }

// Reset restores the no-op defaults.
func Reset() {
	setMu.Lock()
	defer setMu.Unlock()
	set := noops
	current.Store(&set)
}
