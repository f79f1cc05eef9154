package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/matzehuels/flowcraft/pkg/observability"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

// Install registers r as the global pipeline, cache and catalog hooks.
func (r *Registry) Install() {
	observability.SetPipelineHooks(r)
	observability.SetCacheHooks(r)
	observability.SetCatalogHooks(r)
}

func (r *Registry) OnValidate(_ context.Context, _, _ int, valid bool, d time.Duration) {
	r.ValidationsTotal.WithLabelValues(strconv.FormatBool(valid)).Inc()
	r.ValidationDuration.Observe(d.Seconds())
}

func (r *Registry) OnCompile(_ context.Context, nodes int, d time.Duration, err error) {
	r.CompilesTotal.WithLabelValues(status(err)).Inc()
	r.CompileDuration.Observe(d.Seconds())
	if err == nil {
		r.CompileGraphNodes.Observe(float64(nodes))
	}
}

func (r *Registry) OnDecompile(_ context.Context, _, failures int, d time.Duration, err error) {
	r.DecompilesTotal.WithLabelValues(status(err)).Inc()
	r.DecompileDuration.Observe(d.Seconds())
	r.DecompileFailures.Add(float64(failures))
}

func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheOperationsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheOperationsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheOperationsTotal.WithLabelValues(keyType, "set").Inc()
	r.CacheStoredBytes.WithLabelValues(keyType).Add(float64(size))
}

func (r *Registry) OnFetch(_ context.Context, backend, resource string, d time.Duration, err error) {
	r.CatalogFetchesTotal.WithLabelValues(backend, resource, status(err)).Inc()
	r.CatalogFetchDuration.WithLabelValues(backend, resource).Observe(d.Seconds())
}

// RecordSessions sets the active session gauge and counts expired removals.
func (r *Registry) RecordSessions(active, expired int) {
	r.SessionsActive.Set(float64(active))
	if expired > 0 {
		r.SessionsExpired.Add(float64(expired))
	}
}

var (
	_ observability.PipelineHooks = (*Registry)(nil)
	_ observability.CacheHooks    = (*Registry)(nil)
	_ observability.CatalogHooks  = (*Registry)(nil)
)
