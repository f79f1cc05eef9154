// Package cache provides byte-level caching for catalog lookups.
//
// # Overview
//
// Decompiling a specification document resolves every source declaration against a
// catalog service. Those lookups are slow and their answers rarely change, so
// [catalog.Cached] stores them in a [Cache]:
//
//   - [FileCache]: JSON entry files under a directory, the CLI default
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: never stores anything, used when caching is disabled
//
// # Keys
//
// Keys are built by a [Keyer] so that every backend sees the same layout. Keys for
// different catalogs can be isolated with [NewScopedKeyer]:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "https://catalog.example.com|")
//	key := keyer.SourceKey("src-42")
//
// [catalog.Cached]: github.com/matzehuels/flowcraft/pkg/catalog
package cache

import (
	"context"
	"time"
)

// Default time-to-live values for cached catalog entries.
const (
	// SourceTTL bounds how long a source descriptor is reused.
	SourceTTL = 24 * time.Hour

	// LayoutTTL bounds how long a data-source column layout is reused.
	LayoutTTL = 6 * time.Hour
)

// Cache stores opaque byte values by key.
//
// Get reports a miss with ok=false and a nil error. Implementations must be safe for
// concurrent use: the decompiler fetches sources in parallel.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys for catalog entries.
type Keyer interface {
	// SourceKey returns the key of a source descriptor.
	SourceKey(sourceID string) string

	// LayoutKey returns the key of a data-source column layout.
	LayoutKey(dataSourceID string) string
}

// DefaultKeyer hashes identifiers under a fixed prefix per entry type.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SourceKey returns "source:<sha256>".
func (DefaultKeyer) SourceKey(sourceID string) string {
	return hashKey("source", sourceID)
}

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(dataSourceID string) string {
	return hashKey("layout", dataSourceID)
}

// ScopedKeyer prefixes every key of an inner Keyer. Two catalogs that reuse the same
// identifiers stay apart when each gets its own scope.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner uses [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SourceKey returns the prefixed source key.
func (k *ScopedKeyer) SourceKey(sourceID string) string {
	return k.prefix + k.inner.SourceKey(sourceID)
}

// LayoutKey returns the prefixed layout key.
func (k *ScopedKeyer) LayoutKey(dataSourceID string) string {
	return k.prefix + k.inner.LayoutKey(dataSourceID)
}
