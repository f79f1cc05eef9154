package catalog

import (
	"context"
	"time"

	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/httputil"
)

// Options selects a catalog backend. URL selects [HTTPCatalog], MongoURI selects
// [MongoCatalog]; with neither set, [Open] returns a nil Catalog and callers fall back
// to [FromDocument].
type Options struct {
	URL           string
	Headers       map[string]string
	Timeout       time.Duration
	MongoURI      string
	MongoDatabase string

	// Cache wraps the backend in [Cached] when non-nil; TTL overrides the source TTL.
	Cache cache.Cache
	TTL   time.Duration
}

// Open connects the configured backend. The returned close function releases the
// backend's connections and is never nil.
func Open(ctx context.Context, opts Options) (Catalog, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var (
		cat     Catalog
		closeFn = noop
	)
	switch {
	case opts.URL != "":
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = httputil.DefaultTimeout
		}
		hc, err := NewHTTPCatalog(opts.URL,
			WithHTTPClient(httputil.NewHTTPClient(timeout)),
			WithHeaders(opts.Headers))
		if err != nil {
			return nil, noop, err
		}
		cat = hc
	case opts.MongoURI != "":
		db := opts.MongoDatabase
		if db == "" {
			db = DefaultMongoDatabase
		}
		mc, err := ConnectMongo(ctx, opts.MongoURI, db)
		if err != nil {
			return nil, noop, err
		}
		cat, closeFn = mc, mc.Close
	default:
		return nil, noop, nil
	}

	if opts.Cache != nil {
		var copts []CachedOption
		if opts.TTL > 0 {
			copts = append(copts, WithTTL(opts.TTL, cache.LayoutTTL))
		}
		cat = NewCached(cat, opts.Cache, copts...)
	}
	return cat, closeFn, nil
}
