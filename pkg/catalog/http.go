package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/httputil"
	"github.com/matzehuels/flowcraft/pkg/observability"
)

// HTTPCatalog queries a catalog service over HTTP:
//
//	GET {base}/sources/{id}              -> flow.Source as JSON
//	GET {base}/datasources/{id}/layout   -> {"fields": [...]}
//
// Network failures, 429 and 5xx responses are retried with exponential backoff.
type HTTPCatalog struct {
	base     string
	client   *httputil.Client
	attempts int
	delay    time.Duration
}

// HTTPOption configures an [HTTPCatalog].
type HTTPOption func(*httpConfig)

type httpConfig struct {
	client   *http.Client
	headers  map[string]string
	attempts int
	delay    time.Duration
}

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(cfg *httpConfig) { cfg.client = c }
}

// WithHeaders sets headers sent on every request, for example an API token.
func WithHeaders(h map[string]string) HTTPOption {
	return func(cfg *httpConfig) { cfg.headers = h }
}

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.attempts = attempts
		cfg.delay = delay
	}
}

// NewHTTPCatalog returns a catalog rooted at baseURL.
func NewHTTPCatalog(baseURL string, opts ...HTTPOption) (*HTTPCatalog, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	cfg := httpConfig{attempts: 3, delay: time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPCatalog{
		base:     strings.TrimRight(baseURL, "/"),
		client:   httputil.NewClient(cfg.client, cfg.headers),
		attempts: cfg.attempts,
		delay:    cfg.delay,
	}, nil
}

// BaseURL returns the catalog root without a trailing slash.
func (c *HTTPCatalog) BaseURL() string { return c.base }

// Source fetches /sources/{id}.
func (c *HTTPCatalog) Source(ctx context.Context, id string) (*flow.Source, error) {
	var src flow.Source
	if err := c.get(ctx, ResourceSource, id, "/sources/"+url.PathEscape(id), &src); err != nil {
		return nil, err
	}
	if src.ID == "" {
		src.ID = id
	}
	return &src, nil
}

type layoutResponse struct {
	Fields []Field `json:"fields"`
}

// Layout fetches /datasources/{id}/layout.
func (c *HTTPCatalog) Layout(ctx context.Context, dataSourceID string) ([]Field, error) {
	var resp layoutResponse
	path := "/datasources/" + url.PathEscape(dataSourceID) + "/layout"
	if err := c.get(ctx, ResourceLayout, dataSourceID, path, &resp); err != nil {
		return nil, err
	}
	if resp.Fields == nil {
		resp.Fields = []Field{}
	}
	return resp.Fields, nil
}

func (c *HTTPCatalog) get(ctx context.Context, resource, id, path string, v any) error {
	start := time.Now()
	err := httputil.Retry(ctx, c.attempts, c.delay, func() error {
		return c.client.Get(ctx, c.base+path, v)
	})
	observability.Catalog().OnFetch(ctx, "http", resource, time.Since(start), err)

	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, httputil.ErrNotFound):
		return fmt.Errorf("%w: %s %q", ErrNotFound, resource, id)
	case stderrors.Is(err, httputil.ErrRateLimited):
		return errors.Wrap(errors.ErrCodeRateLimited, err, "catalog %s %q", resource, id)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "catalog %s %q", resource, id)
	}
}

var _ Catalog = (*HTTPCatalog)(nil)
