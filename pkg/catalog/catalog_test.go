package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/observability"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

func catalogServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sources/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.PathValue("id") {
		case "src-1":
			json.NewEncoder(w).Encode(flow.Source{ID: "src-1", Name: "customers", FilePath: "customers.csv", FileFormat: "csv"})
		case "flaky":
			if hits.Load() < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(flow.Source{Name: "recovered"})
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /datasources/{id}/layout", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "src-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"fields": []Field{{Name: "id", Type: "int"}, {Name: "age", Type: "int"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPCatalogSource(t *testing.T) {
	var hits atomic.Int32
	srv := catalogServer(t, &hits)
	cat, err := NewHTTPCatalog(srv.URL+"/", WithHTTPClient(srv.Client()), WithRetry(3, time.Millisecond))
	if err != nil {
		t.Fatalf("NewHTTPCatalog() error = %v", err)
	}
	if cat.BaseURL() != srv.URL {
		t.Errorf("BaseURL() = %q, want %q", cat.BaseURL(), srv.URL)
	}

	src, err := cat.Source(context.Background(), "src-1")
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Name != "customers" || src.FilePath != "customers.csv" {
		t.Errorf("Source() = %+v", src)
	}

	_, err = cat.Source(context.Background(), "nope")
	if !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Source(nope) error = %v, want ErrNotFound", err)
	}
	if errors.GetCode(err) != errors.ErrCodeSourceNotFound {
		t.Errorf("Source(nope) code = %v", errors.GetCode(err))
	}
}

func TestHTTPCatalogRetries(t *testing.T) {
	var hits atomic.Int32
	srv := catalogServer(t, &hits)
	cat, _ := NewHTTPCatalog(srv.URL, WithHTTPClient(srv.Client()), WithRetry(3, time.Millisecond))

	src, err := cat.Source(context.Background(), "flaky")
	if err != nil {
		t.Fatalf("Source(flaky) error = %v", err)
	}
	if src.Name != "recovered" || src.ID != "flaky" {
		t.Errorf("Source(flaky) = %+v", src)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}

	hits.Store(0)
	_, err = cat.Source(context.Background(), "broken")
	if errors.GetCode(err) != errors.ErrCodeNetwork {
		t.Errorf("Source(broken) code = %v, want NETWORK_ERROR", errors.GetCode(err))
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("requests = %d, want 3 attempts", got)
	}
}

func TestHTTPCatalogLayout(t *testing.T) {
	var hits atomic.Int32
	srv := catalogServer(t, &hits)
	cat, _ := NewHTTPCatalog(srv.URL, WithHTTPClient(srv.Client()))

	fields, err := cat.Layout(context.Background(), "src-1")
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if want := []Field{{Name: "id", Type: "int"}, {Name: "age", Type: "int"}}; !reflect.DeepEqual(fields, want) {
		t.Errorf("Layout() = %v, want %v", fields, want)
	}
	if _, err := cat.Layout(context.Background(), "other"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Layout(other) error = %v, want ErrNotFound", err)
	}
}

func TestNewHTTPCatalogRejectsBadURL(t *testing.T) {
	if _, err := NewHTTPCatalog("ftp://catalog"); err == nil {
		t.Error("NewHTTPCatalog(ftp) should fail")
	}
}

func TestHTTPCatalogCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := catalogServer(t, &hits)
	cat, _ := NewHTTPCatalog(srv.URL, WithHTTPClient(srv.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cat.Source(ctx, "src-1"); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Source() error = %v, want context.Canceled", err)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Put(flow.Source{ID: "a", Name: "alpha"})
	m.PutLayout("a", []Field{{Name: "x"}})

	src, err := m.Source(ctx, "a")
	if err != nil || src.Name != "alpha" {
		t.Errorf("Source(a) = %v, %v", src, err)
	}
	src.Name = "mutated"
	if again, _ := m.Source(ctx, "a"); again.Name != "alpha" {
		t.Error("Source() returned shared state")
	}
	if _, err := m.Source(ctx, "b"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Source(b) error = %v", err)
	}
	if fields, _ := m.Layout(ctx, "a"); len(fields) != 1 {
		t.Errorf("Layout(a) = %v", fields)
	}
}

func TestFromDocument(t *testing.T) {
	doc := spec.New("p", "")
	doc.Sources = []spec.SourceDecl{
		{Name: "customers", SourceID: "src-1", File: &spec.FileDecl{Path: "c.csv", Format: "csv"},
			Connection: &spec.ConnectionDecl{Type: "s3", Name: "lake", PathPrefix: "raw/"}},
		{Name: "orders"},
	}
	m := FromDocument(doc)

	src, err := m.Source(context.Background(), "src-1")
	if err != nil {
		t.Fatalf("Source(src-1) error = %v", err)
	}
	want := flow.Source{ID: "src-1", Name: "customers", FilePath: "c.csv", FileFormat: "csv",
		ConnectionType: "s3", ConnectionName: "lake", PathPrefix: "raw/"}
	if *src != want {
		t.Errorf("Source(src-1) = %+v, want %+v", *src, want)
	}
	if src, err := m.Source(context.Background(), "orders"); err != nil || src.Name != "orders" {
		t.Errorf("Source(orders) = %v, %v", src, err)
	}
	if FromDocument(nil) == nil {
		t.Error("FromDocument(nil) returned nil")
	}
}

type countingCatalog struct {
	Catalog
	sources atomic.Int32
	layouts atomic.Int32
}

func (c *countingCatalog) Source(ctx context.Context, id string) (*flow.Source, error) {
	c.sources.Add(1)
	return c.Catalog.Source(ctx, id)
}

func (c *countingCatalog) Layout(ctx context.Context, id string) ([]Field, error) {
	c.layouts.Add(1)
	return c.Catalog.Layout(ctx, id)
}

type recordingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets atomic.Int32
}

func (h *recordingCacheHooks) OnCacheHit(context.Context, string)      { h.hits.Add(1) }
func (h *recordingCacheHooks) OnCacheMiss(context.Context, string)     { h.misses.Add(1) }
func (h *recordingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets.Add(1) }

func TestCached(t *testing.T) {
	hooks := &recordingCacheHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	mem := NewMemory()
	mem.Put(flow.Source{ID: "a", Name: "alpha"})
	mem.PutLayout("a", []Field{{Name: "x", Type: "string"}})
	inner := &countingCatalog{Catalog: mem}

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cat := NewCached(inner, fc)

	for range 3 {
		src, err := cat.Source(ctx, "a")
		if err != nil || src.Name != "alpha" {
			t.Fatalf("Source(a) = %v, %v", src, err)
		}
		fields, err := cat.Layout(ctx, "a")
		if err != nil || len(fields) != 1 || fields[0].Type != "string" {
			t.Fatalf("Layout(a) = %v, %v", fields, err)
		}
	}
	if inner.sources.Load() != 1 || inner.layouts.Load() != 1 {
		t.Errorf("inner calls = %d sources, %d layouts, want 1 each", inner.sources.Load(), inner.layouts.Load())
	}
	if hooks.hits.Load() != 4 || hooks.misses.Load() != 2 || hooks.sets.Load() != 2 {
		t.Errorf("hooks = %d hits, %d misses, %d sets", hooks.hits.Load(), hooks.misses.Load(), hooks.sets.Load())
	}

	if _, err := cat.Source(ctx, "missing"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Source(missing) error = %v", err)
	}
	if _, err := cat.Source(ctx, "missing"); err == nil {
		t.Error("failed lookups must not be cached")
	}
	if inner.sources.Load() != 3 {
		t.Errorf("inner source calls = %d, want 3", inner.sources.Load())
	}
}

func TestCachedScopedKeyer(t *testing.T) {
	ctx := context.Background()
	fc, _ := cache.NewFileCache(t.TempDir())

	a, b := NewMemory(), NewMemory()
	a.Put(flow.Source{ID: "s", Name: "from-a"})
	b.Put(flow.Source{ID: "s", Name: "from-b"})

	ca := NewCached(a, fc, WithKeyer(cache.NewScopedKeyer(nil, "a|")))
	cb := NewCached(b, fc, WithKeyer(cache.NewScopedKeyer(nil, "b|")), WithTTL(time.Minute, time.Minute))

	sa, _ := ca.Source(ctx, "s")
	sb, _ := cb.Source(ctx, "s")
	if sa.Name != "from-a" || sb.Name != "from-b" {
		t.Errorf("scoped sources = %q, %q", sa.Name, sb.Name)
	}
}

func TestSuggestColumns(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.PutLayout("ds-a", []Field{{Name: "id"}, {Name: "name"}})
	mem.PutLayout("ds-b", []Field{{Name: "id"}, {Name: "amount"}})

	g := flow.New()
	mustAdd := func(n flow.Node) {
		t.Helper()
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd(flow.NewReader("Reader_1", flow.Source{ID: "ds-a", Name: "a"}, flow.Position{}))
	mustAdd(flow.NewReader("Reader_2", flow.Source{ID: "ds-b", Name: "b"}, flow.Position{}))
	mustAdd(flow.NewReader("Reader_3", flow.Source{ID: "ds-none", Name: "c"}, flow.Position{}))
	mustAdd(flow.NewTransformation("Joiner_1", "", nil, flow.Position{}))
	mustAdd(flow.NewTransformation("Filter_1", "", nil, flow.Position{}))
	for _, e := range [][2]string{{"Reader_1", "Joiner_1"}, {"Reader_2", "Joiner_1"}, {"Joiner_1", "Filter_1"}, {"Reader_3", "Filter_1"}} {
		if err := g.Connect(flow.NewEdge(e[0], e[1])); err != nil {
			t.Fatal(err)
		}
	}
	edges := g.EdgeCount()

	fields, err := SuggestColumns(ctx, mem, g, "Filter_1")
	if err != nil {
		t.Fatalf("SuggestColumns() error = %v", err)
	}
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	if want := []string{"id", "name", "amount"}; !reflect.DeepEqual(names, want) {
		t.Errorf("SuggestColumns() = %v, want %v", names, want)
	}
	if g.EdgeCount() != edges {
		t.Error("SuggestColumns() modified the graph")
	}

	if fields, _ := SuggestColumns(ctx, mem, g, "Reader_2"); len(fields) != 2 {
		t.Errorf("SuggestColumns(Reader_2) = %v", fields)
	}
	if _, err := SuggestColumns(ctx, mem, g, "Nope_1"); !stderrors.Is(err, flow.ErrUnknownNode) {
		t.Errorf("SuggestColumns(unknown) error = %v", err)
	}
}

// TestMongoCatalog runs against a live server named by FLOWCRAFT_TEST_MONGO.
func TestMongoCatalog(t *testing.T) {
	uri := os.Getenv("FLOWCRAFT_TEST_MONGO")
	if uri == "" {
		t.Skip("FLOWCRAFT_TEST_MONGO not set")
	}
	ctx := context.Background()
	cat, err := ConnectMongo(ctx, uri, "flowcraft_test")
	if err != nil {
		t.Fatalf("ConnectMongo() error = %v", err)
	}
	defer cat.Close(ctx)
	defer cat.sources.Drop(ctx)
	defer cat.layouts.Drop(ctx)

	if _, err := cat.sources.InsertOne(ctx, flow.Source{ID: "m-1", Name: "mongo-src"}); err != nil {
		t.Fatal(err)
	}
	if _, err := cat.layouts.InsertOne(ctx, layoutDocument{ID: "m-1", Fields: []Field{{Name: "id"}}}); err != nil {
		t.Fatal(err)
	}

	src, err := cat.Source(ctx, "m-1")
	if err != nil || src.Name != "mongo-src" {
		t.Errorf("Source(m-1) = %v, %v", src, err)
	}
	if fields, err := cat.Layout(ctx, "m-1"); err != nil || len(fields) != 1 {
		t.Errorf("Layout(m-1) = %v, %v", fields, err)
	}
	if _, err := cat.Source(ctx, "missing"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Source(missing) error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cat, closeFn, err := Open(ctx, Options{})
	if err != nil || cat != nil || closeFn == nil {
		t.Errorf("Open(empty) = %v, %v, want nil catalog and a close func", cat, err)
	}

	var hits atomic.Int32
	srv := catalogServer(t, &hits)
	cat, closeFn, err = Open(ctx, Options{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("Open(url) error = %v", err)
	}
	defer closeFn(ctx)
	if _, ok := cat.(*HTTPCatalog); !ok {
		t.Errorf("Open(url) = %T, want *HTTPCatalog", cat)
	}

	cat, _, err = Open(ctx, Options{URL: srv.URL, Cache: cache.NewNullCache(), TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	cached, ok := cat.(*Cached)
	if !ok || cached.sourceTTL != time.Minute || cached.layoutTTL != cache.LayoutTTL {
		t.Errorf("Open(url, cache) = %T %+v", cat, cat)
	}
	if src, err := cat.Source(ctx, "src-1"); err != nil || src.Name != "customers" {
		t.Errorf("Source() through Open = %+v, %v", src, err)
	}

	if _, _, err := Open(ctx, Options{URL: "ftp://nope"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Open(bad url) = %v", err)
	}
}
