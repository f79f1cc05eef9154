package metrics

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/flowcraft/pkg/observability"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.HTTPRequestsTotal == nil || r.CompilesTotal == nil || r.CatalogFetchesTotal == nil || r.SessionsActive == nil {
		t.Fatal("metrics not initialized")
	}
	if r.Prometheus() == nil {
		t.Error("Prometheus registry not initialized")
	}
	if NewRegistry().Prometheus() == r.Prometheus() {
		t.Error("registries should be independent")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestPipelineHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnValidate(ctx, 3, 2, true, time.Millisecond)
	r.OnValidate(ctx, 1, 0, false, time.Millisecond)
	r.OnValidate(ctx, 1, 0, false, time.Millisecond)
	r.OnCompile(ctx, 3, time.Millisecond, nil)
	r.OnCompile(ctx, 1, time.Millisecond, stderrors.New("invalid"))
	r.OnDecompile(ctx, 4, 2, time.Millisecond, nil)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"valid", testutil.ToFloat64(r.ValidationsTotal.WithLabelValues("true")), 1},
		{"invalid", testutil.ToFloat64(r.ValidationsTotal.WithLabelValues("false")), 2},
		{"compile ok", testutil.ToFloat64(r.CompilesTotal.WithLabelValues("ok")), 1},
		{"compile error", testutil.ToFloat64(r.CompilesTotal.WithLabelValues("error")), 1},
		{"decompile ok", testutil.ToFloat64(r.DecompilesTotal.WithLabelValues("ok")), 1},
		{"source failures", testutil.ToFloat64(r.DecompileFailures), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCacheAndCatalogHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnCacheHit(ctx, "source")
	r.OnCacheMiss(ctx, "source")
	r.OnCacheSet(ctx, "layout", 128)
	r.OnCacheSet(ctx, "layout", 64)
	r.OnFetch(ctx, "http", "source", time.Millisecond, nil)
	r.OnFetch(ctx, "mongo", "layout", time.Millisecond, stderrors.New("down"))

	if got := testutil.ToFloat64(r.CacheOperationsTotal.WithLabelValues("source", "hit")); got != 1 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(r.CacheStoredBytes.WithLabelValues("layout")); got != 192 {
		t.Errorf("stored bytes = %v, want 192", got)
	}
	if got := testutil.ToFloat64(r.CatalogFetchesTotal.WithLabelValues("mongo", "layout", "error")); got != 1 {
		t.Errorf("mongo errors = %v", got)
	}
}

func TestInstall(t *testing.T) {
	defer observability.Reset()
	r := NewRegistry()
	r.Install()

	observability.Pipeline().OnCompile(context.Background(), 2, time.Millisecond, nil)
	observability.Cache().OnCacheMiss(context.Background(), "source")
	observability.Catalog().OnFetch(context.Background(), "http", "layout", time.Millisecond, nil)

	if testutil.ToFloat64(r.CompilesTotal.WithLabelValues("ok")) != 1 ||
		testutil.ToFloat64(r.CacheOperationsTotal.WithLabelValues("source", "miss")) != 1 ||
		testutil.ToFloat64(r.CatalogFetchesTotal.WithLabelValues("http", "layout", "ok")) != 1 {
		t.Error("installed hooks did not reach the registry")
	}
}

func TestRecordSessions(t *testing.T) {
	r := NewRegistry()
	r.RecordSessions(5, 0)
	r.RecordSessions(3, 2)
	if got := testutil.ToFloat64(r.SessionsActive); got != 3 {
		t.Errorf("active = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.SessionsExpired); got != 2 {
		t.Errorf("expired = %v, want 2", got)
	}
}

func TestMiddleware(t *testing.T) {
	r := NewRegistry()
	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Post("/v1/compile", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{}")
	})

	for _, path := range []string{"/v1/sessions/a", "/v1/sessions/b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/compile", nil))

	if got := testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/v1/sessions/{id}", "404")); got != 2 {
		t.Errorf("session requests = %v, want 2 under one route label", got)
	}
	if got := testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("POST", "/v1/compile", "200")); got != 1 {
		t.Errorf("compile requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.HTTPRequestsInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.OnCompile(context.Background(), 2, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{`flowcraft_compiles_total{status="ok"} 1`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
