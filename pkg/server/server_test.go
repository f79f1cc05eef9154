package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowcraft/pkg/catalog"
	"github.com/matzehuels/flowcraft/pkg/compile"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flowio"
	"github.com/matzehuels/flowcraft/pkg/metrics"
	"github.com/matzehuels/flowcraft/pkg/pipeline"
	"github.com/matzehuels/flowcraft/pkg/session"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

func setupTestServer(t *testing.T, cat catalog.Catalog) (*Server, *httptest.Server) {
	t.Helper()
	logger := log.New(io.Discard)
	s := New(pipeline.NewRunner(cat, logger), session.NewMemoryStore(), Options{
		Logger:  logger,
		Metrics: metrics.NewRegistry(),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func scenario(t *testing.T) flowio.Graph {
	t.Helper()
	g := flow.New()
	require.NoError(t, g.AddNode(flow.NewReader("Reader_1", flow.Source{ID: "src-1", Name: "customers"}, flow.Position{})))
	require.NoError(t, g.AddNode(flow.NewTransformation("Filter_1", "adults", map[string]any{"condition": "age > 18"}, flow.Position{X: 250})))
	require.NoError(t, g.AddNode(flow.NewTarget("Target_1", flow.Destination{Name: "warehouse"}, flow.Position{X: 500})))
	require.NoError(t, g.Connect(flow.NewEdge("Reader_1", "Filter_1")))
	require.NoError(t, g.Connect(flow.NewEdge("Filter_1", "Target_1")))
	return flowio.FromGraph(g)
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, body := do(t, ts, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"dev"}`, string(body))

	resp, body = do(t, ts, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `flowcraft_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestValidate(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, body := do(t, ts, http.MethodPost, "/v1/validate", graphRequest{Graph: scenario(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[struct {
		IsValid bool     `json:"isValid"`
		Errors  []string `json:"errors"`
	}](t, body)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)

	lone := flow.New()
	require.NoError(t, lone.AddNode(flow.NewReader("Reader_1", flow.Source{Name: "r"}, flow.Position{})))
	_, body = do(t, ts, http.MethodPost, "/v1/validate", graphRequest{Graph: flowio.FromGraph(lone)})
	res = decodeBody[struct {
		IsValid bool     `json:"isValid"`
		Errors  []string `json:"errors"`
	}](t, body)
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 2)
}

func TestCompile(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, body := do(t, ts, http.MethodPost, "/v1/compile", compileRequest{
		Graph:   scenario(t),
		Options: pipeline.Options{Name: "adults"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	doc := decodeBody[spec.Document](t, body)
	assert.Equal(t, "adults", doc.Name)
	require.Len(t, doc.Transformations, 2)
	assert.Equal(t, []string{"customers"}, doc.Transformations[1].DependentOn)

	resp, body = do(t, ts, http.MethodPost, "/v1/compile", compileRequest{
		Graph:   scenario(t),
		Options: pipeline.Options{Name: "adults", Format: spec.FormatYAML},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "condition: age > 18")
}

func TestCompileErrors(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	lone := flow.New()
	require.NoError(t, lone.AddNode(flow.NewReader("Reader_1", flow.Source{Name: "r"}, flow.Position{})))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"InvalidGraph", compileRequest{Graph: flowio.FromGraph(lone)}, http.StatusUnprocessableEntity, "INVALID_GRAPH"},
		{"BadJSON", `{"graph":`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"BadName", compileRequest{Graph: scenario(t), Options: pipeline.Options{Name: "a/b"}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"KindMismatch", `{"graph":{"nodes":[{"id":"Reader_1","type":"Filter","data":{"title":"x"}}],"edges":[]}}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"CyclicInput", `{"graph":{"nodes":[{"id":"Filter_1","data":{}},{"id":"Filter_2","data":{}}],"edges":[{"source":"Filter_1","target":"Filter_2"},{"source":"Filter_2","target":"Filter_1"}]}}`, http.StatusUnprocessableEntity, "INVALID_GRAPH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, http.MethodPost, "/v1/compile", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			e := decodeBody[errorResponse](t, body)
			assert.Equal(t, tt.code, string(e.Error))
			assert.NotEmpty(t, e.Message)
		})
	}

	_, body := do(t, ts, http.MethodPost, "/v1/compile", compileRequest{Graph: flowio.FromGraph(lone)})
	e := decodeBody[struct {
		Details struct {
			Errors []string          `json:"errors"`
			Logs   []json.RawMessage `json:"logs"`
		} `json:"details"`
	}](t, body)
	assert.Len(t, e.Details.Errors, 2)
	assert.NotEmpty(t, e.Details.Logs)
}

func TestDecompile(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	g, err := scenario(t).ToGraph()
	require.NoError(t, err)
	doc, err := compile.Compile(g, compile.Meta{Name: "adults"})
	require.NoError(t, err)

	resp, body := do(t, ts, http.MethodPost, "/v1/decompile", decompileRequest{Document: doc, Concurrency: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeBody[decompileResponse](t, body)
	assert.Len(t, out.Graph.Nodes, 3)
	assert.Len(t, out.Graph.Edges, 2)
	assert.Empty(t, out.Report.Failures)
	assert.Equal(t, pipeline.DefaultSpacing, out.Graph.Nodes[1].Position.X)

	resp, body = do(t, ts, http.MethodPost, "/v1/decompile", decompileRequest{Document: doc, Spacing: 90})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out = decodeBody[decompileResponse](t, body)
	assert.Equal(t, 180.0, out.Graph.Nodes[2].Position.X)

	resp, _ = do(t, ts, http.MethodPost, "/v1/decompile", decompileRequest{Document: doc, Spacing: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/v1/decompile", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, ts, http.MethodPost, "/v1/decompile", `{"document":{"name":"x","transformations":[{"name":"a"}]}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_DOCUMENT", string(decodeBody[errorResponse](t, body).Error))
}

func TestCheckConnection(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	tests := []struct {
		name           string
		source, target string
		valid          bool
		reason         string
	}{
		{"Fresh", "Reader_1", "Target_1", true, ""},
		{"Cycle", "Target_1", "Reader_1", false, "cycle"},
		{"SelfLoop", "Filter_1", "Filter_1", false, "itself"},
		{"Duplicate", "Reader_1", "Filter_1", false, "duplicate"},
		{"Unknown", "Reader_9", "Filter_1", false, "unknown source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, http.MethodPost, "/v1/connections/check", connectionRequest{
				Graph: scenario(t), Source: tt.source, Target: tt.target,
			})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decodeBody[connectionResponse](t, body)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Contains(t, got.Reason, tt.reason)
		})
	}

	resp, body := do(t, ts, http.MethodPost, "/v1/connections/check", `{"graph":{"nodes":[],"edges":[]}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Source: field is required")
}

func TestAutoConnect(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	g := flow.New()
	require.NoError(t, g.AddNode(flow.NewReader("Reader_1", flow.Source{Name: "a"}, flow.Position{})))
	require.NoError(t, g.AddNode(flow.NewTransformation("Filter_1", "f", nil, flow.Position{X: 180})))

	resp, body := do(t, ts, http.MethodPost, "/v1/autoconnect", autoConnectRequest{Graph: flowio.FromGraph(g)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[autoConnectResponse](t, body)
	require.Len(t, out.Added, 1)
	assert.Equal(t, "eReader_1-Filter_1", out.Added[0].ID)
	require.NotNil(t, out.Graph)
	assert.Len(t, out.Graph.Edges, 1)
	assert.Empty(t, out.Rejected)
}

func TestSessionLifecycle(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, body := do(t, ts, http.MethodPost, "/v1/sessions", createSessionRequest{Name: "orders"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	snap := decodeBody[session.Snapshot](t, body)
	require.NotEmpty(t, snap.ID)
	base := "/v1/sessions/" + snap.ID

	// Reader_1 at x=0, Filter_1 far away, Target_1 right of the filter.
	for _, n := range []addNodeRequest{
		{Kind: flow.KindReader, Title: "customers", Source: &flow.Source{ID: "src-1", Name: "customers"}},
		{Kind: flow.KindFilter, Title: "adults", Position: flow.Position{X: 600, Y: 300}, Params: map[string]any{"condition": "age > 18"}},
		{Kind: flow.KindTarget, Title: "warehouse", Position: flow.Position{X: 900}},
	} {
		resp, body := do(t, ts, http.MethodPost, base+"/nodes", n)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body = do(t, ts, http.MethodPost, base+"/nodes", addNodeRequest{Kind: "Pivot"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_NODE", string(decodeBody[errorResponse](t, body).Error))

	// Dragging the filter next to the reader connects them.
	resp, body = do(t, ts, http.MethodPut, base+"/nodes/Filter_1/position", flow.Position{X: 180})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	moved := decodeBody[moveResponse](t, body)
	assert.Equal(t, 180.0, moved.Node.Position.X)
	require.Len(t, moved.Added, 1)
	assert.Equal(t, "Reader_1", moved.Added[0].Source)

	resp, body = do(t, ts, http.MethodPost, base+"/edges", addEdgeRequest{Source: "Filter_1", Target: "Target_1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, ts, http.MethodPost, base+"/edges", addEdgeRequest{Source: "Target_1", Target: "Reader_1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_CONNECTION", string(decodeBody[errorResponse](t, body).Error))

	resp, body = do(t, ts, http.MethodPatch, base+"/nodes/Filter_1", renameRequest{Title: "grown-ups"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "grown-ups", decodeBody[flowio.Node](t, body).Data.Title)

	resp, body = do(t, ts, http.MethodPatch, base+"/nodes/Target_1", renameRequest{Title: "grown-ups"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_NODE", string(decodeBody[errorResponse](t, body).Error))

	resp, body = do(t, ts, http.MethodPost, base+"/compile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	doc := decodeBody[spec.Document](t, body)
	_, renamed := doc.Transformation("grown-ups")
	assert.True(t, renamed, "compiled document should carry the new title")
	assert.Equal(t, "orders", doc.Name)
	assert.Equal(t, "src-1", doc.Sources[0].SourceID)

	resp, body = do(t, ts, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeBody[session.Snapshot](t, body)
	assert.Len(t, snap.Graph.Nodes, 3)
	assert.Len(t, snap.Graph.Edges, 2)

	resp, _ = do(t, ts, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = do(t, ts, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", string(decodeBody[errorResponse](t, body).Error))
}

func TestSessionErrors(t *testing.T) {
	s, ts := setupTestServer(t, nil)

	resp, body := do(t, ts, http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", string(decodeBody[errorResponse](t, body).Error))

	expired := session.New("old", nil, -1)
	require.NoError(t, s.sessions.Set(context.Background(), expired))
	resp, _ = do(t, ts, http.MethodGet, "/v1/sessions/"+expired.ID, nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	live := session.New("live", nil, 0)
	require.NoError(t, s.sessions.Set(context.Background(), live))
	resp, body = do(t, ts, http.MethodPut, "/v1/sessions/"+live.ID+"/nodes/Filter_9/position", flow.Position{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NODE_NOT_FOUND", string(decodeBody[errorResponse](t, body).Error))

	resp, _ = do(t, ts, http.MethodPut, "/v1/sessions/"+live.ID+"/nodes/bogus/position", flow.Position{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, ts, http.MethodPatch, "/v1/sessions/"+live.ID+"/nodes/Filter_9", renameRequest{Title: "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NODE_NOT_FOUND", string(decodeBody[errorResponse](t, body).Error))

	resp, body = do(t, ts, http.MethodGet, "/v1/sessions/"+live.ID+"/nodes/Filter_1/columns", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "UNSUPPORTED", string(decodeBody[errorResponse](t, body).Error))
}

func TestSuggestColumns(t *testing.T) {
	cat := catalog.NewMemory()
	cat.Put(flow.Source{ID: "src-1", Name: "customers"})
	cat.PutLayout("src-1", []catalog.Field{{Name: "id", Type: "int"}, {Name: "age", Type: "int"}})
	_, ts := setupTestServer(t, cat)

	resp, body := do(t, ts, http.MethodPost, "/v1/sessions", createSessionRequest{Graph: ptr(scenario(t))})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	id := decodeBody[session.Snapshot](t, body).ID

	resp, body = do(t, ts, http.MethodGet, "/v1/sessions/"+id+"/nodes/Target_1/columns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	cols := decodeBody[columnsResponse](t, body)
	require.Len(t, cols.Columns, 2)
	assert.Equal(t, "id", cols.Columns[0].Name)
}

func TestBodyLimit(t *testing.T) {
	logger := log.New(io.Discard)
	s := New(nil, nil, Options{Logger: logger, MaxBodyBytes: 16})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, body := do(t, ts, http.MethodPost, "/v1/validate", graphRequest{Graph: scenario(t)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "exceeds 16 bytes")

	resp, _ = do(t, ts, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics are not mounted without a registry")
}

func TestRunShutsDown(t *testing.T) {
	logger := log.New(io.Discard)
	s := New(nil, nil, Options{Logger: logger, Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

func ptr[T any](v T) *T { return &v }
