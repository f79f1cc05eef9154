package flowio

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
)

func sample(t *testing.T) *flow.Graph {
	t.Helper()
	g := flow.New()
	for _, n := range []flow.Node{
		flow.NewReader("Reader_1", flow.Source{ID: "src-1", Name: "customers"}, flow.Position{X: 0, Y: 10}),
		flow.NewTransformation("Filter_1", "adults", map[string]any{"condition": "age > 18"}, flow.Position{X: 250}),
		flow.NewTarget("Target_1", flow.Destination{Name: "warehouse", LoadMode: "append"}, flow.Position{X: 500}),
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []flow.Edge{flow.NewEdge("Reader_1", "Filter_1"), flow.NewEdge("Filter_1", "Target_1")} {
		if err := g.Connect(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestRoundTrip(t *testing.T) {
	g := sample(t)
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if !reflect.DeepEqual(FromGraph(g), FromGraph(back)) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", FromGraph(g), FromGraph(back))
	}
}

func TestWriteJSONShape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(sample(t), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`"type": "Reader"`,
		`"icon": "database"`,
		`"sourceHandle": "source"`,
		`"markerEnd": {`,
		`"condition": "age \u003e 18"`,
		`"maxInputs": 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestReadJSONDefaults(t *testing.T) {
	in := `{"nodes":[{"id":"Reader_1","data":{"source":{"name":"a"}}},{"id":"Sorter_1","data":{}}],
	        "edges":[{"source":"Reader_1","target":"Sorter_1"}]}`
	g, err := ReadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	sorter, _ := g.Node("Sorter_1")
	if sorter.Title != "Sorter1" || sorter.Params == nil {
		t.Errorf("sorter = %+v, want generated title and empty params", sorter)
	}
	edges := g.Edges()
	if len(edges) != 1 || edges[0].ID != "eReader_1-Sorter_1" || edges[0].Style != flow.DefaultEdgeStyle {
		t.Errorf("edges = %+v, want defaults filled", edges)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"KindMismatch", `{"nodes":[{"id":"Filter_1","type":"Sorter","data":{}}],"edges":[]}`, ErrKindMismatch},
		{"DuplicateID", `{"nodes":[{"id":"Filter_1","data":{}},{"id":"Filter_1","data":{}}],"edges":[]}`, flow.ErrDuplicateNodeID},
		{"UnknownTarget", `{"nodes":[{"id":"Filter_1","data":{}}],"edges":[{"source":"Filter_1","target":"Filter_9"}]}`, flow.ErrUnknownTargetNode},
		{"UnknownSource", `{"nodes":[{"id":"Filter_1","data":{}}],"edges":[{"source":"Reader_3","target":"Filter_1"}]}`, flow.ErrUnknownSourceNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.in))
			if !stderrors.Is(err, tt.want) {
				t.Errorf("ReadJSON() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := ReadJSON(strings.NewReader("{"))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ReadJSON(malformed) code = %v, want INVALID_FORMAT", errors.GetCode(err))
	}
}

// Graphs edited with the cycle guard bypassed must load back unchanged.
func TestReadJSONUnguardedEdges(t *testing.T) {
	cyclic := sample(t)
	if err := cyclic.AddNode(flow.NewTransformation("Sorter_1", "sorted", map[string]any{"sort_by": "id"}, flow.Position{X: 250, Y: 200})); err != nil {
		t.Fatal(err)
	}
	for _, e := range []flow.Edge{flow.NewEdge("Filter_1", "Sorter_1"), flow.NewEdge("Sorter_1", "Filter_1")} {
		if err := cyclic.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}

	duplicated := sample(t)
	if err := duplicated.AddEdge(flow.NewEdge("Reader_1", "Filter_1")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		g         *flow.Graph
		wantEdges int
		wantCycle bool
	}{
		{"Cycle", cyclic, 4, true},
		{"DuplicateEdge", duplicated, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteJSON(tt.g, &buf); err != nil {
				t.Fatalf("WriteJSON() error = %v", err)
			}
			back, err := ReadJSON(&buf)
			if err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			if back.EdgeCount() != tt.wantEdges {
				t.Errorf("EdgeCount() = %d, want %d", back.EdgeCount(), tt.wantEdges)
			}
			if got := flow.HasCycle(back); got != tt.wantCycle {
				t.Errorf("HasCycle() = %v, want %v", got, tt.wantCycle)
			}
			if !reflect.DeepEqual(FromGraph(tt.g), FromGraph(back)) {
				t.Errorf("round trip mismatch:\n%+v\n%+v", FromGraph(tt.g), FromGraph(back))
			}
		})
	}
}

func TestReadJSONKeepsDuplicateTitles(t *testing.T) {
	in := `{"nodes":[{"id":"Filter_1","data":{"title":"f"}},{"id":"Filter_2","data":{"title":"f"}}],"edges":[]}`
	g, err := ReadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := g.NodeByTitle("f"); n.ID != "Filter_2" {
		t.Errorf("NodeByTitle(f) = %s, want Filter_2", n.ID)
	}
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := ExportJSON(sample(t), path); err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	g, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Errorf("imported %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if _, err := ImportJSON(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ImportJSON(missing) = %v, want FILE_NOT_FOUND", err)
	}
}
