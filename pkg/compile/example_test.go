package compile_test

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/flowcraft/pkg/compile"
	"github.com/matzehuels/flowcraft/pkg/flow"
)

func ExampleCompile() {
	g := flow.New()
	_ = g.AddNode(flow.NewReader("Reader_1", flow.Source{Name: "customers"}, flow.Position{}))
	_ = g.AddNode(flow.NewTransformation("Filter_1", "adults", map[string]any{"condition": "is_adult"}, flow.Position{}))
	_ = g.AddNode(flow.NewTarget("Target_1", flow.Destination{Name: "warehouse"}, flow.Position{}))
	_ = g.Connect(flow.NewEdge("Reader_1", "Filter_1"))
	_ = g.Connect(flow.NewEdge("Filter_1", "Target_1"))

	doc, err := compile.Compile(g, compile.Meta{Name: "adults"})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, step := range doc.Transformations {
		data, _ := json.Marshal(step)
		fmt.Println(string(data))
	}
	// Output:
	// {"name":"customers","kind":"Reader","dependent_on":[],"read_options":{"header":true,"infer_schema":true}}
	// {"name":"adults","kind":"Filter","dependent_on":["customers"],"condition":"is_adult"}
}
