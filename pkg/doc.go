// Package pkg provides the core libraries for Flowcraft pipeline authoring.
//
// # Overview
//
// Flowcraft keeps a visual data pipeline (a graph of readers, transformations and
// targets) and a declarative pipeline document in sync. The pkg directory is
// organized into four main areas:
//
//  1. Domain logic: [flow], [validate], [compile], [decompile], [spec]
//  2. Orchestration: [pipeline] ties the domain packages to a source [catalog]
//  3. Infrastructure: [cache], [httputil], [session], [config], [metrics]
//  4. Surfaces: [server] (HTTP API), [flowio] (graph files), [render] (DOT/SVG)
//
// # Architecture
//
// The two directions a pipeline travels:
//
//	Graph (canvas)                      Document (JSON/YAML)
//	     |                                     |
//	[validate] (rules + log trail)        [spec] (decode + validate)
//	     |                                     |
//	[compile] (dependency order)          [decompile] (catalog lookups)
//	     |                                     |
//	Document                              Graph (canvas)
//
// Editing helpers sit beside the graph: [flow] guards every new connection
// against cycles, self loops and duplicates, and [flow/proximity] proposes edges
// for nodes dropped close to each other.
//
// # Quick Start
//
// Build a graph, compile it and write the document as YAML:
//
//	import (
//	    "github.com/matzehuels/flowcraft/pkg/compile"
//	    "github.com/matzehuels/flowcraft/pkg/flow"
//	    "github.com/matzehuels/flowcraft/pkg/spec"
//	)
//
//	g := flow.New()
//	g.AddNode(flow.NewReader("Reader_1", flow.Source{Name: "customers"}, flow.Position{}))
//	g.AddNode(flow.NewTransformation("Filter_1", "adults", map[string]any{"condition": "age > 18"}, flow.Position{X: 250}))
//	g.AddNode(flow.NewTarget("Target_1", flow.Destination{Name: "warehouse"}, flow.Position{X: 500}))
//	g.Connect(flow.NewEdge("Reader_1", "Filter_1"))
//	g.Connect(flow.NewEdge("Filter_1", "Target_1"))
//
//	doc, err := compile.Compile(g, compile.Meta{Name: "adults"})
//	if err != nil {
//	    // *validate.Error carries the whole log trail
//	}
//	data, _ := spec.Marshal(doc, spec.FormatYAML)
//
// Going the other way needs a catalog to resolve source_id references:
//
//	cat, closeCat, _ := catalog.Open(ctx, catalog.Options{URL: "http://catalog:8080"})
//	defer closeCat(ctx)
//
//	runner := pipeline.NewRunner(cat, logger)
//	g, report, err := runner.Decompile(ctx, doc, pipeline.Options{})
//
// # Main Packages
//
// [flow] - The pipeline graph. Nodes are identified by ID, edges by their
// endpoints. Connections are checked by [flow.IsValidConnection] before they are
// added, and [flow.Order] yields a stable dependency order.
//
// [validate] - Structural rules (a reader and a target are required, every node is
// connected, transformations have their inputs). Produces a timestamped log of every check.
//
// [compile] and [decompile] - The two converters. Compile projects node parameters
// into declaration fields by kind; decompile fetches source metadata concurrently
// and lays the recovered nodes out left to right.
//
// [spec] - The document model with JSON and YAML codecs and struct validation.
//
// [catalog] - Source metadata backends: HTTP, MongoDB, in-memory, with an optional
// [cache] layer (file or Redis) in front.
//
// [server] - chi-based HTTP API exposing every operation plus editing sessions
// backed by [session].
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/flow/...               # Specific package
//	go test -run Example ./pkg/...       # Examples only
//
// [flow]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/flow
// [flow/proximity]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/flow/proximity
// [flow.IsValidConnection]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/flow#IsValidConnection
// [flow.Order]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/flow#Order
// [validate]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/validate
// [compile]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/compile
// [decompile]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/decompile
// [spec]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/spec
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/pipeline
// [catalog]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/catalog
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/httputil
// [session]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/config
// [metrics]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/metrics
// [server]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/server
// [flowio]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/flowio
// [render]: https://pkg.go.dev/github.com/matzehuels/flowcraft/pkg/render
package pkg
