// Package flow provides the graph model for visually assembled data pipelines.
//
// # Overview
//
// A pipeline is drawn as a directed graph: Reader nodes produce data, transformation
// nodes (Filter, Joiner, Aggregator, ...) reshape it, and a Target node writes it out.
// An edge from A to B means "B consumes the output of A". This package holds that graph
// and the rules attached to each node kind; it performs no structural validation of its
// own. Whole-graph checks live in [validate], and serialization to the declarative
// pipeline document lives in [compile] and [decompile].
//
// # Node Identity
//
// Node IDs have the form "<Kind>_<n>" (for example "Reader_1" or "Joiner_3"). The prefix
// before the last underscore is the authoritative kind discriminator, so [Node.Kind] is
// derived from the ID rather than stored separately:
//
//	g := flow.New()
//	n, _ := g.Create(flow.KindFilter, "Adults only", flow.Position{X: 200})
//	fmt.Println(n.ID, n.Kind()) // Filter_1 Filter
//
// Titles are the human-facing names. The pipeline document links steps by title, not by
// ID, so titles must be unique. [Graph.AddNode] enforces this at creation time.
// [Graph.Insert] skips the title check and exists for reconstructing graphs from
// documents authored elsewhere, where duplicate names must be preserved as they are.
//
// # Ports
//
// Each kind has fixed port capabilities returned by [PortsFor]: Readers have no inputs,
// Targets have no outputs, Joiner and Union require two inputs and accept any number,
// and every other transformation takes exactly one input.
//
// # Connecting Nodes
//
// [Graph.AddEdge] is the raw, unchecked insertion used by importers. Interactive edits go
// through [Graph.Connect], which rejects self-loops, duplicates and edges that would close
// a cycle using [IsValidConnection]. Because edges are only ever added one at a time
// through the guard, a graph built this way is always acyclic.
//
// # Ordering
//
// [Order] linearizes the graph dependency-first by walking upstream from every Target.
// The compiler uses this order to emit transformations so that each one appears after
// everything it depends on.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. Callers that share a graph between
// goroutines (such as the HTTP session store) must synchronize access themselves.
//
// [validate]: github.com/matzehuels/flowcraft/pkg/validate
// [compile]: github.com/matzehuels/flowcraft/pkg/compile
// [decompile]: github.com/matzehuels/flowcraft/pkg/decompile
package flow
