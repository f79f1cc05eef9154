// Package decompile rebuilds a pipeline graph from a specification document.
//
// # Algorithm
//
// Decompilation inverts [compile.Compile] as far as the document allows:
//
//  1. Every source declaration is resolved against a [catalog.Catalog] by source_id
//     (or by name when the declaration has no id). Lookups run concurrently, bounded
//     by [WithConcurrency], but Reader nodes are created in document order. A source
//     whose lookup fails is skipped and recorded in [Report.Failures].
//  2. Every non-Reader transformation becomes a node titled with its declared name,
//     or a generated "<Kind><n>" title when the name is empty. Explicit duplicate
//     names are kept as-is. Each dependent_on entry is resolved to the most recently
//     created node with that title and becomes an edge. References that match no
//     node are dropped and recorded in [Report.Unresolved].
//  3. When the document declares targets, a single Target node is created from the
//     first declaration and connected from the node created immediately before it.
//
// Nodes are laid out left to right in creation order. The result is not validated;
// callers that need a compilable graph run [validate.Validate] on it.
//
// # Cancellation
//
// The context is passed to every catalog lookup. When it is cancelled Decompile
// returns ctx.Err() and no graph.
//
// [compile.Compile]: github.com/matzehuels/flowcraft/pkg/compile
// [validate.Validate]: github.com/matzehuels/flowcraft/pkg/validate
package decompile
