// Package render draws pipeline graphs as diagrams.
//
// [ToDOT] converts a [flow.Graph] to Graphviz DOT, laid out left to right in data-flow
// direction. Readers and Targets are filled so the ends of the pipeline stand out;
// transformations show their kind under the title. [RenderSVG] runs the DOT through
// the embedded Graphviz engine (go-graphviz, no system install needed).
//
//	dot := render.ToDOT(g, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Formats are selected by name with [Render], which the CLI and the server share.
//
// [flow.Graph]: github.com/matzehuels/flowcraft/pkg/flow
package render
