package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/matzehuels/flowcraft/pkg/flow"
)

// SuggestColumns returns the columns available at nodeID: the union of the layouts
// of every Reader upstream of it, in discovery order, first occurrence of a name
// winning. A Reader node itself yields its own layout. Readers without a source id
// or without a layout in the catalog contribute nothing. The graph is not modified.
func SuggestColumns(ctx context.Context, cat Catalog, g *flow.Graph, nodeID string) ([]Field, error) {
	if _, ok := g.Node(nodeID); !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrUnknownNode, nodeID)
	}

	fields := []Field{}
	seen := make(map[string]bool)
	for _, reader := range upstreamReaders(g, nodeID) {
		if reader.Source == nil || reader.Source.ID == "" {
			continue
		}
		layout, err := cat.Layout(ctx, reader.Source.ID)
		if stderrors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, f := range layout {
			if !seen[f.Name] {
				seen[f.Name] = true
				fields = append(fields, f)
			}
		}
	}
	return fields, nil
}

// upstreamReaders walks incoming edges breadth-first from id.
func upstreamReaders(g *flow.Graph, id string) []*flow.Node {
	var readers []*flow.Node
	visited := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if n, ok := g.Node(cur); ok && n.Kind().IsReader() {
			readers = append(readers, n)
		}
		for _, in := range g.Incomers(cur) {
			if !visited[in] {
				visited[in] = true
				queue = append(queue, in)
			}
		}
	}
	return readers
}
