package flow

// Order returns the nodes reachable upstream from any Target, dependencies first.
//
// Targets are visited in insertion order; for each node the sources of its incoming
// edges are visited in edge order before the node itself is emitted. A node is marked
// visited before its inputs are explored, so Order terminates on cyclic graphs and
// emits every node at most once. Nodes with no path to a Target are omitted.
func Order(g *Graph) []*Node {
	visited := make(map[string]bool, len(g.nodes))
	out := make([]*Node, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		for _, src := range g.incoming[id] {
			if !visited[src] {
				visit(src)
			}
		}
		if n, ok := g.byID[id]; ok {
			out = append(out, n)
		}
	}

	for _, n := range g.nodes {
		if n.Kind() == KindTarget && !visited[n.ID] {
			visit(n.ID)
		}
	}
	return out
}

// Transformations filters nodes down to transformation kinds, keeping order.
func Transformations(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n.Kind().IsTransformation() {
			out = append(out, n)
		}
	}
	return out
}
