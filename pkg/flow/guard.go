package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfLoop is returned by [Graph.Connect] for an edge from a node to itself.
	ErrSelfLoop = errors.New("edge connects a node to itself")

	// ErrDuplicateEdge is returned by [Graph.Connect] when the same source and target
	// are already connected.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrCycle is returned by [Graph.Connect] when the edge would close a cycle.
	ErrCycle = errors.New("edge would create a cycle")
)

// IsValidConnection reports whether adding candidate to g keeps the graph acyclic.
//
// It walks forward from candidate.Target along existing edges; if candidate.Source
// is reachable, the new edge would close a loop. A self-loop is always rejected.
// Each node is expanded at most once, so the check runs in O(N+E) even on graphs
// that already contain cycles.
func IsValidConnection(candidate Edge, g *Graph) bool {
	if candidate.Source == candidate.Target {
		return false
	}
	visited := make(map[string]bool)
	var reaches func(id string) bool
	reaches = func(id string) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, next := range g.outgoing[id] {
			if next == candidate.Source {
				return true
			}
			if reaches(next) {
				return true
			}
		}
		return false
	}
	return !reaches(candidate.Target)
}

// Connect adds e after checking it against the graph. It returns ErrSelfLoop,
// ErrUnknownSourceNode, ErrUnknownTargetNode, ErrDuplicateEdge or ErrCycle.
// Missing ID, handles and style are filled with the defaults of [NewEdge].
func (g *Graph) Connect(e Edge) error {
	if e.Source == e.Target {
		return fmt.Errorf("%w: %s", ErrSelfLoop, e.Source)
	}
	if _, ok := g.byID[e.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.Source)
	}
	if _, ok := g.byID[e.Target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.Target)
	}
	if g.HasEdge(e.Source, e.Target) {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, e.Source, e.Target)
	}
	if !IsValidConnection(e, g) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, e.Source, e.Target)
	}
	if e.Style == (EdgeStyle{}) {
		e.Style = DefaultEdgeStyle
	}
	return g.AddEdge(e)
}

// HasCycle reports whether g contains a directed cycle. Graphs built only through
// Connect never do; graphs loaded with AddEdge may.
func HasCycle(g *Graph) bool {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, next := range g.outgoing[id] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, n := range g.nodes {
		if color[n.ID] == white && visit(n.ID) {
			return true
		}
	}
	return false
}
