package flowio

import (
	"errors"
	"fmt"

	"github.com/matzehuels/flowcraft/pkg/flow"
)

// ErrKindMismatch is returned when a node's type disagrees with its id prefix.
var ErrKindMismatch = errors.New("node type does not match id")

// Graph is the canvas representation of a [flow.Graph].
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one canvas node.
type Node struct {
	ID       string        `json:"id"`
	Type     string        `json:"type,omitempty"`
	Position flow.Position `json:"position"`
	Data     NodeData      `json:"data"`
}

// NodeData holds the node's title and kind payload.
type NodeData struct {
	Title       string            `json:"title"`
	Icon        string            `json:"icon,omitempty"`
	Ports       *flow.Ports       `json:"ports,omitempty"`
	Source      *flow.Source      `json:"source,omitempty"`
	Destination *flow.Destination `json:"destination,omitempty"`
	Params      map[string]any    `json:"params,omitempty"`
}

// Edge is one canvas edge.
type Edge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	SourceHandle string  `json:"sourceHandle,omitempty"`
	Target       string  `json:"target"`
	TargetHandle string  `json:"targetHandle,omitempty"`
	Type         string  `json:"type,omitempty"`
	Animated     bool    `json:"animated,omitempty"`
	MarkerEnd    *Marker `json:"markerEnd,omitempty"`
}

// Marker is an edge arrowhead.
type Marker struct {
	Type string `json:"type"`
}

// FromGraph converts g to its canvas form.
func FromGraph(g *flow.Graph) Graph {
	out := Graph{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, FromNode(n))
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, FromEdge(e))
	}
	return out
}

// FromNode converts one node, filling the icon and ports derived from its kind.
func FromNode(n *flow.Node) Node {
	ports := n.Ports()
	return Node{
		ID:       n.ID,
		Type:     string(n.Kind()),
		Position: n.Position,
		Data: NodeData{
			Title:       n.Title,
			Icon:        n.Icon(),
			Ports:       &ports,
			Source:      n.Source,
			Destination: n.Destination,
			Params:      n.Params,
		},
	}
}

// FromEdge converts one edge.
func FromEdge(e flow.Edge) Edge {
	we := Edge{
		ID:           e.ID,
		Source:       e.Source,
		SourceHandle: e.SourceHandle,
		Target:       e.Target,
		TargetHandle: e.TargetHandle,
		Type:         e.Style.Type,
		Animated:     e.Style.Animated,
	}
	if e.Style.MarkerEnd != "" {
		we.MarkerEnd = &Marker{Type: e.Style.MarkerEnd}
	}
	return we
}

// FromEdges converts a slice of edges; a nil slice yields an empty one.
func FromEdges(edges []flow.Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, FromEdge(e))
	}
	return out
}

// ToGraph builds a [flow.Graph]. Edges go through [flow.Graph.AddEdge], which only
// checks that both endpoints exist.
func (w Graph) ToGraph() (*flow.Graph, error) {
	g := flow.New()
	for _, n := range w.Nodes {
		if n.Type != "" && flow.Kind(n.Type) != flow.KindOf(n.ID) {
			return nil, fmt.Errorf("node %s: %w: type %q", n.ID, ErrKindMismatch, n.Type)
		}
		node := flow.Node{
			ID:          n.ID,
			Title:       n.Data.Title,
			Position:    n.Position,
			Source:      n.Data.Source,
			Destination: n.Data.Destination,
			Params:      n.Data.Params,
		}
		kind := flow.KindOf(n.ID)
		if node.Title == "" {
			node.Title = g.UniqueTitle(kind)
		}
		if kind.IsTransformation() && node.Params == nil {
			node.Params = map[string]any{}
		}
		if err := g.Insert(node); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range w.Edges {
		fe := flow.Edge{
			ID:           e.ID,
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
			Style:        flow.EdgeStyle{Type: e.Type, Animated: e.Animated},
		}
		if e.MarkerEnd != nil {
			fe.Style.MarkerEnd = e.MarkerEnd.Type
		}
		if err := g.AddEdge(fe); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return g, nil
}
