package flow

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] and [Graph.Insert] when the node
	// ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] and [Graph.Insert] when a node
	// with the same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDuplicateTitle is returned by [Graph.AddNode] when another node already uses
	// the title. Titles are the join key of the pipeline document.
	ErrDuplicateTitle = errors.New("duplicate node title")

	// ErrUnknownNode is returned by operations that address a node that does not exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the edge source
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the edge target
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrUnknownEdge is returned by [Graph.RemoveEdge] when no edge has the given ID.
	ErrUnknownEdge = errors.New("unknown edge")
)

// Position is a canvas coordinate in pixels. The origin is the top-left corner.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Source describes the registered data source behind a Reader node.
type Source struct {
	ID             string `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string `json:"name" bson:"name"`
	FilePath       string `json:"file_path,omitempty" bson:"file_path,omitempty"`
	FileFormat     string `json:"file_format,omitempty" bson:"file_format,omitempty"`
	ConnectionType string `json:"connection_type,omitempty" bson:"connection_type,omitempty"`
	ConnectionName string `json:"connection_name,omitempty" bson:"connection_name,omitempty"`
	PathPrefix     string `json:"path_prefix,omitempty" bson:"path_prefix,omitempty"`
}

// Destination describes where a Target node writes.
type Destination struct {
	Name           string `json:"name,omitempty" bson:"name,omitempty"`
	ConnectionType string `json:"connection_type,omitempty" bson:"connection_type,omitempty"`
	ConnectionName string `json:"connection_name,omitempty" bson:"connection_name,omitempty"`
	Path           string `json:"path,omitempty" bson:"path,omitempty"`
	LoadMode       string `json:"load_mode,omitempty" bson:"load_mode,omitempty"`
}

// Node is a single step on the canvas.
//
// Exactly one payload applies, chosen by kind: Readers carry Source, Targets carry
// Destination, and transformations carry Params. Params is a free-form map whose
// keys depend on the kind (for example "condition" for Filter).
type Node struct {
	ID       string   // "<Kind>_<n>"
	Title    string   // Display name, unique within a graph built through AddNode
	Position Position // Canvas coordinate

	Source      *Source
	Destination *Destination
	Params      map[string]any
}

// Kind returns the kind encoded in the node ID.
func (n *Node) Kind() Kind { return KindOf(n.ID) }

// Ports returns the port capabilities of the node's kind.
func (n *Node) Ports() Ports { return PortsFor(n.Kind()) }

// Icon returns the palette icon name of the node's kind.
func (n *Node) Icon() string { return IconFor(n.Kind()) }

// Param returns a single transformation parameter.
func (n *Node) Param(key string) (any, bool) {
	v, ok := n.Params[key]
	return v, ok
}

func (n *Node) clone() *Node {
	c := *n
	if n.Source != nil {
		src := *n.Source
		c.Source = &src
	}
	if n.Destination != nil {
		dst := *n.Destination
		c.Destination = &dst
	}
	if n.Params != nil {
		c.Params = maps.Clone(n.Params)
	}
	return &c
}

// NewReader returns a Reader node titled after its source.
func NewReader(id string, src Source, pos Position) Node {
	return Node{ID: id, Title: src.Name, Position: pos, Source: &src}
}

// NewTarget returns a Target node titled after its destination, or "Target" when unnamed.
func NewTarget(id string, dst Destination, pos Position) Node {
	title := dst.Name
	if title == "" {
		title = string(KindTarget)
	}
	return Node{ID: id, Title: title, Position: pos, Destination: &dst}
}

// NewTransformation returns a transformation node. params may be nil.
func NewTransformation(id, title string, params map[string]any, pos Position) Node {
	if params == nil {
		params = map[string]any{}
	}
	return Node{ID: id, Title: title, Position: pos, Params: params}
}

// =============================================================================
// Edges
// =============================================================================

// Handle names. Every node exposes at most one handle of each type.
const (
	HandleSource = "source"
	HandleTarget = "target"
)

// EdgeStyle holds presentation attributes carried through to the canvas.
type EdgeStyle struct {
	Type      string `json:"type,omitempty"`
	Animated  bool   `json:"animated,omitempty"`
	MarkerEnd string `json:"markerEnd,omitempty"`
}

// DefaultEdgeStyle is applied by NewEdge.
var DefaultEdgeStyle = EdgeStyle{Type: "smoothstep", MarkerEnd: "arrowclosed"}

// Edge is a directed connection: Target consumes the output of Source.
type Edge struct {
	ID           string
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
	Style        EdgeStyle
}

// EdgeID returns the canonical ID "e<source>-<target>".
func EdgeID(source, target string) string { return "e" + source + "-" + target }

// NewEdge returns an edge with the canonical ID, default handles and default style.
func NewEdge(source, target string) Edge {
	return Edge{
		ID:           EdgeID(source, target),
		Source:       source,
		SourceHandle: HandleSource,
		Target:       target,
		TargetHandle: HandleTarget,
		Style:        DefaultEdgeStyle,
	}
}

// =============================================================================
// Graph
// =============================================================================

// Graph is the pipeline canvas: an ordered node list plus an ordered edge list.
//
// Order matters. Validation reports, the compiled Readers section and the Target
// traversal all follow insertion order, so two graphs with the same contents but
// different insertion order may compile differently.
//
// The zero value is not usable; call New.
type Graph struct {
	nodes    []*Node
	byID     map[string]*Node
	titles   map[string][]string // title -> node IDs in insertion order
	edges    []Edge
	outgoing map[string][]string // nodeID -> target IDs
	incoming map[string][]string // nodeID -> source IDs
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byID:     make(map[string]*Node),
		titles:   make(map[string][]string),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode appends a node after checking that its ID and title are unused.
// An empty title is replaced with [Graph.UniqueTitle] for the node's kind.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.byID[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if n.Title == "" {
		n.Title = g.UniqueTitle(n.Kind())
	}
	if g.HasTitle(n.Title) {
		return fmt.Errorf("%w: %q", ErrDuplicateTitle, n.Title)
	}
	g.insert(&n)
	return nil
}

// Insert appends a node checking only ID uniqueness. Duplicate titles are kept;
// [Graph.NodeByTitle] then resolves to the most recently inserted one.
func (g *Graph) Insert(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.byID[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	g.insert(&n)
	return nil
}

func (g *Graph) insert(n *Node) {
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
	g.titles[n.Title] = append(g.titles[n.Title], n.ID)
}

// Create adds a node of the given kind with the next free ID. An empty title
// is replaced with the next free default title.
func (g *Graph) Create(kind Kind, title string, pos Position) (*Node, error) {
	id := g.NextID(kind)
	var n Node
	switch kind {
	case KindReader:
		n = NewReader(id, Source{Name: title}, pos)
	case KindTarget:
		n = NewTarget(id, Destination{Name: title}, pos)
	default:
		n = NewTransformation(id, title, nil, pos)
	}
	n.Title = title
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	return g.byID[id], nil
}

// AddEdge appends an edge without any structural checks beyond endpoint existence.
// An empty edge ID is replaced with [EdgeID]. Use [Graph.Connect] for guarded edits.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.byID[e.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.Source)
	}
	if _, ok := g.byID[e.Target]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.Target)
	}
	if e.ID == "" {
		e.ID = EdgeID(e.Source, e.Target)
	}
	if e.SourceHandle == "" {
		e.SourceHandle = HandleSource
	}
	if e.TargetHandle == "" {
		e.TargetHandle = HandleTarget
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.Target)
	g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	return nil
}

// RemoveEdge removes the first edge with the given ID.
func (g *Graph) RemoveEdge(id string) error {
	i := slices.IndexFunc(g.edges, func(e Edge) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEdge, id)
	}
	e := g.edges[i]
	g.edges = slices.Delete(g.edges, i, i+1)
	g.outgoing[e.Source] = removeOne(g.outgoing[e.Source], e.Target)
	g.incoming[e.Target] = removeOne(g.incoming[e.Target], e.Source)
	return nil
}

// RemoveNode removes a node together with every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(m *Node) bool { return m.ID == id })
	delete(g.byID, id)
	if ids := removeOne(g.titles[n.Title], id); len(ids) > 0 {
		g.titles[n.Title] = ids
	} else {
		delete(g.titles, n.Title)
	}

	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Source == id || e.Target == id })
	for _, t := range g.outgoing[id] {
		g.incoming[t] = slices.DeleteFunc(g.incoming[t], func(s string) bool { return s == id })
	}
	for _, s := range g.incoming[id] {
		g.outgoing[s] = slices.DeleteFunc(g.outgoing[s], func(t string) bool { return t == id })
	}
	delete(g.outgoing, id)
	delete(g.incoming, id)
	return nil
}

// Move sets a node's canvas position.
func (g *Graph) Move(id string, pos Position) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Position = pos
	return nil
}

// Rename changes a node's title, keeping the title index current. Like AddNode it
// rejects a title another node already uses and replaces an empty one with
// [Graph.UniqueTitle].
func (g *Graph) Rename(id, title string) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if title == n.Title {
		return nil
	}
	if title == "" {
		title = g.UniqueTitle(n.Kind())
	}
	if g.HasTitle(title) {
		return fmt.Errorf("%w: %q", ErrDuplicateTitle, title)
	}
	if ids := removeOne(g.titles[n.Title], id); len(ids) > 0 {
		g.titles[n.Title] = ids
	} else {
		delete(g.titles, n.Title)
	}
	n.Title = title
	g.titles[title] = append(g.titles[title], id)
	return nil
}

func removeOne(s []string, v string) []string {
	if i := slices.Index(s, v); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}

// =============================================================================
// Queries
// =============================================================================

// Nodes returns all nodes in insertion order. The pointers refer to the graph's
// own nodes; change IDs and titles only through the graph.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// NodesOfKind returns the nodes of one kind in insertion order.
func (g *Graph) NodesOfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind() == k {
			out = append(out, n)
		}
	}
	return out
}

// Incomers returns the IDs of nodes with an edge into id, in edge order.
// The slice is a read-only view.
func (g *Graph) Incomers(id string) []string { return g.incoming[id] }

// Outgoers returns the IDs of nodes that id has an edge to, in edge order.
// The slice is a read-only view.
func (g *Graph) Outgoers(id string) []string { return g.outgoing[id] }

// InDegree returns the number of edges into id.
func (g *Graph) InDegree(id string) int { return len(g.incoming[id]) }

// OutDegree returns the number of edges out of id.
func (g *Graph) OutDegree(id string) int { return len(g.outgoing[id]) }

// InEdges returns the edges whose target is id, in edge order.
func (g *Graph) InEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// OutEdges returns the edges whose source is id, in edge order.
func (g *Graph) OutEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether at least one edge runs from source to target.
func (g *Graph) HasEdge(source, target string) bool {
	return slices.Contains(g.outgoing[source], target)
}

// HasTitle reports whether any node uses title.
func (g *Graph) HasTitle(title string) bool { return len(g.titles[title]) > 0 }

// DuplicateTitles maps every title used by more than one node to the IDs sharing
// it, in insertion order. It returns nil when all titles are unique.
func (g *Graph) DuplicateTitles() map[string][]string {
	var dups map[string][]string
	for title, ids := range g.titles {
		if len(ids) < 2 {
			continue
		}
		if dups == nil {
			dups = make(map[string][]string)
		}
		dups[title] = slices.Clone(ids)
	}
	return dups
}

// NodeByTitle returns the most recently inserted node with the given title.
func (g *Graph) NodeByTitle(title string) (*Node, bool) {
	ids := g.titles[title]
	if len(ids) == 0 {
		return nil, false
	}
	return g.byID[ids[len(ids)-1]], true
}

// NextID returns "<kind>_<n>" where n is one more than the highest numeric suffix
// currently used by that kind.
func (g *Graph) NextID(kind Kind) string {
	max := 0
	for _, n := range g.nodes {
		if n.Kind() != kind {
			continue
		}
		suffix := n.ID[strings.LastIndex(n.ID, "_")+1:]
		if v, err := strconv.Atoi(suffix); err == nil && v > max {
			max = v
		}
	}
	return fmt.Sprintf("%s_%d", kind, max+1)
}

// UniqueTitle returns the first unused title of the form "<kind><n>", n >= 1.
func (g *Graph) UniqueTitle(kind Kind) string {
	for i := 1; ; i++ {
		title := fmt.Sprintf("%s%d", kind, i)
		if !g.HasTitle(title) {
			return title
		}
	}
}

// Clone returns a deep copy of the graph. Params maps are copied one level deep.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, n := range g.nodes {
		c.insert(n.clone())
	}
	for _, e := range g.edges {
		_ = c.AddEdge(e)
	}
	return c
}
