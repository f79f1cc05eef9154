// Package proximity connects nodes whose handles overlap on the canvas.
//
// After a drag ends, every node contributes two square handles: a target handle centered
// on its left edge and a source handle centered on its right edge. Any source handle that
// overlaps a target handle of a different node yields a new edge, unless the pair is
// already connected.
//
// Candidates are checked against the cycle guard one at a time, taking into account the
// edges already accepted in the same pass, so a single bad overlap is rejected without
// discarding the rest. Set [Options].SkipCycleGuard to accept every overlap unchecked.
package proximity

import (
	"fmt"

	"github.com/matzehuels/flowcraft/pkg/flow"
)

// Dimensions are the fixed on-screen sizes used to derive handle geometry.
type Dimensions struct {
	NodeWidth  float64
	NodeHeight float64
	HandleSize float64
}

// DefaultDimensions matches the canvas node renderer.
var DefaultDimensions = Dimensions{NodeWidth: 180, NodeHeight: 60, HandleSize: 16}

// Options configure a Connect pass. The zero value uses DefaultDimensions with the
// cycle guard enabled.
type Options struct {
	Dimensions Dimensions

	// SkipCycleGuard accepts every overlapping pair, even if it closes a cycle.
	SkipCycleGuard bool

	// PortAware omits handles a kind does not have: no target handle on nodes
	// without inputs, no source handle on nodes without outputs.
	PortAware bool
}

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// Overlaps reports whether r and o intersect. Touching edges count as overlap.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.Right < o.Left || r.Left > o.Right || r.Bottom < o.Top || r.Top > o.Bottom)
}

// Handle is a connection point on a node.
type Handle struct {
	NodeID string
	Type   string // flow.HandleSource or flow.HandleTarget
	Rect   Rect
}

// Rejection records an overlapping pair that was not connected.
type Rejection struct {
	Edge   flow.Edge
	Reason error
}

// Result lists the edges appended to the graph and the candidates turned away.
type Result struct {
	Added    []flow.Edge
	Rejected []Rejection
}

// Handles returns the handle rectangles of every node in graph order. Each node
// contributes its target handle before its source handle.
func Handles(g *flow.Graph, opts Options) []Handle {
	d := opts.dimensions()
	half := d.HandleSize / 2
	var out []Handle
	for _, n := range g.Nodes() {
		midY := n.Position.Y + d.NodeHeight/2
		ports := n.Ports()
		if !opts.PortAware || ports.Inputs > 0 {
			out = append(out, Handle{
				NodeID: n.ID,
				Type:   flow.HandleTarget,
				Rect:   Rect{Left: n.Position.X - half, Top: midY - half, Right: n.Position.X + half, Bottom: midY + half},
			})
		}
		if !opts.PortAware || ports.Outputs > 0 {
			right := n.Position.X + d.NodeWidth
			out = append(out, Handle{
				NodeID: n.ID,
				Type:   flow.HandleSource,
				Rect:   Rect{Left: right - half, Top: midY - half, Right: right + half, Bottom: midY + half},
			})
		}
	}
	return out
}

// Candidates returns one edge per overlapping (source, target) handle pair on different
// nodes, in scan order, without consulting the graph's existing edges.
func Candidates(g *flow.Graph, opts Options) []flow.Edge {
	handles := Handles(g, opts)
	var out []flow.Edge
	for i := 0; i < len(handles); i++ {
		for j := i + 1; j < len(handles); j++ {
			a, b := handles[i], handles[j]
			if a.NodeID == b.NodeID || a.Type == b.Type {
				continue
			}
			if !a.Rect.Overlaps(b.Rect) {
				continue
			}
			src, tgt := a, b
			if a.Type == flow.HandleTarget {
				src, tgt = b, a
			}
			out = append(out, flow.NewEdge(src.NodeID, tgt.NodeID))
		}
	}
	return out
}

// Connect scans g for overlapping handles and appends the resulting edges in one batch.
func Connect(g *flow.Graph, opts Options) Result {
	var (
		res     Result
		pending = make(map[[2]string]bool)
		scratch *flow.Graph
	)
	if !opts.SkipCycleGuard {
		scratch = g.Clone()
	}

	for _, e := range Candidates(g, opts) {
		key := [2]string{e.Source, e.Target}
		if g.HasEdge(e.Source, e.Target) || pending[key] {
			continue
		}
		if scratch != nil {
			if !flow.IsValidConnection(e, scratch) {
				res.Rejected = append(res.Rejected, Rejection{
					Edge:   e,
					Reason: fmt.Errorf("%w: %s -> %s", flow.ErrCycle, e.Source, e.Target),
				})
				continue
			}
			_ = scratch.AddEdge(e)
		}
		pending[key] = true
		res.Added = append(res.Added, e)
	}

	for _, e := range res.Added {
		_ = g.AddEdge(e)
	}
	return res
}

func (o Options) dimensions() Dimensions {
	d := o.Dimensions
	if d.NodeWidth <= 0 {
		d.NodeWidth = DefaultDimensions.NodeWidth
	}
	if d.NodeHeight <= 0 {
		d.NodeHeight = DefaultDimensions.NodeHeight
	}
	if d.HandleSize <= 0 {
		d.HandleSize = DefaultDimensions.HandleSize
	}
	return d
}
