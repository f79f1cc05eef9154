package decompile

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flowcraft/pkg/catalog"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

const (
	// DefaultConcurrency bounds parallel catalog lookups.
	DefaultConcurrency = 4

	// DefaultSpacing is the horizontal distance between consecutive nodes.
	DefaultSpacing = 250.0
)

// Failure records a source that could not be resolved.
type Failure struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// Error implements error.
func (f Failure) Error() string {
	return fmt.Sprintf("source %q (%s): %v", f.Source, f.SourceID, f.Err)
}

// Unwrap returns the lookup error.
func (f Failure) Unwrap() error { return f.Err }

// Reference is a dependent_on entry that matched no node.
type Reference struct {
	Step      string `json:"step"`
	DependsOn string `json:"depends_on"`
}

// Report lists what a decompilation could not reproduce.
type Report struct {
	Failures   []Failure   `json:"failures"`
	Unresolved []Reference `json:"unresolved"`
}

// Complete reports whether every source and reference was resolved.
func (r *Report) Complete() bool {
	return len(r.Failures) == 0 && len(r.Unresolved) == 0
}

// Option configures a [Decompiler].
type Option func(*Decompiler)

// WithConcurrency bounds parallel catalog lookups. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(d *Decompiler) { d.concurrency = max(n, 1) }
}

// WithLogger sets the logger used for lookup failures.
func WithLogger(l *log.Logger) Option {
	return func(d *Decompiler) { d.logger = l }
}

// WithSpacing sets the horizontal distance between nodes.
func WithSpacing(dx float64) Option {
	return func(d *Decompiler) { d.spacing = dx }
}

// Decompiler turns documents into graphs. It is safe for concurrent use.
type Decompiler struct {
	catalog     catalog.Catalog
	concurrency int
	spacing     float64
	logger      *log.Logger
}

// New returns a Decompiler that resolves sources through cat.
func New(cat catalog.Catalog, opts ...Option) *Decompiler {
	d := &Decompiler{
		catalog:     cat,
		concurrency: DefaultConcurrency,
		spacing:     DefaultSpacing,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type lookup struct {
	src *flow.Source
	err error
}

// Decompile rebuilds a graph from doc.
func (d *Decompiler) Decompile(ctx context.Context, doc *spec.Document) (*flow.Graph, *Report, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("decompile: nil document")
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}

	lookups, err := d.fetch(ctx, doc.Sources)
	if err != nil {
		return nil, nil, err
	}

	b := &builder{
		g:       flow.New(),
		spacing: d.spacing,
		report:  &Report{Failures: []Failure{}, Unresolved: []Reference{}},
	}

	for i, decl := range doc.Sources {
		res := lookups[i]
		if res.err != nil {
			d.logger.Warn("source lookup failed", "source", decl.Name, "source_id", sourceKey(decl), "err", res.err)
			b.report.Failures = append(b.report.Failures, Failure{
				Source:   decl.Name,
				SourceID: sourceKey(decl),
				Reason:   res.err.Error(),
				Err:      res.err,
			})
			continue
		}
		src := *res.src
		if decl.Name != "" {
			src.Name = decl.Name
		}
		b.add(flow.NewReader(b.g.NextID(flow.KindReader), src, flow.Position{}))
	}

	for _, step := range doc.Steps() {
		if step.Kind == spec.KindWriter {
			continue
		}
		b.step(step)
	}

	if len(doc.Targets) > 0 {
		b.target(doc.Targets[0])
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return b.g, b.report, nil
}

// fetch resolves every source declaration, keeping results in declaration order.
// Lookup errors are collected per source; only cancellation aborts.
func (d *Decompiler) fetch(ctx context.Context, decls []spec.SourceDecl) ([]lookup, error) {
	results := make([]lookup, len(decls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i, decl := range decls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			src, err := d.catalog.Source(gctx, sourceKey(decl))
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err == nil && src == nil {
				err = fmt.Errorf("%w: source %q", catalog.ErrNotFound, sourceKey(decl))
			}
			d.logger.Debug("source lookup", "source", decl.Name, "duration", time.Since(start), "ok", err == nil)
			results[i] = lookup{src: src, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// sourceKey is the catalog identifier of a declaration.
func sourceKey(decl spec.SourceDecl) string {
	if decl.SourceID != "" {
		return decl.SourceID
	}
	return decl.Name
}

type builder struct {
	g       *flow.Graph
	spacing float64
	report  *Report
	last    string
	created int
}

// add places n at the next column and inserts it without title checks.
func (b *builder) add(n flow.Node) {
	n.Position = flow.Position{X: float64(b.created) * b.spacing}
	if n.Title == "" {
		n.Title = b.g.UniqueTitle(n.Kind())
	}
	// Insert only fails on id collisions, which NextID rules out.
	_ = b.g.Insert(n)
	b.created++
	b.last = n.ID
}

func (b *builder) step(decl spec.TransformationDecl) {
	kind := flow.Kind(decl.Kind)

	// Resolve before inserting so a step naming itself cannot loop.
	var sources []string
	for _, dep := range decl.DependentOn {
		n, ok := b.g.NodeByTitle(dep)
		if !ok {
			b.report.Unresolved = append(b.report.Unresolved, Reference{Step: decl.Name, DependsOn: dep})
			continue
		}
		sources = append(sources, n.ID)
	}

	id := b.g.NextID(kind)
	b.add(flow.NewTransformation(id, decl.Name, maps.Clone(decl.Fields), flow.Position{}))
	for _, src := range sources {
		if b.g.HasEdge(src, id) {
			continue
		}
		_ = b.g.Connect(flow.NewEdge(src, id))
	}
}

func (b *builder) target(decl spec.TargetDecl) {
	dst := flow.Destination{Name: decl.Name, LoadMode: decl.LoadMode}
	if decl.File != nil {
		dst.Path = decl.File.Path
	}
	if decl.Connection != nil {
		dst.ConnectionType = decl.Connection.Type
		dst.ConnectionName = decl.Connection.Name
	}
	prev := b.last
	id := b.g.NextID(flow.KindTarget)
	b.add(flow.NewTarget(id, dst, flow.Position{}))
	if prev != "" {
		_ = b.g.Connect(flow.NewEdge(prev, id))
	}
}
