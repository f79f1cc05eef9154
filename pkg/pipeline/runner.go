package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcraft/pkg/catalog"
	"github.com/matzehuels/flowcraft/pkg/compile"
	"github.com/matzehuels/flowcraft/pkg/decompile"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flow/proximity"
	"github.com/matzehuels/flowcraft/pkg/observability"
	"github.com/matzehuels/flowcraft/pkg/spec"
	"github.com/matzehuels/flowcraft/pkg/validate"
)

// Runner executes pipeline operations. It holds no per-run state and is safe for
// concurrent use as long as each call gets its own graph.
type Runner struct {
	Catalog   catalog.Catalog
	Logger    *log.Logger
	Validator *validate.Validator
}

// NewRunner returns a runner. A nil logger uses log.Default(); a nil catalog makes
// [Runner.Decompile] use the document's own source declarations.
func NewRunner(cat catalog.Catalog, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Catalog:   cat,
		Logger:    logger,
		Validator: validate.New(validate.WithLogger(logger)),
	}
}

// Validate checks g and reports the verdict to the pipeline hooks.
func (r *Runner) Validate(ctx context.Context, g *flow.Graph) validate.Result {
	start := time.Now()
	res := r.Validator.Validate(g)
	nodes, edges := 0, 0
	if g != nil {
		nodes, edges = g.NodeCount(), g.EdgeCount()
	}
	observability.Pipeline().OnValidate(ctx, nodes, edges, res.IsValid, time.Since(start))

	r.warnDuplicateTitles(g)
	counts := res.Counts()
	r.Logger.Info("validated pipeline",
		"valid", res.IsValid,
		"errors", len(res.Errors),
		"warnings", counts.Warning)
	return res
}

// Compile validates and compiles g. A graph that fails validation returns a
// *validate.Error.
func (r *Runner) Compile(ctx context.Context, g *flow.Graph, opts Options) (*spec.Document, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	r.warnDuplicateTitles(g)
	copts := []compile.Option{compile.WithValidator(r.Validator)}
	if opts.Writer {
		copts = append(copts, compile.WithWriter())
	}

	start := time.Now()
	doc, err := compile.Compile(g, compile.Meta{Name: opts.Name, Description: opts.Description}, copts...)
	duration := time.Since(start)
	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	observability.Pipeline().OnCompile(ctx, nodes, duration, err)
	if err != nil {
		r.Logger.Warn("compile rejected", "name", opts.Name, "err", err)
		return nil, err
	}

	r.Logger.Info("compiled pipeline",
		"name", doc.Name,
		"sources", len(doc.Sources),
		"transformations", len(doc.Transformations),
		"duration", duration)
	return doc, nil
}

// Decompile rebuilds a graph from doc.
func (r *Runner) Decompile(ctx context.Context, doc *spec.Document, opts Options) (*flow.Graph, *decompile.Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Spacing <= 0 {
		opts.Spacing = DefaultSpacing
	}
	var cat catalog.Catalog = r.Catalog
	if cat == nil {
		cat = catalog.FromDocument(doc)
	}

	d := decompile.New(cat,
		decompile.WithConcurrency(opts.Concurrency),
		decompile.WithSpacing(opts.Spacing),
		decompile.WithLogger(r.Logger))

	start := time.Now()
	g, report, err := d.Decompile(ctx, doc)
	duration := time.Since(start)
	nodes, failures := 0, 0
	if g != nil {
		nodes = g.NodeCount()
	}
	if report != nil {
		failures = len(report.Failures)
	}
	observability.Pipeline().OnDecompile(ctx, nodes, failures, duration, err)
	if err != nil {
		return nil, nil, err
	}

	r.Logger.Info("decompiled document",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"failures", failures,
		"unresolved", len(report.Unresolved),
		"duration", duration)
	return g, report, nil
}

// warnDuplicateTitles logs one warning per title shared by several nodes.
// dependent_on names steps by title, so only the last of them is reachable.
func (r *Runner) warnDuplicateTitles(g *flow.Graph) {
	if g == nil {
		return
	}
	dups := g.DuplicateTitles()
	for _, title := range slices.Sorted(maps.Keys(dups)) {
		ids := dups[title]
		r.Logger.Warn("duplicate node title", "title", title, "nodes", ids, "resolves_to", ids[len(ids)-1])
	}
}

// AutoConnect adds the edges suggested by overlapping handles.
func (r *Runner) AutoConnect(ctx context.Context, g *flow.Graph, opts proximity.Options) proximity.Result {
	res := proximity.Connect(g, opts)
	for _, rej := range res.Rejected {
		r.Logger.Debug("auto-connect rejected", "source", rej.Edge.Source, "target", rej.Edge.Target, "reason", rej.Reason)
	}
	r.Logger.Info("auto-connected", "added", len(res.Added), "rejected", len(res.Rejected))
	return res
}
