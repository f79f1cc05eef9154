// Package compile turns a pipeline graph into a specification document.
//
// Compilation is gated by validation: a graph that fails [validate.Validate] is rejected
// with a *validate.Error carrying the whole log trail. A valid graph is compiled in
// three passes:
//
//  1. Every Reader, in graph order, becomes a source declaration plus a Reader step
//     with fixed read options.
//  2. Every transformation, in dependency order (see [flow.Order]), becomes a step whose
//     fields are projected from the node's parameters by kind, and whose dependent_on
//     lists the titles of its inputs.
//  3. Every Target becomes a target declaration.
//
// Writer steps for Targets can be emitted with [WithWriter]; by default connectivity to
// the target is expressed only through the target declaration.
//
// [validate.Validate]: github.com/matzehuels/flowcraft/pkg/validate
package compile

import (
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/spec"
	"github.com/matzehuels/flowcraft/pkg/validate"
)

// DefaultLoadMode is used for targets without an explicit load mode.
const DefaultLoadMode = "overwrite"

// Meta is the pipeline metadata supplied alongside the graph.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Option configures compilation.
type Option func(*compiler)

// WithWriter emits a Writer step for every Target, placed in dependency order.
func WithWriter() Option {
	return func(c *compiler) { c.writer = true }
}

// WithValidator replaces the default validator, for example to inject a clock.
func WithValidator(v *validate.Validator) Option {
	return func(c *compiler) { c.validator = v }
}

type compiler struct {
	writer    bool
	validator *validate.Validator
}

// ReadOptions are attached to every Reader step.
func ReadOptions() map[string]any {
	return map[string]any{"header": true, "infer_schema": true}
}

// Compile validates g and converts it into a document.
func Compile(g *flow.Graph, meta Meta, opts ...Option) (*spec.Document, error) {
	c := &compiler{}
	for _, opt := range opts {
		opt(c)
	}
	if c.validator == nil {
		c.validator = validate.New()
	}

	if err := c.validator.Validate(g).Err(); err != nil {
		return nil, err
	}

	doc := spec.New(meta.Name, meta.Description)
	var readers, steps []spec.TransformationDecl

	for _, n := range g.NodesOfKind(flow.KindReader) {
		doc.Sources = append(doc.Sources, sourceDecl(n))
		readers = append(readers, spec.TransformationDecl{
			Name:        n.Title,
			Kind:        spec.KindReader,
			DependentOn: []string{},
			Fields:      map[string]any{"read_options": ReadOptions()},
		})
	}

	for _, n := range flow.Order(g) {
		switch kind := n.Kind(); {
		case kind.IsReader():
		case kind.IsTarget():
			if c.writer {
				steps = append(steps, writerDecl(g, n))
			}
		default:
			steps = append(steps, spec.TransformationDecl{
				Name:        n.Title,
				Kind:        string(kind),
				DependentOn: dependentOn(g, n),
				Fields:      project(kind, n.Params),
			})
		}
	}

	for _, n := range g.NodesOfKind(flow.KindTarget) {
		doc.Targets = append(doc.Targets, targetDecl(n))
	}

	doc.Transformations = append(readers, steps...)
	if doc.Transformations == nil {
		doc.Transformations = []spec.TransformationDecl{}
	}
	return doc, nil
}

// dependentOn maps each incoming edge's source to its title, in edge order.
func dependentOn(g *flow.Graph, n *flow.Node) []string {
	deps := []string{}
	for _, id := range g.Incomers(n.ID) {
		if src, ok := g.Node(id); ok {
			deps = append(deps, src.Title)
		}
	}
	return deps
}

func sourceDecl(n *flow.Node) spec.SourceDecl {
	decl := spec.SourceDecl{Name: n.Title}
	src := n.Source
	if src == nil {
		return decl
	}
	decl.SourceID = src.ID
	if src.FilePath != "" || src.FileFormat != "" {
		decl.File = &spec.FileDecl{Path: src.FilePath, Format: src.FileFormat}
	}
	if src.ConnectionType != "" || src.ConnectionName != "" || src.PathPrefix != "" {
		decl.Connection = &spec.ConnectionDecl{
			Type:       src.ConnectionType,
			Name:       src.ConnectionName,
			PathPrefix: src.PathPrefix,
		}
	}
	return decl
}

func targetDecl(n *flow.Node) spec.TargetDecl {
	decl := spec.TargetDecl{Name: n.Title, LoadMode: DefaultLoadMode}
	dst := n.Destination
	if dst == nil {
		return decl
	}
	if dst.Path != "" {
		decl.File = &spec.FileDecl{Path: dst.Path}
	}
	if dst.ConnectionType != "" || dst.ConnectionName != "" {
		decl.Connection = &spec.ConnectionDecl{Type: dst.ConnectionType, Name: dst.ConnectionName}
	}
	if dst.LoadMode != "" {
		decl.LoadMode = dst.LoadMode
	}
	return decl
}

func writerDecl(g *flow.Graph, n *flow.Node) spec.TransformationDecl {
	loadMode := DefaultLoadMode
	if n.Destination != nil && n.Destination.LoadMode != "" {
		loadMode = n.Destination.LoadMode
	}
	return spec.TransformationDecl{
		Name:        n.Title,
		Kind:        spec.KindWriter,
		DependentOn: dependentOn(g, n),
		Fields:      map[string]any{"target": n.Title, "load_mode": loadMode},
	}
}
