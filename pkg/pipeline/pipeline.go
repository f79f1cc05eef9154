// Package pipeline runs the graph/document conversions shared by the CLI and the
// HTTP server.
//
// A [Runner] wraps validation, compilation, decompilation and auto-connection with
// logging and observability hooks, so every entry point reports the same events:
//
//	runner := pipeline.NewRunner(cat, logger)
//	doc, err := runner.Compile(ctx, g, pipeline.Options{Name: "orders"})
//	if err != nil {
//	    var verr *validate.Error
//	    if errors.As(err, &verr) {
//	        // show verr.Logs
//	    }
//	}
//
// Decompilation resolves sources through the runner's catalog; a runner without one
// serves the descriptors embedded in the document itself.
package pipeline

import (
	"github.com/matzehuels/flowcraft/pkg/decompile"
	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultName is used when a pipeline is compiled without a name.
	DefaultName = "pipeline"

	// DefaultFormat is the document serialization format.
	DefaultFormat = spec.FormatJSON

	// DefaultConcurrency bounds parallel catalog lookups during decompilation.
	DefaultConcurrency = decompile.DefaultConcurrency

	// DefaultSpacing is the horizontal distance between decompiled nodes.
	DefaultSpacing = decompile.DefaultSpacing
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures a compile or decompile run. It is accepted as-is from API
// requests, so every field has a usable zero value.
type Options struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Format      spec.Format `json:"format,omitempty"`

	// Writer emits a Writer step per Target when compiling.
	Writer bool `json:"writer,omitempty"`

	// Concurrency bounds catalog lookups when decompiling.
	Concurrency int `json:"concurrency,omitempty"`

	// Spacing is the horizontal distance between nodes laid out by decompile.
	Spacing float64 `json:"spacing,omitempty"`
}

// ValidateAndSetDefaults fills zero values and rejects invalid ones.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if err := errors.ValidatePipelineName(o.Name); err != nil {
		return err
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	f, err := spec.ParseFormat(string(o.Format))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "options")
	}
	o.Format = f
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Spacing <= 0 {
		o.Spacing = DefaultSpacing
	}
	return nil
}
