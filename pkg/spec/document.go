// Package spec defines the declarative pipeline document handed to the execution engine.
//
// A [Document] lists the pipeline's sources, targets and transformations. Transformations
// link to their inputs by name through dependent_on, never by graph node ID, which is why
// node titles have to be unique before a graph can be compiled.
//
// Each [TransformationDecl] carries a kind plus kind-specific fields. Those fields are kept
// in a free-form map and written inline next to name, kind and dependent_on, both in JSON
// and in YAML:
//
//	{
//	  "name": "adults",
//	  "kind": "Filter",
//	  "dependent_on": ["customers"],
//	  "condition": "age > 18"
//	}
//
// Documents are built whole by the compiler and read whole by the decompiler; nothing in
// this module mutates a document after it has been created.
package spec

import (
	"slices"
)

// Document defaults.
const (
	DefaultSchema  = "https://schemas.flowcraft.dev/pipeline/v1.json"
	DefaultVersion = "1.0"
	DefaultMode    = "batch"
)

// Transformation kinds that have no node counterpart on the canvas.
const (
	KindReader = "Reader"
	KindWriter = "Writer"
)

// Document is a complete pipeline specification.
type Document struct {
	Schema          string               `json:"$schema" yaml:"$schema"`
	Name            string               `json:"name" yaml:"name"`
	Description     string               `json:"description" yaml:"description"`
	Version         string               `json:"version" yaml:"version"`
	Mode            string               `json:"mode" yaml:"mode" validate:"omitempty,oneof=batch streaming"`
	Parameters      []Parameter          `json:"parameters" yaml:"parameters" validate:"dive"`
	Sources         []SourceDecl         `json:"sources" yaml:"sources" validate:"dive"`
	Targets         []TargetDecl         `json:"targets" yaml:"targets" validate:"dive"`
	Transformations []TransformationDecl `json:"transformations" yaml:"transformations" validate:"dive"`
}

// New returns an empty document with default schema, version and mode.
func New(name, description string) *Document {
	return &Document{
		Schema:          DefaultSchema,
		Name:            name,
		Description:     description,
		Version:         DefaultVersion,
		Mode:            DefaultMode,
		Parameters:      []Parameter{},
		Sources:         []SourceDecl{},
		Targets:         []TargetDecl{},
		Transformations: []TransformationDecl{},
	}
}

// Parameter is a runtime parameter of the pipeline. The compiler never emits any; they
// are carried through for documents authored by hand.
type Parameter struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// FileDecl locates a file-based dataset.
type FileDecl struct {
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ConnectionDecl names the connection a dataset is reached through.
type ConnectionDecl struct {
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	PathPrefix string `json:"path_prefix,omitempty" yaml:"path_prefix,omitempty"`
}

// SourceDecl declares an input dataset. SourceID refers to the catalog entry the
// decompiler resolves the full descriptor from.
type SourceDecl struct {
	Name       string          `json:"name" yaml:"name" validate:"required"`
	SourceID   string          `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	File       *FileDecl       `json:"file,omitempty" yaml:"file,omitempty"`
	Connection *ConnectionDecl `json:"connection,omitempty" yaml:"connection,omitempty"`
}

// TargetDecl declares the output dataset.
type TargetDecl struct {
	Name       string          `json:"name" yaml:"name" validate:"required"`
	File       *FileDecl       `json:"file,omitempty" yaml:"file,omitempty"`
	Connection *ConnectionDecl `json:"connection,omitempty" yaml:"connection,omitempty"`
	LoadMode   string          `json:"load_mode,omitempty" yaml:"load_mode,omitempty" validate:"omitempty,oneof=overwrite append upsert merge"`
}

// Source returns the first source declaration with the given name.
func (d *Document) Source(name string) (*SourceDecl, bool) {
	i := slices.IndexFunc(d.Sources, func(s SourceDecl) bool { return s.Name == name })
	if i < 0 {
		return nil, false
	}
	return &d.Sources[i], true
}

// Transformation returns the last transformation declaration with the given name,
// matching how dependent_on references resolve.
func (d *Document) Transformation(name string) (*TransformationDecl, bool) {
	for i := len(d.Transformations) - 1; i >= 0; i-- {
		if d.Transformations[i].Name == name {
			return &d.Transformations[i], true
		}
	}
	return nil, false
}

// Steps returns every transformation except the Reader declarations.
func (d *Document) Steps() []TransformationDecl {
	var out []TransformationDecl
	for _, t := range d.Transformations {
		if t.Kind != KindReader {
			out = append(out, t)
		}
	}
	return out
}
