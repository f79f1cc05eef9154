package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/spec"
)

// Memory is a catalog held in process memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	sources map[string]flow.Source
	layouts map[string][]Field
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		sources: make(map[string]flow.Source),
		layouts: make(map[string][]Field),
	}
}

// Put registers src under src.ID.
func (m *Memory) Put(src flow.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[src.ID] = src
}

// PutLayout registers the columns of a data source.
func (m *Memory) PutLayout(dataSourceID string, fields []Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layouts[dataSourceID] = slices.Clone(fields)
}

// Source returns a copy of the registered descriptor.
func (m *Memory) Source(ctx context.Context, id string) (*flow.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	src, ok := m.sources[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: source %q", ErrNotFound, id)
	}
	return &src, nil
}

// Layout returns a copy of the registered columns.
func (m *Memory) Layout(ctx context.Context, dataSourceID string) ([]Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	fields, ok := m.layouts[dataSourceID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: layout %q", ErrNotFound, dataSourceID)
	}
	return slices.Clone(fields), nil
}

// FromDocument serves the descriptors a document embeds in its source declarations.
// Declarations without a source_id are registered under their name. It allows a
// document to be decompiled without a catalog service.
func FromDocument(doc *spec.Document) *Memory {
	m := NewMemory()
	if doc == nil {
		return m
	}
	for _, decl := range doc.Sources {
		src := flow.Source{ID: decl.SourceID, Name: decl.Name}
		if src.ID == "" {
			src.ID = decl.Name
		}
		if decl.File != nil {
			src.FilePath = decl.File.Path
			src.FileFormat = decl.File.Format
		}
		if decl.Connection != nil {
			src.ConnectionType = decl.Connection.Type
			src.ConnectionName = decl.Connection.Name
			src.PathPrefix = decl.Connection.PathPrefix
		}
		m.Put(src)
	}
	return m
}

var _ Catalog = (*Memory)(nil)
