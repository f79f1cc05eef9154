// Package catalog resolves source descriptors and column layouts.
//
// A specification document references its inputs by source_id only. Turning the
// document back into a graph needs the full descriptor of every source (name, file,
// connection), which lives in an external catalog service. The editor also asks the
// catalog for the columns of a data source to suggest field names to the user.
//
// # Implementations
//
//   - [HTTPCatalog]: a REST catalog service, with retries on transient failures
//   - [MongoCatalog]: descriptors stored in MongoDB collections
//   - [Memory]: an in-process catalog, also built from a document by [FromDocument]
//   - [Cached]: wraps any catalog with a [cache.Cache]
//
// All implementations report a missing entry with an error for which
// errors.Is(err, ErrNotFound) holds.
//
// [cache.Cache]: github.com/matzehuels/flowcraft/pkg/cache
package catalog

import (
	"context"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
)

// Resource names used for hooks and cache keys.
const (
	ResourceSource = "source"
	ResourceLayout = "layout"
)

// ErrNotFound is returned when the catalog has no entry for an identifier.
var ErrNotFound = errors.New(errors.ErrCodeSourceNotFound, "catalog entry not found")

// Field is one column of a data-source layout.
type Field struct {
	Name     string `json:"name" bson:"name"`
	Type     string `json:"type,omitempty" bson:"type,omitempty"`
	Nullable bool   `json:"nullable,omitempty" bson:"nullable,omitempty"`
}

// Catalog looks up sources and layouts by identifier.
type Catalog interface {
	// Source returns the descriptor of the source with the given id.
	Source(ctx context.Context, id string) (*flow.Source, error)

	// Layout returns the columns of a data source.
	Layout(ctx context.Context, dataSourceID string) ([]Field, error)
}
