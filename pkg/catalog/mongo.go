package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/observability"
)

// Collection names used by [MongoCatalog].
const (
	SourcesCollection = "sources"
	LayoutsCollection = "layouts"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "flowcraft"

// MongoCatalog reads descriptors from two collections. Sources are stored as
// flow.Source documents keyed by _id; layouts as {_id, fields: [...]}.
type MongoCatalog struct {
	client  *mongo.Client
	sources *mongo.Collection
	layouts *mongo.Collection
}

// NewMongoCatalog reads from db. The caller owns the client behind db.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{
		sources: db.Collection(SourcesCollection),
		layouts: db.Collection(LayoutsCollection),
	}
}

// ConnectMongo dials uri, pings the primary and opens database. Close releases
// the connection.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoCatalog, error) {
	if err := errors.ValidateMongoURI(uri); err != nil {
		return nil, err
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}
	c := NewMongoCatalog(client.Database(database))
	c.client = client
	return c, nil
}

// Source finds the document with _id == id.
func (c *MongoCatalog) Source(ctx context.Context, id string) (*flow.Source, error) {
	start := time.Now()
	var src flow.Source
	err := c.sources.FindOne(ctx, bson.M{"_id": id}).Decode(&src)
	err = mongoErr(err, ResourceSource, id)
	observability.Catalog().OnFetch(ctx, "mongo", ResourceSource, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

type layoutDocument struct {
	ID     string  `bson:"_id"`
	Fields []Field `bson:"fields"`
}

// Layout finds the layout document with _id == dataSourceID.
func (c *MongoCatalog) Layout(ctx context.Context, dataSourceID string) ([]Field, error) {
	start := time.Now()
	var doc layoutDocument
	err := c.layouts.FindOne(ctx, bson.M{"_id": dataSourceID}).Decode(&doc)
	err = mongoErr(err, ResourceLayout, dataSourceID)
	observability.Catalog().OnFetch(ctx, "mongo", ResourceLayout, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if doc.Fields == nil {
		doc.Fields = []Field{}
	}
	return doc.Fields, nil
}

// Close disconnects the client opened by [ConnectMongo].
func (c *MongoCatalog) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}

func mongoErr(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %s %q", ErrNotFound, resource, id)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "mongodb %s %q", resource, id)
	}
}

var _ Catalog = (*MongoCatalog)(nil)
