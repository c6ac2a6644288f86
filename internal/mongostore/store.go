// Package mongostore connects the executor to MongoDB through the official
// driver.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/mongoquery"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collection is the subset of *mongo.Collection the store uses.
type collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

type Options struct {
	// ConnectTimeout bounds establishing connections. 0 keeps the driver default.
	ConnectTimeout time.Duration
	// AppName is reported to the server for connection attribution.
	AppName string
}

type Option func(*Options)

func WithConnectTimeout(d time.Duration) Option { return func(o *Options) { o.ConnectTimeout = d } }
func WithAppName(name string) Option            { return func(o *Options) { o.AppName = name } }

// Store implements executor.Connection over one MongoDB database.
type Store struct {
	client *mongo.Client
	open   func(name string) collection
}

var _ executor.Connection = (*Store)(nil)

// Dial connects to uri, verifies the connection with a ping and returns a
// Store reading from database.
func Dial(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	if database == "" {
		return nil, fmt.Errorf("mongostore: database name required")
	}
	var o Options
	for _, f := range opts {
		f(&o)
	}
	co := options.Client().ApplyURI(uri)
	if o.ConnectTimeout > 0 {
		co.SetConnectTimeout(o.ConnectTimeout)
	}
	if o.AppName != "" {
		co.SetAppName(o.AppName)
	}
	client, err := mongo.Connect(co)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	s := New(client.Database(database))
	s.client = client
	return s, nil
}

// New wraps an existing database handle. Close is a no-op for such stores;
// the caller owns the client.
func New(db *mongo.Database) *Store {
	return &Store{open: func(name string) collection { return db.Collection(name) }}
}

// Close disconnects a Store created by Dial.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Collection(name string) executor.Collection {
	return &storeCollection{coll: s.open(name)}
}

type storeCollection struct {
	coll collection
}

func (c *storeCollection) Find(ctx context.Context, q *mongoquery.QueryInfo) ([]bson.M, error) {
	cursor, err := c.coll.Find(ctx, q.Filter(), q.FindOptions())
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		_ = cursor.Close(ctx)
		return nil, err
	}
	if docs == nil {
		docs = []bson.M{}
	}
	return docs, nil
}

func (c *storeCollection) FindOne(ctx context.Context, q *mongoquery.QueryInfo) (bson.M, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, q.Filter(), q.FindOneOptions()).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}
