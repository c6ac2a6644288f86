package executor

import (
	"context"

	"github.com/hanpama/mongograph/internal/mongoquery"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Connection opens collections by name.
type Connection interface {
	Collection(name string) Collection
}

// Collection reads documents for one translated query.
//
//   - Find applies filter, projection, skip, limit and (only when non-empty)
//     sort, and returns every matching document.
//   - FindOne applies filter, projection, skip and sort, and returns nil with
//     a nil error when no document matches.
type Collection interface {
	Find(ctx context.Context, q *mongoquery.QueryInfo) ([]bson.M, error)
	FindOne(ctx context.Context, q *mongoquery.QueryInfo) (bson.M, error)
}
