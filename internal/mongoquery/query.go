// Package mongoquery holds the per-collection query produced by translating a
// GraphQL document: filter, projection, sort, limit and skip.
package mongoquery

import (
	"bytes"
	"encoding/json"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// QueryInfo describes one read against one collection.
//
// Query maps a dotted field path to its operator document ({"$eq": v, ...}).
// Fields maps a dotted field path to 1. Sort keeps keys in document order.
type QueryInfo struct {
	Collection string
	Query      bson.M
	Fields     bson.M
	Sort       bson.D
	Limit      *int64
	Skip       *int64
}

// New returns an empty QueryInfo for collection.
func New(collection string) *QueryInfo {
	return &QueryInfo{
		Collection: collection,
		Query:      bson.M{},
		Fields:     bson.M{},
		Sort:       bson.D{},
	}
}

// Filter returns the filter document, never nil.
func (q *QueryInfo) Filter() bson.M {
	if q.Query == nil {
		return bson.M{}
	}
	return q.Query
}

// FindOptions builds the options for a multi-document read. Sort is only set
// when at least one sort key exists.
func (q *QueryInfo) FindOptions() *options.FindOptionsBuilder {
	opts := options.Find()
	if len(q.Fields) > 0 {
		opts.SetProjection(q.Fields)
	}
	if q.Skip != nil {
		opts.SetSkip(*q.Skip)
	}
	if q.Limit != nil {
		opts.SetLimit(*q.Limit)
	}
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	return opts
}

// FindOneOptions builds the options for a single-document read.
func (q *QueryInfo) FindOneOptions() *options.FindOneOptionsBuilder {
	opts := options.FindOne()
	if len(q.Fields) > 0 {
		opts.SetProjection(q.Fields)
	}
	if q.Skip != nil {
		opts.SetSkip(*q.Skip)
	}
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	return opts
}

// MarshalJSON renders the query with sort keys in their original order.
func (q *QueryInfo) MarshalJSON() ([]byte, error) {
	sort, err := marshalOrdered(q.Sort)
	if err != nil {
		return nil, err
	}
	out := struct {
		Collection string          `json:"collection"`
		Query      bson.M          `json:"query"`
		Fields     bson.M          `json:"fields"`
		Sort       json.RawMessage `json:"sort"`
		Limit      *int64          `json:"limit,omitempty"`
		Skip       *int64          `json:"skip,omitempty"`
	}{
		Collection: q.Collection,
		Query:      nonNil(q.Query),
		Fields:     nonNil(q.Fields),
		Sort:       sort,
		Limit:      q.Limit,
		Skip:       q.Skip,
	}
	return json.Marshal(out)
}

func marshalOrdered(d bson.D) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func nonNil(m bson.M) bson.M {
	if m == nil {
		return bson.M{}
	}
	return m
}
