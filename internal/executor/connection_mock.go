package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/hanpama/mongograph/internal/mongoquery"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MockFind answers a find for one collection in tests.
type MockFind func(ctx context.Context, q *mongoquery.QueryInfo) ([]bson.M, error)

// NewMockDocuments returns a MockFind that always returns docs.
func NewMockDocuments(docs ...bson.M) MockFind {
	return func(context.Context, *mongoquery.QueryInfo) ([]bson.M, error) {
		return docs, nil
	}
}

// NewMockError returns a MockFind that always fails with err.
func NewMockError(err error) MockFind {
	return func(context.Context, *mongoquery.QueryInfo) ([]bson.M, error) {
		return nil, err
	}
}

// MockCall records one read issued against a MockConnection.
type MockCall struct {
	Collection string
	One        bool
	Query      *mongoquery.QueryInfo
}

// MockConnection implements Connection over per-collection MockFind funcs.
// FindOne returns the first document of the collection's MockFind result.
// Reads of unregistered collections return no documents.
type MockConnection struct {
	mu    sync.Mutex
	finds map[string]MockFind
	calls []MockCall
}

func NewMockConnection(finds map[string]MockFind) *MockConnection {
	m := &MockConnection{finds: make(map[string]MockFind)}
	for k, v := range finds {
		m.finds[k] = v
	}
	return m
}

// Set registers or replaces the MockFind for collection.
func (m *MockConnection) Set(collection string, f MockFind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds[collection] = f
}

// Calls returns a copy of the recorded reads.
func (m *MockConnection) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockConnection) Collection(name string) Collection {
	return &mockCollection{conn: m, name: name}
}

type mockCollection struct {
	conn *MockConnection
	name string
}

func (c *mockCollection) lookup(one bool, q *mongoquery.QueryInfo) MockFind {
	c.conn.mu.Lock()
	defer c.conn.mu.Unlock()
	c.conn.calls = append(c.conn.calls, MockCall{Collection: c.name, One: one, Query: q})
	return c.conn.finds[c.name]
}

func (c *mockCollection) Find(ctx context.Context, q *mongoquery.QueryInfo) ([]bson.M, error) {
	f := c.lookup(false, q)
	if f == nil {
		return nil, nil
	}
	return f(ctx, q)
}

func (c *mockCollection) FindOne(ctx context.Context, q *mongoquery.QueryInfo) (bson.M, error) {
	f := c.lookup(true, q)
	if f == nil {
		return nil, nil
	}
	docs, err := f(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

var _ Connection = (*MockConnection)(nil)

// String is used in test failure messages.
func (c MockCall) String() string {
	kind := "find"
	if c.One {
		kind = "findOne"
	}
	return fmt.Sprintf("%s(%s)", kind, c.Collection)
}
