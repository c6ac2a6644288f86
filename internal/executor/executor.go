package executor

import (
	"context"
	"fmt"
	"time"

	eventbus "github.com/hanpama/mongograph/internal/eventbus"
	events "github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/mongoquery"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// MaxConcurrency bounds the number of reads in flight for one ExecuteAll
	// call. 0 means one goroutine per query.
	MaxConcurrency int
}

type Option func(*Options)

func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

type Executor struct {
	opt Options
}

func New(opts ...Option) *Executor {
	var op Options
	for _, f := range opts {
		f(&op)
	}
	return &Executor{opt: op}
}

// ExecuteAll runs every query and returns one Result per query, in order.
func (e *Executor) ExecuteAll(ctx context.Context, conn Connection, queries []*mongoquery.QueryInfo) []Result {
	results := make([]Result, len(queries))
	var g errgroup.Group
	if e.opt.MaxConcurrency > 0 {
		g.SetLimit(e.opt.MaxConcurrency)
	}
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			results[i] = e.find(ctx, conn, i, q)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ExecuteOne runs q as a single-document read.
func (e *Executor) ExecuteOne(ctx context.Context, conn Connection, q *mongoquery.QueryInfo) OneResult {
	start := time.Now()
	eventbus.Publish(ctx, events.CollectionReadStart{Collection: q.Collection, Mode: events.ReadFindOne})

	doc, err := guard(q.Collection, func() (bson.M, error) {
		return conn.Collection(q.Collection).FindOne(ctx, q)
	})
	n := 0
	if err != nil {
		doc = nil
		err = errors.Wrapf(err, "findOne %s", q.Collection)
	} else if doc != nil {
		n = 1
	}

	eventbus.Publish(ctx, events.CollectionReadFinish{
		Collection: q.Collection,
		Mode:       events.ReadFindOne,
		Documents:  n,
		Err:        err,
		Duration:   time.Since(start),
	})
	return OneResult{Collection: q.Collection, Result: doc, Error: err}
}

func (e *Executor) find(ctx context.Context, conn Connection, index int, q *mongoquery.QueryInfo) Result {
	start := time.Now()
	eventbus.Publish(ctx, events.CollectionReadStart{Index: index, Collection: q.Collection, Mode: events.ReadFind})

	docs, err := guard(q.Collection, func() ([]bson.M, error) {
		return conn.Collection(q.Collection).Find(ctx, q)
	})
	if err != nil {
		docs = []bson.M{}
		err = errors.Wrapf(err, "find %s", q.Collection)
	} else if docs == nil {
		docs = []bson.M{}
	}

	eventbus.Publish(ctx, events.CollectionReadFinish{
		Index:      index,
		Collection: q.Collection,
		Mode:       events.ReadFind,
		Documents:  len(docs),
		Err:        err,
		Duration:   time.Since(start),
	})
	return Result{Collection: q.Collection, Results: docs, Error: err}
}

// guard turns a panic inside a driver call into an error so one collection
// cannot take down its siblings.
func guard[T any](collection string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = errors.WithStack(fmt.Errorf("panic reading %s: %v", collection, r))
		}
	}()
	return fn()
}
