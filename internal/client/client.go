// Package client is the caller-facing API: it translates a GraphQL document,
// enforces collection and limit policy, executes the reads and assembles a
// GraphQL-shaped response.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	eventbus "github.com/hanpama/mongograph/internal/eventbus"
	events "github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/executor"
	language "github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/mongoquery"
	"github.com/hanpama/mongograph/internal/translator"
)

type Options struct {
	// Collections restricts queries to the listed collections. Empty means
	// every collection is allowed.
	Collections []string

	// MaxLimit caps the documents read per collection. A query without a
	// limit gets MaxLimit; a larger limit is rejected. 0 means no cap.
	MaxLimit int64

	// StackTraces adds the error's stack trace to formatted execution errors.
	StackTraces bool

	// ExecutorOptions are passed to the underlying executor.
	ExecutorOptions []executor.Option
}

type Option func(*Options)

func WithCollections(names ...string) Option {
	return func(o *Options) { o.Collections = append(o.Collections, names...) }
}
func WithMaxLimit(n int64) Option { return func(o *Options) { o.MaxLimit = n } }
func WithStackTraces() Option     { return func(o *Options) { o.StackTraces = true } }
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(o *Options) { o.ExecutorOptions = append(o.ExecutorOptions, opts...) }
}

// Client runs GraphQL documents against one Connection. It is safe for
// concurrent use.
type Client struct {
	conn    executor.Connection
	exec    *executor.Executor
	opt     Options
	allowed map[string]struct{}
}

func New(conn executor.Connection, opts ...Option) *Client {
	var op Options
	for _, f := range opts {
		f(&op)
	}
	c := &Client{conn: conn, exec: executor.New(op.ExecutorOptions...), opt: op}
	if len(op.Collections) > 0 {
		c.allowed = make(map[string]struct{}, len(op.Collections))
		for _, name := range op.Collections {
			c.allowed[name] = struct{}{}
		}
	}
	return c
}

// Request is one GraphQL document with its variable binding.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Translate parses and translates req and applies collection and limit
// policy without touching the database.
func (c *Client) Translate(ctx context.Context, req Request) ([]*mongoquery.QueryInfo, error) {
	if req.Query == "" {
		return nil, &UsageError{Message: "no query document provided"}
	}
	return c.translate(ctx, req.Query, req.OperationName, func() (*language.QueryDocument, error) {
		doc, err := language.ParseQuery(req.Query)
		if err != nil {
			return nil, &UsageError{Message: "invalid query document", Err: err}
		}
		return doc, nil
	}, req.Variables)
}

func (c *Client) translateDocument(ctx context.Context, doc *language.QueryDocument, variables map[string]any) ([]*mongoquery.QueryInfo, error) {
	if doc == nil {
		return nil, &UsageError{Message: "no query document provided"}
	}
	return c.translate(ctx, "", "", func() (*language.QueryDocument, error) { return doc, nil }, variables)
}

func (c *Client) translate(ctx context.Context, query, operationName string, parse func() (*language.QueryDocument, error), variables map[string]any) (queries []*mongoquery.QueryInfo, err error) {
	start := time.Now()
	eventbus.Publish(ctx, events.TranslateStart{Query: query, OperationName: operationName})
	defer func() {
		finish := events.TranslateFinish{
			Query:         query,
			OperationName: operationName,
			Err:           err,
			Duration:      time.Since(start),
		}
		for _, q := range queries {
			finish.Collections = append(finish.Collections, q.Collection)
		}
		eventbus.Publish(ctx, finish)
	}()

	doc, err := parse()
	if err != nil {
		return nil, err
	}
	res, err := translator.Resolve(doc, operationName, variables)
	if err != nil {
		var ve *translator.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, &UsageError{Message: "cannot resolve query document", Err: err}
	}
	queries = res.QueryInfos()
	if err := c.applyPolicy(queries); err != nil {
		return nil, err
	}
	return queries, nil
}

func (c *Client) applyPolicy(queries []*mongoquery.QueryInfo) error {
	for _, q := range queries {
		if c.allowed != nil {
			if _, ok := c.allowed[q.Collection]; !ok {
				return &UsageError{Message: fmt.Sprintf("collection %q is not allowed", q.Collection)}
			}
		}
		if c.opt.MaxLimit > 0 {
			if q.Limit == nil {
				n := c.opt.MaxLimit
				q.Limit = &n
			} else if *q.Limit > c.opt.MaxLimit {
				return &UsageError{Message: fmt.Sprintf("limit %d on collection %q exceeds maximum %d", *q.Limit, q.Collection, c.opt.MaxLimit)}
			}
		}
	}
	return nil
}

// Find runs every root field of query as a multi-document read. A failed
// read never fails the call: it is reported in Result.Errors while the other
// collections' documents are kept.
func (c *Client) Find(ctx context.Context, query string, variables map[string]any) (*Result, error) {
	return c.Execute(ctx, Request{Query: query, Variables: variables})
}

// FindDocument is Find for an already parsed document.
func (c *Client) FindDocument(ctx context.Context, doc *language.QueryDocument, variables map[string]any) (*Result, error) {
	queries, err := c.translateDocument(ctx, doc, variables)
	if err != nil {
		return nil, err
	}
	return c.aggregate(c.exec.ExecuteAll(ctx, c.conn, queries)), nil
}

// Execute is Find with an operation name.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	queries, err := c.Translate(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.aggregate(c.exec.ExecuteAll(ctx, c.conn, queries)), nil
}

// FindOne runs a document with exactly one root field as a single-document
// read.
func (c *Client) FindOne(ctx context.Context, query string, variables map[string]any) (*OneResult, error) {
	return c.ExecuteOne(ctx, Request{Query: query, Variables: variables})
}

// ExecuteOne is FindOne with an operation name.
func (c *Client) ExecuteOne(ctx context.Context, req Request) (*OneResult, error) {
	queries, err := c.Translate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(queries) != 1 {
		return nil, &UsageError{Message: fmt.Sprintf("findOne requires exactly one collection, got %d", len(queries))}
	}
	r := c.exec.ExecuteOne(ctx, c.conn, queries[0])
	out := &OneResult{Data: map[string]any{r.Collection: nil}}
	if r.Result != nil {
		out.Data[r.Collection] = r.Result
	}
	if r.Error != nil {
		out.Errors = []ErrorEntry{c.formatError(r.Collection, r.Error)}
	}
	return out, nil
}

func (c *Client) aggregate(results []executor.Result) *Result {
	out := &Result{Data: make(map[string]any, len(results))}
	var errs []ErrorEntry
	for _, r := range results {
		out.Data[r.Collection] = r.Results
		if r.Error != nil {
			errs = append(errs, c.formatError(r.Collection, r.Error))
		}
	}
	// nil, not empty, when nothing failed.
	out.Errors = errs
	return out
}
