package client

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Result is the aggregate of a multi-collection read. Data maps each
// collection to its documents. Errors is nil when every read succeeded.
type Result struct {
	Data   map[string]any `json:"data"`
	Errors []ErrorEntry   `json:"errors,omitempty"`
}

// OneResult is the outcome of FindOne. Data maps the collection to its
// document, or to nil when nothing matched.
type OneResult struct {
	Data   map[string]any `json:"data"`
	Errors []ErrorEntry   `json:"errors,omitempty"`
}

// ErrorEntry is one failed collection read, shaped like a GraphQL error.
type ErrorEntry struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func (c *Client) formatError(collection string, err error) ErrorEntry {
	e := ErrorEntry{
		Message:    err.Error(),
		Path:       []any{collection},
		Extensions: map[string]any{"collection": collection},
	}
	if c.opt.StackTraces {
		var st stackTracer
		if errors.As(err, &st) {
			frames := strings.Split(strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace())), "\n")
			e.Extensions["stack"] = frames
		}
	}
	return e
}
