package language

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Error is a located syntax error produced while parsing a query document.
type Error = gqlerror.Error

// ParseQuery parses source into a query document. Syntax errors are returned
// as *Error so callers can report line and column.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		var ge *gqlerror.Error
		if errors.As(err, &ge) {
			return nil, ge
		}
		return nil, err
	}
	return doc, nil
}

// SelectOperation picks the operation named name. An empty name selects the
// only operation of a single-operation document.
func SelectOperation(doc *QueryDocument, name string) (*OperationDefinition, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document")
	}
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0], nil
		}
		if len(doc.Operations) == 0 {
			return nil, fmt.Errorf("document contains no operations")
		}
		return nil, fmt.Errorf("operation name required: document contains %d operations", len(doc.Operations))
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("operation %q not found", name)
}
