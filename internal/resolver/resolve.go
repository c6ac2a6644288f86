package resolver

import (
	"fmt"

	language "github.com/hanpama/mongograph/internal/language"
)

// Info carries per-field execution metadata to a FieldFunc.
type Info struct {
	FieldName string
	// ResultKey is the alias when present, otherwise FieldName.
	ResultKey string
	// IsLeaf reports that the field has no child selection.
	IsLeaf bool
	// Directives maps directive name to its evaluated arguments, excluding
	// @skip and @include which are consumed by the walk itself.
	Directives map[string]map[string]any
}

// FieldFunc resolves one field. parent is the value returned for the parent
// field, or nil for root fields. args is nil when the field carries no
// (bound) arguments.
type FieldFunc func(fieldName string, parent any, args map[string]any, info Info) (any, error)

// Node is one resolved field. Children are in document order.
type Node struct {
	Name     string
	Value    any
	Leaf     bool
	Children []*Node
}

// Resolve walks the operation selected by operationName and returns one Node
// per root field. The first error returned by fn stops the walk.
func Resolve(doc *language.QueryDocument, operationName string, variables map[string]any, fn FieldFunc) ([]*Node, error) {
	op, err := language.SelectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}
	if op.Operation != language.Query {
		return nil, fmt.Errorf("unsupported operation type: %s", op.Operation)
	}
	w := &walker{
		document:  doc,
		variables: bindVariables(op, variables),
		fn:        fn,
	}
	return w.resolveSelectionSet(op.SelectionSet, nil)
}

type walker struct {
	document  *language.QueryDocument
	variables map[string]any
	fn        FieldFunc
}

func (w *walker) resolveSelectionSet(selectionSet language.SelectionSet, parent any) ([]*Node, error) {
	grouped := collectFields(w, selectionSet)
	nodes := make([]*Node, 0, len(grouped.fields))
	for _, cf := range grouped.fields {
		node, err := w.resolveField(cf, parent)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (w *walker) resolveField(cf collectedField, parent any) (*Node, error) {
	var (
		args       map[string]any
		directives map[string]map[string]any
		children   language.SelectionSet
		leaf       = true
	)
	for _, f := range cf.Fields {
		if f.SelectionSet != nil {
			leaf = false
			children = append(children, f.SelectionSet...)
		}
		for _, arg := range f.Arguments {
			v, ok := valueFromAST(arg.Value, w.variables)
			if !ok {
				continue
			}
			if args == nil {
				args = make(map[string]any)
			}
			args[arg.Name] = v
		}
		for _, d := range f.Directives {
			if d.Name == "skip" || d.Name == "include" {
				continue
			}
			if directives == nil {
				directives = make(map[string]map[string]any)
			}
			directives[d.Name] = argumentValues(d.Arguments, w.variables)
		}
	}

	first := cf.Fields[0]
	info := Info{
		FieldName:  first.Name,
		ResultKey:  cf.ResponseKey,
		IsLeaf:     leaf,
		Directives: directives,
	}
	value, err := w.fn(first.Name, parent, args, info)
	if err != nil {
		return nil, err
	}
	node := &Node{Name: first.Name, Value: value, Leaf: leaf}
	if leaf {
		return node, nil
	}
	node.Children, err = w.resolveSelectionSet(children, value)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func argumentValues(arguments language.ArgumentList, variables map[string]any) map[string]any {
	out := make(map[string]any, len(arguments))
	for _, arg := range arguments {
		if v, ok := valueFromAST(arg.Value, variables); ok {
			out[arg.Name] = v
		}
	}
	return out
}
