package resolver

import (
	language "github.com/hanpama/mongograph/internal/language"
)

// collectedFieldMap groups fields by name, preserving first-seen order.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseKey string
	Fields      []*language.Field
}

func (cfm *collectedFieldMap) add(field *language.Field) {
	if idx, exists := cfm.index[field.Name]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	key := field.Alias
	if key == "" {
		key = field.Name
	}
	cfm.index[field.Name] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{ResponseKey: key, Fields: []*language.Field{field}})
}

// collectFields flattens fragments and drops fields excluded by @skip/@include.
func collectFields(w *walker, selectionSet language.SelectionSet) *collectedFieldMap {
	grouped := &collectedFieldMap{index: make(map[string]int)}
	collectFieldsImpl(w, selectionSet, grouped, make(map[string]bool))
	return grouped
}

func collectFieldsImpl(w *walker, selectionSet language.SelectionSet, grouped *collectedFieldMap, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(w, sel.Directives) {
				continue
			}
			grouped.add(sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(w, sel.Directives) {
				continue
			}
			// Without a schema every type condition is assumed to apply.
			collectFieldsImpl(w, sel.SelectionSet, grouped, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(w, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragmentDef := w.document.Fragments.ForName(sel.Name)
			if fragmentDef == nil {
				continue
			}
			if !shouldIncludeNode(w, fragmentDef.Directives) {
				continue
			}
			collectFieldsImpl(w, fragmentDef.SelectionSet, grouped, visitedFragments)
		}
	}
}

func shouldIncludeNode(w *walker, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveArgument(w, skip, "if"); ok {
			if b, ok := v.(bool); ok && b {
				return false
			}
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveArgument(w, include, "if"); ok {
			if b, ok := v.(bool); ok && !b {
				return false
			}
		}
	}
	return true
}

func directiveArgument(w *walker, directive *language.Directive, name string) (any, bool) {
	arg := directive.Arguments.ForName(name)
	if arg == nil {
		return nil, false
	}
	return valueFromAST(arg.Value, w.variables)
}
