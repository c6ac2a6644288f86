package translator

import (
	"strings"

	language "github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/resolver"
)

// FieldMeta is what the resolve phase records about one field.
type FieldMeta struct {
	Args       map[string]any
	Directives map[string]map[string]any
}

// Metadata maps "<collection>.<path>" to the field's recorded metadata. The
// root field itself is keyed by the bare collection name.
type Metadata map[string]FieldMeta

// Lookup returns the metadata for path within collection.
func (m Metadata) Lookup(collection, path string) FieldMeta {
	return m[metaKey(collection, path)]
}

func metaKey(collection, path string) string {
	if path == "" {
		return collection
	}
	return collection + "." + path
}

// ResolvedNode is the value the field callback returns for each field.
type ResolvedNode struct {
	Collection string
	Path       []string
	IsQuery    bool
	Args       map[string]any
}

// PathString joins the node's path with dots.
func (n *ResolvedNode) PathString() string { return strings.Join(n.Path, ".") }

// Resolution is the immutable output of the resolve phase.
type Resolution struct {
	Roots    []Shape
	Metadata Metadata
}

// Resolve runs the resolve phase: it walks the document, validates arguments
// level by level and records field metadata.
func Resolve(doc *language.QueryDocument, operationName string, variables map[string]any) (*Resolution, error) {
	meta := Metadata{}
	nodes, err := resolver.Resolve(doc, operationName, variables, fieldCallback(meta))
	if err != nil {
		return nil, err
	}
	roots := make([]Shape, 0, len(nodes))
	for _, n := range nodes {
		roots = append(roots, buildShape(n))
	}
	return &Resolution{Roots: roots, Metadata: meta}, nil
}

// fieldCallback records into meta, which must not be read until the walk
// has finished.
func fieldCallback(meta Metadata) resolver.FieldFunc {
	return func(fieldName string, parent any, args map[string]any, info resolver.Info) (any, error) {
		var (
			collection string
			path       []string
		)
		if p, ok := parent.(*ResolvedNode); ok && p != nil {
			collection = p.Collection
			path = make([]string, len(p.Path), len(p.Path)+1)
			copy(path, p.Path)
			path = append(path, fieldName)
		} else {
			collection = fieldName
		}
		node := &ResolvedNode{Collection: collection, Path: path, IsQuery: true}
		meta[metaKey(collection, node.PathString())] = FieldMeta{Args: args, Directives: info.Directives}

		if len(args) > 0 {
			var level Level
			switch {
			case len(path) == 0:
				level = CollectionLevel
			case !info.IsLeaf:
				level = NonLeafLevel
			default:
				level = LeafLevel
			}
			if err := validateArgs(displayName(collection, path), level, args); err != nil {
				return nil, err
			}
			node.Args = make(map[string]any, len(args))
			for k, v := range args {
				node.Args[k] = v
			}
		}
		return node, nil
	}
}

func displayName(collection string, path []string) string {
	if len(path) == 0 {
		return collection
	}
	return collection + "." + strings.Join(path, ".")
}
