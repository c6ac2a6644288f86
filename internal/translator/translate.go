package translator

import (
	"sort"

	language "github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/mongoquery"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Directive names that order results by the annotated field.
const (
	DirectiveSortAsc  = "sort"
	DirectiveSortDesc = "sortDesc"
)

// TranslateQuery parses source and translates it. See Translate.
func TranslateQuery(source string, variables map[string]any) ([]*mongoquery.QueryInfo, error) {
	doc, err := language.ParseQuery(source)
	if err != nil {
		return nil, err
	}
	return Translate(doc, "", variables)
}

// Translate returns one QueryInfo per root field of the selected operation,
// in document order. Arguments used at the wrong level fail the whole
// translation with a *ValidationError; no partial result is returned.
func Translate(doc *language.QueryDocument, operationName string, variables map[string]any) ([]*mongoquery.QueryInfo, error) {
	res, err := Resolve(doc, operationName, variables)
	if err != nil {
		return nil, err
	}
	return res.QueryInfos(), nil
}

// QueryInfos runs the translate phase over a finished resolution.
func (r *Resolution) QueryInfos() []*mongoquery.QueryInfo {
	out := make([]*mongoquery.QueryInfo, 0, len(r.Roots))
	for _, root := range r.Roots {
		out = append(out, r.translateCollection(root))
	}
	return out
}

func (r *Resolution) translateCollection(root Shape) *mongoquery.QueryInfo {
	collection := root.FieldName()
	q := mongoquery.New(collection)

	meta := r.Metadata.Lookup(collection, "")
	if v, ok := meta.Args[string(ArgLimit)]; ok {
		if n, ok := asCount(v); ok {
			q.Limit = &n
		}
	}
	if v, ok := meta.Args[string(ArgSkip)]; ok {
		if n, ok := asCount(v); ok {
			q.Skip = &n
		}
	}

	if b, ok := root.(*Branch); ok {
		w := &walk{collection: collection, meta: r.Metadata, query: q}
		w.shapes(b.Children, "", false)
	}
	return q
}

type walk struct {
	collection string
	meta       Metadata
	query      *mongoquery.QueryInfo
}

// shapes visits siblings in document order. ancestorProjected is passed by
// value so a projection override never leaks into a sibling branch.
func (w *walk) shapes(children []Shape, parentPath string, ancestorProjected bool) {
	for _, child := range children {
		path := joinPath(parentPath, child.FieldName())
		meta := w.meta.Lookup(w.collection, path)

		switch s := child.(type) {
		case *Leaf:
			w.sort(path, meta)
			w.filter(path, meta)
			if !ancestorProjected {
				w.query.Fields[path] = 1
			}

		case *Branch:
			if len(s.Children) == 0 {
				continue
			}
			projected := ancestorProjected
			if !projected && includeRequested(meta) {
				w.query.Fields[path] = 1
				projected = true
			}
			w.sort(path, meta)
			w.shapes(s.Children, path, projected)
		}
	}
}

func (w *walk) sort(path string, meta FieldMeta) {
	if _, ok := meta.Directives[DirectiveSortAsc]; ok {
		w.setSort(path, 1)
	}
	if _, ok := meta.Directives[DirectiveSortDesc]; ok {
		w.setSort(path, -1)
	}
}

func (w *walk) setSort(path string, dir int) {
	for i := range w.query.Sort {
		if w.query.Sort[i].Key == path {
			w.query.Sort[i].Value = dir
			return
		}
	}
	w.query.Sort = append(w.query.Sort, bson.E{Key: path, Value: dir})
}

// filter applies leaf operators in two passes: order-insensitive operators
// first, then deferred ones, which only take effect next to $regex.
func (w *walk) filter(path string, meta FieldMeta) {
	if len(meta.Args) == 0 {
		return
	}
	names := make([]string, 0, len(meta.Args))
	for name := range meta.Args {
		names = append(names, name)
	}
	sort.Strings(names)

	ops := bson.M{}
	var deferred []LeafArg
	for _, name := range names {
		arg, ok := parseLeafArg(name)
		if !ok {
			continue
		}
		if arg.deferred() {
			deferred = append(deferred, arg)
			continue
		}
		ops[arg.Operator()] = meta.Args[name]
	}
	for _, arg := range deferred {
		if _, ok := ops[ArgRegex.Operator()]; ok {
			ops[arg.Operator()] = meta.Args[string(arg)]
		}
	}

	if len(ops) == 0 {
		delete(w.query.Query, path)
		return
	}
	w.query.Query[path] = ops
}

func includeRequested(meta FieldMeta) bool {
	v, ok := meta.Args[string(ArgInclude)]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
