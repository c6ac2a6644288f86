package translator

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/mongograph/internal/mongoquery"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func int64p(v int64) *int64 { return &v }

func mustTranslate(t *testing.T, q string, vars map[string]any) []*mongoquery.QueryInfo {
	t.Helper()
	got, err := TranslateQuery(q, vars)
	require.NoError(t, err)
	return got
}

func diffQueries(t *testing.T, want, got []*mongoquery.QueryInfo) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("query infos mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_NoArguments(t *testing.T) {
	got := mustTranslate(t, `{ people { name address { city zip } age } }`, nil)
	diffQueries(t, []*mongoquery.QueryInfo{{
		Collection: "people",
		Query:      bson.M{},
		Fields:     bson.M{"name": 1, "address.city": 1, "address.zip": 1, "age": 1},
		Sort:       bson.D{},
	}}, got)
}

func TestTranslate_LeafFilters(t *testing.T) {
	got := mustTranslate(t, `{ myCollection {
		type(eq: "foo.bar.Baz")
		body { id tenantId(eq: "something") name }
	} }`, nil)
	diffQueries(t, []*mongoquery.QueryInfo{{
		Collection: "myCollection",
		Query: bson.M{
			"type":          bson.M{"$eq": "foo.bar.Baz"},
			"body.tenantId": bson.M{"$eq": "something"},
		},
		Fields: bson.M{"type": 1, "body.id": 1, "body.tenantId": 1, "body.name": 1},
		Sort:   bson.D{},
	}}, got)
}

func TestTranslate_AllLeafOperators(t *testing.T) {
	got := mustTranslate(t, `{ c {
		a(ne: 1, gt: 2, gte: 3, lt: 4, lte: 5)
		b(in: ["x", "y"], nin: ["z"], exists: true)
	} }`, nil)
	want := bson.M{
		"a": bson.M{"$ne": int64(1), "$gt": int64(2), "$gte": int64(3), "$lt": int64(4), "$lte": int64(5)},
		"b": bson.M{"$in": []any{"x", "y"}, "$nin": []any{"z"}, "$exists": true},
	}
	if diff := cmp.Diff(want, got[0].Query); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_UndefinedVariablesOmitted(t *testing.T) {
	q := `query($type: String, $id: String, $limit: Int, $skip: Int) {
		c(limit: $limit, skip: $skip) { type(eq: $type, ne: "x") id(eq: $id) }
	}`

	t.Run("unbound", func(t *testing.T) {
		got := mustTranslate(t, q, map[string]any{"id": "42"})
		diffQueries(t, []*mongoquery.QueryInfo{{
			Collection: "c",
			Query: bson.M{
				"type": bson.M{"$ne": "x"},
				"id":   bson.M{"$eq": "42"},
			},
			Fields: bson.M{"type": 1, "id": 1},
			Sort:   bson.D{},
		}}, got)
	})

	t.Run("bound", func(t *testing.T) {
		got := mustTranslate(t, q, map[string]any{"type": "t", "limit": float64(5), "skip": float64(10)})
		require.Equal(t, bson.M{"$eq": "t", "$ne": "x"}, got[0].Query["type"])
		require.NotContains(t, got[0].Query, "id")
		require.Equal(t, int64p(5), got[0].Limit)
		require.Equal(t, int64p(10), got[0].Skip)
	})

	t.Run("only argument unbound leaves no dangling filter", func(t *testing.T) {
		got := mustTranslate(t, `query($v: String) { c { a(eq: $v) } }`, nil)
		require.Empty(t, got[0].Query)
		require.Equal(t, bson.M{"a": 1}, got[0].Fields)
	})
}

func TestTranslate_IncludeOverride(t *testing.T) {
	got := mustTranslate(t, `{ events(limit: 10) {
		timestamp @sort
		body(include: true) {
			otherField @sortDesc
			businessId(eq: "Bar")
		}
	} }`, nil)
	diffQueries(t, []*mongoquery.QueryInfo{{
		Collection: "events",
		Query:      bson.M{"body.businessId": bson.M{"$eq": "Bar"}},
		Fields:     bson.M{"timestamp": 1, "body": 1},
		Sort:       bson.D{{Key: "timestamp", Value: 1}, {Key: "body.otherField", Value: -1}},
		Limit:      int64p(10),
	}}, got)
}

func TestTranslate_IncludeNested(t *testing.T) {
	t.Run("sibling includes each project their own path", func(t *testing.T) {
		got := mustTranslate(t, `{ c {
			a(include: true) { x { y(eq: 1) } z }
			b(include: true) { w }
			d { e(include: true) { f } g }
		} }`, nil)
		want := bson.M{"a": 1, "b": 1, "d.e": 1, "d.g": 1}
		if diff := cmp.Diff(want, got[0].Fields); diff != "" {
			t.Fatalf("fields mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, bson.M{"a.x.y": bson.M{"$eq": int64(1)}}, got[0].Query)
	})

	t.Run("include below a projected ancestor is absorbed", func(t *testing.T) {
		got := mustTranslate(t, `{ c { a(include: true) { b(include: true) { x } } } }`, nil)
		require.Equal(t, bson.M{"a": 1}, got[0].Fields)
	})

	t.Run("include false is ordinary projection", func(t *testing.T) {
		got := mustTranslate(t, `{ c { a(include: false) { x y } } }`, nil)
		require.Equal(t, bson.M{"a.x": 1, "a.y": 1}, got[0].Fields)
	})

	t.Run("include from variable", func(t *testing.T) {
		q := `query($inc: Boolean) { c { a(include: $inc) { x } } }`
		require.Equal(t, bson.M{"a": 1}, mustTranslate(t, q, map[string]any{"inc": true})[0].Fields)
		require.Equal(t, bson.M{"a.x": 1}, mustTranslate(t, q, nil)[0].Fields)
	})
}

func TestTranslate_RegexOptions(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bson.M
	}{
		{"regex alone", `{ c { a(regex: "^x") } }`, bson.M{"a": bson.M{"$regex": "^x"}}},
		{"regex with options", `{ c { a(regex: "^x", options: "i") } }`, bson.M{"a": bson.M{"$regex": "^x", "$options": "i"}}},
		{"options before regex", `{ c { a(options: "i", regex: "^x") } }`, bson.M{"a": bson.M{"$regex": "^x", "$options": "i"}}},
		{"options without regex", `{ c { a(options: "i", eq: "y") } }`, bson.M{"a": bson.M{"$eq": "y"}}},
		{"options alone", `{ c { a(options: "i") } }`, bson.M{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustTranslate(t, tt.query, nil)
			if diff := cmp.Diff(tt.want, got[0].Query); diff != "" {
				t.Fatalf("query mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("regex unbound drops options", func(t *testing.T) {
		got := mustTranslate(t, `query($r: String) { c { a(regex: $r, options: "i") } }`, nil)
		require.Empty(t, got[0].Query)
	})
}

func TestTranslate_Sort(t *testing.T) {
	got := mustTranslate(t, `{ c {
		a @sortDesc
		b { x @sort y { z @sortDesc } }
		d(include: true) @sort { e @sort }
	} }`, nil)
	want := bson.D{
		{Key: "a", Value: -1},
		{Key: "b.x", Value: 1},
		{Key: "b.y.z", Value: -1},
		{Key: "d", Value: 1},
		{Key: "d.e", Value: 1},
	}
	if diff := cmp.Diff(want, got[0].Sort); diff != "" {
		t.Fatalf("sort mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_MultipleCollections(t *testing.T) {
	got := mustTranslate(t, `{ a(skip: 2) { x } b { y(eq: true) } }`, nil)
	diffQueries(t, []*mongoquery.QueryInfo{
		{Collection: "a", Query: bson.M{}, Fields: bson.M{"x": 1}, Sort: bson.D{}, Skip: int64p(2)},
		{Collection: "b", Query: bson.M{"y": bson.M{"$eq": true}}, Fields: bson.M{"y": 1}, Sort: bson.D{}},
	}, got)
}

func TestTranslate_EdgeShapes(t *testing.T) {
	t.Run("root without selection", func(t *testing.T) {
		got := mustTranslate(t, `{ c(limit: 1) }`, nil)
		diffQueries(t, []*mongoquery.QueryInfo{{
			Collection: "c", Query: bson.M{}, Fields: bson.M{}, Sort: bson.D{}, Limit: int64p(1),
		}}, got)
	})

	t.Run("branch with every child skipped contributes nothing", func(t *testing.T) {
		got := mustTranslate(t, `{ c { a { x @skip(if: true) } b } }`, nil)
		require.Equal(t, bson.M{"b": 1}, got[0].Fields)
	})

	t.Run("fragments", func(t *testing.T) {
		got := mustTranslate(t, `{ c { ...F } } fragment F on T { a(eq: 1) b }`, nil)
		require.Equal(t, bson.M{"a": 1, "b": 1}, got[0].Fields)
		require.Equal(t, bson.M{"a": bson.M{"$eq": int64(1)}}, got[0].Query)
	})
}

func TestTranslate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		vars  map[string]any
		want  ValidationError
		msg   string
	}{
		{
			name:  "unknown collection argument",
			query: `{ c(where: 1) { a } }`,
			want:  ValidationError{Field: "c", Argument: "where", Level: CollectionLevel},
			msg:   `argument "where" is not allowed on collection field "c" (allowed: limit, skip)`,
		},
		{
			name:  "limit on non-leaf",
			query: `{ c { body(limit: 1) { a } } }`,
			want:  ValidationError{Field: "c.body", Argument: "limit", Level: NonLeafLevel},
			msg:   `argument "limit" is not allowed on non-leaf field "c.body" (allowed: include)`,
		},
		{
			name:  "skip on leaf",
			query: `{ c { a(skip: 1) } }`,
			want:  ValidationError{Field: "c.a", Argument: "skip", Level: LeafLevel},
		},
		{
			name:  "include on leaf",
			query: `{ c { a(include: true) } }`,
			want:  ValidationError{Field: "c.a", Argument: "include", Level: LeafLevel},
		},
		{
			name:  "filter on non-leaf",
			query: `{ c { body(eq: 1) { a } } }`,
			want:  ValidationError{Field: "c.body", Argument: "eq", Level: NonLeafLevel},
		},
		{
			name:  "include on root",
			query: `{ c(include: true) { a } }`,
			want:  ValidationError{Field: "c", Argument: "include", Level: CollectionLevel},
		},
		{
			name:  "negative limit",
			query: `{ c(limit: -1) { a } }`,
			want:  ValidationError{Field: "c", Argument: "limit", Level: CollectionLevel, Reason: "must be a non-negative integer"},
			msg:   `invalid value for argument "limit" on collection field "c": must be a non-negative integer`,
		},
		{
			name:  "fractional skip",
			query: `{ c(skip: 1.5) { a } }`,
			want:  ValidationError{Field: "c", Argument: "skip", Level: CollectionLevel, Reason: "must be a non-negative integer"},
		},
		{
			name:  "limit literal 2^63",
			query: `{ c(limit: 9223372036854775808) { a } }`,
			want:  ValidationError{Field: "c", Argument: "limit", Level: CollectionLevel, Reason: "must be a non-negative integer"},
		},
		{
			name:  "skip literal 2^63",
			query: `{ c(skip: 9223372036854775808) { a } }`,
			want:  ValidationError{Field: "c", Argument: "skip", Level: CollectionLevel, Reason: "must be a non-negative integer"},
		},
		{
			name:  "limit variable 2^63",
			query: `query($l: Int) { c(limit: $l) { a } }`,
			vars:  map[string]any{"l": float64(1 << 63)},
			want:  ValidationError{Field: "c", Argument: "limit", Level: CollectionLevel, Reason: "must be a non-negative integer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateQuery(tt.query, tt.vars)
			require.Nil(t, got)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T: %v", err, err)
			if diff := cmp.Diff(tt.want, *ve); diff != "" {
				t.Fatalf("error mismatch (-want +got):\n%s", diff)
			}
			if tt.msg != "" {
				require.EqualError(t, err, tt.msg)
			}
		})
	}
}

func TestTranslate_CountBounds(t *testing.T) {
	got := mustTranslate(t, `{ c(limit: 9223372036854775807) { a } }`, nil)
	require.Equal(t, int64(math.MaxInt64), *got[0].Limit)

	// The largest float64 below 2^63.
	got = mustTranslate(t, `query($s: Int) { c(skip: $s) { a } }`, map[string]any{"s": float64(1<<63 - 1024)})
	require.Equal(t, int64(1<<63-1024), *got[0].Skip)
}

func TestTranslate_NullCountsAreAbsent(t *testing.T) {
	got := mustTranslate(t, `query($s: Int) { c(limit: null, skip: $s) { a } }`, map[string]any{"s": nil})
	require.Nil(t, got[0].Limit)
	require.Nil(t, got[0].Skip)
}

func TestTranslate_AliasedRootsMerge(t *testing.T) {
	// Roots are keyed by collection name; aliases of one collection merge
	// into a single query.
	got := mustTranslate(t, `{ x: c { a } y: c { b(eq: 1) } }`, nil)
	diffQueries(t, []*mongoquery.QueryInfo{{
		Collection: "c",
		Query:      bson.M{"b": bson.M{"$eq": int64(1)}},
		Fields:     bson.M{"a": 1, "b": 1},
		Sort:       bson.D{},
	}}, got)
}

func TestTranslate_UnboundWrongLevelArgumentIsIgnored(t *testing.T) {
	// An omitted argument never reaches validation.
	got := mustTranslate(t, `query($l: Int) { c { body(limit: $l) { a } } }`, nil)
	require.Equal(t, bson.M{"body.a": 1}, got[0].Fields)
}

func TestResolve_Metadata(t *testing.T) {
	doc := mustParse(t, `{ c(limit: 3) { a @sort body(include: true) { b(eq: 1) } } }`)
	res, err := Resolve(doc, "", nil)
	require.NoError(t, err)

	want := Metadata{
		"c":        {Args: map[string]any{"limit": int64(3)}},
		"c.a":      {Directives: map[string]map[string]any{"sort": {}}},
		"c.body":   {Args: map[string]any{"include": true}},
		"c.body.b": {Args: map[string]any{"eq": int64(1)}},
	}
	if diff := cmp.Diff(want, res.Metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}

	body := res.Roots[0].(*Branch).Children[1].(*Branch)
	require.Equal(t, []string{"body"}, body.Node.Path)
	require.True(t, body.Node.IsQuery)
	require.Equal(t, map[string]any{"include": true}, body.Node.Args)
	leaf := body.Children[0].(*Leaf)
	require.Equal(t, "body.b", leaf.Node.PathString())
	require.Equal(t, "c", leaf.Node.Collection)
}

func TestTranslate_ParseError(t *testing.T) {
	_, err := TranslateQuery(`{ c { `, nil)
	require.Error(t, err)
	var ve *ValidationError
	require.False(t, errors.As(err, &ve))
}
