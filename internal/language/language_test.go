package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuerySyntaxError(t *testing.T) {
	_, err := ParseQuery(`{ users { `)
	require.Error(t, err)
	ge, ok := err.(*Error)
	require.True(t, ok, "want *Error, got %T", err)
	require.NotEmpty(t, ge.Locations)
}

func TestSelectOperation(t *testing.T) {
	single, err := ParseQuery(`{ a { b } }`)
	require.NoError(t, err)
	multi, err := ParseQuery(`query A { a { b } } query B { c { d } }`)
	require.NoError(t, err)
	empty := &QueryDocument{}

	op, err := SelectOperation(single, "")
	require.NoError(t, err)
	require.Equal(t, Query, op.Operation)

	op, err = SelectOperation(multi, "B")
	require.NoError(t, err)
	require.Equal(t, "B", op.Name)

	_, err = SelectOperation(multi, "")
	require.EqualError(t, err, "operation name required: document contains 2 operations")
	_, err = SelectOperation(multi, "C")
	require.EqualError(t, err, `operation "C" not found`)
	_, err = SelectOperation(empty, "")
	require.EqualError(t, err, "document contains no operations")
	_, err = SelectOperation(nil, "")
	require.EqualError(t, err, "no document")
}
