package translator

import (
	"testing"

	language "github.com/hanpama/mongograph/internal/language"
)

func mustParse(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}
