package translator

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Level identifies where in the selection tree an argument appears.
type Level int

const (
	// CollectionLevel is a root field, which names the collection.
	CollectionLevel Level = iota
	// NonLeafLevel is any non-root field with child selections.
	NonLeafLevel
	// LeafLevel is any field without child selections.
	LeafLevel
)

func (l Level) String() string {
	switch l {
	case CollectionLevel:
		return "collection"
	case NonLeafLevel:
		return "non-leaf"
	case LeafLevel:
		return "leaf"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// CollectionArg is an argument accepted on a root field.
type CollectionArg string

const (
	ArgLimit CollectionArg = "limit"
	ArgSkip  CollectionArg = "skip"
)

// NonLeafArg is an argument accepted on a field with child selections.
type NonLeafArg string

const (
	ArgInclude NonLeafArg = "include"
)

// LeafArg is a filter argument accepted on a field without child selections.
// Each maps to the MongoDB operator "$" + name.
type LeafArg string

const (
	ArgEq      LeafArg = "eq"
	ArgNe      LeafArg = "ne"
	ArgGt      LeafArg = "gt"
	ArgGte     LeafArg = "gte"
	ArgLt      LeafArg = "lt"
	ArgLte     LeafArg = "lte"
	ArgIn      LeafArg = "in"
	ArgNin     LeafArg = "nin"
	ArgExists  LeafArg = "exists"
	ArgRegex   LeafArg = "regex"
	ArgOptions LeafArg = "options"
)

var (
	collectionArgs = []CollectionArg{ArgLimit, ArgSkip}
	nonLeafArgs    = []NonLeafArg{ArgInclude}
	leafArgs       = []LeafArg{ArgEq, ArgNe, ArgGt, ArgGte, ArgLt, ArgLte, ArgIn, ArgNin, ArgExists, ArgRegex, ArgOptions}
)

func parseCollectionArg(name string) (CollectionArg, bool) {
	for _, a := range collectionArgs {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

func parseNonLeafArg(name string) (NonLeafArg, bool) {
	for _, a := range nonLeafArgs {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

func parseLeafArg(name string) (LeafArg, bool) {
	for _, a := range leafArgs {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

// Operator returns the MongoDB query operator for a.
func (a LeafArg) Operator() string { return "$" + string(a) }

// deferred reports whether a must be applied after every other operator on
// the same field.
func (a LeafArg) deferred() bool { return a == ArgOptions }

// allowedArgs lists the argument names valid at level, for error messages.
func allowedArgs(level Level) []string {
	var out []string
	switch level {
	case CollectionLevel:
		for _, a := range collectionArgs {
			out = append(out, string(a))
		}
	case NonLeafLevel:
		for _, a := range nonLeafArgs {
			out = append(out, string(a))
		}
	case LeafLevel:
		for _, a := range leafArgs {
			out = append(out, string(a))
		}
	}
	return out
}

// ValidationError reports an argument used where it is not allowed, or an
// allowed argument with an unusable value.
type ValidationError struct {
	Field    string
	Argument string
	Level    Level
	// Reason is set for value errors; empty means the argument itself is not
	// allowed at Level.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid value for argument %q on %s field %q: %s", e.Argument, e.Level, e.Field, e.Reason)
	}
	return fmt.Sprintf("argument %q is not allowed on %s field %q (allowed: %s)",
		e.Argument, e.Level, e.Field, strings.Join(allowedArgs(e.Level), ", "))
}

// validateArgs checks every argument name against the set for level. Names
// are checked in sorted order so the reported argument is deterministic.
func validateArgs(field string, level Level, args map[string]any) error {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var ok bool
		switch level {
		case CollectionLevel:
			_, ok = parseCollectionArg(name)
		case NonLeafLevel:
			_, ok = parseNonLeafArg(name)
		case LeafLevel:
			_, ok = parseLeafArg(name)
		}
		if !ok {
			return &ValidationError{Field: field, Argument: name, Level: level}
		}
	}
	if level == CollectionLevel {
		for _, name := range names {
			// A null count means no limit or skip.
			if args[name] == nil {
				continue
			}
			if _, ok := asCount(args[name]); !ok {
				return &ValidationError{Field: field, Argument: name, Level: level, Reason: "must be a non-negative integer"}
			}
		}
	}
	return nil
}

// asCount converts a limit/skip value. Integral floats are accepted because
// JSON-decoded variables arrive as float64, and so do integer literals too
// large for int64. float64(math.MaxInt64) is 2^63, which int64 cannot hold.
func asCount(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), n >= 0
	case int32:
		return int64(n), n >= 0
	case int64:
		return n, n >= 0
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
