// Package resolver walks a GraphQL query document without a schema and calls
// a FieldFunc for every selected field.
//
// # Traversal
//
// Fields are visited in pre-order: a parent is always resolved before any of
// its children, and siblings are visited in document order. Fragment spreads
// and inline fragments are flattened into the enclosing selection set, and
// the @skip and @include directives are evaluated against the variable
// binding before a field is collected.
//
// Fields that share a name under the same parent are merged into one visit:
// their arguments and directives are combined (later occurrences win) and
// their child selections are concatenated. Aliases only affect ResultKey;
// they never split a field into separate nodes.
//
// # Variables
//
// Variable defaults declared by the operation are applied first. A value that
// refers to a variable which is still unbound is omitted: a top-level argument
// disappears from the argument map, and list items or object members
// disappear from their container. An explicit null (literal or bound
// variable) is kept; it is up to the FieldFunc to give it meaning. The
// translator treats a null limit or skip like an absent one.
//
// Integer literals that do not fit in int64 are passed as float64.
package resolver
