// Package executor runs translated collection queries against a document
// store and normalizes their outcomes.
//
// # Execution Model
//
// ExecuteAll issues one read per QueryInfo. Reads of a multi-collection
// document run concurrently, and each read settles independently: a driver
// error (or panic) in one collection is captured on that collection's Result
// and never cancels or blocks the others. Results are returned in the order
// of the input queries once every read has settled.
//
// ExecuteOne issues a single-document read. A missing document is not an
// error; it yields a nil document.
//
// # Errors
//
// The executor never returns an error for a failed read. The failure is
// wrapped with the collection name (carrying a stack trace via
// github.com/pkg/errors) and stored on the result, and the documents field is
// set to an empty slice (find) or nil (findOne).
//
// Retries, timeouts and cancellation are left to the Connection
// implementation and the caller's context.
//
// # Connection Contract
//
// Connection and Collection abstract the driver. Implementations must be safe
// for concurrent use: ExecuteAll calls Collection and Find from multiple
// goroutines. See mongostore for the MongoDB implementation.
package executor
