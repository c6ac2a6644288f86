package events

import "time"

// ReadMode names the driver call used for a collection read.
type ReadMode string

const (
	ReadFind    ReadMode = "find"
	ReadFindOne ReadMode = "findOne"
)

// CollectionReadStart is emitted before one collection is read. Index is the
// position of the query within its document, so reads of the same collection
// in one request stay distinguishable.
type CollectionReadStart struct {
	Index      int
	Collection string
	Mode       ReadMode
}

// CollectionReadFinish is emitted after one collection read settles.
type CollectionReadFinish struct {
	Index      int
	Collection string
	Mode       ReadMode
	Documents  int
	Err        error
	Duration   time.Duration
}
