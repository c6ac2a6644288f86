package events

import "time"

// TranslateStart is emitted before a GraphQL document is translated.
type TranslateStart struct {
	Query         string
	OperationName string
}

// TranslateFinish is emitted after translation, successful or not.
type TranslateFinish struct {
	Query         string
	OperationName string
	Collections   []string
	Err           error
	Duration      time.Duration
}
