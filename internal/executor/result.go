package executor

import "go.mongodb.org/mongo-driver/v2/bson"

// Result is the outcome of one find.
type Result struct {
	Collection string
	Results    []bson.M
	Error      error
}

// OneResult is the outcome of one findOne.
type OneResult struct {
	Collection string
	Result     bson.M
	Error      error
}
