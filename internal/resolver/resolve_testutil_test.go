package resolver

import "errors"

var errBoom = errors.New("boom")
