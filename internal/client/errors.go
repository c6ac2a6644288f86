package client

// UsageError reports a request the client refuses before any read: an empty
// or malformed document, a collection outside the whitelist, an excessive
// limit or a wrong number of collections for FindOne.
type UsageError struct {
	Message string
	Err     error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UsageError) Unwrap() error { return e.Err }
