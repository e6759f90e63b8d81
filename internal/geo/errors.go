package geo

import "fmt"

// NotFoundError means the remote end answered but has no such record.
type NotFoundError struct {
	ID  string
	URL string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("series %s not found (%s)", e.ID, e.URL)
	}
	return fmt.Sprintf("remote file not found: %s", e.URL)
}

// RequestError wraps a transport or status failure after retries were
// exhausted.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }
