package market

import "fmt"

// RateLimitError reports that the remote endpoint signaled throttling
// (HTTP 429). It is always recoverable: callers either back off and retry
// or abort with a partial result.
type RateLimitError struct {
	Status int
	Body   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("market: rate limited (status %d): %s", e.Status, e.Body)
}

// RequestError covers every other transport failure: network errors,
// non-2xx statuses, and malformed response bodies. It is recoverable only
// by aborting the current operation; the transport never retries.
type RequestError struct {
	Op     string
	Status int // 0 when the request never produced a response
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("market: %s failed with status %d", e.Op, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }
