package proxy

import "fmt"

// ValidationError reports a request rejected before any upstream call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports any failure reaching or reading from the upstream
// API, timeouts included. StatusCode is set when the upstream answered
// with a non-success status.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
	}
	if e.Err == nil {
		return "upstream request failed"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
