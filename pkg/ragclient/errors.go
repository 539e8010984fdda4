package ragclient

import "fmt"

// TransportError means the streaming endpoint could not be reached or answered
// with a non-success status. Fatal to the invocation; no events were processed.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ragclient %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("ragclient %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError carries an explicit "error" event reported by the answer
// backend mid-stream. The message is surfaced verbatim when the backend sent
// one.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("answer backend error: %s", e.Message)
}
