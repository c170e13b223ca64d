package probe

import (
	"fmt"
	"time"
)

// TimeoutError reports that a probe did not reach a result within its
// time budget, whatever phase it was in when the budget ran out.
type TimeoutError struct {
	Target  string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("probe %s: no result within %s", e.Target, e.Timeout)
}

// TransportError wraps a connection-level failure such as a DNS miss,
// refused connection, reset or failed handshake.
type TransportError struct {
	Target string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("probe %s: transport: %v", e.Target, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports that the remote endpoint sent a structured
// message the prober could not decode.
type ProtocolError struct {
	Target string
	Err    error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("probe %s: protocol violation: %v", e.Target, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *ProtocolError) Unwrap() error { return e.Err }

// PrematureCloseError reports that the remote endpoint closed the
// connection before any usable data arrived. Code and Reason carry the
// close frame contents when the remote sent one.
type PrematureCloseError struct {
	Target string
	Reason string
	Code   int
}

// Error implements the error interface.
func (e *PrematureCloseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("probe %s: closed before data (code %d: %s)", e.Target, e.Code, e.Reason)
	}

	return fmt.Sprintf("probe %s: closed before data (code %d)", e.Target, e.Code)
}
