// Package dkerr defines the error taxonomy shared by the transport, DAP
// client, handshake orchestrator, debug session, and session manager.
//
// Every error raised by this module wraps one of the kinds below so
// callers can classify failures with errors.As/errors.Is instead of
// string-matching.
package dkerr

import (
	"errors"
	"fmt"
)

// IoError wraps a transport read/write failure. Terminal for the session.
type IoError struct {
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("io: %v", e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// FramingError indicates malformed DAP framing or JSON. Terminal for the
// session; never recoverable mid-stream.
type FramingError struct {
	Err error
}

func (e *FramingError) Error() string { return fmt.Sprintf("framing: %v", e.Err) }
func (e *FramingError) Unwrap() error { return e.Err }

// TimeoutError indicates an awaited operation exceeded its deadline. The
// caller decides whether the session is still usable.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("timeout waiting for %s", e.Op) }

// AdapterError surfaces a DAP response with success=false. Not a
// transport failure — the originating caller alone sees this.
type AdapterError struct {
	Command string
	Message string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter error on %q: %s", e.Command, e.Message)
}

// ProtocolViolation indicates an unexpected state transition, a duplicate
// response, or an event arriving before initialize. Terminal for the
// session.
type ProtocolViolation struct {
	Detail string
}

func (e *ProtocolViolation) Error() string { return fmt.Sprintf("protocol violation: %s", e.Detail) }

// Cancelled indicates the session was shut down while an operation was
// still awaiting a result. Terminal for that operation only.
var Cancelled = errors.New("operation cancelled by session shutdown")

// Closed indicates a request was submitted after the client was closed.
// Non-terminal: the caller is simply rejected.
var Closed = errors.New("dap client closed")

// Disconnected indicates the transport hit EOF while requests were still
// pending. Terminal for the session.
type DisconnectedError struct {
	Err error
}

func (e *DisconnectedError) Error() string { return fmt.Sprintf("disconnected: %v", e.Err) }
func (e *DisconnectedError) Unwrap() error { return e.Err }

// SpawnFailed indicates the adapter process could not be started. The
// session never reaches Initializing.
type SpawnFailed struct {
	Err error
}

func (e *SpawnFailed) Error() string { return fmt.Sprintf("spawn failed: %v", e.Err) }
func (e *SpawnFailed) Unwrap() error { return e.Err }

// EOF is returned by a Transport when the underlying stream is closed
// cleanly with no partial message in flight.
var EOF = errors.New("transport: eof")
