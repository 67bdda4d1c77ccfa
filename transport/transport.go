// Package transport implements the length-prefixed JSON framing DAP uses
// over a bidirectional byte stream, for both stdio pipes and TCP sockets.
//
// Framing and message encoding are delegated to github.com/google/go-dap,
// which already speaks the "Content-Length: N\r\n\r\n" + N-byte UTF-8 JSON
// body wire format and is total over the three DAP message kinds. This
// package supplies only the piece go-dap does not: the single-mutex
// discipline that makes one Transport safe for a concurrent reader and
// concurrent writers, per spec.
package transport

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"

	"github.com/roasbeef/dapctl/dkerr"
)

// Transport reads and writes length-prefixed DAP messages on a shared
// byte stream.
type Transport interface {
	// ReadMessage blocks until one complete DAP message has been read, or
	// returns a *dkerr.FramingError / *dkerr.IoError / dkerr.EOF.
	ReadMessage() (dap.Message, error)

	// WriteMessage serialises and flushes one complete message. Writes
	// never partially succeed from the caller's perspective: either the
	// whole framed payload reaches the stream, or an error is returned
	// and nothing usable was written.
	WriteMessage(msg dap.Message) error

	// Close releases the underlying stream.
	Close() error
}

// pipeTransport is the shared implementation for both stdio and TCP
// transports: DAP framing is symmetric over any io.ReadWriteCloser.
type pipeTransport struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader

	// mu guards the underlying stream. It is held for exactly one framed
	// read or one framed write — never across message dispatch. Holding
	// it longer starves whichever side (reader or writer) is waiting for
	// the lock, which was an observed deadlock in early DAP client
	// implementations of this shape.
	mu sync.Mutex
}

// NewStdio wraps a process's stdin/stdout (or any pipe-like stream) as a
// Transport.
func NewStdio(rwc io.ReadWriteCloser) Transport {
	return &pipeTransport{rwc: rwc, r: bufio.NewReader(rwc)}
}

// NewTCP wraps a connected TCP socket as a Transport.
func NewTCP(conn net.Conn) Transport {
	return &pipeTransport{rwc: conn, r: bufio.NewReader(conn)}
}

func (t *pipeTransport) ReadMessage() (dap.Message, error) {
	t.mu.Lock()
	msg, err := dap.ReadProtocolMessage(t.r)
	t.mu.Unlock()

	if err != nil {
		if err == io.EOF {
			return nil, dkerr.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, &dkerr.FramingError{Err: err}
		}
		// go-dap returns a plain error for bad framing (header parsing)
		// and for invalid JSON bodies; both are framing errors, not I/O
		// errors.
		return nil, &dkerr.FramingError{Err: err}
	}

	return msg, nil
}

func (t *pipeTransport) WriteMessage(msg dap.Message) error {
	t.mu.Lock()
	err := dap.WriteProtocolMessage(t.rwc, msg)
	t.mu.Unlock()

	if err != nil {
		return &dkerr.IoError{Err: err}
	}
	return nil
}

func (t *pipeTransport) Close() error {
	return t.rwc.Close()
}
