// Package dapclient implements the DAP client described in spec section
// 4.3: it owns a transport and a background reader goroutine, assigns
// sequence numbers, correlates responses to requests, and fans out
// events to subscribers.
package dapclient

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/go-dap"

	"github.com/roasbeef/dapctl/dkerr"
	"github.com/roasbeef/dapctl/transport"
)

// RequestHandler responds to an adapter-initiated request (e.g.
// runInTerminal). The default handler replies success=false,
// message="unsupported".
type RequestHandler func(req dap.RequestMessage) dap.ResponseMessage

// Client is a single full-duplex DAP connection to one adapter process.
type Client struct {
	t transport.Transport

	seq int64 // atomically incremented; next outgoing request seq

	pendingMu sync.Mutex
	pending   map[int]chan pendingResult

	eventsMu sync.Mutex
	onEvent  map[string][]func(dap.EventMessage)
	waiters  map[string][]chan dap.EventMessage

	reqHandlerMu sync.Mutex
	reqHandler   RequestHandler

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

type pendingResult struct {
	resp dap.ResponseMessage
	err  error
}

// New creates a Client over t and starts its reader goroutine. The
// returned Client is ready to send requests immediately.
func New(t transport.Transport) *Client {
	c := &Client{
		t:       t,
		pending: make(map[int]chan pendingResult),
		onEvent: make(map[string][]func(dap.EventMessage)),
		waiters: make(map[string][]chan dap.EventMessage),
		closed:  make(chan struct{}),
	}
	c.reqHandler = defaultRequestHandler

	go c.readLoop()

	return c
}

func defaultRequestHandler(req dap.RequestMessage) dap.ResponseMessage {
	base := req.GetRequest()
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		RequestSeq:      base.Seq,
		Success:         false,
		Command:         base.Command,
		Message:         "unsupported",
	}
}

// SetRequestHandler installs the handler invoked for adapter-initiated
// requests. Passing nil restores the default "unsupported" handler.
func (c *Client) SetRequestHandler(h RequestHandler) {
	c.reqHandlerMu.Lock()
	defer c.reqHandlerMu.Unlock()

	if h == nil {
		h = defaultRequestHandler
	}
	c.reqHandler = h
}

// nextSeq assigns the next outgoing sequence number. Sequence numbers are
// monotonically increasing per direction, assigned by the sender
// per the DAP spec.
func (c *Client) nextSeq() int {
	return int(atomic.AddInt64(&c.seq, 1))
}

// isClosed reports whether the client has been shut down.
func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// SendRequest assigns a fresh seq, writes req, and blocks until the
// matching response arrives, ctx is cancelled, or the client is closed.
func (c *Client) SendRequest(ctx context.Context, req dap.RequestMessage) (dap.ResponseMessage, error) {
	ch, err := c.send(req)
	if err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.resp, res.err
	case <-ctx.Done():
		c.removePending(req.GetRequest().Seq)
		return nil, &dkerr.TimeoutError{Op: req.GetRequest().Command}
	case <-c.closed:
		return nil, dkerr.Cancelled
	}
}

// SendRequestAsync assigns a fresh seq, writes req, and returns
// immediately with a channel the caller can select on later. This is
// used only by the handshake orchestrator, which must send launch/attach
// without blocking so it can race the await against the initialized
// event.
func (c *Client) SendRequestAsync(req dap.RequestMessage) (<-chan Result, error) {
	ch, err := c.send(req)
	if err != nil {
		return nil, err
	}

	out := make(chan Result, 1)
	go func() {
		select {
		case res := <-ch:
			out <- Result{Response: res.resp, Err: res.err}
		case <-c.closed:
			out <- Result{Err: dkerr.Cancelled}
		}
	}()

	return out, nil
}

// Result is the outcome of an asynchronous request.
type Result struct {
	Response dap.ResponseMessage
	Err      error
}

func (c *Client) send(req dap.RequestMessage) (chan pendingResult, error) {
	if c.isClosed() {
		return nil, dkerr.Closed
	}

	seq := c.nextSeq()
	base := req.GetRequest()
	base.Seq = seq
	base.Type = "request"

	ch := make(chan pendingResult, 1)

	c.pendingMu.Lock()
	c.pending[seq] = ch
	c.pendingMu.Unlock()

	if err := c.t.WriteMessage(req); err != nil {
		c.removePending(seq)
		return nil, err
	}

	return ch, nil
}

func (c *Client) removePending(seq int) {
	c.pendingMu.Lock()
	delete(c.pending, seq)
	c.pendingMu.Unlock()
}

// OnEvent registers a persistent callback invoked for every future
// occurrence of the named event, in the order the adapter emitted them.
func (c *Client) OnEvent(name string, fn func(dap.EventMessage)) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	c.onEvent[name] = append(c.onEvent[name], fn)
}

// WaitForEvent blocks until the named event occurs, ctx is cancelled, or
// the client closes. It is a one-shot subscription: it is consumed by
// the first matching event only.
func (c *Client) WaitForEvent(ctx context.Context, name string) (dap.EventMessage, error) {
	ch := make(chan dap.EventMessage, 1)

	c.eventsMu.Lock()
	if c.isClosed() {
		c.eventsMu.Unlock()
		return nil, dkerr.Cancelled
	}
	c.waiters[name] = append(c.waiters[name], ch)
	c.eventsMu.Unlock()

	select {
	case ev := <-ch:
		return ev, nil
	case <-ctx.Done():
		c.removeWaiter(name, ch)
		return nil, &dkerr.TimeoutError{Op: "event:" + name}
	case <-c.closed:
		return nil, dkerr.Cancelled
	}
}

func (c *Client) removeWaiter(name string, target chan dap.EventMessage) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	list := c.waiters[name]
	for i, ch := range list {
		if ch == target {
			c.waiters[name] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Shutdown stops the reader goroutine, closes the transport, and fails
// every outstanding pending request and event waiter with Cancelled.
func (c *Client) Shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.t.Close()

		c.pendingMu.Lock()
		for seq, ch := range c.pending {
			ch <- pendingResult{err: dkerr.Cancelled}
			delete(c.pending, seq)
		}
		c.pendingMu.Unlock()

		// WaitForEvent already selects on c.closed, which is closed
		// above: that alone wakes every waiter with Cancelled. Also
		// sending into the waiter channels here would race that
		// select, since both cases could become ready together, so
		// the waiters are just dropped.
		c.eventsMu.Lock()
		for name := range c.waiters {
			delete(c.waiters, name)
		}
		c.eventsMu.Unlock()
	})
	return err
}

// Err returns the error that caused the client to close, if any transport
// failure (as opposed to an explicit Shutdown call) was the cause.
func (c *Client) Err() error {
	<-c.closed
	return c.closeErr
}

func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		c.t.Close()

		c.pendingMu.Lock()
		for seq, ch := range c.pending {
			ch <- pendingResult{err: err}
			delete(c.pending, seq)
		}
		c.pendingMu.Unlock()

		// WaitForEvent already selects on c.closed, which is closed
		// above: that alone wakes every waiter with Cancelled. Also
		// sending into the waiter channels here would race that
		// select, since both cases could become ready together, so
		// the waiters are just dropped.
		c.eventsMu.Lock()
		for name := range c.waiters {
			delete(c.waiters, name)
		}
		c.eventsMu.Unlock()

		log.Printf("[dapclient] closed: %v", err)
	})
}
