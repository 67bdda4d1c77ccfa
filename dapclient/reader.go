package dapclient

import (
	"log"

	"github.com/google/go-dap"

	"github.com/roasbeef/dapctl/dkerr"
)

// readLoop is the single task that owns read access to the transport. For
// each incoming message it performs exactly one framed read, releasing
// any transport-internal lock before dispatch (transport.Transport
// already enforces that), then dispatches:
//
//  1. Response: complete the matching pending request; log and drop if no
//     match (it may have already timed out).
//  2. Event: fan out to every persistent subscriber and one-shot waiter
//     for that event name, in arrival order.
//  3. Request (adapter-initiated): route to the injected handler and
//     write back its response.
//
// A terminal transport error drains and fails every pending sink.
func (c *Client) readLoop() {
	for {
		msg, err := c.t.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		switch m := msg.(type) {
		case dap.ResponseMessage:
			c.dispatchResponse(m)

		case dap.EventMessage:
			c.dispatchEvent(m)

		case dap.RequestMessage:
			c.dispatchReverseRequest(m)

		default:
			log.Printf("[dapclient] dropping message of unexpected type %T", msg)
		}
	}
}

func (c *Client) handleReadError(err error) {
	if err == dkerr.EOF {
		c.fail(&dkerr.DisconnectedError{Err: err})
		return
	}
	// Framing or Io errors are both terminal for the session.
	c.fail(err)
}

func (c *Client) dispatchResponse(m dap.ResponseMessage) {
	base := m.GetResponse()

	c.pendingMu.Lock()
	ch, ok := c.pending[base.RequestSeq]
	if ok {
		delete(c.pending, base.RequestSeq)
	}
	c.pendingMu.Unlock()

	if !ok {
		log.Printf("[dapclient] no pending request for request_seq=%d (command=%s), dropping",
			base.RequestSeq, base.Command)
		return
	}

	var err error
	if !base.Success {
		err = &dkerr.AdapterError{Command: base.Command, Message: base.Message}
	}

	ch <- pendingResult{resp: m, err: err}
}

func (c *Client) dispatchEvent(m dap.EventMessage) {
	name := m.GetEvent().Event

	c.eventsMu.Lock()
	sinks := append([]func(dap.EventMessage){}, c.onEvent[name]...)
	waiters := c.waiters[name]
	delete(c.waiters, name)
	c.eventsMu.Unlock()

	for _, ch := range waiters {
		ch <- m
	}
	for _, fn := range sinks {
		fn(m)
	}
}

func (c *Client) dispatchReverseRequest(m dap.RequestMessage) {
	c.reqHandlerMu.Lock()
	handler := c.reqHandler
	c.reqHandlerMu.Unlock()

	resp := handler(m)
	if err := c.t.WriteMessage(resp); err != nil {
		log.Printf("[dapclient] failed to write reverse-request response: %v", err)
	}
}
