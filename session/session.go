// Package session implements the per-target debug session state machine
// described in spec section 4.5: it wraps one dapclient.Client, maps DAP
// events onto DebugState transitions, and exposes the debugging
// operation surface (breakpoints, execution control, inspection,
// evaluation) on top of it.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/roasbeef/dapctl/dapclient"
	"github.com/roasbeef/dapctl/handshake"
)

// OutputEvent is one line of debuggee output, fanned out separately from
// state; `output` is not itself a state change.
type OutputEvent struct {
	Category string
	Output   string
}

// Session is a live debugging context bound to one adapter process and
// one debuggee. A Session exclusively owns its dapclient.Client.
type Session struct {
	client  *dapclient.Client
	cleanup func()
	cfg     handshake.Config

	mu       sync.Mutex
	state    State
	changeCh chan struct{} // closed and replaced on every state write

	output chan OutputEvent
}

// New wraps client as a Session. cleanup is invoked once, from
// Disconnect, after the client has been shut down (it typically kills
// the adapter process and releases its resources).
func New(client *dapclient.Client, cleanup func()) *Session {
	s := &Session{
		client:   client,
		cleanup:  cleanup,
		cfg:      handshake.DefaultConfig(),
		state:    State{Kind: NotStarted},
		changeCh: make(chan struct{}),
		output:   make(chan OutputEvent, 64),
	}

	s.wireEvents()

	return s
}

// SetTimeouts overrides the default handshake/operation timeouts.
func (s *Session) SetTimeouts(cfg handshake.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Session) wireEvents() {
	s.client.OnEvent("stopped", func(m dap.EventMessage) {
		ev, ok := m.(*dap.StoppedEvent)
		if !ok {
			return
		}
		s.setState(State{
			Kind:             Stopped,
			Reason:           ev.Body.Reason,
			ThreadID:         ev.Body.ThreadId,
			HasThreadID:      true,
			HitBreakpointIDs: ev.Body.HitBreakpointIds,
		})
	})

	s.client.OnEvent("continued", func(m dap.EventMessage) {
		s.setState(State{Kind: Running})
	})

	s.client.OnEvent("terminated", func(m dap.EventMessage) {
		s.setState(State{Kind: Terminated})
		go s.client.Shutdown()
	})

	s.client.OnEvent("exited", func(m dap.EventMessage) {
		ev, ok := m.(*dap.ExitedEvent)
		code := 0
		if ok {
			code = ev.Body.ExitCode
		}
		s.setState(State{Kind: Exited, ExitCode: code})
	})

	s.client.OnEvent("output", func(m dap.EventMessage) {
		ev, ok := m.(*dap.OutputEvent)
		if !ok {
			return
		}
		select {
		case s.output <- OutputEvent{Category: ev.Body.Category, Output: ev.Body.Output}:
		default:
			log.Printf("[session] output channel full, dropping line")
		}
	})
}

// setState applies a state transition, ignoring transitions the state
// diagram forbids (e.g. a stray `continued` after the session already
// reached Terminated), and wakes every observer.
func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validTransition(s.state.Kind, next.Kind) {
		log.Printf("[session] ignoring invalid transition %s -> %s", s.state.Kind, next.Kind)
		return
	}

	s.state = next
	close(s.changeCh)
	s.changeCh = make(chan struct{})
}

// GetState returns the current observable state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StateChanges returns a channel that receives every subsequent state
// after a change, until ctx is cancelled. The first receive may already
// reflect several transitions having coalesced; callers that need every
// intermediate transition should call GetState from inside the loop.
func (s *Session) StateChanges(ctx context.Context) <-chan State {
	out := make(chan State)

	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			cur := s.state
			ch := s.changeCh
			s.mu.Unlock()

			select {
			case out <- cur:
			case <-ctx.Done():
				return
			}

			select {
			case <-ch:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Output returns the channel OutputEvents are fanned out on.
func (s *Session) Output() <-chan OutputEvent {
	return s.output
}

// InitializeAndLaunch runs the handshake orchestrator for a `launch`
// request and transitions the session through
// Initializing -> Initialized -> Launching -> Running (or Stopped, if
// StopOnEntry causes a `stopped` event to race the launch response).
func (s *Session) InitializeAndLaunch(ctx context.Context, clientID string,
	cfg LaunchConfig, configRequests []ConfigRequest) error {

	s.setState(State{Kind: Initializing})

	initArgs := dap.InitializeRequestArguments{
		ClientID:                    clientID,
		AdapterID:                   "dapctl",
		LinesStartAt1:               true,
		ColumnsStartAt1:             true,
		PathFormat:                  "path",
		SupportsVariableType:        true,
		SupportsRunInTerminalRequest: false,
	}

	launchArgs := map[string]any{
		"name":        nonEmpty(cfg.Name, "Debug Session"),
		"request":     "launch",
		"program":     cfg.Program,
		"stopOnEntry": cfg.StopOnEntry,
	}
	if len(cfg.Args) > 0 {
		launchArgs["args"] = cfg.Args
	}
	if len(cfg.Env) > 0 {
		launchArgs["env"] = cfg.Env
	}
	if cfg.WorkingDir != "" {
		launchArgs["cwd"] = cfg.WorkingDir
	}
	for k, v := range cfg.Extra {
		launchArgs[k] = v
	}

	raw, err := marshalArguments(launchArgs)
	if err != nil {
		return err
	}

	launchReq := &dap.LaunchRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "launch",
		},
		Arguments: raw,
	}

	s.setState(State{Kind: Initialized})
	s.setState(State{Kind: Launching})

	hcfg := s.currentTimeouts()
	result, err := handshake.RunLaunch(ctx, s.client, hcfg, initArgs, launchReq, toHandshakeRequests(configRequests))
	if err != nil {
		s.setState(State{Kind: Failed, Err: err})
		return err
	}

	s.afterHandshake(result)
	return nil
}

// InitializeAndAttach is InitializeAndLaunch's counterpart for attaching
// to an already-running process; no process spawn occurs.
func (s *Session) InitializeAndAttach(ctx context.Context, clientID string,
	cfg AttachConfig, configRequests []ConfigRequest) error {

	s.setState(State{Kind: Initializing})

	initArgs := dap.InitializeRequestArguments{
		ClientID:        clientID,
		AdapterID:       "dapctl",
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		PathFormat:      "path",
	}

	attachArgs := map[string]any{
		"name":    nonEmpty(cfg.Name, "Attach Session"),
		"request": "attach",
		"mode":    cfg.Mode,
	}
	if cfg.ProcessID != 0 {
		attachArgs["processId"] = cfg.ProcessID
	}
	if cfg.Host != "" {
		attachArgs["host"] = cfg.Host
	}
	if cfg.Port != 0 {
		attachArgs["port"] = cfg.Port
	}
	for k, v := range cfg.Extra {
		attachArgs[k] = v
	}

	raw, err := marshalArguments(attachArgs)
	if err != nil {
		return err
	}

	attachReq := &dap.AttachRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "attach",
		},
		Arguments: raw,
	}

	s.setState(State{Kind: Initialized})
	s.setState(State{Kind: Launching})

	hcfg := s.currentTimeouts()
	result, err := handshake.RunAttach(ctx, s.client, hcfg, initArgs, attachReq, toHandshakeRequests(configRequests))
	if err != nil {
		s.setState(State{Kind: Failed, Err: err})
		return err
	}

	s.afterHandshake(result)
	return nil
}

func (s *Session) afterHandshake(result *handshake.Result) {
	_ = result
	// Only promote Launching -> Running; if a `stopped` event already
	// raced us to Stopped (e.g. StopOnEntry), leave it alone. setState's
	// validTransition guard makes this promotion a no-op in that case.
	s.setState(State{Kind: Running})
}

func (s *Session) currentTimeouts() handshake.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Disconnect sends `disconnect`, awaits its response with a short
// timeout, then closes the client regardless of whether that response
// arrived.
func (s *Session) Disconnect(ctx context.Context, terminateDebuggee bool) error {
	req := &dap.DisconnectRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "disconnect",
		},
		Arguments: dap.DisconnectArguments{TerminateDebuggee: terminateDebuggee},
	}

	timeout := s.currentTimeouts().DisconnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	_, err := s.client.SendRequest(dctx, req)
	cancel()
	if err != nil {
		log.Printf("[session] disconnect response timed out or failed, closing anyway: %v", err)
	}

	s.client.Shutdown()
	s.setState(State{Kind: Terminated})

	if s.cleanup != nil {
		s.cleanup()
	}

	return nil
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
