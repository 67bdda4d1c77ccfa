package session

import (
	"context"
	"fmt"

	"github.com/google/go-dap"

	"github.com/roasbeef/dapctl/handshake"
)

// ConfigRequest is one configuration-phase request a caller wants flushed
// during the handshake's Configuring step, built by the constructors
// below from the session package's own wrapper types so callers never
// have to touch go-dap request structs directly.
type ConfigRequest struct {
	req dap.RequestMessage
}

func toHandshakeRequests(crs []ConfigRequest) []handshake.ConfigRequest {
	out := make([]handshake.ConfigRequest, len(crs))
	for i, cr := range crs {
		out[i] = handshake.ConfigRequest{Request: cr.req}
	}
	return out
}

// SourceBreakpoints builds a ConfigRequest that sets line breakpoints for
// one source file, for use with InitializeAndLaunch/InitializeAndAttach.
func SourceBreakpoints(file string, bps []BreakpointLocation) ConfigRequest {
	src := make([]dap.SourceBreakpoint, len(bps))
	for i, bp := range bps {
		src[i] = dap.SourceBreakpoint{
			Line:         bp.Line,
			Column:       bp.Column,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
			LogMessage:   bp.LogMessage,
		}
	}

	req := &dap.SetBreakpointsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setBreakpoints",
		},
		Arguments: dap.SetBreakpointsArguments{
			Source:      dap.Source{Path: file},
			Breakpoints: src,
		},
	}
	return ConfigRequest{req: req}
}

// FunctionBreakpoints builds a ConfigRequest that sets breakpoints on
// function names.
func FunctionBreakpoints(bps []FunctionBreakpoint) ConfigRequest {
	fns := make([]dap.FunctionBreakpoint, len(bps))
	for i, bp := range bps {
		fns[i] = dap.FunctionBreakpoint{
			Name:         bp.Name,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
		}
	}

	req := &dap.SetFunctionBreakpointsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setFunctionBreakpoints",
		},
		Arguments: dap.SetFunctionBreakpointsArguments{Breakpoints: fns},
	}
	return ConfigRequest{req: req}
}

// ExceptionBreakpoints builds a ConfigRequest that enables the named
// exception filters (adapter-defined, e.g. "raised", "uncaught").
func ExceptionBreakpoints(filters []string) ConfigRequest {
	req := &dap.SetExceptionBreakpointsRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "setExceptionBreakpoints",
		},
		Arguments: dap.SetExceptionBreakpointsArguments{Filters: filters},
	}
	return ConfigRequest{req: req}
}

// SetBreakpoints applies or re-applies line breakpoints for a source
// file at any point after the handshake has started, returning the
// adapter-verified set. Calling this again for the same file replaces
// its previous breakpoints, per DAP semantics.
func (s *Session) SetBreakpoints(ctx context.Context, file string, bps []BreakpointLocation) ([]Breakpoint, error) {
	cr := SourceBreakpoints(file, bps)

	respMsg, err := s.client.SendRequest(ctx, cr.req)
	if err != nil {
		return nil, err
	}

	resp, ok := respMsg.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for setBreakpoints", respMsg)
	}

	return toBreakpoints(resp.Body.Breakpoints), nil
}

// SetFunctionBreakpoints applies function-name breakpoints at any point
// after the handshake has started.
func (s *Session) SetFunctionBreakpoints(ctx context.Context, bps []FunctionBreakpoint) ([]Breakpoint, error) {
	cr := FunctionBreakpoints(bps)

	respMsg, err := s.client.SendRequest(ctx, cr.req)
	if err != nil {
		return nil, err
	}

	resp, ok := respMsg.(*dap.SetFunctionBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for setFunctionBreakpoints", respMsg)
	}

	return toBreakpoints(resp.Body.Breakpoints), nil
}

// SetExceptionBreakpoints enables the named exception filters at any
// point after the handshake has started.
func (s *Session) SetExceptionBreakpoints(ctx context.Context, filters []string) error {
	cr := ExceptionBreakpoints(filters)

	_, err := s.client.SendRequest(ctx, cr.req)
	return err
}

func toBreakpoints(in []dap.Breakpoint) []Breakpoint {
	out := make([]Breakpoint, len(in))
	for i, bp := range in {
		out[i] = Breakpoint{
			ID:       bp.Id,
			Verified: bp.Verified,
			Message:  bp.Message,
			Line:     bp.Line,
			Column:   bp.Column,
		}
	}
	return out
}
