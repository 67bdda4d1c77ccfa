package session

import (
	"context"
	"fmt"

	"github.com/google/go-dap"
)

func baseRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Type: "request"},
		Command:         command,
	}
}

// Continue resumes execution of the given thread.
func (s *Session) Continue(ctx context.Context, threadID int) error {
	req := &dap.ContinueRequest{
		Request:   baseRequest("continue"),
		Arguments: dap.ContinueArguments{ThreadId: threadID},
	}

	respMsg, err := s.client.SendRequest(ctx, req)
	if err != nil {
		return err
	}
	if _, ok := respMsg.(*dap.ContinueResponse); !ok {
		return fmt.Errorf("unexpected response type %T for continue", respMsg)
	}

	s.setState(State{Kind: Running})
	return nil
}

// Pause interrupts a running thread.
func (s *Session) Pause(ctx context.Context, threadID int) error {
	req := &dap.PauseRequest{
		Request:   baseRequest("pause"),
		Arguments: dap.PauseArguments{ThreadId: threadID},
	}
	_, err := s.client.SendRequest(ctx, req)
	return err
}

// StepOver executes the next line without entering function calls.
func (s *Session) StepOver(ctx context.Context, threadID int) error {
	req := &dap.NextRequest{
		Request:   baseRequest("next"),
		Arguments: dap.NextArguments{ThreadId: threadID},
	}
	_, err := s.client.SendRequest(ctx, req)
	return err
}

// StepIn steps into the function call on the current line.
func (s *Session) StepIn(ctx context.Context, threadID int) error {
	req := &dap.StepInRequest{
		Request:   baseRequest("stepIn"),
		Arguments: dap.StepInArguments{ThreadId: threadID},
	}
	_, err := s.client.SendRequest(ctx, req)
	return err
}

// StepOut continues until the current function returns.
func (s *Session) StepOut(ctx context.Context, threadID int) error {
	req := &dap.StepOutRequest{
		Request:   baseRequest("stepOut"),
		Arguments: dap.StepOutArguments{ThreadId: threadID},
	}
	_, err := s.client.SendRequest(ctx, req)
	return err
}

// Threads lists the debuggee's threads.
func (s *Session) Threads(ctx context.Context) ([]ThreadInfo, error) {
	req := &dap.ThreadsRequest{Request: baseRequest("threads")}

	respMsg, err := s.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, ok := respMsg.(*dap.ThreadsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for threads", respMsg)
	}

	out := make([]ThreadInfo, len(resp.Body.Threads))
	for i, t := range resp.Body.Threads {
		out[i] = ThreadInfo{ID: t.Id, Name: t.Name}
	}
	return out, nil
}

// StackTrace returns the call stack for threadID.
func (s *Session) StackTrace(ctx context.Context, threadID int) ([]StackFrame, error) {
	req := &dap.StackTraceRequest{
		Request:   baseRequest("stackTrace"),
		Arguments: dap.StackTraceArguments{ThreadId: threadID},
	}

	respMsg, err := s.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, ok := respMsg.(*dap.StackTraceResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for stackTrace", respMsg)
	}

	out := make([]StackFrame, len(resp.Body.StackFrames))
	for i, f := range resp.Body.StackFrames {
		out[i] = StackFrame{
			ID:     f.Id,
			Name:   f.Name,
			Line:   f.Line,
			Column: f.Column,
			Source: SourceInfo{Path: f.Source.Path, Name: f.Source.Name},
		}
	}
	return out, nil
}

// Scopes returns the variable scopes available in frameID.
func (s *Session) Scopes(ctx context.Context, frameID int) ([]VariableScope, error) {
	req := &dap.ScopesRequest{
		Request:   baseRequest("scopes"),
		Arguments: dap.ScopesArguments{FrameId: frameID},
	}

	respMsg, err := s.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, ok := respMsg.(*dap.ScopesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for scopes", respMsg)
	}

	out := make([]VariableScope, len(resp.Body.Scopes))
	for i, sc := range resp.Body.Scopes {
		out[i] = VariableScope{
			Name:               sc.Name,
			VariablesReference: sc.VariablesReference,
			Expensive:          sc.Expensive,
		}
	}
	return out, nil
}

// Variables returns the variables under variablesReference (a scope or a
// nested variable's reference).
func (s *Session) Variables(ctx context.Context, variablesReference int) ([]Variable, error) {
	req := &dap.VariablesRequest{
		Request:   baseRequest("variables"),
		Arguments: dap.VariablesArguments{VariablesReference: variablesReference},
	}

	respMsg, err := s.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, ok := respMsg.(*dap.VariablesResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for variables", respMsg)
	}

	out := make([]Variable, len(resp.Body.Variables))
	for i, v := range resp.Body.Variables {
		out[i] = Variable{
			Name:               v.Name,
			Value:              v.Value,
			Type:               v.Type,
			VariablesReference: v.VariablesReference,
			IndexedVariables:   v.IndexedVariables,
			NamedVariables:     v.NamedVariables,
		}
	}
	return out, nil
}

// Evaluate evaluates expr in the context of frameID. context is one of
// DAP's evaluate contexts ("watch", "repl", "hover", ...).
func (s *Session) Evaluate(ctx context.Context, expr string, frameID int, evalContext string) (*EvaluationResult, error) {
	if evalContext == "" {
		evalContext = "watch"
	}

	req := &dap.EvaluateRequest{
		Request: baseRequest("evaluate"),
		Arguments: dap.EvaluateArguments{
			Expression: expr,
			FrameId:    frameID,
			Context:    evalContext,
		},
	}

	respMsg, err := s.client.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, ok := respMsg.(*dap.EvaluateResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T for evaluate", respMsg)
	}

	return &EvaluationResult{
		Result:             resp.Body.Result,
		Type:               resp.Body.Type,
		VariablesReference: resp.Body.VariablesReference,
		IndexedVariables:   resp.Body.IndexedVariables,
		NamedVariables:     resp.Body.NamedVariables,
	}, nil
}
