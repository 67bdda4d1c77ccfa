// Package mcp exposes the Session Manager over the Model Context
// Protocol via github.com/mark3labs/mcp-go, with each tool delegating
// straight to manager.Manager / session.Session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/roasbeef/dapctl/manager"
	"github.com/roasbeef/dapctl/session"
)

// CreateSessionArgs launches a new debuggee under a registered adapter.
type CreateSessionArgs struct {
	Adapter     string   `json:"adapter"`
	ClientID    string   `json:"client_id"`
	Program     string   `json:"program"`
	Name        string   `json:"name,omitempty"`
	Args        []string `json:"args,omitempty"`
	Env         []string `json:"env,omitempty"`
	WorkingDir  string   `json:"working_dir,omitempty"`
	StopOnEntry bool     `json:"stop_on_entry,omitempty"`
}

// AttachSessionArgs attaches to an already-running process.
type AttachSessionArgs struct {
	Adapter   string `json:"adapter"`
	ClientID  string `json:"client_id"`
	Name      string `json:"name,omitempty"`
	ProcessID int    `json:"process_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
}

// SessionArgs identifies the session a tool call targets.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// SetBreakpointsArgs sets line breakpoints for one source file.
type SetBreakpointsArgs struct {
	SessionID string `json:"session_id"`
	File      string `json:"file"`
	Lines     []int  `json:"lines"`
}

// ExecutionControlArgs targets one thread for a step/continue/pause call.
type ExecutionControlArgs struct {
	SessionID string `json:"session_id"`
	ThreadID  int    `json:"thread_id"`
}

// GetStackFramesArgs requests the call stack of one thread.
type GetStackFramesArgs struct {
	SessionID string `json:"session_id"`
	ThreadID  int    `json:"thread_id"`
}

// GetVariablesArgs requests the variables under one scope/variable
// reference.
type GetVariablesArgs struct {
	SessionID          string `json:"session_id"`
	VariablesReference int    `json:"variables_reference"`
}

// EvaluateExpressionArgs evaluates an expression in a stack frame.
type EvaluateExpressionArgs struct {
	SessionID  string `json:"session_id"`
	Expression string `json:"expression"`
	FrameID    int    `json:"frame_id"`
}

// DisconnectSessionArgs tears down a session.
type DisconnectSessionArgs struct {
	SessionID         string `json:"session_id"`
	TerminateDebuggee bool   `json:"terminate_debuggee,omitempty"`
}

// Server wraps a manager.Manager as an MCP server.
type Server struct {
	server *server.MCPServer
	mgr    *manager.Manager
}

// NewServer builds an MCP server exposing mgr's operations as tools.
func NewServer(mgr *manager.Manager) *Server {
	s := &Server{
		server: server.NewMCPServer("dapctl", "1.0.0"),
		mgr:    mgr,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server, for callers that need
// to serve it over stdio or SSE themselves.
func (s *Server) MCPServer() *server.MCPServer {
	return s.server
}

func (s *Server) registerTools() {
	s.registerCreateSessionTool()
	s.registerAttachSessionTool()
	s.registerSetBreakpointsTool()
	s.registerContinueTool()
	s.registerNextTool()
	s.registerStepInTool()
	s.registerStepOutTool()
	s.registerPauseTool()
	s.registerGetThreadsTool()
	s.registerGetStackFramesTool()
	s.registerGetVariablesTool()
	s.registerEvaluateExpressionTool()
	s.registerDisconnectSessionTool()
}

func errResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf(format, args...))},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return errResult("failed to marshal response: %v", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(b))}}
}

func (s *Server) registerCreateSessionTool() {
	tool := mcp.NewTool("create_debug_session",
		mcp.WithDescription("Launch a program under a debug adapter and return its session ID"),
		mcp.WithString("adapter", mcp.Required(), mcp.Description("Adapter key: go, python, ruby, cc")),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("DAP client identifier")),
		mcp.WithString("program", mcp.Required(), mcp.Description("Path to the program to debug")),
		mcp.WithString("name", mcp.Description("Name for the debug session")),
		mcp.WithArray("args", mcp.Description("Program arguments"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("env", mcp.Description("Environment variables, KEY=value"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("working_dir", mcp.Description("Working directory for the program")),
		mcp.WithBoolean("stop_on_entry", mcp.Description("Stop at program entry")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args CreateSessionArgs) (*mcp.CallToolResult, error) {

		cfg := session.LaunchConfig{
			Name:        args.Name,
			Program:     args.Program,
			Args:        args.Args,
			Env:         args.Env,
			WorkingDir:  args.WorkingDir,
			StopOnEntry: args.StopOnEntry,
		}

		id, err := s.mgr.CreateSession(ctx, args.Adapter, args.ClientID, cfg, nil)
		if err != nil {
			return errResult("failed to create session: %v", err), nil
		}

		return jsonResult(map[string]string{"session_id": id}), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerAttachSessionTool() {
	tool := mcp.NewTool("attach_debug_session",
		mcp.WithDescription("Attach to an already-running process and return its session ID"),
		mcp.WithString("adapter", mcp.Required(), mcp.Description("Adapter key: go, python, ruby, cc")),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("DAP client identifier")),
		mcp.WithString("name", mcp.Description("Name for the debug session")),
		mcp.WithNumber("process_id", mcp.Description("PID of the process to attach to")),
		mcp.WithString("mode", mcp.Description("Adapter-specific attach mode")),
		mcp.WithString("host", mcp.Description("Host to attach over, for remote adapters")),
		mcp.WithNumber("port", mcp.Description("Port to attach over, for remote adapters")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args AttachSessionArgs) (*mcp.CallToolResult, error) {

		cfg := session.AttachConfig{
			Name:      args.Name,
			ProcessID: args.ProcessID,
			Mode:      args.Mode,
			Host:      args.Host,
			Port:      args.Port,
		}

		id, err := s.mgr.CreateAttachSession(ctx, args.Adapter, args.ClientID, cfg, nil)
		if err != nil {
			return errResult("failed to attach session: %v", err), nil
		}

		return jsonResult(map[string]string{"session_id": id}), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) session(id string) (*session.Session, *mcp.CallToolResult) {
	sess, ok := s.mgr.GetSession(id)
	if !ok {
		return nil, errResult("session %s not found", id)
	}
	return sess, nil
}

func (s *Server) registerSetBreakpointsTool() {
	tool := mcp.NewTool("set_breakpoints",
		mcp.WithDescription("Set line breakpoints for a source file"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("file", mcp.Required(), mcp.Description("Source file path")),
		mcp.WithArray("lines", mcp.Required(), mcp.Description("Line numbers"), mcp.Items(map[string]any{"type": "integer"})),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args SetBreakpointsArgs) (*mcp.CallToolResult, error) {

		sess, errRes := s.session(args.SessionID)
		if errRes != nil {
			return errRes, nil
		}

		bps := make([]session.BreakpointLocation, len(args.Lines))
		for i, line := range args.Lines {
			bps[i] = session.BreakpointLocation{Line: line}
		}

		result, err := sess.SetBreakpoints(ctx, args.File, bps)
		if err != nil {
			return errResult("failed to set breakpoints: %v", err), nil
		}

		return jsonResult(result), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerExecControlTool(name, description string,
	op func(sess *session.Session, ctx context.Context, threadID int) error) {

	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithNumber("thread_id", mcp.Required(), mcp.Description("Thread identifier")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args ExecutionControlArgs) (*mcp.CallToolResult, error) {

		sess, errRes := s.session(args.SessionID)
		if errRes != nil {
			return errRes, nil
		}

		if err := op(sess, ctx, args.ThreadID); err != nil {
			return errResult("%s failed: %v", name, err), nil
		}

		return jsonResult(map[string]string{"status": "ok"}), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerContinueTool() {
	s.registerExecControlTool("continue_execution", "Resume a stopped thread",
		func(sess *session.Session, ctx context.Context, threadID int) error {
			return sess.Continue(ctx, threadID)
		})
}

func (s *Server) registerNextTool() {
	s.registerExecControlTool("step_next", "Step over the current line",
		func(sess *session.Session, ctx context.Context, threadID int) error {
			return sess.StepOver(ctx, threadID)
		})
}

func (s *Server) registerStepInTool() {
	s.registerExecControlTool("step_in", "Step into the current call",
		func(sess *session.Session, ctx context.Context, threadID int) error {
			return sess.StepIn(ctx, threadID)
		})
}

func (s *Server) registerStepOutTool() {
	s.registerExecControlTool("step_out", "Step out of the current function",
		func(sess *session.Session, ctx context.Context, threadID int) error {
			return sess.StepOut(ctx, threadID)
		})
}

func (s *Server) registerPauseTool() {
	s.registerExecControlTool("pause_execution", "Pause a running thread",
		func(sess *session.Session, ctx context.Context, threadID int) error {
			return sess.Pause(ctx, threadID)
		})
}

func (s *Server) registerGetThreadsTool() {
	tool := mcp.NewTool("get_threads",
		mcp.WithDescription("List the debuggee's threads"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {

		sess, errRes := s.session(args.SessionID)
		if errRes != nil {
			return errRes, nil
		}

		threads, err := sess.Threads(ctx)
		if err != nil {
			return errResult("failed to get threads: %v", err), nil
		}

		return jsonResult(threads), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerGetStackFramesTool() {
	tool := mcp.NewTool("get_stack_frames",
		mcp.WithDescription("Get the call stack for a thread"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithNumber("thread_id", mcp.Required(), mcp.Description("Thread identifier")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args GetStackFramesArgs) (*mcp.CallToolResult, error) {

		sess, errRes := s.session(args.SessionID)
		if errRes != nil {
			return errRes, nil
		}

		frames, err := sess.StackTrace(ctx, args.ThreadID)
		if err != nil {
			return errResult("failed to get stack frames: %v", err), nil
		}

		return jsonResult(frames), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerGetVariablesTool() {
	tool := mcp.NewTool("get_variables",
		mcp.WithDescription("Get the variables under a scope or variable reference"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithNumber("variables_reference", mcp.Required(), mcp.Description("Scope or variable reference")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args GetVariablesArgs) (*mcp.CallToolResult, error) {

		sess, errRes := s.session(args.SessionID)
		if errRes != nil {
			return errRes, nil
		}

		vars, err := sess.Variables(ctx, args.VariablesReference)
		if err != nil {
			return errResult("failed to get variables: %v", err), nil
		}

		return jsonResult(vars), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerEvaluateExpressionTool() {
	tool := mcp.NewTool("evaluate_expression",
		mcp.WithDescription("Evaluate an expression in a stack frame"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Expression to evaluate")),
		mcp.WithNumber("frame_id", mcp.Required(), mcp.Description("Stack frame identifier")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args EvaluateExpressionArgs) (*mcp.CallToolResult, error) {

		sess, errRes := s.session(args.SessionID)
		if errRes != nil {
			return errRes, nil
		}

		result, err := sess.Evaluate(ctx, args.Expression, args.FrameID, "repl")
		if err != nil {
			return errResult("failed to evaluate expression: %v", err), nil
		}

		return jsonResult(result), nil
	})

	s.server.AddTool(tool, handler)
}

func (s *Server) registerDisconnectSessionTool() {
	tool := mcp.NewTool("disconnect_session",
		mcp.WithDescription("Disconnect a debug session and release its resources"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithBoolean("terminate_debuggee", mcp.Description("Also terminate the debuggee process")),
	)

	handler := mcp.NewTypedToolHandler(func(ctx context.Context,
		_ mcp.CallToolRequest, args DisconnectSessionArgs) (*mcp.CallToolResult, error) {

		if err := s.mgr.RemoveSession(ctx, args.SessionID, args.TerminateDebuggee); err != nil {
			return errResult("failed to disconnect session: %v", err), nil
		}

		return jsonResult(map[string]string{"status": "ok"}), nil
	})

	s.server.AddTool(tool, handler)
}
