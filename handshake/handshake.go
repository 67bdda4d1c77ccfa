// Package handshake implements the initialize -> launch/attach ->
// configurationDone dance described in spec section 4.4.
//
// Adapters commonly withhold their launch/attach response until a
// configurationDone request that itself depends on an `initialized` event
// emitted mid-launch. Awaiting the launch response before subscribing to
// `initialized` deadlocks. The fix: subscribe first, send second, and
// await the event and the response concurrently.
package handshake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/roasbeef/dapctl/dapclient"
	"github.com/roasbeef/dapctl/dkerr"
)

// Config carries the timeouts for each step of the handshake, plus the
// disconnect timeout a Session applies once the handshake is done (kept
// here so a single Config, set once via Session.SetTimeouts, covers every
// spec section 5 timeout a session needs).
type Config struct {
	InitializeTimeout       time.Duration
	InitializedEventTimeout time.Duration
	RequestTimeout          time.Duration
	DisconnectTimeout       time.Duration
}

// DefaultConfig returns the spec-mandated default timeouts.
func DefaultConfig() Config {
	return Config{
		InitializeTimeout:       30 * time.Second,
		InitializedEventTimeout: 7 * time.Second,
		RequestTimeout:          10 * time.Second,
		DisconnectTimeout:       2 * time.Second,
	}
}

// ConfigRequest is one configuration-phase request (setBreakpoints,
// setFunctionBreakpoints, setExceptionBreakpoints) flushed sequentially
// once the `initialized` event arrives.
type ConfigRequest struct {
	Request dap.RequestMessage
}

// Result is the outcome of a successful handshake.
type Result struct {
	Capabilities    dap.Capabilities
	ConfigResponses []dap.ResponseMessage
	LaunchResponse  dap.ResponseMessage
}

// RunLaunch drives the handshake for a `launch` request.
func RunLaunch(ctx context.Context, c *dapclient.Client, cfg Config,
	initArgs dap.InitializeRequestArguments, launchReq *dap.LaunchRequest,
	configRequests []ConfigRequest) (*Result, error) {

	return run(ctx, c, cfg, initArgs, launchReq, configRequests)
}

// RunAttach drives the handshake for an `attach` request. Identical to
// RunLaunch except that no process spawn occurs on the adapter's side;
// the state machine is otherwise unchanged.
func RunAttach(ctx context.Context, c *dapclient.Client, cfg Config,
	initArgs dap.InitializeRequestArguments, attachReq *dap.AttachRequest,
	configRequests []ConfigRequest) (*Result, error) {

	return run(ctx, c, cfg, initArgs, attachReq, configRequests)
}

func run(ctx context.Context, c *dapclient.Client, cfg Config,
	initArgs dap.InitializeRequestArguments, startReq dap.RequestMessage,
	configRequests []ConfigRequest) (*Result, error) {

	// Step: initialize. No `initialized` event is expected yet.
	initReq := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Type: "request"},
			Command:         "initialize",
		},
		Arguments: initArgs,
	}

	ictx, cancel := context.WithTimeout(ctx, cfg.InitializeTimeout)
	initRespMsg, err := c.SendRequest(ictx, initReq)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	initResp, ok := initRespMsg.(*dap.InitializeResponse)
	if !ok {
		return nil, &dkerr.ProtocolViolation{
			Detail: fmt.Sprintf("initialize response of unexpected type %T", initRespMsg),
		}
	}
	caps := initResp.Body

	// Step: register a one-shot `initialized` subscription BEFORE sending
	// launch/attach. This ordering is the entire fix for the deadlock
	// where the adapter withholds its launch/attach response until it
	// sees `configurationDone`, which this client can't send until it
	// has observed `initialized` -- it is not an optimisation.
	initializedCh := make(chan struct{})
	var closeOnce sync.Once
	c.OnEvent("initialized", func(dap.EventMessage) {
		closeOnce.Do(func() { close(initializedCh) })
	})

	// Step: send launch/attach without awaiting its response.
	launchCh, err := c.SendRequestAsync(startReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", startReq.GetRequest().Command, err)
	}

	// Step: concurrently await `initialized` and the launch/attach
	// response. A well-behaved adapter will not answer launch/attach
	// until we send configurationDone below, so in the common case this
	// select resolves via initializedCh. Some adapters answer without
	// ever requiring configuration; that's handled too.
	select {
	case <-initializedCh:
	case res := <-launchCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return &Result{Capabilities: caps, LaunchResponse: res.Response}, nil
	case <-time.After(cfg.InitializedEventTimeout):
		return nil, &dkerr.TimeoutError{Op: "initialized"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Step: flush queued configuration requests sequentially; their
	// responses are awaited normally.
	configResps := make([]dap.ResponseMessage, 0, len(configRequests))
	for _, cr := range configRequests {
		cctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		resp, err := c.SendRequest(cctx, cr.Request)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cr.Request.GetRequest().Command, err)
		}
		configResps = append(configResps, resp)
	}

	// Step: signal configuration is complete, if the adapter supports it.
	if caps.SupportsConfigurationDoneRequest {
		cdReq := &dap.ConfigurationDoneRequest{
			Request: dap.Request{
				ProtocolMessage: dap.ProtocolMessage{Type: "request"},
				Command:         "configurationDone",
			},
		}
		cctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		_, err := c.SendRequest(cctx, cdReq)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("configurationDone: %w", err)
		}
	}

	// Step: now await the launch/attach response; the adapter is unblocked
	// to send it once configurationDone (if sent) completes.
	select {
	case res := <-launchCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return &Result{
			Capabilities:    caps,
			ConfigResponses: configResps,
			LaunchResponse:  res.Response,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
