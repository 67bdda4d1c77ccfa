package handshake

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/dapctl/dapclient"
	"github.com/roasbeef/dapctl/transport"
)

// fakeAdapter plays the adapter side of the handshake over an in-memory
// net.Pipe, standing in for debugpy/delve in these deadlock-avoidance
// scenarios.
type fakeAdapter struct {
	t transport.Transport
}

func newHandshakeFixture(t *testing.T) (*dapclient.Client, *fakeAdapter) {
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	client := dapclient.New(transport.NewTCP(clientConn))
	adapter := &fakeAdapter{t: transport.NewTCP(serverConn)}
	return client, adapter
}

func (f *fakeAdapter) recvRequest(t *testing.T) dap.RequestMessage {
	msg, err := f.t.ReadMessage()
	require.NoError(t, err)
	req, ok := msg.(dap.RequestMessage)
	require.True(t, ok, "expected a request, got %T", msg)
	return req
}

func (f *fakeAdapter) respond(t *testing.T, req dap.RequestMessage, resp dap.ResponseMessage) {
	base := resp.GetResponse()
	base.RequestSeq = req.GetRequest().Seq
	base.Success = true
	base.Command = req.GetRequest().Command
	base.Type = "response"
	require.NoError(t, f.t.WriteMessage(resp))
}

func (f *fakeAdapter) sendEvent(t *testing.T, ev dap.EventMessage) {
	base := ev.GetEvent()
	base.Type = "event"
	require.NoError(t, f.t.WriteMessage(ev))
}

// TestRunLaunchAvoidsDeadlockWaitingForConfigurationDone models an
// adapter that withholds its `launch` response until it has received
// `configurationDone`, which itself depends on the `initialized` event
// having been delivered to the client first. If RunLaunch awaited the
// launch response before subscribing to `initialized`, this would hang.
func TestRunLaunchAvoidsDeadlockWaitingForConfigurationDone(t *testing.T) {
	client, adapter := newHandshakeFixture(t)
	defer client.Shutdown()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)

		initReq := adapter.recvRequest(t)
		adapter.respond(t, initReq, &dap.InitializeResponse{
			Body: dap.Capabilities{SupportsConfigurationDoneRequest: true},
		})

		// The adapter emits `initialized` only after answering
		// `initialize`, and will not answer `launch` until
		// `configurationDone` arrives.
		adapter.sendEvent(t, &dap.InitializedEvent{})

		launchReq := adapter.recvRequest(t)
		require.Equal(t, "launch", launchReq.GetRequest().Command)

		setBpReq := adapter.recvRequest(t)
		adapter.respond(t, setBpReq, &dap.SetBreakpointsResponse{
			Body: dap.SetBreakpointsResponseBody{
				Breakpoints: []dap.Breakpoint{{Id: 1, Verified: true, Line: 10}},
			},
		})

		cdReq := adapter.recvRequest(t)
		require.Equal(t, "configurationDone", cdReq.GetRequest().Command)
		adapter.respond(t, cdReq, &dap.ConfigurationDoneResponse{})

		// Only now does the adapter answer launch.
		adapter.respond(t, launchReq, &dap.LaunchResponse{})
	}()

	launchReq := &dap.LaunchRequest{
		Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Type: "request"}, Command: "launch"},
	}
	setBpReq := &dap.SetBreakpointsRequest{
		Request:   dap.Request{ProtocolMessage: dap.ProtocolMessage{Type: "request"}, Command: "setBreakpoints"},
		Arguments: dap.SetBreakpointsArguments{Source: dap.Source{Path: "main.go"}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := RunLaunch(ctx, client, DefaultConfig(),
		dap.InitializeRequestArguments{ClientID: "dapctl-test"},
		launchReq,
		[]ConfigRequest{{Request: setBpReq}},
	)
	require.NoError(t, err)
	require.True(t, result.Capabilities.SupportsConfigurationDoneRequest)
	require.Len(t, result.ConfigResponses, 1)

	select {
	case <-serverDone:
	case <-time.After(3 * time.Second):
		t.Fatal("adapter goroutine never finished")
	}
}

// TestRunLaunchAdapterAnswersWithoutConfigurationDone covers an adapter
// that doesn't require configuration at all, answering launch as soon
// as it's sent.
func TestRunLaunchAdapterAnswersWithoutConfigurationDone(t *testing.T) {
	client, adapter := newHandshakeFixture(t)
	defer client.Shutdown()

	go func() {
		initReq := adapter.recvRequest(t)
		adapter.respond(t, initReq, &dap.InitializeResponse{
			Body: dap.Capabilities{SupportsConfigurationDoneRequest: false},
		})

		launchReq := adapter.recvRequest(t)
		adapter.respond(t, launchReq, &dap.LaunchResponse{})
	}()

	launchReq := &dap.LaunchRequest{
		Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Type: "request"}, Command: "launch"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := RunLaunch(ctx, client, DefaultConfig(),
		dap.InitializeRequestArguments{ClientID: "dapctl-test"}, launchReq, nil)
	require.NoError(t, err)
	require.False(t, result.Capabilities.SupportsConfigurationDoneRequest)
}

func TestRunLaunchTimesOutWaitingForInitializedEvent(t *testing.T) {
	client, adapter := newHandshakeFixture(t)
	defer client.Shutdown()

	go func() {
		initReq := adapter.recvRequest(t)
		adapter.respond(t, initReq, &dap.InitializeResponse{})
		// Never emits `initialized`, never answers `launch`.
	}()

	launchReq := &dap.LaunchRequest{
		Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Type: "request"}, Command: "launch"},
	}

	cfg := DefaultConfig()
	cfg.InitializedEventTimeout = 100 * time.Millisecond

	_, err := RunLaunch(context.Background(), client, cfg,
		dap.InitializeRequestArguments{ClientID: "dapctl-test"}, launchReq, nil)
	require.Error(t, err)
}
