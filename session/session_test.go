package session

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

type fakeAdapter struct {
	t transport.Transport
}

func newSessionFixture(t *testing.T) (*Session, *fakeAdapter) {
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	client := dapclient.New(transport.NewTCP(clientConn))
	adapter := &fakeAdapter{t: transport.NewTCP(serverConn)}

	sess := New(client, func() {})

	return sess, adapter
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

func runLaunchHandshake(t *testing.T, sess *Session, adapter *fakeAdapter, stopOnEntry bool) {
	done := make(chan struct{})
	go func() {
		defer close(done)

		initReq := adapter.recvRequest(t)
		adapter.respond(t, initReq, &dap.InitializeResponse{})

		adapter.sendEvent(t, &dap.InitializedEvent{})

		launchReq := adapter.recvRequest(t)
		require.Equal(t, "launch", launchReq.GetRequest().Command)

		if stopOnEntry {
			adapter.sendEvent(t, &dap.StoppedEvent{
				Body: dap.StoppedEventBody{Reason: "entry", ThreadId: 1},
			})
		}

		adapter.respond(t, launchReq, &dap.LaunchResponse{})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cfg := LaunchConfig{Program: "main.go"}
	err := sess.InitializeAndLaunch(ctx, "dapctl-test", cfg, nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("adapter goroutine never finished")
	}
}

func TestInitializeAndLaunchReachesRunning(t *testing.T) {
	sess, adapter := newSessionFixture(t)
	runLaunchHandshake(t, sess, adapter, false)

	require.Equal(t, Running, sess.GetState().Kind)
}

func TestStoppedEventDuringLaunchWinsOverRunningPromotion(t *testing.T) {
	sess, adapter := newSessionFixture(t)
	runLaunchHandshake(t, sess, adapter, true)

	// A `stopped` event racing the launch response (StopOnEntry) must
	// leave the session in Stopped, not have the post-handshake Running
	// promotion clobber it.
	require.Eventually(t, func() bool {
		return sess.GetState().Kind == Stopped
	}, time.Second, 10*time.Millisecond)
}

func TestContinueTransitionsToRunning(t *testing.T) {
	sess, adapter := newSessionFixture(t)
	runLaunchHandshake(t, sess, adapter, true)

	require.Eventually(t, func() bool {
		return sess.GetState().Kind == Stopped
	}, time.Second, 10*time.Millisecond)

	go func() {
		req := adapter.recvRequest(t)
		adapter.respond(t, req, &dap.ContinueResponse{})
	}()

	err := sess.Continue(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, Running, sess.GetState().Kind)
}

func TestStateChangesObservesTransitions(t *testing.T) {
	sess, adapter := newSessionFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := sess.StateChanges(ctx)
	first := <-changes
	require.Equal(t, NotStarted, first.Kind)

	runLaunchHandshake(t, sess, adapter, false)

	require.Eventually(t, func() bool {
		select {
		case s := <-changes:
			return s.Kind == Running
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestOutputEventsAreFannedOut(t *testing.T) {
	sess, adapter := newSessionFixture(t)

	go adapter.sendEvent(t, &dap.OutputEvent{Body: dap.OutputEventBody{Category: "stdout", Output: "hello\n"}})

	select {
	case ev := <-sess.Output():
		require.Equal(t, "hello\n", ev.Output)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for output event")
	}
}

func TestValidTransitionTable(t *testing.T) {
	require.True(t, validTransition(NotStarted, Initializing))
	require.False(t, validTransition(NotStarted, Running))
	require.True(t, validTransition(Stopped, Running))
	require.False(t, validTransition(Terminated, Running))
	require.True(t, validTransition(Running, Running))
}
