package manager

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/dapctl/manager/launch"
	"github.com/roasbeef/dapctl/session"
	"github.com/roasbeef/dapctl/transport"
)

// fakeLauncher hands back one end of an in-memory net.Pipe and drives a
// minimal adapter handshake on the other end, standing in for a real
// adapter process.
type fakeLauncher struct {
	stopOnEntry bool
	cleaned     *bool
}

func (f fakeLauncher) Launch() (transport.Transport, func(), error) {
	clientConn, serverConn := net.Pipe()

	go func() {
		srv := transport.NewTCP(serverConn)

		msg, err := srv.ReadMessage()
		if err != nil {
			return
		}
		initReq := msg.(dap.RequestMessage)
		respondOK(srv, initReq, &dap.InitializeResponse{})

		event := &dap.InitializedEvent{Event: dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: "initialized"}}
		srv.WriteMessage(event)

		msg, err = srv.ReadMessage()
		if err != nil {
			return
		}
		launchReq := msg.(dap.RequestMessage)

		if f.stopOnEntry {
			stopped := &dap.StoppedEvent{
				Event: dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: "stopped"},
				Body:  dap.StoppedEventBody{Reason: "entry", ThreadId: 1},
			}
			srv.WriteMessage(stopped)
		}

		respondOK(srv, launchReq, &dap.LaunchResponse{})

		// Serve a disconnect request so Manager.RemoveSession/Shutdown
		// complete cleanly.
		msg, err = srv.ReadMessage()
		if err == nil {
			if discReq, ok := msg.(dap.RequestMessage); ok {
				respondOK(srv, discReq, &dap.DisconnectResponse{})
			}
		}
	}()

	cleanup := func() {
		clientConn.Close()
		serverConn.Close()
		if f.cleaned != nil {
			*f.cleaned = true
		}
	}

	return transport.NewTCP(clientConn), cleanup, nil
}

func respondOK(t transport.Transport, req dap.RequestMessage, resp dap.ResponseMessage) {
	base := resp.GetResponse()
	base.RequestSeq = req.GetRequest().Seq
	base.Success = true
	base.Command = req.GetRequest().Command
	base.Type = "response"
	t.WriteMessage(resp)
}

var _ launch.Launcher = fakeLauncher{}

func TestCreateSessionRegistersAndReachesRunning(t *testing.T) {
	mgr := New()
	mgr.RegisterLauncher("fake", fakeLauncher{})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := mgr.CreateSession(ctx, "fake", "dapctl-test", session.LaunchConfig{Program: "main.go"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, ok := mgr.GetSession(id)
	require.True(t, ok)
	require.Equal(t, session.Running, sess.GetState().Kind)
}

func TestCreateSessionUnknownAdapter(t *testing.T) {
	mgr := New()

	_, err := mgr.CreateSession(context.Background(), "missing", "dapctl-test", session.LaunchConfig{}, nil)
	require.Error(t, err)
}

func TestConcurrentSessionsGetUniqueIDs(t *testing.T) {
	mgr := New()
	mgr.RegisterLauncher("fake", fakeLauncher{})

	const n = 5
	ids := make(chan string, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			id, err := mgr.CreateSession(ctx, "fake", "dapctl-test", session.LaunchConfig{Program: "main.go"}, nil)
			ids <- id
			errs <- err
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
		id := <-ids
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

func TestRemoveSessionDisconnectsAndDrops(t *testing.T) {
	mgr := New()
	var cleaned bool
	mgr.RegisterLauncher("fake", fakeLauncher{cleaned: &cleaned})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := mgr.CreateSession(ctx, "fake", "dapctl-test", session.LaunchConfig{Program: "main.go"}, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.RemoveSession(ctx, id, false))

	_, ok := mgr.GetSession(id)
	require.False(t, ok)
	require.True(t, cleaned)
}

func TestShutdownDisconnectsEverySession(t *testing.T) {
	mgr := New()
	mgr.ShutdownTimeout = time.Second
	mgr.RegisterLauncher("fake", fakeLauncher{})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := mgr.CreateSession(ctx, "fake", "dapctl-test", session.LaunchConfig{Program: "main.go"}, nil)
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Shutdown(ctx))
	require.Empty(t, mgr.ListSessions())
}
