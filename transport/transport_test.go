package transport

import (
	"net"
	"sync"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/dapctl/dkerr"
)

func TestRoundTripRequestResponse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientT := NewTCP(client)
	serverT := NewTCP(server)

	req := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "request"},
			Command:         "initialize",
		},
		Arguments: dap.InitializeRequestArguments{ClientID: "dapctl-test", AdapterID: "fake"},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, clientT.WriteMessage(req))
	}()

	msg, err := serverT.ReadMessage()
	require.NoError(t, err)
	wg.Wait()

	got, ok := msg.(*dap.InitializeRequest)
	require.True(t, ok)
	require.Equal(t, "initialize", got.Command)
	require.Equal(t, "dapctl-test", got.Arguments.ClientID)
}

func TestReadMessageEOFAfterClose(t *testing.T) {
	client, server := net.Pipe()
	clientT := NewTCP(client)
	serverT := NewTCP(server)

	require.NoError(t, clientT.Close())

	_, err := serverT.ReadMessage()
	require.ErrorIs(t, err, dkerr.EOF)
}

func TestConcurrentReadAndWriteDoNotDeadlock(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientT := NewTCP(client)
	serverT := NewTCP(server)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			req := &dap.ThreadsRequest{Request: dap.Request{
				ProtocolMessage: dap.ProtocolMessage{Seq: i, Type: "request"},
				Command:         "threads",
			}}
			require.NoError(t, clientT.WriteMessage(req))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_, err := serverT.ReadMessage()
			require.NoError(t, err)
		}
	}()

	wg.Wait()
}
