package launch

import (
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"
)

// TestStdioCommandEchoesFramedMessage uses `cat` as a stand-in adapter:
// anything written to its stdin comes back byte-for-byte on stdout, so a
// successful round trip through StdioCommand proves the stdin/stdout
// pipes are wired to the same process correctly.
func TestStdioCommandEchoesFramedMessage(t *testing.T) {
	launcher := StdioCommand{Path: "cat"}

	transport, cleanup, err := launcher.Launch()
	require.NoError(t, err)
	defer cleanup()

	req := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "request"},
			Command:         "initialize",
		},
		Arguments: dap.InitializeRequestArguments{ClientID: "dapctl-test"},
	}

	require.NoError(t, transport.WriteMessage(req))

	msg, err := transport.ReadMessage()
	require.NoError(t, err)

	got, ok := msg.(*dap.InitializeRequest)
	require.True(t, ok)
	require.Equal(t, "dapctl-test", got.Arguments.ClientID)
}

func TestStdioCommandMissingExecutable(t *testing.T) {
	launcher := StdioCommand{Path: "this-binary-does-not-exist-anywhere"}

	_, _, err := launcher.Launch()
	require.Error(t, err)
}
