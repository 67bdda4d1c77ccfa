package launch

import (
	"fmt"
	"net"

	"github.com/go-delve/delve/service"
	delvedap "github.com/go-delve/delve/service/dap"
	delvedebugger "github.com/go-delve/delve/service/debugger"

	"github.com/roasbeef/dapctl/dkerr"
	"github.com/roasbeef/dapctl/transport"
)

// DelveEmbedded runs delve's DAP server in-process via go-delve/delve's
// service/dap package instead of spawning a dlv binary. It listens on
// loopback and dials itself, so the rest of the stack never has to know
// it isn't talking to an external adapter process.
type DelveEmbedded struct {
	WorkingDir  string
	Backend     string // "default", "native", "lldb"
	BuildFlags  string
	ExecPath    string // program to debug, for the exec mode
	AcceptMulti bool
}

// Launch starts the embedded delve DAP server and connects to it.
func (d DelveEmbedded) Launch() (transport.Transport, func(), error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("opening embedded delve listener: %w", err)}
	}

	disconnectChan := make(chan struct{})

	workingDir := d.WorkingDir
	if workingDir == "" {
		workingDir = "."
	}

	debuggerCfg := delvedebugger.Config{
		WorkingDir:     workingDir,
		Backend:        nonEmptyOr(d.Backend, "default"),
		ExecuteKind:    delvedebugger.ExecutingExistingFile,
		CheckGoVersion: true,
	}
	if d.ExecPath != "" {
		debuggerCfg.ExecuteKind = delvedebugger.ExecutingExistingFile
	}

	serverCfg := &service.Config{
		Listener:       lis,
		DisconnectChan: disconnectChan,
		Debugger:       debuggerCfg,
	}

	server := delvedap.NewServer(serverCfg)
	server.Run()

	conn, err := net.Dial("tcp", lis.Addr().String())
	if err != nil {
		server.Stop()
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("connecting to embedded delve server: %w", err)}
	}

	cleanup := func() {
		conn.Close()
		server.Stop()
		select {
		case <-disconnectChan:
		default:
			close(disconnectChan)
		}
	}

	return transport.NewTCP(conn), cleanup, nil
}

func nonEmptyOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
