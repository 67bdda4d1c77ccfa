// Package wiring assembles a manager.Manager from a config.Config,
// registering one manager/launch.Launcher per configured adapter. It is
// the single place cmd/* entrypoints need to import to stand up the
// core.
package wiring

import (
	"github.com/roasbeef/dapctl/config"
	"github.com/roasbeef/dapctl/handshake"
	"github.com/roasbeef/dapctl/manager"
	"github.com/roasbeef/dapctl/manager/launch"
)

// DefaultConfig is config.Default, re-exported so cmd/* entrypoints
// only need to import this package.
func DefaultConfig() config.Config {
	return config.Default()
}

// NewManager builds a Manager and registers a launcher for every
// adapter in cfg.
func NewManager(cfg config.Config) *manager.Manager {
	mgr := manager.New()
	mgr.Timeouts = toHandshakeConfig(cfg.Timeouts)

	for _, a := range cfg.Adapters {
		mgr.RegisterLauncher(a.Language, launcherFor(a, cfg))
	}

	return mgr
}

// toHandshakeConfig maps the config package's standalone Timeouts (kept
// dependency-free so callers that only need the numbers don't have to
// import handshake) onto the handshake.Config every session actually
// runs on.
func toHandshakeConfig(t config.Timeouts) handshake.Config {
	return handshake.Config{
		InitializeTimeout:       t.Initialize,
		InitializedEventTimeout: t.InitializedWait,
		RequestTimeout:          t.Request,
		DisconnectTimeout:       t.Disconnect,
	}
}

// launcherFor builds the Launcher for one adapter entry. The Go entry
// is special-cased: cfg.PreferExternalDelve overrides its "embedded"
// mode with a `dlv dap` subprocess dialed over TCP, for operators who
// don't want delve's debugger running in this process.
func launcherFor(a config.Adapter, cfg config.Config) launch.Launcher {
	if a.Language == "go" && cfg.PreferExternalDelve {
		return launch.TCPCommand{
			Path:             "dlv",
			Args:             []string{"dap", "--listen=127.0.0.1:0"},
			AddrStdoutPrefix: "DAP server listening at: ",
			Retry:            launch.DefaultRetryConfig,
		}
	}

	switch a.Mode {
	case "tcp":
		return launch.TCPCommand{
			Path:             a.Command,
			Args:             a.Args,
			Env:              a.Env,
			AddrStdoutPrefix: "DAP server listening at: ",
			Host:             a.Host,
			Port:             a.Port,
			Retry:            launch.DefaultRetryConfig,
		}
	case "embedded":
		return launch.DelveEmbedded{}
	default:
		return launch.StdioCommand{
			Path: a.Command,
			Args: a.Args,
			Env:  a.Env,
		}
	}
}
