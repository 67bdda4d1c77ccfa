// Package config carries the handshake timeouts and the per-language
// adapter launch settings, passed explicitly through constructors rather
// than read from a global.
package config

import "time"

// Timeouts mirrors handshake.Config's defaults so callers that only need
// the numbers don't have to import the handshake package.
type Timeouts struct {
	Initialize      time.Duration
	InitializedWait time.Duration
	Request         time.Duration
	Disconnect      time.Duration
}

// DefaultTimeouts returns the default timeout budget: 30s to answer
// `initialize`, 7s to observe the `initialized` event, 10s for any other
// single request, 2s for `disconnect`.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Initialize:      30 * time.Second,
		InitializedWait: 7 * time.Second,
		Request:         10 * time.Second,
		Disconnect:      2 * time.Second,
	}
}

// Adapter names one language's debug adapter and how the Session Manager
// should launch it.
type Adapter struct {
	// Language is the manager.Registry key ("python", "ruby", "go", "cc").
	Language string

	// Mode selects which manager/launch.Launcher to build: "stdio",
	// "tcp", or "embedded" (Go only).
	Mode string

	// Command and Args are used by the stdio and tcp modes.
	Command string
	Args    []string
	Env     []string

	// Host/Port are used by the tcp mode when the adapter doesn't print
	// its listen address (a fixed, pre-agreed port).
	Host string
	Port int
}

// PreferExternalDelve, when true, makes the Go adapter spawn `dlv dap`
// as a subprocess instead of running delve's DAP server embedded in
// this process.
type Config struct {
	Timeouts            Timeouts
	Adapters            []Adapter
	PreferExternalDelve bool
}

// Default returns the stock adapter set: debugpy over stdio, rdbg over
// TCP, delve embedded, lldb-dap over stdio.
func Default() Config {
	return Config{
		Timeouts: DefaultTimeouts(),
		Adapters: []Adapter{
			{
				Language: "python",
				Mode:     "stdio",
				Command:  "python3",
				Args:     []string{"-m", "debugpy.adapter"},
			},
			{
				Language: "ruby",
				Mode:     "tcp",
				Command:  "rdbg",
				Args:     []string{"--open", "--command"},
			},
			{
				Language: "go",
				Mode:     "embedded",
			},
			{
				Language: "cc",
				Mode:     "stdio",
				Command:  "lldb-dap",
			},
		},
	}
}
