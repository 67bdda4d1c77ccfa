package launch

import (
	"fmt"
	"os/exec"

	"github.com/roasbeef/dapctl/dkerr"
	"github.com/roasbeef/dapctl/transport"
)

// StdioCommand spawns an adapter that speaks DAP on its own stdin/stdout
// (debugpy's `python -m debugpy.adapter`, `rdbg --stop-at-load` in stdio
// mode, LLDB's `lldb-dap`/`lldb-vscode`).
type StdioCommand struct {
	Path string
	Args []string
	Env  []string // "KEY=value" entries appended to the current environment; nil means inherit only
	Dir  string
}

// Launch starts the process and wires its stdio as the Transport.
func (c StdioCommand) Launch() (transport.Transport, func(), error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("could not find adapter executable %q: %w", c.Path, err)}
	}

	cmd := exec.Command(path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("could not start %s: %w", c.Path, err)}
	}

	cleanup := func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}

	pipe := &processPipe{r: stdout, w: stdin, proc: cmd.Process}
	return transport.NewStdio(pipe), cleanup, nil
}
