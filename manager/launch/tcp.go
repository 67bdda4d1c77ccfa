package launch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/roasbeef/dapctl/dkerr"
	"github.com/roasbeef/dapctl/transport"
)

// TCPCommand spawns an adapter that listens for a DAP connection on a
// TCP socket (rdbg `--open`, delve headless `dlv dap` which prints its
// listen address to stdout). The launcher polls the port with bounded
// exponential backoff before giving up.
type TCPCommand struct {
	Path string
	Args []string
	Env  []string
	Dir  string

	// AddrStdoutPrefix, if non-empty, is a line prefix the adapter
	// prints to stdout carrying the address to dial (e.g. delve's
	// "DAP server listening at: "). If empty, Host/Port are used
	// directly and the launcher only waits for the port to accept
	// connections.
	AddrStdoutPrefix string
	Host             string
	Port             int

	ScrapeTimeout time.Duration
	Retry         RetryConfig
}

// Launch starts the process and dials its DAP TCP listener.
func (c TCPCommand) Launch() (transport.Transport, func(), error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("could not find adapter executable %q: %w", c.Path, err)}
	}

	cmd := exec.Command(path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	var stdout io.Reader
	if c.AddrStdoutPrefix != "" {
		p, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("stdout pipe: %w", err)}
		}
		stdout = p
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("could not start %s: %w", c.Path, err)}
	}

	kill := func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	if c.AddrStdoutPrefix != "" {
		scraped, err := scrapeAddr(stdout, c.AddrStdoutPrefix, scrapeTimeoutOrDefault(c.ScrapeTimeout))
		if err != nil {
			kill()
			return nil, nil, err
		}
		addr = scraped
	}

	retry := c.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig
	}

	var conn net.Conn
	dialErr := RetryWithBackoff(context.Background(), retry, func() error {
		var err error
		conn, err = net.Dial("tcp", addr)
		return err
	})
	if dialErr != nil {
		kill()
		return nil, nil, &dkerr.SpawnFailed{Err: fmt.Errorf("could not connect to adapter at %s: %w", addr, dialErr)}
	}

	cleanup := func() {
		conn.Close()
		kill()
	}

	return transport.NewTCP(conn), cleanup, nil
}

func scrapeTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

func scrapeAddr(r io.Reader, prefix string, timeout time.Duration) (string, error) {
	type result struct {
		addr string
		err  error
	}
	out := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, prefix) {
				out <- result{addr: strings.TrimSpace(strings.TrimPrefix(line, prefix))}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- result{err: fmt.Errorf("reading adapter stdout: %w", err)}
			return
		}
		out <- result{err: fmt.Errorf("adapter stdout closed before printing its listen address")}
	}()

	select {
	case res := <-out:
		return res.addr, res.err
	case <-time.After(timeout):
		return "", fmt.Errorf("timed out waiting for adapter to print its listen address")
	}
}

