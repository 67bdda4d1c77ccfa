// Package launch implements the pluggable adapter launcher strategy from
// spec section 4.6/6: each language's debug adapter differences are
// confined here (and to small capability-driven branches elsewhere), so
// the rest of the core stays adapter-agnostic.
package launch

import (
	"io"
	"os"

	"github.com/roasbeef/dapctl/transport"
)

// Launcher starts one adapter instance and returns a connected Transport.
// cleanup releases every resource the launcher allocated (killing a
// spawned process, closing a listener, ...) and is always safe to call
// more than once.
type Launcher interface {
	Launch() (transport.Transport, func(), error)
}

// processPipe adapts a spawned process's stdout/stdin into the single
// io.ReadWriteCloser transport.NewStdio expects.
type processPipe struct {
	r    io.ReadCloser
	w    io.WriteCloser
	proc *os.Process
}

func (p *processPipe) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *processPipe) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *processPipe) Close() error {
	werr := p.w.Close()
	rerr := p.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
