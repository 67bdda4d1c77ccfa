// Package manager implements the Session Manager from spec section 4.6:
// it owns the launcher registry, spawns adapters and wires them to
// session.Session instances, and tracks every live session by ID so a
// caller (the MCP server, the TUI) can address many concurrent sessions
// by a stable identifier instead of holding Go references.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roasbeef/dapctl/dapclient"
	"github.com/roasbeef/dapctl/handshake"
	"github.com/roasbeef/dapctl/manager/launch"
	"github.com/roasbeef/dapctl/session"
)

// Entry pairs a live session with the launcher that started it, so
// Shutdown and RemoveSession can reach the launcher's cleanup func
// through the Manager instead of requiring callers to track it.
type Entry struct {
	Session *session.Session
	Started time.Time
}

// Manager owns every live debug session in the process. It is safe for
// concurrent use from multiple goroutines (the MCP server dispatches one
// goroutine per tool call).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Entry

	launchersMu sync.Mutex
	launchers   map[string]launch.Launcher

	// ShutdownTimeout bounds how long Shutdown waits for each session's
	// graceful disconnect before dropping it unceremoniously.
	ShutdownTimeout time.Duration

	// Timeouts is applied to every session this Manager creates, via
	// session.Session.SetTimeouts, before the handshake runs.
	Timeouts handshake.Config
}

// New returns an empty Manager. Register launchers with RegisterLauncher
// before calling CreateSession.
func New() *Manager {
	return &Manager{
		sessions:        make(map[string]*Entry),
		launchers:       make(map[string]launch.Launcher),
		ShutdownTimeout: 5 * time.Second,
		Timeouts:        handshake.DefaultConfig(),
	}
}

// RegisterLauncher associates a language/adapter key (e.g. "go", "python",
// "ruby") with the Launcher that starts its adapter process.
func (m *Manager) RegisterLauncher(key string, l launch.Launcher) {
	m.launchersMu.Lock()
	defer m.launchersMu.Unlock()
	m.launchers[key] = l
}

func (m *Manager) launcherFor(key string) (launch.Launcher, error) {
	m.launchersMu.Lock()
	defer m.launchersMu.Unlock()

	l, ok := m.launchers[key]
	if !ok {
		return nil, fmt.Errorf("no launcher registered for adapter %q", key)
	}
	return l, nil
}

// CreateSession starts a new adapter for adapterKey, runs the launch
// handshake against cfg, and registers the resulting session under a
// freshly generated ID.
func (m *Manager) CreateSession(ctx context.Context, adapterKey string, clientID string,
	cfg session.LaunchConfig, configRequests []session.ConfigRequest) (string, error) {

	l, err := m.launcherFor(adapterKey)
	if err != nil {
		return "", err
	}

	transport, cleanup, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launching %s adapter: %w", adapterKey, err)
	}

	client := dapclient.New(transport)
	sess := session.New(client, cleanup)
	sess.SetTimeouts(m.Timeouts)

	if err := sess.InitializeAndLaunch(ctx, clientID, cfg, configRequests); err != nil {
		cleanup()
		return "", fmt.Errorf("launch handshake failed: %w", err)
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &Entry{Session: sess, Started: time.Now()}
	m.mu.Unlock()

	return id, nil
}

// CreateAttachSession is CreateSession's counterpart for attaching to an
// already-running process.
func (m *Manager) CreateAttachSession(ctx context.Context, adapterKey string, clientID string,
	cfg session.AttachConfig, configRequests []session.ConfigRequest) (string, error) {

	l, err := m.launcherFor(adapterKey)
	if err != nil {
		return "", err
	}

	transport, cleanup, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launching %s adapter: %w", adapterKey, err)
	}

	client := dapclient.New(transport)
	sess := session.New(client, cleanup)
	sess.SetTimeouts(m.Timeouts)

	if err := sess.InitializeAndAttach(ctx, clientID, cfg, configRequests); err != nil {
		cleanup()
		return "", fmt.Errorf("attach handshake failed: %w", err)
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &Entry{Session: sess, Started: time.Now()}
	m.mu.Unlock()

	return id, nil
}

// GetSession returns the session registered under id, if any.
func (m *Manager) GetSession(id string) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return e.Session, true
}

// GetSessionState is a convenience wrapper returning just the session's
// current DebugState.
func (m *Manager) GetSessionState(id string) (session.State, bool) {
	sess, ok := m.GetSession(id)
	if !ok {
		return session.State{}, false
	}
	return sess.GetState(), true
}

// ListSessions returns the IDs of every currently tracked session.
func (m *Manager) ListSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

// RemoveSession disconnects the session (terminating the debuggee if
// requested) and drops it from the registry.
func (m *Manager) RemoveSession(ctx context.Context, id string, terminateDebuggee bool) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no such session %q", id)
	}

	return e.Session.Disconnect(ctx, terminateDebuggee)
}

// Shutdown disconnects every live session in parallel, bounded by
// ShutdownTimeout per session, and clears the registry regardless of
// whether a given disconnect completed cleanly in time.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	entries := make(map[string]*Entry, len(m.sessions))
	for id, e := range m.sessions {
		entries[id] = e
	}
	m.sessions = make(map[string]*Entry)
	m.mu.Unlock()

	timeout := m.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	for id, e := range entries {
		id, e := id, e
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			if err := e.Session.Disconnect(dctx, true); err != nil {
				return fmt.Errorf("session %s: %w", id, err)
			}
			return nil
		})
	}

	return g.Wait()
}
