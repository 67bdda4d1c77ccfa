// Package tui implements an interactive session console over
// github.com/charmbracelet/bubbletea, recovered and rewired from the
// teacher's dashboard onto manager.Manager/session.Session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roasbeef/dapctl/manager"
	"github.com/roasbeef/dapctl/session"
)

// refreshMsg triggers a re-poll of the Manager's session table.
type refreshMsg struct{}

// sessionRow is one row of the sessions table, snapshotted from a
// session.Session so rendering never touches it concurrently.
type sessionRow struct {
	ID      string
	State   session.Kind
	Reason  string
	Started time.Time
}

// keyMap defines the key bindings for the console.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Help    key.Binding
	Quit    key.Binding
	Refresh key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit, k.Refresh}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Refresh, k.Help, k.Quit}}
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
}

// Model is the bubbletea model for the session console.
type Model struct {
	mgr *manager.Manager

	ready    bool
	quitting bool
	width    int
	height   int

	sessionsTable table.Model
	logsViewport  viewport.Model
	help          help.Model

	startTime time.Time
	rows      []sessionRow
}

// New builds a Model that polls mgr for its session table.
func New(mgr *manager.Manager) Model {
	columns := []table.Column{
		{Title: "Session ID", Width: 36},
		{Title: "State", Width: 14},
		{Title: "Reason", Width: 16},
		{Title: "Started", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(styles)

	vp := viewport.New(80, 8)
	vp.SetContent("No sessions yet.")

	return Model{
		mgr:           mgr,
		sessionsTable: t,
		logsViewport:  vp,
		help:          help.New(),
		startTime:     time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m *Model) reload() {
	ids := m.mgr.ListSessions()
	rows := make([]sessionRow, 0, len(ids))
	tableRows := make([]table.Row, 0, len(ids))

	for _, id := range ids {
		sess, ok := m.mgr.GetSession(id)
		if !ok {
			continue
		}
		st := sess.GetState()
		rows = append(rows, sessionRow{ID: id, State: st.Kind, Reason: st.Reason})
		tableRows = append(tableRows, table.Row{
			id, st.Kind.String(), st.Reason, "",
		})
	}

	m.rows = rows
	m.sessionsTable.SetRows(tableRows)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.logsViewport.Width = msg.Width - 4
		m.logsViewport.Height = msg.Height / 3
		return m, nil

	case refreshMsg:
		m.reload()
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			m.reload()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.sessionsTable, cmd = m.sessionsTable.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n"
	}
	if !m.ready {
		return "\n  Initializing session console...\n"
	}

	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#5A67D8")).
		Padding(0, 1).
		Width(m.width).
		Render("dapctl session console")

	status := fmt.Sprintf("sessions: %d | uptime: %s", len(m.rows), time.Since(m.startTime).Round(time.Second))
	statusBar := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#718096")).
		Padding(0, 1).
		Width(m.width).
		Render(status)

	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(statusBar)
	b.WriteString("\n\n")
	b.WriteString(m.sessionsTable.View())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(keys))

	return b.String()
}

// Run blocks, serving the console until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, mgr *manager.Manager) error {
	p := tea.NewProgram(New(mgr))

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
