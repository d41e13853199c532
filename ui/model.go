package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lepinkainen/iadl/download"
)

// TUIModel shows the latest ledger snapshot of a running download
type TUIModel struct {
	renderer *Renderer
	snapshot download.Snapshot
	received bool

	// Layout
	width  int
	height int

	// Control state
	done        bool
	quitting    bool
	onInterrupt func()

	// Version for display
	Version string
}

// NewTUIModel creates a new TUI model. onInterrupt runs when the user quits early.
func NewTUIModel(renderer *Renderer, version string, onInterrupt func()) TUIModel {
	return TUIModel{
		renderer:    renderer,
		onInterrupt: onInterrupt,
		Version:     version,
	}
}

// Init implements tea.Model
func (m TUIModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
			m.quitting = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.received = true
		if msg.Final {
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m TUIModel) View() string {
	if m.quitting {
		return "Stopping downloads...\n"
	}

	header := HeaderStyle.Render(fmt.Sprintf("iadl %s", m.Version))
	if !m.received {
		return header + "\n" + InfoStyle.Render("Waiting for first progress update...") + "\n"
	}

	sections := []string{
		header,
		m.renderer.Format(m.snapshot),
	}
	if !m.done {
		sections = append(sections, MutedStyle.Render("Controls: [q] Stop"))
	}

	return strings.Join(sections, "\n") + "\n"
}

// ProgramDrawer forwards snapshots to a running bubbletea program
type ProgramDrawer struct {
	program *tea.Program
}

// NewProgramDrawer creates a drawer for p
func NewProgramDrawer(p *tea.Program) *ProgramDrawer {
	return &ProgramDrawer{program: p}
}

// Draw implements download.Drawer. Send is a no-op once the program has exited.
func (d *ProgramDrawer) Draw(snap download.Snapshot, final bool) {
	d.program.Send(SnapshotMsg{Snapshot: snap, Final: final})
}
