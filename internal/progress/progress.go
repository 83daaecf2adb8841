// Package progress renders a terminal progress view for a batch run.
package progress

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/junsooki/rawconv/internal/batch"
	"github.com/junsooki/rawconv/internal/decoder"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxBarWidth = 60

// DoneMsg ends the program once the run has returned.
type DoneMsg struct {
	Summary batch.Summary
	Err     error
}

// Model tracks batch events. Feed it batch.Event values with
// tea.Program.Send and finish with a DoneMsg.
type Model struct {
	bar    progress.Model
	cancel context.CancelFunc

	total     int
	converted int
	failed    int
	active    map[string]struct{}
	lastFail  string

	stopping bool
	done     *DoneMsg
}

// New creates a model for total jobs. cancel is called when the user
// interrupts the run.
func New(total int, cancel context.CancelFunc) *Model {
	return &Model{
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel: cancel,
		total:  total,
		active: make(map[string]struct{}),
	}
}

// Run starts a program for m and returns it together with a channel that
// closes when the program exits. Output goes to the program's default
// renderer.
func Run(m *Model, opts ...tea.ProgramOption) (*tea.Program, <-chan error) {
	p := tea.NewProgram(m, opts...)
	errc := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errc <- err
		close(errc)
	}()
	return p, errc
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.stopping && m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-4, maxBarWidth), 10)

	case batch.Event:
		name := filepath.Base(msg.Job.Input)
		switch msg.Kind {
		case batch.EventStarted:
			m.active[name] = struct{}{}
		case batch.EventDone:
			delete(m.active, name)
			m.converted++
		case batch.EventFailed:
			delete(m.active, name)
			m.failed++
			m.lastFail = fmt.Sprintf("%s: %s", name, decoder.Kind(msg.Err))
		}

	case DoneMsg:
		m.done = &msg
		return m, tea.Quit
	}
	return m, nil
}

// Percent is the fraction of jobs that have finished.
func (m *Model) Percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.converted+m.failed) / float64(m.total)
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("rawconv"))
	fmt.Fprintf(&b, " %d/%d\n\n", m.converted+m.failed, m.total)
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")

	b.WriteString(okStyle.Render(fmt.Sprintf("converted %d", m.converted)))
	b.WriteString("  ")
	if m.failed > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("failed %d", m.failed)))
	} else {
		fmt.Fprintf(&b, "failed %d", m.failed)
	}
	b.WriteString("\n")
	if m.lastFail != "" {
		b.WriteString(errorStyle.Render("last failure " + m.lastFail))
		b.WriteString("\n")
	}

	if m.done != nil {
		if skipped := m.done.Summary.Skipped(); skipped > 0 {
			fmt.Fprintf(&b, "skipped %d\n", skipped)
		}
		if m.done.Err != nil {
			b.WriteString(errorStyle.Render("stopped: " + m.done.Err.Error()))
			b.WriteString("\n")
		}
		return b.String()
	}

	if m.stopping {
		b.WriteString(helpStyle.Render("stopping..."))
	} else {
		b.WriteString(helpStyle.Render("q cancel"))
	}
	b.WriteString("\n")
	return b.String()
}
