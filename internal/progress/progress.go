// Package progress shows live rendering progress in the terminal: one
// overall bar plus one line per render view, driven by the dispatcher's
// shared counter.
package progress

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/edb-dev/mdmovie/internal/dispatch"
)

const barWidth = 40

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model is the bubbletea model for a running dispatch.
type Model struct {
	disp    *dispatch.Dispatcher
	start   time.Time
	stopped bool
}

func NewModel(d *dispatch.Dispatcher) Model {
	return Model{disp: d, start: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			// cooperative stop; workers exit at their next poll tick
			m.stopped = true
			m.disp.Stop()
			return m, nil
		case "ctrl+c":
			m.stopped = true
			m.disp.Kill()
			return m, tea.Quit
		}
	case TickMsg:
		if m.finished() {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) finished() bool {
	for _, w := range m.disp.Workers() {
		if !w.Finished() {
			return false
		}
	}
	return true
}

func (m Model) View() string {
	var b strings.Builder
	completed, total := m.disp.Completed(), m.disp.Total()

	b.WriteString(headerStyle.Render("rendering frames"))
	b.WriteString("\n\n")
	b.WriteString(renderBar(completed, total, barWidth))
	fmt.Fprintf(&b, "  %d/%d  %s\n\n", completed, total, time.Since(m.start).Round(time.Second))

	for i, w := range m.disp.Workers() {
		b.WriteString(labelStyle.Render(fmt.Sprintf("view %-2d ", i)))
		b.WriteString(renderBar(w.Completed(), w.Total(), barWidth/2))
		fmt.Fprintf(&b, " %d/%d", w.Completed(), w.Total())
		if w.Finished() {
			if m.stopped && w.Completed() < w.Total() {
				b.WriteString(failStyle.Render("  stopped"))
			} else {
				b.WriteString(doneStyle.Render("  done"))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: stop after current frame  •  ctrl+c: force quit"))
	b.WriteString("\n")
	return b.String()
}

func renderBar(done, total, width int) string {
	if total <= 0 {
		return barStyle.Render(strings.Repeat("░", width))
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return barStyle.Render(strings.Repeat("█", filled) + strings.Repeat("░", width-filled))
}

// Run blocks showing the progress display until every worker finishes or
// the user quits. Returns whether the run was interrupted.
func Run(d *dispatch.Dispatcher) (stopped bool, err error) {
	m := NewModel(d)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return false, err
	}
	fm, ok := final.(Model)
	return ok && fm.stopped, nil
}
