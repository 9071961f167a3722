// Package tui shows live progress on stderr while the input is read. It
// never renders the report.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ansel1/llmtest/results"
)

// ResultsEventMsg wraps results events for bubbletea
type ResultsEventMsg results.Event

// Model is a one-line progress view: a spinner, live counts and the test
// that started last.
//
// The collector is the source of truth; events only say when to look.
type Model struct {
	collector *results.Collector

	Counts      results.Counts
	LastStarted string
	Finished    bool
	Width       int

	StartTime time.Time
	spinner   spinner.Model

	passStyle lipgloss.Style
	failStyle lipgloss.Style
	skipStyle lipgloss.Style
}

// NewModel creates a progress model reading from collector.
func NewModel(collector *results.Collector) *Model {
	s := spinner.New()
	s.Spinner = spinner.Jump

	return &Model{
		collector: collector,
		Width:     80, // updated by bubbletea
		StartTime: time.Now(),
		spinner:   s,
		passStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		failStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
		skipStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultsEventMsg:
		return m, m.handleResultsEvent(results.Event(msg))

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			// only the view goes away; reading continues
			m.Finished = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.Finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleResultsEvent(evt results.Event) tea.Cmd {
	if evt.Type == results.EventRunFinished {
		m.refresh()
		m.Finished = true
		return tea.Quit
	}
	if evt.Type == results.EventTestUpdated || evt.Type == results.EventPackageUpdated {
		m.refresh()
	}
	return nil
}

func (m *Model) refresh() {
	m.Counts = m.collector.Counts()
	m.collector.WithRun(func(r *results.Run) {
		m.LastStarted = r.LastStarted
	})
}

// View renders the status line. It is empty once the run is over so the
// terminal is left clean.
func (m *Model) View() string {
	if m.Finished {
		return ""
	}
	return m.status() + "\n"
}

func (m *Model) status() string {
	elapsed := time.Since(m.StartTime).Round(100 * time.Millisecond)
	counts := fmt.Sprintf("%d passed  %d failed  %d skipped  %s",
		m.Counts.Passed, m.Counts.Failed, m.Counts.Skipped, elapsed)
	prefix := m.spinner.View() + " "

	// widths are measured on the unstyled text
	plain := lipgloss.Width(prefix) + runewidth.StringWidth(counts)
	line := m.styledCounts(elapsed)
	if m.LastStarted != "" {
		if avail := m.Width - plain - 3; avail > 0 {
			line += "  " + runewidth.Truncate(m.LastStarted, avail, "…")
		}
	}
	return prefix + line
}

func (m *Model) styledCounts(elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(m.passStyle.Render(fmt.Sprintf("%d passed", m.Counts.Passed)))
	b.WriteString("  ")
	failed := fmt.Sprintf("%d failed", m.Counts.Failed)
	if m.Counts.Failed > 0 {
		failed = m.failStyle.Render(failed)
	}
	b.WriteString(failed)
	b.WriteString("  ")
	b.WriteString(m.skipStyle.Render(fmt.Sprintf("%d skipped", m.Counts.Skipped)))
	b.WriteString("  ")
	b.WriteString(elapsed.String())
	return b.String()
}

// Forward sends every collector event to p until events is closed. A
// subscriber can miss events, so the end of the run is sent again.
func Forward(p *tea.Program, events <-chan results.Event) {
	for evt := range events {
		p.Send(ResultsEventMsg(evt))
	}
	p.Send(ResultsEventMsg{Type: results.EventRunFinished})
}
