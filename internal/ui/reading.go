// Package ui renders the interactive view shown while text is read aloud.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/aloud/internal/speech"
	"github.com/muesli/reflow/truncate"
)

const (
	readingText  = "Reading aloud... (press q to stop)"
	stoppingText = "Stopping..."
	previewWidth = 72
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	statusStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"})
)

// speechDoneMsg is sent when the handle finishes.
type speechDoneMsg struct{ err error }

// stopFailedMsg is sent when the handle could not be stopped.
type stopFailedMsg struct{ err error }

// Model is the bubbletea model for a running speech handle.
type Model struct {
	handle  *speech.Handle
	backend speech.Kind
	preview string
	spinner spinner.Model
	started time.Time
	width   int

	stopping bool
	done     bool
	err      error
}

// NewModel creates the view for h. text is shown as a one-line preview.
func NewModel(h *speech.Handle, backend speech.Kind, text string) Model {
	return Model{
		handle:  h,
		backend: backend,
		preview: previewLine(text),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		started: time.Now(),
		width:   previewWidth,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSpeech(m.handle))
}

func waitForSpeech(h *speech.Handle) tea.Cmd {
	return func() tea.Msg {
		return speechDoneMsg{err: h.Wait()}
	}
}

func stopSpeech(h *speech.Handle) tea.Cmd {
	return func() tea.Msg {
		if err := h.Stop(); err != nil {
			return stopFailedMsg{err: err}
		}
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.stopping {
				return m, nil
			}
			m.stopping = true
			return m, stopSpeech(m.handle)
		}

	case tea.WindowSizeMsg:
		m.width = min(msg.Width, previewWidth)

	case speechDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case stopFailedMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	status := readingText
	if m.stopping {
		status = stoppingText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), statusStyle.Render(status))
	if m.preview != "" {
		b.WriteString(dimStyle.Render("  " + truncate.StringWithTail(m.preview, uint(max(m.width-2, 1)), "…")))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s", m.backend, time.Since(m.started).Round(time.Second))))
	b.WriteString("\n")
	return b.String()
}

// Err returns the speech error once the view has finished.
func (m Model) Err() error {
	return m.err
}

// Stopped reports whether the user interrupted the speech.
func (m Model) Stopped() bool {
	return m.stopping
}

// previewLine collapses text to a single line.
func previewLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Run shows the view until the speech ends or the user stops it.
func Run(h *speech.Handle, backend speech.Kind, text string, out io.Writer) error {
	p := tea.NewProgram(NewModel(h, backend, text), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		// The program died without stopping the speech.
		_ = h.Stop()
		return fmt.Errorf("unable to run reading view: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
