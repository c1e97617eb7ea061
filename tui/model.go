// Package tui provides the Bubble Tea terminal UI for urlcanon, displaying
// live classification progress and a styled report of the batch.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/urlcanon/batch"
	"github.com/lukemcguire/urlcanon/result"
)

// Model is the Bubble Tea model for the batch TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	processor  *batch.Processor
	urls       []string
	prior      []result.Result
	spinner    spinner.Model
	progressCh <-chan batch.Event

	processed int
	total     int
	canonical int
	discarded int
	pass      int
	current   string
	quitting  bool
	done      bool
	outcome   *batch.Outcome
	err       error
	width     int
}

// NewModel creates a TUI model that runs processor over urls (plus any
// prior results) and listens on progressCh.
func NewModel(ctx context.Context, cancel context.CancelFunc, processor *batch.Processor, urls []string, prior []result.Result, progressCh <-chan batch.Event) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		processor:  processor,
		urls:       urls,
		prior:      prior,
		spinner:    spin,
		progressCh: progressCh,
		total:      len(urls) + len(prior),
		pass:       1,
	}
}

// Init starts the spinner, the batch, and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), waitForProgress(m.progressCh))
}

// startRun returns a tea.Cmd that runs the processor and sends DoneMsg.
func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.processor.Run(m.ctx, m.urls, m.prior...)
		if err != nil {
			err = fmt.Errorf("clean: %w", err)
		}
		return DoneMsg{Outcome: outcome, Err: err}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case ProgressMsg:
		m.processed = msg.Processed
		m.total = msg.Total
		m.canonical = msg.Canonical
		m.discarded = msg.Discarded
		m.pass = msg.Pass
		m.current = msg.URL
		return m, waitForProgress(m.progressCh)

	case DoneMsg:
		m.done = true
		m.outcome = msg.Outcome
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.outcome != nil {
		return RenderReport(m.outcome.Report, m.outcome.Ledger.Errors())
	}
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	stage := "Classifying"
	if m.pass == 2 {
		stage = "Resolving video pages"
	}
	return fmt.Sprintf("%s %s... %d/%d processed, %d canonical, %d discarded\n%s\n",
		m.spinner.View(), stage, m.processed, m.total, m.canonical, m.discarded,
		dimStyle.Render("  "+m.current))
}

// Outcome returns the batch outcome, or nil if the batch did not finish.
func (m Model) Outcome() *batch.Outcome {
	return m.outcome
}

// Err returns the error the batch ended with, if any.
func (m Model) Err() error {
	return m.err
}

// Quitting reports whether the user interrupted the batch.
func (m Model) Quitting() bool {
	return m.quitting
}
