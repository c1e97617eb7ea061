package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/urlcanon/batch"
)

// ProgressMsg reports progress for a single classified URL.
type ProgressMsg struct {
	Processed int
	Total     int
	Canonical int
	Discarded int
	Pass      int
	URL       string
}

// DoneMsg signals the batch has completed.
type DoneMsg struct {
	Outcome *batch.Outcome
	Err     error
}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel. A closed channel yields no message; the outcome comes from
// startRun.
func waitForProgress(ch <-chan batch.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{
			Processed: evt.Processed,
			Total:     evt.Total,
			Canonical: evt.Canonical,
			Discarded: evt.Discarded,
			Pass:      evt.Pass,
			URL:       evt.URL,
		}
	}
}
