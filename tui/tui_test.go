package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/urlcanon/batch"
	"github.com/lukemcguire/urlcanon/result"
)

type constClassifier struct{}

func (constClassifier) Classify(_ context.Context, raw string) result.Result {
	return result.NewCanonical(raw, raw, result.PlatformGenericWeb)
}

func (constClassifier) Resolve(_ context.Context, r result.Result) result.Result {
	return r
}

func sampleOutcome(t *testing.T) *batch.Outcome {
	t.Helper()
	ledger := result.NewLedger()
	for _, res := range []result.Result{
		result.NewCanonical("t.me/a", "t.me/a", result.PlatformTelegram),
		result.NewGarbage("instagram.com/p/x", result.PlatformInstagram, result.ReasonUnsupportedShape),
		result.NewError("rumble.com/v1", result.PlatformRumble, result.ReasonNetworkFailure, result.CategoryTimeout, "deadline exceeded"),
	} {
		if err := ledger.Record(res); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}
	rep := ledger.Report()
	rep.DistinctCanonical = 1
	rep.Duration = 2 * time.Second
	return &batch.Outcome{Canonical: ledger.CanonicalOutput(), Report: rep, Ledger: ledger}
}

func TestNewModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressCh := make(chan batch.Event, 10)
	proc := batch.New(batch.Config{Concurrency: 2}, constClassifier{}, progressCh)
	urls := []string{"a.example", "b.example"}
	prior := []result.Result{result.NewError("bit.ly/x", result.PlatformShortURL, result.ReasonNetworkFailure, result.CategoryDNSFailure, "")}

	model := NewModel(ctx, cancel, proc, urls, prior, progressCh)

	if model.ctx != ctx {
		t.Error("expected ctx to be stored in model")
	}
	if model.cancel == nil {
		t.Error("expected cancel to be stored in model")
	}
	if model.processor != proc {
		t.Error("expected processor to be stored in model")
	}
	if model.progressCh != progressCh {
		t.Error("expected progressCh to be stored in model")
	}
	if model.total != 3 {
		t.Errorf("expected total=3, got %d", model.total)
	}
	if model.processed != 0 || model.canonical != 0 || model.discarded != 0 {
		t.Error("expected initial counters to be zero")
	}
	if model.done {
		t.Error("expected done to be false initially")
	}
}

func TestInit_ReturnsBatchCmd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressCh := make(chan batch.Event, 10)
	proc := batch.New(batch.Config{Concurrency: 1}, constClassifier{}, progressCh)

	model := NewModel(ctx, cancel, proc, []string{"a.example"}, nil, progressCh)
	if cmd := model.Init(); cmd == nil {
		t.Error("Init() should return a non-nil batch command")
	}
}

func TestStartRun_ReturnsDoneMsg(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := batch.New(batch.Config{Concurrency: 1}, constClassifier{}, nil)
	model := NewModel(ctx, cancel, proc, []string{"b.example", "a.example"}, nil, nil)

	msg := model.startRun()()
	done, ok := msg.(DoneMsg)
	if !ok {
		t.Fatalf("expected DoneMsg, got %T", msg)
	}
	if done.Err != nil {
		t.Fatalf("unexpected error: %v", done.Err)
	}
	if got := done.Outcome.Canonical; len(got) != 2 || got[0] != "a.example" {
		t.Errorf("unexpected canonical output: %v", got)
	}
}

func TestUpdate_ProgressMsg(t *testing.T) {
	model := Model{
		progressCh: make(chan batch.Event, 10),
	}

	msg := ProgressMsg{Processed: 5, Total: 9, Canonical: 4, Discarded: 1, Pass: 2, URL: "youtube.com/watch?v=1"}
	updatedModel, cmd := model.Update(msg)
	updated := updatedModel.(Model)

	if updated.processed != 5 || updated.total != 9 {
		t.Errorf("expected 5/9, got %d/%d", updated.processed, updated.total)
	}
	if updated.canonical != 4 || updated.discarded != 1 {
		t.Errorf("expected canonical=4 discarded=1, got %d %d", updated.canonical, updated.discarded)
	}
	if updated.pass != 2 {
		t.Errorf("expected pass=2, got %d", updated.pass)
	}
	if updated.current != "youtube.com/watch?v=1" {
		t.Errorf("expected current URL to be set, got %s", updated.current)
	}
	if cmd == nil {
		t.Error("expected non-nil cmd to re-subscribe to progress channel")
	}
}

func TestUpdate_DoneMsg(t *testing.T) {
	model := Model{}
	outcome := sampleOutcome(t)

	updatedModel, _ := model.Update(DoneMsg{Outcome: outcome})
	updated := updatedModel.(Model)

	if !updated.done {
		t.Error("expected done=true after DoneMsg")
	}
	if updated.Outcome() != outcome {
		t.Error("expected outcome to be stored")
	}
}

func TestUpdate_QuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := Model{ctx: ctx, cancel: cancel}

	updatedModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	updated := updatedModel.(Model)

	if !updated.Quitting() {
		t.Error("expected quitting=true after q")
	}
	if ctx.Err() == nil {
		t.Error("expected the batch context to be cancelled")
	}
	if cmd == nil {
		t.Error("expected a quit command")
	}
}

func TestUpdate_SpinnerTickMsg(t *testing.T) {
	model := Model{}
	// Send a spinner tick; should not panic.
	updatedModel, _ := model.Update(spinner.TickMsg{})
	_ = updatedModel.(Model)
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	model := Model{}
	updatedModel, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := updatedModel.(Model)

	if updated.width != 120 {
		t.Errorf("expected width=120, got %d", updated.width)
	}
}

func TestView_InProgress(t *testing.T) {
	model := Model{
		processed: 3,
		total:     7,
		pass:      1,
		current:   "t.me/checking",
	}
	output := model.View()
	if !strings.Contains(output, "Classifying") {
		t.Errorf("expected 'Classifying' in progress view, got: %s", output)
	}
	if !strings.Contains(output, "3/7") {
		t.Errorf("expected processed count in view, got: %s", output)
	}

	model.pass = 2
	if output := model.View(); !strings.Contains(output, "Resolving") {
		t.Errorf("expected second pass label, got: %s", output)
	}
}

func TestView_DoneWithOutcome(t *testing.T) {
	model := Model{done: true, outcome: sampleOutcome(t)}
	output := model.View()
	if !strings.Contains(output, "successfully cleaned") {
		t.Errorf("expected report in done view, got: %s", output)
	}
}

func TestView_DoneWithError(t *testing.T) {
	model := Model{
		done: true,
		err:  context.Canceled,
	}
	output := model.View()
	if !strings.Contains(output, "Error") {
		t.Errorf("expected error message in done view, got: %s", output)
	}
}

func TestRenderReport(t *testing.T) {
	outcome := sampleOutcome(t)
	output := RenderReport(outcome.Report, outcome.Ledger.Errors())

	for _, want := range []string{
		"1 URLs in total were successfully cleaned (1 distinct)",
		"instagram/unsupported_shape",
		"rumble/error",
		"Timeouts (1)",
		"rumble.com/v1",
		"deadline exceeded",
		"Processed 3 URLs",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in report, got:\n%s", want, output)
		}
	}
}

func TestRenderReport_NothingDiscarded(t *testing.T) {
	output := RenderReport(result.Report{Input: 2, Canonical: 2, DistinctCanonical: 2}, nil)
	if strings.Contains(output, "Bucket") {
		t.Errorf("expected no bucket table, got:\n%s", output)
	}
	if !strings.Contains(output, "0 URLs were discarded") {
		t.Errorf("expected discard summary, got:\n%s", output)
	}
}
