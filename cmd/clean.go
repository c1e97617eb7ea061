package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukemcguire/urlcanon/batch"
	"github.com/lukemcguire/urlcanon/classifier"
	"github.com/lukemcguire/urlcanon/config"
	"github.com/lukemcguire/urlcanon/fetcher"
	"github.com/lukemcguire/urlcanon/result"
	"github.com/lukemcguire/urlcanon/tui"
)

// ErrInterrupted is returned when the user quits the TUI before the batch ends.
var ErrInterrupted = errors.New("batch interrupted")

type cleanFlags struct {
	output     string
	unshorten  bool
	noTUI      bool
	reportJSON string
	ledgerCSV  string
	ledgerXLSX string
}

func newCleanCommand(global *globalFlags) *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean <input>",
		Short: "Canonicalize every link in a file",
		Long: `Clean reads raw links from <input> (one per line, "-" for stdin), reduces
each one to a canonical account or site URL and writes the sorted, deduplicated
result. Links that cannot be reduced are reported by bucket.

Examples:
  urlcanon clean links.txt -o clean.txt
  urlcanon clean links.txt --unshorten --no-tui --report-json report.json
  urlcanon clean links.txt --ledger-xlsx ledger.xlsx --config urlcanon.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runClean(cmd, cfg, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write canonical URLs to this file (default stdout)")
	cmd.Flags().BoolVar(&flags.unshorten, "unshorten", false, "expand short links before classifying")
	cmd.Flags().BoolVar(&flags.noTUI, "no-tui", false, "print a plain report instead of the interactive view")
	cmd.Flags().StringVar(&flags.reportJSON, "report-json", "", "write the report as JSON to this file")
	cmd.Flags().StringVar(&flags.ledgerCSV, "ledger-csv", "", "write every per-URL result as CSV to this file")
	cmd.Flags().StringVar(&flags.ledgerXLSX, "ledger-xlsx", "", "write the ledger as an XLSX workbook to this file")
	return cmd
}

func runClean(cmd *cobra.Command, cfg *config.Config, flags *cleanFlags, input string) error {
	useTUI := !flags.noTUI && isatty.IsTerminal(os.Stdout.Fd())

	level := cfg.LogLevel
	if useTUI && level != "error" {
		// Keep stderr quiet while the TUI owns the terminal.
		level = "error"
	}
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	raws, err := readLines(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := fetcher.New(cfg.FetcherConfig(), fetcher.WithLogger(logger))

	expander := fetcher.NewExpander(f, cfg.Concurrency, cfg.Shorteners, logger)
	var (
		urls  []string
		prior []result.Result
	)
	if flags.unshorten {
		exp, err := expander.Expand(ctx, raws)
		if err != nil {
			return err
		}
		urls, prior = exp.Links, exp.Failed
	} else {
		urls, prior = binShortLinks(expander, raws)
	}

	c := classifier.New(f, append(cfg.ClassifierOptions(), classifier.WithLogger(logger))...)

	var outcome *batch.Outcome
	if useTUI {
		outcome, err = runWithTUI(ctx, cfg, c, urls, prior, logger)
	} else {
		outcome, err = batch.New(cfg.BatchConfig(), c, nil, batch.WithLogger(logger)).Run(ctx, urls, prior...)
		if err != nil {
			err = fmt.Errorf("clean: %w", err)
		}
	}
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	if err := writeOutput(flags.output, stdout, func(w io.Writer) error {
		return result.WriteLines(w, outcome.Canonical)
	}); err != nil {
		return err
	}
	if err := writeOptional(flags.reportJSON, stdout, func(w io.Writer) error {
		return result.WriteJSON(w, outcome.Report)
	}); err != nil {
		return err
	}
	if err := writeOptional(flags.ledgerCSV, stdout, func(w io.Writer) error {
		return result.WriteCSV(w, outcome.Ledger.Results())
	}); err != nil {
		return err
	}
	if err := writeOptional(flags.ledgerXLSX, stdout, func(w io.Writer) error {
		return result.WriteXLSX(w, outcome.Ledger, outcome.Report)
	}); err != nil {
		return err
	}

	if !useTUI {
		result.PrintReport(cmd.ErrOrStderr(), outcome.Report)
	}
	return nil
}

// runWithTUI runs the batch under the Bubble Tea progress view, which prints
// the styled report once the batch finishes.
func runWithTUI(ctx context.Context, cfg *config.Config, c batch.Classifier, urls []string, prior []result.Result, logger *zap.Logger) (*batch.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressCh := make(chan batch.Event, 100)
	processor := batch.New(cfg.BatchConfig(), c, progressCh, batch.WithLogger(logger))

	model := tui.NewModel(ctx, cancel, processor, urls, prior, progressCh)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("run tui: %w", err)
	}

	finalModel := final.(tui.Model)
	if finalModel.Quitting() {
		return nil, ErrInterrupted
	}
	if finalModel.Err() != nil {
		return nil, finalModel.Err()
	}
	return finalModel.Outcome(), nil
}

// binShortLinks keeps short links out of classification when they are not
// being expanded. Each one is recorded as unsupported garbage.
func binShortLinks(e *fetcher.Expander, raws []string) ([]string, []result.Result) {
	urls := make([]string, 0, len(raws))
	var short []result.Result
	for _, raw := range raws {
		if e.IsShort(raw) {
			short = append(short, result.NewGarbage(raw, result.PlatformShortURL, result.ReasonUnsupportedShape))
			continue
		}
		urls = append(urls, raw)
	}
	return urls, short
}
