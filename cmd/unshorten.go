package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lukemcguire/urlcanon/config"
	"github.com/lukemcguire/urlcanon/fetcher"
	"github.com/lukemcguire/urlcanon/result"
)

type unshortenFlags struct {
	output string
	failed string
}

func newUnshortenCommand(global *globalFlags) *cobra.Command {
	flags := &unshortenFlags{}

	cmd := &cobra.Command{
		Use:   "unshorten <input>",
		Short: "Expand short links without classifying them",
		Long: `Unshorten follows the redirects of every link in <input> that points at a
known link shortener and writes the expanded list, scheme-less, in input order.
Links that are not shortened are copied through unchanged.

Examples:
  urlcanon unshorten links.txt -o expanded.txt
  urlcanon unshorten links.txt --failed failed.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runUnshorten(cmd, cfg, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write expanded links to this file (default stdout)")
	cmd.Flags().StringVar(&flags.failed, "failed", "", "write links that could not be expanded as CSV to this file")
	return cmd
}

func runUnshorten(cmd *cobra.Command, cfg *config.Config, flags *unshortenFlags, input string) error {
	logger, err := newLogger(cfg.LogLevel)
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
	exp, err := fetcher.NewExpander(f, cfg.Concurrency, cfg.Shorteners, logger).Expand(ctx, raws)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	if err := writeOutput(flags.output, stdout, func(w io.Writer) error {
		return result.WriteLines(w, exp.Links)
	}); err != nil {
		return err
	}
	if err := writeOptional(flags.failed, stdout, func(w io.Writer) error {
		return result.WriteCSV(w, exp.Failed)
	}); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "%d of %d links were shortened, %d could not be expanded.\n",
		exp.Shortened, len(raws), len(exp.Failed))
	for _, res := range exp.Failed {
		_, _ = fmt.Fprintf(stderr, "  %s: %s\n", res.Original, result.FormatCategory(res.Category))
	}
	return nil
}
