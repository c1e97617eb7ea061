// Package cmd implements the urlcanon command-line interface using Cobra.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lukemcguire/urlcanon/config"
)

// globalFlags holds the persistent flags shared by every subcommand. A flag
// only overrides the loaded configuration when it was set explicitly.
type globalFlags struct {
	configPath     string
	concurrency    int
	rateLimit      int
	requestTimeout time.Duration
	retries        int
	retryDelay     time.Duration
	userAgent      string
	respectRobots  bool
	logLevel       string
}

// NewRootCommand builds the urlcanon command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "urlcanon",
		Short: "urlcanon turns messy social-media links into canonical account URLs",
		Long: `urlcanon reads a list of raw links, one per line, and reduces each one to
the canonical URL of the account or site behind it. Links that cannot be
reduced are sorted into garbage and error buckets and reported.

Usage:
  urlcanon clean <input> [flags]
  urlcanon unshorten <input> [flags]`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags.register(root.PersistentFlags())

	root.AddCommand(newCleanCommand(flags))
	root.AddCommand(newUnshortenCommand(flags))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "YAML config file")
	fs.IntVar(&g.concurrency, "concurrency", 0, "number of concurrent workers")
	fs.IntVar(&g.rateLimit, "rate-limit", 0, "initial requests per second per host")
	fs.DurationVar(&g.requestTimeout, "request-timeout", 0, "per-request timeout")
	fs.IntVar(&g.retries, "retries", 0, "number of retries for transient errors")
	fs.DurationVar(&g.retryDelay, "retry-delay", 0, "base delay between retries")
	fs.StringVar(&g.userAgent, "user-agent", "", "User-Agent header sent with every request")
	fs.BoolVar(&g.respectRobots, "respect-robots", false, "consult robots.txt before fetching pages")
	fs.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig loads the config file and environment, then applies every
// persistent flag the user set.
func (g *globalFlags) loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	g.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func (g *globalFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("concurrency") {
		cfg.Concurrency = g.concurrency
	}
	if changed("rate-limit") {
		cfg.RateLimit = g.rateLimit
	}
	if changed("request-timeout") {
		cfg.RequestTimeout = g.requestTimeout
	}
	if changed("retries") {
		cfg.Retries = g.retries
	}
	if changed("retry-delay") {
		cfg.RetryDelay = g.retryDelay
	}
	if changed("user-agent") {
		cfg.UserAgent = g.userAgent
	}
	if changed("respect-robots") {
		cfg.RespectRobots = g.respectRobots
	}
	if changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
}
