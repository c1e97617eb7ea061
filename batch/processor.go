// Package batch runs the URL classifier over a batch of raw URLs. It fans
// work out to a bounded worker pool in two passes (rules, then deferred page
// lookups) and fans results back into a single Ledger.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/urlcanon/result"
)

// Processor coordinates classification with a concurrent worker pool.
type Processor struct {
	cfg        Config
	classifier Classifier
	progressCh chan<- Event
	logger     *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Outcome is the result of a completed batch.
type Outcome struct {
	Canonical []string // Final deduplicated, sorted output lines
	Report    result.Report
	Ledger    *result.Ledger
}

// New creates a Processor driving c.
// The progressCh parameter is optional; pass nil to disable progress events.
func New(cfg Config, c Classifier, progressCh chan<- Event, opts ...Option) *Processor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	p := &Processor{
		cfg:        cfg,
		classifier: c,
		progressCh: progressCh,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// tally tracks running counts for progress events. Only the coordinator
// touches it.
type tally struct {
	total     int
	processed int
	canonical int
	discarded int
}

func (t *tally) add(res result.Result) {
	t.processed++
	if res.Kind == result.KindCanonical {
		t.canonical++
	} else {
		t.discarded++
	}
}

// Run classifies urls and returns the canonical output with its report.
// Results in prior (for example failed short-link expansions) are recorded
// first and count toward the batch input. Run is all-or-nothing: if ctx is
// cancelled no partial output is returned.
func (p *Processor) Run(ctx context.Context, urls []string, prior ...result.Result) (*Outcome, error) {
	start := time.Now()
	ledger := result.NewLedger()
	total := len(urls) + len(prior)

	p.logger.Info("batch started",
		zap.Int("urls", len(urls)),
		zap.Int("prerecorded", len(prior)),
		zap.Int("concurrency", p.cfg.Concurrency))

	progress := &tally{total: total}
	for _, res := range prior {
		if err := ledger.Record(res); err != nil {
			return nil, fmt.Errorf("record prior result: %w", err)
		}
		progress.add(res)
	}

	first := make([]Job, len(urls))
	for i, raw := range urls {
		first[i] = Job{Index: i, Raw: raw}
	}
	deferred, err := p.runPass(ctx, 1, first, ledger, progress)
	if err != nil {
		return nil, err
	}

	if len(deferred) > 0 {
		p.logger.Info("resolving deferred urls", zap.Int("count", len(deferred)))
		second := make([]Job, len(deferred))
		for i := range deferred {
			second[i] = Job{Index: i, Deferred: &deferred[i]}
		}
		if _, err := p.runPass(ctx, 2, second, ledger, progress); err != nil {
			return nil, err
		}
	}

	if err := ledger.Verify(total); err != nil {
		p.logger.Error("ledger does not account for every input", zap.Error(err))
		return nil, fmt.Errorf("verify batch: %w", err)
	}

	canonical := ledger.CanonicalOutput()
	report := ledger.Report()
	report.Input = total
	report.DistinctCanonical = len(canonical)
	report.Duration = time.Since(start)

	p.logger.Info("batch finished",
		zap.Int("input", report.Input),
		zap.Int("canonical", report.Canonical),
		zap.Int("distinct", report.DistinctCanonical),
		zap.Int("garbage", report.Garbage),
		zap.Int("errors", report.Errors),
		zap.Duration("duration", report.Duration))

	return &Outcome{Canonical: canonical, Report: report, Ledger: ledger}, nil
}

// runPass pushes jobs through the worker pool and records every result. In
// pass one, deferred results are returned in input order instead of recorded.
func (p *Processor) runPass(ctx context.Context, pass int, jobs []Job, ledger *result.Ledger, progress *tally) ([]result.Result, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	jobCh := make(chan Job, p.cfg.Concurrency*3)
	results := make(chan JobResult, p.cfg.Concurrency*3)

	var workers sync.WaitGroup
	errGroup, groupCtx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	for range min(p.cfg.Concurrency, len(jobs)) {
		workers.Add(1)
		errGroup.Go(func() error {
			defer workers.Done()
			for job := range jobCh {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				jobResult := work(groupCtx, p.classifier, job)
				select {
				case results <- jobResult:
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
			return nil
		})
	}

	// Close results once every worker is done so the coordinator loop ends.
	errGroup.Go(func() error {
		workers.Wait()
		close(results)
		return nil
	})

	deferredAt := make([]*result.Result, len(jobs))
	var recordErr error

	// Coordinator: the only goroutine writing to the ledger.
	for jobResult := range results {
		res := jobResult.Result
		if res.Kind == result.KindDeferred {
			if pass == 1 {
				deferredAt[jobResult.Job.Index] = &res
				p.emit(ctx, pass, res, progress)
				continue
			}
			res = result.NewError(res.Original, res.Platform, result.ReasonParseFailure, result.CategoryUnknown,
				"deferred result was not resolved")
		}

		if err := ledger.Record(res); err != nil && recordErr == nil {
			recordErr = err
		}
		progress.add(res)

		if res.Kind == result.KindError {
			p.logger.Warn("url failed",
				zap.String("url", res.Original),
				zap.String("platform", string(res.Platform)),
				zap.String("category", string(res.Category)),
				zap.String("detail", res.Detail))
		} else {
			p.logger.Debug("url classified",
				zap.String("url", res.Original),
				zap.String("kind", string(res.Kind)),
				zap.String("platform", string(res.Platform)),
				zap.Duration("elapsed", jobResult.Elapsed))
		}
		p.emit(ctx, pass, res, progress)
	}

	if err := errGroup.Wait(); err != nil {
		return nil, fmt.Errorf("pass %d: %w", pass, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pass %d: %w", pass, err)
	}
	if recordErr != nil {
		return nil, fmt.Errorf("pass %d: record result: %w", pass, recordErr)
	}

	var deferred []result.Result
	for _, res := range deferredAt {
		if res != nil {
			deferred = append(deferred, *res)
		}
	}
	return deferred, nil
}

func (p *Processor) emit(ctx context.Context, pass int, res result.Result, progress *tally) {
	if p.progressCh == nil {
		return
	}
	evt := Event{
		URL:       res.Original,
		Platform:  res.Platform,
		Kind:      res.Kind,
		Reason:    res.Reason,
		Category:  res.Category,
		Pass:      pass,
		Processed: progress.processed,
		Total:     progress.total,
		Canonical: progress.canonical,
		Discarded: progress.discarded,
	}
	select {
	case p.progressCh <- evt:
	case <-ctx.Done():
	}
}
