package batch

import (
	"context"
	"time"

	"github.com/lukemcguire/urlcanon/result"
)

// Config holds processor configuration.
type Config struct {
	Concurrency int // Number of concurrent workers (default 8)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 8}
}

// Classifier is the rule engine a Processor drives. *classifier.Classifier
// satisfies it.
type Classifier interface {
	Classify(ctx context.Context, raw string) result.Result
	Resolve(ctx context.Context, deferred result.Result) result.Result
}

// Job is one unit of work for a worker.
type Job struct {
	Index    int            // Position in the pass input
	Raw      string         // The raw URL for pass one
	Deferred *result.Result // The deferred result for pass two
}

// JobResult is what a worker hands back to the coordinator.
type JobResult struct {
	Job     Job
	Result  result.Result
	Elapsed time.Duration
}

// work runs a single job through the classifier.
func work(ctx context.Context, c Classifier, job Job) JobResult {
	start := time.Now()
	var res result.Result
	if job.Deferred != nil {
		res = c.Resolve(ctx, *job.Deferred)
	} else {
		res = c.Classify(ctx, job.Raw)
	}
	return JobResult{Job: job, Result: res, Elapsed: time.Since(start)}
}
