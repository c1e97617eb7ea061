package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lukemcguire/urlcanon/result"
)

// RetryPolicy configures retry behavior for failed fetches.
type RetryPolicy struct {
	MaxRetries int           // Retries after the first attempt (0 = single attempt)
	BaseDelay  time.Duration // Initial backoff delay
	MaxDelay   time.Duration // Maximum backoff cap
}

// DefaultRetryPolicy returns a single-attempt policy. Lookups are cheap to
// lose: a failed fetch only costs one URL an error record.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 0,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// withRetry runs attempt until it succeeds, fails permanently, or the policy
// is exhausted. Backoff doubles per retry up to MaxDelay.
func withRetry(ctx context.Context, policy RetryPolicy, attempt func() error) error {
	backoff := policy.BaseDelay
	var lastErr error

	for try := 0; try <= policy.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(backoff):
				backoff = min(backoff*2, policy.MaxDelay)
			}
		}

		lastErr = attempt()
		if lastErr == nil || !shouldRetry(lastErr) {
			return lastErr
		}
	}

	if policy.MaxRetries > 0 {
		var fetchErr *FetchError
		if errors.As(lastErr, &fetchErr) {
			fetchErr.Err = fmt.Errorf("%w (after %d attempts)", fetchErr.Err, policy.MaxRetries+1)
		}
	}
	return lastErr
}

// shouldRetry reports whether a fetch error is transient: timeouts, refused
// connections, 429 and 5xx responses. Robots denials and other 4xx are final.
func shouldRetry(err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	if fetchErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	switch fetchErr.Category {
	case result.CategoryTimeout, result.CategoryConnectionRefused, result.Category5xx:
		return true
	default:
		return false
	}
}
