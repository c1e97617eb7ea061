package batch

import "github.com/lukemcguire/urlcanon/result"

// Event reports progress for a single classified URL.
type Event struct {
	URL       string
	Platform  result.Platform
	Kind      result.Kind
	Reason    result.Reason
	Category  result.ErrorCategory
	Pass      int // 1 for the rule pass, 2 for deferred resolution
	Processed int // Results recorded so far, across both passes
	Total     int // Inputs in the batch
	Canonical int
	Discarded int // Garbage plus errors recorded so far
}
