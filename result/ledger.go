package result

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// errorBucketSuffix names the per-platform error bucket.
const errorBucketSuffix = "error"

// ConservationError is returned by Ledger.Verify when the number of recorded
// results does not match the number of input URLs. It always indicates a
// classification bug: a URL was dropped or counted twice.
type ConservationError struct {
	Input     int
	Canonical int
	Garbage   int
	Errors    int
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("conservation invariant violated: %d inputs but %d canonical + %d garbage + %d errors = %d recorded",
		e.Input, e.Canonical, e.Garbage, e.Errors, e.Canonical+e.Garbage+e.Errors)
}

// Ledger accumulates classification results. Per-bucket lists are derived
// views over the single ordered record slice. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	records []Result
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a final result. Deferred or untagged results are rejected
// because they would leave their URL unaccounted for.
func (l *Ledger) Record(res Result) error {
	switch res.Kind {
	case KindCanonical, KindGarbage, KindError:
	default:
		return fmt.Errorf("record %q: unresolved result kind %q", res.Original, res.Kind)
	}

	l.mu.Lock()
	l.records = append(l.records, res)
	l.mu.Unlock()
	return nil
}

// Len returns the number of recorded results.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Results returns a copy of every recorded result in recording order.
func (l *Ledger) Results() []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Garbage returns all garbage results in recording order.
func (l *Ledger) Garbage() []Result {
	return l.filter(func(r Result) bool { return r.Kind == KindGarbage })
}

// Errors returns all error results in recording order.
func (l *Ledger) Errors() []Result {
	return l.filter(func(r Result) bool { return r.Kind == KindError })
}

// Bucket returns the original URLs recorded as garbage for platform and reason.
func (l *Ledger) Bucket(platform Platform, reason Reason) []string {
	var urls []string
	for _, r := range l.filter(func(r Result) bool {
		return r.Kind == KindGarbage && r.Platform == platform && r.Reason == reason
	}) {
		urls = append(urls, r.Original)
	}
	return urls
}

// CanonicalOutput returns the deduplicated, case-folded, lexicographically
// sorted canonical URLs.
func (l *Ledger) CanonicalOutput() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range l.filter(func(r Result) bool { return r.Kind == KindCanonical }) {
		link := strings.TrimPrefix(strings.ToLower(r.Canonical), "www.")
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	slices.Sort(out)
	return out
}

// Verify checks that every one of inputCount URLs was recorded exactly once.
func (l *Ledger) Verify(inputCount int) error {
	rep := l.Report()
	if rep.Canonical+rep.Garbage+rep.Errors != inputCount {
		return &ConservationError{
			Input:     inputCount,
			Canonical: rep.Canonical,
			Garbage:   rep.Garbage,
			Errors:    rep.Errors,
		}
	}
	return nil
}

// Report summarizes the ledger. Buckets are ordered by count (largest first),
// then by name.
func (l *Ledger) Report() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rep Report
	counts := make(map[string]int)
	for _, r := range l.records {
		switch r.Kind {
		case KindCanonical:
			rep.Canonical++
		case KindGarbage:
			rep.Garbage++
			counts[BucketName(r)]++
		case KindError:
			rep.Errors++
			counts[BucketName(r)]++
		}
	}

	rep.Input = len(l.records)
	rep.Buckets = make([]BucketCount, 0, len(counts))
	for name, count := range counts {
		rep.Buckets = append(rep.Buckets, BucketCount{Bucket: name, Count: count})
	}
	slices.SortFunc(rep.Buckets, func(a, b BucketCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Bucket, b.Bucket)
	})
	return rep
}

// BucketName returns the ledger bucket a garbage or error result belongs to.
func BucketName(r Result) string {
	if r.Kind == KindError {
		return string(r.Platform) + "/" + errorBucketSuffix
	}
	return string(r.Platform) + "/" + string(r.Reason)
}

func (l *Ledger) filter(keep func(Result) bool) []Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Result
	for _, r := range l.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
