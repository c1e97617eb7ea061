// Package classifier maps raw scraped URLs onto canonical account
// identifiers using an ordered, first-match-wins table of platform rules.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lukemcguire/urlcanon/fetcher"
	"github.com/lukemcguire/urlcanon/result"
	"github.com/lukemcguire/urlcanon/urlutil"
)

// DefaultVKAnchorIndex is the zero-based position of the uploader link among
// the anchors of a vk.com video page.
const DefaultVKAnchorIndex = 3

// Classifier applies a rule table to raw URLs. It is safe for concurrent use
// as long as its Fetcher is.
type Classifier struct {
	fetcher       fetcher.Fetcher
	rules         []Rule
	vkAnchorIndex int
	logger        *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for lookup failures and recovered panics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVKAnchorIndex overrides DefaultVKAnchorIndex.
func WithVKAnchorIndex(n int) Option {
	return func(c *Classifier) {
		if n >= 0 {
			c.vkAnchorIndex = n
		}
	}
}

// WithRules replaces the rule table. Rules are tried in order.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		c.rules = rules
	}
}

// New creates a Classifier that performs lookups through f.
func New(f fetcher.Fetcher, opts ...Option) *Classifier {
	c := &Classifier{
		fetcher:       f,
		rules:         DefaultRules(),
		vkAnchorIndex: DefaultVKAnchorIndex,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify runs the first pass over raw. The returned Result is canonical,
// garbage, error, or deferred (for pages that need a second fetch pass).
// A panic inside a rule is recovered and reported as a parse failure.
func (c *Classifier) Classify(ctx context.Context, raw string) (res result.Result) {
	link := urlutil.Normalize(raw)
	social := stripMobile(link)
	platform := result.PlatformGenericWeb

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("rule panicked", zap.String("url", raw), zap.Any("panic", r))
			res = result.NewError(raw, platform, result.ReasonParseFailure, result.CategoryParse, fmt.Sprintf("panic: %v", r))
		}
	}()

	for _, rule := range c.rules {
		candidate := link
		if rule.Social {
			candidate = social
		}
		if !rule.Match(candidate) {
			continue
		}
		platform = rule.Platform
		return rule.Apply(ctx, c, raw, candidate)
	}

	// An exhaustive table never reaches this point.
	return result.NewGarbage(raw, result.PlatformGenericWeb, result.ReasonUnsupportedShape)
}

// Resolve runs the second pass for a deferred result. Non-deferred results
// are returned unchanged.
func (c *Classifier) Resolve(ctx context.Context, deferred result.Result) (res result.Result) {
	if deferred.Kind != result.KindDeferred {
		return deferred
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("resolver panicked", zap.String("url", deferred.Original), zap.Any("panic", r))
			res = result.NewError(deferred.Original, deferred.Platform, result.ReasonParseFailure, result.CategoryParse, fmt.Sprintf("panic: %v", r))
		}
	}()

	switch deferred.Platform {
	case result.PlatformYouTubeWatch:
		return c.lookup(ctx, deferred.Original, deferred.Canonical, deferred.Platform, extractWatchAuthor)
	case result.PlatformFBWatch:
		return c.lookup(ctx, deferred.Original, deferred.Canonical, deferred.Platform, extractFacebookOwner)
	default:
		return result.NewError(deferred.Original, deferred.Platform, result.ReasonParseFailure, result.CategoryUnknown,
			fmt.Sprintf("no resolver for deferred platform %q", deferred.Platform))
	}
}

// lookup fetches link and runs extract over the page. A fetch failure yields
// an error result, an empty extraction a lookup_miss.
func (c *Classifier) lookup(ctx context.Context, raw, link string, platform result.Platform, extract extractor) result.Result {
	page, err := c.fetcher.Get(ctx, link)
	if err != nil {
		return c.fetchFailure(raw, platform, err)
	}

	found, err := extract(page)
	if err != nil {
		c.logger.Warn("extraction failed", zap.String("url", raw), zap.Error(err))
		return result.NewError(raw, platform, result.ReasonParseFailure, result.CategoryParse, err.Error())
	}
	if found == "" {
		c.logger.Debug("lookup miss", zap.String("url", raw), zap.String("platform", string(platform)))
		return result.NewGarbage(raw, platform, result.ReasonLookupMiss)
	}
	return canonical(raw, found, platform)
}

func (c *Classifier) fetchFailure(raw string, platform result.Platform, err error) result.Result {
	category := result.ClassifyError(err, 0, false)
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		category = fetchErr.Category
	}
	c.logger.Warn("lookup failed",
		zap.String("url", raw),
		zap.String("platform", string(platform)),
		zap.String("category", string(category)),
		zap.Error(err))
	return result.NewError(raw, platform, result.ReasonNetworkFailure, category, err.Error())
}

// canonical builds a canonical result with the final output form applied.
func canonical(raw, link string, platform result.Platform) result.Result {
	return result.NewCanonical(raw, urlutil.Canonical(link), platform)
}
