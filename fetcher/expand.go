package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/urlcanon/result"
	"github.com/lukemcguire/urlcanon/urlutil"
)

// DefaultShorteners lists link-shortening services whose links are expanded
// before classification.
var DefaultShorteners = []string{
	"bit.ly", "bitly.com", "buff.ly", "clck.ru", "cutt.ly", "dlvr.it",
	"fb.me", "goo.gl", "ift.tt", "is.gd", "lnkd.in", "ow.ly", "rb.gy",
	"rebrand.ly", "s.id", "shorturl.at", "shorturl.me", "t.co", "t.ly",
	"tiny.cc", "tinyurl.com", "trib.al", "youtu.be",
}

// Expansion is the outcome of expanding a batch of raw links.
type Expansion struct {
	// Links holds every input that was not shortened plus every successfully
	// expanded link, scheme-less, in input order.
	Links []string
	// Shortened counts inputs recognized as short links.
	Shortened int
	// Failed holds one error record per short link that could not be expanded.
	Failed []result.Result
}

// Expander follows short-link redirects with HEAD requests.
type Expander struct {
	fetcher     Fetcher
	domains     map[string]bool
	concurrency int
	logger      *zap.Logger
}

// NewExpander creates an Expander over DefaultShorteners plus extra domains.
func NewExpander(f Fetcher, concurrency int, extra []string, logger *zap.Logger) *Expander {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	domains := make(map[string]bool, len(DefaultShorteners)+len(extra))
	for _, d := range append(append([]string{}, DefaultShorteners...), extra...) {
		domains[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return &Expander{fetcher: f, domains: domains, concurrency: concurrency, logger: logger}
}

// IsShort reports whether raw points at a known shortener.
func (e *Expander) IsShort(raw string) bool {
	return e.domains[urlutil.Domain(urlutil.Normalize(raw))]
}

// Expand resolves every short link in raws. Individual failures are returned
// in Expansion.Failed; only cancellation of ctx fails the whole call.
func (e *Expander) Expand(ctx context.Context, raws []string) (*Expansion, error) {
	expanded := make([]string, len(raws))
	failed := make([]*result.Result, len(raws))
	short := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	for i, raw := range raws {
		if !e.IsShort(raw) {
			expanded[i] = urlutil.Normalize(raw)
			continue
		}
		short++
		group.Go(func() error {
			link, res := e.expandOne(groupCtx, raw)
			if res != nil {
				failed[i] = res
				return nil
			}
			expanded[i] = link
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("expand short links: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("expand short links: %w", err)
	}

	out := &Expansion{Shortened: short}
	for i := range raws {
		if failed[i] != nil {
			out.Failed = append(out.Failed, *failed[i])
			continue
		}
		out.Links = append(out.Links, expanded[i])
	}
	e.logger.Info("expanded short links",
		zap.Int("shortened", short),
		zap.Int("failed", len(out.Failed)))
	return out, nil
}

func (e *Expander) expandOne(ctx context.Context, raw string) (string, *result.Result) {
	link := urlutil.Normalize(raw)
	final, err := e.fetcher.Head(ctx, link)
	if err == nil {
		return urlutil.StripScheme(final), nil
	}

	// A failure after at least one redirect still tells us where the link points.
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.LastURL != "" &&
		urlutil.StripScheme(fetchErr.LastURL) != urlutil.StripScheme(fetchErr.URL) {
		return urlutil.StripScheme(fetchErr.LastURL), nil
	}

	category := result.CategoryUnknown
	if fetchErr != nil {
		category = fetchErr.Category
	}
	e.logger.Warn("short link expansion failed", zap.String("url", raw), zap.Error(err))
	res := result.NewError(raw, result.PlatformShortURL, result.ReasonNetworkFailure, category, err.Error())
	return "", &res
}
