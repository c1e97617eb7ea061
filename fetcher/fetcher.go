// Package fetcher performs the single remote lookups the classifier needs:
// a GET for page-based extraction and a HEAD for redirect-based resolution.
// Every failure is returned as a typed *FetchError so callers can record it
// against one URL without aborting a batch.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/urlcanon/result"
)

const (
	// DefaultUserAgent identifies as a common desktop browser; several
	// platforms serve a stripped page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/112.0.5615.121 Safari/537.36"

	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultAcceptLanguage = "en-US,en;q=0.9"
	defaultMaxBodyBytes   = 8 << 20
	maxRedirects          = 10
)

var (
	// ErrDisallowed is returned when RespectRobots is set and robots.txt
	// forbids the request.
	ErrDisallowed = errors.New("disallowed by robots.txt")

	errRedirectLoop = errors.New("redirect loop")
)

// Fetcher retrieves remote pages. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	// Get fetches link and returns the page body.
	Get(ctx context.Context, link string) (*Page, error)
	// Head follows redirects for link without reading a body and returns
	// the final URL.
	Head(ctx context.Context, link string) (string, error)
}

// Page is a fetched HTML document.
type Page struct {
	URL        string // The requested absolute URL
	FinalURL   string // The URL after redirects
	StatusCode int
	Body       []byte
}

// FetchError describes a failed fetch.
type FetchError struct {
	URL        string
	Method     string
	StatusCode int                  // 0 when no response was received
	Category   result.ErrorCategory // Network-level classification
	LastURL    string               // Last URL attempted; differs from URL after a redirect
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config holds fetcher configuration.
type Config struct {
	RequestTimeout time.Duration // Per-request timeout (default 15s)
	UserAgent      string        // Browser-like User-Agent header
	RateLimit      int           // Initial requests per second per host (default 5)
	TargetRTT      time.Duration // RTT the per-host limiter steers towards (default 1s)
	RetryPolicy    RetryPolicy   // Zero value means a single attempt
	RespectRobots  bool          // Consult robots.txt before every request
	MaxBodyBytes   int64         // Cap on bytes read from a GET body (default 8 MiB)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 15 * time.Second,
		UserAgent:      DefaultUserAgent,
		RateLimit:      5,
		TargetRTT:      time.Second,
		RetryPolicy:    DefaultRetryPolicy(),
		MaxBodyBytes:   defaultMaxBodyBytes,
	}
}

// Option customizes an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTransport replaces the HTTP transport, e.g. to route requests to a test server.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *HTTPFetcher) {
		f.client.Transport = rt
	}
}

// HTTPFetcher fetches pages over HTTP(S) with a fixed browser header set.
type HTTPFetcher struct {
	cfg     Config
	client  *http.Client
	limiter *HostLimiter
	robots  *RobotsChecker
	logger  *zap.Logger
}

// New creates an HTTPFetcher with the given configuration.
func New(cfg Config, opts ...Option) *HTTPFetcher {
	defaults := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.TargetRTT <= 0 {
		cfg.TargetRTT = defaults.TargetRTT
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}

	f := &HTTPFetcher{
		cfg:     cfg,
		limiter: NewHostLimiter(cfg.RateLimit, cfg.TargetRTT),
		logger:  zap.NewNop(),
	}
	// No cookie jar: every request starts without session state.
	f.client = &http.Client{CheckRedirect: checkRedirect}
	for _, opt := range opts {
		opt(f)
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(f.client, cfg.UserAgent)
	}
	return f
}

// Get fetches link with a GET request. Scheme-less links are fetched over https.
func (f *HTTPFetcher) Get(ctx context.Context, link string) (*Page, error) {
	var page *Page
	err := withRetry(ctx, f.cfg.RetryPolicy, func() error {
		var attemptErr error
		page, attemptErr = f.get(ctx, absolute(link))
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Head follows redirects for link with a HEAD request and returns the final URL.
func (f *HTTPFetcher) Head(ctx context.Context, link string) (string, error) {
	var final string
	err := withRetry(ctx, f.cfg.RetryPolicy, func() error {
		var attemptErr error
		final, attemptErr = f.head(ctx, absolute(link))
		return attemptErr
	})
	if err != nil {
		return "", err
	}
	return final, nil
}

func (f *HTTPFetcher) get(ctx context.Context, target string) (*Page, error) {
	resp, cancel, err := f.do(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(http.MethodGet, target, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, &FetchError{
			URL:      target,
			Method:   http.MethodGet,
			Category: result.ClassifyError(err, 0, false),
			LastURL:  resp.Request.URL.String(),
			Err:      fmt.Errorf("read response body: %w", err),
		}
	}

	return &Page{
		URL:        target,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func (f *HTTPFetcher) head(ctx context.Context, target string) (string, error) {
	resp, cancel, err := f.do(ctx, http.MethodHead, target)
	if err != nil {
		return "", err
	}
	defer cancel()
	_ = resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", statusError(http.MethodHead, target, resp)
	}
	return resp.Request.URL.String(), nil
}

// do sends one request. The returned cancel func releases the per-request
// timeout and must be called once the body has been consumed.
func (f *HTTPFetcher) do(ctx context.Context, method, target string) (*http.Response, context.CancelFunc, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, nil, &FetchError{URL: target, Method: method, Category: result.CategoryUnknown, Err: fmt.Errorf("parse URL: %w", err)}
	}

	if f.robots != nil {
		allowed, robotsErr := f.robots.Allowed(ctx, parsed)
		if robotsErr != nil {
			f.logger.Debug("robots.txt check failed, allowing", zap.String("url", target), zap.Error(robotsErr))
		}
		if !allowed {
			return nil, nil, &FetchError{URL: target, Method: method, Category: result.CategoryRobotsDisallowed, Err: ErrDisallowed}
		}
	}

	if err := f.limiter.Wait(ctx, parsed.Hostname()); err != nil {
		return nil, nil, &FetchError{URL: target, Method: method, Category: result.ClassifyError(err, 0, false), Err: fmt.Errorf("rate limiter wait: %w", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		cancel()
		return nil, nil, &FetchError{URL: target, Method: method, Category: result.CategoryUnknown, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", defaultAcceptLanguage)

	start := time.Now()
	resp, err := f.client.Do(req)
	rtt := time.Since(start)
	if err != nil {
		cancel()
		fetchErr := &FetchError{
			URL:      target,
			Method:   method,
			Category: result.ClassifyError(err, 0, errors.Is(err, errRedirectLoop)),
			LastURL:  lastURL(err, target),
			Err:      err,
		}
		f.logger.Debug("fetch failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Duration("rtt", rtt),
			zap.Error(err))
		return nil, nil, fetchErr
	}

	f.limiter.ObserveRTT(parsed.Hostname(), rtt)
	f.logger.Debug("fetched",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("rtt", rtt),
		zap.Float64("host_rps", f.limiter.Rate(parsed.Hostname())))
	return resp, cancel, nil
}

func statusError(method, target string, resp *http.Response) *FetchError {
	return &FetchError{
		URL:        target,
		Method:     method,
		StatusCode: resp.StatusCode,
		Category:   result.ClassifyError(nil, resp.StatusCode, false),
		LastURL:    resp.Request.URL.String(),
		Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

// checkRedirect stops after maxRedirects hops or when a URL repeats.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects: %w", maxRedirects, errRedirectLoop)
	}
	for _, prev := range via {
		if prev.URL.String() == req.URL.String() {
			return fmt.Errorf("revisited %s: %w", req.URL, errRedirectLoop)
		}
	}
	return nil
}

// lastURL returns the URL a transport error refers to, which is the redirect
// target when the failure happened mid-chain.
func lastURL(err error, fallback string) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.URL != "" {
		return urlErr.URL
	}
	return fallback
}

// absolute prefixes scheme-less links with https://.
func absolute(link string) string {
	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return link
	}
	return "https://" + link
}
