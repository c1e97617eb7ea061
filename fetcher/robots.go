package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsCacheTTL = time.Hour
	robotsTimeout  = 5 * time.Second
	robotsMaxBytes = 512 << 10
)

// cachedRobots stores parsed robots.txt data; nil data means allow-all.
type cachedRobots struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// RobotsChecker fetches and caches robots.txt rules per host.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	mu        sync.Mutex
	cache     map[string]cachedRobots
	cacheTTL  time.Duration
}

// NewRobotsChecker creates a RobotsChecker that tests paths against userAgent.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]cachedRobots),
		cacheTTL:  robotsCacheTTL,
	}
}

// Allowed reports whether target may be fetched. Any failure to obtain or
// parse robots.txt fails open: the request is allowed and the error returned
// for logging.
func (r *RobotsChecker) Allowed(ctx context.Context, target *url.URL) (bool, error) {
	host := target.Host
	if host == "" {
		return true, nil
	}

	r.mu.Lock()
	entry, ok := r.cache[host]
	r.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < r.cacheTTL {
		return r.test(entry.data, target), nil
	}

	data, err := r.fetch(ctx, target.Scheme, host)

	r.mu.Lock()
	r.cache[host] = cachedRobots{data: data, fetchedAt: time.Now()}
	r.mu.Unlock()

	return r.test(data, target), err
}

func (r *RobotsChecker) test(data *robotstxt.RobotsData, target *url.URL) bool {
	if data == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.userAgent)
}

// fetch downloads and parses robots.txt. A nil result means allow-all.
func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	reqCtx, cancel := context.WithTimeout(ctx, robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create robots.txt request for host %s: %w", host, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt for host %s: %w", host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 404 means no rules; 5xx fails open.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt body for host %s: %w", host, err)
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for host %s: %w", host, err)
	}
	return robots, nil
}
