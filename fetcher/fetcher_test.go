package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lukemcguire/urlcanon/result"
)

func newTestFetcher(cfg Config) *HTTPFetcher {
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 20
	}
	return New(cfg)
}

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = fmt.Fprint(w, "<html><title>ok</title></html>")
	}))
	defer server.Close()

	page, err := newTestFetcher(Config{}).Get(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("Accept = %q, want text/html", gotAccept)
	}
	if page.StatusCode != http.StatusOK || !strings.Contains(string(page.Body), "<title>ok</title>") {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestGet_LogsHostRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	f := New(Config{RateLimit: 7, TargetRTT: time.Second, RequestTimeout: 5 * time.Second}, WithLogger(zap.New(core)))
	if _, err := f.Get(context.Background(), server.URL+"/page"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	entries := logs.FilterMessage("fetched").All()
	if len(entries) != 1 {
		t.Fatalf("expected one fetched entry, got %d", len(entries))
	}
	rps, ok := entries[0].ContextMap()["host_rps"].(float64)
	if !ok || rps <= 0 {
		t.Errorf("host_rps = %v, want a positive rate", entries[0].ContextMap()["host_rps"])
	}
}

func TestGet_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		status int
		want   result.ErrorCategory
	}{
		{http.StatusNotFound, result.Category4xx},
		{http.StatusServiceUnavailable, result.Category5xx},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestFetcher(Config{}).Get(context.Background(), server.URL)
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fetchErr.StatusCode != tt.status || fetchErr.Category != tt.want {
				t.Errorf("got status=%d category=%s, want %d %s", fetchErr.StatusCode, fetchErr.Category, tt.status, tt.want)
			}
		})
	}
}

func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := newTestFetcher(Config{RequestTimeout: 50 * time.Millisecond})
	_, err := f.Get(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Category != result.CategoryTimeout {
		t.Errorf("Category = %s, want %s", fetchErr.Category, result.CategoryTimeout)
	}
}

func TestGet_RedirectLoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			http.Redirect(w, r, "/b", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/a", http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(Config{}).Get(context.Background(), server.URL+"/a")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchErr.Category != result.CategoryRedirectLoop {
		t.Errorf("Category = %s, want %s", fetchErr.Category, result.CategoryRedirectLoop)
	}
}

func TestGet_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 1024))
	}))
	defer server.Close()

	page, err := newTestFetcher(Config{MaxBodyBytes: 100}).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(page.Body) != 100 {
		t.Errorf("len(Body) = %d, want 100", len(page.Body))
	}
}

func TestHead_FollowsRedirects(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path == "/short" {
			http.Redirect(w, r, "/@someuser/video/123?lang=en", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	final, err := newTestFetcher(Config{}).Head(context.Background(), server.URL+"/short")
	if err != nil {
		t.Fatalf("Head() error: %v", err)
	}
	if final != server.URL+"/@someuser/video/123?lang=en" {
		t.Errorf("Head() = %q", final)
	}
	for _, m := range methods {
		if m != http.MethodHead {
			t.Errorf("unexpected %s request", m)
		}
	}
}

func TestGet_RespectsRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/")
			return
		}
		_, _ = fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	f := newTestFetcher(Config{RespectRobots: true})

	if _, err := f.Get(context.Background(), server.URL+"/public"); err != nil {
		t.Errorf("Get(/public) error: %v", err)
	}

	_, err := f.Get(context.Background(), server.URL+"/private/page")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v", err)
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Category != result.CategoryRobotsDisallowed {
		t.Errorf("Category = %s, want %s", fetchErr.Category, result.CategoryRobotsDisallowed)
	}
}

func TestAbsolute(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"youtube.com/channel/UC1", "https://youtube.com/channel/UC1"},
		{"http://example.com", "http://example.com"},
		{"HTTPS://example.com", "HTTPS://example.com"},
	}
	for _, tt := range tests {
		if got := absolute(tt.input); got != tt.want {
			t.Errorf("absolute(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
