package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// IsSameDomain checks if a scheme-less or absolute link belongs to baseHost.
// Subdomains are considered same-domain (e.g., m.vk.com matches vk.com).
func IsSameDomain(link string, baseHost string) bool {
	host := strings.ToLower(Domain(StripScheme(link)))
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	baseHost = strings.ToLower(baseHost)

	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// ResolveOnHost resolves a possibly-relative href found on a page of host
// and returns it in scheme-less form. Absolute hrefs keep their own host.
func ResolveOnHost(host string, ref string) (string, error) {
	baseURL, err := url.Parse("https://" + host + "/")
	if err != nil {
		return "", fmt.Errorf("parse base host %q: %w", host, err)
	}

	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse ref URL %q: %w", ref, err)
	}

	resolved := baseURL.ResolveReference(refURL)
	return StripScheme(resolved.String()), nil
}
