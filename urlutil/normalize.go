package urlutil

import (
	"regexp"
	"strings"
)

var (
	schemePrefix = regexp.MustCompile(`(?i)^https?://`)
	wwwPrefix    = regexp.MustCompile(`(?i)^www\.`)
)

// Normalize turns a raw scraped string into the scheme-less working form used
// throughout classification:
// - Surrounding whitespace is trimmed
// - A leading http:// or https:// is removed
// - A leading www. is removed
// - The host portion is lowercased (path and query keep their case)
//
// Normalize never fails: strings that are not URLs at all come back trimmed
// and are left for the noise filters to reject.
func Normalize(raw string) string {
	link := strings.TrimSpace(raw)
	link = StripScheme(link)

	host, rest := splitHost(link)
	return strings.ToLower(host) + rest
}

// StripScheme removes a leading http(s):// and www. prefix.
func StripScheme(link string) string {
	link = schemePrefix.ReplaceAllString(link, "")
	return wwwPrefix.ReplaceAllString(link, "")
}

// StripQuery drops everything from the first '?' or '#'.
func StripQuery(link string) string {
	if idx := strings.IndexAny(link, "?#"); idx >= 0 {
		return link[:idx]
	}
	return link
}

// TrimTrailingSlash removes any trailing '/' characters.
func TrimTrailingSlash(link string) string {
	return strings.TrimRight(link, "/")
}

// Domain returns the host portion of a scheme-less link.
func Domain(link string) string {
	host, _ := splitHost(link)
	return host
}

// Canonical applies the final output form: lowercase, no scheme, no www.,
// no query string and no trailing slash.
func Canonical(link string) string {
	link = StripScheme(strings.TrimSpace(link))
	link = TrimTrailingSlash(StripQuery(link))
	return strings.ToLower(link)
}

// splitHost splits a scheme-less link at the first '/', '?' or '#'.
func splitHost(link string) (host, rest string) {
	if idx := strings.IndexAny(link, "/?#"); idx >= 0 {
		return link[:idx], link[idx:]
	}
	return link, ""
}
