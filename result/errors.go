package result

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorCategory represents the network-level classification of a failed fetch.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryDNSFailure        ErrorCategory = "dns_failure"
	CategoryConnectionRefused ErrorCategory = "connection_refused"
	Category4xx               ErrorCategory = "4xx"
	Category5xx               ErrorCategory = "5xx"
	CategoryRedirectLoop      ErrorCategory = "redirect_loop"
	CategoryRobotsDisallowed  ErrorCategory = "robots_disallowed"
	CategoryParse             ErrorCategory = "parse"
	CategoryUnknown           ErrorCategory = "unknown"
)

// ClassifyError determines the error category based on the error, HTTP status code,
// and whether a redirect loop was detected.
func ClassifyError(err error, statusCode int, isRedirectLoop bool) ErrorCategory {
	if isRedirectLoop {
		return CategoryRedirectLoop
	}

	if statusCode >= 400 && statusCode <= 499 {
		return Category4xx
	}
	if statusCode >= 500 {
		return Category5xx
	}

	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
			return CategoryConnectionRefused
		}
		if opErr.Timeout() {
			return CategoryTimeout
		}
	}

	// http.Client wraps client-side timeouts in *url.Error, which exposes Timeout().
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return CategoryTimeout
	}

	return CategoryUnknown
}

// FormatCategory returns a human-readable label for an error category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case Category4xx:
		return "Client Errors (4xx)"
	case Category5xx:
		return "Server Errors (5xx)"
	case CategoryRedirectLoop:
		return "Redirect Loops"
	case CategoryRobotsDisallowed:
		return "Disallowed by robots.txt"
	case CategoryParse:
		return "Unparseable Pages"
	default:
		return "Other Errors"
	}
}

// FormatReason returns a human-readable label for a discard reason.
func FormatReason(reason Reason) string {
	switch reason {
	case ReasonInputNoise:
		return "Not a URL"
	case ReasonUnsupportedShape:
		return "Unsupported URL shape"
	case ReasonLookupMiss:
		return "Page element not found"
	case ReasonNetworkFailure:
		return "Network failure"
	case ReasonParseFailure:
		return "Parse failure"
	default:
		return "Unclassified"
	}
}
