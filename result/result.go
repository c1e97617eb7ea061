// Package result holds the classification data model shared by the
// classifier and the batch processor: per-URL results, the discard ledger
// and its aggregate report.
package result

import "time"

// Platform identifies which rule family a URL was classified under.
type Platform string

const (
	PlatformTelegram     Platform = "telegram"
	PlatformTikTok       Platform = "tiktok"
	PlatformYouTube      Platform = "youtube"
	PlatformYouTubeWatch Platform = "youtube_watch"
	PlatformFacebook     Platform = "facebook"
	PlatformFBWatch      Platform = "fb_watch"
	PlatformInstagram    Platform = "instagram"
	PlatformTwitter      Platform = "twitter"
	PlatformVK           Platform = "vk"
	PlatformOdysee       Platform = "odysee"
	PlatformBitchute     Platform = "bitchute"
	PlatformRumble       Platform = "rumble"
	PlatformGettr        Platform = "gettr"
	PlatformReddit       Platform = "reddit"
	PlatformGab          Platform = "gab"
	PlatformFourChan     Platform = "fourchan"
	PlatformGenericWeb   Platform = "generic_web"
	PlatformNonURL       Platform = "non_url"
	PlatformMail         Platform = "mail"

	// PlatformShortURL tags short links that were not expanded, either
	// because expansion failed or because it was not requested.
	PlatformShortURL Platform = "shortened_url"
)

// Kind tags which outcome a Result carries.
type Kind string

const (
	KindCanonical Kind = "canonical"
	KindGarbage   Kind = "garbage"
	KindError     Kind = "error"

	// KindDeferred marks a first-pass result that still needs a second,
	// network-dependent pass. It is never recorded in a Ledger.
	KindDeferred Kind = "deferred"
)

// Reason explains why a URL did not produce a canonical identifier.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInputNoise       Reason = "input_noise"
	ReasonUnsupportedShape Reason = "unsupported_shape"
	ReasonLookupMiss       Reason = "lookup_miss"
	ReasonNetworkFailure   Reason = "network_failure"
	ReasonParseFailure     Reason = "parse_failure"
)

// Result is the outcome of classifying a single raw URL.
type Result struct {
	Kind      Kind          `json:"kind"`
	Original  string        `json:"original"`            // The raw input string, untouched
	Canonical string        `json:"canonical,omitempty"` // Set for KindCanonical
	Platform  Platform      `json:"platform"`
	Reason    Reason        `json:"reason,omitempty"`   // Set for KindGarbage and KindError
	Detail    string        `json:"detail,omitempty"`   // Error text for KindError
	Category  ErrorCategory `json:"category,omitempty"` // Network sub-class for KindError
}

// NewCanonical builds a successful result. The canonical string is stored as
// given; the Ledger applies final case folding.
func NewCanonical(original, canonical string, platform Platform) Result {
	return Result{Kind: KindCanonical, Original: original, Canonical: canonical, Platform: platform}
}

// NewGarbage builds a result for a recognized URL that cannot be canonicalized.
func NewGarbage(original string, platform Platform, reason Reason) Result {
	return Result{Kind: KindGarbage, Original: original, Platform: platform, Reason: reason}
}

// NewError builds a result for a canonicalization attempt that failed on a
// network or parse error.
func NewError(original string, platform Platform, reason Reason, category ErrorCategory, detail string) Result {
	return Result{
		Kind:     KindError,
		Original: original,
		Platform: platform,
		Reason:   reason,
		Category: category,
		Detail:   detail,
	}
}

// NewDeferred marks original for second-pass resolution under platform.
// Canonical carries the normalized link the second pass should fetch.
func NewDeferred(original, link string, platform Platform) Result {
	return Result{Kind: KindDeferred, Original: original, Canonical: link, Platform: platform}
}

// BucketCount is the size of one garbage or error bucket.
type BucketCount struct {
	Bucket string `json:"bucket"` // "<platform>/<reason>" or "<platform>/error"
	Count  int    `json:"count"`
}

// Report contains aggregate statistics for a classified batch.
type Report struct {
	Input             int           `json:"input"`
	Canonical         int           `json:"canonical"`          // Canonical results before deduplication
	DistinctCanonical int           `json:"distinct_canonical"` // Lines in the final output
	Garbage           int           `json:"garbage"`
	Errors            int           `json:"errors"`
	Buckets           []BucketCount `json:"buckets"`
	Duration          time.Duration `json:"duration_ns"`
}
