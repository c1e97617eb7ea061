package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/lukemcguire/urlcanon/result"
	"github.com/lukemcguire/urlcanon/urlutil"
)

// A Strategy turns a matched link into a Result. raw is the untouched input
// string and link its normalized form.
type Strategy func(ctx context.Context, c *Classifier, raw, link string) result.Result

// Rule is one row of the classification table.
type Rule struct {
	Name     string
	Platform result.Platform
	// Social rules see the link with any m. or mobile. prefix removed
	// (m.tiktok.com excepted).
	Social bool
	Match  func(link string) bool
	Apply  Strategy
}

var (
	noisePattern  = regexp.MustCompile(`^(css|photos|messages|#go_to_message|\)\[\^)`)
	otherScheme   = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
	socialPattern = regexp.MustCompile(`^(m\.|mobile\.)?(odysee|vk\.|instagram|twitter|facebook|fb\.watch|youtube\.com|t\.me|tiktok\.|vm\.tiktok|bitchute|gettr\.com|reddit\.|rumble\.com|gab\.com|4chan\.org)`)
	mobilePrefix  = regexp.MustCompile(`^(m\.|mobile\.)`)

	postPattern      = regexp.MustCompile(`(twitter\.com/.*/status|facebook\.com/.*/posts|reddit\.com/r/.*/comments)`)
	postSuffix       = regexp.MustCompile(`(/status|/posts|/comments).*$`)
	telegramPattern  = regexp.MustCompile(`t\.me/[-+_a-zA-Z0-9]*`)
	youtubeCustom    = regexp.MustCompile(`youtube\.com/c/([^/?#]+)`)
	platformPrefixes = []struct {
		prefix   string
		platform result.Platform
	}{
		{"t.me", result.PlatformTelegram},
		{"vm.tiktok", result.PlatformTikTok},
		{"m.tiktok", result.PlatformTikTok},
		{"tiktok.", result.PlatformTikTok},
		{"youtube.com", result.PlatformYouTube},
		{"fb.watch", result.PlatformFBWatch},
		{"facebook", result.PlatformFacebook},
		{"instagram", result.PlatformInstagram},
		{"twitter", result.PlatformTwitter},
		{"vk.", result.PlatformVK},
		{"odysee", result.PlatformOdysee},
		{"bitchute", result.PlatformBitchute},
		{"rumble.com", result.PlatformRumble},
		{"gettr.com", result.PlatformGettr},
		{"reddit.", result.PlatformReddit},
		{"gab.com", result.PlatformGab},
		{"4chan.org", result.PlatformFourChan},
	}
)

func prefixed(pattern string) func(string) bool {
	re := regexp.MustCompile(`^(` + pattern + `)`)
	return re.MatchString
}

func contains(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

// stripMobile removes the mobile subdomain from social links, except for
// m.tiktok.com short links which must still be followed.
func stripMobile(link string) string {
	if strings.HasPrefix(link, "m.tiktok.com") {
		return link
	}
	return mobilePrefix.ReplaceAllString(link, "")
}

// platformOf names the social platform a link belongs to by host prefix.
func platformOf(link string) result.Platform {
	for _, p := range platformPrefixes {
		if strings.HasPrefix(link, p.prefix) {
			return p.platform
		}
	}
	return result.PlatformGenericWeb
}

func garbage(platform result.Platform, reason result.Reason) Strategy {
	return func(_ context.Context, _ *Classifier, raw, _ string) result.Result {
		return result.NewGarbage(raw, platform, reason)
	}
}

func passThrough(platform result.Platform) Strategy {
	return func(_ context.Context, _ *Classifier, raw, link string) result.Result {
		return canonical(raw, link, platform)
	}
}

func lookupWith(platform result.Platform, extract extractor) Strategy {
	return func(ctx context.Context, c *Classifier, raw, link string) result.Result {
		return c.lookup(ctx, raw, link, platform, extract)
	}
}

func deferTo(platform result.Platform) Strategy {
	return func(_ context.Context, _ *Classifier, raw, link string) result.Result {
		return result.NewDeferred(raw, link, platform)
	}
}

// DefaultRules returns the built-in rule table. The first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "non-url",
			Platform: result.PlatformNonURL,
			Match: func(link string) bool {
				return link == "" || noisePattern.MatchString(link) || otherScheme.MatchString(link)
			},
			Apply: garbage(result.PlatformNonURL, result.ReasonInputNoise),
		},
		{
			Name:     "mailto",
			Platform: result.PlatformMail,
			Match:    prefixed(`mailto`),
			Apply:    garbage(result.PlatformMail, result.ReasonInputNoise),
		},
		{
			Name:     "generic-web",
			Platform: result.PlatformGenericWeb,
			Match:    func(link string) bool { return !socialPattern.MatchString(link) },
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				return canonical(raw, urlutil.Domain(link), result.PlatformGenericWeb)
			},
		},
		{
			Name:     "instagram-post",
			Platform: result.PlatformInstagram,
			Social:   true,
			Match:    prefixed(`instagram\.com/p/|instagram\.com/tv`),
			Apply:    garbage(result.PlatformInstagram, result.ReasonUnsupportedShape),
		},
		{
			Name:     "post-permalink",
			Platform: result.PlatformTwitter,
			Social:   true,
			Match:    postPattern.MatchString,
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				return canonical(raw, postSuffix.ReplaceAllString(link, ""), platformOf(link))
			},
		},
		{
			Name:     "twitter-hashtag",
			Platform: result.PlatformTwitter,
			Social:   true,
			Match:    prefixed(`twitter\.com/hashtag`),
			Apply:    garbage(result.PlatformTwitter, result.ReasonUnsupportedShape),
		},
		{
			Name:     "facebook-video",
			Platform: result.PlatformFacebook,
			Social:   true,
			Match:    contains(`facebook\.com/.*/videos`),
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				owner, _, _ := strings.Cut(link, "/videos")
				return canonical(raw, owner, result.PlatformFacebook)
			},
		},
		{
			Name:     "facebook-watch",
			Platform: result.PlatformFBWatch,
			Social:   true,
			Match:    prefixed(`facebook\.com/watch|fb\.watch`),
			Apply:    deferTo(result.PlatformFBWatch),
		},
		{
			Name:     "facebook-story",
			Platform: result.PlatformFacebook,
			Social:   true,
			Match:    prefixed(`facebook\.com/story`),
			Apply:    garbage(result.PlatformFacebook, result.ReasonUnsupportedShape),
		},
		{
			Name:     "telegram",
			Platform: result.PlatformTelegram,
			Social:   true,
			Match:    prefixed(`t\.me(/|$)`),
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				channel := telegramPattern.FindString(link)
				if channel == "" || channel == "t.me/" {
					return result.NewGarbage(raw, result.PlatformTelegram, result.ReasonUnsupportedShape)
				}
				return canonical(raw, channel, result.PlatformTelegram)
			},
		},
		{
			Name:     "youtube-custom",
			Platform: result.PlatformYouTube,
			Social:   true,
			Match:    youtubeCustom.MatchString,
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				m := youtubeCustom.FindStringSubmatch(link)
				return canonical(raw, "youtube.com/@"+m[1], result.PlatformYouTube)
			},
		},
		{
			Name:     "youtube-channel",
			Platform: result.PlatformYouTube,
			Social:   true,
			Match:    contains(`youtube\.com/channel`),
			Apply:    lookupWith(result.PlatformYouTube, extractYouTubeHandle),
		},
		{
			Name:     "youtube-search",
			Platform: result.PlatformYouTube,
			Social:   true,
			Match:    prefixed(`youtube\.com/results`),
			Apply:    garbage(result.PlatformYouTube, result.ReasonUnsupportedShape),
		},
		{
			Name:     "youtube-watch",
			Platform: result.PlatformYouTubeWatch,
			Social:   true,
			Match:    prefixed(`youtube\.com/watch|youtube\.com/live`),
			Apply:    deferTo(result.PlatformYouTubeWatch),
		},
		{
			Name:     "odysee-video",
			Platform: result.PlatformOdysee,
			Social:   true,
			Match:    prefixed(`odysee\.com/[^@]`),
			Apply:    lookupWith(result.PlatformOdysee, extractOdyseeChannel),
		},
		{
			Name:     "odysee-channel",
			Platform: result.PlatformOdysee,
			Social:   true,
			Match:    prefixed(`odysee\.com/@`),
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				channel, _, _ := strings.Cut(link, ":")
				return canonical(raw, channel, result.PlatformOdysee)
			},
		},
		{
			Name:     "bitchute",
			Platform: result.PlatformBitchute,
			Social:   true,
			Match:    prefixed(`bitchute\.com`),
			Apply:    lookupWith(result.PlatformBitchute, extractBitchuteChannel),
		},
		{
			Name:     "vk",
			Platform: result.PlatformVK,
			Social:   true,
			Match:    prefixed(`vk\.com`),
			Apply:    classifyVK,
		},
		{
			Name:     "rumble",
			Platform: result.PlatformRumble,
			Social:   true,
			Match:    prefixed(`rumble\.com`),
			Apply: func(ctx context.Context, c *Classifier, raw, link string) result.Result {
				if strings.HasPrefix(link, "rumble.com/user/") || strings.HasPrefix(link, "rumble.com/c/") {
					return canonical(raw, link, result.PlatformRumble)
				}
				return c.lookup(ctx, raw, link, result.PlatformRumble, extractRumbleChannel)
			},
		},
		{
			Name:     "gettr",
			Platform: result.PlatformGettr,
			Social:   true,
			Match:    prefixed(`gettr\.com`),
			Apply: func(ctx context.Context, c *Classifier, raw, link string) result.Result {
				if strings.HasPrefix(link, "gettr.com/user/") {
					return canonical(raw, link, result.PlatformGettr)
				}
				return c.lookup(ctx, raw, link, result.PlatformGettr, extractGettrUser)
			},
		},
		{
			Name:     "tiktok",
			Platform: result.PlatformTikTok,
			Social:   true,
			Match:    prefixed(`vm\.tiktok|m\.tiktok|tiktok`),
			Apply:    classifyTikTok,
		},
		{
			Name:     "social-other",
			Platform: result.PlatformGenericWeb,
			Social:   true,
			Match:    func(string) bool { return true },
			Apply: func(_ context.Context, _ *Classifier, raw, link string) result.Result {
				return canonical(raw, link, platformOf(link))
			},
		},
	}
}

// classifyTikTok follows vm./m. short links to the profile they land on and
// keeps plain profile links as they are.
func classifyTikTok(ctx context.Context, c *Classifier, raw, link string) result.Result {
	switch {
	case strings.HasPrefix(link, "vm.") || strings.HasPrefix(link, "m."):
		final, err := c.fetcher.Head(ctx, link)
		if err != nil {
			return c.fetchFailure(raw, result.PlatformTikTok, err)
		}
		profile := tiktokProfile(urlutil.StripScheme(final))
		if urlutil.TrimTrailingSlash(profile) == "tiktok.com" {
			return result.NewGarbage(raw, result.PlatformTikTok, result.ReasonLookupMiss)
		}
		return canonical(raw, profile, result.PlatformTikTok)
	case strings.HasPrefix(link, "tiktok.com/@"):
		return canonical(raw, tiktokProfile(link), result.PlatformTikTok)
	default:
		return result.NewGarbage(raw, result.PlatformTikTok, result.ReasonUnsupportedShape)
	}
}

// tiktokProfile cuts a TikTok link back to the account it belongs to.
func tiktokProfile(link string) string {
	profile := urlutil.StripQuery(link)
	if idx := strings.Index(profile, "/video"); idx >= 0 {
		profile = profile[:idx]
	}
	return profile
}
