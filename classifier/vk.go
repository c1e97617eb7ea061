package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/lukemcguire/urlcanon/result"
	"github.com/lukemcguire/urlcanon/urlutil"
)

var (
	vkVideoHandle = regexp.MustCompile(`vk\.com/video/@`)
	vkVideo       = regexp.MustCompile(`vk\.com/video`)
	vkWall        = regexp.MustCompile(`vk\.com/wall`)
	vkMediaQuery  = regexp.MustCompile(`vk\.com/[^?]*\?\w+=(photo|wall)`)
	vkBareSlug    = regexp.MustCompile(`vk\.com/\w+$`)
	vkDottedSlug  = regexp.MustCompile(`vk\.com/[\w.]+$`)
)

// classifyVK walks the vk.com sub-table. Its steps are tried in order.
func classifyVK(ctx context.Context, c *Classifier, raw, link string) result.Result {
	switch {
	case vkVideoHandle.MatchString(link):
		return canonical(raw, urlutil.StripQuery(strings.Replace(link, "/video/@", "/", 1)), result.PlatformVK)
	case vkVideo.MatchString(link):
		// Video pages carry no structured owner link; the uploader is a
		// fixed anchor position in the page layout.
		return c.lookup(ctx, raw, link, result.PlatformVK, anchorExtractor(c.vkAnchorIndex))
	case vkWall.MatchString(link):
		return c.lookup(ctx, raw, link, result.PlatformVK, anchorExtractor(0))
	case vkMediaQuery.MatchString(link):
		return canonical(raw, urlutil.StripQuery(link), result.PlatformVK)
	case vkBareSlug.MatchString(link):
		return c.lookup(ctx, raw, link, result.PlatformVK, extractVKCanonical)
	case vkDottedSlug.MatchString(link):
		return passThrough(result.PlatformVK)(ctx, c, raw, link)
	default:
		return result.NewGarbage(raw, result.PlatformVK, result.ReasonUnsupportedShape)
	}
}
