package classifier

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lukemcguire/urlcanon/fetcher"
	"github.com/lukemcguire/urlcanon/urlutil"
)

// An extractor pulls a scheme-less canonical link out of a fetched page.
// It returns "" when the page does not carry the expected element.
type extractor func(page *fetcher.Page) (string, error)

var (
	youtubeHandlePattern = regexp.MustCompile(`"webCommandMetadata":\{"url":"/([^"/]+)/featured"`)
	odyseeOGPattern      = regexp.MustCompile(`"og:url" content="https?://(?:www\.)?([.@\-_/a-zA-Z0-9]+)`)
	bitchuteSlugPattern  = regexp.MustCompile(`channel/([-_a-zA-Z0-9]+)/"`)
	gettrTitlePattern    = regexp.MustCompile(`^(.*?) on GETTR`)
	vkCanonicalPattern   = regexp.MustCompile(`vk\.com/[-_a-zA-Z0-9]+`)
)

func parseDocument(page *fetcher.Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	return doc, nil
}

// extractYouTubeHandle reads the channel handle from the page's embedded
// navigation metadata.
func extractYouTubeHandle(page *fetcher.Page) (string, error) {
	m := youtubeHandlePattern.FindSubmatch(page.Body)
	if m == nil {
		return "", nil
	}
	return "youtube.com/" + string(m[1]), nil
}

// extractOdyseeChannel reads og:url and keeps the channel part, dropping the
// claim suffix after ':'.
func extractOdyseeChannel(page *fetcher.Page) (string, error) {
	var link string
	if m := odyseeOGPattern.FindSubmatch(page.Body); m != nil {
		link = string(m[1])
	} else {
		doc, err := parseDocument(page)
		if err != nil {
			return "", err
		}
		content, _ := doc.Find(`meta[property="og:url"]`).First().Attr("content")
		link = urlutil.StripScheme(strings.TrimSpace(content))
	}

	link, _, _ = strings.Cut(link, ":")
	if !strings.HasPrefix(link, "odysee.com/@") {
		return "", nil
	}
	return link, nil
}

func extractBitchuteChannel(page *fetcher.Page) (string, error) {
	m := bitchuteSlugPattern.FindSubmatch(page.Body)
	if m == nil {
		return "", nil
	}
	return "bitchute.com/" + string(m[1]), nil
}

// extractRumbleChannel follows the "by" link under a video to its channel.
func extractRumbleChannel(page *fetcher.Page) (string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}
	href, ok := doc.Find("a.media-by--a").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", nil
	}
	return onHost("rumble.com", href)
}

func extractGettrUser(page *fetcher.Page) (string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	m := gettrTitlePattern.FindStringSubmatch(title)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", nil
	}
	return "gettr.com/user/" + strings.TrimSpace(m[1]), nil
}

// extractWatchAuthor finds the uploader link of a YouTube watch or live page.
func extractWatchAuthor(page *fetcher.Page) (string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}
	var href string
	doc.Find(`[itemprop="author"] link[href], [itemprop="author"] a[href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := strings.TrimSpace(s.AttrOr("href", ""))
		if urlutil.IsHTTPScheme(candidate) {
			href = candidate
			return false
		}
		return true
	})
	if href == "" {
		return "", nil
	}
	return urlutil.StripScheme(href), nil
}

// extractFacebookOwner reads the page's x-default alternate link and cuts it
// back to the owning page.
func extractFacebookOwner(page *fetcher.Page) (string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}
	href := strings.TrimSpace(doc.Find(`link[hreflang="x-default"]`).First().AttrOr("href", ""))
	if href == "" {
		return "", nil
	}
	link := urlutil.StripScheme(href)
	if idx := strings.Index(link, "/videos"); idx >= 0 {
		link = link[:idx]
	}
	return link, nil
}

func extractVKCanonical(page *fetcher.Page) (string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return "", err
	}
	href := doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")
	return vkCanonicalPattern.FindString(href), nil
}

// anchorExtractor returns an extractor yielding the href of the n-th (zero
// based) anchor on a vk.com page, resolved against vk.com.
func anchorExtractor(n int) extractor {
	return func(page *fetcher.Page) (string, error) {
		href, err := nthAnchorHref(bytes.NewReader(page.Body), n)
		if err != nil || href == "" {
			return "", err
		}
		return onHost("vk.com", href)
	}
}

// onHost resolves href against host and drops links that lead elsewhere.
func onHost(host, href string) (string, error) {
	link, err := urlutil.ResolveOnHost(host, href)
	if err != nil {
		return "", err
	}
	if !urlutil.IsSameDomain(link, host) {
		return "", nil
	}
	return link, nil
}

// nthAnchorHref walks the token stream and returns the href of the n-th <a>
// start tag in document order. Anchors without an href still count toward n.
func nthAnchorHref(body io.Reader, n int) (string, error) {
	tokenizer := html.NewTokenizer(body)
	seen := 0

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return "", fmt.Errorf("tokenize: %w", err)
			}
			return "", nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			if seen < n {
				seen++
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					return strings.TrimSpace(attr.Val), nil
				}
			}
			return "", nil
		}
	}
}
