// Package youtube derives the RSS feed URL behind a YouTube channel URL.
//
// Channel IDs are the only identifier the feeds/videos.xml endpoint accepts.
// URLs carrying one resolve locally; handle and custom-name forms require
// scraping the rendered channel page, which is slower and subject to
// upstream markup changes, so callers must tolerate partial failure.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jbellamy/veilleur/internal/fetch"
)

// ErrRSSLinkNotFound means the channel page carried no RSS alternate link.
var ErrRSSLinkNotFound = errors.New("rss feed link not found on channel page")

// Resolution is the outcome of resolving a channel URL.
type Resolution struct {
	RSSURL      string `json:"rss_url"`
	ChannelName string `json:"channel_name"`

	// NameGuessed is set when ChannelName was derived from the URL handle
	// rather than the channel page, and may differ from the real display
	// name.
	NameGuessed bool `json:"name_guessed"`
}

var (
	channelIDPattern = regexp.MustCompile(`youtube\.com/channel/([a-zA-Z0-9_-]+)`)
	handlePattern    = regexp.MustCompile(`youtube\.com/(?:@|c/|user/)([a-zA-Z0-9_.-]+)`)
)

// Fetcher is the slice of the document fetcher the resolver needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Document, error)
}

type Resolver struct {
	fetcher Fetcher

	// Slow-path scrapes are expensive; remember what we have resolved.
	cache *lru.Cache[string, Resolution]
}

func NewResolver(fetcher Fetcher) *Resolver {
	cache, _ := lru.New[string, Resolution](256)

	return &Resolver{
		fetcher: fetcher,
		cache:   cache,
	}
}

// Resolve turns a channel URL in any supported form into its RSS feed URL
// and a best-effort display name.
//
// Direct feed URLs and /channel/UC… forms resolve without any network I/O.
func (r *Resolver) Resolve(ctx context.Context, channelURL string) (Resolution, error) {
	channelURL = strings.TrimSpace(channelURL)
	if !strings.Contains(channelURL, "youtube.com") {
		return Resolution{}, fmt.Errorf("not a youtube channel url: %q", channelURL)
	}

	// Already the feed itself.
	if strings.Contains(channelURL, "feeds/videos.xml") {
		return Resolution{RSSURL: channelURL}, nil
	}

	// Channel IDs are authoritative; synthesize the feed URL directly.
	if m := channelIDPattern.FindStringSubmatch(channelURL); m != nil && strings.HasPrefix(m[1], "UC") {
		return Resolution{
			RSSURL: "https://www.youtube.com/feeds/videos.xml?channel_id=" + m[1],
		}, nil
	}

	if res, ok := r.cache.Get(channelURL); ok {
		return res, nil
	}

	res, err := r.scrape(ctx, channelURL)
	if err != nil {
		// Best-effort name so registration can proceed with status pending.
		if handle := handleFromURL(channelURL); handle != "" {
			return Resolution{ChannelName: handle, NameGuessed: true}, err
		}
		return Resolution{}, err
	}

	r.cache.Add(channelURL, res)

	return res, nil
}

// scrape fetches the channel page and pulls the RSS alternate link plus the
// page title out of its markup.
func (r *Resolver) scrape(ctx context.Context, channelURL string) (Resolution, error) {
	doc, err := r.fetcher.Fetch(ctx, channelURL)
	if err != nil {
		return Resolution{}, fmt.Errorf("error fetching channel page: %w", err)
	}

	page, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Body))
	if err != nil {
		return Resolution{}, fmt.Errorf("error parsing channel page: %w", err)
	}

	rssURL, ok := page.Find(`link[rel="alternate"][type="application/rss+xml"]`).Attr("href")
	if !ok || rssURL == "" {
		return Resolution{}, ErrRSSLinkNotFound
	}

	name := strings.TrimSpace(page.Find("title").First().Text())
	name = strings.TrimSuffix(name, " - YouTube")
	if name == "YouTube" {
		name = ""
	}

	res := Resolution{
		RSSURL:      rssURL,
		ChannelName: name,
	}
	if name == "" {
		if handle := handleFromURL(channelURL); handle != "" {
			res.ChannelName = handle
			res.NameGuessed = true
		}
	}

	return res, nil
}

// handleFromURL extracts the literal handle or custom-name path segment.
// It is not a channel ID and only serves as a display-name guess.
func handleFromURL(channelURL string) string {
	if m := handlePattern.FindStringSubmatch(channelURL); m != nil {
		return m[1]
	}
	return ""
}
