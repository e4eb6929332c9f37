// Package normalize turns parsed feed items into article records.
package normalize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sym01/htmlsanitizer"

	"github.com/jbellamy/veilleur/internal/feedparse"
	"github.com/jbellamy/veilleur/internal/veilleur"
	"github.com/jbellamy/veilleur/internal/youtube"
)

// wordsPerMinute is the reading-speed baseline for the read_time estimate.
const wordsPerMinute = 200

// Normalizer derives the auxiliary article fields. It is pure apart from
// its clock: every item becomes exactly one article, no failures.
type Normalizer struct {
	now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock pins the clock, for tests.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Article builds the record for an item of the given feed. The (feed_id,
// guid) pair is the dedup key downstream; fields are fixed at insert time.
func (n *Normalizer) Article(item feedparse.Item, feedID string, kind veilleur.FeedKind) veilleur.Article {
	record := veilleur.Article{
		FeedID:      feedID,
		GUID:        item.GUID,
		Title:       item.Title,
		Description: item.Description,
		Content:     sanitizeContent(item.Content),
		PublishedAt: n.publishedAt(item.PubDate),
		ReadTime:    readTime(item.Description),
	}

	if record.Content == "" {
		record.Content = item.Description
	}
	if item.Link != "" {
		link := item.Link
		record.URL = &link
	}
	if img := n.imageURL(item, kind); img != "" {
		record.ImageURL = &img
	}

	return record
}

// readTime estimates minutes at the words-per-minute baseline, floored at
// one even for an empty description.
func readTime(description string) int {
	words := len(strings.Fields(description))

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// publishedAt parses whatever date declaration the feed made; an
// unparseable or absent one becomes the ingestion time, never a rejection.
func (n *Normalizer) publishedAt(pubDate string) time.Time {
	if pubDate == "" {
		return n.now().UTC()
	}

	ts, err := dateparse.ParseAny(pubDate)
	if err != nil {
		slog.Debug("unparseable publish date, substituting ingestion time", "pub_date", pubDate)
		return n.now().UTC()
	}
	return ts.UTC()
}

// imageURL prefers the YouTube-derived thumbnail for video items, falling
// back to whatever image the parser found.
func (n *Normalizer) imageURL(item feedparse.Item, kind veilleur.FeedKind) string {
	if kind == veilleur.FeedKindYouTube && item.Link != "" {
		if id := youtube.VideoID(item.Link); id != "" {
			return youtube.Thumbnail(id)
		}
	}
	return item.Image
}

// sanitizeContent keeps the content's markup but reduced to a safe subset.
func sanitizeContent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	sanitized, err := htmlsanitizer.SanitizeString(raw)
	if err != nil {
		// The sanitizer only fails on unreadable input; fall back to the
		// description path rather than dropping the item.
		return ""
	}
	return strings.TrimSpace(sanitized)
}
