package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbellamy/veilleur/internal/feedparse"
	"github.com/jbellamy/veilleur/internal/veilleur"
)

var frozen = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func frozenClock() time.Time { return frozen }

func TestReadTimeFloor(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    int
	}{
		{
			name:        "empty description still reads one minute",
			description: "",
			expected:    1,
		},
		{
			name:        "short description",
			description: "a handful of words here",
			expected:    1,
		},
		{
			name:        "exactly one minute",
			description: strings.Repeat("word ", 200),
			expected:    1,
		},
		{
			name:        "just over one minute rounds up",
			description: strings.Repeat("word ", 201),
			expected:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewWithClock(frozenClock)
			got := n.Article(feedparse.Item{Title: "t", GUID: "g", Description: tt.description}, "feed-1", veilleur.FeedKindRSSAuto)
			assert.Equal(t, tt.expected, got.ReadTime)
		})
	}
}

func TestPublishedAt(t *testing.T) {
	n := NewWithClock(frozenClock)

	t.Run("rfc822", func(t *testing.T) {
		got := n.Article(feedparse.Item{GUID: "g", PubDate: "Mon, 01 Jan 2024 12:00:00 GMT"}, "f", veilleur.FeedKindRSSAuto)
		assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), got.PublishedAt.UTC())
	})

	t.Run("iso8601", func(t *testing.T) {
		got := n.Article(feedparse.Item{GUID: "g", PubDate: "2024-02-03T04:05:06Z"}, "f", veilleur.FeedKindRSSAuto)
		assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), got.PublishedAt.UTC())
	})

	t.Run("garbage falls back to ingestion time", func(t *testing.T) {
		got := n.Article(feedparse.Item{GUID: "g", PubDate: "somewhen last tuesday"}, "f", veilleur.FeedKindRSSAuto)
		assert.Equal(t, frozen, got.PublishedAt)
	})

	t.Run("absent falls back to ingestion time", func(t *testing.T) {
		got := n.Article(feedparse.Item{GUID: "g"}, "f", veilleur.FeedKindRSSAuto)
		assert.Equal(t, frozen, got.PublishedAt)
	})
}

func TestYouTubeThumbnail(t *testing.T) {
	n := NewWithClock(frozenClock)

	got := n.Article(feedparse.Item{
		Title: "A video",
		GUID:  "yt:video:abc123",
		Link:  "https://www.youtube.com/watch?v=abc123",
	}, "f", veilleur.FeedKindYouTube)

	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://img.youtube.com/vi/abc123/hqdefault.jpg", *got.ImageURL)
}

func TestImageFallsBackToParsedField(t *testing.T) {
	n := NewWithClock(frozenClock)

	got := n.Article(feedparse.Item{
		Title: "Post",
		GUID:  "g",
		Link:  "https://example.com/post",
		Image: "https://example.com/cover.jpg",
	}, "f", veilleur.FeedKindRSSAuto)

	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://example.com/cover.jpg", *got.ImageURL)
}

func TestContentFallsBackToDescription(t *testing.T) {
	n := NewWithClock(frozenClock)

	got := n.Article(feedparse.Item{
		Title:       "Post",
		GUID:        "g",
		Description: "plain words",
	}, "f", veilleur.FeedKindRSSAuto)

	assert.Equal(t, "plain words", got.Content)
}

func TestContentKeepsSafeMarkup(t *testing.T) {
	n := NewWithClock(frozenClock)

	got := n.Article(feedparse.Item{
		Title:   "Post",
		GUID:    "g",
		Content: `<p>hello <script>alert(1)</script>world</p>`,
	}, "f", veilleur.FeedKindRSSAuto)

	assert.Contains(t, got.Content, "<p>")
	assert.NotContains(t, got.Content, "<script>")
}

func TestNoLinkMeansNoURL(t *testing.T) {
	n := NewWithClock(frozenClock)

	got := n.Article(feedparse.Item{Title: "Post", GUID: "g"}, "f", veilleur.FeedKindRSSAuto)
	assert.Nil(t, got.URL)
}
