package feedparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test RSS Feed</title>
    <description>A test RSS feed</description>
    <link>https://example.com</link>
    <item>
      <title>RSS Post One</title>
      <link>https://example.com/post-1</link>
      <guid>rss-guid-1</guid>
      <description>First RSS post description</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>RSS Post Two</title>
      <link>https://example.com/post-2</link>
      <guid>rss-guid-2</guid>
      <description><![CDATA[<p>Second post with <b>markup</b></p>]]></description>
      <pubDate>Tue, 02 Jan 2024 12:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <subtitle>A test Atom feed</subtitle>
  <link href="https://example.com" rel="alternate"/>
  <entry>
    <title>Atom Post One</title>
    <id>atom-id-1</id>
    <link href="https://example.com/atom-1" rel="alternate"/>
    <summary>First Atom post summary</summary>
    <updated>2024-01-01T12:00:00Z</updated>
  </entry>
  <entry>
    <title>Atom Post Two</title>
    <id>atom-id-2</id>
    <link href="https://example.com/atom-2" rel="alternate"/>
    <content>Second Atom post content body</content>
    <updated>2024-01-02T12:00:00Z</updated>
  </entry>
</feed>`

func TestParse_RSS(t *testing.T) {
	items, meta, err := Parse(testRSSFeed)
	require.NoError(t, err)

	assert.Equal(t, "Test RSS Feed", meta.Title)
	assert.Equal(t, "A test RSS feed", meta.Description)

	require.Len(t, items, 2)

	assert.Equal(t, "RSS Post One", items[0].Title)
	assert.Equal(t, "rss-guid-1", items[0].GUID)
	assert.Equal(t, "https://example.com/post-1", items[0].Link)
	assert.Equal(t, "First RSS post description", items[0].Description)
	assert.Equal(t, "Mon, 01 Jan 2024 12:00:00 GMT", items[0].PubDate)

	// CDATA unwrapped and markup stripped
	assert.Equal(t, "RSS Post Two", items[1].Title)
	assert.Equal(t, "Second post with markup", items[1].Description)
}

func TestParse_Atom(t *testing.T) {
	items, meta, err := Parse(testAtomFeed)
	require.NoError(t, err)

	assert.Equal(t, "Test Atom Feed", meta.Title)
	assert.Equal(t, "A test Atom feed", meta.Description)

	require.Len(t, items, 2)

	// First entry has a summary
	assert.Equal(t, "Atom Post One", items[0].Title)
	assert.Equal(t, "atom-id-1", items[0].GUID)
	assert.Equal(t, "https://example.com/atom-1", items[0].Link)
	assert.Equal(t, "First Atom post summary", items[0].Description)
	assert.Equal(t, "2024-01-01T12:00:00Z", items[0].PubDate)

	// Second entry has content instead of summary
	assert.Equal(t, "Atom Post Two", items[1].Title)
	assert.Equal(t, "Second Atom post content body", items[1].Description)
}

func TestParse_DiscardsNoiseBlocks(t *testing.T) {
	feed := `<rss version="2.0"><channel><title>Noisy</title>`
	for i := 0; i < 5; i++ {
		feed += `<item><title>Post</title><guid>guid-` + string(rune('a'+i)) + `</guid></item>`
	}
	// Neither a title nor any identity: dropped silently.
	feed += `<item><description>just noise</description></item>`
	feed += `</channel></rss>`

	items, _, err := Parse(feed)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestParse_GUIDFallsBackToLink(t *testing.T) {
	const feed = `<rss version="2.0"><channel>
	  <item>
	    <title>No guid here</title>
	    <link>https://example.com/only-link</link>
	  </item>
	</channel></rss>`

	items, _, err := Parse(feed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/only-link", items[0].GUID)
}

func TestParse_ImageFromEnclosure(t *testing.T) {
	const feed = `<rss version="2.0"><channel>
	  <item>
	    <title>With enclosure</title>
	    <guid>g1</guid>
	    <enclosure url="https://example.com/cover.png" type="image/png" length="1234"/>
	  </item>
	  <item>
	    <title>Audio enclosure is not an image</title>
	    <guid>g2</guid>
	    <enclosure url="https://example.com/episode.mp3" type="audio/mpeg"/>
	  </item>
	</channel></rss>`

	items, _, err := Parse(feed)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/cover.png", items[0].Image)
	assert.Empty(t, items[1].Image)
}

func TestParse_ImageFromDescriptionHTML(t *testing.T) {
	const feed = `<rss version="2.0"><channel>
	  <item>
	    <title>Inline image</title>
	    <guid>g1</guid>
	    <description><![CDATA[<p>Look: <img src="https://example.com/photo.jpg?w=600" alt=""/> nice</p>]]></description>
	  </item>
	</channel></rss>`

	items, _, err := Parse(feed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/photo.jpg?w=600", items[0].Image)
	assert.Equal(t, "Look: nice", items[0].Description)
}

func TestParse_PreferenceOrders(t *testing.T) {
	const feed = `<rss version="2.0"><channel>
	  <item>
	    <title>All the fields</title>
	    <guid>the-guid</guid>
	    <id>the-id</id>
	    <description>the description</description>
	    <summary>the summary</summary>
	    <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
	    <updated>2024-06-01T00:00:00Z</updated>
	  </item>
	</channel></rss>`

	items, _, err := Parse(feed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "the-guid", items[0].GUID)
	assert.Equal(t, "the description", items[0].Description)
	assert.Equal(t, "Mon, 01 Jan 2024 12:00:00 GMT", items[0].PubDate)
}

func TestParse_NoItems(t *testing.T) {
	_, _, err := Parse(`<html><body>not a feed at all</body></html>`)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestParse_EmptyDocument(t *testing.T) {
	items, _, err := Parse("")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestParse_TruncatedDocumentKeepsCompleteItems(t *testing.T) {
	const feed = `<rss version="2.0"><channel>
	  <item><title>Complete</title><guid>g1</guid></item>
	  <item><title>Cut off mid-`

	items, _, err := Parse(feed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Complete", items[0].Title)
}

func TestParse_MetaIgnoresNestedTitles(t *testing.T) {
	const feed = `<rss version="2.0"><channel>
<image><title>Site Logo</title><url>https://example.com/logo.png</url></image>
<title>The Real Title</title>
<description>The real description</description>
<item><title>Post</title><guid>g-1</guid></item>
</channel></rss>`

	items, meta, err := Parse(feed)
	require.NoError(t, err)

	assert.Equal(t, "The Real Title", meta.Title)
	assert.Equal(t, "The real description", meta.Description)
	require.Len(t, items, 1)
}
