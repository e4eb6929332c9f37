// Package feedparse extracts normalized item records from RSS 2.0 and Atom
// feed documents.
//
// There is deliberately a single implementation: a lenient encoding/xml
// token walk. Malformed individual blocks are expected and never fail the
// whole document; extraction is best-effort per block.
package feedparse

import (
	"encoding/xml"
	"errors"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"
)

// ErrNoItems is returned for a non-empty document without a single
// recognizable <item> or <entry> element.
var ErrNoItems = errors.New("no recognizable feed items in document")

type (
	// Item is one extracted feed entry. Title and Description are plain
	// text; Content keeps the raw markup for later sanitization.
	Item struct {
		Title       string
		Description string
		Content     string
		Link        string
		GUID        string
		PubDate     string
		Image       string
	}

	// Meta is the feed-level metadata used to name a registered feed.
	Meta struct {
		Title       string
		Description string
	}
)

var stripPolicy = bluemonday.StrictPolicy()

// plain removes all markup from s and decodes HTML entities, leaving text
// safe for plain rendering.
func plain(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	// Stripped tags leave runs of whitespace behind.
	return strings.Join(strings.Fields(s), " ")
}

// Parse walks rawXML and returns its items in document order, plus the
// feed-level metadata. A block yielding neither title nor guid is dropped
// silently. The only document-level failure is a non-empty document with no
// item/entry elements at all.
func Parse(rawXML string) ([]Item, Meta, error) {
	d := xml.NewDecoder(strings.NewReader(rawXML))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var (
		items   []Item
		meta    Meta
		sawItem bool
		// Open elements above the current token, so feed-level metadata is
		// only taken from direct children of <channel> or <feed>. A nested
		// <image><title> must not claim the feed title.
		open []string
	)

	for {
		tok, err := d.Token()
		if err != nil {
			// io.EOF, or a syntax error too deep for lenient mode: partial
			// extraction is the norm, keep whatever was collected.
			break
		}

		switch tok := tok.(type) {
		case xml.EndElement:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			continue
		case xml.StartElement:
			atFeedLevel := len(open) > 0 &&
				(open[len(open)-1] == "channel" || open[len(open)-1] == "feed")

			switch strings.ToLower(tok.Name.Local) {
			case "item", "entry":
				sawItem = true
				item, keep := parseBlock(d, tok)
				if keep {
					items = append(items, item)
				}
			case "title":
				if atFeedLevel && meta.Title == "" {
					meta.Title = plain(collectText(d, tok))
					continue
				}
				open = append(open, "title")
			case "description", "subtitle":
				if atFeedLevel && meta.Description == "" {
					meta.Description = plain(collectText(d, tok))
					continue
				}
				open = append(open, strings.ToLower(tok.Name.Local))
			default:
				open = append(open, strings.ToLower(tok.Name.Local))
			}
		}
	}

	if !sawItem && strings.TrimSpace(rawXML) != "" {
		return nil, Meta{}, ErrNoItems
	}

	return items, meta, nil
}

// block accumulates raw field candidates while walking one item/entry.
type block struct {
	title       string
	description string
	summary     string
	content     string
	linkText    string
	linkHref    string
	pubDate     string
	published   string
	updated     string
	guid        string
	id          string
	enclosure   string
}

// parseBlock consumes tokens until the end of the item/entry element and
// resolves the extraction preferences. keep is false for noise blocks.
func parseBlock(d *xml.Decoder, start xml.StartElement) (Item, bool) {
	var b block

	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			// The block never closed; whatever it held is torn off the end
			// of the document and not trustworthy.
			return Item{}, false
		}

		switch tok := tok.(type) {
		case xml.EndElement:
			depth--
		case xml.StartElement:
			if depth > 1 {
				depth++
				continue
			}

			switch strings.ToLower(tok.Name.Local) {
			case "link":
				if b.linkHref == "" {
					b.linkHref = linkHref(tok)
				}
				text := strings.TrimSpace(collectText(d, tok))
				if b.linkText == "" {
					b.linkText = text
				}
			case "enclosure":
				if b.enclosure == "" {
					b.enclosure = enclosureImage(tok)
				}
				// Enclosures are usually self-closing; AutoClose does not
				// cover them, so consume until the matching end.
				skipElement(d)
			case "title":
				setFirst(&b.title, collectText(d, tok))
			case "description":
				setFirst(&b.description, collectText(d, tok))
			case "summary":
				setFirst(&b.summary, collectText(d, tok))
			case "content", "encoded":
				// <content> in Atom, <content:encoded> in RSS extensions.
				setFirst(&b.content, collectText(d, tok))
			case "pubdate":
				setFirst(&b.pubDate, collectText(d, tok))
			case "published":
				setFirst(&b.published, collectText(d, tok))
			case "updated":
				setFirst(&b.updated, collectText(d, tok))
			case "guid":
				setFirst(&b.guid, collectText(d, tok))
			case "id":
				setFirst(&b.id, collectText(d, tok))
			default:
				depth++
			}
		}
	}

	return b.resolve()
}

// resolve applies the extraction preference orders.
func (b block) resolve() (Item, bool) {
	rawDesc := firstNonEmpty(b.description, b.summary, b.content)

	link := b.linkText
	if link == "" {
		link = b.linkHref
	}

	guid := firstNonEmpty(b.guid, b.id, link)
	title := plain(b.title)

	// A block with neither a title nor any identity is noise.
	if title == "" && guid == "" {
		return Item{}, false
	}

	image := b.enclosure
	if image == "" {
		image = firstImageSrc(rawDesc)
	}

	return Item{
		Title:       title,
		Description: plain(rawDesc),
		Content:     strings.TrimSpace(b.content),
		Link:        link,
		GUID:        guid,
		PubDate:     strings.TrimSpace(firstNonEmpty(b.pubDate, b.published, b.updated)),
		Image:       image,
	}, true
}

func setFirst(dst *string, val string) {
	if *dst == "" {
		*dst = strings.TrimSpace(val)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// collectText reads until the end of the started element and concatenates
// its character data, ignoring any nested markup.
func collectText(d *xml.Decoder, start xml.StartElement) string {
	var sb strings.Builder

	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			break
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(tok)
		}
	}

	return sb.String()
}

// skipElement consumes tokens until the started element closes.
func skipElement(d *xml.Decoder) {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
}

// linkHref pulls the href attribute off an Atom-style <link> element,
// preferring rel="alternate" (or no rel at all).
func linkHref(el xml.StartElement) string {
	var href, rel string
	for _, attr := range el.Attr {
		switch strings.ToLower(attr.Name.Local) {
		case "href":
			href = attr.Value
		case "rel":
			rel = attr.Value
		}
	}
	if rel != "" && rel != "alternate" {
		return ""
	}
	return href
}

// enclosureImage returns the enclosure url when its declared MIME type is
// an image.
func enclosureImage(el xml.StartElement) string {
	var url, typ string
	for _, attr := range el.Attr {
		switch strings.ToLower(attr.Name.Local) {
		case "url":
			url = attr.Value
		case "type":
			typ = attr.Value
		}
	}
	if !strings.HasPrefix(strings.ToLower(typ), "image/") {
		return ""
	}
	return url
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// firstImageSrc finds the first <img src> with a known image extension
// inside a blob of description HTML.
func firstImageSrc(rawHTML string) string {
	if !strings.Contains(rawHTML, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if hasImageExt(src) {
			found = src
			return false
		}
		return true
	})

	return found
}

func hasImageExt(src string) bool {
	path := strings.ToLower(src)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range imageExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
