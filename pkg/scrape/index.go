package scrape

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// TimestampEntry pairs a parsed post time with the id of the DOM element
// carrying it.
type TimestampEntry struct {
	At        time.Time
	ElementID string
}

// ArticleIndex holds the per-page lookup structures supporting permalink
// resolution. Ephemeral: rebuilt fresh on every page fetch, never persisted.
type ArticleIndex struct {
	// normalized headline text -> element id; specialized live-post elements
	// win over generic article elements on collision
	Headlines map[string]string
	// (time, element id) pairs in document order; drawn from specialized
	// posted-at attributes, or from generic time elements when the page has
	// no specialized ones at all
	Timestamps []TimestampEntry
	// normalized copy-link label -> the site's own canonical deep link
	CopyLinks map[string]string
}

// BuildIndex parses the page's live DOM into the auxiliary lookup structures
// used by the permalink resolver.
func BuildIndex(markup string) (*ArticleIndex, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	idx := &ArticleIndex{
		Headlines: map[string]string{},
		CopyLinks: map[string]string{},
	}

	// generic article elements first, specialized live posts overwrite
	doc.Find("article[id]").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		text := Normalize(s.Find("h1,h2").First().Text())
		if id != "" && text != "" {
			idx.Headlines[text] = id
		}
	})
	doc.Find("div.LiveBlogPost[id]").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		text := Normalize(postHeadline(s))
		if id != "" && text != "" {
			idx.Headlines[text] = id
		}
	})

	idx.Timestamps = timestampEntries(doc)

	doc.Find("bsp-copy-link[data-link]").Each(func(_ int, s *goquery.Selection) {
		link := strings.SplitN(s.AttrOr("data-link", ""), "?", 2)[0]
		label := s.AttrOr("data-title", "")
		if label == "" {
			label = postHeadline(s.Closest("div.LiveBlogPost"))
		}
		if key := Normalize(label); key != "" && link != "" {
			idx.CopyLinks[key] = link
		}
	})

	return idx, nil
}

func postHeadline(s *goquery.Selection) string {
	if h := s.Find("h2.LiveBlogPost-headline").First(); h.Length() > 0 {
		return h.Text()
	}
	return s.Find("h1,h2").First().Text()
}

// timestampEntries prefers specialized posted-at attributes on live-post
// elements; generic time elements are used only when the page carries no
// specialized ones at all (all-or-nothing, not per-entry).
func timestampEntries(doc *goquery.Document) []TimestampEntry {
	var entries []TimestampEntry
	doc.Find("div.LiveBlogPost[id][data-posted-date]").Each(func(_ int, s *goquery.Selection) {
		raw := s.AttrOr("data-posted-date", "")
		at, err := dateparse.ParseAny(raw)
		if err != nil {
			log.Printf("[DEBUG] skip unparseable posted-at %q: %v", raw, err)
			return
		}
		entries = append(entries, TimestampEntry{At: at.UTC(), ElementID: s.AttrOr("id", "")})
	})
	if len(entries) > 0 {
		return entries
	}

	doc.Find("time[datetime]").Each(func(_ int, s *goquery.Selection) {
		raw := s.AttrOr("datetime", "")
		at, err := dateparse.ParseAny(raw)
		if err != nil {
			log.Printf("[DEBUG] skip unparseable time element %q: %v", raw, err)
			return
		}
		id := s.Closest("[id]").AttrOr("id", "")
		if id == "" {
			return
		}
		entries = append(entries, TimestampEntry{At: at.UTC(), ElementID: id})
	})
	return entries
}
