package scrape

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const liveMarker = "live:"

// LocateTopics scans homepage markup for currently active live-coverage
// entries and returns topic name -> absolute URL. Two detection strategies
// run every cycle because the site's markup inconsistently uses one or the
// other: text nodes containing "live:" with the nearest following anchor, and
// anchors whose own text starts with "LIVE:". Later matches of the same name
// overwrite earlier ones (last wins); the overwrite is logged at debug level
// since a name collision between strategies may hide a topic.
func LocateTopics(markup, baseURL string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse homepage: %w", err)
	}

	topics := map[string]string{}
	add := func(name, href string) {
		name = strings.Join(strings.Fields(name), " ")
		if lower := strings.ToLower(name); strings.HasPrefix(lower, liveMarker) {
			name = strings.TrimSpace(name[len(liveMarker):])
		}
		if name == "" || href == "" {
			return
		}
		abs := absoluteURL(baseURL, href)
		if abs == "" {
			return
		}
		if old, ok := topics[name]; ok && old != abs {
			log.Printf("[DEBUG] topic %q remapped %s -> %s", name, old, abs)
		}
		topics[name] = abs
	}

	// strategy A: any text node mentioning "live:", nearest following anchor
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Type != html.TextNode {
			return
		}
		if !strings.Contains(strings.ToLower(node.Data), liveMarker) {
			return
		}
		a := followingAnchor(s.Parent())
		if a == nil {
			return
		}
		add(strings.TrimSpace(a.Text()), a.AttrOr("href", ""))
	})

	// strategy B: anchors whose own text carries a leading LIVE: label
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		txt := strings.TrimSpace(a.Text())
		if !strings.HasPrefix(strings.ToLower(txt), liveMarker) {
			return
		}
		add(txt, a.AttrOr("href", ""))
	})

	return topics, nil
}

// followingAnchor finds the closest hyperlink at or after the given element
// in document order: the enclosing anchor if the text sits inside one, then
// descendant anchors, then anchors among or under following siblings, walking
// up the tree until the root.
func followingAnchor(s *goquery.Selection) *goquery.Selection {
	if s == nil || s.Length() == 0 {
		return nil
	}
	if a := s.Closest("a[href]"); a.Length() > 0 {
		return a
	}
	if a := s.Find("a[href]").First(); a.Length() > 0 {
		return a
	}
	for cur := s; cur.Length() > 0 && !cur.Is("html"); cur = cur.Parent() {
		sibs := cur.NextAll()
		if a := sibs.Filter("a[href]").First(); a.Length() > 0 {
			return a
		}
		if a := sibs.Find("a[href]").First(); a.Length() > 0 {
			return a
		}
	}
	return nil
}

// absoluteURL resolves href against base and rejects anything that does not
// end up as an absolute http(s) URL.
func absoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(h)
	if abs.Scheme != "http" && abs.Scheme != "https" || abs.Host == "" {
		return ""
	}
	return abs.String()
}
