package scrape

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/reportwire/livewatch/pkg/domain"
)

// schema shapes are tried in fixed priority order; the first shape that
// yields at least one parseable entry wins and blocks are never merged, so a
// page carrying redundant structured-data blocks is not double-counted.
var postListKeys = []string{"blogPosts", "liveBlogUpdate", "updates"}

// graph entry types recognized as live-blog posts
var postTypes = map[string]bool{
	"LiveBlogPosting": true,
	"BlogPosting":     true,
}

// ExtractPosts parses a live-blog page's embedded structured data into raw
// post records, in source document order. Individual malformed entries and
// undecodable blocks are skipped with a diagnostic; missing id, url or
// timestamp on an entry is tolerated, only the headline is required.
func ExtractPosts(markup, baseURL string) ([]domain.RawPost, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var roots []any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var root any
		if err := json.Unmarshal([]byte(s.Text()), &root); err != nil {
			log.Printf("[DEBUG] skip undecodable structured-data block: %v", err)
			return
		}
		roots = append(roots, root)
	})

	for _, key := range postListKeys {
		var posts []domain.RawPost
		for _, root := range roots {
			posts = append(posts, postsUnderKey(root, key, baseURL)...)
		}
		if len(posts) > 0 {
			return posts, nil
		}
	}

	// nested graph array with post-like entry types
	var posts []domain.RawPost
	for _, root := range roots {
		for _, obj := range objects(root) {
			graph, ok := obj["@graph"].([]any)
			if !ok {
				continue
			}
			for _, e := range graph {
				entry, ok := e.(map[string]any)
				if !ok || !isPostType(entry["@type"]) {
					continue
				}
				if p, err := parseEntry(entry, baseURL); err == nil {
					posts = append(posts, p)
				} else {
					log.Printf("[DEBUG] skip graph entry: %v", err)
				}
			}
		}
	}
	return posts, nil
}

// postsUnderKey collects entries of the list field named key from a decoded
// block, which may be a single object or an array of objects.
func postsUnderKey(root any, key, baseURL string) []domain.RawPost {
	var posts []domain.RawPost
	for _, obj := range objects(root) {
		list, ok := obj[key].([]any)
		if !ok {
			continue
		}
		for _, e := range list {
			entry, ok := e.(map[string]any)
			if !ok {
				log.Printf("[DEBUG] skip non-object %s entry", key)
				continue
			}
			p, err := parseEntry(entry, baseURL)
			if err != nil {
				log.Printf("[DEBUG] skip %s entry: %v", key, err)
				continue
			}
			posts = append(posts, p)
		}
	}
	return posts
}

func objects(root any) []map[string]any {
	switch v := root.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func parseEntry(entry map[string]any, baseURL string) (domain.RawPost, error) {
	headline := stringField(entry, "headline", "name")
	if headline == "" {
		return domain.RawPost{}, fmt.Errorf("entry has no headline")
	}
	p := domain.RawPost{
		ID:        stringField(entry, "@id", "id"),
		Headline:  headline,
		Timestamp: stringField(entry, "datePublished", "dateModified", "dateCreated"),
	}
	if u := stringField(entry, "url"); u != "" {
		p.URL = absoluteURL(baseURL, u)
	}
	return p, nil
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func isPostType(v any) bool {
	switch t := v.(type) {
	case string:
		return postTypes[t]
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && postTypes[s] {
				return true
			}
		}
	}
	return false
}
