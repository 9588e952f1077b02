package scrape

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/reportwire/livewatch/pkg/domain"
)

// timestampTolerance is how far a post's own timestamp may sit from an
// indexed one and still be considered the same post.
const timestampTolerance = 12 * time.Hour

// resolveStage is one independent permalink strategy; ok=false means fall
// through to the next stage.
type resolveStage func(post domain.RawPost, idx *ArticleIndex, base string) (link string, ok bool)

var resolveStages = []resolveStage{
	explicitFragment,
	copyLink,
	headlineAnchor,
	nearestTimestamp,
}

// Resolve decides the deep-linkable URL for a raw post. Stages run in strict
// order with short-circuit on first success; a stage producing a malformed or
// empty fragment counts as failed. Never errors: the bare page URL is the
// guaranteed terminal fallback.
func Resolve(post domain.RawPost, idx *ArticleIndex, baseURL string) string {
	base := strings.SplitN(baseURL, "#", 2)[0]
	for _, stage := range resolveStages {
		if link, ok := stage(post, idx, base); ok && wellFormed(link) {
			return link
		}
	}
	return base
}

// explicitFragment trusts structured data that already committed to a fragment.
func explicitFragment(post domain.RawPost, _ *ArticleIndex, _ string) (string, bool) {
	if i := strings.Index(post.URL, "#"); i >= 0 && i+1 < len(post.URL) {
		return post.URL, true
	}
	return "", false
}

// copyLink uses the site's own share-button deep link when its label matches
// the post headline.
func copyLink(post domain.RawPost, idx *ArticleIndex, _ string) (string, bool) {
	link, ok := idx.CopyLinks[Normalize(post.Headline)]
	return link, ok && link != ""
}

// headlineAnchor anchors to the DOM element carrying the same headline text.
func headlineAnchor(post domain.RawPost, idx *ArticleIndex, base string) (string, bool) {
	id, ok := idx.Headlines[Normalize(post.Headline)]
	if !ok || id == "" {
		return "", false
	}
	return base + "#" + id, true
}

// nearestTimestamp anchors to the indexed element whose time is closest to
// the post's own timestamp, within tolerance; ties break on smallest
// difference by keeping the first best match.
func nearestTimestamp(post domain.RawPost, idx *ArticleIndex, base string) (string, bool) {
	if post.Timestamp == "" {
		return "", false
	}
	at, err := dateparse.ParseAny(post.Timestamp)
	if err != nil {
		return "", false
	}
	bestID := ""
	bestDiff := timestampTolerance + 1
	for _, e := range idx.Timestamps {
		diff := at.Sub(e.At)
		if diff < 0 {
			diff = -diff
		}
		if diff <= timestampTolerance && diff < bestDiff {
			bestID, bestDiff = e.ElementID, diff
		}
	}
	if bestID == "" {
		return "", false
	}
	return base + "#" + bestID, true
}

// wellFormed rejects URLs with a dangling empty fragment.
func wellFormed(link string) bool {
	if link == "" {
		return false
	}
	if i := strings.Index(link, "#"); i >= 0 && i+1 >= len(link) {
		return false
	}
	return true
}
