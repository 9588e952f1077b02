package scrape

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var stripPolicy = bluemonday.StrictPolicy()

// curly quotes and their low/high variants map to plain ascii quotes
var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
)

// Normalize canonicalizes markup-derived text for comparison: tags stripped,
// entities decoded, NFKC folding, curly quotes straightened, lowercased,
// consecutive whitespace collapsed to single spaces, trimmed. Idempotent, so
// the index builder and the deduplicator can apply it independently and still
// compare apples to apples.
func Normalize(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = norm.NFKC.String(s)
	s = quoteReplacer.Replace(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// StripTags removes markup from text but keeps its case and punctuation, for
// user-facing strings like message titles.
func StripTags(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
