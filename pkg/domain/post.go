package domain

// Topic is a live coverage entry discovered on the homepage. Topics are
// rediscovered every cycle and never persisted; identity is the
// whitespace/case-normalized name.
type Topic struct {
	Name string
	URL  string
}

// RawPost is a single entry pulled from a page's embedded structured data.
// Optional fields are empty strings when the schema variant did not carry
// them; only Headline is guaranteed.
type RawPost struct {
	ID        string
	Headline  string
	URL       string
	Timestamp string // ISO-8601 as found in the source
}

// ResolvedPost is the final output unit of the pipeline. Permalink is either
// the page URL with a non-empty fragment or the bare page URL.
type ResolvedPost struct {
	ID        string
	Topic     string
	Title     string
	Permalink string
	Timestamp string
}
