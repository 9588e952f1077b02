package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Storm hits coast", "storm hits coast"},
		{"whitespace collapsed", "  Storm \t hits\n\ncoast ", "storm hits coast"},
		{"curly quotes", "Trump’s “plan”", `trump's "plan"`},
		{"html tags stripped", "<b>Breaking</b> news", "breaking news"},
		{"entities decoded", "war &amp; peace", "war & peace"},
		{"nfkc folding", "Ｈello", "hello"}, // fullwidth H
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Storm hits coast",
		"  <i>Live:</i> markets &amp; economy “update”  ",
		"ＬIVE: some—thing",
		"a < b && c > d",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "AP poll tracker: Trump's disapproval",
		StripTags("<b>AP poll tracker: Trump's disapproval</b>"))
	assert.Equal(t, "war & peace", StripTags("war &amp; peace"))
}
