package notify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TopicHashtags derives a single deterministic CamelCase hashtag from a
// topic label: "LIVE: Israel-Gaza updates" -> ["#IsraelGazaUpdates"]. The
// leading LIVE: marker and the wire-service prefix are dropped; anything
// non-alphanumeric separates tokens. Empty when nothing usable remains.
func TopicHashtags(topic string) []string {
	s := norm.NFKC.String(strings.TrimSpace(topic))
	if len(s) >= len("live:") && strings.EqualFold(s[:len("live:")], "live:") {
		s = s[len("live:"):]
	}

	var tokens []string
	for _, tok := range splitAlnum(s) {
		if strings.EqualFold(tok, "ap") {
			continue
		}
		tokens = append(tokens, capitalize(tok))
	}
	if len(tokens) == 0 {
		return nil
	}
	return []string{"#" + strings.Join(tokens, "")}
}

func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) || r > unicode.MaxASCII
	})
}

func capitalize(tok string) string {
	return strings.ToUpper(tok[:1]) + tok[1:]
}
