package notify

import (
	"log"
	"strings"
	"time"
	_ "time/tzdata" // wall-clock formatting must work in scratch containers
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/reportwire/livewatch/pkg/scrape"
)

// maxMessageLen is a conservative ceiling matching the Telegram text limit.
const maxMessageLen = 4096

var paris = mustLocation("Europe/Paris")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[WARN] cannot load %s location, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// FormatMessage renders the plain-text notification for one post:
//
//	<title>
//
//	📰 <topic> - <MM/DD/YY HH:MM> CET
//
//	<link>
//	<hashtags, when any>
//
// The title is stripped of markup; the timestamp is shown as Paris wall-clock
// time, falling back to the current time when it does not parse. The whole
// message fits the ceiling, trimming the title first.
func FormatMessage(topic, title, link, tsISO string, tags []string) string {
	title = scrape.StripTags(title)

	at, err := dateparse.ParseAny(tsISO)
	if err != nil {
		at = time.Now().UTC()
	}
	when := at.In(paris).Format("01/02/06 15:04")

	tail := "\n\n📰 " + topic + " - " + when + " CET\n\n" + link
	if len(tags) > 0 {
		tail += "\n" + strings.Join(tags, " ")
	}

	if budget := maxMessageLen - utf8.RuneCountInString(tail); utf8.RuneCountInString(title) > budget {
		title = truncate(title, budget)
	}
	return title + tail
}

func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
