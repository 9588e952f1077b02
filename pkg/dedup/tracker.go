package dedup

import (
	"context"
	"log"

	"github.com/hbollon/go-edlib"

	"github.com/reportwire/livewatch/pkg/domain"
	"github.com/reportwire/livewatch/pkg/scrape"
)

const (
	// DefaultThreshold is the similarity ratio at or above which a title
	// counts as a near-duplicate (inclusive boundary).
	DefaultThreshold = 0.8
	// DefaultHistorySize bounds the per-topic window of remembered titles.
	DefaultHistorySize = 20
)

// SemanticJudge is an optional second-stage check consulted only when the
// ratio test finds no match. Implementations must fail open: an outage means
// "not a duplicate".
type SemanticJudge interface {
	SameStory(ctx context.Context, candidate string, recent []string) (bool, error)
}

// Tracker owns the process-wide dedup state: exact identity sets for post ids
// and permalinks, plus a FIFO-bounded per-topic history of normalized titles
// for near-duplicate detection. Single-writer: only the pipeline orchestrator
// calls the mutating methods.
type Tracker struct {
	state       *domain.DedupState
	threshold   float64
	historySize int
	judge       SemanticJudge
}

// NewTracker wraps the given state; zero threshold/historySize pick the
// defaults. judge may be nil to disable the semantic fallback.
func NewTracker(state *domain.DedupState, threshold float64, historySize int, judge SemanticJudge) *Tracker {
	if state == nil {
		state = domain.NewDedupState()
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if historySize == 0 {
		historySize = DefaultHistorySize
	}
	return &Tracker{state: state, threshold: threshold, historySize: historySize, judge: judge}
}

// SeenID reports whether the post id was already delivered. An empty id is
// never "seen": posts without an id skip the exact-identity check entirely
// and rely on the permalink set and the similarity window.
func (t *Tracker) SeenID(id string) bool {
	if id == "" {
		return false
	}
	_, ok := t.state.SentPostIDs[id]
	return ok
}

// SeenLink reports whether the permalink was already delivered.
func (t *Tracker) SeenLink(link string) bool {
	_, ok := t.state.SentLinks[link]
	return ok
}

// RecordSent marks a delivered post's identities. Empty values are ignored.
func (t *Tracker) RecordSent(id, link string) {
	if id != "" {
		t.state.SentPostIDs[id] = struct{}{}
	}
	if link != "" {
		t.state.SentLinks[link] = struct{}{}
	}
}

// IsDuplicate checks the candidate title against the up-to-K most recently
// remembered titles for the topic using an LCS-based similarity ratio; a
// ratio at or above the threshold against any of them counts as duplicate.
// History is strictly per topic, no cross-topic suppression. When the ratio
// test finds no match and a semantic judge is configured, it gets a second
// look at rewordings the ratio cannot catch.
func (t *Tracker) IsDuplicate(ctx context.Context, topic, title string) bool {
	recent := t.state.RecentTitles[topicKey(topic)]
	if len(recent) == 0 {
		return false
	}

	cand := scrape.Normalize(title)
	for _, prev := range recent {
		ratio, err := edlib.StringsSimilarity(cand, prev, edlib.Lcs)
		if err != nil {
			log.Printf("[DEBUG] similarity check failed for %q: %v", title, err)
			continue
		}
		if float64(ratio) >= t.threshold {
			return true
		}
	}

	if t.judge != nil {
		same, err := t.judge.SameStory(ctx, cand, recent)
		if err != nil {
			log.Printf("[WARN] semantic duplicate check failed, passing post through: %v", err)
			return false
		}
		return same
	}
	return false
}

// Remember appends the normalized title to the topic's history, evicting the
// oldest entry once the window exceeds its bound.
func (t *Tracker) Remember(topic, title string) {
	key := topicKey(topic)
	titles := append(t.state.RecentTitles[key], scrape.Normalize(title))
	if len(titles) > t.historySize {
		titles = titles[len(titles)-t.historySize:]
	}
	t.state.RecentTitles[key] = titles
}

// State exposes the underlying state for persistence; callers must not
// mutate it.
func (t *Tracker) State() *domain.DedupState {
	return t.state
}

func topicKey(topic string) string {
	return scrape.Normalize(topic)
}
