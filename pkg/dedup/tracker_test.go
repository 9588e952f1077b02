package dedup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportwire/livewatch/pkg/domain"
)

func TestTracker_ExactIdentity(t *testing.T) {
	tr := NewTracker(domain.NewDedupState(), 0, 0, nil)

	assert.False(t, tr.SeenID("p1"))
	assert.False(t, tr.SeenLink("https://x/live#p1"))

	tr.RecordSent("p1", "https://x/live#p1")

	assert.True(t, tr.SeenID("p1"))
	assert.True(t, tr.SeenLink("https://x/live#p1"))
	assert.False(t, tr.SeenID(""), "absent post id skips the exact check")
}

func TestTracker_PunctuationOnlyEditIsDuplicate(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(domain.NewDedupState(), 0, 0, nil)
	tr.Remember("Topic", "Breaking news about economy")

	assert.True(t, tr.IsDuplicate(ctx, "Topic", "Breaking news about economy  "))
	assert.False(t, tr.IsDuplicate(ctx, "Topic", "Weather updates for the weekend"))
}

func TestTracker_ThresholdBoundaryInclusive(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(domain.NewDedupState(), 0.8, 0, nil)
	tr.Remember("t", "abcd")

	// LCS("abcde","abcd")=4 over max length 5: ratio exactly 0.8
	assert.True(t, tr.IsDuplicate(ctx, "t", "abcde"))
	// LCS("abcde","abc")=3 over 5: 0.6, strictly below
	tr2 := NewTracker(domain.NewDedupState(), 0.8, 0, nil)
	tr2.Remember("t", "abc")
	assert.False(t, tr2.IsDuplicate(ctx, "t", "abcde"))
}

func TestTracker_HistoryBounded(t *testing.T) {
	tr := NewTracker(domain.NewDedupState(), 0, 20, nil)
	for i := 0; i < 25; i++ {
		tr.Remember("Topic", fmt.Sprintf("title number %03d", i))
	}

	titles := tr.State().RecentTitles["topic"]
	require.Len(t, titles, 20)
	assert.Equal(t, "title number 005", titles[0], "five oldest evicted")
	assert.Equal(t, "title number 024", titles[19])
}

func TestTracker_PerTopicIsolation(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(domain.NewDedupState(), 0, 0, nil)
	tr.Remember("Economy", "Breaking news about economy")

	assert.True(t, tr.IsDuplicate(ctx, "Economy", "Breaking news about economy"))
	assert.False(t, tr.IsDuplicate(ctx, "Weather", "Breaking news about economy"),
		"no cross-topic suppression")
}

type judgeFunc func(ctx context.Context, candidate string, recent []string) (bool, error)

func (f judgeFunc) SameStory(ctx context.Context, candidate string, recent []string) (bool, error) {
	return f(ctx, candidate, recent)
}

func TestTracker_SemanticJudgeFallback(t *testing.T) {
	ctx := context.Background()

	yes := judgeFunc(func(_ context.Context, _ string, _ []string) (bool, error) { return true, nil })
	tr := NewTracker(domain.NewDedupState(), 0, 0, yes)
	tr.Remember("t", "Breaking news about economy")
	assert.True(t, tr.IsDuplicate(ctx, "t", "Completely different words entirely"),
		"judge gets a second look when the ratio test finds no match")

	broken := judgeFunc(func(_ context.Context, _ string, _ []string) (bool, error) {
		return false, errors.New("llm outage")
	})
	tr2 := NewTracker(domain.NewDedupState(), 0, 0, broken)
	tr2.Remember("t", "Breaking news about economy")
	assert.False(t, tr2.IsDuplicate(ctx, "t", "Completely different words entirely"),
		"judge failure fails open")
}

func TestTracker_EmptyHistorySkipsJudge(t *testing.T) {
	called := false
	j := judgeFunc(func(_ context.Context, _ string, _ []string) (bool, error) {
		called = true
		return true, nil
	})
	tr := NewTracker(domain.NewDedupState(), 0, 0, j)
	assert.False(t, tr.IsDuplicate(context.Background(), "t", "anything"))
	assert.False(t, called)
}
