package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportwire/livewatch/pkg/dedup"
	"github.com/reportwire/livewatch/pkg/domain"
)

const homepage = `<html><body>
	<a href="/live/storm">LIVE: Storm</a>
</body></html>`

const stormPage = `<html><body>
	<div class="LiveBlogPost" id="p-levee"><h2 class="LiveBlogPost-headline">Levee breached overnight</h2></div>
	<div class="LiveBlogPost" id="p-evac"><h2 class="LiveBlogPost-headline">Evacuations ordered downtown</h2></div>
	<script type="application/ld+json">{
		"@type": "LiveBlogPosting",
		"liveBlogUpdate": [
			{"@id": "u-evac", "headline": "Evacuations ordered downtown", "datePublished": "2026-08-28T11:00:00Z"},
			{"@id": "u-levee", "headline": "Levee breached overnight", "datePublished": "2026-08-28T10:00:00Z"}
		]
	}</script>
</body></html>`

type fetcherStub struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fetcherStub) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	page, ok := f.pages[url]
	if !ok {
		return "", errors.New("no page for " + url)
	}
	return page, nil
}

type notifierStub struct {
	msgs []string
	err  error
}

func (n *notifierStub) Send(_ context.Context, text string) error {
	n.msgs = append(n.msgs, text)
	return n.err
}

type storeStub struct {
	saves int
	err   error
}

func (s *storeStub) Load(context.Context) (*domain.DedupState, error) { return domain.NewDedupState(), nil }
func (s *storeStub) Save(context.Context, *domain.DedupState) error {
	s.saves++
	return s.err
}

type taggerFunc func(ctx context.Context, title, topic, when, link string) ([]string, error)

func (f taggerFunc) Hashtags(ctx context.Context, title, topic, when, link string) ([]string, error) {
	return f(ctx, title, topic, when, link)
}

func newTestPipeline(f *fetcherStub, n *notifierStub, s *storeStub) *Pipeline {
	return New(Params{
		Fetcher:     f,
		Notifier:    n,
		Store:       s,
		Tracker:     dedup.NewTracker(domain.NewDedupState(), 0, 0, nil),
		HomepageURL: "https://example.com",
		Concurrency: 2,
	})
}

func TestPipeline_RunCycle(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            homepage,
		"https://example.com/live/storm": stormPage,
	}}
	notifier := &notifierStub{}
	st := &storeStub{}
	p := newTestPipeline(fetcher, notifier, st)

	res, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Topics)
	require.Len(t, res.Posts, 2)

	// oldest first regardless of source order
	assert.Equal(t, "Levee breached overnight", res.Posts[0].Title)
	assert.Equal(t, "https://example.com/live/storm#p-levee", res.Posts[0].Permalink)
	assert.Equal(t, "2026-08-28T10:00:00Z", res.Posts[0].Timestamp)
	assert.Equal(t, "Evacuations ordered downtown", res.Posts[1].Title)
	assert.Equal(t, "https://example.com/live/storm#p-evac", res.Posts[1].Permalink)

	require.Len(t, notifier.msgs, 2)
	assert.Contains(t, notifier.msgs[0], "Levee breached overnight")
	assert.Contains(t, notifier.msgs[0], "📰 Storm")
	assert.Contains(t, notifier.msgs[0], "#Storm")
	assert.Equal(t, 2, st.saves, "state persisted after each delivery")
}

func TestPipeline_RunCycle_SecondCycleSilent(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            homepage,
		"https://example.com/live/storm": stormPage,
	}}
	notifier := &notifierStub{}
	p := newTestPipeline(fetcher, notifier, &storeStub{})

	res, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Posts, 2)

	res, err = p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Topics)
	assert.Empty(t, res.Posts, "same page must not notify twice")
	assert.Len(t, notifier.msgs, 2)
}

func TestPipeline_RunCycle_TopicFetchFailureSkips(t *testing.T) {
	multi := `<html><body>
		<a href="/live/storm">LIVE: Storm</a>
		<a href="/live/down">LIVE: Down</a>
	</body></html>`
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            multi,
		"https://example.com/live/storm": stormPage,
		// /live/down intentionally absent
	}}
	notifier := &notifierStub{}
	p := newTestPipeline(fetcher, notifier, &storeStub{})

	res, err := p.RunCycle(context.Background())
	require.NoError(t, err, "one broken topic must not fail the cycle")
	assert.Equal(t, 2, res.Topics)
	assert.Len(t, res.Posts, 2)
}

func TestPipeline_RunCycle_HomepageFailure(t *testing.T) {
	p := newTestPipeline(&fetcherStub{pages: map[string]string{}}, &notifierStub{}, &storeStub{})
	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
}

func TestPipeline_RunCycle_NoTopics(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com": "<html><body><p>quiet news day</p></body></html>",
	}}
	p := newTestPipeline(fetcher, &notifierStub{}, &storeStub{})

	res, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Topics)
	assert.Empty(t, res.Posts)
	assert.Len(t, fetcher.calls, 1, "no topic pages to fetch")
}

func TestPipeline_Tagger(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            homepage,
		"https://example.com/live/storm": stormPage,
	}}
	notifier := &notifierStub{}
	p := newTestPipeline(fetcher, notifier, &storeStub{})
	p.Tagger = taggerFunc(func(_ context.Context, _, _, _, _ string) ([]string, error) {
		return []string{"#Flooding", "#Weather"}, nil
	})

	_, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, notifier.msgs)
	assert.Contains(t, notifier.msgs[0], "#Flooding #Weather")
}

func TestPipeline_TaggerFailureFallsBack(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            homepage,
		"https://example.com/live/storm": stormPage,
	}}
	notifier := &notifierStub{}
	p := newTestPipeline(fetcher, notifier, &storeStub{})
	p.Tagger = taggerFunc(func(_ context.Context, _, _, _, _ string) ([]string, error) {
		return nil, errors.New("model down")
	})

	_, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, notifier.msgs)
	assert.Contains(t, notifier.msgs[0], "#Storm")
}

func TestPipeline_SaveErrorDoesNotBlockDelivery(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            homepage,
		"https://example.com/live/storm": stormPage,
	}}
	notifier := &notifierStub{}
	p := newTestPipeline(fetcher, notifier, &storeStub{err: errors.New("disk full")})

	res, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Posts, 2)
	assert.Len(t, notifier.msgs, 2)
}

func TestPipeline_SendErrorStillMarksSent(t *testing.T) {
	fetcher := &fetcherStub{pages: map[string]string{
		"https://example.com":            homepage,
		"https://example.com/live/storm": stormPage,
	}}
	notifier := &notifierStub{err: errors.New("telegram 502")}
	p := newTestPipeline(fetcher, notifier, &storeStub{})

	_, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Tracker.SeenLink("https://example.com/live/storm#p-levee"))
}
