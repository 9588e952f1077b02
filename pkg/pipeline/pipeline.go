// Package pipeline orchestrates one watch cycle: discover live topics on the
// homepage, pull posts from each topic page, resolve permalinks, filter
// already-delivered posts and deliver the rest.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/sync/errgroup"

	"github.com/reportwire/livewatch/pkg/dedup"
	"github.com/reportwire/livewatch/pkg/domain"
	"github.com/reportwire/livewatch/pkg/notify"
	"github.com/reportwire/livewatch/pkg/scrape"
	"github.com/reportwire/livewatch/pkg/store"
)

// Fetcher retrieves page markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Notifier delivers one formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Tagger produces hashtags for a post; optional, the deterministic
// topic-derived tag is used when absent or failing.
type Tagger interface {
	Hashtags(ctx context.Context, title, topic, when, link string) ([]string, error)
}

// Params assembles the pipeline dependencies.
type Params struct {
	Fetcher     Fetcher
	Notifier    Notifier
	Store       store.Store
	Tracker     *dedup.Tracker
	Tagger      Tagger // may be nil
	HomepageURL string
	Concurrency int
}

// Pipeline runs watch cycles. Not safe for concurrent RunCycle calls; the
// scheduler serializes them.
type Pipeline struct {
	Params
}

// CycleResult summarizes one cycle for the scheduler and the status endpoint.
type CycleResult struct {
	Topics int
	Posts  []domain.ResolvedPost
}

// New creates a pipeline; Concurrency 0 means 4 parallel topic fetches.
func New(p Params) *Pipeline {
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}
	return &Pipeline{Params: p}
}

// RunCycle performs one full cycle. Topic pages are fetched and parsed
// concurrently, but the send gate runs sequentially so the dedup state sees
// every delivery before the next candidate is judged. The state is persisted
// after each delivered post; a persistence failure is logged and delivery
// continues. State is recorded before the send, so a crash mid-delivery
// drops a post instead of repeating it.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	homepage, err := p.Fetcher.Fetch(ctx, p.HomepageURL)
	if err != nil {
		return CycleResult{}, fmt.Errorf("fetch homepage: %w", err)
	}

	topics, err := scrape.LocateTopics(homepage, p.HomepageURL)
	if err != nil {
		return CycleResult{}, fmt.Errorf("locate topics: %w", err)
	}
	if len(topics) == 0 {
		return CycleResult{}, nil
	}

	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Printf("[INFO] found %d live topics: %v", len(names), names)

	collected := make([][]domain.ResolvedPost, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			posts, err := p.collectTopic(gctx, name, topics[name])
			if err != nil {
				log.Printf("[WARN] skipping topic %q this cycle: %v", name, err)
				return nil
			}
			collected[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CycleResult{Topics: len(names)}, err
	}

	res := CycleResult{Topics: len(names)}
	for i := range collected {
		for _, post := range collected[i] {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if p.deliver(ctx, post) {
				res.Posts = append(res.Posts, post)
			}
		}
	}
	return res, nil
}

// collectTopic pulls one topic page and returns its posts with permalinks
// resolved and timestamps canonicalized, oldest first.
func (p *Pipeline) collectTopic(ctx context.Context, name, pageURL string) ([]domain.ResolvedPost, error) {
	markup, err := p.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	raw, err := scrape.ExtractPosts(markup, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract posts: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	idx, err := scrape.BuildIndex(markup)
	if err != nil {
		return nil, fmt.Errorf("index page: %w", err)
	}

	posts := make([]domain.ResolvedPost, 0, len(raw))
	for _, rp := range raw {
		posts = append(posts, domain.ResolvedPost{
			ID:        rp.ID,
			Topic:     name,
			Title:     rp.Headline,
			Permalink: scrape.Resolve(rp, idx, pageURL),
			Timestamp: canonicalTime(rp.Timestamp),
		})
	}
	// RFC3339 UTC strings order chronologically
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Timestamp < posts[j].Timestamp })
	return posts, nil
}

// deliver runs the send gate for one post and reports whether it went out.
func (p *Pipeline) deliver(ctx context.Context, post domain.ResolvedPost) bool {
	switch {
	case p.Tracker.SeenID(post.ID):
		return false
	case p.Tracker.SeenLink(post.Permalink):
		return false
	case p.Tracker.IsDuplicate(ctx, post.Topic, post.Title):
		log.Printf("[DEBUG] near-duplicate suppressed in %q: %q", post.Topic, post.Title)
		return false
	}

	tags := p.tags(ctx, post)
	text := notify.FormatMessage(post.Topic, post.Title, post.Permalink, post.Timestamp, tags)

	p.Tracker.RecordSent(post.ID, post.Permalink)
	p.Tracker.Remember(post.Topic, post.Title)
	if err := p.Store.Save(ctx, p.Tracker.State()); err != nil {
		log.Printf("[WARN] could not persist dedup state: %v", err)
	}

	if err := p.Notifier.Send(ctx, text); err != nil {
		log.Printf("[WARN] could not deliver post %q: %v", post.Title, err)
	}
	log.Printf("[INFO] new post in %q: %q", post.Topic, post.Title)
	return true
}

func (p *Pipeline) tags(ctx context.Context, post domain.ResolvedPost) []string {
	if p.Tagger != nil {
		tags, err := p.Tagger.Hashtags(ctx, post.Title, post.Topic, post.Timestamp, post.Permalink)
		if err == nil && len(tags) > 0 {
			return tags
		}
		if err != nil {
			log.Printf("[DEBUG] hashtag generation failed, using topic tag: %v", err)
		}
	}
	return notify.TopicHashtags(post.Topic)
}

func canonicalTime(iso string) string {
	if iso == "" {
		return time.Now().UTC().Format(time.RFC3339)
	}
	at, err := dateparse.ParseAny(iso)
	if err != nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return at.UTC().Format(time.RFC3339)
}
