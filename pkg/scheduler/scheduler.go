// Package scheduler drives watch cycles on an adaptive interval and gates
// them behind a leader lease so only one replica polls and notifies.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/reportwire/livewatch/pkg/lock"
	"github.com/reportwire/livewatch/pkg/pipeline"
)

// CycleRunner runs one watch cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (pipeline.CycleResult, error)
}

// Params configures the scheduler; zero durations pick production defaults.
type Params struct {
	Runner CycleRunner
	Lock   lock.Lock

	Interval      time.Duration // pause between cycles while topics are live
	LongInterval  time.Duration // pause once coverage has gone quiet
	NoTopicsAfter time.Duration // how long without topics before slowing down
	RenewEvery    time.Duration // lease renewal cadence
	AcquireRetry  time.Duration // standby poll cadence for the lease
}

// Stats is a point-in-time snapshot for the status endpoint.
type Stats struct {
	Leader     bool      `json:"leader"`
	Cycles     int       `json:"cycles"`
	PostsSent  int       `json:"posts_sent"`
	LastTopics int       `json:"last_topics"`
	LastCycle  time.Time `json:"last_cycle,omitzero"`
	Interval   string    `json:"interval"`
}

// Scheduler owns the poll loop. Safe for concurrent Stats reads while Run is
// active.
type Scheduler struct {
	Params

	mu           sync.Mutex
	stats        Stats
	interval     time.Duration
	lastTopicsAt time.Time
}

// New creates a scheduler with defaults for any zero Params durations.
func New(p Params) *Scheduler {
	if p.Interval == 0 {
		p.Interval = 40 * time.Second
	}
	if p.LongInterval == 0 {
		p.LongInterval = 5 * time.Minute
	}
	if p.NoTopicsAfter == 0 {
		p.NoTopicsAfter = time.Hour
	}
	if p.RenewEvery == 0 {
		p.RenewEvery = 15 * time.Second
	}
	if p.AcquireRetry == 0 {
		p.AcquireRetry = 2 * time.Second
	}
	if p.Lock == nil {
		p.Lock = lock.Noop{}
	}
	return &Scheduler{Params: p, interval: p.Interval, lastTopicsAt: time.Now()}
}

// Run blocks until ctx is canceled, alternating between standing by for the
// lease and leading. The lease is released on the way out so a restart or a
// standby replica can take over immediately.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.Lock.Release(context.WithoutCancel(ctx))

	for ctx.Err() == nil {
		if !s.Lock.TryAcquire(ctx) {
			sleepCtx(ctx, s.AcquireRetry)
			continue
		}
		log.Printf("[INFO] leader lease acquired")
		s.setLeader(true)
		s.leaderLoop(ctx)
		s.setLeader(false)
	}
}

// leaderLoop cycles until ctx ends or the lease is lost. Renewal happens
// before each cycle and during every sleep slice, so the lease never goes
// longer than RenewEvery plus one cycle without a touch.
func (s *Scheduler) leaderLoop(ctx context.Context) {
	for ctx.Err() == nil {
		if !s.Lock.Renew(ctx) {
			log.Printf("[WARN] leader lease lost, standing by")
			return
		}

		started := time.Now()
		res, err := s.Runner.RunCycle(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("[WARN] cycle failed: %v", err)
		}
		s.record(res, started)

		delay := calculateDelay(s.nextInterval(res.Topics, time.Now()), time.Since(started))
		for delay > 0 && ctx.Err() == nil {
			slice := min(delay, s.RenewEvery)
			sleepCtx(ctx, slice)
			delay -= slice
			if ctx.Err() == nil && !s.Lock.Renew(ctx) {
				log.Printf("[WARN] leader lease lost, standing by")
				return
			}
		}
	}
}

// nextInterval applies the slow-down rule: topics seen resets to the normal
// cadence, a long quiet stretch switches to the long one.
func (s *Scheduler) nextInterval(topics int, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topics > 0 {
		if s.interval != s.Interval {
			log.Printf("[INFO] live coverage is back, reverting to %s checks", s.Interval)
		}
		s.interval = s.Interval
		s.lastTopicsAt = now
	} else if s.interval != s.LongInterval && now.Sub(s.lastTopicsAt) >= s.NoTopicsAfter {
		log.Printf("[INFO] no live coverage for %s, slowing down to %s checks", s.NoTopicsAfter, s.LongInterval)
		s.interval = s.LongInterval
	}
	s.stats.Interval = s.interval.String()
	return s.interval
}

func (s *Scheduler) record(res pipeline.CycleResult, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Cycles++
	s.stats.PostsSent += len(res.Posts)
	s.stats.LastTopics = res.Topics
	s.stats.LastCycle = started
}

func (s *Scheduler) setLeader(v bool) {
	s.mu.Lock()
	s.stats.Leader = v
	s.mu.Unlock()
}

// Stats returns a snapshot for the status endpoint.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats.Interval == "" {
		s.stats.Interval = s.interval.String()
	}
	return s.stats
}

// calculateDelay keeps the cycle cadence steady: the pause is the interval
// minus the time the cycle itself took, never negative.
func calculateDelay(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
