package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"

	"github.com/reportwire/livewatch/pkg/config"
	"github.com/reportwire/livewatch/pkg/dedup"
	"github.com/reportwire/livewatch/pkg/domain"
	"github.com/reportwire/livewatch/pkg/fetch"
	"github.com/reportwire/livewatch/pkg/llm"
	"github.com/reportwire/livewatch/pkg/lock"
	"github.com/reportwire/livewatch/pkg/notify"
	"github.com/reportwire/livewatch/pkg/pipeline"
	"github.com/reportwire/livewatch/pkg/scheduler"
	"github.com/reportwire/livewatch/pkg/store"
	"github.com/reportwire/livewatch/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatalf("[ERROR] can't load config %s: %v", opts.Config, err)
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Telegram.Token, cfg.LLM.APIKey)

	log.Printf("[INFO] starting livewatch version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Printf("[ERROR] livewatch failed: %v", err)
		os.Exit(1)
	}
	cancel()
	log.Print("[INFO] shutdown complete")
}

// run wires the components and blocks until ctx is canceled
func run(ctx context.Context, cfg *config.Config) error {
	stateStore, leaderLock, err := makeStateBackend(ctx, cfg)
	if err != nil {
		return err
	}

	state, err := stateStore.Load(ctx)
	if err != nil {
		log.Printf("[WARN] can't load dedup state, starting empty: %v", err)
		state = domain.NewDedupState()
	}
	log.Printf("[INFO] loaded dedup state: %d links, %d post ids", len(state.SentLinks), len(state.SentPostIDs))

	var judge *llm.Judge
	if cfg.LLM.Enabled() {
		judge = llm.NewJudge(llm.Config{
			Endpoint: cfg.LLM.Endpoint,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout,
		})
	}

	var semJudge dedup.SemanticJudge
	if judge != nil && cfg.LLM.SemanticDedupe {
		semJudge = judge
	}
	tracker := dedup.NewTracker(state, cfg.Dedup.SimilarityThreshold, cfg.Dedup.HistorySize, semJudge)

	var tagger pipeline.Tagger
	if judge != nil && cfg.LLM.Hashtags {
		tagger = judge
	}

	pipe := pipeline.New(pipeline.Params{
		Fetcher: fetch.New(fetch.Params{
			Timeout:   cfg.Fetch.Timeout,
			Retries:   cfg.Fetch.Retries,
			Backoff:   cfg.Fetch.Backoff,
			UserAgent: cfg.Fetch.UserAgent,
		}),
		Notifier:    notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.Channel, cfg.Telegram.Timeout),
		Store:       stateStore,
		Tracker:     tracker,
		Tagger:      tagger,
		HomepageURL: cfg.Watch.Homepage,
		Concurrency: cfg.Watch.Concurrency,
	})

	sched := scheduler.New(scheduler.Params{
		Runner:        pipe,
		Lock:          leaderLock,
		Interval:      cfg.Schedule.CheckInterval,
		LongInterval:  cfg.Schedule.LongInterval,
		NoTopicsAfter: cfg.Schedule.NoTopicsThreshold,
		RenewEvery:    cfg.Redis.LockRenew,
	})

	srv := server.New(server.Config{Listen: cfg.Server.Listen, Timeout: cfg.Server.Timeout}, sched, revision, false)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Printf("[ERROR] status server failed: %v", err)
		}
	}()

	sched.Run(ctx)
	return nil
}

// makeStateBackend picks the Redis-backed store and leader lock when Redis is
// configured, a local state file with no locking otherwise
func makeStateBackend(ctx context.Context, cfg *config.Config) (store.Store, lock.Lock, error) {
	if cfg.Redis.Addr == "" {
		log.Printf("[INFO] using local state file %s", cfg.Dedup.StateFile)
		return store.NewFileStore(cfg.Dedup.StateFile), lock.Noop{}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("can't reach redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Printf("[INFO] using redis state at %s, key prefix %q", cfg.Redis.Addr, cfg.Redis.KeyPrefix)

	st := store.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Dedup.HistorySize)
	lck := lock.NewRedisLock(client, cfg.Redis.KeyPrefix+":leader", cfg.Redis.LockTTL)
	return st, lck, nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	secrets := make([]string, 0, len(secs))
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
