package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Watch struct {
		Homepage    string `yaml:"homepage" json:"homepage" jsonschema:"default=https://apnews.com,description=Homepage URL scanned for live coverage entries"`
		Concurrency int    `yaml:"concurrency" json:"concurrency" jsonschema:"default=4,description=Maximum concurrent topic page fetches"`
	} `yaml:"watch" json:"watch" jsonschema:"description=Live coverage watch configuration"`

	Fetch struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=HTTP request timeout"`
		Retries   int           `yaml:"retries" json:"retries" jsonschema:"default=3,description=Attempts per page fetch"`
		Backoff   time.Duration `yaml:"backoff" json:"backoff" jsonschema:"default=3s,description=Initial backoff between retries"`
		UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent for HTTP requests"`
	} `yaml:"fetch" json:"fetch" jsonschema:"description=Page fetching configuration"`

	Schedule struct {
		CheckInterval     time.Duration `yaml:"check_interval" json:"check_interval" jsonschema:"default=40s,description=Pause between cycles while coverage is live"`
		LongInterval      time.Duration `yaml:"long_interval" json:"long_interval" jsonschema:"default=5m,description=Pause between cycles once coverage goes quiet"`
		NoTopicsThreshold time.Duration `yaml:"no_topics_threshold" json:"no_topics_threshold" jsonschema:"default=1h,description=Quiet time before switching to the long interval"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	Dedup struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" jsonschema:"default=0.8,minimum=0,maximum=1,description=Title similarity ratio treated as duplicate"`
		HistorySize         int     `yaml:"history_size" json:"history_size" jsonschema:"default=20,description=Recent titles remembered per topic"`
		StateFile           string  `yaml:"state_file" json:"state_file" jsonschema:"default=sent.json,description=Path of the persisted dedup state (ignored when redis is configured)"`
	} `yaml:"dedup" json:"dedup" jsonschema:"description=Duplicate suppression configuration"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram" jsonschema:"description=Telegram delivery configuration"`

	Redis RedisConfig `yaml:"redis" json:"redis" jsonschema:"description=Optional Redis state and leader lock configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=Optional LLM assistance configuration"`

	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP status server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Status server configuration"`
}

// TelegramConfig holds the delivery channel settings
type TelegramConfig struct {
	Token   string        `yaml:"token" json:"token" jsonschema:"required,description=Bot token (can use environment variable)"`
	Channel string        `yaml:"channel" json:"channel" jsonschema:"required,description=Target chat or channel id"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Send request timeout"`
}

// RedisConfig holds shared state and leader lock settings; empty Addr keeps
// everything local
type RedisConfig struct {
	Addr      string        `yaml:"addr" json:"addr" jsonschema:"description=Redis address; empty disables Redis and uses the local state file"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix" jsonschema:"default=livewatch,description=Prefix for all keys"`
	LockTTL   time.Duration `yaml:"lock_ttl" json:"lock_ttl" jsonschema:"default=45s,description=Leader lease lifetime"`
	LockRenew time.Duration `yaml:"lock_renew" json:"lock_renew" jsonschema:"default=15s,description=Leader lease renewal cadence"`
}

// LLMConfig holds settings for the optional semantic duplicate check and
// hashtag generation
type LLMConfig struct {
	Endpoint       string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey         string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model          string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini)"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SemanticDedupe bool          `yaml:"semantic_dedupe" json:"semantic_dedupe" jsonschema:"default=false,description=Consult the model on borderline duplicates"`
	Hashtags       bool          `yaml:"hashtags" json:"hashtags" jsonschema:"default=false,description=Generate hashtags with the model"`
}

// Enabled reports whether any LLM feature is configured and usable
func (c LLMConfig) Enabled() bool {
	return c.Endpoint != "" && c.Model != "" && (c.SemanticDedupe || c.Hashtags)
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for watch
	if cfg.Watch.Homepage == "" {
		cfg.Watch.Homepage = "https://apnews.com"
	}
	if cfg.Watch.Concurrency == 0 {
		cfg.Watch.Concurrency = 4
	}

	// set defaults for fetch
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 15 * time.Second
	}
	if cfg.Fetch.Retries == 0 {
		cfg.Fetch.Retries = 3
	}
	if cfg.Fetch.Backoff == 0 {
		cfg.Fetch.Backoff = 3 * time.Second
	}

	// set defaults for schedule
	if cfg.Schedule.CheckInterval == 0 {
		cfg.Schedule.CheckInterval = 40 * time.Second
	}
	if cfg.Schedule.LongInterval == 0 {
		cfg.Schedule.LongInterval = 5 * time.Minute
	}
	if cfg.Schedule.NoTopicsThreshold == 0 {
		cfg.Schedule.NoTopicsThreshold = time.Hour
	}

	// set defaults for dedup
	if cfg.Dedup.SimilarityThreshold == 0 {
		cfg.Dedup.SimilarityThreshold = 0.8
	}
	if cfg.Dedup.HistorySize == 0 {
		cfg.Dedup.HistorySize = 20
	}
	if cfg.Dedup.StateFile == "" {
		cfg.Dedup.StateFile = "sent.json"
	}

	// set defaults for telegram
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 10 * time.Second
	}

	// set defaults for redis
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "livewatch"
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 45 * time.Second
	}
	if cfg.Redis.LockRenew == 0 {
		cfg.Redis.LockRenew = 15 * time.Second
	}

	// set defaults for LLM
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {

	// validate telegram config
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if cfg.Telegram.Channel == "" {
		return fmt.Errorf("telegram.channel is required")
	}

	// validate dedup config
	if cfg.Dedup.SimilarityThreshold < 0 || cfg.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be between 0 and 1")
	}
	if cfg.Dedup.HistorySize < 1 {
		return fmt.Errorf("dedup.history_size must be at least 1")
	}

	// validate schedule config
	if cfg.Schedule.CheckInterval < time.Second {
		return fmt.Errorf("schedule.check_interval must be at least 1 second")
	}
	if cfg.Schedule.LongInterval < cfg.Schedule.CheckInterval {
		return fmt.Errorf("schedule.long_interval must not be shorter than check_interval")
	}

	// validate redis config
	if cfg.Redis.Addr != "" && cfg.Redis.LockRenew >= cfg.Redis.LockTTL {
		return fmt.Errorf("redis.lock_renew must be shorter than lock_ttl")
	}

	// validate LLM config
	if (cfg.LLM.SemanticDedupe || cfg.LLM.Hashtags) && (cfg.LLM.Endpoint == "" || cfg.LLM.Model == "") {
		return fmt.Errorf("llm.endpoint and llm.model are required when LLM features are enabled")
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}
