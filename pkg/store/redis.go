package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/reportwire/livewatch/pkg/domain"
)

// RedisStore keeps the state in Redis, namespaced under a key prefix so
// staging and production can share an instance: <prefix>:sent_links and
// <prefix>:sent_post_ids sets plus one <prefix>:recent:<topic> list per
// topic, trimmed to the history bound.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	historySize int
}

// NewRedisStore wraps an existing client; the caller owns the connection.
func NewRedisStore(client *redis.Client, prefix string, historySize int) *RedisStore {
	if prefix == "" {
		prefix = "livewatch"
	}
	if historySize == 0 {
		historySize = 20
	}
	return &RedisStore{client: client, prefix: prefix, historySize: historySize}
}

func (r *RedisStore) key(suffix string) string {
	return r.prefix + ":" + suffix
}

// Load reads the full state back from Redis.
func (r *RedisStore) Load(ctx context.Context) (*domain.DedupState, error) {
	st := domain.NewDedupState()

	links, err := r.client.SMembers(ctx, r.key("sent_links")).Result()
	if err != nil {
		return nil, fmt.Errorf("load sent links: %w", err)
	}
	for _, l := range links {
		st.SentLinks[l] = struct{}{}
	}

	ids, err := r.client.SMembers(ctx, r.key("sent_post_ids")).Result()
	if err != nil {
		return nil, fmt.Errorf("load sent post ids: %w", err)
	}
	for _, id := range ids {
		st.SentPostIDs[id] = struct{}{}
	}

	recentPrefix := r.key("recent:")
	keys, err := r.client.Keys(ctx, recentPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list recent-title keys: %w", err)
	}
	for _, k := range keys {
		titles, err := r.client.LRange(ctx, k, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("load recent titles %s: %w", k, err)
		}
		topic := strings.TrimPrefix(k, recentPrefix)
		st.RecentTitles[topic] = titles
	}
	return st, nil
}

// Save writes the state in one transaction. Sets only grow, so members are
// re-added idempotently; recent-title lists are rewritten and trimmed.
func (r *RedisStore) Save(ctx context.Context, st *domain.DedupState) error {
	pipe := r.client.TxPipeline()

	if members := setMembers(st.SentLinks); len(members) > 0 {
		pipe.SAdd(ctx, r.key("sent_links"), members...)
	}
	if members := setMembers(st.SentPostIDs); len(members) > 0 {
		pipe.SAdd(ctx, r.key("sent_post_ids"), members...)
	}
	for topic, titles := range st.RecentTitles {
		k := r.key("recent:" + topic)
		pipe.Del(ctx, k)
		if len(titles) > 0 {
			vals := make([]interface{}, len(titles))
			for i, t := range titles {
				vals[i] = t
			}
			pipe.RPush(ctx, k, vals...)
			pipe.LTrim(ctx, k, int64(-r.historySize), -1)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func setMembers(set map[string]struct{}) []interface{} {
	members := make([]interface{}, 0, len(set))
	for k := range set {
		members = append(members, k)
	}
	return members
}
