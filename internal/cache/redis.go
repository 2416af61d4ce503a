// Package cache holds computed per-user todo statistics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaekwang-park/planner-api/internal/model"
)

// NewRedisClient parses a redis:// URL and verifies the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// StatsKey is where the stats computed at generation gen are stored.
func StatsKey(userID, gen int64) string {
	return fmt.Sprintf("stats:user:%d:%d", userID, gen)
}

// GenerationKey holds the user's stats generation, bumped on every
// invalidation.
func GenerationKey(userID int64) string {
	return fmt.Sprintf("stats:gen:%d", userID)
}

// StatsCache is a read-through cache for TodoStats. Entries are keyed by a
// per-user generation so a recomputation that started before an
// invalidation can only write to a generation nobody reads any more.
// Redis failures are logged and treated as misses.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatsCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StatsCache {
	return &StatsCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached stats for the user's current generation along with
// that generation. gen is negative when it could not be read.
func (c *StatsCache) Get(ctx context.Context, userID int64) (model.TodoStats, int64, bool) {
	gen, err := c.client.Get(ctx, GenerationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		c.logger.DebugContext(ctx, "redis get stats failed", "user_id", userID, "error", err)
		return model.TodoStats{}, -1, false
	}

	b, err := c.client.Get(ctx, StatsKey(userID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.TodoStats{}, gen, false
	}
	if err != nil {
		c.logger.DebugContext(ctx, "redis get stats failed", "user_id", userID, "error", err)
		return model.TodoStats{}, gen, false
	}

	var stats model.TodoStats
	if err := json.Unmarshal(b, &stats); err != nil {
		c.logger.DebugContext(ctx, "redis unmarshal stats failed", "user_id", userID, "error", err)
		return model.TodoStats{}, gen, false
	}
	return stats, gen, true
}

// Set stores stats computed from data read at generation gen.
func (c *StatsCache) Set(ctx context.Context, userID, gen int64, stats model.TodoStats) {
	if gen < 0 {
		return
	}
	b, err := json.Marshal(stats)
	if err != nil {
		c.logger.DebugContext(ctx, "marshal stats for cache failed", "user_id", userID, "error", err)
		return
	}
	if err := c.client.Set(ctx, StatsKey(userID, gen), b, c.ttl).Err(); err != nil {
		c.logger.DebugContext(ctx, "redis set stats failed", "user_id", userID, "error", err)
	}
}

// Invalidate moves the user to a new generation and drops the previous
// entry.
func (c *StatsCache) Invalidate(ctx context.Context, userID int64) {
	gen, err := c.client.Incr(ctx, GenerationKey(userID)).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "redis invalidate stats failed", "user_id", userID, "error", err)
		return
	}
	if err := c.client.Del(ctx, StatsKey(userID, gen-1)).Err(); err != nil {
		c.logger.DebugContext(ctx, "redis delete stale stats failed", "user_id", userID, "error", err)
	}
}
