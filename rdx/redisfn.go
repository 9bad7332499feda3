package rdx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"servicedesk/config"
	"servicedesk/models"
)

const (
	statsKey    = "bookings:stats:summary"
	statsGenKey = "bookings:stats:gen"
)

// NewClient builds a Redis client from configuration.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// StatsCache stores the booking summary in Redis for a short TTL, under a
// key suffixed with the current generation. Invalidate bumps the generation
// with INCR, so a summary computed before a mutation lands on a key nobody
// reads again. Redis errors are logged and treated as cache misses.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func NewStatsCache(client *redis.Client, ttl time.Duration, log *logrus.Logger) *StatsCache {
	return &StatsCache{client: client, ttl: ttl, log: log}
}

func entryKey(gen int64) string {
	return fmt.Sprintf("%s:%d", statsKey, gen)
}

func (c *StatsCache) Get(ctx context.Context) (*models.Stats, int64, bool) {
	gen, err := c.client.Get(ctx, statsGenKey).Int64()
	if err == redis.Nil {
		gen, err = 0, nil
	}
	if err != nil {
		c.log.WithError(err).Warn("[rdx] stats generation read failed")
		return nil, -1, false
	}

	raw, err := c.client.Get(ctx, entryKey(gen)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("[rdx] stats cache read failed")
		}
		return nil, gen, false
	}
	var st models.Stats
	if err := json.Unmarshal(raw, &st); err != nil {
		c.log.WithError(err).Warn("[rdx] stats cache entry unreadable")
		return nil, gen, false
	}
	return &st, gen, true
}

func (c *StatsCache) Set(ctx context.Context, gen int64, st models.Stats) {
	if c.ttl <= 0 || gen < 0 {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entryKey(gen), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("[rdx] stats cache write failed")
	}
}

func (c *StatsCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, statsGenKey).Err(); err != nil {
		c.log.WithError(err).Warn("[rdx] stats cache invalidation failed")
	}
}
