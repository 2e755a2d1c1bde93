package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pricewatch/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pricewatch:snapshot:"

// SnapshotCache keeps recent observed snapshots for the interactive check.
type SnapshotCache interface {
	Get(ctx context.Context, url string) (models.PriceSnapshot, bool)
	Set(ctx context.Context, url string, snapshot models.PriceSnapshot)
}

// RedisCache stores snapshots as JSON strings with a TTL. Cache errors are
// logged and treated as misses; the check path never fails on them.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	slog.Info("Connected to Redis", "addr", addr, "db", db)
	return &RedisCache{client: client, ttl: ttl}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, url string) (models.PriceSnapshot, bool) {
	var snapshot models.PriceSnapshot

	raw, err := c.client.Get(ctx, keyPrefix+url).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Snapshot cache read failed", "url", url, "error", err)
		}
		return snapshot, false
	}

	if err := json.Unmarshal(raw, &snapshot); err != nil {
		slog.Warn("Discarding malformed cached snapshot", "url", url, "error", err)
		return snapshot, false
	}
	return snapshot, true
}

func (c *RedisCache) Set(ctx context.Context, url string, snapshot models.PriceSnapshot) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		slog.Warn("Failed to encode snapshot for cache", "url", url, "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+url, raw, c.ttl).Err(); err != nil {
		slog.Warn("Snapshot cache write failed", "url", url, "error", err)
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (models.PriceSnapshot, bool) {
	return models.PriceSnapshot{}, false
}

func (NoopCache) Set(context.Context, string, models.PriceSnapshot) {}
