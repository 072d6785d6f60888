package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// Cache key constants
const (
	// Leaderboard related keys
	KeyLeaderboardGlobal = "leaderboard:global"       // ZSET player_id -> total score
	KeyLeaderboardSynced = "leaderboard:last_rebuild" // unix seconds of last full rebuild

	// Gameplay related keys
	KeyApprovedPhotoCount = "photos:approved:count"
)

// TTL constants
const (
	TTLLeaderboard        = 0               // persistent, rebuilt from Postgres when cold
	TTLApprovedPhotoCount = 1 * time.Minute // short TTL, refreshed on ingest decisions
)

// NewClient creates a new Redis client
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Wrap adapts an existing go-redis client. Used by tests with miniredis.
func Wrap(rdb *redis.Client, environment string, log *zap.Logger) *Client {
	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value from Redis
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	c.observe("redis_get", key, start, ignoreNil(err))
	return val, err
}

// Set stores a value in Redis with TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	c.observe("redis_set", key, start, err)
	return err
}

// Delete removes keys from Redis
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	c.log.Debug("redis_del",
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return err
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Exists(ctx, keys...).Result()
	c.observe("redis_exists", "", start, err)
	return n, err
}

// Expire sets a TTL on a key
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Expire(ctx, key, ttl).Err()
	c.observe("redis_expire", key, start, err)
	return err
}

// ZAdd adds members to a sorted set
func (c *Client) ZAdd(ctx context.Context, key string, members ...redis.Z) error {
	start := time.Now()
	err := c.rdb.ZAdd(ctx, key, members...).Err()
	c.observe("redis_zadd", key, start, err)
	return err
}

// ZIncrBy increments a member's score in a sorted set
func (c *Client) ZIncrBy(ctx context.Context, key string, increment float64, member string) (float64, error) {
	start := time.Now()
	v, err := c.rdb.ZIncrBy(ctx, key, increment, member).Result()
	c.observe("redis_zincrby", key, start, err)
	return v, err
}

// ZRevRangeWithScores returns members ordered by descending score
func (c *Client) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]redis.Z, error) {
	t := time.Now()
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	c.observe("redis_zrevrange", key, t, err)
	return zs, err
}

// ZRevRank returns a member's zero-based rank by descending score
func (c *Client) ZRevRank(ctx context.Context, key, member string) (int64, error) {
	start := time.Now()
	rank, err := c.rdb.ZRevRank(ctx, key, member).Result()
	c.observe("redis_zrevrank", key, start, ignoreNil(err))
	return rank, err
}

// ZScore returns a member's score
func (c *Client) ZScore(ctx context.Context, key, member string) (float64, error) {
	start := time.Now()
	score, err := c.rdb.ZScore(ctx, key, member).Result()
	c.observe("redis_zscore", key, start, ignoreNil(err))
	return score, err
}

// ZCard returns the cardinality of a sorted set
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.ZCard(ctx, key).Result()
	c.observe("redis_zcard", key, start, err)
	return n, err
}

// ZRem removes members from a sorted set
func (c *Client) ZRem(ctx context.Context, key string, members ...interface{}) error {
	start := time.Now()
	err := c.rdb.ZRem(ctx, key, members...).Err()
	c.observe("redis_zrem", key, start, err)
	return err
}

// Pipeline creates a new pipeline for batch operations
func (c *Client) Pipeline() redis.Pipeliner {
	return c.rdb.Pipeline()
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	c.observe("redis_ping", "", start, err)
	return err
}

// IsNil reports whether err is the redis cache-miss sentinel.
func IsNil(err error) bool {
	return err == redis.Nil
}

func (c *Client) observe(op, key string, start time.Time, err error) {
	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if key != "" {
		fields = append(fields, zap.String("key_prefix", prefixForLog(key)))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		c.log.Info(op, fields...)
		return
	}
	c.log.Debug(op, fields...)
}

func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}

// prefixForLog returns a safe prefix of a key to avoid logging identifying data
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}
