// Package redis implements the leaderboard rank cache of the motivation
// engine. The platform keeps an XP leaderboard in a Redis sorted set; the
// engine reads a student's percentile rank from it and mirrors coin grants
// back as score increments. Rank data is enrichment: every caller degrades
// gracefully when Redis is unavailable.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	// ErrCacheConnection is returned when the Redis connection fails.
	ErrCacheConnection = errors.New("cache: connection failed")
)

// leaderboardKey is the sorted set holding user XP scores.
const leaderboardKey = "leaderboard:xp"

// ══════════════════════════════════════════════════════════════════════════════
// RANK CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RankCache resolves percentile ranks from the XP sorted set and accepts
// score increments for fresh coin grants.
type RankCache struct {
	client *redis.Client
	config Config
}

// NewRankCache creates a RankCache and verifies the connection.
func NewRankCache(cfg Config) (*RankCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &RankCache{client: client, config: cfg}, nil
}

// Client returns the underlying Redis client.
func (c *RankCache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *RankCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RankCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PercentileRank returns the share of users the student outranks (0-100).
// A user absent from the leaderboard, or an empty leaderboard, yields
// signals.ErrRankUnavailable.
func (c *RankCache) PercentileRank(ctx context.Context, userID string) (float64, error) {
	rank, err := c.client.ZRank(ctx, leaderboardKey, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, signals.ErrRankUnavailable
		}
		return 0, fmt.Errorf("cache: failed to read rank: %w", err)
	}

	total, err := c.client.ZCard(ctx, leaderboardKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: failed to read leaderboard size: %w", err)
	}
	if total <= 1 {
		return 0, signals.ErrRankUnavailable
	}

	// ZRank is ascending: rank 0 outranks nobody.
	return float64(rank) / float64(total-1) * 100, nil
}

// IncrementScore adds delta to a user's XP score, creating the member if
// absent.
func (c *RankCache) IncrementScore(ctx context.Context, userID string, delta float64) error {
	if err := c.client.ZIncrBy(ctx, leaderboardKey, delta, userID).Err(); err != nil {
		return fmt.Errorf("cache: failed to increment score: %w", err)
	}
	return nil
}
