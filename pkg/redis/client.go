package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/sieve/pkg/config"
)

// Client wraps the Redis client. The scan checkpoint and the universe cache
// live here; everything degrades gracefully when Redis is disabled.
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New creates a new Redis client from config.
func New(cfg *config.Store) (*Client, error) {
	if !cfg.Bool("REDIS_ENABLED", true) {
		return &Client{enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.String("REDIS_HOST", "localhost"), cfg.String("REDIS_PORT", "6379")),
		Password: cfg.String("REDIS_PASSWORD", ""),
		DB:       cfg.Int("REDIS_DB", 0),
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying redis client
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
