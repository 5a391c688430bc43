package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// Client wraps the go-redis client. Redis connections are created here only.
// When Redis is disabled by config the client degrades to a no-op and callers
// fall through to their underlying source.
type Client struct {
	rdb     *goredis.Client
	logger  *logger.Logger
	enabled bool
}

// New creates a new Redis client from config
func New(cfg *config.Config, log *logger.Logger) (*Client, error) {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, caching is a no-op")
		return &Client{enabled: false, logger: log}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{rdb: rdb, logger: log, enabled: true}, nil
}

// Enabled reports whether Redis is available
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying go-redis client
func (c *Client) Redis() *goredis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
