package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Option adjusts client options parsed from the URL.
type Option func(*redis.Options)

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// WithTimeouts sets dial and read/write timeouts.
func WithTimeouts(dial, rw time.Duration) Option {
	return func(o *redis.Options) {
		if dial > 0 {
			o.DialTimeout = dial
		}
		if rw > 0 {
			o.ReadTimeout = rw
			o.WriteTimeout = rw
		}
	}
}

// NewClient creates a Redis client and verifies the server is reachable.
func NewClient(ctx context.Context, redisURL string, opts ...Option) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(options)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
