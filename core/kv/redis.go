// Package kv connects the Redis instance that backs conversation sessions and shared caches.
package kv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/moviebot/core/logger"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	URL      string `yaml:"url" envconfig:"REDIS_URL"`
	PoolSize int    `yaml:"pool_size" envconfig:"REDIS_POOL_SIZE"`
}

// Connect parses the URL, opens a client, and verifies connectivity with PING.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.KV.Error("redis ping failed",
			slog.String("event", "redis.connect"),
			slog.String("host", opts.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.KV.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("host", opts.Addr),
		slog.Int("db", opts.DB),
		slog.Int("pool_open", opts.PoolSize),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return client, nil
}
