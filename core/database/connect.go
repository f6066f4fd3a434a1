package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/moviebot/core/logger"
)

const (
	defaultMaxConnections = 10
	defaultConnectTimeout = 30 * time.Second
	connectRetryInterval  = 2 * time.Second
)

// Connect opens the pool, retrying until Postgres answers or
// cfg.ConnectTimeout passes. The bot usually starts alongside its database,
// so the first attempts are expected to fail.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	where := []any{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
	start := time.Now()
	for attempt := 1; ; attempt++ {
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err == nil {
			db.SetMaxOpenConns(maxConns)
			db.SetMaxIdleConns(maxConns)
			logger.DB.Info("db connected", append(where,
				slog.String("event", "db.connect"),
				slog.Int("pool_open", maxConns),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)...)
			return db, nil
		}
		logger.DB.Warn("db not ready", append(where,
			slog.String("event", "db.connect"),
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
			slog.String("err", err.Error()),
		)...)

		select {
		case <-ctx.Done():
			logger.DB.Error("db connect failed", append(where,
				slog.String("event", "db.connect"),
				slog.String("status", "fail"),
				slog.Int("attempts", attempt),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)...)
			return nil, fmt.Errorf("db connect after %d attempts: %w", attempt, err)
		case <-time.After(connectRetryInterval):
		}
	}
}
