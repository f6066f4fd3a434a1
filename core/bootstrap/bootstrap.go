package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/moviebot/core/config"
	coredatabase "github.com/m3rciful/moviebot/core/database"
	"github.com/m3rciful/moviebot/core/kv"
	"github.com/m3rciful/moviebot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config     *coreconfig.Config
	Database   coredatabase.Config
	Migrations coredatabase.Migrations
	Redis      kv.Config
	// Seeders run in order after migrations.
	Seeders []Seeder

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate      func(context.Context, coredatabase.Config, coredatabase.Migrations) error
	ConnectRedis func(context.Context, kv.Config) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases every connection opened by Run.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	if o.ConnectRedis == nil {
		o.ConnectRedis = kv.Connect
	}
	return o
}

// Run brings the infrastructure up in order: logger, Postgres, schema
// migrations, seeders, Redis. Anything opened before a failing step is closed.
func Run(ctx context.Context, opts Options) (_ *Result, err error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	opts = opts.withDefaults()
	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	defer func() {
		if err != nil {
			_ = res.Close()
		}
	}()

	if res.DB, err = opts.Connect(ctx, opts.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err = opts.Migrate(ctx, opts.Database, opts.Migrations); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	for i, seeder := range opts.Seeders {
		if seeder == nil {
			continue
		}
		if err = seeder.Seed(ctx, res.DB); err != nil {
			return nil, fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
	}
	if res.Redis, err = opts.ConnectRedis(ctx, opts.Redis); err != nil {
		return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
	}
	return res, nil
}
