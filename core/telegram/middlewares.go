package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/moviebot/core/config"
	"github.com/m3rciful/moviebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ChainOptions tunes DefaultMiddlewares beyond what the core config carries.
type ChainOptions struct {
	OnLimited        tele.HandlerFunc
	SerializePerUser bool
}

// DefaultMiddlewares builds the shared middleware chain for bots.
// Order: recover, logger, deadline, metrics, rate_limit, serialize.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware()},
	}

	if cfg != nil && cfg.Telegram.HandlerTimeout > 0 {
		mws = append(mws, Middleware{Name: "deadline", Use: middleware.Deadline(cfg.Telegram.HandlerTimeout)})
	}
	mws = append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[t] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Burst:     cfg.RateLimit.Burst,
					Exclude:   ex,
					OnLimited: opts.OnLimited,
				}),
			})
		}
	}

	if opts.SerializePerUser {
		mws = append(mws, Middleware{Name: "serialize", Use: middleware.SerializePerUser()})
	}
	return mws
}
