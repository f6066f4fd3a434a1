package middleware

import (
	"time"

	"github.com/m3rciful/moviebot/core/logger"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"log/slog"

	"github.com/maypok86/otter"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

const (
	limiterCapacity = 10_000
	limiterIdle     = 10 * time.Minute
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the sustained minimum spacing between updates from one user.
	Interval time.Duration
	// Burst is how many updates may arrive back to back before spacing applies.
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware returns a middleware that keeps one token bucket per
// user. Buckets of idle users are evicted after a while.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limiters, err := otter.MustBuilder[int64, *rate.Limiter](limiterCapacity).
		WithTTL(limiterIdle).
		Build()
	if err != nil {
		panic(err)
	}

	limiterFor := func(userID int64) *rate.Limiter {
		if l, ok := limiters.Get(userID); ok {
			return l
		}
		limiters.SetIfAbsent(userID, rate.NewLimiter(rate.Every(opts.Interval), opts.Burst))
		if l, ok := limiters.Get(userID); ok {
			return l
		}
		return rate.NewLimiter(rate.Every(opts.Interval), opts.Burst)
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if limiterFor(user.ID).Allow() {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			logger.Warn(ctx, "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
				slog.Int64("user_id", user.ID),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
