package middleware

import (
	"context"
	"time"

	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Deadline bounds each update with timeout. Handlers observe it through
// helpers.BuildContext; calls that take that context give up once it expires.
func Deadline(timeout time.Duration) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c tele.Context) error {
			ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), timeout)
			defer cancel()
			tghelpers.StoreContext(c, ctx)
			return next(c)
		}
	}
}
