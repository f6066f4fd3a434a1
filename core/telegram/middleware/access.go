package middleware

import (
	"context"
	"log/slog"

	"github.com/m3rciful/moviebot/core/logger"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AuthorityCheck reports whether userID may run the wrapped handler.
type AuthorityCheck func(ctx context.Context, userID int64) (bool, error)

// AuthorityOptions defines how restricted handlers behave.
type AuthorityOptions struct {
	// Name labels the restriction in logs, e.g. "admin".
	Name     string
	Check    AuthorityCheck
	OnReject tele.HandlerFunc
}

// RequireAuthority runs next only when opts.Check approves the sender.
// Updates without a sender are rejected.
func RequireAuthority(opts AuthorityOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.Check == nil {
			return next
		}
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			var userID int64
			if u := c.Sender(); u != nil {
				userID = u.ID
			}
			allowed := false
			if userID != 0 {
				ok, err := opts.Check(ctx, userID)
				if err != nil {
					return err
				}
				allowed = ok
			}
			if allowed {
				return next(c)
			}
			logger.Info(ctx, "tg", "authority.reject",
				slog.String("status", "skip"),
				slog.String("reason", opts.Name),
				slog.Int64("user_id", userID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
