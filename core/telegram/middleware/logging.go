package middleware

import (
	"time"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"log/slog"

	"github.com/maypok86/otter"
	tele "gopkg.in/telebot.v4"
)

const (
	receiptMemory   = 10 * time.Second
	receiptCapacity = 4096
)

// LoggerMiddleware sets the request id and the logging context, and logs a single
// receipt line per update. Receipts are deduplicated by update_id so wrapping
// several branches with it logs each update once.
func LoggerMiddleware() tele.MiddlewareFunc {
	seen, err := otter.MustBuilder[int, struct{}](receiptCapacity).
		WithTTL(receiptMemory).
		Build()
	if err != nil {
		panic(err)
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			upd := c.Update()
			user := c.Sender()
			chat := c.Chat()

			chatID, userID := int64(0), int64(0)
			if chat != nil {
				chatID = chat.ID
			}
			if user != nil {
				userID = user.ID
			}
			rid := logger.BuildRID(upd.ID, chatID, userID)
			c.Set("rid", rid)
			c.Set("update_start", time.Now())

			ctx := logger.WithRID(logger.Background(), rid)
			ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
			ctx = logger.WithLogger(ctx, logger.Component("tg"))
			tghelpers.StoreContext(c, ctx)

			if logger.ShouldSampleDebug() && seen.SetIfAbsent(upd.ID, struct{}{}) {
				attrs := []slog.Attr{
					slog.String("status", "ok"),
					slog.String("rid", rid),
					slog.Int("update_id", upd.ID),
					slog.String("kind", UpdateKind(upd)),
				}
				if chatID != 0 {
					attrs = append(attrs,
						slog.Int64("chat_id", chatID),
						slog.String("chat_type", string(chat.Type)),
					)
				}
				if userID != 0 {
					attrs = append(attrs, slog.Int64("user_id", userID))
					if user.Username != "" {
						attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
					}
					if user.LanguageCode != "" {
						attrs = append(attrs, slog.String("lang", user.LanguageCode))
					}
				}

				switch {
				case upd.Callback != nil:
					if data := callbacks.Data(upd.Callback); data != "" {
						attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(data, 128)))
					}
				case upd.Query != nil:
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Query.Text, 256)))
				case upd.Message != nil:
					if t := c.Text(); t != "" {
						attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
					}
				}
				logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
			}

			return next(c)
		}
	}
}

// UpdateKind names the update shape: callback, message, inline_query or other.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}
