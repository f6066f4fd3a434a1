package telegram

import (
	"context"
	"log/slog"

	"github.com/m3rciful/moviebot/core/logger"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/middleware"
	"github.com/m3rciful/moviebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// HandleError is the single error boundary for updates. It classifies and logs
// err; the update is dropped and the process keeps running. c is nil for
// errors raised outside of an update, such as poller failures.
func HandleError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := context.Background()
	attrs := []slog.Attr{
		slog.String("error", logger.SanitizeLimit(netutil.Redact(err), 512)),
		slog.String("error_kind", netutil.Classify(err)),
	}
	if c != nil {
		ctx = tghelpers.BuildContext(c)
		attrs = append(attrs, slog.String("update_kind", middleware.UpdateKind(c.Update())))
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "update.failed", attrs...)
}
