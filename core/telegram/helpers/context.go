package helpers

import (
	"context"

	"github.com/m3rciful/moviebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext keeps ctx on c for the rest of the update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok
}

// BuildContext returns the update's context, creating it on first use with
// the rid and the update, user and chat ids that every log line carries.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}
	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler names the route serving the update.
func WithHandler(c tele.Context, handler string) context.Context {
	return enrich(c, handler, logger.WithHandler)
}

// WithState records the sender's conversation state.
func WithState(c tele.Context, state string) context.Context {
	return enrich(c, state, logger.WithState)
}

// WithVerdict records the access gate decision.
func WithVerdict(c tele.Context, verdict string) context.Context {
	return enrich(c, verdict, logger.WithVerdict)
}

func enrich(c tele.Context, v string, with func(context.Context, string) context.Context) context.Context {
	ctx := BuildContext(c)
	if v == "" {
		return ctx
	}
	ctx = with(ctx, v)
	StoreContext(c, ctx)
	return ctx
}
