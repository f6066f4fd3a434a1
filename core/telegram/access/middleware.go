package access

import (
	"log/slog"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Prompt holds the texts the gate shows to users.
type Prompt struct {
	MustSubscribe    string
	SubscribeFirst   string
	NotSubscribedAll string
	CheckButton      string
	AccessGranted    string
	WelcomeBack      string
}

// MiddlewareOptions configures Gate.Middleware.
type MiddlewareOptions struct {
	Prompt Prompt
	// ConfirmData is the callback data of the "I subscribed" button.
	ConfirmData string
}

// Middleware enforces the gate. Only Allow reaches next; every other verdict
// answers the update here so no callback is left spinning.
func (g *Gate) Middleware(opts MiddlewareOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var userID int64
			if u := c.Sender(); u != nil {
				userID = u.ID
			}
			cb := c.Callback()
			confirm := cb != nil && opts.ConfirmData != "" && callbacks.Data(cb) == opts.ConfirmData

			ctx := tghelpers.BuildContext(c)
			decision, err := g.Evaluate(ctx, userID, confirm)
			if err != nil {
				return err
			}
			ctx = tghelpers.WithVerdict(c, decision.Verdict.String())
			logger.Debug(ctx, "tg.gate", "gate.decision",
				slog.String("reason", decision.Reason),
				slog.Int("missing", len(decision.Missing)),
			)

			switch decision.Verdict {
			case Challenge:
				return challenge(c, opts, decision.Missing, confirm)
			case Confirmed:
				return confirmed(c, opts.Prompt)
			}
			return next(c)
		}
	}
}

func challenge(c tele.Context, opts MiddlewareOptions, missing []Channel, confirm bool) error {
	p := opts.Prompt
	if confirm {
		return tghelpers.Alert(c, p.NotSubscribedAll)
	}
	switch {
	case c.Callback() != nil:
		if err := tghelpers.Alert(c, p.SubscribeFirst); err != nil {
			return err
		}
		return c.Send(p.MustSubscribe, PromptMarkup(missing, p.CheckButton, opts.ConfirmData))
	case c.Query() != nil:
		return c.Answer(&tele.QueryResponse{
			Results:    tele.Results{},
			CacheTime:  0,
			IsPersonal: true,
		})
	case c.Message() != nil:
		return c.Send(p.MustSubscribe, PromptMarkup(missing, p.CheckButton, opts.ConfirmData))
	}
	return nil
}

func confirmed(c tele.Context, p Prompt) error {
	if err := tghelpers.Notice(c, p.AccessGranted); err != nil {
		return err
	}
	if _, err := tghelpers.Delete(c); err != nil {
		logger.Warn(tghelpers.BuildContext(c), "tg.gate", "gate.prompt_delete_failed",
			slog.String("error", netutil.Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
		)
	}
	return c.Send(p.WelcomeBack)
}

// PromptMarkup lists one join button per missing channel followed by the confirm button.
// Channels without an invite link get no button.
func PromptMarkup(missing []Channel, checkText, confirmData string) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(missing)+1)
	for _, ch := range missing {
		if ch.InviteLink == "" {
			continue
		}
		rows = append(rows, []tele.InlineButton{{Text: ch.Title, URL: ch.InviteLink}})
	}
	rows = append(rows, []tele.InlineButton{{Text: checkText, Data: confirmData}})
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}
