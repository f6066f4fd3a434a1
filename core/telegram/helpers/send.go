package helpers

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Outcome tells an optional platform call that did its work apart from one
// that had nothing to act on. Failures are reported through the error instead.
type Outcome int

const (
	// Applied means the call changed something on the platform.
	Applied Outcome = iota
	// NotApplicable means there was nothing to change: the message was gone or already identical.
	NotApplicable
)

func (o Outcome) String() string {
	if o == NotApplicable {
		return "not_applicable"
	}
	return "applied"
}

func markdown(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	if len(markup) > 0 && markup[0] != nil {
		return c.Send(text, markup[0])
	}
	return c.Send(text)
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Send(text, markdown(markup))
}

// EditMD edits the callback's message text. An identical edit is NotApplicable.
func EditMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) (Outcome, error) {
	err := c.Edit(text, markdown(markup))
	return outcomeOf(err, IsNotModified)
}

// EditCaption replaces the caption of the callback's media message.
func EditCaption(c tele.Context, caption string, markup ...*tele.ReplyMarkup) (Outcome, error) {
	err := c.EditCaption(caption, markdown(markup))
	return outcomeOf(err, IsNotModified)
}

// Delete removes the message the update refers to. A message that is already
// gone, or that the bot may not delete, is NotApplicable.
func Delete(c tele.Context) (Outcome, error) {
	if c.Message() == nil {
		return NotApplicable, nil
	}
	return outcomeOf(c.Delete(), IsMessageGone)
}

// SafeEdit shows text in place of the current menu. Media messages cannot be
// turned into text, so they are replaced by a fresh message instead; outside
// of callbacks it simply sends.
func SafeEdit(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return SendMD(c, text, markup...)
	}
	if hasMedia(cb.Message) {
		if _, err := Delete(c); err != nil {
			logger.Warn(BuildContext(c), "tg", "message.delete_failed",
				slog.String("error", netutil.Redact(err)),
				slog.String("error_kind", netutil.Classify(err)),
			)
		}
		return SendMD(c, text, markup...)
	}
	_, err := EditMD(c, text, markup...)
	return err
}

// Alert answers the callback with a modal notice.
func Alert(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}

// Notice answers the callback with a toast.
func Notice(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

// IsNotModified reports the Bot API rejection for an edit that changes nothing.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

// IsMessageGone reports Bot API rejections for a message that no longer exists or cannot be removed.
func IsMessageGone(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be deleted") ||
		strings.Contains(msg, "message to edit not found")
}

func outcomeOf(err error, benign func(error) bool) (Outcome, error) {
	switch {
	case err == nil:
		return Applied, nil
	case benign(err):
		return NotApplicable, nil
	default:
		return Applied, err
	}
}

func hasMedia(m *tele.Message) bool {
	return m.Photo != nil || m.Video != nil || m.Animation != nil
}
