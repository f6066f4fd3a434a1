package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Platform is the part of *tele.Bot used outside of replying to an update.
type Platform interface {
	ChatByID(id int64) (*tele.Chat, error)
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Queue runs outbound calls in the background; *sender.Dispatcher satisfies it.
type Queue interface {
	Enqueue(ctx context.Context, action, endpoint string, run func(ctx context.Context) error) error
}

// Notifier delivers messages nobody is waiting for: a fulfilled request to
// its author, new feedback and requests to the super admins. Delivery is best
// effort; failures are logged and never reach the update that caused them.
type Notifier struct {
	queue  Queue
	bot    Platform
	admins func() []int64
}

func NewNotifier(queue Queue, bot Platform, admins func() []int64) *Notifier {
	return &Notifier{queue: queue, bot: bot, admins: admins}
}

// Notify sends text to userID.
func (n *Notifier) Notify(ctx context.Context, userID int64, text string) {
	if n == nil || n.queue == nil || n.bot == nil {
		return
	}
	to := tele.ChatID(userID)
	err := n.queue.Enqueue(ctx, "notify", "sendMessage", func(context.Context) error {
		_, err := n.bot.Send(to, text)
		return err
	})
	if err != nil {
		logger.Warn(ctx, "tg.sender", "notify.enqueue_failed",
			slog.Int64("to", userID),
			slog.String("error", netutil.Redact(err)),
		)
	}
}

// NotifyAdmins sends text to every super admin.
func (n *Notifier) NotifyAdmins(ctx context.Context, text string) {
	if n == nil || n.admins == nil {
		return
	}
	for _, id := range n.admins() {
		n.Notify(ctx, id, text)
	}
}
