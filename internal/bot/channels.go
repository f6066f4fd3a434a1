package bot

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/moviebot/core/logger"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/netutil"
	"github.com/m3rciful/moviebot/core/telegram/state"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

const defaultChannelTitle = "New Channel"

func (h *Handlers) manageChannels(c tele.Context) error {
	list, err := h.svc.Channels.List(tghelpers.BuildContext(c))
	if err != nil {
		return err
	}
	return tghelpers.SafeEdit(c, txtManageChannels, channelsMarkup(list))
}

func (h *Handlers) addChannel(c tele.Context) error {
	return h.enter(c, WaitingChannelID, txtAskChannelID)
}

// onChannelID registers the channel right away when the platform tells us its
// invite link; otherwise it asks the admin for the link.
func (h *Handlers) onChannelID(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	channelID, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
	if err != nil {
		return c.Send(txtInvalidChannelID)
	}

	title, link := h.resolveChannel(c, channelID)
	if link != "" {
		if _, err := h.svc.Channels.Add(ctx, channelID, title, link); err != nil {
			return err
		}
		if err := h.machine.Reset(ctx, userID); err != nil {
			return err
		}
		return c.Send(txtChannelAdded(title, link))
	}

	if err := h.machine.SetScratch(ctx, userID, scratchChannelID, strconv.FormatInt(channelID, 10)); err != nil {
		return err
	}
	return h.enter(c, WaitingChannelLink, txtAskChannelLink)
}

// resolveChannel asks the platform for the channel's title and a link users
// can join by. A public username wins over the invite link. Lookup failures
// leave the link empty.
func (h *Handlers) resolveChannel(c tele.Context, channelID int64) (title, link string) {
	title = defaultChannelTitle
	if h.platform == nil {
		return title, ""
	}
	chat, err := h.platform.ChatByID(channelID)
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), "tg", "channel.lookup_failed",
			slog.Int64("channel_id", channelID),
			slog.String("error", netutil.Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
		)
		return title, ""
	}
	if chat.Title != "" {
		title = chat.Title
	}
	link = chat.InviteLink
	if chat.Username != "" {
		link = "https://t.me/" + chat.Username
	}
	return title, link
}

func (h *Handlers) onChannelLink(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	values, missing, err := h.machine.Collect(ctx, userID, WaitingChannelLink)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return h.sessionExpired(c, userID)
	}
	raw := values[scratchChannelID]
	channelID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return h.sessionExpired(c, userID)
	}
	if _, err := h.svc.Channels.Add(ctx, channelID, "Channel "+raw, strings.TrimSpace(c.Text())); err != nil {
		return err
	}
	if err := h.finish(ctx, userID, scratchChannelID); err != nil {
		return err
	}
	return c.Send(txtChannelAddedSimple)
}

// manageChannel opens one channel and remembers it for the edit buttons.
func (h *Handlers) manageChannel(c tele.Context, id int64) error {
	ctx := tghelpers.BuildContext(c)
	ch, err := h.svc.Channels.ByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return tghelpers.Notice(c, txtChannelMissing)
	}
	if err != nil {
		return err
	}
	if err := h.machine.SetScratch(ctx, c.Sender().ID, scratchEditChannel, strconv.FormatInt(ch.ID, 10)); err != nil {
		return err
	}
	return tghelpers.SafeEdit(c, txtChannelDetail(ch.Title, ch.ChannelID, ch.InviteLink), channelMarkup())
}

func (h *Handlers) editChannelTitle(c tele.Context) error {
	return h.editChannel(c, WaitingEditChannelTitle, txtAskChannelTitle)
}

func (h *Handlers) editChannelLink(c tele.Context) error {
	return h.editChannel(c, WaitingEditChannelLink, txtAskChannelLinkEdit)
}

func (h *Handlers) editChannel(c tele.Context, next state.State, prompt string) error {
	_, ok, err := h.machine.Scratch(tghelpers.BuildContext(c), c.Sender().ID, scratchEditChannel)
	if err != nil {
		return err
	}
	if !ok {
		return h.sessionExpired(c, c.Sender().ID)
	}
	return h.enter(c, next, prompt)
}

func (h *Handlers) onEditChannelTitle(c tele.Context) error {
	title := strings.TrimSpace(c.Text())
	return h.patchChannel(c, WaitingEditChannelTitle, domain.ChannelPatch{Title: &title}, txtChannelTitleSaved)
}

func (h *Handlers) onEditChannelLink(c tele.Context) error {
	link := strings.TrimSpace(c.Text())
	return h.patchChannel(c, WaitingEditChannelLink, domain.ChannelPatch{InviteLink: &link}, txtChannelLinkSaved)
}

func (h *Handlers) patchChannel(c tele.Context, st state.State, patch domain.ChannelPatch, done string) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	values, missing, err := h.machine.Collect(ctx, userID, st)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(values[scratchEditChannel], 10, 64)
	if len(missing) > 0 || err != nil {
		return h.sessionExpired(c, userID)
	}
	if err := h.svc.Channels.Update(ctx, id, patch); err != nil {
		return err
	}
	if err := h.machine.Reset(ctx, userID); err != nil {
		return err
	}
	if err := c.Send(done); err != nil {
		return err
	}
	return h.sendAdminPanel(c)
}

// deleteChannel removes the channel remembered by manageChannel.
func (h *Handlers) deleteChannel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	id, ok, err := h.machine.ScratchInt(ctx, userID, scratchEditChannel)
	if err != nil {
		return err
	}
	if !ok {
		return h.sessionExpired(c, userID)
	}
	if err := h.svc.Channels.Delete(ctx, id); err != nil {
		return err
	}
	if err := h.machine.ClearScratch(ctx, userID, scratchEditChannel); err != nil {
		return err
	}
	if err := c.Send(txtChannelDeleted); err != nil {
		return err
	}
	return h.sendAdminPanel(c)
}
