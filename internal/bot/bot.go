// Package bot holds the movie bot's workflows: the end-user menu, the admin
// panel and the multi-step conversations driven by the state machine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	tg "github.com/m3rciful/moviebot/core/telegram"
	"github.com/m3rciful/moviebot/core/telegram/access"
	"github.com/m3rciful/moviebot/core/telegram/callbacks"
	"github.com/m3rciful/moviebot/core/telegram/commands"
	"github.com/m3rciful/moviebot/core/telegram/format"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/state"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// Deps are the collaborators of Handlers.
type Deps struct {
	Services  domain.Services
	Machine   *state.Machine
	Authority *Authority
	Notifier  *Notifier
	Platform  Platform
	// Username is the bot's @username without the @, used in deep links.
	Username string
	// Codes draws candidate movie codes. Nil draws random four digit codes.
	Codes func() int64
}

// Handlers implements every route the bot serves.
type Handlers struct {
	svc      domain.Services
	machine  *state.Machine
	auth     *Authority
	notify   *Notifier
	platform Platform
	username string
	codes    func() int64
}

func New(d Deps) *Handlers {
	codes := d.Codes
	if codes == nil {
		codes = func() int64 { return 1000 + rand.Int63n(9000) }
	}
	return &Handlers{
		svc:      d.Services,
		machine:  d.Machine,
		auth:     d.Authority,
		notify:   d.Notifier,
		platform: d.Platform,
		username: d.Username,
		codes:    codes,
	}
}

// Register binds every command, callback, state handler and the inline query
// handler into reg. Admin-only routes are wrapped in the authority guards here
// so a button kept from an older menu cannot bypass a revoked role.
func (h *Handlers) Register(reg *tg.Registry) error {
	admin := h.auth.Admin()
	super := h.auth.Super()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.start,
		Description: "Open the main menu",
	})
	reg.RegisterCommandPattern(tg.CommandPattern{
		Matcher:   callbacks.Int("/fulfill_", h.fulfillRequest),
		AdminOnly: true,
	})
	reg.RegisterCommandPattern(tg.CommandPattern{
		Matcher:   callbacks.Int("/reject_", h.rejectRequest),
		AdminOnly: true,
	})

	exact := []struct {
		data  string
		h     tele.HandlerFunc
		guard tele.MiddlewareFunc
	}{
		{cbAdminPanel, h.adminPanel, admin},
		{cbUserMode, h.userMode, nil},
		{cbAdminStats, h.stats, admin},
		{cbAdminRequests, h.requests, admin},
		{cbAdminAddMovie, h.addMovie, admin},
		{cbAdminAddChannel, h.addChannel, admin},
		{cbAdminFeedbacks, h.feedbacks, admin},
		{cbManageChannels, h.manageChannels, admin},
		{cbManageMovies, h.manageMovies, admin},
		{cbManageMovieByCode, h.manageMovieByCode, admin},
		{cbManageCategories, h.manageCategories, admin},
		{cbAddCategory, h.addCategory, admin},
		{cbMakeAdmin, h.makeAdmin, super},
		{cbListUsers, h.listUsers, admin},
		{cbDeleteAdminAccess, h.deleteAdminAccess, super},
		{cbFeedback, h.askFeedback, nil},
		{cbRandomMovie, h.randomMovie, nil},
		{cbSearchMovie, h.searchMovie, nil},
		{cbCategories, h.browseCategories, nil},
		{cbTrending, h.trending, nil},
		{cbRequestMovie, h.askRequest, nil},
		{cbEditChannelTitle, h.editChannelTitle, admin},
		{cbEditChannelLink, h.editChannelLink, admin},
		{cbDeleteChannel, h.deleteChannel, admin},
		{cbEditMovieTitle, h.editMovieTitle, admin},
		{cbDeleteMovie, h.deleteMovie, admin},
		{cbIgnore, func(tele.Context) error { return nil }, nil},
	}
	for _, r := range exact {
		if err := reg.RegisterCallback(r.data, guarded(r.h, r.guard)); err != nil {
			return err
		}
	}

	patterns := []callbacks.Matcher{
		callbacks.OptionalInt(cbManageAdmins, guardedOptional(h.manageAdmins, super)),
		callbacks.IntPair(cbRatePrefix, h.rate),
		callbacks.Int(cbManageAdminPref, guardedInt(h.manageAdmin, super)),
		callbacks.Int(cbDeleteCatPrefix, guardedInt(h.deleteCategory, admin)),
		callbacks.Int(cbManageChanPrefix, guardedInt(h.manageChannel, admin)),
		callbacks.IntOrNone(cbSetCategoryPref, guardedOptional(h.setMovieCategory, admin)),
		callbacks.Int(cbCategoryPrefix, h.browseCategory),
		callbacks.Int(cbResolveFbPrefix, guardedInt(h.resolveFeedback, admin)),
		callbacks.Int(cbDeleteFbPrefix, guardedInt(h.deleteFeedback, admin)),
	}
	for _, m := range patterns {
		if err := reg.RegisterCallbackPattern(m); err != nil {
			return err
		}
	}

	steps := []struct {
		st    state.State
		kind  state.Kind
		h     tele.HandlerFunc
		guard tele.MiddlewareFunc
	}{
		{WaitingMovieUpload, state.KindVideo, h.onMovieUpload, admin},
		{WaitingMovieTitle, state.KindText, h.onMovieTitle, admin},
		{WaitingChannelID, state.KindText, h.onChannelID, admin},
		{WaitingChannelLink, state.KindText, h.onChannelLink, admin},
		{WaitingEditChannelTitle, state.KindText, h.onEditChannelTitle, admin},
		{WaitingEditChannelLink, state.KindText, h.onEditChannelLink, admin},
		{WaitingMovieEditCode, state.KindText, h.onMovieEditCode, admin},
		{WaitingEditMovieTitle, state.KindText, h.onEditMovieTitle, admin},
		{WaitingCategoryName, state.KindText, h.onCategoryName, admin},
		{WaitingPromoteID, state.KindText, h.onPromoteID, super},
		{WaitingMovieCode, state.KindText, h.onMovieCode, nil},
		{WaitingFeedback, state.KindText, h.onFeedback, nil},
		{WaitingRequestTitle, state.KindText, h.onRequestTitle, nil},
	}
	for _, s := range steps {
		if err := reg.RegisterStateHandler(s.st, s.kind, guarded(s.h, s.guard)); err != nil {
			return err
		}
	}

	reg.SetQueryHandler(h.inlineQuery)
	return nil
}

func guarded(h tele.HandlerFunc, guard tele.MiddlewareFunc) tele.HandlerFunc {
	if guard == nil {
		return h
	}
	return guard(h)
}

func guardedInt(h func(tele.Context, int64) error, guard tele.MiddlewareFunc) func(tele.Context, int64) error {
	return func(c tele.Context, n int64) error {
		return guard(func(c tele.Context) error { return h(c, n) })(c)
	}
}

func guardedOptional(h func(tele.Context, int64, bool) error, guard tele.MiddlewareFunc) func(tele.Context, int64, bool) error {
	return func(c tele.Context, n int64, flag bool) error {
		return guard(func(c tele.Context) error { return h(c, n, flag) })(c)
	}
}

// RequiredChannels adapts the channel store to the access gate.
func (h *Handlers) RequiredChannels(ctx context.Context) ([]access.Channel, error) {
	list, err := h.svc.Channels.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]access.Channel, len(list))
	for i, ch := range list {
		out[i] = access.Channel{ChatID: ch.ChannelID, Title: ch.Title, InviteLink: ch.InviteLink}
	}
	return out, nil
}

// GateOptions are the middleware options of the subscription gate.
func GateOptions() access.MiddlewareOptions {
	return access.MiddlewareOptions{Prompt: gatePrompt, ConfirmData: CheckSubscription}
}

// sessionExpired ends a broken conversation: the user is told and returned to Idle.
func (h *Handlers) sessionExpired(c tele.Context, userID int64) error {
	ctx := tghelpers.BuildContext(c)
	if err := h.machine.Reset(ctx, userID); err != nil {
		return err
	}
	if c.Callback() != nil {
		return tghelpers.Alert(c, txtSessionExpired)
	}
	return c.Send(txtSessionExpired)
}

// finish returns the user to Idle and clears the scratch keys of the finished conversation.
func (h *Handlers) finish(ctx context.Context, userID int64, scratch ...string) error {
	if err := h.machine.Reset(ctx, userID); err != nil {
		return err
	}
	return h.machine.ClearScratch(ctx, userID, scratch...)
}

// enter moves the user into st and sends the prompt for it.
func (h *Handlers) enter(c tele.Context, st state.State, prompt string) error {
	if err := h.machine.Set(tghelpers.BuildContext(c), c.Sender().ID, st); err != nil {
		return err
	}
	return c.Send(prompt)
}

func ignoreConflict(err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return nil
	}
	return err
}

func userTag(username string, id int64) string {
	if username != "" {
		return fmt.Sprintf("@%s (`%d`)", format.Escape(username), id)
	}
	return fmt.Sprintf("[%d](tg://user?id=%d)", id, id)
}
