package bot

import (
	"errors"
	"strconv"
	"strings"

	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// manageAdmins shows one page of admins. The bare route opens the first page.
func (h *Handlers) manageAdmins(c tele.Context, page int64, paged bool) error {
	if !paged {
		page = 0
	}
	ctx := tghelpers.BuildContext(c)
	total, err := h.svc.Users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	admins, err := h.svc.Users.ListAdmins(ctx, int(page)*adminsPerPage, adminsPerPage)
	if err != nil {
		return err
	}
	return tghelpers.SafeEdit(c, txtManageAdmins, adminsMarkup(admins, int(page), total))
}

// manageAdmin opens one admin and remembers it for the remove button.
func (h *Handlers) manageAdmin(c tele.Context, id int64) error {
	ctx := tghelpers.BuildContext(c)
	u, err := h.svc.Users.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return tghelpers.Notice(c, txtAdminNotFound)
	}
	if err != nil {
		return err
	}
	if err := h.machine.SetScratch(ctx, c.Sender().ID, scratchEditAdmin, strconv.FormatInt(u.ID, 10)); err != nil {
		return err
	}
	name := u.FirstName
	if name == "" {
		name = "N/A"
	}
	username := u.Username
	if username == "" {
		username = "n/a"
	}
	return tghelpers.SafeEdit(c, txtAdminDetail(name, username, u.ID, string(u.Role)), adminMarkup())
}

// deleteAdminAccess demotes the admin remembered by manageAdmin. Configured
// super admins cannot be demoted.
func (h *Handlers) deleteAdminAccess(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	target, ok, err := h.machine.ScratchInt(ctx, userID, scratchEditAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return h.sessionExpired(c, userID)
	}
	if h.auth.IsSuperAdmin(target) {
		return tghelpers.Notice(c, txtCannotRemoveRoot)
	}
	if err := h.svc.Users.SetRole(ctx, target, domain.RoleUser); err != nil {
		return err
	}
	h.auth.Forget(target)
	if err := h.machine.ClearScratch(ctx, userID, scratchEditAdmin); err != nil {
		return err
	}
	if err := tghelpers.Notice(c, txtAccessRemoved); err != nil {
		return err
	}
	if err := c.Send(txtAccessRemovedFor(target)); err != nil {
		return err
	}
	return h.sendAdminPanel(c)
}

func (h *Handlers) makeAdmin(c tele.Context) error {
	return h.enter(c, WaitingPromoteID, txtAskPromoteID)
}

// onPromoteID promotes a known user. An unknown or malformed id keeps the
// conversation open so another id can be sent.
func (h *Handlers) onPromoteID(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	target, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
	if err != nil || target <= 0 {
		return c.Send(txtInvalidID)
	}
	if _, err := h.svc.Users.Get(ctx, target); errors.Is(err, domain.ErrNotFound) {
		return c.Send(txtUserNotFound)
	} else if err != nil {
		return err
	}
	if err := h.svc.Users.SetRole(ctx, target, domain.RoleAdmin); err != nil {
		return err
	}
	h.auth.Forget(target)
	if err := h.machine.Reset(ctx, c.Sender().ID); err != nil {
		return err
	}
	return c.Send(txtUserPromoted(target))
}
