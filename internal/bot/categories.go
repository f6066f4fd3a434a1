package bot

import (
	"strings"

	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func (h *Handlers) manageCategories(c tele.Context) error {
	cats, err := h.svc.Categories.List(tghelpers.BuildContext(c))
	if err != nil {
		return err
	}
	return tghelpers.SafeEdit(c, txtManageCategories, categoriesAdminMarkup(cats))
}

func (h *Handlers) addCategory(c tele.Context) error {
	return h.enter(c, WaitingCategoryName, txtAskCategoryName)
}

func (h *Handlers) onCategoryName(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	cat, err := h.svc.Categories.Add(ctx, strings.TrimSpace(c.Text()))
	if err != nil {
		return err
	}
	if err := h.machine.Reset(ctx, c.Sender().ID); err != nil {
		return err
	}
	if err := c.Send(txtCategoryAdded(cat.Name)); err != nil {
		return err
	}
	return h.sendAdminPanel(c)
}

// deleteCategory removes the category and redraws the list in place.
func (h *Handlers) deleteCategory(c tele.Context, id int64) error {
	if err := h.svc.Categories.Delete(tghelpers.BuildContext(c), id); err != nil {
		return err
	}
	if err := tghelpers.Notice(c, txtCategoryDeleted); err != nil {
		return err
	}
	return h.manageCategories(c)
}
