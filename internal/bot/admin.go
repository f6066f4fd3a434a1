package bot

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/moviebot/core/telegram/format"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/keyboard"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

const (
	feedbackLimit = 10
	usersFileName = "users_export.csv"
)

func (h *Handlers) adminPanel(c tele.Context) error {
	return tghelpers.SafeEdit(c, txtAdminPanel, adminPanelMarkup(h.auth.IsSuperAdmin(c.Sender().ID)))
}

// sendAdminPanel posts a fresh panel below the reply of a finished action.
func (h *Handlers) sendAdminPanel(c tele.Context) error {
	return tghelpers.SendMD(c, txtAdminPanel, adminPanelMarkup(h.auth.IsSuperAdmin(c.Sender().ID)))
}

func (h *Handlers) stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	users, err := h.svc.Users.Count(ctx)
	if err != nil {
		return err
	}
	movies, err := h.svc.Movies.Count(ctx)
	if err != nil {
		return err
	}
	views, err := h.svc.Movies.CountViews(ctx)
	if err != nil {
		return err
	}
	pending, err := h.svc.Requests.CountPending(ctx)
	if err != nil {
		return err
	}
	return tghelpers.SafeEdit(c, txtStats(users, movies, views, pending), keyboard.Rows(back(cbAdminPanel)))
}

func (h *Handlers) requests(c tele.Context) error {
	pending, err := h.svc.Requests.Pending(tghelpers.BuildContext(c))
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return tghelpers.Notice(c, txtNoRequests)
	}
	var b strings.Builder
	b.WriteString(txtRequestList + "\n\n")
	for _, r := range pending {
		b.WriteString(txtRequestItem(r.ID, r.Title, userTag(r.Username, r.UserID)))
	}
	return tghelpers.SafeEdit(c, b.String(), keyboard.Rows(back(cbAdminPanel)))
}

// fulfillRequest closes a request and tells its author the movie is in.
func (h *Handlers) fulfillRequest(c tele.Context, id int64) error {
	ctx := tghelpers.BuildContext(c)
	req, err := h.svc.Requests.SetStatus(ctx, id, domain.RequestFulfilled)
	if err != nil {
		return err
	}
	h.notify.Notify(ctx, req.UserID, txtRequestFulfilled(req.Title))
	return c.Send(txtRequestStatus(req.ID, string(domain.RequestFulfilled)))
}

func (h *Handlers) rejectRequest(c tele.Context, id int64) error {
	req, err := h.svc.Requests.SetStatus(tghelpers.BuildContext(c), id, domain.RequestRejected)
	if err != nil {
		return err
	}
	return c.Send(txtRequestStatus(req.ID, string(domain.RequestRejected)))
}

// listUsers exports every user as a CSV document.
func (h *Handlers) listUsers(c tele.Context) error {
	if err := c.Send(txtGeneratingUsers); err != nil {
		return err
	}
	users, err := h.svc.Users.List(tghelpers.BuildContext(c))
	if err != nil {
		return err
	}
	data, err := usersCSV(users)
	if err != nil {
		return err
	}
	return c.Send(&tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: usersFileName,
		MIME:     "text/csv",
	})
}

func usersCSV(users []domain.User) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"ID", "Username", "FirstName", "Role", "CreatedAt"})
	for _, u := range users {
		_ = w.Write([]string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.FirstName,
			string(u.Role),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// feedbacks posts the newest unresolved feedback, one message each with its
// own resolve and delete buttons.
func (h *Handlers) feedbacks(c tele.Context) error {
	list, err := h.svc.Feedback.Unresolved(tghelpers.BuildContext(c), feedbackLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		if err := tghelpers.Notice(c, txtNoFeedback); err != nil {
			return err
		}
		return c.Send(txtNoFeedbackMsg)
	}
	for _, fb := range list {
		text := txtFeedbackDetail(userTag(fb.Username, fb.UserID), fb.Message, fb.CreatedAt.UTC().Format("2006-01-02 15:04"))
		if err := tghelpers.SendMD(c, text, feedbackMarkup(fb.ID)); err != nil {
			return err
		}
	}
	return c.Send(txtFeedbackPrompt, keyboard.Rows(back(cbAdminPanel)))
}

// resolveFeedback marks the entry resolved and stamps the message it was shown in.
func (h *Handlers) resolveFeedback(c tele.Context, id int64) error {
	if err := h.svc.Feedback.Resolve(tghelpers.BuildContext(c), id); err != nil {
		return err
	}
	if err := tghelpers.Notice(c, txtMarkedResolved); err != nil {
		return err
	}
	msg := c.Callback().Message
	if msg == nil {
		return nil
	}
	_, err := tghelpers.EditMD(c, format.Escape(msg.Text)+txtResolvedSuffix)
	return err
}

func (h *Handlers) deleteFeedback(c tele.Context, id int64) error {
	if err := h.svc.Feedback.Delete(tghelpers.BuildContext(c), id); err != nil {
		return err
	}
	if err := tghelpers.Notice(c, txtFeedbackDeleted); err != nil {
		return err
	}
	_, err := tghelpers.Delete(c)
	return err
}
