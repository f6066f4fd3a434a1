package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/moviebot/core/logger"
	"github.com/m3rciful/moviebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/core/telegram/keyboard"
	"github.com/m3rciful/moviebot/core/telegram/ui"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

const (
	deepLinkPrefix  = "movie_"
	trendingLimit   = 10
	inlineLimit     = 20
	inlineCacheTime = 300
)

// start registers the user, ends any open conversation and shows the menu.
// A "movie_<code>" payload sends that movie instead.
func (h *Handlers) start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	payload := commands.Payload(c)

	if _, err := h.svc.Users.Upsert(ctx, domain.Profile{
		ID:             sender.ID,
		Username:       sender.Username,
		FirstName:      sender.FirstName,
		ReferralSource: payload,
	}); err != nil {
		return err
	}
	h.auth.Forget(sender.ID)
	if err := h.machine.Reset(ctx, sender.ID); err != nil {
		return err
	}

	if code, ok := deepLinkCode(payload); ok {
		movie, err := h.svc.Movies.ByCode(ctx, code)
		switch {
		case err == nil:
			return h.sendMovie(c, movie, true)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		logger.Debug(ctx, "tg", "start.deep_link_miss", slog.Int64("code", code))
	}

	privileged, err := h.auth.Privileged(ctx, sender.ID)
	if err != nil {
		return err
	}
	if privileged {
		return tghelpers.SendMD(c, txtAdminPanel, adminPanelMarkup(h.auth.IsSuperAdmin(sender.ID)))
	}
	return c.Send(txtWelcome(sender.FirstName), userMenuMarkup(false))
}

func deepLinkCode(payload string) (int64, bool) {
	rest, ok := strings.CutPrefix(payload, deepLinkPrefix)
	if !ok {
		return 0, false
	}
	code, err := strconv.ParseInt(rest, 10, 64)
	return code, err == nil
}

func (h *Handlers) userMode(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	privileged, err := h.auth.Privileged(ctx, sender.ID)
	if err != nil {
		return err
	}
	return c.Send(txtWelcomeUserMode(sender.FirstName), userMenuMarkup(privileged))
}

// sendMovie records the view and replies with the video, its rating and the
// rating keyboard. A repeated view is not an error.
func (h *Handlers) sendMovie(c tele.Context, m domain.Movie, withCode bool) error {
	ctx := tghelpers.BuildContext(c)
	if err := ignoreConflict(h.svc.Movies.AddView(ctx, c.Sender().ID, m.ID)); err != nil {
		return err
	}
	avg, err := h.svc.Movies.AverageRating(ctx, m.ID)
	if err != nil {
		return err
	}
	caption := txtMovieCaption(m.Title)
	if withCode {
		caption = txtMovieCaptionWithCode(m.Title, m.Code)
	}
	video := &tele.Video{File: tele.File{FileID: m.FileID}, Caption: caption + "\n\n" + txtAverageRating(avg)}
	return c.Send(video, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: ratingMarkup(m.ID)})
}

func (h *Handlers) randomMovie(c tele.Context) error {
	movie, err := h.svc.Movies.Random(tghelpers.BuildContext(c))
	if errors.Is(err, domain.ErrNotFound) {
		return tghelpers.Notice(c, txtNoMovies)
	}
	if err != nil {
		return err
	}
	return h.sendMovie(c, movie, true)
}

// rate stores the score and refreshes the caption of the rated video.
func (h *Handlers) rate(c tele.Context, movieID, score int64) error {
	if score < 1 || score > 5 {
		return tghelpers.Alert(c, txtInvalidRating)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.svc.Movies.Rate(ctx, c.Sender().ID, movieID, int(score)); err != nil {
		return err
	}
	if err := tghelpers.Notice(c, txtRatingThanks); err != nil {
		return err
	}

	movie, err := h.svc.Movies.ByID(ctx, movieID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	avg, err := h.svc.Movies.AverageRating(ctx, movieID)
	if err != nil {
		return err
	}
	msg := c.Callback().Message
	if msg == nil {
		return nil
	}
	caption := txtMovieCaptionWithCode(movie.Title, movie.Code) + "\n\n" + txtAverageRating(avg)
	_, err = tghelpers.EditCaption(c, caption, msg.ReplyMarkup)
	return err
}

func (h *Handlers) searchMovie(c tele.Context) error {
	return h.enter(c, WaitingMovieCode, txtAskMovieCode)
}

// onMovieCode keeps the user in the search until a valid code is found.
func (h *Handlers) onMovieCode(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	code, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
	if err != nil {
		return c.Send(txtInvalidCode)
	}
	movie, err := h.svc.Movies.ByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Send(txtMovieNotFound)
	}
	if err != nil {
		return err
	}
	if err := h.sendMovie(c, movie, false); err != nil {
		return err
	}
	return h.machine.Reset(ctx, c.Sender().ID)
}

func (h *Handlers) browseCategories(c tele.Context) error {
	cats, err := h.svc.Categories.List(tghelpers.BuildContext(c))
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return tghelpers.Notice(c, txtNoCategories)
	}
	return tghelpers.SafeEdit(c, txtSelectCategory, browseCategoriesMarkup(cats))
}

func (h *Handlers) browseCategory(c tele.Context, categoryID int64) error {
	movies, err := h.svc.Movies.ByCategory(tghelpers.BuildContext(c), categoryID)
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		return tghelpers.Notice(c, txtNoMoviesInCat)
	}
	var b strings.Builder
	b.WriteString(txtCategoryMovies + "\n\n")
	for _, m := range movies {
		b.WriteString("- " + txtMovieLine(m.Title, m.Code) + "\n")
	}
	return tghelpers.SafeEdit(c, b.String(), keyboard.Rows(back(cbCategories)))
}

func (h *Handlers) trending(c tele.Context) error {
	top, err := h.svc.Movies.Top(tghelpers.BuildContext(c), trendingLimit)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return tghelpers.Notice(c, txtNoMovies)
	}
	var b strings.Builder
	b.WriteString(txtTrendingTitle + "\n\n")
	for i, m := range top {
		fmt.Fprintf(&b, "%d. %s\n", i+1, txtMovieLine(m.Title, m.Code))
	}
	return tghelpers.SafeEdit(c, b.String(), keyboard.Rows(back(cbUserMode)))
}

func (h *Handlers) askFeedback(c tele.Context) error {
	return h.enter(c, WaitingFeedback, txtAskFeedback)
}

func (h *Handlers) onFeedback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	if _, err := h.svc.Feedback.Create(ctx, sender.ID, c.Text()); err != nil {
		return err
	}
	if err := h.machine.Reset(ctx, sender.ID); err != nil {
		return err
	}
	h.notify.NotifyAdmins(ctx, txtNewFeedbackAdmin(plainTag(sender), c.Text()))
	return c.Send(txtFeedbackSent)
}

func (h *Handlers) askRequest(c tele.Context) error {
	return h.enter(c, WaitingRequestTitle, txtAskRequestTitle)
}

func (h *Handlers) onRequestTitle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	title := strings.TrimSpace(c.Text())
	if _, err := h.svc.Requests.Create(ctx, sender.ID, title); err != nil {
		return err
	}
	if err := h.machine.Reset(ctx, sender.ID); err != nil {
		return err
	}
	h.notify.NotifyAdmins(ctx, txtNewRequestAdmin(plainTag(sender), title))
	return c.Send(txtRequestReceived)
}

// plainTag names a user in messages sent without a parse mode.
func plainTag(u *tele.User) string {
	if u.Username != "" {
		return fmt.Sprintf("@%s (%d)", u.Username, u.ID)
	}
	return strconv.FormatInt(u.ID, 10)
}

// inlineQuery answers with movies whose title matches the query. Each result
// carries a button that opens the movie in the bot through a deep link.
func (h *Handlers) inlineQuery(c tele.Context) error {
	q := c.Query()
	movies, err := h.svc.Movies.SearchTitle(tghelpers.BuildContext(c), strings.TrimSpace(q.Text), inlineLimit)
	if err != nil {
		return err
	}
	results := make(tele.Results, 0, len(movies))
	for _, m := range movies {
		var markup *tele.ReplyMarkup
		if h.username != "" {
			link := fmt.Sprintf("https://t.me/%s?start=%s%d", h.username, deepLinkPrefix, m.Code)
			markup = keyboard.Rows([]keyboard.Button{keyboard.URL(btnWatch, link)})
		}
		res := ui.NewVideoResult(withID(deepLinkPrefix, m.ID), m.FileID, m.Title, txtMovieCaptionWithCode(m.Title, m.Code), markup)
		res.Description = fmt.Sprintf("Code: %d", m.Code)
		res.ParseMode = tele.ModeMarkdown
		results = append(results, res)
	}
	return c.Answer(&tele.QueryResponse{Results: results, CacheTime: inlineCacheTime})
}
