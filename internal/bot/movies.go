package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/moviebot/core/logger"
	tghelpers "github.com/m3rciful/moviebot/core/telegram/helpers"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// codeAttempts bounds the draws for a free movie code.
const codeAttempts = 5

var uploadScratch = []string{scratchMovieFileID, scratchMovieTitle}

func (h *Handlers) manageMovies(c tele.Context) error {
	return tghelpers.SafeEdit(c, txtManageMovies, moviesMarkup())
}

func (h *Handlers) addMovie(c tele.Context) error {
	return h.enter(c, WaitingMovieUpload, txtAskMovieFile)
}

// onMovieUpload starts the upload chain: video, then title, then category.
func (h *Handlers) onMovieUpload(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	video := c.Message().Video
	if err := h.machine.SetScratch(ctx, userID, scratchMovieFileID, video.FileID); err != nil {
		return err
	}
	return h.enter(c, WaitingMovieTitle, txtAskMovieTitle)
}

func (h *Handlers) onMovieTitle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	_, missing, err := h.machine.Collect(ctx, userID, WaitingMovieTitle)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return h.sessionExpired(c, userID)
	}
	title := strings.TrimSpace(c.Text())
	if err := h.machine.SetScratch(ctx, userID, scratchMovieTitle, title); err != nil {
		return err
	}
	cats, err := h.svc.Categories.List(ctx)
	if err != nil {
		return err
	}
	if err := h.machine.Set(ctx, userID, WaitingMovieCategory); err != nil {
		return err
	}
	return c.Send(txtAskMovieCategory, categoryPickerMarkup(cats))
}

// setMovieCategory ends the upload chain. The movie is created only when the
// file and title collected by the earlier steps are still in the session.
func (h *Handlers) setMovieCategory(c tele.Context, categoryID int64, none bool) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	st, err := h.machine.Get(ctx, userID)
	if err != nil {
		return err
	}
	if st != WaitingMovieCategory {
		return h.sessionExpired(c, userID)
	}
	values, missing, err := h.machine.Collect(ctx, userID, WaitingMovieCategory)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return h.sessionExpired(c, userID)
	}

	nm := domain.NewMovie{Title: values[scratchMovieTitle], FileID: values[scratchMovieFileID]}
	if !none {
		nm.CategoryID = &categoryID
	}
	movie, err := h.createMovie(c, nm)
	if err != nil {
		return err
	}
	if err := h.finish(ctx, userID, uploadScratch...); err != nil {
		return err
	}
	return c.Send(txtMovieSaved(movie.Title, movie.Code))
}

// createMovie draws codes until one is free.
func (h *Handlers) createMovie(c tele.Context, nm domain.NewMovie) (domain.Movie, error) {
	ctx := tghelpers.BuildContext(c)
	for attempt := 1; ; attempt++ {
		nm.Code = h.codes()
		movie, err := h.svc.Movies.Create(ctx, nm)
		if err == nil || !errors.Is(err, domain.ErrConflict) || attempt == codeAttempts {
			return movie, err
		}
		logger.Debug(ctx, "tg", "movie.code_taken",
			slog.Int64("code", nm.Code),
			slog.Int("attempt", attempt),
		)
	}
}

func (h *Handlers) manageMovieByCode(c tele.Context) error {
	return h.enter(c, WaitingMovieEditCode, txtAskManageCode)
}

// onMovieEditCode opens the movie for editing and leaves the conversation;
// the edit buttons carry on from the remembered id.
func (h *Handlers) onMovieEditCode(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	code, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
	if err != nil {
		return c.Send(txtInvalidCode)
	}
	movie, err := h.svc.Movies.ByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Send(txtAdminMovieMissing)
	}
	if err != nil {
		return err
	}
	if err := h.machine.SetScratch(ctx, userID, scratchEditMovie, strconv.FormatInt(movie.ID, 10)); err != nil {
		return err
	}
	if err := h.machine.Reset(ctx, userID); err != nil {
		return err
	}
	return tghelpers.SendMD(c, txtManageMovieDetail(movie.Title, movie.Code), movieMarkup())
}

func (h *Handlers) editMovieTitle(c tele.Context) error {
	_, ok, err := h.machine.Scratch(tghelpers.BuildContext(c), c.Sender().ID, scratchEditMovie)
	if err != nil {
		return err
	}
	if !ok {
		return h.sessionExpired(c, c.Sender().ID)
	}
	return h.enter(c, WaitingEditMovieTitle, txtAskNewMovieTitle)
}

func (h *Handlers) onEditMovieTitle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	values, missing, err := h.machine.Collect(ctx, userID, WaitingEditMovieTitle)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(values[scratchEditMovie], 10, 64)
	if len(missing) > 0 || err != nil {
		return h.sessionExpired(c, userID)
	}
	if err := h.svc.Movies.UpdateTitle(ctx, id, strings.TrimSpace(c.Text())); err != nil {
		return err
	}
	if err := h.machine.Reset(ctx, userID); err != nil {
		return err
	}
	if err := c.Send(txtMovieTitleSaved); err != nil {
		return err
	}
	return h.sendAdminPanel(c)
}

func (h *Handlers) deleteMovie(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	id, ok, err := h.machine.ScratchInt(ctx, userID, scratchEditMovie)
	if err != nil {
		return err
	}
	if !ok {
		return h.sessionExpired(c, userID)
	}
	if err := h.svc.Movies.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	if err := h.machine.ClearScratch(ctx, userID, scratchEditMovie); err != nil {
		return err
	}
	if err := c.Send(txtMovieDeleted); err != nil {
		return err
	}
	return h.sendAdminPanel(c)
}
