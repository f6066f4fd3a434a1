package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/moviebot/core/telegram/state"
	"github.com/m3rciful/moviebot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestMovieUploadChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat, err := f.svc.Categories.Add(ctx, "Drama")
	require.NoError(t, err)

	f.do(t, press(adminID, cbAdminAddMovie))
	assert.Equal(t, WaitingMovieUpload, f.state(t, adminID))

	f.do(t, video(adminID, "file-1"))
	assert.Equal(t, WaitingMovieTitle, f.state(t, adminID))

	c := f.do(t, text(adminID, "Heat"))
	assert.Equal(t, txtAskMovieCategory, c.lastSent())
	assert.Equal(t, WaitingMovieCategory, f.state(t, adminID))

	c = f.do(t, press(adminID, cbSetCategoryPref+itoa(cat.ID)))
	assert.Equal(t, txtMovieSaved("Heat", 4242), c.lastSent())

	count, err := f.svc.Movies.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	movie, err := f.svc.Movies.ByCode(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, "file-1", movie.FileID)
	require.NotNil(t, movie.CategoryID)
	assert.Equal(t, cat.ID, *movie.CategoryID)

	assert.Equal(t, state.StateIdle, f.state(t, adminID))
	for _, key := range uploadScratch {
		_, ok, err := f.machine.Scratch(ctx, adminID, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}

	// The picker pressed again after the chain ended creates nothing.
	c = f.do(t, press(adminID, cbSetCategoryPref+"none"))
	assert.Contains(t, c.responseTexts(), txtSessionExpired)
	count, err = f.svc.Movies.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMovieCodeConflictDrawsAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Movies.Create(ctx, domain.NewMovie{Code: 4242, Title: "Old", FileID: "f0"})
	require.NoError(t, err)
	f.codes = []int64{4242, 5151}

	f.do(t, press(adminID, cbAdminAddMovie))
	f.do(t, video(adminID, "file-1"))
	f.do(t, text(adminID, "Heat"))
	c := f.do(t, press(adminID, cbSetCategoryPref+"none"))
	assert.Equal(t, txtMovieSaved("Heat", 5151), c.lastSent())

	movie, err := f.svc.Movies.ByCode(ctx, 5151)
	require.NoError(t, err)
	assert.Nil(t, movie.CategoryID)
}

func TestBrokenChainExpiresSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.Set(ctx, adminID, WaitingMovieTitle))

	c := f.do(t, text(adminID, "Heat"))
	assert.Equal(t, txtSessionExpired, c.lastSent())
	assert.Equal(t, state.StateIdle, f.state(t, adminID))

	require.NoError(t, f.machine.Set(ctx, adminID, WaitingEditChannelTitle))
	c = f.do(t, text(adminID, "Films"))
	assert.Equal(t, txtSessionExpired, c.lastSent())
	assert.Equal(t, state.StateIdle, f.state(t, adminID))

	count, err := f.svc.Movies.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStartDeepLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Movies.Create(ctx, domain.NewMovie{Code: 1234, Title: "Heat", FileID: "file-1"})
	require.NoError(t, err)
	require.NoError(t, f.machine.Set(ctx, userID, WaitingFeedback))

	c := f.do(t, text(userID, "/start movie_1234"))
	require.Len(t, c.sent, 1)
	v, ok := c.sent[0].(*tele.Video)
	require.True(t, ok)
	assert.Equal(t, "file-1", v.FileID)
	assert.Contains(t, v.Caption, "1234")
	assert.Equal(t, state.StateIdle, f.state(t, userID))

	views, err := f.svc.Movies.CountViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	// A second visit is not a new view and still sends the movie.
	c = f.do(t, text(userID, "/start movie_1234"))
	require.Len(t, c.sent, 1)
	views, err = f.svc.Movies.CountViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	u, err := f.svc.Users.Get(ctx, userID)
	require.NoError(t, err)
	// The referral is kept from the first visit only.
	assert.Empty(t, u.ReferralSource)
}

func TestStartDeepLinkMissShowsMenu(t *testing.T) {
	f := newFixture(t)

	c := f.do(t, text(userID, "/start movie_9999"))
	require.Len(t, c.sent, 1)
	assert.Equal(t, txtWelcome("Ann"), c.sent[0])

	c = f.do(t, text(adminID, "/start"))
	require.Len(t, c.sent, 1)
	assert.Equal(t, txtAdminPanel, c.sent[0])
}

func TestStartRecordsNewUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.do(t, text(77, "/start promo"))
	u, err := f.svc.Users.Get(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, "promo", u.ReferralSource)
}

func TestDeletesAreNotPreChecked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fb, err := f.svc.Feedback.Create(ctx, userID, "hi")
	require.NoError(t, err)
	c := f.do(t, press(adminID, cbDeleteFbPrefix+itoa(fb.ID)))
	assert.Equal(t, 1, c.deleted)
	err = f.handle(press(adminID, cbDeleteFbPrefix+itoa(fb.ID)))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	cat, err := f.svc.Categories.Add(ctx, "Drama")
	require.NoError(t, err)
	c = f.do(t, press(adminID, cbDeleteCatPrefix+itoa(cat.ID)))
	assert.Contains(t, c.responseTexts(), txtCategoryDeleted)
	err = f.handle(press(adminID, cbDeleteCatPrefix+itoa(cat.ID)))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = f.handle(press(adminID, cbResolveFbPrefix+itoa(fb.ID)))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteChannelTwice(t *testing.T) {
	f := newFixture(t)
	ch, err := f.svc.Channels.Add(context.Background(), -100, "News", "https://t.me/news")
	require.NoError(t, err)

	f.do(t, press(adminID, cbManageChanPrefix+itoa(ch.ID)))
	c := f.do(t, press(adminID, cbDeleteChannel))
	assert.Contains(t, c.sent, txtChannelDeleted)

	list, err := f.svc.Channels.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	c = f.do(t, press(adminID, cbDeleteChannel))
	assert.Contains(t, c.responseTexts(), txtSessionExpired)
}

func TestResolveFeedbackMarksMessage(t *testing.T) {
	f := newFixture(t)
	fb, err := f.svc.Feedback.Create(context.Background(), userID, "hi")
	require.NoError(t, err)

	c := f.do(t, press(adminID, cbResolveFbPrefix+itoa(fb.ID)))
	assert.Contains(t, c.responseTexts(), txtMarkedResolved)
	require.Len(t, c.edits, 1)
	assert.Equal(t, "menu"+txtResolvedSuffix, c.edits[0])

	list, err := f.svc.Feedback.Unresolved(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPromoteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.do(t, press(superID, cbMakeAdmin))
	assert.Equal(t, WaitingPromoteID, f.state(t, superID))

	c := f.do(t, text(superID, "abc"))
	assert.Equal(t, txtInvalidID, c.lastSent())

	c = f.do(t, text(superID, "999"))
	assert.Equal(t, txtUserNotFound, c.lastSent())
	assert.Equal(t, WaitingPromoteID, f.state(t, superID))

	_, err := f.svc.Users.Upsert(ctx, domain.Profile{ID: 999, FirstName: "Bob"})
	require.NoError(t, err)
	c = f.do(t, text(superID, "999"))
	assert.Equal(t, txtUserPromoted(999), c.lastSent())
	assert.Equal(t, state.StateIdle, f.state(t, superID))

	ok, err := f.auth.Privileged(ctx, 999)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveAdminAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.auth.Privileged(ctx, adminID)
	require.NoError(t, err)
	require.True(t, ok)

	c := f.do(t, press(superID, cbManageAdminPref+itoa(adminID)))
	require.Len(t, c.edits, 1)

	c = f.do(t, press(superID, cbDeleteAdminAccess))
	assert.Contains(t, c.responseTexts(), txtAccessRemoved)
	assert.Contains(t, c.sent, txtAccessRemovedFor(adminID))

	ok, err = f.auth.Privileged(ctx, adminID)
	require.NoError(t, err)
	assert.False(t, ok)

	f.do(t, press(superID, cbManageAdminPref+itoa(superID)))
	c = f.do(t, press(superID, cbDeleteAdminAccess))
	assert.Contains(t, c.responseTexts(), txtCannotRemoveRoot)
}

func TestAdminListPages(t *testing.T) {
	f := newFixture(t)

	c := f.do(t, press(superID, cbManageAdmins))
	require.Len(t, c.edits, 1)
	assert.Equal(t, txtManageAdmins, c.edits[0])

	c = f.do(t, press(superID, cbManageAdmins+"_1"))
	require.Len(t, c.edits, 1)
}

func TestAddChannelResolvedByPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.chat = &tele.Chat{ID: -100, Title: "Films", Username: "films"}

	f.do(t, press(adminID, cbAdminAddChannel))
	c := f.do(t, text(adminID, "-100"))
	assert.Equal(t, txtChannelAdded("Films", "https://t.me/films"), c.lastSent())
	assert.Equal(t, state.StateIdle, f.state(t, adminID))

	list, err := f.svc.Channels.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://t.me/films", list[0].InviteLink)
}

func TestAddChannelAsksForLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform.chatErr = errors.New("telegram: chat not found (400)")

	f.do(t, press(adminID, cbAdminAddChannel))
	c := f.do(t, text(adminID, "nope"))
	assert.Equal(t, txtInvalidChannelID, c.lastSent())
	assert.Equal(t, WaitingChannelID, f.state(t, adminID))

	c = f.do(t, text(adminID, "-100"))
	assert.Equal(t, txtAskChannelLink, c.lastSent())
	assert.Equal(t, WaitingChannelLink, f.state(t, adminID))

	c = f.do(t, text(adminID, "https://t.me/+abc"))
	assert.Equal(t, txtChannelAddedSimple, c.lastSent())
	assert.Equal(t, state.StateIdle, f.state(t, adminID))

	list, err := f.svc.Channels.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Channel -100", list[0].Title)
	_, ok, err := f.machine.Scratch(ctx, adminID, scratchChannelID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEditChannelTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, err := f.svc.Channels.Add(ctx, -100, "News", "https://t.me/news")
	require.NoError(t, err)

	f.do(t, press(adminID, cbManageChanPrefix+itoa(ch.ID)))
	f.do(t, press(adminID, cbEditChannelTitle))
	c := f.do(t, text(adminID, "Daily News"))
	assert.Contains(t, c.sent, txtChannelTitleSaved)

	got, err := f.svc.Channels.ByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daily News", got.Title)
}

func TestManageMovieByCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	movie, err := f.svc.Movies.Create(ctx, domain.NewMovie{Code: 1234, Title: "Heat", FileID: "file-1"})
	require.NoError(t, err)

	f.do(t, press(adminID, cbManageMovieByCode))
	c := f.do(t, text(adminID, "5555"))
	assert.Equal(t, txtAdminMovieMissing, c.lastSent())
	assert.Equal(t, WaitingMovieEditCode, f.state(t, adminID))

	f.do(t, text(adminID, "1234"))
	f.do(t, press(adminID, cbEditMovieTitle))
	f.do(t, text(adminID, "Heat (1995)"))
	got, err := f.svc.Movies.ByID(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heat (1995)", got.Title)

	f.do(t, press(adminID, cbDeleteMovie))
	_, err = f.svc.Movies.ByID(ctx, movie.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSearchByCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Movies.Create(context.Background(), domain.NewMovie{Code: 1234, Title: "Heat", FileID: "file-1"})
	require.NoError(t, err)

	f.do(t, press(userID, cbSearchMovie))
	c := f.do(t, text(userID, "42"))
	assert.Equal(t, txtMovieNotFound, c.lastSent())
	assert.Equal(t, WaitingMovieCode, f.state(t, userID))

	c = f.do(t, text(userID, "1234"))
	_, ok := c.lastSent().(*tele.Video)
	assert.True(t, ok)
	assert.Equal(t, state.StateIdle, f.state(t, userID))
}

func TestMovieRequestNotifiesSuperAdmins(t *testing.T) {
	f := newFixture(t)

	f.do(t, press(userID, cbRequestMovie))
	c := f.do(t, text(userID, "Ronin"))
	assert.Equal(t, txtRequestReceived, c.lastSent())

	pending, err := f.svc.Requests.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ronin", pending[0].Title)
	assert.Equal(t, []string{"notify"}, f.queue.actions)
}

func TestInlineQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Movies.Create(context.Background(), domain.NewMovie{Code: 1234, Title: "Heat", FileID: "file-1"})
	require.NoError(t, err)

	c := f.do(t, query(userID, "hea"))
	require.Len(t, c.answers, 1)
	require.Len(t, c.answers[0].Results, 1)
	res, ok := c.answers[0].Results[0].(*tele.VideoResult)
	require.True(t, ok)
	assert.Equal(t, "file-1", res.Cache)
	require.NotNil(t, res.ReplyMarkup)
	assert.Equal(t, "https://t.me/moviebot?start=movie_1234", res.ReplyMarkup.InlineKeyboard[0][0].URL)
}

func TestBrowseCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.do(t, press(userID, cbCategories))
	assert.Contains(t, c.responseTexts(), txtNoCategories)

	cat, err := f.svc.Categories.Add(ctx, "Drama")
	require.NoError(t, err)
	_, err = f.svc.Movies.Create(ctx, domain.NewMovie{Code: 1234, Title: "Heat", FileID: "f", CategoryID: &cat.ID})
	require.NoError(t, err)

	c = f.do(t, press(userID, cbCategoryPrefix+itoa(cat.ID)))
	require.Len(t, c.edits, 1)
	assert.Contains(t, c.edits[0], "Heat")
}
