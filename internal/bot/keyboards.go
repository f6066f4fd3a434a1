package bot

import (
	"strconv"
	"strings"

	"github.com/m3rciful/moviebot/core/telegram/keyboard"
	"github.com/m3rciful/moviebot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// Exact callback data.
const (
	cbAdminPanel        = "admin_panel"
	cbUserMode          = "user_mode"
	cbAdminStats        = "admin_stats"
	cbAdminRequests     = "admin_requests"
	cbAdminAddMovie     = "admin_add_movie"
	cbAdminAddChannel   = "admin_add_channel"
	cbAdminFeedbacks    = "admin_feedbacks"
	cbManageChannels    = "admin_manage_channels"
	cbManageMovies      = "admin_manage_movies"
	cbManageMovieByCode = "admin_manage_movie_by_code"
	cbManageCategories  = "admin_manage_categories"
	cbAddCategory       = "admin_add_category"
	cbMakeAdmin         = "admin_make_admin"
	cbListUsers         = "admin_list_users"
	cbDeleteAdminAccess = "delete_admin_access"
	cbFeedback          = "feedback"
	cbRandomMovie       = "random_movie"
	cbSearchMovie       = "search_movie"
	cbCategories        = "categories"
	cbTrending          = "trending"
	cbRequestMovie      = "request_movie"
	cbEditChannelTitle  = "edit_channel_title"
	cbEditChannelLink   = "edit_channel_link"
	cbDeleteChannel     = "delete_channel"
	cbEditMovieTitle    = "edit_movie_title"
	cbDeleteMovie       = "delete_movie"
	cbIgnore            = "ignore"

	// CheckSubscription is the data of the gate's confirm button.
	CheckSubscription = "check_subscription"
)

// Prefixes of parametric callback data.
const (
	cbManageAdmins     = "admin_manage_admins"
	cbRatePrefix       = "rate_"
	cbManageAdminPref  = "manage_admin_"
	cbDeleteCatPrefix  = "delete_cat_"
	cbManageChanPrefix = "manage_channel_"
	cbSetCategoryPref  = "set_movie_category_"
	cbCategoryPrefix   = "cat_"
	cbResolveFbPrefix  = "resolve_feedback_"
	cbDeleteFbPrefix   = "delete_feedback_"
)

const adminsPerPage = 6

func withID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

func back(data string) []keyboard.Button {
	return []keyboard.Button{keyboard.Data(txtBack, data)}
}

func adminPanelMarkup(super bool) *tele.ReplyMarkup {
	rows := [][]keyboard.Button{
		{keyboard.Data(btnStats, cbAdminStats), keyboard.Data(btnUsers, cbListUsers)},
		{keyboard.Data(btnMovies, cbManageMovies), keyboard.Data(btnChannels, cbManageChannels)},
		{keyboard.Data(btnFeedbacks, cbAdminFeedbacks), keyboard.Data(btnRequests, cbAdminRequests)},
	}
	last := []keyboard.Button{keyboard.Data(btnCategories, cbManageCategories)}
	if super {
		last = append(last, keyboard.Data(btnAdmins, cbManageAdmins))
	}
	rows = append(rows, last, []keyboard.Button{keyboard.Data(btnUserMode, cbUserMode)})
	return keyboard.Rows(rows...)
}

// userMenuMarkup is the end-user menu. The admin panel button is shown to
// privileged users only; the panel itself checks again.
func userMenuMarkup(privileged bool) *tele.ReplyMarkup {
	rows := [][]keyboard.Button{
		{keyboard.Data(btnSearch, cbSearchMovie), keyboard.Data(btnGenres, cbCategories)},
		{keyboard.Data(btnTrending, cbTrending), keyboard.Data(btnRandom, cbRandomMovie)},
		{keyboard.Data(btnRequest, cbRequestMovie), keyboard.Data(btnFeedback, cbFeedback)},
	}
	if privileged {
		rows = append(rows, []keyboard.Button{keyboard.Data(btnAdmin, cbAdminPanel)})
	}
	return keyboard.Rows(rows...)
}

func ratingMarkup(movieID int64) *tele.ReplyMarkup {
	buttons := make([]keyboard.Button, 0, 5)
	for score := 1; score <= 5; score++ {
		data := cbRatePrefix + strconv.FormatInt(movieID, 10) + "_" + strconv.Itoa(score)
		buttons = append(buttons, keyboard.Data(strings.Repeat("⭐️", score), data))
	}
	return keyboard.Column(buttons...)
}

func channelsMarkup(channels []domain.Channel) *tele.ReplyMarkup {
	rows := [][]keyboard.Button{{keyboard.Data(btnAddChannel, cbAdminAddChannel)}}
	for _, ch := range channels {
		rows = append(rows, []keyboard.Button{keyboard.Data(ch.Title, withID(cbManageChanPrefix, ch.ID))})
	}
	return keyboard.Rows(append(rows, back(cbAdminPanel))...)
}

func channelMarkup() *tele.ReplyMarkup {
	return keyboard.Rows(
		[]keyboard.Button{keyboard.Data(btnEditTitle, cbEditChannelTitle), keyboard.Data(btnEditLink, cbEditChannelLink)},
		[]keyboard.Button{keyboard.Data(btnDeleteChannel, cbDeleteChannel)},
		back(cbManageChannels),
	)
}

func moviesMarkup() *tele.ReplyMarkup {
	return keyboard.Rows(
		[]keyboard.Button{keyboard.Data(btnAddMovie, cbAdminAddMovie)},
		[]keyboard.Button{keyboard.Data(btnManageByCode, cbManageMovieByCode)},
		back(cbAdminPanel),
	)
}

func movieMarkup() *tele.ReplyMarkup {
	return keyboard.Rows(
		[]keyboard.Button{keyboard.Data(btnEditTitle, cbEditMovieTitle)},
		[]keyboard.Button{keyboard.Data(btnDelete, cbDeleteMovie)},
		back(cbManageMovies),
	)
}

func categoriesAdminMarkup(cats []domain.Category) *tele.ReplyMarkup {
	rows := [][]keyboard.Button{{keyboard.Data(btnAddCategory, cbAddCategory)}}
	for _, cat := range cats {
		rows = append(rows, []keyboard.Button{
			keyboard.Data(cat.Name, cbIgnore),
			keyboard.Data("🗑️", withID(cbDeleteCatPrefix, cat.ID)),
		})
	}
	return keyboard.Rows(append(rows, back(cbAdminPanel))...)
}

func categoryPickerMarkup(cats []domain.Category) *tele.ReplyMarkup {
	buttons := make([]keyboard.Button, 0, len(cats)+1)
	for _, cat := range cats {
		buttons = append(buttons, keyboard.Data(cat.Name, withID(cbSetCategoryPref, cat.ID)))
	}
	buttons = append(buttons, keyboard.Data(btnSkipCategory, cbSetCategoryPref+"none"))
	return keyboard.Column(buttons...)
}

func browseCategoriesMarkup(cats []domain.Category) *tele.ReplyMarkup {
	rows := make([][]keyboard.Button, 0, len(cats)+1)
	for _, cat := range cats {
		rows = append(rows, []keyboard.Button{keyboard.Data(cat.Name, withID(cbCategoryPrefix, cat.ID))})
	}
	return keyboard.Rows(append(rows, back(cbUserMode))...)
}

func feedbackMarkup(id int64) *tele.ReplyMarkup {
	return keyboard.Rows([]keyboard.Button{
		keyboard.Data(btnResolve, withID(cbResolveFbPrefix, id)),
		keyboard.Data(btnDelete, withID(cbDeleteFbPrefix, id)),
	})
}

// adminsMarkup lists one page of admins with a pager row. page is zero based.
func adminsMarkup(admins []domain.User, page, total int) *tele.ReplyMarkup {
	rows := [][]keyboard.Button{{keyboard.Data(btnAddAdmin, cbMakeAdmin)}}
	for _, u := range admins {
		rows = append(rows, []keyboard.Button{keyboard.Data(displayName(u), withID(cbManageAdminPref, u.ID))})
	}

	pages := (total + adminsPerPage - 1) / adminsPerPage
	if pages < 1 {
		pages = 1
	}
	var pager []keyboard.Button
	if page > 0 {
		pager = append(pager, keyboard.Data("⬅️", cbManageAdmins+"_"+strconv.Itoa(page-1)))
	}
	pager = append(pager, keyboard.Data(txtPage(page+1, pages), cbIgnore))
	if page+1 < pages {
		pager = append(pager, keyboard.Data("➡️", cbManageAdmins+"_"+strconv.Itoa(page+1)))
	}
	rows = append(rows, pager, back(cbAdminPanel))
	return keyboard.Rows(rows...)
}

func adminMarkup() *tele.ReplyMarkup {
	return keyboard.Rows(
		[]keyboard.Button{keyboard.Data(btnRemoveAccess, cbDeleteAdminAccess)},
		back(cbManageAdmins),
	)
}

func displayName(u domain.User) string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}
