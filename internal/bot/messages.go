package bot

import (
	"fmt"

	"github.com/m3rciful/moviebot/core/telegram/access"
	"github.com/m3rciful/moviebot/core/telegram/format"
)

// User-facing texts. Values interpolated into Markdown texts are escaped by
// the helpers below, never by callers.
const (
	txtBack           = "🔙 Back"
	txtSessionExpired = "Session expired. Please start again."
	txtChannelMissing = "Channel not found."
	txtUnauthorized   = "Not authorized."

	txtAskMovieCode   = "Please send the numeric code of the movie:"
	txtInvalidCode    = "❌ Please send a valid numeric code."
	txtMovieNotFound  = "❌ No movie with this code."
	txtNoMovies       = "There are no movies yet."
	txtRatingThanks   = "Thanks for your rating!"
	txtInvalidRating  = "Ratings go from 1 to 5."
	txtSelectCategory = "Please choose a genre:"
	txtNoCategories   = "No genres have been added yet."
	txtNoMoviesInCat  = "There are no movies in this genre yet."
	txtTrendingTitle  = "🔥 *Top 10 most watched movies*:"
	txtCategoryMovies = "🎬 *Movies*:"

	txtAskFeedback     = "Please send your feedback or question:"
	txtFeedbackSent    = "✅ Feedback sent!"
	txtAskRequestTitle = "Please send the title of the movie you are looking for:"
	txtRequestReceived = "✅ Request received! We will let you know once the movie is added."

	btnSearch   = "🔍 Search by code"
	btnRandom   = "🎲 Random movie"
	btnFeedback = "📞 Contact / Feedback"
	btnAdmin    = "👑 Admin panel"
	btnGenres   = "🎬 Genres"
	btnTrending = "🔥 Trending"
	btnRequest  = "📥 Request a movie"
	btnWatch    = "▶️ Watch in bot"

	txtAdminPanel = "👑 *Admin panel*\nChoose a section to manage the bot."
	btnStats      = "📊 Statistics"
	btnUsers      = "👥 Users"
	btnMovies     = "🎬 Movies"
	btnChannels   = "📢 Channels"
	btnFeedbacks  = "📨 Feedback"
	btnRequests   = "📥 Requests"
	btnCategories = "🗂 Genres"
	btnAdmins     = "👑 Admins"
	btnUserMode   = "👤 User mode"

	txtNoRequests      = "No pending requests."
	txtRequestList     = "📥 *Movie requests*:"
	txtNoFeedback      = "No unresolved feedback."
	txtNoFeedbackMsg   = "✅ There is no unresolved feedback right now."
	txtFeedbackPrompt  = "Pick an action for the feedback above or return to the panel:"
	txtMarkedResolved  = "Marked as resolved."
	txtResolvedSuffix  = "\n\n✅ *RESOLVED*"
	txtFeedbackDeleted = "Feedback deleted."
	btnResolve         = "✅ Resolve"
	btnDelete          = "🗑️ Delete"

	txtManageChannels     = "📢 *Channels*\nPick a channel or add a new one:"
	btnAddChannel         = "➕ Add channel"
	txtAskChannelID       = "Please send the channel id (for example -100...)."
	txtInvalidChannelID   = "Wrong id format. Please send a numeric id."
	txtAskChannelLink     = "Could not fetch the invite link. Please send it manually."
	btnEditTitle          = "✏️ Edit title"
	btnEditLink           = "✏️ Edit link"
	btnDeleteChannel      = "🗑️ Delete channel"
	txtAskChannelTitle    = "Please send the new channel title:"
	txtAskChannelLinkEdit = "Please send the new invite link:"
	txtChannelTitleSaved  = "✅ Channel title updated."
	txtChannelLinkSaved   = "✅ Channel link updated."
	txtChannelDeleted     = "✅ Channel deleted."
	txtChannelAddedSimple = "✅ Channel added."

	txtManageMovies      = "🎬 *Movies*\nChoose an action:"
	btnAddMovie          = "➕ Add movie"
	btnManageByCode      = "🔍 Manage by code"
	txtAskManageCode     = "Please send the code of the movie to manage:"
	txtAdminMovieMissing = "Movie not found."
	txtAskMovieFile      = "Please send the movie video file."
	txtAskMovieTitle     = "Please send the movie title:"
	txtAskNewMovieTitle  = "Please send the new movie title:"
	txtAskMovieCategory  = "Please choose the movie genre:"
	btnSkipCategory      = "➡️ Skip"
	txtMovieTitleSaved   = "✅ Movie title updated."
	txtMovieDeleted      = "✅ Movie deleted."

	txtManageCategories = "🗂 *Genres*\nAdd a genre or remove an existing one:"
	btnAddCategory      = "➕ Add genre"
	txtAskCategoryName  = "Please send the genre name:"
	txtCategoryDeleted  = "Genre deleted."

	txtManageAdmins     = "👑 *Admins*\nPick an admin to manage or add a new one:"
	btnAddAdmin         = "➕ Add admin"
	btnRemoveAccess     = "🗑️ Remove access"
	txtAskPromoteID     = "Please send the Telegram id of the user to promote."
	txtInvalidID        = "Invalid id."
	txtUserNotFound     = "User not found. They have to start the bot first."
	txtAdminNotFound    = "Admin not found."
	txtAccessRemoved    = "Admin access removed."
	txtCannotRemoveRoot = "A super admin cannot be removed."

	txtGeneratingUsers = "Generating the user list..."
)

// Gate texts.
var gatePrompt = access.Prompt{
	MustSubscribe:    "⚠️ To use the bot, please join these channels:",
	SubscribeFirst:   "⚠️ Please join the channels first!",
	NotSubscribedAll: "❌ You have not joined all the channels yet!",
	CheckButton:      "✅ I have joined",
	AccessGranted:    "✅ Access granted!",
	WelcomeBack:      "Welcome! Press /start to begin.",
}

func txtWelcome(name string) string {
	return fmt.Sprintf("Welcome %s! Choose a section:", name)
}

func txtWelcomeUserMode(name string) string {
	return fmt.Sprintf("Welcome %s!", name)
}

func txtMovieCaption(title string) string {
	return fmt.Sprintf("🎬 *%s*", format.Escape(title))
}

func txtMovieCaptionWithCode(title string, code int64) string {
	return fmt.Sprintf("🎬 *%s* (Code: `%d`)", format.Escape(title), code)
}

func txtAverageRating(avg float64) string {
	return fmt.Sprintf("⭐️ Rating: %.1f", avg)
}

func txtStats(users, movies, views, pending int) string {
	return fmt.Sprintf("📊 *Statistics*\n\n👥 Users: %d\n🎬 Movies: %d\n👀 Total views: %d\n\n📥 Pending requests: %d",
		users, movies, views, pending)
}

func txtMovieLine(title string, code int64) string {
	return fmt.Sprintf("%s (Code: `%d`)", format.Escape(title), code)
}

func txtRequestItem(id int64, title, userTag string) string {
	return fmt.Sprintf("🎬 *%s*\nFrom: %s\nResolve: /fulfill\\_%d | /reject\\_%d\n\n", format.Escape(title), userTag, id, id)
}

func txtFeedbackDetail(userTag, message, date string) string {
	return fmt.Sprintf("📩 *Feedback from %s*\n\n\"%s\"\n\n_Sent: %s_", userTag, format.Escape(message), date)
}

func txtNewFeedbackAdmin(userTag, message string) string {
	return fmt.Sprintf("📨 New feedback from %s:\n%s", userTag, message)
}

func txtNewRequestAdmin(userTag, title string) string {
	return fmt.Sprintf("📥 New movie request:\n%s\nFrom: %s", title, userTag)
}

func txtRequestFulfilled(title string) string {
	return fmt.Sprintf("🎉 Good news! The movie you requested, %q, is now available in the bot.", title)
}

func txtRequestStatus(id int64, status string) string {
	return fmt.Sprintf("Request #%d marked as %s.", id, status)
}

func txtChannelAdded(title, link string) string {
	return fmt.Sprintf("✅ Channel added!\nTitle: %s\nLink: %s", title, link)
}

func txtChannelDetail(title string, channelID int64, link string) string {
	return fmt.Sprintf("📢 Managing: *%s*\nID: `%d`\nLink: %s", format.Escape(title), channelID, format.Escape(link))
}

func txtManageMovieDetail(title string, code int64) string {
	return fmt.Sprintf("🎬 Managing: *%s* (Code: %d)", format.Escape(title), code)
}

func txtMovieSaved(title string, code int64) string {
	return fmt.Sprintf("✅ Movie saved!\nTitle: %s\nCode: %d", title, code)
}

func txtCategoryAdded(name string) string {
	return fmt.Sprintf("✅ Genre %q added.", name)
}

func txtAdminDetail(name, username string, id int64, role string) string {
	return fmt.Sprintf("👤 *Admin details*\n\nName: %s\nUsername: %s\nID: `%d`\nRole: %s",
		format.Escape(name), format.Escape(username), id, role)
}

func txtUserPromoted(id int64) string {
	return fmt.Sprintf("✅ User %d is now an ADMIN.", id)
}

func txtAccessRemovedFor(id int64) string {
	return fmt.Sprintf("✅ Admin access removed for %d.", id)
}

func txtPage(current, total int) string {
	return fmt.Sprintf("Page %d/%d", current, total)
}
