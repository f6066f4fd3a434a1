package bot

import "github.com/m3rciful/moviebot/core/telegram/state"

// Conversation states. Each one waits for a single kind of input.
const (
	WaitingMovieUpload      state.State = "WAITING_MOVIE_UPLOAD"
	WaitingMovieTitle       state.State = "WAITING_MOVIE_TITLE"
	WaitingMovieCategory    state.State = "WAITING_MOVIE_CATEGORY"
	WaitingChannelID        state.State = "WAITING_CHANNEL_ID"
	WaitingChannelLink      state.State = "WAITING_CHANNEL_LINK"
	WaitingMovieEditCode    state.State = "WAITING_MOVIE_EDIT_CODE"
	WaitingEditChannelTitle state.State = "WAITING_EDIT_CHANNEL_TITLE"
	WaitingEditChannelLink  state.State = "WAITING_EDIT_CHANNEL_LINK"
	WaitingEditMovieTitle   state.State = "WAITING_EDIT_MOVIE_TITLE"
	WaitingCategoryName     state.State = "WAITING_CATEGORY_NAME"
	WaitingPromoteID        state.State = "WAITING_PROMOTE_ID"
	WaitingMovieCode        state.State = "WAITING_MOVIE_CODE"
	WaitingFeedback         state.State = "WAITING_FEEDBACK"
	WaitingRequestTitle     state.State = "WAITING_REQUEST_TITLE"
)

// Scratch keys carried between the steps of a conversation.
const (
	scratchEditChannel = "temp_edit_channel"
	scratchEditMovie   = "temp_edit_movie"
	scratchEditAdmin   = "temp_edit_admin"
	scratchChannelID   = "temp_channel_id"
	scratchMovieFileID = "temp_movie_file_id"
	scratchMovieTitle  = "temp_movie_title"
)

// States lists every state, Idle included.
var States = []state.State{
	state.StateIdle,
	WaitingMovieUpload,
	WaitingMovieTitle,
	WaitingMovieCategory,
	WaitingChannelID,
	WaitingChannelLink,
	WaitingMovieEditCode,
	WaitingEditChannelTitle,
	WaitingEditChannelLink,
	WaitingEditMovieTitle,
	WaitingCategoryName,
	WaitingPromoteID,
	WaitingMovieCode,
	WaitingFeedback,
	WaitingRequestTitle,
}

func idle() []state.State { return []state.State{state.StateIdle} }

// Table is the transition table of every conversation the bot runs.
var Table = state.Table{
	WaitingMovieUpload:   {Accepts: state.KindVideo, Next: []state.State{WaitingMovieTitle}},
	WaitingMovieTitle:    {Accepts: state.KindText, Next: []state.State{WaitingMovieCategory}, Requires: []string{scratchMovieFileID}},
	WaitingMovieCategory: {Accepts: state.KindCallback, Next: idle(), Requires: []string{scratchMovieFileID, scratchMovieTitle}},

	WaitingChannelID:        {Accepts: state.KindText, Next: []state.State{state.StateIdle, WaitingChannelLink}},
	WaitingChannelLink:      {Accepts: state.KindText, Next: idle(), Requires: []string{scratchChannelID}},
	WaitingEditChannelTitle: {Accepts: state.KindText, Next: idle(), Requires: []string{scratchEditChannel}},
	WaitingEditChannelLink:  {Accepts: state.KindText, Next: idle(), Requires: []string{scratchEditChannel}},

	WaitingMovieEditCode:  {Accepts: state.KindText, Next: idle()},
	WaitingEditMovieTitle: {Accepts: state.KindText, Next: idle(), Requires: []string{scratchEditMovie}},
	WaitingCategoryName:   {Accepts: state.KindText, Next: idle()},

	// An unknown id keeps the admin here to try again.
	WaitingPromoteID: {Accepts: state.KindText, Next: []state.State{state.StateIdle, WaitingPromoteID}},

	WaitingMovieCode:    {Accepts: state.KindText, Next: idle()},
	WaitingFeedback:     {Accepts: state.KindText, Next: idle()},
	WaitingRequestTitle: {Accepts: state.KindText, Next: idle()},
}
