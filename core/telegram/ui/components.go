package ui

import tele "gopkg.in/telebot.v4"

// NewVideoResult builds an inline result that re-sends an uploaded video by file id.
func NewVideoResult(id, fileID, title, caption string, markup *tele.ReplyMarkup) *tele.VideoResult {
	result := &tele.VideoResult{
		Cache:   fileID,
		Title:   title,
		Caption: caption,
	}
	result.SetResultID(id)
	result.ReplyMarkup = markup
	return result
}
