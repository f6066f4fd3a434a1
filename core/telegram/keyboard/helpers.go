package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button carrying either raw callback data or a URL.
// Callback data is sent verbatim, without telebot's unique prefix, so
// handlers can route on it directly.
type Button struct {
	Text string
	Data string
	URL  string
}

// Data returns a callback button.
func Data(text, data string) Button { return Button{Text: text, Data: data} }

// URL returns a link button.
func URL(text, url string) Button { return Button{Text: text, URL: url} }

func (b Button) inline() tele.InlineButton {
	if b.URL != "" {
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	}
	return tele.InlineButton{Text: b.Text, Data: b.Data}
}

// Rows builds an inline keyboard from rows of buttons. Empty rows are dropped.
func Rows(rows ...[]Button) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = btn.inline()
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Column places each button on its own row.
func Column(buttons ...Button) *tele.ReplyMarkup {
	return Grid(buttons, 1)
}

// Grid splits a flat list of buttons into rows with up to n buttons per row.
func Grid(buttons []Button, n int) *tele.ReplyMarkup {
	if n < 1 {
		n = 1
	}
	var rows [][]Button
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return Rows(rows...)
}

// Append adds rows below an existing keyboard.
func Append(markup *tele.ReplyMarkup, rows ...[]Button) *tele.ReplyMarkup {
	if markup == nil {
		return Rows(rows...)
	}
	extra := Rows(rows...)
	markup.InlineKeyboard = append(markup.InlineKeyboard, extra.InlineKeyboard...)
	return markup
}
