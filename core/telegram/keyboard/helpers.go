package keyboard

import tele "gopkg.in/telebot.v4"

// RawBtn is an inline button whose callback data is sent verbatim,
// without the unique/payload framing markup.Data applies.
type RawBtn struct {
	Text string
	Data string
}

// RawButtons builds an inline keyboard from rows of RawBtn.
func RawButtons(rows ...[]RawBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline[i] = r
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// WebAppButton builds an inline keyboard with a single button that opens
// the given URL as a Telegram mini app.
func WebAppButton(text, url string) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{
		{Text: text, WebApp: &tele.WebApp{URL: url}},
	}}}
}
