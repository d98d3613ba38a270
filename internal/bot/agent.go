package bot

import (
	"fmt"
	"strings"

	tghelpers "github.com/MaxAltyn/Cash-Healer/core/telegram/helpers"
	"github.com/MaxAltyn/Cash-Healer/internal/agent"

	tele "gopkg.in/telebot.v4"
)

// contextLine gives the agent enough identity to personalise replies.
func contextLine(c tele.Context) string {
	var chatID, userID int64
	var username, firstName, lastName string
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if sender := c.Sender(); sender != nil {
		userID = sender.ID
		username = sender.Username
		firstName = sender.FirstName
		lastName = sender.LastName
	}
	return fmt.Sprintf("KONTEXT: chatId=%d, userId=%d, userName=%s, firstName=%s, lastName=%s",
		chatID, userID, username, firstName, lastName)
}

func (b *Bot) askAgent(c tele.Context, prompt string) error {
	ctx := tghelpers.BuildContext(c)
	// Best effort; the agent works for unknown users too.
	_, _ = b.ensureUser(ctx, c)

	var threadID string
	if sender := c.Sender(); sender != nil {
		threadID = agent.ThreadID(sender.ID)
	}

	reply, err := b.agent.Generate(ctx, threadID, prompt)
	if err != nil {
		return tghelpers.SendText(c, msgGenericError)
	}
	return tghelpers.SendText(c, reply)
}

// agentTextFallback sends free text to the conversational agent.
func (b *Bot) agentTextFallback(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return nil
	}
	prompt := fmt.Sprintf("Пользователь написал: \"%s\"\n\n%s", text, contextLine(c))
	return b.askAgent(c, prompt)
}

// agentCallbackFallback handles callback payloads outside the token grammar.
func (b *Bot) agentCallbackFallback(c tele.Context) error {
	data := ""
	if cb := c.Callback(); cb != nil {
		data = strings.TrimPrefix(cb.Data, "\f")
	}
	prompt := fmt.Sprintf("Пользователь нажал кнопку: \"%s\"\n\n%s", data, contextLine(c))
	return b.askAgent(c, prompt)
}
