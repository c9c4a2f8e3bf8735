package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trackerwatch/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends transition events to a chat through the Telegram bot API.
type Telegram struct {
	api    telegramAPI
	chatID int64
}

// NewTelegram creates a Telegram channel. It validates the token against
// the bot API, so a bad token fails at startup.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Name implements Notifier.
func (t *Telegram) Name() string { return "telegram" }

// Send implements Notifier.
func (t *Telegram) Send(_ context.Context, event model.TransitionEvent) error {
	text := fmt.Sprintf("*%s - Signup Open!*\n\n%s\n\n[Open Signup Page](%s)",
		event.TrackerName, event.Message, event.Link())

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
