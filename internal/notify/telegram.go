package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel delivers HTML messages through the Telegram Bot API.
type TelegramChannel struct {
	bot botSender
}

// NewTelegramChannel authenticates the bot token. timeout bounds every API call.
func NewTelegramChannel(token string, timeout time.Duration) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramChannel{bot: bot}, nil
}

// Send posts text to the user's chat. The bot client has no context support, so
// ctx only bounds how long the caller waits.
func (c *TelegramChannel) Send(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send to %d: %w", userID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send to %d: %w", userID, ctx.Err())
	}
}
