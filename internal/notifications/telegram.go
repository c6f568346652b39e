package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"
)

// TelegramNotifier delivers messages through the Telegram Bot API
type TelegramNotifier struct {
	bot *tele.Bot
}

// NewTelegramNotifier creates a bot without a poller: this process only
// sends, inbound updates are handled elsewhere.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot initialization failed: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

// Send delivers the message text to the user's private chat. A 403 from the
// API means the user blocked the bot, which callers treat as a purge signal.
func (t *TelegramNotifier) Send(ctx context.Context, msg *Message) (Outcome, error) {
	recipient := tele.ChatID(msg.UserID)
	_, err := t.bot.Send(recipient, msg.Text)
	if err == nil {
		return OutcomeSent, nil
	}

	if isBlockedError(err) {
		return OutcomeBlocked, err
	}
	return OutcomeFailed, err
}

func isBlockedError(err error) bool {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusForbidden
	}
	return false
}
