package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/venuewatch/venuewatch/internal/models"
)

// messageSender is the subset of the Telegram bot API used to deliver messages.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts new-event notifications to a moderators chat.
// Other notification types are ignored.
type TelegramSink struct {
	bot    messageSender
	chatID int64
}

// NewTelegramSink authenticates the bot token and returns a sink for chatID.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

// Notify sends the notification text to the chat.
func (s *TelegramSink) Notify(ctx context.Context, n models.Notification) error {
	if n.Type != models.NotificationNewEvents {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, formatTelegram(n))
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func formatTelegram(n models.Notification) string {
	return fmt.Sprintf("🎫 %s\nPending review at %s UTC", n.Message, n.Timestamp.UTC().Format("2006-01-02 15:04"))
}
