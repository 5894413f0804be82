package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

// TelegramAPI is the part of *tgbotapi.BotAPI used to post messages
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram mirrors announcements into a Telegram chat as HTML
type Telegram struct {
	api    TelegramAPI
	chatID int64
}

// NewTelegram creates a mirror sink for chatID
func NewTelegram(api TelegramAPI, chatID int64) *Telegram {
	return &Telegram{api: api, chatID: chatID}
}

func (t *Telegram) Send(ctx context.Context, a domain.Announcement) error {
	if a.IsEmpty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatHTML(a))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send to telegram chat %d: %w", t.chatID, err)
	}
	return nil
}

// FormatHTML renders an announcement as Telegram HTML. The Discord-only
// @everyone mention is dropped.
func FormatHTML(a domain.Announcement) string {
	var sb strings.Builder

	content := strings.TrimSpace(strings.ReplaceAll(a.Content, "@everyone", ""))
	if content != "" {
		sb.WriteString(html.EscapeString(content))
	}

	if e := a.Embed; e != nil {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("<b>" + html.EscapeString(e.Title) + "</b>\n")
		if e.Description != "" {
			sb.WriteString(html.EscapeString(e.Description) + "\n")
		}
		for _, f := range e.Fields {
			sb.WriteString("\n<b>" + html.EscapeString(f.Name) + "</b>\n")
			sb.WriteString(html.EscapeString(f.Value) + "\n")
		}
		if e.Footer != "" {
			sb.WriteString("\n<i>" + html.EscapeString(e.Footer) + "</i>")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
