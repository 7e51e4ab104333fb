// Package notify delivers booking notifications to chat channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookproxy/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const parseModeHTML = "HTML"

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts booking summaries to a single chat.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
}

func NewTelegramNotifier(bot Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// NewTelegramBot connects to the Bot API with the given token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

// Notify sends the booking summary. The Bot API call is not context aware;
// a cancelled ctx only prevents the send from starting.
func (n *TelegramNotifier) Notify(ctx context.Context, payload events.BookingEventPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatBooking(payload))
	msg.ParseMode = parseModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatBooking renders a booking event as Telegram HTML.
func FormatBooking(p events.BookingEventPayload) string {
	var b strings.Builder
	b.WriteString("<b>New booking</b>\n")
	fmt.Fprintf(&b, "Provider: %s\n", escape(p.Provider))
	fmt.Fprintf(&b, "Attendee: %s &lt;%s&gt;\n", escape(p.AttendeeName), escape(p.AttendeeEmail))
	if len(p.Guests) > 0 {
		fmt.Fprintf(&b, "Guests: %s\n", escape(strings.Join(p.Guests, ", ")))
	}
	fmt.Fprintf(&b, "When: %s - %s", formatTime(p.StartAt, p.TimeZone), formatTime(p.EndAt, p.TimeZone))
	if p.TimeZone != "" {
		fmt.Fprintf(&b, " (%s)", escape(p.TimeZone))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "ID: <code>%s</code>", escape(p.EventID))
	return b.String()
}

func formatTime(t time.Time, tz string) string {
	if loc, err := time.LoadLocation(tz); err == nil && tz != "" {
		t = t.In(loc)
	}
	return t.Format("2006-01-02 15:04")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return htmlEscaper.Replace(s)
}
