package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookproxy/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func samplePayload() events.BookingEventPayload {
	return events.BookingEventPayload{
		Provider:      "savvycal",
		EventID:       "evt_1",
		AttendeeName:  "Jane <J>",
		AttendeeEmail: "jane@x.com",
		Guests:        []string{"a@x.com", "b@x.com"},
		TimeZone:      "America/New_York",
		StartAt:       time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC),
		EndAt:         time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC),
	}
}

func TestFormatBooking(t *testing.T) {
	text := FormatBooking(samplePayload())

	assert.Contains(t, text, "Provider: savvycal")
	assert.Contains(t, text, "Attendee: Jane &lt;J&gt; &lt;jane@x.com&gt;")
	assert.Contains(t, text, "Guests: a@x.com, b@x.com")
	assert.Contains(t, text, "When: 2025-01-01 10:00 - 2025-01-01 10:30 (America/New_York)")
	assert.Contains(t, text, "<code>evt_1</code>")
}

func TestFormatBookingWithoutTimeZone(t *testing.T) {
	p := samplePayload()
	p.TimeZone = ""
	p.Guests = nil

	text := FormatBooking(p)
	assert.Contains(t, text, "When: 2025-01-01 15:00 - 2025-01-01 15:30\n")
	assert.NotContains(t, text, "Guests:")
}

func TestTelegramNotifier(t *testing.T) {
	t.Run("sends to chat", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ChatID == 42 && msg.ParseMode == parseModeHTML
		})).Return(tgbotapi.Message{}, nil).Once()

		n := NewTelegramNotifier(sender, 42)
		require.NoError(t, n.Notify(context.Background(), samplePayload()))
		sender.AssertExpectations(t)
	})

	t.Run("wraps send error", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("flood")).Once()

		err := NewTelegramNotifier(sender, 42).Notify(context.Background(), samplePayload())
		assert.ErrorContains(t, err, "flood")
	})

	t.Run("cancelled context", func(t *testing.T) {
		sender := new(mockSender)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewTelegramNotifier(sender, 42).Notify(ctx, samplePayload())
		assert.ErrorIs(t, err, context.Canceled)
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})
}
