package booking

import (
	"context"
	"time"

	"bookproxy/internal/calcom"
	"bookproxy/internal/logging"
	"bookproxy/internal/models"

	"github.com/rs/zerolog"
)

// CalComBooker books a Cal.com event type addressed by username and slug.
type CalComBooker struct {
	client          *calcom.Client
	defaultDuration int
	defaultHostName string
	logger          *zerolog.Logger
}

func NewCalComBooker(client *calcom.Client, defaultDuration int, defaultHostName string, logger *zerolog.Logger) *CalComBooker {
	return &CalComBooker{
		client:          client,
		defaultDuration: defaultDuration,
		defaultHostName: defaultHostName,
		logger:          logging.Component(logger, "calcom"),
	}
}

func (b *CalComBooker) Provider() models.Provider { return models.ProviderCalCom }

func (b *CalComBooker) Configured() bool { return b.client.Configured() }

// lookupHostName asks Cal.com for the token owner's display name.
func (b *CalComBooker) lookupHostName(ctx context.Context) (string, bool) {
	profile, err := b.client.Me(ctx)
	if err != nil {
		logging.FromContext(ctx, b.logger).Warn().Err(err).Msg("host lookup failed, using default host name")
		return "", false
	}
	name := profile.DisplayName()
	return name, name != ""
}

func (b *CalComBooker) hostName(ctx context.Context) string {
	if name, ok := b.lookupHostName(ctx); ok {
		return name
	}
	return b.defaultHostName
}

func (b *CalComBooker) Book(ctx context.Context, intent models.BookingIntent) (*models.BookingResult, error) {
	if !b.client.Configured() {
		return nil, configurationError("Server not configured - missing CALCOM_TOKEN")
	}
	ref, ok := intent.Ref.(models.EventTypeRef)
	if !ok || ref.Username == "" || ref.EventSlug == "" {
		return nil, validationError("Missing required fields: username, event_slug")
	}

	host := b.hostName(ctx)

	duration := intent.DurationMinutes
	if duration <= 0 {
		duration = b.defaultDuration
	}
	start := intent.StartAt.UTC()
	end := models.EndAt(start, duration)

	resp, err := b.client.CreateBooking(ctx, calcom.CreateBookingRequest{
		Start:         start.Format(time.RFC3339),
		EventTypeSlug: ref.EventSlug,
		Username:      ref.Username,
		Attendee: calcom.Attendee{
			Name:     intent.AttendeeName,
			Email:    intent.AttendeeEmail,
			TimeZone: intent.TimeZone,
		},
		Guests: intent.Guests,
		BookingFieldsResponses: map[string]any{
			"title": host + " and " + intent.AttendeeName,
		},
		Metadata: map[string]string{"source": "bookproxy"},
	})
	if err != nil {
		return nil, upstreamUnavailable(msgCreateFailed, err)
	}
	if !resp.OK() {
		return nil, upstreamRejected(resp.StatusCode, calComErrorMessage(resp.Body))
	}

	bookingID, err := eventIDFrom(resp.Body, "uid", "id")
	if err != nil {
		return nil, badUpstreamResponse(err)
	}

	return &models.BookingResult{
		Success:  true,
		Provider: models.ProviderCalCom,
		EventID:  bookingID,
		StartAt:  start,
		EndAt:    end,
	}, nil
}
