package booking

import (
	"context"
	"time"

	"bookproxy/internal/logging"
	"bookproxy/internal/models"
	"bookproxy/internal/savvycal"

	"github.com/rs/zerolog"
)

// SavvyCalBooker books through a SavvyCal scheduling link.
type SavvyCalBooker struct {
	client          *savvycal.Client
	defaultDuration int
	logger          *zerolog.Logger
}

func NewSavvyCalBooker(client *savvycal.Client, defaultDuration int, logger *zerolog.Logger) *SavvyCalBooker {
	return &SavvyCalBooker{
		client:          client,
		defaultDuration: defaultDuration,
		logger:          logging.Component(logger, "savvycal"),
	}
}

func (b *SavvyCalBooker) Provider() models.Provider { return models.ProviderSavvyCal }

func (b *SavvyCalBooker) Configured() bool { return b.client.Configured() }

func (b *SavvyCalBooker) Book(ctx context.Context, intent models.BookingIntent) (*models.BookingResult, error) {
	if !b.client.Configured() {
		return nil, configurationError("Server not configured - missing SAVVYCAL_TOKEN")
	}
	ref, ok := intent.Ref.(models.LinkRef)
	if !ok || ref.LinkID == "" {
		return nil, validationError("Missing required fields: link_id")
	}
	logger := logging.FromContext(ctx, b.logger)

	link, err := b.client.GetLink(ctx, ref.LinkID)
	if err != nil {
		return nil, upstreamUnavailable(msgLinkUnavailable, err)
	}

	duration := link.ResolveDuration(intent.DurationMinutes, b.defaultDuration)
	if intent.DurationMinutes > 0 && duration != intent.DurationMinutes {
		logger.Info().
			Str("link_id", ref.LinkID).
			Int("requested", intent.DurationMinutes).
			Ints("offered", link.Durations).
			Int("using", duration).
			Msg("requested duration not offered by link")
	}

	start := intent.StartAt.UTC()
	end := models.EndAt(start, duration)

	resp, err := b.client.CreateEvent(ctx, ref.LinkID, savvycal.CreateEventRequest{
		StartAt:     start.Format(time.RFC3339),
		EndAt:       end.Format(time.RFC3339),
		Duration:    duration,
		TimeZone:    intent.TimeZone,
		Email:       intent.AttendeeEmail,
		DisplayName: intent.AttendeeName,
		Guests:      intent.Guests,
	})
	if err != nil {
		return nil, upstreamUnavailable(msgCreateFailed, err)
	}
	if !resp.OK() {
		return nil, upstreamRejected(resp.StatusCode, savvyCalErrorMessage(resp.Body))
	}

	eventID, err := eventIDFrom(resp.Body, "id")
	if err != nil {
		return nil, badUpstreamResponse(err)
	}

	return &models.BookingResult{
		Success:  true,
		Provider: models.ProviderSavvyCal,
		EventID:  eventID,
		StartAt:  start,
		EndAt:    end,
	}, nil
}
