// Package booking turns a uniform booking request into a call to one of the
// supported scheduling APIs and normalizes the outcome.
package booking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"bookproxy/internal/domain"
	"bookproxy/internal/events"
	"bookproxy/internal/logging"
	"bookproxy/internal/metrics"
	"bookproxy/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Booker creates bookings with one scheduling provider.
type Booker interface {
	Provider() models.Provider
	Configured() bool
	Book(ctx context.Context, intent models.BookingIntent) (*models.BookingResult, error)
}

type Service struct {
	bookers         map[models.Provider]Booker
	validate        *validator.Validate
	defaultTimeZone string
	publisher       domain.EventPublisher
	logger          *zerolog.Logger
}

// NewService wires the bookers. publisher may be nil.
func NewService(defaultTimeZone string, publisher domain.EventPublisher, logger *zerolog.Logger, bookers ...Booker) *Service {
	m := make(map[models.Provider]Booker, len(bookers))
	for _, b := range bookers {
		m[b.Provider()] = b
	}
	return &Service{
		bookers:         m,
		validate:        newValidator(),
		defaultTimeZone: defaultTimeZone,
		publisher:       publisher,
		logger:          logging.Component(logger, "booking"),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Providers reports which providers can currently take bookings.
func (s *Service) Providers() map[models.Provider]bool {
	out := make(map[models.Provider]bool, len(s.bookers))
	for p, b := range s.bookers {
		out[p] = b.Configured()
	}
	return out
}

// CreateBooking validates req, forwards it to the selected provider and
// returns the uniform result. Errors are *Error values; see HTTPStatus.
func (s *Service) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error) {
	req.Normalize()

	intent, err := s.buildIntent(req)
	if err != nil {
		s.record(ctx, intent, nil, err)
		return nil, err
	}

	booker, ok := s.bookers[intent.Provider]
	if !ok {
		err = configurationError(fmt.Sprintf("Server not configured - provider %s is not available", intent.Provider))
		s.record(ctx, intent, nil, err)
		return nil, err
	}

	result, err := booker.Book(ctx, intent)
	s.record(ctx, intent, result, err)
	return result, err
}

func (s *Service) buildIntent(req models.BookingRequest) (models.BookingIntent, error) {
	provider, err := models.ParseProvider(req.Provider)
	if err != nil {
		return models.BookingIntent{Provider: models.Provider("unknown")}, validationError(err.Error())
	}
	intent := models.BookingIntent{Provider: provider}

	var missing, invalid []string
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return intent, validationError(err.Error())
		}
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				missing = append(missing, fe.Field())
			} else {
				invalid = append(invalid, describeFieldError(fe))
			}
		}
	}

	switch provider {
	case models.ProviderSavvyCal:
		if req.LinkID == "" {
			missing = append(missing, "link_id")
		}
		intent.Ref = models.LinkRef{LinkID: req.LinkID}
	case models.ProviderCalCom:
		if req.Username == "" {
			missing = append(missing, "username")
		}
		if req.EventSlug == "" {
			missing = append(missing, "event_slug")
		}
		intent.Ref = models.EventTypeRef{Username: req.Username, EventSlug: req.EventSlug}
	}

	if len(missing) > 0 {
		return intent, validationError("Missing required fields: " + strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return intent, validationError(strings.Join(invalid, "; "))
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return intent, validationError("start_at must be an ISO-8601 timestamp")
	}

	tz := req.TimeZone
	if tz == "" {
		tz = s.defaultTimeZone
	}
	if tz == "Local" {
		return intent, validationError(fmt.Sprintf("unknown time_zone %q", tz))
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return intent, validationError(fmt.Sprintf("unknown time_zone %q", tz))
	}

	intent.StartAt = startAt.UTC()
	intent.DurationMinutes = req.Duration
	intent.AttendeeName = req.AttendeeName
	intent.AttendeeEmail = req.AttendeeEmail
	intent.TimeZone = tz
	intent.Guests = req.Guests
	return intent, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return fe.Field() + " must be a valid email address"
	case "gte":
		return fe.Field() + " must not be negative"
	case "lte":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

func (s *Service) record(ctx context.Context, intent models.BookingIntent, result *models.BookingResult, err error) {
	logger := logging.FromContext(ctx, s.logger)
	metrics.IncBooking(intent.Provider.String(), Outcome(err))

	payload := events.BookingEventPayload{
		Provider:      intent.Provider.String(),
		AttendeeName:  intent.AttendeeName,
		AttendeeEmail: intent.AttendeeEmail,
		Guests:        intent.Guests,
		TimeZone:      intent.TimeZone,
		StartAt:       intent.StartAt,
	}

	eventType := events.EventBookingCreated
	if err != nil {
		eventType = events.EventBookingFailed
		payload.Error = Message(err)
		payload.StatusCode = HTTPStatus(err)

		ev := logger.Warn()
		if payload.StatusCode >= 500 {
			ev = logger.Error()
		}
		ev.Err(err).
			Str("provider", payload.Provider).
			Int("status", payload.StatusCode).
			Msg("booking failed")
	} else {
		payload.EventID = result.EventID
		payload.StartAt = result.StartAt
		payload.EndAt = result.EndAt

		logger.Info().
			Str("provider", payload.Provider).
			Str("event_id", result.EventID).
			Time("start_at", result.StartAt).
			Time("end_at", result.EndAt).
			Msg("booking created")
	}

	if s.publisher == nil {
		return
	}
	if pubErr := s.publisher.PublishJSON(eventType, payload); pubErr != nil {
		logger.Warn().Err(pubErr).Str("event", eventType).Msg("publish booking event")
	}
}
