package worker

import (
	"context"
	"time"

	"bookproxy/internal/events"
	"bookproxy/internal/logging"

	"github.com/rs/zerolog"
)

// Notifier delivers a booking notification to an external channel.
type Notifier interface {
	Notify(ctx context.Context, payload events.BookingEventPayload) error
}

// NotifyWorker delivers booking notifications in the background. Enqueue
// never blocks: a full queue drops the notification.
type NotifyWorker struct {
	notifier    Notifier
	retryPolicy RetryPolicy
	queue       chan events.BookingEventPayload
	logger      *zerolog.Logger

	// sleep waits between delivery attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewNotifyWorker builds a worker. Zero policy fields take defaults.
func NewNotifyWorker(notifier Notifier, queueSize int, retry RetryPolicy, logger *zerolog.Logger) *NotifyWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &NotifyWorker{
		notifier:    notifier,
		retryPolicy: retry.withDefaults(),
		queue:       make(chan events.BookingEventPayload, queueSize),
		logger:      logging.Component(logger, "notify_worker"),
		sleep:       sleepContext,
	}
}

// Enqueue schedules a notification. It reports false when the queue is full.
func (w *NotifyWorker) Enqueue(payload events.BookingEventPayload) bool {
	select {
	case w.queue <- payload:
		return true
	default:
		w.logger.Warn().
			Str("provider", payload.Provider).
			Str("event_id", payload.EventID).
			Msg("notification queue full, dropping")
		return false
	}
}

// HandleEvent is an events.EventHandler that enqueues booking events.
func (w *NotifyWorker) HandleEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}
	w.Enqueue(payload)
	return nil
}

// Start runs the delivery loop until ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-w.queue:
			w.deliver(ctx, payload)
		}
	}
}

// deliver tries the notifier until it succeeds, the retry budget is spent
// or ctx is cancelled.
func (w *NotifyWorker) deliver(ctx context.Context, payload events.BookingEventPayload) bool {
	for attempt := 1; ; attempt++ {
		err := w.notifier.Notify(ctx, payload)
		if err == nil {
			return true
		}

		log := w.logger.Warn().Err(err).Int("attempt", attempt).Str("event_id", payload.EventID)
		if w.retryPolicy.Exhausted(attempt) {
			log.Msg("notification failed, giving up")
			return false
		}

		delay := w.retryPolicy.NextDelay(attempt)
		log.Dur("retry_in", delay).Msg("notification failed, retrying")
		if err := w.sleep(ctx, delay); err != nil {
			return false
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
