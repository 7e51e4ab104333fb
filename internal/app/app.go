// Package app wires configuration into the booking service and its
// supporting infrastructure. Both binaries build on it.
package app

import (
	"context"
	"time"

	"bookproxy/internal/booking"
	"bookproxy/internal/cache"
	"bookproxy/internal/calcom"
	"bookproxy/internal/config"
	"bookproxy/internal/domain"
	"bookproxy/internal/events"
	"bookproxy/internal/logging"
	"bookproxy/internal/notify"
	"bookproxy/internal/savvycal"
	"bookproxy/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "bookproxy:"

type App struct {
	Service  *booking.Service
	Bus      *events.EventBus
	SavvyCal *savvycal.Client
	CalCom   *calcom.Client

	redis  *redis.Client
	logger *zerolog.Logger
}

// New builds the clients, bookers and event bus described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *App {
	a := &App{logger: logging.Component(logger, "app")}

	store := a.initCache(ctx, cfg)
	ttl := cfg.Cache.TTL()

	a.Bus = events.NewEventBus(logging.Component(logger, "events"))
	a.SavvyCal = savvycal.NewClient(cfg.Providers.SavvyCal, store, ttl, logger)
	a.CalCom = calcom.NewClient(cfg.Providers.CalCom, store, ttl, logger)
	a.Service = booking.NewService(
		cfg.Booking.DefaultTimeZone,
		a.Bus,
		logger,
		booking.NewSavvyCalBooker(a.SavvyCal, cfg.Booking.DefaultDuration, logger),
		booking.NewCalComBooker(a.CalCom, cfg.Booking.DefaultDuration, cfg.Booking.DefaultHostName, logger),
	)

	for provider, ok := range a.Service.Providers() {
		if !ok {
			a.logger.Warn().Str("provider", provider.String()).Msg("provider token missing, bookings will fail")
		}
	}
	return a
}

// initCache returns nil when caching is off. Redis is used when reachable,
// with an in-memory fallback.
func (a *App) initCache(ctx context.Context, cfg *config.Config) domain.Cache {
	if cfg.Cache.TTLSeconds <= 0 {
		return nil
	}

	memory := cache.NewMemoryCache()
	if cfg.Redis.Address == "" {
		a.logger.Info().Dur("ttl", cfg.Cache.TTL()).Msg("using in-memory metadata cache")
		return memory
	}

	client := cache.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx, client); err != nil {
		a.logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = client.Close()
		return memory
	}

	a.redis = client
	a.logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return cache.NewFailoverCache(cache.NewRedisCache(client, redisKeyPrefix), memory, logging.Component(a.logger, "cache"))
}

// StartNotifier subscribes a Telegram notifier to booking_created events
// when configured. It returns false when notifications are disabled.
func (a *App) StartNotifier(ctx context.Context, cfg config.TelegramConfig, logger *zerolog.Logger) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}
	bot, err := notify.NewTelegramBot(cfg.BotToken)
	if err != nil {
		return false, err
	}

	w := worker.NewNotifyWorker(
		notify.NewTelegramNotifier(bot, cfg.ChatID),
		cfg.QueueSize,
		worker.RetryPolicy{MaxRetries: cfg.MaxRetries},
		logger,
	)
	a.Bus.Subscribe(events.EventBookingCreated, w.HandleEvent)
	go w.Start(ctx)

	a.logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", cfg.ChatID).Msg("telegram notifications enabled")
	return true, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
