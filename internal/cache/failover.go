package cache

import (
	"context"
	"sync/atomic"
	"time"

	"bookproxy/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCache serves from primary until it errors, then from fallback,
// probing primary again once per recoveryInterval.
type FailoverCache struct {
	primary   domain.Cache
	fallback  domain.Cache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverCache(primary, fallback domain.Cache, logger *zerolog.Logger) *FailoverCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *FailoverCache) usePrimary() bool {
	if !c.isDown.Load() {
		return true
	}
	return c.now().Sub(time.Unix(0, c.lastCheck.Load())) > recoveryInterval
}

func (c *FailoverCache) markDown(err error) {
	if !c.isDown.Swap(true) {
		c.logger.Error().Err(err).Msg("primary cache failed, falling back to memory")
	}
	c.lastCheck.Store(c.now().UnixNano())
}

func (c *FailoverCache) markUp() {
	if c.isDown.Swap(false) {
		c.logger.Info().Msg("primary cache recovered")
	}
}

func (c *FailoverCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.usePrimary() {
		val, ok, err := c.primary.Get(ctx, key)
		if err == nil {
			c.markUp()
			return val, ok, nil
		}
		c.markDown(err)
	}
	return c.fallback.Get(ctx, key)
}

func (c *FailoverCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.usePrimary() {
		err := c.primary.Set(ctx, key, value, ttl)
		if err == nil {
			c.markUp()
			return nil
		}
		c.markDown(err)
	}
	return c.fallback.Set(ctx, key, value, ttl)
}
