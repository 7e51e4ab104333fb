package worker

import (
	"math"
	"time"
)

const (
	defaultNotifyAttempts     = 3
	defaultNotifyInitialDelay = 2 * time.Second
	defaultNotifyMaxDelay     = 30 * time.Second
	defaultNotifyBackoff      = 2.0
)

// RetryPolicy controls how often a notification is attempted and how long
// the worker waits between attempts. Zero fields take notification defaults.
type RetryPolicy struct {
	MaxRetries    int // total delivery attempts, including the first
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultNotifyAttempts
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = defaultNotifyInitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = defaultNotifyMaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = defaultNotifyBackoff
	}
	return r
}

// Exhausted reports whether no attempt may follow the given one (1-based).
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay is the wait after a failed attempt (1-based), growing
// geometrically and clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if d <= 0 || d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}
