package api

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"bookproxy/internal/config"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// rateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than idleTTL are swept out during allow.
type rateLimiter struct {
	limiters  sync.Map // map[string]*clientLimiter
	cfg       config.APIRateLimitConfig
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	l := &rateLimiter{cfg: cfg, idleTTL: limiterIdleTTL, now: time.Now}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func (l *rateLimiter) enabled() bool {
	return l != nil && l.cfg.RPS > 0
}

func (l *rateLimiter) allow(r *http.Request) bool {
	if !l.enabled() {
		return true
	}
	now := l.now()
	l.maybeSweep(now)

	entry := l.getLimiter(clientIP(r))
	entry.lastSeen.Store(now.UnixNano())
	return entry.lim.AllowN(now, 1)
}

func (l *rateLimiter) getLimiter(key string) *clientLimiter {
	if v, ok := l.limiters.Load(key); ok {
		if entry, ok := v.(*clientLimiter); ok {
			return entry
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	entry := &clientLimiter{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)}
	actual, loaded := l.limiters.LoadOrStore(key, entry)
	if loaded {
		if existing, ok := actual.(*clientLimiter); ok {
			return existing
		}
	}
	return entry
}

// maybeSweep runs at most once per half idleTTL; the CAS lets a single
// request do the work.
func (l *rateLimiter) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idleTTL/2) {
		return
	}
	if !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-l.idleTTL).UnixNano()
	l.limiters.Range(func(key, v any) bool {
		if entry, ok := v.(*clientLimiter); !ok || entry.lastSeen.Load() < cutoff {
			l.limiters.Delete(key)
		}
		return true
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
