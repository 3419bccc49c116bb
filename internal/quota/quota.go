// Package quota implements the two request gates: a generic per-route
// sliding-window throttle and the entitlement-gated AI quota. Both use
// fixed-width windows backed by the quota store; counters are checked and
// then incremented, so concurrent requests can slightly overshoot a limit.
// That imprecision is accepted in exchange for a single store round-trip.
package quota

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
)

// Decision is the outcome of one gate check. Used and Limit feed the
// paywall response headers.
type Decision struct {
	Allowed         bool
	Used            int
	Limit           int
	RetryAfter      time.Duration
	HasSubscription bool
}

// LimitConfig is the throttle shape for one route.
type LimitConfig struct {
	// UserLimit applies when the request carries a user id.
	UserLimit int `yaml:"user_limit"`

	// IPLimit applies to anonymous requests, keyed by client IP.
	IPLimit int `yaml:"ip_limit"`

	// WindowMinutes is the fixed window width.
	WindowMinutes int `yaml:"window_minutes"`
}

func (c *LimitConfig) defaults() {
	if c.UserLimit <= 0 {
		c.UserLimit = 30
	}
	if c.IPLimit <= 0 {
		c.IPLimit = 60
	}
	if c.WindowMinutes <= 0 {
		c.WindowMinutes = 60
	}
}

// Limiter is the generic per-route throttle.
type Limiter struct {
	store  storage.QuotaStore
	logger *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewLimiter creates a Limiter over the quota store.
func NewLimiter(store storage.QuotaStore, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: store, logger: logger.With("component", "quota.limiter"), now: time.Now}
}

// Allow checks the counter for (route, caller) and increments it when the
// request is admitted. Identity is the user id when supplied, else the
// client IP. Store failures fail open: a broken quota store must not take
// the service down with it.
func (l *Limiter) Allow(ctx context.Context, route string, cfg LimitConfig, userID, clientIP string) Decision {
	cfg.defaults()
	identity := "ip:" + clientIP
	limit := cfg.IPLimit
	if userID != "" {
		identity = "user:" + userID
		limit = cfg.UserLimit
	}
	scope := "throttle:" + route
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	now := l.now()

	c, err := l.store.Get(ctx, scope, identity)
	if err != nil {
		l.logger.Warn("quota read failed, allowing request", "route", route, "error", err)
		return Decision{Allowed: true, Limit: limit}
	}
	if now.Sub(c.WindowStart) >= window {
		c = storage.Counter{WindowStart: now}
	}
	if c.Count >= limit {
		metricThrottled.WithLabelValues(route).Inc()
		return Decision{
			Allowed:    false,
			Used:       c.Count,
			Limit:      limit,
			RetryAfter: c.WindowStart.Add(window).Sub(now),
		}
	}

	c.Count++
	if err := l.store.Set(ctx, scope, identity, c); err != nil {
		l.logger.Warn("quota write failed", "route", route, "error", err)
	}
	return Decision{Allowed: true, Used: c.Count, Limit: limit}
}
