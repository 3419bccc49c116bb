package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
)

// ErrUserRequired is returned when the paywall is checked without a user
// id. AI quota is always per-user.
var ErrUserRequired = errors.New("paywall requires a user id")

// Entitlement reports whether a user holds an active subscription.
// Implementations live in modules/entitlement.
type Entitlement interface {
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
}

const paywallScope = "paywall:analysis"

// noSubscriptions is the fallback provider used when no entitlement module
// is configured. Every user stays on the free tier.
type noSubscriptions struct{}

func (noSubscriptions) HasActiveSubscription(context.Context, string) (bool, error) {
	return false, nil
}

// PaywallConfig tunes the AI quota.
type PaywallConfig struct {
	// FreeRequests is how many analyses a non-subscriber gets per window.
	FreeRequests int `yaml:"free_requests"`

	// WindowMinutes is the quota window width.
	WindowMinutes int `yaml:"window_minutes"`

	// CacheTTL bounds how long an active subscription result is reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func (c *PaywallConfig) defaults() {
	if c.FreeRequests <= 0 {
		c.FreeRequests = 3
	}
	if c.WindowMinutes <= 0 {
		c.WindowMinutes = 240
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
}

// Paywall gates the analysis path: subscribers are unlimited, everyone
// else gets FreeRequests per window. The counter moves only in the
// non-subscriber branch and only for admitted requests.
type Paywall struct {
	cfg      PaywallConfig
	store    storage.QuotaStore
	provider Entitlement
	cache    *subscriptionCache
	logger   *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewPaywall creates a Paywall over the quota store and the subscription
// provider.
func NewPaywall(cfg PaywallConfig, store storage.QuotaStore, provider Entitlement, logger *slog.Logger) *Paywall {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Paywall{
		cfg:      cfg,
		store:    store,
		provider: provider,
		cache:    newSubscriptionCache(cfg.CacheTTL),
		logger:   logger.With("component", "quota.paywall"),
		now:      time.Now,
	}
}

// Allow admits or rejects one analysis request for userID.
//
// Provider errors fail open: the request is admitted without touching the
// counter, and the error result is not cached, so the next request probes
// the provider again. Only active subscriptions are cached; an inactive
// answer is re-checked every time so a fresh purchase takes effect
// immediately.
func (p *Paywall) Allow(ctx context.Context, userID string) (Decision, error) {
	if userID == "" {
		return Decision{}, ErrUserRequired
	}
	now := p.now()

	active := p.cache.get(userID, now)
	if !active {
		var err error
		active, err = p.provider.HasActiveSubscription(ctx, userID)
		if err != nil {
			p.logger.Warn("subscription check failed, allowing request",
				"user", userID, "error", err)
			used, _ := p.currentCount(ctx, userID, now)
			return Decision{Allowed: true, Used: used, Limit: p.cfg.FreeRequests}, nil
		}
		if active {
			p.cache.set(userID, now)
		}
	}

	if active {
		used, _ := p.currentCount(ctx, userID, now)
		return Decision{Allowed: true, Used: used, Limit: p.cfg.FreeRequests, HasSubscription: true}, nil
	}

	window := time.Duration(p.cfg.WindowMinutes) * time.Minute
	c, err := p.store.Get(ctx, paywallScope, userID)
	if err != nil {
		p.logger.Warn("paywall read failed, allowing request", "user", userID, "error", err)
		return Decision{Allowed: true, Limit: p.cfg.FreeRequests}, nil
	}
	if now.Sub(c.WindowStart) >= window {
		c = storage.Counter{WindowStart: now}
	}
	if c.Count >= p.cfg.FreeRequests {
		metricPaywalled.Inc()
		return Decision{
			Allowed:    false,
			Used:       c.Count,
			Limit:      p.cfg.FreeRequests,
			RetryAfter: c.WindowStart.Add(window).Sub(now),
		}, nil
	}

	c.Count++
	if err := p.store.Set(ctx, paywallScope, userID, c); err != nil {
		p.logger.Warn("paywall write failed", "user", userID, "error", err)
	}
	return Decision{Allowed: true, Used: c.Count, Limit: p.cfg.FreeRequests}, nil
}

func (p *Paywall) currentCount(ctx context.Context, userID string, now time.Time) (int, error) {
	c, err := p.store.Get(ctx, paywallScope, userID)
	if err != nil {
		return 0, err
	}
	if now.Sub(c.WindowStart) >= time.Duration(p.cfg.WindowMinutes)*time.Minute {
		return 0, nil
	}
	return c.Count, nil
}
