package quota

import (
	"sync"
	"time"
)

// subscriptionCache remembers active subscription checks per user for a
// short TTL. Inactive and errored results are deliberately never stored.
type subscriptionCache struct {
	ttl time.Duration

	mu      sync.Mutex
	expires map[string]time.Time
}

func newSubscriptionCache(ttl time.Duration) *subscriptionCache {
	return &subscriptionCache{ttl: ttl, expires: make(map[string]time.Time)}
}

func (c *subscriptionCache) get(userID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.expires[userID]
	if !ok {
		return false
	}
	if now.After(exp) {
		delete(c.expires, userID)
		return false
	}
	return true
}

func (c *subscriptionCache) set(userID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expires[userID] = now.Add(c.ttl)
}

// sweep drops expired entries. Called from the maintenance cron.
func (c *subscriptionCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, exp := range c.expires {
		if now.After(exp) {
			delete(c.expires, id)
		}
	}
}
