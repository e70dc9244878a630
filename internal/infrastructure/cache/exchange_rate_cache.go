package cache

import (
	"sync"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/domain/entity"
)

// DefaultExpiration is how long a fetched rate window stays fresh
const DefaultExpiration = 24 * time.Hour

// CacheEntry represents a cached rate window with its fetch time
type CacheEntry struct {
	Rates     []entity.RateRecord
	Timestamp time.Time
}

// ExchangeRateCache provides a thread-safe in-memory cache of rate windows
type ExchangeRateCache struct {
	cache      map[string]CacheEntry
	expiration time.Duration
	now        func() time.Time
	mutex      sync.RWMutex
}

// NewExchangeRateCache creates a new exchange rate cache
func NewExchangeRateCache(expiration time.Duration) *ExchangeRateCache {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	return &ExchangeRateCache{
		cache:      make(map[string]CacheEntry),
		expiration: expiration,
		now:        time.Now,
	}
}

// generateCacheKey creates a cache key from the window bounds
func generateCacheKey(start, end time.Time) string {
	return start.Format("2006-01-02") + ":" + end.Format("2006-01-02")
}

// Get returns a copy of the cached window, or false if it is missing or expired
func (c *ExchangeRateCache) Get(start, end time.Time) ([]entity.RateRecord, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[generateCacheKey(start, end)]
	if !exists || c.now().Sub(entry.Timestamp) > c.expiration {
		return nil, false
	}

	return cloneRates(entry.Rates), true
}

// Put stores a copy of the rates fetched for the window and drops every
// window that has expired
func (c *ExchangeRateCache) Put(start, end time.Time, rates []entity.RateRecord) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.removeExpired(now)

	c.cache[generateCacheKey(start, end)] = CacheEntry{
		Rates:     cloneRates(rates),
		Timestamp: now,
	}
}

// removeExpired deletes expired entries; the caller holds the write lock
func (c *ExchangeRateCache) removeExpired(now time.Time) {
	for key, entry := range c.cache {
		if now.Sub(entry.Timestamp) > c.expiration {
			delete(c.cache, key)
		}
	}
}

// Decimals are immutable, so a shallow slice copy is enough
func cloneRates(rates []entity.RateRecord) []entity.RateRecord {
	out := make([]entity.RateRecord, len(rates))
	copy(out, rates)
	return out
}
