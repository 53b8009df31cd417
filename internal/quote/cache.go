package quote

import (
	"context"
	"sync"
	"time"

	"github.com/mtlprog/folio/internal/domain"
)

type cacheEntry struct {
	quote     domain.PriceQuote
	expiresAt time.Time
}

// CachedSource memoizes successful lookups for a fixed TTL.
// Failures are never cached.
type CachedSource struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCachedSource wraps source with a TTL cache.
func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// GetPrice returns a cached quote when fresh, otherwise asks the wrapped source.
func (c *CachedSource) GetPrice(ctx context.Context, ticker string) (domain.PriceQuote, error) {
	key := domain.NormalizeTicker(ticker)
	if q, ok := c.get(key); ok {
		return q, nil
	}

	q, err := c.source.GetPrice(ctx, ticker)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	c.set(key, q)
	return q, nil
}

func (c *CachedSource) get(key string) (domain.PriceQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return domain.PriceQuote{}, false
	}
	return entry.quote, true
}

func (c *CachedSource) set(key string, q domain.PriceQuote) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		quote:     q,
		expiresAt: c.now().Add(c.ttl),
	}
}
