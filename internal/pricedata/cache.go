package pricedata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nivesh/internal/domain"
)

// Cache memoizes per-symbol Series loaded through a Loader, with a fixed
// time-to-live. It is an explicit object owned by its caller — one cache
// per backtest run or server — never process-wide state, so runs stay
// isolated and deterministic under test.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	series   *Series
	loadedAt time.Time
}

// NewCache creates a cache over loader with the given TTL. A zero or
// negative TTL means entries never expire (invalidation only).
func NewCache(loader Loader, ttl time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		log:     log,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the series for symbol, loading it on first use or after
// its TTL has elapsed.
func (c *Cache) Get(ctx context.Context, symbol string) (*Series, error) {
	c.mu.Lock()
	entry, ok := c.entries[symbol]
	fresh := ok && (c.ttl <= 0 || c.now().Sub(entry.loadedAt) < c.ttl)
	c.mu.Unlock()
	if fresh {
		return entry.series, nil
	}

	bars, err := c.loader(ctx, symbol)
	if err != nil {
		return nil, err
	}
	series := NewSeries(symbol, bars)

	c.mu.Lock()
	c.entries[symbol] = cacheEntry{series: series, loadedAt: c.now()}
	c.mu.Unlock()
	return series, nil
}

// AsOf implements Provider on top of the cache. A symbol that fails to
// load resolves to no price; the error is logged, not propagated, so
// one bad symbol cannot abort a whole replay.
func (c *Cache) AsOf(ctx context.Context, symbol string, date time.Time) (domain.Bar, bool) {
	series, err := c.Get(ctx, symbol)
	if err != nil {
		c.log.Warn("loading price series", "symbol", symbol, "error", err)
		return domain.Bar{}, false
	}
	return series.AsOf(date)
}

// Invalidate evicts one symbol from the cache.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

// InvalidateAll evicts every cached series.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
