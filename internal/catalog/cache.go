// Package catalog shares the bot's radio-station list between pages.
package catalog

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const radiosKey = "radios"

// Cache keeps the radio list in memory for a TTL and collapses concurrent
// fetches into one request. Failures are never cached and stale entries are
// never served. A zero TTL disables caching but keeps the coalescing.
type Cache struct {
	source  domain.RadioSource
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *metrics.CacheMetrics
	group   singleflight.Group

	mu    sync.RWMutex
	entry *cacheEntry
}

type cacheEntry struct {
	radios    []domain.RadioStation
	expiresAt time.Time
}

var _ domain.RadioSource = (*Cache)(nil)

// NewCache wraps source. m may be nil.
func NewCache(source domain.RadioSource, ttl time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *Cache {
	return &Cache{source: source, ttl: ttl, clock: clock, metrics: m}
}

func (c *Cache) ListRadios(ctx context.Context) ([]domain.RadioStation, error) {
	if radios, ok := c.get(); ok {
		c.count(true)
		return radios, nil
	}
	c.count(false)

	// The shared fetch outlives any single caller: a page closing mid-flight
	// must not fail the pages waiting on the same request. The source's own
	// request timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(radiosKey, func() (any, error) {
		radios, err := c.source.ListRadios(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.set(radios)
		return radios, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.RadioStation)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) get() ([]domain.RadioStation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil || !c.clock.Now().Before(c.entry.expiresAt) {
		return nil, false
	}
	return slices.Clone(c.entry.radios), true
}

func (c *Cache) set(radios []domain.RadioStation) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &cacheEntry{radios: radios, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *Cache) count(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.Hits.Inc()
	} else {
		c.metrics.Misses.Inc()
	}
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}

// EvictExpired drops the cached list if it has expired and reports whether it did.
func (c *Cache) EvictExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil || c.clock.Now().Before(c.entry.expiresAt) {
		return false
	}
	c.entry = nil
	return true
}

// StartEvictionTimer evicts expired entries every interval until the returned
// stop function is called.
func (c *Cache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if c.EvictExpired() {
					slog.Debug("Evicted expired radio catalog")
					if c.metrics != nil {
						c.metrics.Evictions.Inc()
					}
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
