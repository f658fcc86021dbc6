// Package cache provides a read-through cache in front of a market data source
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/interfaces"
	"github.com/bobmcallan/vire-analyst/internal/models"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	series  *models.PriceSeries
	expires time.Time
}

// SeriesCache memoises FetchHistory results per symbol and lookback for a
// short TTL. Concurrent misses for the same key share one upstream call.
// Metadata and headline lookups pass straight through.
type SeriesCache struct {
	source  interfaces.MarketDataSource
	ttl     time.Duration
	logger  *common.Logger
	now     func() time.Time
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]entry
}

var _ interfaces.MarketDataSource = (*SeriesCache)(nil)

// Option configures the cache
type Option func(*SeriesCache)

// WithTTL sets how long a fetched series is served from memory
func WithTTL(ttl time.Duration) Option {
	return func(c *SeriesCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(c *SeriesCache) {
		c.logger = logger
	}
}

// WithClock overrides the clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(c *SeriesCache) {
		c.now = now
	}
}

// NewSeriesCache wraps source with a TTL cache
func NewSeriesCache(source interfaces.MarketDataSource, opts ...Option) *SeriesCache {
	c := &SeriesCache{
		source:  source,
		ttl:     DefaultTTL,
		logger:  common.NewSilentLogger(),
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(symbol string, lookback models.Lookback) string {
	return fmt.Sprintf("%s|%s", strings.ToUpper(symbol), lookback)
}

// FetchHistory returns a cached series when fresh, otherwise fetches and stores it.
// Errors are never cached.
func (c *SeriesCache) FetchHistory(ctx context.Context, symbol string, lookback models.Lookback) (*models.PriceSeries, error) {
	key := cacheKey(symbol, lookback)

	if series, ok := c.lookup(key); ok {
		c.logger.Debug().Str("symbol", symbol).Msg("Price history cache hit")
		return series, nil
	}

	// The upstream call is detached from the caller that started it so one
	// cancelled request cannot fail the others waiting on the same key.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A flight that finished between the lookup above and DoChan has already stored
		if series, ok := c.lookup(key); ok {
			return series, nil
		}
		series, err := c.source.FetchHistory(fetchCtx, symbol, lookback)
		if err != nil {
			return nil, err
		}
		c.store(key, series)
		return series, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c.logger.Debug().Str("symbol", symbol).Bool("shared", res.Shared).Msg("Price history cache miss")
		return res.Val.(*models.PriceSeries), nil
	}
}

func (c *SeriesCache) lookup(key string) (*models.PriceSeries, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.series, true
}

func (c *SeriesCache) store(key string, series *models.PriceSeries) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{series: series, expires: now.Add(c.ttl)}
}

// FetchMetadata passes through to the underlying source
func (c *SeriesCache) FetchMetadata(ctx context.Context, symbol string) (*models.Metadata, error) {
	return c.source.FetchMetadata(ctx, symbol)
}

// FetchHeadlines passes through to the underlying source
func (c *SeriesCache) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	return c.source.FetchHeadlines(ctx, symbol, limit)
}

// Len returns the number of cached series, including expired ones not yet evicted
func (c *SeriesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes all cached series
func (c *SeriesCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}
