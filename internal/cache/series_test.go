package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

type mockSource struct {
	historyCalls  atomic.Int32
	metaCalls     atomic.Int32
	headlineCalls atomic.Int32
	release       chan struct{}
	err           error
}

func (m *mockSource) FetchHistory(ctx context.Context, symbol string, lookback models.Lookback) (*models.PriceSeries, error) {
	m.historyCalls.Add(1)
	if m.release != nil {
		<-m.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return &models.PriceSeries{
		Symbol:   symbol,
		Lookback: lookback,
		Bars:     []models.PriceBar{{Close: 1}},
	}, nil
}

func (m *mockSource) FetchMetadata(ctx context.Context, symbol string) (*models.Metadata, error) {
	m.metaCalls.Add(1)
	return &models.Metadata{Symbol: symbol, Name: "Test Co"}, nil
}

func (m *mockSource) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	m.headlineCalls.Add(1)
	return []string{"one", "two"}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)}
}

func TestFetchHistory_HitWithinTTL(t *testing.T) {
	src := &mockSource{}
	clock := newClock()
	c := NewSeriesCache(src, WithTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	first, err := c.FetchHistory(ctx, "AAPL", models.Lookback1Year)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	second, err := c.FetchHistory(ctx, "aapl", models.Lookback1Year)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.historyCalls.Load())
}

func TestFetchHistory_ExpiresAfterTTL(t *testing.T) {
	src := &mockSource{}
	clock := newClock()
	c := NewSeriesCache(src, WithTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	_, err := c.FetchHistory(ctx, "AAPL", models.Lookback1Year)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = c.FetchHistory(ctx, "AAPL", models.Lookback1Year)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.historyCalls.Load())
}

func TestFetchHistory_LookbackIsPartOfKey(t *testing.T) {
	src := &mockSource{}
	c := NewSeriesCache(src)
	ctx := context.Background()

	_, _ = c.FetchHistory(ctx, "AAPL", models.Lookback1Year)
	_, _ = c.FetchHistory(ctx, "AAPL", models.Lookback6Months)

	assert.Equal(t, int32(2), src.historyCalls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestFetchHistory_ErrorsNotCached(t *testing.T) {
	src := &mockSource{err: &models.NoDataError{Symbol: "BAD"}}
	c := NewSeriesCache(src)
	ctx := context.Background()

	_, err := c.FetchHistory(ctx, "BAD", models.Lookback1Year)
	var noData *models.NoDataError
	require.True(t, errors.As(err, &noData))

	_, err = c.FetchHistory(ctx, "BAD", models.Lookback1Year)
	assert.Error(t, err)
	assert.Equal(t, int32(2), src.historyCalls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestFetchHistory_ConcurrentMissesShareFetch(t *testing.T) {
	src := &mockSource{release: make(chan struct{})}
	c := NewSeriesCache(src)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*models.PriceSeries, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.FetchHistory(ctx, "MSFT", models.Lookback1Year)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	// Wait until the first caller is inside the upstream fetch
	require.Eventually(t, func() bool { return src.historyCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	// Callers that arrived after the fetch completed are served from the cache
	assert.Equal(t, int32(1), src.historyCalls.Load())
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestFetchHistory_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &mockSource{release: make(chan struct{})}
	c := NewSeriesCache(src)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FetchHistory(firstCtx, "NVDA", models.Lookback1Year)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.historyCalls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		series *models.PriceSeries
		err    error
	}
	second := make(chan result, 1)
	go func() {
		s, err := c.FetchHistory(context.Background(), "NVDA", models.Lookback1Year)
		second <- result{s, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "NVDA", got.series.Symbol)
	assert.Equal(t, int32(1), src.historyCalls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestStore_EvictsExpired(t *testing.T) {
	src := &mockSource{}
	clock := newClock()
	c := NewSeriesCache(src, WithTTL(time.Minute), WithClock(clock.Now))
	ctx := context.Background()

	_, _ = c.FetchHistory(ctx, "AAA", models.Lookback1Year)
	_, _ = c.FetchHistory(ctx, "BBB", models.Lookback1Year)
	require.Equal(t, 2, c.Len())

	clock.Advance(2 * time.Minute)
	_, _ = c.FetchHistory(ctx, "CCC", models.Lookback1Year)
	assert.Equal(t, 1, c.Len())
}

func TestPassThrough(t *testing.T) {
	src := &mockSource{}
	c := NewSeriesCache(src)
	ctx := context.Background()

	meta, err := c.FetchMetadata(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Test Co", meta.Name)

	_, _ = c.FetchMetadata(ctx, "AAPL")
	assert.Equal(t, int32(2), src.metaCalls.Load())

	headlines, err := c.FetchHeadlines(ctx, "AAPL", 3)
	require.NoError(t, err)
	assert.Len(t, headlines, 2)
	assert.Equal(t, int32(1), src.headlineCalls.Load())
}

func TestPurge(t *testing.T) {
	src := &mockSource{}
	c := NewSeriesCache(src)
	ctx := context.Background()

	_, _ = c.FetchHistory(ctx, "AAPL", models.Lookback1Year)
	c.Purge()
	assert.Equal(t, 0, c.Len())

	_, _ = c.FetchHistory(ctx, "AAPL", models.Lookback1Year)
	assert.Equal(t, int32(2), src.historyCalls.Load())
}
