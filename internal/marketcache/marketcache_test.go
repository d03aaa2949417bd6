package marketcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/pkg/logger"
)

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, interface{}) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}

func newFetcher(store Store, s *sleepRecorder) *Fetcher {
	return NewFetcher(store, 12*time.Second, logger.NewNop(), WithSleeper(s.sleep))
}

func TestCachedOrFetch_MissThenHit(t *testing.T) {
	store := NewMemoryStore()
	sleeps := &sleepRecorder{}
	f := newFetcher(store, sleeps)
	ctx := context.Background()

	var calls int32
	fetch := func(context.Context) (payload.Payload, error) {
		atomic.AddInt32(&calls, 1)
		return payload.Payload{"Symbol": "AAPL", "PERatio": "28.5"}, nil
	}

	key := MarketKey("aapl", "OVERVIEW", nil)
	first, err := f.CachedOrFetch(ctx, key, time.Hour, fetch)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first["Symbol"])
	assert.Equal(t, 1, sleeps.count())
	assert.Equal(t, []time.Duration{12 * time.Second}, sleeps.calls)

	second, err := f.CachedOrFetch(ctx, key, time.Hour, fetch)
	require.NoError(t, err)
	assert.Equal(t, "28.5", second["PERatio"])

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, sleeps.count(), "hit must not sleep")
	assert.Equal(t, 1, store.Len())
}

func TestCachedOrFetch_NoStoreAlwaysFetches(t *testing.T) {
	sleeps := &sleepRecorder{}
	f := newFetcher(nil, sleeps)

	var calls int32
	fetch := func(context.Context) (payload.Payload, error) {
		atomic.AddInt32(&calls, 1)
		return payload.Payload{}, nil
	}

	for i := 0; i < 2; i++ {
		_, err := f.CachedOrFetch(context.Background(), "market:AAPL:RSI:abc", time.Hour, fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, 2, sleeps.count())
}

func TestCachedOrFetch_FetchErrorIsNotCached(t *testing.T) {
	store := NewMemoryStore()
	sleeps := &sleepRecorder{}
	f := newFetcher(store, sleeps)

	boom := errors.New("upstream down")
	_, err := f.CachedOrFetch(context.Background(), "market:AAPL:RSI:abc", time.Hour,
		func(context.Context) (payload.Payload, error) { return nil, boom })

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, sleeps.count())
}

func TestCachedOrFetch_StoreFailureDegrades(t *testing.T) {
	sleeps := &sleepRecorder{}
	f := newFetcher(failingStore{}, sleeps)

	got, err := f.CachedOrFetch(context.Background(), "market:AAPL:EMA:abc", time.Hour,
		func(context.Context) (payload.Payload, error) { return payload.Payload{"ok": true}, nil })

	require.NoError(t, err)
	assert.Equal(t, true, got["ok"])
}

func TestCachedOrFetch_ZeroDelaySkipsSleep(t *testing.T) {
	sleeps := &sleepRecorder{}
	f := NewFetcher(NewMemoryStore(), 0, logger.NewNop(), WithSleeper(sleeps.sleep))

	_, err := f.CachedOrFetch(context.Background(), "market:AAPL:OBV:abc", time.Hour,
		func(context.Context) (payload.Payload, error) { return payload.Payload{}, nil })
	require.NoError(t, err)
	assert.Equal(t, 0, sleeps.count())
}

func TestCachedOrFetch_SingleFlight(t *testing.T) {
	f := NewFetcher(NewMemoryStore(), 0, logger.NewNop())

	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (payload.Payload, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return payload.Payload{"v": 1.0}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.CachedOrFetch(context.Background(), "market:AAPL:MACD:abc", time.Hour, fetch)
			assert.NoError(t, err)
		}()
	}

	// let the goroutines pile up on the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedOrFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store := NewMemoryStore()
	f := NewFetcher(store, 50*time.Millisecond, logger.NewNop())
	key := "market:AAPL:OVERVIEW:abc"

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (payload.Payload, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return payload.Payload{"Symbol": "AAPL"}, nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.CachedOrFetch(leaderCtx, key, time.Hour, fetch)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		p   payload.Payload
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		p, err := f.CachedOrFetch(context.Background(), key, time.Hour, fetch)
		follower <- outcome{p, err}
	}()

	// let the follower join the in-flight call
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "AAPL", got.p["Symbol"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var cached payload.Payload
	found, err := store.Get(context.Background(), key, &cached)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, store.Set(ctx, "forever", "x", 0))

	var got map[string]int
	found, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got["a"])

	now = now.Add(2 * time.Minute)
	found, err = store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	var s string
	found, err = store.Get(ctx, "forever", &s)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", s)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, store.Set(ctx, "long", 2, time.Hour))
	require.NoError(t, store.Set(ctx, "forever", 3, 0))

	assert.Equal(t, 0, store.PurgeExpired())

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 1, store.PurgeExpired())
	assert.Equal(t, 2, store.Len())
}

func TestHashSelection(t *testing.T) {
	assert.Equal(t, SelectionAll, HashSelection(nil))
	assert.Equal(t, SelectionAll, HashSelection([]string{}))

	ab := HashSelection([]string{"roe", "roa"})
	assert.Len(t, ab, 12)
	assert.Equal(t, ab, HashSelection([]string{"roa", "roe"}))
	assert.NotEqual(t, ab, HashSelection([]string{"roe"}))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "analysis:AAPL:all:all", AnalysisKey(" aapl ", nil, []string{}))

	rsi := MarketKey("AAPL", "RSI", map[string]string{"interval": "daily", "time_period": "14", "series_type": "close"})
	assert.Regexp(t, `^market:AAPL:RSI:[0-9a-f]{12}$`, rsi)
	assert.NotEqual(t, rsi, MarketKey("AAPL", "RSI", map[string]string{"interval": "daily"}))
	assert.Equal(t, MarketKey("AAPL", "OBV", nil), MarketKey("AAPL", "OBV", map[string]string{}))

	k1, err := NarrativeKey("msft", map[string]float64{"overall": 7.2})
	require.NoError(t, err)
	k2, err := NarrativeKey("MSFT", map[string]float64{"overall": 7.2})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Regexp(t, `^narrative:MSFT:[0-9a-f]{12}$`, k1)

	assert.Equal(t, "RSI", functionOf(rsi))
	assert.Equal(t, "analysis", functionOf("analysis:AAPL:all"))
}
