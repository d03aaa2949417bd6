package marketcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/pkg/logger"
	"github.com/wonny/equitylens/pkg/metrics"
)

// FetchFunc performs one upstream call
type FetchFunc func(ctx context.Context) (payload.Payload, error)

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Fetcher wraps upstream calls with a keyed cache.
// A hit returns immediately; a miss fetches, stores, then waits the
// request delay so consecutive misses respect the upstream quota.
// Concurrent misses on one key share a single fetch.
// ⭐ SSOT: 외부 API 호출 캐시는 여기서만
type Fetcher struct {
	store   Store
	delay   time.Duration
	sleep   Sleeper
	group   singleflight.Group
	metrics *metrics.Recorder
	logger  *logger.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithSleeper replaces the delay implementation (tests)
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithMetrics records cache lookups and fetch latency
func WithMetrics(m *metrics.Recorder) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher creates a fetcher. A nil store disables caching.
func NewFetcher(store Store, delay time.Duration, log *logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:  store,
		delay:  delay,
		sleep:  sleepContext,
		logger: log.Component("marketcache"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CachedOrFetch returns the payload cached under key or fetches it.
// Store failures degrade to a fetch. Fetch errors are not cached and are
// returned to the caller.
// The shared fetch is detached from the caller's cancellation so one
// cancelled caller does not fail the others waiting on the same key; each
// caller still returns as soon as its own ctx is done.
func (f *Fetcher) CachedOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (payload.Payload, error) {
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (interface{}, error) {
		return f.load(shared, key, ttl, fetch)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			f.logger.WithField("key", key).Debug("Shared in-flight fetch")
		}
		return res.Val.(payload.Payload), nil
	}
}

func (f *Fetcher) load(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (payload.Payload, error) {
	fam := family(key)

	if f.store != nil {
		var cached payload.Payload
		found, err := f.store.Get(ctx, key, &cached)
		switch {
		case err != nil:
			f.metrics.RecordCacheLookup(fam, metrics.CacheError)
			f.logger.WithError(err).WithField("key", key).Warn("Cache read failed, fetching")
		case found:
			f.metrics.RecordCacheLookup(fam, metrics.CacheHit)
			f.logger.WithField("key", key).Debug("Cache hit")
			return cached, nil
		default:
			f.metrics.RecordCacheLookup(fam, metrics.CacheMiss)
			f.logger.WithField("key", key).Debug("Cache miss")
		}
	}

	start := time.Now()
	result, err := fetch(ctx)
	f.metrics.RecordFetch(functionOf(key), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	if result == nil {
		result = payload.Payload{}
	}

	if f.store != nil {
		if err := f.store.Set(ctx, key, result, ttl); err != nil {
			f.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
		}
	}

	if f.delay > 0 {
		if err := f.sleep(ctx, f.delay); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// functionOf extracts the upstream function name from a market key
// (market:{symbol}:{function}:{hash})
func functionOf(key string) string {
	if parts := strings.SplitN(key, ":", 4); len(parts) == 4 {
		return parts[2]
	}
	return family(key)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
