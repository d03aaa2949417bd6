package jobs

import (
	"context"

	"github.com/wonny/equitylens/internal/marketcache"
	"github.com/wonny/equitylens/pkg/logger"
)

// CacheCleanupJob drops expired entries from the in-process cache.
// Only scheduled when Redis is disabled; Redis expires keys itself.
type CacheCleanupJob struct {
	store  *marketcache.MemoryStore
	logger *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(store *marketcache.MemoryStore, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		store:  store,
		logger: log.Component("cache_cleanup"),
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule
func (j *CacheCleanupJob) Schedule() string {
	return "0 */5 * * * *" // Every 5 minutes
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	count := j.store.PurgeExpired()

	if count > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed":   count,
			"remaining": j.store.Len(),
		}).Info("Cache cleanup completed")
	}

	return nil
}
