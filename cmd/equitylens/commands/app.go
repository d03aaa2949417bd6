package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/equitylens/internal/api/handlers"
	"github.com/wonny/equitylens/internal/brain"
	"github.com/wonny/equitylens/internal/data/repos"
	"github.com/wonny/equitylens/internal/external/alphavantage"
	"github.com/wonny/equitylens/internal/marketcache"
	"github.com/wonny/equitylens/internal/narrative"
	"github.com/wonny/equitylens/pkg/config"
	"github.com/wonny/equitylens/pkg/database"
	"github.com/wonny/equitylens/pkg/httputil"
	"github.com/wonny/equitylens/pkg/logger"
	"github.com/wonny/equitylens/pkg/metrics"
	"github.com/wonny/equitylens/pkg/redis"
)

// recordStore is what both analysis repositories provide
type recordStore interface {
	handlers.RecordStore
	narrative.OutcomeStore
}

// app holds every wired component of one process
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Recorder

	redis    *redis.Client
	db       *database.DB
	store    marketcache.Store
	memStore *marketcache.MemoryStore

	records      recordStore
	orchestrator *brain.Orchestrator
	worker       *narrative.Worker
}

// loadConfig loads configuration and builds the logger
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newApp connects to Redis and PostgreSQL when configured and wires the
// analysis pipeline. Missing infrastructure falls back to in-process stores.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 1. Cache store
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-process cache")
		rc = redis.Wrap(nil)
	}
	a.redis = rc
	if rc.Enabled() {
		a.store = redis.NewCache(rc, cfg.Redis.Prefix)
		log.Info("Connected to Redis")
	} else {
		a.memStore = marketcache.NewMemoryStore()
		a.store = a.memStore
	}

	// 2. Analysis records
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Info("DATABASE_URL not set, analysis records are kept in memory")
		a.records = repos.NewMemoryAnalysisRepository()
	case err != nil:
		a.close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
		repo := repos.NewAnalysisRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.records = repo
		log.Info("Connected to database")
	}

	// 3. Market data provider
	httpClient := httputil.New(log,
		httputil.WithTimeout(cfg.AlphaVantage.Timeout),
		httputil.WithRetry(2, 2*time.Second),
		httputil.WithLocalRateLimit(cfg.AlphaVantage.RatePerMinute),
		httputil.WithSharedRateLimit(
			redis.NewRateLimiter(rc, cfg.Redis.Prefix),
			redis.AlphaVantageRateLimit(cfg.AlphaVantage.RatePerMinute),
		),
	)
	provider, err := alphavantage.NewClient(httpClient, cfg.AlphaVantage, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("alpha vantage client: %w", err)
	}

	// 4. Narrative worker (optional)
	var opts []brain.Option
	opts = append(opts, brain.WithMetrics(a.metrics))
	if cfg.Narrative.Endpoint != "" {
		gen := narrative.NewHTTPGenerator(cfg.Narrative.Endpoint, cfg.Narrative.Model, cfg.Narrative.Timeout, log)
		a.worker = narrative.NewWorker(gen, cfg.Narrative, log,
			narrative.WithCache(a.store, cfg.Cache.NarrativeTTL),
			narrative.WithOutcomeStore(a.records),
			narrative.WithMetrics(a.metrics),
		)
		a.worker.Start(ctx)
		opts = append(opts, brain.WithDispatcher(a.worker))
	} else {
		log.Info("NARRATIVE_ENDPOINT not set, narratives are disabled")
	}

	// 5. Orchestrator
	fetcher := marketcache.NewFetcher(a.store, cfg.AlphaVantage.RequestDelay, log, marketcache.WithMetrics(a.metrics))
	a.orchestrator = brain.NewOrchestrator(provider, fetcher, a.store, cfg.Cache, log, opts...)

	return a, nil
}

// healthChecks lists the probes of the connected infrastructure
func (a *app) healthChecks() []handlers.HealthCheck {
	var checks []handlers.HealthCheck
	if a.db != nil {
		checks = append(checks, handlers.HealthCheck{Name: "database", Check: a.db.Ping})
	}
	if a.redis.Enabled() {
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: a.redis.Ping})
	}
	return checks
}

// close stops the worker, then releases connections
func (a *app) close() {
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close Redis")
		}
	}
}
