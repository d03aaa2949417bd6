package narrative

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/marketcache"
	"github.com/wonny/equitylens/pkg/config"
	"github.com/wonny/equitylens/pkg/logger"
	"github.com/wonny/equitylens/pkg/metrics"
)

// outcomeWriteTimeout bounds the cache and record writes after generation
const outcomeWriteTimeout = 5 * time.Second

var (
	// ErrQueueFull is returned by Dispatch when the queue has no room
	ErrQueueFull = errors.New("narrative queue full")
	// ErrStopped is returned by Dispatch after Stop
	ErrStopped = errors.New("narrative worker stopped")
)

// OutcomeStore persists the final narrative state of an analysis record
type OutcomeStore interface {
	UpdateNarrative(ctx context.Context, id, status string, n *contracts.Narrative) error
}

// Worker generates narratives in the background from a bounded queue
// ⭐ SSOT: 내러티브 생성은 이 구조체에서만
type Worker struct {
	generator Generator
	cache     marketcache.Store
	outcomes  OutcomeStore
	cacheTTL  time.Duration
	timeout   time.Duration
	workers   int

	jobs     chan contracts.NarrativeJob
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool

	metrics *metrics.Recorder
	logger  *logger.Logger
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithCache stores completed narratives under their dedup key
func WithCache(store marketcache.Store, ttl time.Duration) WorkerOption {
	return func(w *Worker) {
		w.cache = store
		w.cacheTTL = ttl
	}
}

// WithOutcomeStore persists outcomes to analysis records
func WithOutcomeStore(s OutcomeStore) WorkerOption {
	return func(w *Worker) { w.outcomes = s }
}

// WithMetrics counts outcomes
func WithMetrics(m *metrics.Recorder) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a new narrative worker
func NewWorker(gen Generator, cfg config.NarrativeConfig, log *logger.Logger, opts ...WorkerOption) *Worker {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	w := &Worker{
		generator: gen,
		timeout:   cfg.Timeout,
		workers:   workers,
		jobs:      make(chan contracts.NarrativeJob, queueSize),
		stopCh:    make(chan struct{}),
		logger:    log.Component("narrative"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dispatch queues a job without blocking
func (w *Worker) Dispatch(job contracts.NarrativeJob) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}

	select {
	case w.jobs <- job:
		w.logger.WithField("record_id", job.RecordID).Debug("Narrative job queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker goroutines. It returns immediately.
func (w *Worker) Start(ctx context.Context) {
	w.logger.WithField("workers", w.workers).Info("Starting narrative worker")
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}
}

// Stop stops accepting jobs and waits for in-flight jobs to finish.
// Jobs still queued are dropped.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.stopCh)
	})
	w.wg.Wait()

	if n := len(w.jobs); n > 0 {
		w.logger.WithField("dropped", n).Warn("Narrative worker stopped with queued jobs")
	}
	w.logger.Info("Narrative worker stopped")
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case job := <-w.jobs:
			w.Process(ctx, job)
		}
	}
}

// Process generates one narrative and records its outcome.
// Generation failures become a failed outcome and are not returned.
func (w *Worker) Process(ctx context.Context, job contracts.NarrativeJob) *contracts.NarrativeOutcome {
	log := w.logger.WithFields(map[string]interface{}{
		"record_id": job.RecordID,
		"symbol":    job.Payload.Symbol,
	})
	log.Info("Narrative job started")

	genCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	outcome := &contracts.NarrativeOutcome{Status: contracts.NarrativeCompleted}
	n, err := w.generator.Generate(genCtx, job.Payload)

	// the outcome is written even when ctx was cancelled mid-generation,
	// otherwise the record stays pending
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancelWrite()

	if err != nil {
		log.WithError(err).Error("Narrative generation failed")
		outcome.Status = contracts.NarrativeFailed
		outcome.Reason = err.Error()
	} else {
		outcome.Narrative = n
		if w.cache != nil && job.CacheKey != "" {
			if err := w.cache.Set(writeCtx, job.CacheKey, n, w.cacheTTL); err != nil {
				log.WithError(err).Warn("Failed to cache narrative")
			}
		}
	}

	if w.outcomes != nil && job.RecordID != "" {
		if err := w.outcomes.UpdateNarrative(writeCtx, job.RecordID, outcome.Status, outcome.Narrative); err != nil {
			log.WithError(err).Error("Failed to persist narrative outcome")
		}
	}

	w.metrics.RecordNarrative(outcome.Status)
	log.WithField("status", outcome.Status).Info("Narrative job finished")
	return outcome
}
