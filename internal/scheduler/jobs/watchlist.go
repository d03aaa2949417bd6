package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/pkg/logger"
)

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req contracts.AnalysisRequest) (*contracts.AnalysisResult, error)
}

// WatchlistJob re-runs the full analysis of every watched symbol so the
// upstream and combined caches stay warm.
// ⭐ SSOT: 관심종목 갱신 스케줄은 이 Job에서만
type WatchlistJob struct {
	analyzer Analyzer
	requests []contracts.AnalysisRequest
	schedule string
	logger   *logger.Logger
}

// NewWatchlistJob creates a new watchlist refresh job.
// Narratives are never requested.
func NewWatchlistJob(analyzer Analyzer, requests []contracts.AnalysisRequest, schedule string, log *logger.Logger) *WatchlistJob {
	return &WatchlistJob{
		analyzer: analyzer,
		requests: requests,
		schedule: schedule,
		logger:   log.Component("watchlist"),
	}
}

// Name returns the job name
func (j *WatchlistJob) Name() string {
	return "watchlist_refresh"
}

// Schedule returns the configured cron schedule
func (j *WatchlistJob) Schedule() string {
	return j.schedule
}

// Run analyzes every symbol. A failing symbol does not stop the others;
// all failures are returned together.
func (j *WatchlistJob) Run(ctx context.Context) error {
	j.logger.WithField("symbols", len(j.requests)).Info("Starting watchlist refresh")

	var errs []error
	refreshed := 0
	for _, req := range j.requests {
		if err := ctx.Err(); err != nil {
			return err
		}

		req.IncludeNarrative = false
		result, err := j.analyzer.Analyze(ctx, req)
		if err != nil {
			j.logger.WithError(err).WithField("symbol", req.Symbol).Warn("Watchlist analysis failed")
			errs = append(errs, fmt.Errorf("%s: %w", req.Symbol, err))
			continue
		}

		refreshed++
		j.logger.WithFields(map[string]interface{}{
			"symbol": result.Symbol,
			"bias":   result.Combined.Bias,
		}).Debug("Watchlist symbol refreshed")
	}

	j.logger.WithFields(map[string]interface{}{
		"refreshed": refreshed,
		"failed":    len(errs),
	}).Info("Watchlist refresh completed")

	return errors.Join(errs...)
}
