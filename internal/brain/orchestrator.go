package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/fundamental"
	"github.com/wonny/equitylens/internal/marketcache"
	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/internal/technical"
	"github.com/wonny/equitylens/pkg/config"
	"github.com/wonny/equitylens/pkg/logger"
	"github.com/wonny/equitylens/pkg/metrics"
)

// ErrInvalidInput marks a rejected request (bad symbol, unknown indicator)
var ErrInvalidInput = errors.New("invalid input")

// Narrative outcome reasons
const (
	ReasonRecordIDRequired = "analysis_result_id_required"
	ReasonDispatchFailed   = "dispatch_failed"
)

// Dispatcher hands narrative jobs to a background worker without blocking
type Dispatcher interface {
	Dispatch(job contracts.NarrativeJob) error
}

// Orchestrator selects inputs, drives cached upstream fetches, runs both
// engines and combines their scores.
// ⭐ SSOT: 분석 파이프라인 조율은 여기서만
type Orchestrator struct {
	provider   MarketDataProvider
	fetcher    *marketcache.Fetcher
	store      marketcache.Store
	dispatcher Dispatcher

	fundamental *fundamental.Engine
	technical   *technical.Engine

	ttl     config.CacheConfig
	metrics *metrics.Recorder
	logger  *logger.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithDispatcher enables narrative dispatch
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithMetrics records analysis duration
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates a new orchestrator.
// store backs the combined and narrative keys; nil disables them.
func NewOrchestrator(
	provider MarketDataProvider,
	fetcher *marketcache.Fetcher,
	store marketcache.Store,
	ttl config.CacheConfig,
	log *logger.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		provider:    provider,
		fetcher:     fetcher,
		store:       store,
		fundamental: fundamental.NewEngine(log),
		technical:   technical.NewEngine(log),
		ttl:         ttl,
		logger:      log.Component("brain"),
	}
	if o.fetcher == nil {
		o.fetcher = marketcache.NewFetcher(nil, 0, log)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// requested reports whether a selection asks for anything: nil means all,
// an empty non-nil selection means none.
func requested(selection []string) bool {
	return selection == nil || len(selection) > 0
}

// Analyze runs one analysis.
// Stages: validate → combined cache → fundamentals → technicals → combine → narrative
func (o *Orchestrator) Analyze(ctx context.Context, req contracts.AnalysisRequest) (*contracts.AnalysisResult, error) {
	startTime := time.Now()

	symbol := marketcache.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol must be a non-empty string", ErrInvalidInput)
	}

	fundamentalsRequested := requested(req.Fundamentals)
	technicalsRequested := requested(req.Technicals)

	var technicalKeys []string
	if technicalsRequested {
		technicalKeys = req.Technicals
		if technicalKeys == nil {
			// volume_spike is scored only when asked for
			technicalKeys = FetchedIndicators()
		}
		if bad := unknownIndicators(technicalKeys); len(bad) > 0 {
			return nil, fmt.Errorf("%w: unsupported technical indicators: %s", ErrInvalidInput, strings.Join(bad, ", "))
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"symbol":       symbol,
		"fundamentals": fundamentalsRequested,
		"technicals":   len(technicalKeys),
		"narrative":    req.IncludeNarrative,
	}).Info("Starting analysis")

	// an explicit [] hashes like nil, so such requests bypass the combined cache
	combinedKey := ""
	if o.store != nil && fundamentalsRequested && technicalsRequested {
		combinedKey = marketcache.AnalysisKey(symbol, req.Fundamentals, req.Technicals)
		if cached, ok := o.cachedAnalysis(ctx, combinedKey); ok {
			o.logger.WithField("symbol", symbol).Info("Analysis served from cache")
			o.finishNarrative(ctx, cached, req)
			return cached, nil
		}
	}

	result := &contracts.AnalysisResult{Symbol: symbol}

	// Stage 1: fundamentals
	if fundamentalsRequested {
		in, err := o.fetchFundamentals(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("fundamentals failed: %w", err)
		}
		result.Fundamental = o.fundamental.Analyze(ctx, symbol, in, req.Fundamentals)
	}

	// Stage 2: technicals
	if len(technicalKeys) > 0 {
		in, err := o.fetchTechnicals(ctx, symbol, technicalKeys)
		if err != nil {
			return nil, fmt.Errorf("technicals failed: %w", err)
		}
		result.Technical = o.technical.Analyze(ctx, symbol, in, technicalKeys)
	}

	// Stage 3: combine
	var fundamentalScore, technicalScore *float64
	if result.Fundamental != nil {
		fundamentalScore = result.Fundamental.OverallScore
	}
	if result.Technical != nil {
		technicalScore = result.Technical.OverallTechnicalScore
	}
	result.Combined = Combine(fundamentalScore, technicalScore)

	o.logger.WithFields(map[string]interface{}{
		"symbol":            symbol,
		"fundamental_score": fundamentalScore,
		"technical_score":   technicalScore,
		"bias":              result.Combined.Bias,
	}).Info("Deterministic analysis completed")

	if combinedKey != "" {
		if err := o.store.Set(ctx, combinedKey, result, o.ttl.CombinedTTL); err != nil {
			o.logger.WithError(err).WithField("key", combinedKey).Warn("Failed to cache analysis")
		}
	}

	// Stage 4: narrative
	o.finishNarrative(ctx, result, req)

	duration := time.Since(startTime)
	o.metrics.RecordAnalysis(duration)
	o.logger.WithFields(map[string]interface{}{
		"symbol":      symbol,
		"duration_ms": duration.Milliseconds(),
	}).Info("Analysis completed")

	return result, nil
}

func (o *Orchestrator) cachedAnalysis(ctx context.Context, key string) (*contracts.AnalysisResult, bool) {
	var cached contracts.AnalysisResult
	found, err := o.store.Get(ctx, key, &cached)
	switch {
	case err != nil:
		o.metrics.RecordCacheLookup(marketcache.FamilyAnalysis, metrics.CacheError)
		o.logger.WithError(err).WithField("key", key).Warn("Analysis cache read failed")
		return nil, false
	case !found:
		o.metrics.RecordCacheLookup(marketcache.FamilyAnalysis, metrics.CacheMiss)
		return nil, false
	}
	o.metrics.RecordCacheLookup(marketcache.FamilyAnalysis, metrics.CacheHit)
	return &cached, true
}

func (o *Orchestrator) finishNarrative(ctx context.Context, result *contracts.AnalysisResult, req contracts.AnalysisRequest) {
	result.Narrative = nil
	if req.IncludeNarrative {
		result.Narrative = o.RequestNarrative(ctx, result, req.RecordID)
	}
}

func (o *Orchestrator) fetchFundamentals(ctx context.Context, symbol string) (fundamental.Inputs, error) {
	var in fundamental.Inputs
	calls := []struct {
		function string
		dest     *payload.Payload
		get      func(context.Context, string) (payload.Payload, error)
	}{
		{FunctionOverview, &in.Overview, o.provider.GetOverview},
		{FunctionIncomeStatement, &in.IncomeStatement, o.provider.GetIncomeStatement},
		{FunctionBalanceSheet, &in.BalanceSheet, o.provider.GetBalanceSheet},
		{FunctionCashFlow, &in.CashFlow, o.provider.GetCashFlow},
		{FunctionEarnings, &in.Earnings, o.provider.GetEarnings},
	}

	for _, c := range calls {
		get := c.get
		p, err := o.fetcher.CachedOrFetch(ctx, marketcache.MarketKey(symbol, c.function, nil), o.ttl.FundamentalTTL,
			func(ctx context.Context) (payload.Payload, error) { return get(ctx, symbol) })
		if err != nil {
			return in, err
		}
		*c.dest = p
	}
	return in, nil
}

func (o *Orchestrator) fetchTechnicals(ctx context.Context, symbol string, keys []string) (technical.Inputs, error) {
	in := technical.Inputs{Indicators: make(map[string]payload.Payload, len(keys))}

	daily, err := o.fetcher.CachedOrFetch(ctx, marketcache.MarketKey(symbol, FunctionDailySeries, nil), o.ttl.DailyTTL,
		func(ctx context.Context) (payload.Payload, error) { return o.provider.GetDailySeries(ctx, symbol) })
	if err != nil {
		return in, err
	}
	in.Daily = daily

	for _, key := range keys {
		src, ok := IndicatorSourceFor(key)
		if !ok {
			// derived from the daily series
			continue
		}
		p, err := o.fetcher.CachedOrFetch(ctx, marketcache.MarketKey(symbol, src.Function, src.CacheParams()), o.ttl.TechnicalTTL,
			func(ctx context.Context) (payload.Payload, error) {
				return o.provider.GetTechnicalIndicator(ctx, src.Function, symbol, src.Interval, src.Params)
			})
		if err != nil {
			return in, err
		}
		in.Indicators[key] = p
	}
	return in, nil
}

// RequestNarrative returns the cached narrative for the analysis or queues
// its generation for recordID. It never fails the analysis.
func (o *Orchestrator) RequestNarrative(ctx context.Context, result *contracts.AnalysisResult, recordID string) *contracts.NarrativeOutcome {
	narrativePayload := BuildNarrativePayload(result.Symbol, result.Fundamental, result.Technical, result.Combined)
	key, err := marketcache.NarrativeKey(result.Symbol, narrativePayload)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to build narrative key")
		return &contracts.NarrativeOutcome{Status: contracts.NarrativeSkipped, Reason: ReasonDispatchFailed}
	}

	if o.store != nil {
		var cached contracts.Narrative
		found, err := o.store.Get(ctx, key, &cached)
		switch {
		case err != nil:
			o.metrics.RecordCacheLookup(marketcache.FamilyNarrative, metrics.CacheError)
			o.logger.WithError(err).WithField("key", key).Warn("Narrative cache read failed")
		case found:
			o.metrics.RecordCacheLookup(marketcache.FamilyNarrative, metrics.CacheHit)
			return &contracts.NarrativeOutcome{Status: contracts.NarrativeCompleted, Narrative: &cached}
		default:
			o.metrics.RecordCacheLookup(marketcache.FamilyNarrative, metrics.CacheMiss)
		}
	}

	if recordID == "" {
		o.logger.WithField("symbol", result.Symbol).Info("Narrative skipped, no record id")
		return &contracts.NarrativeOutcome{Status: contracts.NarrativeSkipped, Reason: ReasonRecordIDRequired}
	}

	if o.dispatcher == nil {
		return &contracts.NarrativeOutcome{Status: contracts.NarrativeSkipped, Reason: ReasonDispatchFailed}
	}

	job := contracts.NarrativeJob{RecordID: recordID, CacheKey: key, Payload: narrativePayload}
	if err := o.dispatcher.Dispatch(job); err != nil {
		o.logger.WithError(err).WithField("record_id", recordID).Warn("Narrative dispatch failed")
		return &contracts.NarrativeOutcome{Status: contracts.NarrativeSkipped, Reason: ReasonDispatchFailed}
	}

	o.logger.WithFields(map[string]interface{}{
		"record_id": recordID,
		"key":       key,
	}).Info("Narrative queued")
	return &contracts.NarrativeOutcome{Status: contracts.NarrativeQueued}
}
