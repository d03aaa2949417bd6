package technical

import (
	"context"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/internal/scoring"
	"github.com/wonny/equitylens/pkg/logger"
)

const (
	slopeWindow      = 20
	slopeMinPoints   = 5
	obvWindow        = 5
	volumeWindow     = 20
	volumeMinSamples = 5
)

const (
	weightTrend      = 0.35
	weightMomentum   = 0.30
	weightVolume     = 0.20
	weightVolatility = 0.15
)

// Trend directions
const (
	TrendUp       = "Uptrend"
	TrendDown     = "Downtrend"
	TrendSideways = "Sideways"
	TrendUnknown  = "Unknown"
)

// Inputs are the daily price payload and the indicator payloads keyed by
// indicator name (rsi, macd, sma_50, ...). Missing payloads are treated as empty.
type Inputs struct {
	Daily      payload.Payload
	Indicators map[string]payload.Payload
}

func (in Inputs) block(key string) payload.Block {
	return payload.ExtractBlock(in.Indicators[key], payload.IndicatorRules)
}

// PriceRow is one day of the daily series
type PriceRow struct {
	Date   string
	Close  *float64
	High   *float64
	Low    *float64
	Volume *float64
}

// Engine scores price action and technical indicators
// ⭐ SSOT: 기술적 지표 점수 계산은 여기서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new technical engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		logger: log.Component("technical"),
	}
}

// Analyze scores the given payloads. An empty selection scores every
// indicator; otherwise only the named indicators are computed.
func (e *Engine) Analyze(ctx context.Context, symbol string, in Inputs, selected []string) *contracts.TechnicalResult {
	include := selectionFilter(selected)

	prices := ExtractPrices(in.Daily)
	var latestPrice *float64
	if len(prices) > 0 {
		latestPrice = prices[0].Close
	}

	sma50, _ := in.block(contracts.IndicatorSMA50).LatestAndPrevious("SMA")
	sma200, _ := in.block(contracts.IndicatorSMA200).LatestAndPrevious("SMA")
	ema20, _ := in.block(contracts.IndicatorEMA20).LatestAndPrevious("EMA")
	rsi, _ := in.block(contracts.IndicatorRSI).LatestAndPrevious("RSI")

	trend := trendContext(latestPrice, sma50, sma200)
	slope := closeSlope(prices)
	ma := maInputs{price: latestPrice, sma50: sma50, sma200: sma200, ema20: ema20, slopeUp: slope != nil && *slope > 0, trend: trend}

	var ind contracts.TechnicalIndicators
	if include(contracts.IndicatorSMA50) {
		ind.SMA50 = sma50Signal(ma)
	}
	if include(contracts.IndicatorSMA200) {
		ind.SMA200 = sma200Signal(ma)
	}
	if include(contracts.IndicatorEMA20) {
		ind.EMA20 = ema20Signal(ma)
	}
	if include(contracts.IndicatorRSI) {
		ind.RSI = rsiSignal(rsi, trend.direction)
	}
	if include(contracts.IndicatorMACD) {
		ind.MACD = macdSignal(in.block(contracts.IndicatorMACD))
	}
	if include(contracts.IndicatorStoch) {
		ind.Stoch = stochSignal(in.block(contracts.IndicatorStoch))
	}
	if include(contracts.IndicatorOBV) {
		ind.OBV = obvSignal(in.block(contracts.IndicatorOBV), prices)
	}
	if include(contracts.IndicatorVolumeSpike) {
		ind.VolumeSpike = volumeSpike(prices)
	}
	if include(contracts.IndicatorATR) {
		ind.ATR = atrRegime(in.block(contracts.IndicatorATR), latestPrice)
	}
	if include(contracts.IndicatorBBands) {
		ind.BBands = bbandsSignal(in.block(contracts.IndicatorBBands), latestPrice)
	}

	categories := contracts.TechnicalCategoryScores{
		Trend:      avgScore(ind.SMA50, ind.SMA200, ind.EMA20),
		Momentum:   avgScore(ind.RSI, ind.MACD, ind.Stoch),
		Volume:     avgScore(ind.OBV, ind.VolumeSpike),
		Volatility: avgScore(ind.ATR, ind.BBands),
	}

	overall := scoring.WeightedMean(
		scoring.Weighted{Score: categories.Trend, Weight: weightTrend},
		scoring.Weighted{Score: categories.Momentum, Weight: weightMomentum},
		scoring.Weighted{Score: categories.Volume, Weight: weightVolume},
		scoring.Weighted{Score: categories.Volatility, Weight: weightVolatility},
	)

	entry, exit := EntryExitSignals(overall)

	explanations := make(map[string]contracts.IndicatorResult)
	ind.Each(func(name string, r *contracts.IndicatorResult) {
		explanations[name] = *r
	})

	volatilityLevel := contracts.LabelInsufficientData
	if ind.ATR != nil {
		volatilityLevel = ind.ATR.Signal
	}

	result := &contracts.TechnicalResult{
		LatestPrice:           latestPrice,
		TrendDirection:        trend.direction,
		TrendSlope:            slope,
		EntrySignal:           entry,
		ExitSignal:            exit,
		MomentumStrength:      MomentumStrength(categories.Momentum),
		VolatilityLevel:       volatilityLevel,
		Indicators:            ind,
		CategoryScores:        categories,
		OverallTechnicalScore: overall,
		Explanations:          explanations,
	}

	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"symbol":  symbol,
		"overall": overall,
		"trend":   trend.direction,
		"entry":   entry,
		"exit":    exit,
	}).Debug("Calculated technical score")

	return result
}

func selectionFilter(selected []string) func(string) bool {
	if len(selected) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[s] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

// ExtractPrices returns the daily rows newest first
func ExtractPrices(daily payload.Payload) []PriceRow {
	block := payload.ExtractBlock(daily, payload.TimeSeriesRules)
	dates := block.Dates()

	rows := make([]PriceRow, 0, len(dates))
	for _, d := range dates {
		row := block.Row(d)
		rows = append(rows, PriceRow{
			Date:   d,
			Close:  payload.ToFloat(row["4. close"]),
			High:   payload.ToFloat(row["2. high"]),
			Low:    payload.ToFloat(row["3. low"]),
			Volume: payload.ToFloat(row["5. volume"]),
		})
	}
	return rows
}

// closeSlope regresses the newest closes in chronological order
func closeSlope(prices []PriceRow) *float64 {
	n := len(prices)
	if n > slopeWindow {
		n = slopeWindow
	}
	closes := make([]*float64, n)
	for i := 0; i < n; i++ {
		closes[n-1-i] = prices[i].Close
	}
	return scoring.Slope(closes, slopeMinPoints)
}

func avgScore(items ...*contracts.IndicatorResult) *float64 {
	scores := make([]*float64, 0, len(items))
	for _, it := range items {
		if it != nil {
			scores = append(scores, it.Score)
		}
	}
	return scoring.Mean(scores...)
}

// EntryExitSignals maps an overall technical score to entry and exit labels
func EntryExitSignals(overall *float64) (entry, exit string) {
	entry, exit = contracts.LabelNeutral, contracts.LabelNeutral
	if overall == nil {
		return entry, exit
	}
	switch {
	case *overall >= 7.5:
		entry = contracts.LabelStrongBullish
	case *overall >= 6.0:
		entry = contracts.LabelBullish
	case *overall < 4.0:
		exit = contracts.LabelBearish
	}
	return entry, exit
}

// MomentumStrength labels the momentum category score
func MomentumStrength(momentum *float64) string {
	switch {
	case momentum == nil:
		return contracts.LabelInsufficientData
	case *momentum >= 8.5:
		return "Very Strong"
	case *momentum >= 7.0:
		return "Strong"
	case *momentum >= 5.0:
		return "Moderate"
	default:
		return "Weak"
	}
}
