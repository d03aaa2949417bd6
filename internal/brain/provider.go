package brain

import (
	"context"
	"sort"
	"strconv"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/payload"
)

// MarketDataProvider fetches raw upstream payloads
type MarketDataProvider interface {
	GetOverview(ctx context.Context, symbol string) (payload.Payload, error)
	GetIncomeStatement(ctx context.Context, symbol string) (payload.Payload, error)
	GetBalanceSheet(ctx context.Context, symbol string) (payload.Payload, error)
	GetCashFlow(ctx context.Context, symbol string) (payload.Payload, error)
	GetEarnings(ctx context.Context, symbol string) (payload.Payload, error)
	GetDailySeries(ctx context.Context, symbol string) (payload.Payload, error)
	GetTechnicalIndicator(ctx context.Context, function, symbol, interval string, params map[string]string) (payload.Payload, error)
}

// Upstream function names
const (
	FunctionOverview        = "OVERVIEW"
	FunctionIncomeStatement = "INCOME_STATEMENT"
	FunctionBalanceSheet    = "BALANCE_SHEET"
	FunctionCashFlow        = "CASH_FLOW"
	FunctionEarnings        = "EARNINGS"
	FunctionDailySeries     = "TIME_SERIES_DAILY"
)

const intervalDaily = "daily"

// IndicatorSource describes the upstream call behind a technical indicator
type IndicatorSource struct {
	Function string
	Interval string
	Params   map[string]string
}

// CacheParams are the params hashed into the market key: interval plus params
func (s IndicatorSource) CacheParams() map[string]string {
	out := make(map[string]string, len(s.Params)+1)
	for k, v := range s.Params {
		out[k] = v
	}
	out["interval"] = s.Interval
	return out
}

type indicatorEntry struct {
	key         string
	function    string
	timePeriod  int
	seriesClose bool
}

// Fetch order follows this table.
var indicatorTable = [...]indicatorEntry{
	{contracts.IndicatorRSI, "RSI", 14, true},
	{contracts.IndicatorMACD, "MACD", 0, true},
	{contracts.IndicatorSMA50, "SMA", 50, true},
	{contracts.IndicatorSMA200, "SMA", 200, true},
	{contracts.IndicatorEMA20, "EMA", 20, true},
	{contracts.IndicatorStoch, "STOCH", 0, false},
	{contracts.IndicatorOBV, "OBV", 0, false},
	{contracts.IndicatorATR, "ATR", 14, false},
	{contracts.IndicatorBBands, "BBANDS", 20, true},
}

// IndicatorSourceFor returns a fresh copy of the upstream call for key.
// volume_spike is derived from the daily series and has no source.
func IndicatorSourceFor(key string) (IndicatorSource, bool) {
	for _, e := range indicatorTable {
		if e.key != key {
			continue
		}
		params := map[string]string{}
		if e.timePeriod > 0 {
			params["time_period"] = strconv.Itoa(e.timePeriod)
		}
		if e.seriesClose {
			params["series_type"] = "close"
		}
		return IndicatorSource{Function: e.function, Interval: intervalDaily, Params: params}, true
	}
	return IndicatorSource{}, false
}

// FetchedIndicators lists the indicators backed by an upstream call, in fetch order
func FetchedIndicators() []string {
	keys := make([]string, 0, len(indicatorTable))
	for _, e := range indicatorTable {
		keys = append(keys, e.key)
	}
	return keys
}

// KnownIndicator reports whether key can be requested
func KnownIndicator(key string) bool {
	if key == contracts.IndicatorVolumeSpike {
		return true
	}
	_, ok := IndicatorSourceFor(key)
	return ok
}

// unknownIndicators returns the requested keys that are not known, sorted
func unknownIndicators(keys []string) []string {
	var bad []string
	for _, k := range keys {
		if !KnownIndicator(k) {
			bad = append(bad, k)
		}
	}
	sort.Strings(bad)
	return bad
}
