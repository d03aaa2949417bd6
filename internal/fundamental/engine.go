package fundamental

import (
	"context"
	"math"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/internal/scoring"
	"github.com/wonny/equitylens/pkg/logger"
)

// seriesWindow is the number of annual periods considered
const seriesWindow = 4

// Inputs are the five raw statement payloads
type Inputs struct {
	Overview        payload.Payload
	IncomeStatement payload.Payload
	BalanceSheet    payload.Payload
	CashFlow        payload.Payload
	Earnings        payload.Payload
}

// Engine scores company fundamentals
// ⭐ SSOT: 펀더멘털 점수 계산은 여기서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new fundamental engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		logger: log.Component("fundamental"),
	}
}

// Analyze scores the given statements. An empty selection scores every
// metric; otherwise only the named metrics are computed.
func (e *Engine) Analyze(ctx context.Context, symbol string, in Inputs, selected []string) *contracts.FundamentalResult {
	raw := extractRawSeries(in)
	metrics := computeMetrics(raw, in.Overview, newSelection(selected))

	categories := contracts.FundamentalCategoryScores{
		Profitability:     avgScore(&metrics, profitabilityMetrics),
		Growth:            avgScore(&metrics, growthMetrics),
		FinancialStrength: avgScore(&metrics, strengthMetrics),
		Valuation:         avgScore(&metrics, valuationMetrics),
	}

	overall := scoring.WeightedMean(
		scoring.Weighted{Score: categories.Profitability, Weight: weightProfitability},
		scoring.Weighted{Score: categories.Growth, Weight: weightGrowth},
		scoring.Weighted{Score: categories.FinancialStrength, Weight: weightFinancialStrength},
		scoring.Weighted{Score: categories.Valuation, Weight: weightValuation},
	)

	explanations := make(map[string]contracts.MetricExplanation)
	metrics.Each(func(name string, m *contracts.MetricResult) {
		explanations[name] = explainMetric(name, m)
	})

	result := &contracts.FundamentalResult{
		RawSeries:            raw,
		Metrics:              metrics,
		CategoryScores:       categories,
		OverallScore:         overall,
		Risk:                 assessRisk(raw, &metrics),
		BusinessQualityIndex: avgScore(&metrics, qualityIndexMetrics),
		Explanations:         explanations,
	}

	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"symbol":     symbol,
		"overall":    overall,
		"risk_level": result.Risk.Level,
		"risk_score": result.Risk.Score,
		"metrics":    len(explanations),
	}).Debug("Calculated fundamental score")

	return result
}

type selection map[string]struct{}

func newSelection(names []string) selection {
	if len(names) == 0 {
		return nil
	}
	s := make(selection, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s selection) includes(name string) bool {
	if s == nil {
		return true
	}
	_, ok := s[name]
	return ok
}

func extractRawSeries(in Inputs) contracts.RawSeries {
	income := in.IncomeStatement.Records("annualReports")
	balance := in.BalanceSheet.Records("annualReports")
	cash := in.CashFlow.Records("annualReports")
	earnings := in.Earnings.Records("annualEarnings")

	series := func(reports []map[string]any, field string) []*float64 {
		_, values := payload.ExtractSeries(reports, field, seriesWindow)
		return values
	}

	var raw contracts.RawSeries
	raw.Years, raw.Revenue = payload.ExtractSeries(income, "totalRevenue", seriesWindow)
	raw.NetIncome = series(income, "netIncome")
	raw.OperatingIncome = series(income, "operatingIncome")
	raw.EBIT = series(income, "ebit")
	raw.InterestExpense = series(income, "interestExpense")

	raw.Equity = series(balance, "totalShareholderEquity")
	raw.Assets = series(balance, "totalAssets")
	raw.Liabilities = series(balance, "totalLiabilities")
	raw.CurrentAssets = series(balance, "totalCurrentAssets")
	raw.CurrentLiabilities = series(balance, "totalCurrentLiabilities")
	raw.Debt = series(balance, "totalDebt")

	raw.OperatingCashflow = series(cash, "operatingCashflow")
	raw.Capex = series(cash, "capitalExpenditures")
	raw.FreeCashFlow = series(cash, "freeCashFlow")

	raw.EPS = series(earnings, "reportedEPS")

	if len(scoring.Compact(raw.FreeCashFlow)) == 0 {
		raw.FreeCashFlow = deriveFreeCashFlow(raw.OperatingCashflow, raw.Capex)
	}

	return raw
}

// deriveFreeCashFlow is operating cash flow minus capex per period
func deriveFreeCashFlow(ocf, capex []*float64) []*float64 {
	n := len(ocf)
	if len(capex) < n {
		n = len(capex)
	}
	out := make([]*float64, n)
	for i := 0; i < n; i++ {
		if ocf[i] != nil && capex[i] != nil {
			out[i] = scoring.Ptr(*ocf[i] - *capex[i])
		}
	}
	return out
}

// cagr3y is the 3 year compound growth between period 0 and period 3
func cagr3y(series []*float64) *float64 {
	if len(series) < seriesWindow {
		return nil
	}
	latest, oldest := series[0], series[3]
	if latest == nil || oldest == nil || *latest <= 0 || *oldest <= 0 {
		return nil
	}
	return scoring.Ptr(math.Pow(*latest / *oldest, 1.0/3.0) - 1)
}

type trendStats struct {
	positiveStreak    int
	stabilityBonus    float64
	volatilityPenalty float64
	direction         string
}

// computeTrend summarizes a newest first series
func computeTrend(series []*float64) trendStats {
	values := scoring.Compact(series)
	stats := trendStats{direction: "Stable"}
	if len(values) < 2 {
		return stats
	}

	mean, stdev := scoring.MeanStdDev(values)

	for i := 0; i < len(values)-1; i++ {
		if values[i] <= values[i+1] {
			break
		}
		stats.positiveStreak++
	}

	if stats.positiveStreak >= 3 {
		stats.stabilityBonus = 0.5
	}
	if mean != 0 && stdev/math.Abs(mean) > 0.5 {
		stats.volatilityPenalty = 0.5
	}

	newest, oldest := values[0], values[len(values)-1]
	switch {
	case newest > oldest:
		stats.direction = "Uptrend"
	case newest < oldest:
		stats.direction = "Downtrend"
	}
	return stats
}

// scoreMetric normalizes value into [0,10] using the metric's window,
// then applies the trend adjustments.
func scoreMetric(name string, value *float64, trend *string, bonus, penalty float64) *contracts.MetricResult {
	result := &contracts.MetricResult{
		Value:      value,
		Stability:  bonus,
		Trend:      trend,
		Meaningful: true,
	}
	if value == nil {
		return result
	}

	var base float64
	if spec, ok := metricSpecs[name]; ok && spec.Max != spec.Min {
		if spec.Inverse {
			base = (spec.Max - *value) / (spec.Max - spec.Min)
		} else {
			base = (*value - spec.Min) / (spec.Max - spec.Min)
		}
	}
	base = scoring.Clamp(base, 0, 1)

	result.Score = scoring.Ptr(scoring.Clamp10(base*10 + bonus - penalty))
	return result
}

// scoreValuation scores a multiple that is only comparable when positive
func scoreValuation(name string, value *float64) *contracts.MetricResult {
	if value == nil || *value <= 0 {
		return &contracts.MetricResult{Value: value, Meaningful: false}
	}
	return scoreMetric(name, value, nil, 0, 0)
}

func computeMetrics(raw contracts.RawSeries, overview payload.Payload, sel selection) contracts.FundamentalMetrics {
	latest := func(series []*float64) *float64 { return scoring.At(series, 0) }

	netIncome := latest(raw.NetIncome)
	revenue := latest(raw.Revenue)
	equity := latest(raw.Equity)

	var interestCoverage *float64
	if interest := latest(raw.InterestExpense); interest != nil && *interest != 0 {
		interestCoverage = scoring.SafeDivide(latest(raw.EBIT), interest)
	}

	var metrics contracts.FundamentalMetrics
	set := func(name string, build func() *contracts.MetricResult) {
		if sel.includes(name) {
			metrics.Set(name, build())
		}
	}
	plain := func(name string, value *float64) {
		set(name, func() *contracts.MetricResult { return scoreMetric(name, value, nil, 0, 0) })
	}
	growth := func(name string, series []*float64) {
		set(name, func() *contracts.MetricResult {
			stats := computeTrend(series)
			direction := stats.direction
			return scoreMetric(name, cagr3y(series), &direction, stats.stabilityBonus, stats.volatilityPenalty)
		})
	}

	plain(contracts.MetricROE, scoring.SafeDivide(netIncome, equity))
	plain(contracts.MetricROA, scoring.SafeDivide(netIncome, latest(raw.Assets)))
	plain(contracts.MetricNetMargin, scoring.SafeDivide(netIncome, revenue))
	plain(contracts.MetricOperatingMargin, scoring.SafeDivide(latest(raw.OperatingIncome), revenue))

	growth(contracts.MetricRevenueCAGR3Y, raw.Revenue)
	growth(contracts.MetricEPSCAGR3Y, raw.EPS)
	growth(contracts.MetricFCFCAGR3Y, raw.FreeCashFlow)

	plain(contracts.MetricDebtToEquity, scoring.SafeDivide(latest(raw.Debt), equity))
	plain(contracts.MetricCurrentRatio, scoring.SafeDivide(latest(raw.CurrentAssets), latest(raw.CurrentLiabilities)))
	plain(contracts.MetricInterestCoverage, interestCoverage)

	set(contracts.MetricPERatio, func() *contracts.MetricResult {
		return scoreValuation(contracts.MetricPERatio, payload.ToFloat(overview["PERatio"]))
	})
	set(contracts.MetricEVToEBITDA, func() *contracts.MetricResult {
		return scoreValuation(contracts.MetricEVToEBITDA, payload.ToFloat(overview["EVToEBITDA"]))
	})

	return metrics
}

func avgScore(metrics *contracts.FundamentalMetrics, names []string) *float64 {
	scores := make([]*float64, 0, len(names))
	for _, name := range names {
		if m := metrics.Get(name); m != nil {
			scores = append(scores, m.Score)
		}
	}
	return scoring.Mean(scores...)
}

func assessRisk(raw contracts.RawSeries, metrics *contracts.FundamentalMetrics) contracts.RiskAssessment {
	risk := contracts.RiskAssessment{Flags: []string{}}
	flag := func(name string, weight int) {
		risk.Flags = append(risk.Flags, name)
		risk.Score += weight
	}

	if m := metrics.DebtToEquity; m != nil && m.Value != nil && *m.Value > 2.0 {
		flag(contracts.FlagHighLeverage, 2)
	}
	if fcf := scoring.At(raw.FreeCashFlow, 0); fcf != nil && *fcf < 0 {
		flag(contracts.FlagNegativeFCF, 2)
	}
	if cur, prev := scoring.At(raw.Revenue, 0), scoring.At(raw.Revenue, 1); cur != nil && prev != nil && *cur < *prev {
		flag(contracts.FlagDecliningRevenue, 1)
	}
	if m := metrics.InterestCoverage; m != nil && m.Value != nil && *m.Value < 1.5 {
		flag(contracts.FlagWeakInterestCoverage, 1)
	}

	switch {
	case risk.Score >= 5:
		risk.Level = contracts.RiskHigh
	case risk.Score >= 3:
		risk.Level = contracts.RiskElevated
	case risk.Score >= 1:
		risk.Level = contracts.RiskModerate
	default:
		risk.Level = contracts.RiskLow
	}
	return risk
}

// QualityLabel buckets a metric score
func QualityLabel(score *float64) string {
	switch {
	case score == nil:
		return contracts.LabelInsufficientData
	case *score >= 8.5:
		return "Very Strong"
	case *score >= 7.0:
		return "Strong"
	case *score >= 5.0:
		return "Moderate"
	case *score >= 3.0:
		return "Weak"
	default:
		return "Very Weak"
	}
}

func explainMetric(name string, m *contracts.MetricResult) contracts.MetricExplanation {
	info := metricInfos[name]
	interpretation := QualityLabel(m.Score)
	if !m.Meaningful {
		interpretation = "Not meaningful (negative or missing)"
	}
	return contracts.MetricExplanation{
		Name:           name,
		Formula:        info.formula,
		Meaning:        info.meaning,
		IdealRange:     info.idealRange,
		Value:          m.Value,
		Score:          m.Score,
		Interpretation: interpretation,
		Trend:          m.Trend,
	}
}
