package fundamental

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/internal/scoring"
	"github.com/wonny/equitylens/pkg/logger"
)

type fixture struct {
	Overview        payload.Payload `json:"overview"`
	IncomeStatement payload.Payload `json:"income_statement"`
	BalanceSheet    payload.Payload `json:"balance_sheet"`
	CashFlow        payload.Payload `json:"cash_flow"`
	Earnings        payload.Payload `json:"earnings"`
}

func loadFixture(t *testing.T, name string) Inputs {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name+".json"))
	require.NoError(t, err)

	var f fixture
	require.NoError(t, json.Unmarshal(data, &f))
	return Inputs(f)
}

func analyze(t *testing.T, in Inputs, selected ...string) *contracts.FundamentalResult {
	t.Helper()
	return NewEngine(logger.NewNop()).Analyze(context.Background(), "TEST", in, selected)
}

func assertScoresInRange(t *testing.T, r *contracts.FundamentalResult) {
	t.Helper()
	r.Metrics.Each(func(name string, m *contracts.MetricResult) {
		if m.Score == nil {
			return
		}
		assert.GreaterOrEqual(t, *m.Score, 0.0, name)
		assert.LessOrEqual(t, *m.Score, 10.0, name)
		assert.NotNil(t, m.Value, name)
		assert.True(t, m.Meaningful, name)
	})
	for _, c := range r.CategoryScores.Ordered() {
		if c.Score != nil {
			assert.GreaterOrEqual(t, *c.Score, 0.0, c.Name)
			assert.LessOrEqual(t, *c.Score, 10.0, c.Name)
		}
	}
}

func TestAnalyze_StrongFundamentals(t *testing.T) {
	r := analyze(t, loadFixture(t, "strong"))

	require.NotNil(t, r.OverallScore)
	assert.GreaterOrEqual(t, *r.OverallScore, 6.5)
	assert.InDelta(t, 6.537, *r.OverallScore, 0.001)
	assert.Equal(t, contracts.RiskLow, r.Risk.Level)
	assert.Empty(t, r.Risk.Flags)

	assert.InDelta(t, 6.125, *r.CategoryScores.Profitability, 1e-9)
	assert.InDelta(t, 4.684, *r.CategoryScores.Growth, 0.001)
	assert.InDelta(t, 8.611, *r.CategoryScores.FinancialStrength, 0.001)
	assert.InDelta(t, 6.879, *r.CategoryScores.Valuation, 0.001)

	// strictly increasing revenue earns the stability bonus
	rev := r.Metrics.RevenueCAGR3Y
	require.NotNil(t, rev)
	assert.Equal(t, 0.5, rev.Stability)
	require.NotNil(t, rev.Trend)
	assert.Equal(t, "Uptrend", *rev.Trend)

	assert.Equal(t, []int{2024, 2023, 2022, 2021}, r.RawSeries.Years)
	assert.InDelta(t, 5.432, *r.BusinessQualityIndex, 0.001)
	assertScoresInRange(t, r)
}

func TestAnalyze_WeakFundamentals(t *testing.T) {
	r := analyze(t, loadFixture(t, "bad"))

	require.NotNil(t, r.OverallScore)
	assert.Less(t, *r.OverallScore, 4.0)
	assert.InDelta(t, 0.969, *r.OverallScore, 0.001)

	assert.Equal(t, contracts.RiskHigh, r.Risk.Level)
	assert.Equal(t, 6, r.Risk.Score)
	assert.Equal(t, []string{
		contracts.FlagHighLeverage,
		contracts.FlagNegativeFCF,
		contracts.FlagDecliningRevenue,
		contracts.FlagWeakInterestCoverage,
	}, r.Risk.Flags)

	// negative latest EPS makes the CAGR undefined
	assert.Nil(t, r.Metrics.EPSCAGR3Y.Value)
	assert.Nil(t, r.Metrics.EPSCAGR3Y.Score)
	assert.Equal(t, "Insufficient data", r.Explanations[contracts.MetricEPSCAGR3Y].Interpretation)
	assertScoresInRange(t, r)
}

func TestAnalyze_NeutralFundamentals(t *testing.T) {
	r := analyze(t, loadFixture(t, "neutral"))

	require.NotNil(t, r.OverallScore)
	assert.GreaterOrEqual(t, *r.OverallScore, 4.0)
	assert.LessOrEqual(t, *r.OverallScore, 6.0)
	assert.InDelta(t, 5.247, *r.OverallScore, 0.001)
	assertScoresInRange(t, r)
}

func TestAnalyze_NonPositiveValuationIsNotMeaningful(t *testing.T) {
	for _, pe := range []string{"-12.3", "0", "None"} {
		t.Run(pe, func(t *testing.T) {
			in := loadFixture(t, "strong")
			in.Overview = payload.Payload{"PERatio": pe, "EVToEBITDA": "-4"}

			r := analyze(t, in)

			assert.False(t, r.Metrics.PERatio.Meaningful)
			assert.Nil(t, r.Metrics.PERatio.Score)
			assert.False(t, r.Metrics.EVToEBITDA.Meaningful)
			assert.Nil(t, r.Metrics.EVToEBITDA.Score)
			assert.Nil(t, r.CategoryScores.Valuation)
			assert.Equal(t, "Not meaningful (negative or missing)", r.Explanations[contracts.MetricPERatio].Interpretation)
		})
	}
}

func TestAnalyze_Selection(t *testing.T) {
	r := analyze(t, loadFixture(t, "strong"), contracts.MetricROE, contracts.MetricPERatio, "unknown")

	var names []string
	r.Metrics.Each(func(name string, _ *contracts.MetricResult) { names = append(names, name) })
	assert.Equal(t, []string{contracts.MetricROE, contracts.MetricPERatio}, names)

	assert.Nil(t, r.Metrics.ROA)
	assert.Nil(t, r.CategoryScores.Growth)
	assert.Nil(t, r.CategoryScores.FinancialStrength)
	assert.InDelta(t, 6.5, *r.CategoryScores.Profitability, 1e-9)
	assert.Len(t, r.Explanations, 2)

	// overall renormalizes over the two present categories
	want := (6.5*0.30 + *r.CategoryScores.Valuation*0.20) / 0.50
	assert.InDelta(t, want, *r.OverallScore, 1e-9)
}

func TestAnalyze_EmptyInputs(t *testing.T) {
	r := analyze(t, Inputs{})

	assert.Nil(t, r.OverallScore)
	assert.Nil(t, r.BusinessQualityIndex)
	for _, c := range r.CategoryScores.Ordered() {
		assert.Nil(t, c.Score, c.Name)
	}
	assert.Equal(t, contracts.RiskLow, r.Risk.Level)
	assert.Equal(t, 0, r.Risk.Score)

	r.Metrics.Each(func(name string, m *contracts.MetricResult) {
		assert.Nil(t, m.Score, name)
	})
}

func TestAnalyze_DerivesFreeCashFlow(t *testing.T) {
	in := loadFixture(t, "strong")
	in.CashFlow = payload.Payload{"annualReports": []any{
		map[string]any{"fiscalDateEnding": "2024-12-31", "operatingCashflow": "24000", "capitalExpenditures": "5000"},
		map[string]any{"fiscalDateEnding": "2023-12-31", "operatingCashflow": "22000", "capitalExpenditures": "None"},
	}}

	r := analyze(t, in)

	require.Len(t, r.RawSeries.FreeCashFlow, 2)
	assert.Equal(t, 19000.0, *r.RawSeries.FreeCashFlow[0])
	assert.Nil(t, r.RawSeries.FreeCashFlow[1])
	// fewer than four periods: no CAGR
	assert.Nil(t, r.Metrics.FCFCAGR3Y.Value)
}

func TestComputeTrend(t *testing.T) {
	p := scoring.Ptr[float64]

	increasing := computeTrend([]*float64{p(130), p(120), p(110), p(100)})
	assert.Equal(t, 3, increasing.positiveStreak)
	assert.Equal(t, 0.5, increasing.stabilityBonus)
	assert.Equal(t, 0.0, increasing.volatilityPenalty)
	assert.Equal(t, "Uptrend", increasing.direction)

	// mean 25, stdev about 38.4: coefficient of variation above 0.5
	volatile := computeTrend([]*float64{p(10), p(90), p(-10), p(10)})
	assert.Equal(t, 0.5, volatile.volatilityPenalty)
	assert.Equal(t, 0, volatile.positiveStreak)
	assert.Equal(t, "Stable", volatile.direction)

	falling := computeTrend([]*float64{p(1), nil, p(3)})
	assert.Equal(t, "Downtrend", falling.direction)

	assert.Equal(t, "Stable", computeTrend([]*float64{p(5)}).direction)
}

func TestGrowthAdjustments(t *testing.T) {
	p := scoring.Ptr[float64]

	steady := []*float64{p(133.1), p(121), p(110), p(100)}
	steadyResult := scoreMetric(contracts.MetricRevenueCAGR3Y, cagr3y(steady), nil, computeTrend(steady).stabilityBonus, computeTrend(steady).volatilityPenalty)
	// 10% CAGR normalizes to (0.1+0.2)/0.7*10, plus the stability bonus
	assert.InDelta(t, 0.3/0.7*10+0.5, *steadyResult.Score, 1e-9)

	swinging := []*float64{p(400), p(20), p(300), p(100)}
	stats := computeTrend(swinging)
	assert.Equal(t, 0.5, stats.volatilityPenalty)
	swingResult := scoreMetric(contracts.MetricRevenueCAGR3Y, cagr3y(swinging), nil, stats.stabilityBonus, stats.volatilityPenalty)
	assert.InDelta(t, 10.0-0.5, *swingResult.Score, 1e-9)
}

func TestCAGR3Y(t *testing.T) {
	p := scoring.Ptr[float64]

	assert.InDelta(t, 0.1, *cagr3y([]*float64{p(133.1), p(1), p(1), p(100)}), 1e-9)
	assert.Nil(t, cagr3y([]*float64{p(133.1), p(1), p(100)}))
	assert.Nil(t, cagr3y([]*float64{p(-1), p(1), p(1), p(100)}))
	assert.Nil(t, cagr3y([]*float64{p(100), p(1), p(1), p(0)}))
	assert.Nil(t, cagr3y([]*float64{nil, p(1), p(1), p(100)}))
}

func TestScoreMetric_Inverse(t *testing.T) {
	low := scoreMetric(contracts.MetricDebtToEquity, scoring.Ptr(0.0), nil, 0, 0)
	high := scoreMetric(contracts.MetricDebtToEquity, scoring.Ptr(4.0), nil, 0, 0)
	assert.Equal(t, 10.0, *low.Score)
	assert.Equal(t, 0.0, *high.Score)

	missing := scoreMetric(contracts.MetricROE, nil, nil, 0.5, 0)
	assert.Nil(t, missing.Score)
	assert.Equal(t, 0.5, missing.Stability)
}

func TestQualityLabel(t *testing.T) {
	p := scoring.Ptr[float64]
	assert.Equal(t, "Insufficient data", QualityLabel(nil))
	assert.Equal(t, "Very Strong", QualityLabel(p(8.5)))
	assert.Equal(t, "Strong", QualityLabel(p(7.0)))
	assert.Equal(t, "Moderate", QualityLabel(p(5.0)))
	assert.Equal(t, "Weak", QualityLabel(p(3.0)))
	assert.Equal(t, "Very Weak", QualityLabel(p(2.99)))
}
