package brain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/scoring"
)

func TestCombine(t *testing.T) {
	f := scoring.Ptr[float64]

	both := Combine(f(8.0), f(6.0))
	require.NotNil(t, both.OverallScore)
	assert.InDelta(t, 7.2, *both.OverallScore, 1e-9)
	assert.Equal(t, contracts.LabelBullish, both.Bias)
	assert.Equal(t, contracts.ConfidenceHigh, both.Confidence)

	fundOnly := Combine(f(6.5), nil)
	assert.InDelta(t, 6.5, *fundOnly.OverallScore, 1e-9)
	assert.Equal(t, contracts.ConfidenceMedium, fundOnly.Confidence)

	techOnly := Combine(nil, f(5.5))
	assert.InDelta(t, 5.5, *techOnly.OverallScore, 1e-9)
	assert.Equal(t, contracts.LabelNeutral, techOnly.Bias)

	none := Combine(nil, nil)
	assert.Nil(t, none.OverallScore)
	assert.Equal(t, contracts.LabelNeutral, none.Bias)
	assert.Equal(t, contracts.ConfidenceLow, none.Confidence)
}

func TestBias(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{9.0, contracts.LabelStrongBullish},
		{7.5, contracts.LabelStrongBullish},
		{6.0, contracts.LabelBullish},
		{4.0, contracts.LabelNeutral},
		{3.99, contracts.LabelBearish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bias(tt.score), tt.score)
	}
}

func TestBuildNarrativePayload(t *testing.T) {
	f := scoring.Ptr[float64]
	fund := &contracts.FundamentalResult{
		OverallScore: f(6.0),
		CategoryScores: contracts.FundamentalCategoryScores{
			Profitability:     f(7.0),
			Growth:            f(4.0),
			FinancialStrength: f(7.0),
			Valuation:         nil,
		},
		Risk: contracts.RiskAssessment{Level: contracts.RiskModerate},
	}
	tech := &contracts.TechnicalResult{
		OverallTechnicalScore: f(5.0),
		TrendDirection:        "Uptrend",
		MomentumStrength:      "Moderate",
		VolatilityLevel:       "Low Volatility",
		EntrySignal:           contracts.LabelNeutral,
	}

	p := BuildNarrativePayload("AAPL", fund, tech, Combine(fund.OverallScore, tech.OverallTechnicalScore))

	assert.Equal(t, "AAPL", p.Symbol)
	assert.InDelta(t, 5.6, *p.OverallScore, 1e-9)
	// ties keep category order
	assert.Equal(t, []string{"profitability", "financial_strength", "growth"}, p.Fundamental.TopStrengths)
	assert.Equal(t, []string{"growth", "profitability", "financial_strength"}, p.Fundamental.Weaknesses)
	assert.Equal(t, contracts.RiskModerate, *p.Fundamental.RiskLevel)
	assert.Equal(t, "Low Volatility", *p.Technical.Volatility)

	empty := BuildNarrativePayload("AAPL", nil, nil, Combine(nil, nil))
	assert.Empty(t, empty.Fundamental.TopStrengths)
	assert.Nil(t, empty.Technical.TrendDirection)
	assert.Nil(t, empty.FundamentalScore)
}
