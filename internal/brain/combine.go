package brain

import (
	"sort"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/scoring"
)

const (
	fundamentalWeight = 0.6
	technicalWeight   = 0.4
	narrativeTopN     = 3
)

// Combine blends the two engine scores into a verdict.
// Both present: 0.6 fundamental + 0.4 technical. One present: that one.
func Combine(fundamental, technical *float64) contracts.CombinedScore {
	out := contracts.CombinedScore{
		FundamentalScore: fundamental,
		TechnicalScore:   technical,
		Bias:             contracts.LabelNeutral,
		Confidence:       contracts.ConfidenceLow,
	}

	switch {
	case fundamental != nil && technical != nil:
		f, t := *fundamental, *technical
		out.OverallScore = scoring.Ptr(fundamentalWeight*f + technicalWeight*t)
		out.Confidence = contracts.ConfidenceHigh
	case fundamental != nil:
		out.OverallScore = scoring.Ptr(*fundamental)
		out.Confidence = contracts.ConfidenceMedium
	case technical != nil:
		out.OverallScore = scoring.Ptr(*technical)
		out.Confidence = contracts.ConfidenceMedium
	default:
		return out
	}

	out.Bias = Bias(*out.OverallScore)
	return out
}

// Bias maps an overall score to an investment bias label
func Bias(overall float64) string {
	switch {
	case overall >= 7.5:
		return contracts.LabelStrongBullish
	case overall >= 6.0:
		return contracts.LabelBullish
	case overall >= 4.0:
		return contracts.LabelNeutral
	default:
		return contracts.LabelBearish
	}
}

// BuildNarrativePayload condenses an analysis for the narrative generator
func BuildNarrativePayload(symbol string, f *contracts.FundamentalResult, t *contracts.TechnicalResult, combined contracts.CombinedScore) contracts.NarrativePayload {
	out := contracts.NarrativePayload{
		Symbol:       symbol,
		OverallScore: combined.OverallScore,
		Fundamental: contracts.NarrativeFundamentals{
			TopStrengths: []string{},
			Weaknesses:   []string{},
		},
	}

	if f != nil {
		cs := f.CategoryScores
		out.FundamentalScore = f.OverallScore
		out.Fundamental.Profitability = cs.Profitability
		out.Fundamental.Growth = cs.Growth
		out.Fundamental.FinancialStrength = cs.FinancialStrength
		out.Fundamental.Valuation = cs.Valuation
		out.Fundamental.RiskLevel = scoring.Ptr(f.Risk.Level)
		out.Fundamental.TopStrengths = rankCategories(cs.Ordered(), true)
		out.Fundamental.Weaknesses = rankCategories(cs.Ordered(), false)
	}

	if t != nil {
		out.TechnicalScore = t.OverallTechnicalScore
		out.Technical = contracts.NarrativeTechnicals{
			TrendDirection:   scoring.Ptr(t.TrendDirection),
			MomentumStrength: scoring.Ptr(t.MomentumStrength),
			Volatility:       scoring.Ptr(t.VolatilityLevel),
			EntrySignal:      scoring.Ptr(t.EntrySignal),
		}
	}

	return out
}

// rankCategories returns up to three category names ordered by score,
// ties kept in category order.
func rankCategories(scores []contracts.NamedScore, descending bool) []string {
	present := make([]contracts.NamedScore, 0, len(scores))
	for _, s := range scores {
		if s.Score != nil {
			present = append(present, s)
		}
	}

	sort.SliceStable(present, func(i, j int) bool {
		if descending {
			return *present[i].Score > *present[j].Score
		}
		return *present[i].Score < *present[j].Score
	})

	names := make([]string, 0, narrativeTopN)
	for i := 0; i < len(present) && i < narrativeTopN; i++ {
		names = append(names, present[i].Name)
	}
	return names
}
