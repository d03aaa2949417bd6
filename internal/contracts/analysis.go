package contracts

import "time"

// Confidence levels of a combined verdict
const (
	ConfidenceLow    = "Low"
	ConfidenceMedium = "Medium"
	ConfidenceHigh   = "High"
)

// Narrative statuses
const (
	NarrativePending   = "pending"
	NarrativeQueued    = "queued"
	NarrativeSkipped   = "skipped"
	NarrativeCompleted = "completed"
	NarrativeFailed    = "failed"
)

// CombinedScore is the blended fundamental/technical verdict
type CombinedScore struct {
	OverallScore     *float64 `json:"overall_score"`
	FundamentalScore *float64 `json:"fundamental_score"`
	TechnicalScore   *float64 `json:"technical_score"`
	Bias             string   `json:"investment_bias"`
	Confidence       string   `json:"confidence"`
}

// AnalysisRequest selects what to analyze.
// A nil selection means every item of that kind; an empty non-nil one means none.
type AnalysisRequest struct {
	Symbol           string
	Fundamentals     []string
	Technicals       []string
	IncludeNarrative bool
	RecordID         string
}

// AnalysisResult is the output of one orchestrated analysis
type AnalysisResult struct {
	Symbol      string             `json:"symbol"`
	Fundamental *FundamentalResult `json:"fundamental_analysis"`
	Technical   *TechnicalResult   `json:"technical_analysis"`
	Combined    CombinedScore      `json:"combined_analysis"`
	Narrative   *NarrativeOutcome  `json:"narrative"`
}

// NarrativeFundamentals is the fundamental part of the condensed payload
type NarrativeFundamentals struct {
	Profitability     *float64 `json:"profitability"`
	Growth            *float64 `json:"growth"`
	FinancialStrength *float64 `json:"financial_strength"`
	Valuation         *float64 `json:"valuation"`
	RiskLevel         *string  `json:"risk_level"`
	TopStrengths      []string `json:"top_strengths"`
	Weaknesses        []string `json:"weaknesses"`
}

// NarrativeTechnicals is the technical part of the condensed payload
type NarrativeTechnicals struct {
	TrendDirection   *string `json:"trend_direction"`
	MomentumStrength *string `json:"momentum_strength"`
	Volatility       *string `json:"volatility"`
	EntrySignal      *string `json:"entry_signal"`
}

// NarrativePayload is the condensed summary handed to the narrative generator
type NarrativePayload struct {
	Symbol           string                `json:"symbol"`
	OverallScore     *float64              `json:"overall_score"`
	FundamentalScore *float64              `json:"fundamental_score"`
	TechnicalScore   *float64              `json:"technical_score"`
	Fundamental      NarrativeFundamentals `json:"fundamental"`
	Technical        NarrativeTechnicals   `json:"technical"`
}

// Narrative is the generated natural language interpretation
type Narrative struct {
	ExecutiveSummary string `json:"executive_summary"`
	BullCase         string `json:"bull_case"`
	BearCase         string `json:"bear_case"`
	RiskAssessment   string `json:"risk_assessment"`
	Confidence       string `json:"confidence"`
	Model            string `json:"model,omitempty"`
}

// NarrativeOutcome reports what happened to the narrative of an analysis
type NarrativeOutcome struct {
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Narrative *Narrative `json:"narrative,omitempty"`
}

// NarrativeJob is one unit of work for the narrative worker
type NarrativeJob struct {
	RecordID string           `json:"record_id"`
	CacheKey string           `json:"cache_key"`
	Payload  NarrativePayload `json:"payload"`
}

// AnalysisRecord is a persisted analysis with its narrative state
type AnalysisRecord struct {
	ID                   string             `json:"id"`
	Symbol               string             `json:"symbol"`
	SelectedFundamentals []string           `json:"selected_fundamentals"`
	SelectedTechnicals   []string           `json:"selected_technicals"`
	Fundamental          *FundamentalResult `json:"fundamental"`
	Technical            *TechnicalResult   `json:"technical"`
	Combined             CombinedScore      `json:"combined"`
	NarrativeStatus      *string            `json:"narrative_status"`
	Narrative            *Narrative         `json:"narrative"`
	NarrativeCreatedAt   *time.Time         `json:"narrative_created_at"`
	CreatedAt            time.Time          `json:"created_at"`
}

// NarrativeReady reports whether a generated narrative is attached
func (r *AnalysisRecord) NarrativeReady() bool {
	return r.Narrative != nil && r.Narrative.ExecutiveSummary != ""
}
