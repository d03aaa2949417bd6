package contracts

// Fundamental metric names
const (
	MetricROE              = "roe"
	MetricROA              = "roa"
	MetricNetMargin        = "net_margin"
	MetricOperatingMargin  = "operating_margin"
	MetricRevenueCAGR3Y    = "revenue_cagr_3y"
	MetricEPSCAGR3Y        = "eps_cagr_3y"
	MetricFCFCAGR3Y        = "fcf_cagr_3y"
	MetricDebtToEquity     = "debt_to_equity"
	MetricCurrentRatio     = "current_ratio"
	MetricInterestCoverage = "interest_coverage"
	MetricPERatio          = "pe_ratio"
	MetricEVToEBITDA       = "ev_to_ebitda"
)

// Risk levels
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskElevated = "Elevated"
	RiskHigh     = "High"
)

// Risk flags
const (
	FlagHighLeverage         = "high_leverage"
	FlagNegativeFCF          = "negative_fcf"
	FlagDecliningRevenue     = "declining_revenue"
	FlagWeakInterestCoverage = "weak_interest_coverage"
)

// MetricSpec is the linear normalization window of a metric.
// Inverse metrics score higher when the raw value is lower.
type MetricSpec struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Inverse bool    `json:"inverse"`
}

// MetricResult is one scored fundamental metric.
// Score is nil iff Value is nil or Meaningful is false.
type MetricResult struct {
	Value      *float64 `json:"value"`
	Score      *float64 `json:"score"`
	Stability  float64  `json:"stability"`
	Trend      *string  `json:"trend"`
	Meaningful bool     `json:"meaningful"`
}

// FundamentalMetrics holds every metric the engine can compute.
// A nil field was not requested by the selection.
type FundamentalMetrics struct {
	ROE              *MetricResult `json:"roe,omitempty"`
	ROA              *MetricResult `json:"roa,omitempty"`
	NetMargin        *MetricResult `json:"net_margin,omitempty"`
	OperatingMargin  *MetricResult `json:"operating_margin,omitempty"`
	RevenueCAGR3Y    *MetricResult `json:"revenue_cagr_3y,omitempty"`
	EPSCAGR3Y        *MetricResult `json:"eps_cagr_3y,omitempty"`
	FCFCAGR3Y        *MetricResult `json:"fcf_cagr_3y,omitempty"`
	DebtToEquity     *MetricResult `json:"debt_to_equity,omitempty"`
	CurrentRatio     *MetricResult `json:"current_ratio,omitempty"`
	InterestCoverage *MetricResult `json:"interest_coverage,omitempty"`
	PERatio          *MetricResult `json:"pe_ratio,omitempty"`
	EVToEBITDA       *MetricResult `json:"ev_to_ebitda,omitempty"`
}

// slots pairs each metric name with its field, in report order
func (m *FundamentalMetrics) slots() []struct {
	name string
	ptr  **MetricResult
} {
	return []struct {
		name string
		ptr  **MetricResult
	}{
		{MetricROE, &m.ROE},
		{MetricROA, &m.ROA},
		{MetricNetMargin, &m.NetMargin},
		{MetricOperatingMargin, &m.OperatingMargin},
		{MetricRevenueCAGR3Y, &m.RevenueCAGR3Y},
		{MetricEPSCAGR3Y, &m.EPSCAGR3Y},
		{MetricFCFCAGR3Y, &m.FCFCAGR3Y},
		{MetricDebtToEquity, &m.DebtToEquity},
		{MetricCurrentRatio, &m.CurrentRatio},
		{MetricInterestCoverage, &m.InterestCoverage},
		{MetricPERatio, &m.PERatio},
		{MetricEVToEBITDA, &m.EVToEBITDA},
	}
}

// Set stores r under name. Unknown names are ignored.
func (m *FundamentalMetrics) Set(name string, r *MetricResult) {
	for _, s := range m.slots() {
		if s.name == name {
			*s.ptr = r
			return
		}
	}
}

// Get returns the metric stored under name, or nil
func (m *FundamentalMetrics) Get(name string) *MetricResult {
	for _, s := range m.slots() {
		if s.name == name {
			return *s.ptr
		}
	}
	return nil
}

// Each visits the computed metrics in report order
func (m *FundamentalMetrics) Each(fn func(name string, r *MetricResult)) {
	for _, s := range m.slots() {
		if *s.ptr != nil {
			fn(s.name, *s.ptr)
		}
	}
}

// FundamentalCategoryScores are unweighted means of member metric scores
type FundamentalCategoryScores struct {
	Profitability     *float64 `json:"profitability"`
	Growth            *float64 `json:"growth"`
	FinancialStrength *float64 `json:"financial_strength"`
	Valuation         *float64 `json:"valuation"`
}

// NamedScore is a category name with its score
type NamedScore struct {
	Name  string
	Score *float64
}

// Ordered lists the categories in their fixed order
func (c FundamentalCategoryScores) Ordered() []NamedScore {
	return []NamedScore{
		{"profitability", c.Profitability},
		{"growth", c.Growth},
		{"financial_strength", c.FinancialStrength},
		{"valuation", c.Valuation},
	}
}

// RiskAssessment is the additive risk rating
type RiskAssessment struct {
	Level string   `json:"level"`
	Flags []string `json:"flags"`
	Score int      `json:"score"`
}

// MetricExplanation describes how a metric is computed and how it scored
type MetricExplanation struct {
	Name           string   `json:"name"`
	Formula        string   `json:"formula"`
	Meaning        string   `json:"meaning"`
	IdealRange     string   `json:"ideal_range"`
	Value          *float64 `json:"value"`
	Score          *float64 `json:"score"`
	Interpretation string   `json:"interpretation"`
	Trend          *string  `json:"trend"`
}

// RawSeries are the extracted annual series, newest first
type RawSeries struct {
	Years              []int      `json:"years"`
	Revenue            []*float64 `json:"revenue"`
	NetIncome          []*float64 `json:"net_income"`
	OperatingIncome    []*float64 `json:"operating_income"`
	EBIT               []*float64 `json:"ebit"`
	InterestExpense    []*float64 `json:"interest_expense"`
	Equity             []*float64 `json:"equity"`
	Assets             []*float64 `json:"assets"`
	Liabilities        []*float64 `json:"liabilities"`
	CurrentAssets      []*float64 `json:"current_assets"`
	CurrentLiabilities []*float64 `json:"current_liabilities"`
	Debt               []*float64 `json:"debt"`
	OperatingCashflow  []*float64 `json:"operating_cashflow"`
	Capex              []*float64 `json:"capex"`
	FreeCashFlow       []*float64 `json:"free_cash_flow"`
	EPS                []*float64 `json:"eps"`
}

// FundamentalResult is the full output of the fundamental engine
type FundamentalResult struct {
	RawSeries            RawSeries                    `json:"raw_series"`
	Metrics              FundamentalMetrics           `json:"metrics"`
	CategoryScores       FundamentalCategoryScores    `json:"category_scores"`
	OverallScore         *float64                     `json:"overall_score"`
	Risk                 RiskAssessment               `json:"risk"`
	BusinessQualityIndex *float64                     `json:"business_quality_index"`
	Explanations         map[string]MetricExplanation `json:"explanations"`
}
