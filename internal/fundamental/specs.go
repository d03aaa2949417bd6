package fundamental

import "github.com/wonny/equitylens/internal/contracts"

// metricSpecs are the normalization windows per metric.
// Treat as read-only.
var metricSpecs = map[string]contracts.MetricSpec{
	contracts.MetricROE:              {Min: -0.1, Max: 0.4},
	contracts.MetricROA:              {Min: -0.1, Max: 0.2},
	contracts.MetricNetMargin:        {Min: -0.1, Max: 0.4},
	contracts.MetricOperatingMargin:  {Min: -0.1, Max: 0.4},
	contracts.MetricRevenueCAGR3Y:    {Min: -0.2, Max: 0.5},
	contracts.MetricEPSCAGR3Y:        {Min: -0.2, Max: 0.5},
	contracts.MetricFCFCAGR3Y:        {Min: -0.2, Max: 0.5},
	contracts.MetricDebtToEquity:     {Min: 0.0, Max: 3.0, Inverse: true},
	contracts.MetricCurrentRatio:     {Min: 0.0, Max: 3.0},
	contracts.MetricInterestCoverage: {Min: 0.0, Max: 10.0},
	contracts.MetricPERatio:          {Min: 5.0, Max: 40.0, Inverse: true},
	contracts.MetricEVToEBITDA:       {Min: 4.0, Max: 30.0, Inverse: true},
}

// Spec returns the normalization window for a metric
func Spec(name string) (contracts.MetricSpec, bool) {
	s, ok := metricSpecs[name]
	return s, ok
}

type metricInfo struct {
	formula    string
	meaning    string
	idealRange string
}

var metricInfos = map[string]metricInfo{
	contracts.MetricROE: {
		formula:    "Net Income / Shareholder Equity",
		meaning:    "How efficiently equity generates profit.",
		idealRange: "0.15 to 0.30+",
	},
	contracts.MetricROA: {
		formula:    "Net Income / Total Assets",
		meaning:    "How efficiently assets generate profit.",
		idealRange: "0.05 to 0.15+",
	},
	contracts.MetricNetMargin: {
		formula:    "Net Income / Revenue",
		meaning:    "Profit kept per dollar of revenue.",
		idealRange: "0.10 to 0.30+",
	},
	contracts.MetricOperatingMargin: {
		formula:    "Operating Income / Revenue",
		meaning:    "Operating profitability before non-operating items.",
		idealRange: "0.10 to 0.25+",
	},
	contracts.MetricRevenueCAGR3Y: {
		formula:    "((Latest / Oldest) ** (1/3)) - 1",
		meaning:    "3-year compounded revenue growth rate.",
		idealRange: "0.05 to 0.20+",
	},
	contracts.MetricEPSCAGR3Y: {
		formula:    "((Latest / Oldest) ** (1/3)) - 1",
		meaning:    "3-year compounded EPS growth rate.",
		idealRange: "0.05 to 0.25+",
	},
	contracts.MetricFCFCAGR3Y: {
		formula:    "((Latest / Oldest) ** (1/3)) - 1",
		meaning:    "3-year compounded free cash flow growth rate.",
		idealRange: "0.05 to 0.25+",
	},
	contracts.MetricDebtToEquity: {
		formula:    "Total Debt / Shareholder Equity",
		meaning:    "Leverage level relative to equity.",
		idealRange: "0.0 to 1.5",
	},
	contracts.MetricCurrentRatio: {
		formula:    "Current Assets / Current Liabilities",
		meaning:    "Short-term liquidity coverage.",
		idealRange: "1.2 to 2.5",
	},
	contracts.MetricInterestCoverage: {
		formula:    "EBIT / Interest Expense",
		meaning:    "Ability to service interest from operations.",
		idealRange: "3.0+",
	},
	contracts.MetricPERatio: {
		formula:    "Price / Earnings",
		meaning:    "Valuation relative to earnings.",
		idealRange: "10 to 25",
	},
	contracts.MetricEVToEBITDA: {
		formula:    "Enterprise Value / EBITDA",
		meaning:    "Valuation relative to operating cash earnings.",
		idealRange: "6 to 16",
	},
}

// category membership and weights
var (
	profitabilityMetrics = []string{contracts.MetricROE, contracts.MetricROA, contracts.MetricNetMargin, contracts.MetricOperatingMargin}
	growthMetrics        = []string{contracts.MetricRevenueCAGR3Y, contracts.MetricEPSCAGR3Y, contracts.MetricFCFCAGR3Y}
	strengthMetrics      = []string{contracts.MetricDebtToEquity, contracts.MetricCurrentRatio, contracts.MetricInterestCoverage}
	valuationMetrics     = []string{contracts.MetricPERatio, contracts.MetricEVToEBITDA}
	qualityIndexMetrics  = []string{contracts.MetricROE, contracts.MetricNetMargin, contracts.MetricRevenueCAGR3Y}
)

const (
	weightProfitability     = 0.30
	weightGrowth            = 0.25
	weightFinancialStrength = 0.25
	weightValuation         = 0.20
)
