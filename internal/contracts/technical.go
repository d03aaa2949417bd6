package contracts

// Technical indicator keys
const (
	IndicatorSMA50       = "sma_50"
	IndicatorSMA200      = "sma_200"
	IndicatorEMA20       = "ema_20"
	IndicatorRSI         = "rsi"
	IndicatorMACD        = "macd"
	IndicatorStoch       = "stoch"
	IndicatorOBV         = "obv"
	IndicatorVolumeSpike = "volume_spike"
	IndicatorATR         = "atr"
	IndicatorBBands      = "bbands"
)

// Shared labels
const (
	LabelInsufficientData = "Insufficient data"
	LabelNeutral          = "Neutral"
	LabelBullish          = "Bullish"
	LabelStrongBullish    = "Strong Bullish"
	LabelBearish          = "Bearish"
)

// IndicatorResult is one scored technical indicator.
// Value is a scalar (*float64) or a composite value struct.
type IndicatorResult struct {
	Value  any      `json:"value"`
	Signal string   `json:"signal"`
	Score  *float64 `json:"score"`
	Regime *string  `json:"regime"`
}

// MACDValue is the composite value of the MACD indicator
type MACDValue struct {
	MACD   float64  `json:"macd"`
	Signal float64  `json:"signal"`
	Hist   *float64 `json:"hist"`
}

// StochValue is the composite value of the stochastic oscillator
type StochValue struct {
	SlowK float64  `json:"slow_k"`
	SlowD *float64 `json:"slow_d"`
}

// BandsValue is the composite value of Bollinger Bands
type BandsValue struct {
	Upper     float64  `json:"upper"`
	Lower     float64  `json:"lower"`
	Middle    float64  `json:"middle"`
	Bandwidth *float64 `json:"bandwidth"`
	Position  string   `json:"position"`
}

// TechnicalIndicators holds every indicator the engine can compute.
// A nil field was not requested by the selection.
type TechnicalIndicators struct {
	SMA50       *IndicatorResult `json:"sma_50,omitempty"`
	SMA200      *IndicatorResult `json:"sma_200,omitempty"`
	EMA20       *IndicatorResult `json:"ema_20,omitempty"`
	RSI         *IndicatorResult `json:"rsi,omitempty"`
	MACD        *IndicatorResult `json:"macd,omitempty"`
	Stoch       *IndicatorResult `json:"stoch,omitempty"`
	OBV         *IndicatorResult `json:"obv,omitempty"`
	VolumeSpike *IndicatorResult `json:"volume_spike,omitempty"`
	ATR         *IndicatorResult `json:"atr,omitempty"`
	BBands      *IndicatorResult `json:"bbands,omitempty"`
}

// Each visits the computed indicators in report order
func (t *TechnicalIndicators) Each(fn func(name string, r *IndicatorResult)) {
	for _, s := range []struct {
		name string
		r    *IndicatorResult
	}{
		{IndicatorSMA50, t.SMA50},
		{IndicatorSMA200, t.SMA200},
		{IndicatorEMA20, t.EMA20},
		{IndicatorRSI, t.RSI},
		{IndicatorMACD, t.MACD},
		{IndicatorStoch, t.Stoch},
		{IndicatorOBV, t.OBV},
		{IndicatorVolumeSpike, t.VolumeSpike},
		{IndicatorATR, t.ATR},
		{IndicatorBBands, t.BBands},
	} {
		if s.r != nil {
			fn(s.name, s.r)
		}
	}
}

// TechnicalCategoryScores are unweighted means of member indicator scores
type TechnicalCategoryScores struct {
	Trend      *float64 `json:"trend_score"`
	Momentum   *float64 `json:"momentum_score"`
	Volume     *float64 `json:"volume_score"`
	Volatility *float64 `json:"volatility_score"`
}

// TechnicalResult is the full output of the technical engine.
// Explanations flattens every computed indicator by key.
type TechnicalResult struct {
	LatestPrice           *float64                   `json:"latest_price"`
	TrendDirection        string                     `json:"trend_direction"`
	TrendSlope            *float64                   `json:"trend_slope"`
	EntrySignal           string                     `json:"entry_signal"`
	ExitSignal            string                     `json:"exit_signal"`
	MomentumStrength      string                     `json:"momentum_strength"`
	VolatilityLevel       string                     `json:"volatility_level"`
	Indicators            TechnicalIndicators        `json:"indicators"`
	CategoryScores        TechnicalCategoryScores    `json:"category_scores"`
	OverallTechnicalScore *float64                   `json:"overall_technical_score"`
	Explanations          map[string]IndicatorResult `json:"explanations"`
}
