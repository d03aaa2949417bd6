package technical

import (
	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/payload"
	"github.com/wonny/equitylens/internal/scoring"
)

type trend struct {
	direction string
	crossover string
}

// trendContext classifies price against the 50 and 200 day averages
func trendContext(price, sma50, sma200 *float64) trend {
	if price == nil || sma50 == nil || sma200 == nil {
		return trend{direction: TrendUnknown, crossover: contracts.LabelInsufficientData}
	}

	t := trend{direction: TrendSideways, crossover: contracts.LabelNeutral}
	switch {
	case *price > *sma200 && *sma50 > *sma200:
		t.direction = TrendUp
	case *price < *sma200 && *sma50 < *sma200:
		t.direction = TrendDown
	}
	switch {
	case *sma50 > *sma200:
		t.crossover = "Golden Cross"
	case *sma50 < *sma200:
		t.crossover = "Death Cross"
	}
	return t
}

type maInputs struct {
	price   *float64
	sma50   *float64
	sma200  *float64
	ema20   *float64
	slopeUp bool
	trend   trend
}

func insufficient(value any) *contracts.IndicatorResult {
	return &contracts.IndicatorResult{Value: value, Signal: contracts.LabelInsufficientData}
}

func insufficientMA(value *float64) *contracts.IndicatorResult {
	r := insufficient(value)
	r.Regime = scoring.Ptr(contracts.LabelInsufficientData)
	return r
}

// points returns pts when cond holds
func points(cond bool, pts float64) float64 {
	if cond {
		return pts
	}
	return 0
}

func sma50Signal(in maInputs) *contracts.IndicatorResult {
	if in.sma50 == nil || in.sma200 == nil || in.price == nil {
		return insufficientMA(in.sma50)
	}
	above := *in.sma50 > *in.sma200
	signal := "Below 200"
	if above {
		signal = "Above 200"
	}
	score := points(above, 3) + points(*in.price > *in.sma50, 2) + points(in.slopeUp, 1)
	return &contracts.IndicatorResult{
		Value:  in.sma50,
		Signal: signal,
		Score:  scoring.Ptr(scoring.Clamp10(score)),
		Regime: scoring.Ptr(in.trend.crossover),
	}
}

func sma200Signal(in maInputs) *contracts.IndicatorResult {
	if in.sma200 == nil || in.price == nil || in.sma50 == nil {
		return insufficientMA(in.sma200)
	}
	above := *in.price > *in.sma200
	signal := "Price Below"
	if above {
		signal = "Price Above"
	}
	score := points(above, 4) + points(*in.sma50 > *in.sma200, 2) + points(in.slopeUp, 1)
	return &contracts.IndicatorResult{
		Value:  in.sma200,
		Signal: signal,
		Score:  scoring.Ptr(scoring.Clamp10(score)),
		Regime: scoring.Ptr(in.trend.direction),
	}
}

func ema20Signal(in maInputs) *contracts.IndicatorResult {
	if in.ema20 == nil || in.sma50 == nil || in.price == nil {
		return insufficientMA(in.ema20)
	}
	above := *in.price > *in.ema20
	signal := "Price Below"
	if above {
		signal = "Price Above"
	}
	score := points(above, 2) + points(*in.ema20 > *in.sma50, 2) + points(in.slopeUp, 1)
	return &contracts.IndicatorResult{
		Value:  in.ema20,
		Signal: signal,
		Score:  scoring.Ptr(scoring.Clamp10(score)),
		Regime: scoring.Ptr(in.trend.direction),
	}
}

// rsiSignal scores RSI with a trend aware adjustment
func rsiSignal(rsi *float64, direction string) *contracts.IndicatorResult {
	if rsi == nil {
		return insufficient(nil)
	}
	v := *rsi

	var regime string
	switch {
	case v < 30:
		regime = "Oversold"
	case v < 50:
		regime = "Weak"
	case v <= 70:
		regime = "Bullish"
	default:
		regime = "Overbought"
	}

	score := scoring.Clamp10(v / 10)
	if direction == TrendUp && v >= 60 && v <= 70 {
		score++
	}
	if direction == TrendDown && v >= 60 {
		score--
	}
	if v > 70 {
		score--
	}
	if v < 30 {
		score++
	}

	return &contracts.IndicatorResult{
		Value:  rsi,
		Signal: "RSI " + regime,
		Score:  scoring.Ptr(scoring.Clamp10(score)),
		Regime: scoring.Ptr(regime),
	}
}

func macdSignal(block payload.Block) *contracts.IndicatorResult {
	latest, prev := block.LatestFields("MACD", "MACD_Signal", "MACD_Hist")
	macd, signal, hist := latest["MACD"], latest["MACD_Signal"], latest["MACD_Hist"]
	if macd == nil || signal == nil {
		return insufficient(nil)
	}
	prevMACD, prevSignal, prevHist := prev["MACD"], prev["MACD_Signal"], prev["MACD_Hist"]

	havePrev := prevMACD != nil && prevSignal != nil
	bullishCross := havePrev && *macd > *signal && *prevMACD <= *prevSignal
	bearishCross := havePrev && *macd < *signal && *prevMACD >= *prevSignal

	score := 5.0
	regime := contracts.LabelNeutral
	if bullishCross {
		score += 2.5
		regime = "Bullish Crossover"
	}
	if bearishCross {
		score -= 2.5
		regime = "Bearish Crossover"
	}
	if hist != nil && *hist > 0 {
		score += 1
	}
	if hist != nil && prevHist != nil && *hist > *prevHist {
		score += 0.5
	}
	if hist != nil && *hist < 0 {
		score -= 0.5
	}

	return &contracts.IndicatorResult{
		Value:  contracts.MACDValue{MACD: *macd, Signal: *signal, Hist: hist},
		Signal: regime,
		Score:  scoring.Ptr(scoring.Clamp10(score)),
		Regime: scoring.Ptr(regime),
	}
}

func stochSignal(block payload.Block) *contracts.IndicatorResult {
	latest, _ := block.LatestFields("SlowK", "SlowD")
	slowK := latest["SlowK"]
	if slowK == nil {
		return insufficient(nil)
	}

	var regime string
	var score float64
	switch k := *slowK; {
	case k < 20:
		regime, score = "Oversold", 7.0
	case k < 50:
		regime, score = "Weak", 4.5
	case k <= 80:
		regime, score = "Bullish", 6.5
	default:
		regime, score = "Overbought", 4.0
	}

	return &contracts.IndicatorResult{
		Value:  contracts.StochValue{SlowK: *slowK, SlowD: latest["SlowD"]},
		Signal: regime,
		Score:  scoring.Ptr(score),
		Regime: scoring.Ptr(regime),
	}
}

// obvSignal compares the OBV direction over the newest window with the
// latest price move.
func obvSignal(block payload.Block, prices []PriceRow) *contracts.IndicatorResult {
	latest, _ := block.LatestAndPrevious("OBV")
	if latest == nil {
		return insufficient(nil)
	}

	values := scoring.Compact(block.Column("OBV", obvWindow))
	obvUp := len(values) >= 2 && values[0] > values[len(values)-1]

	priceUp := len(prices) >= 2 && prices[0].Close != nil && prices[1].Close != nil &&
		*prices[0].Close > *prices[1].Close

	score := 5.0
	var regime string
	switch {
	case obvUp && priceUp:
		score, regime = score+2, "Confirmation"
	case obvUp:
		score, regime = score+1, "Accumulation"
	case priceUp:
		score, regime = score-2, "Distribution"
	default:
		score, regime = score-0.5, "Weak"
	}

	return &contracts.IndicatorResult{
		Value:  latest,
		Signal: regime,
		Score:  scoring.Ptr(scoring.Clamp10(score)),
		Regime: scoring.Ptr(regime),
	}
}

// volumeSpike compares the latest volume with the recent average
func volumeSpike(prices []PriceRow) *contracts.IndicatorResult {
	if len(prices) == 0 {
		return insufficient(nil)
	}

	latest := prices[0].Volume
	window := prices
	if len(window) > volumeWindow {
		window = window[:volumeWindow]
	}
	volumes := make([]*float64, 0, len(window))
	for _, row := range window {
		volumes = append(volumes, row.Volume)
	}
	present := scoring.Compact(volumes)
	if latest == nil || len(present) < volumeMinSamples {
		return insufficient(latest)
	}

	avg := scoring.Mean(volumes...)
	if *avg == 0 {
		return insufficient(latest)
	}
	ratio := *latest / *avg

	regime := "Normal"
	switch {
	case ratio >= 1.8:
		regime = "High Spike"
	case ratio >= 1.3:
		regime = "Moderate Spike"
	}

	return &contracts.IndicatorResult{
		Value:  scoring.Ptr(ratio),
		Signal: regime,
		Score:  scoring.Ptr(scoring.Clamp10(5 + (ratio-1)*4)),
		Regime: scoring.Ptr(regime),
	}
}

// atrRegime buckets ATR relative to price
func atrRegime(block payload.Block, price *float64) *contracts.IndicatorResult {
	atr, _ := block.LatestAndPrevious("ATR")
	if atr == nil || price == nil || *price == 0 {
		return insufficient(nil)
	}
	ratio := *atr / *price

	var regime string
	var score float64
	switch {
	case ratio < 0.015:
		regime, score = "Low Volatility", 5.0
	case ratio < 0.03:
		regime, score = "Moderate Volatility", 7.0
	default:
		regime, score = "High Volatility", 4.5
	}

	return &contracts.IndicatorResult{
		Value:  scoring.Ptr(ratio),
		Signal: regime,
		Score:  scoring.Ptr(score),
		Regime: scoring.Ptr(regime),
	}
}

// bbandsSignal reports the band position as Signal and the bandwidth
// regime (Squeeze or Normal) as Regime.
func bbandsSignal(block payload.Block, price *float64) *contracts.IndicatorResult {
	latest, _ := block.LatestFields("Real Upper Band", "Real Lower Band", "Real Middle Band")
	upper, lower, middle := latest["Real Upper Band"], latest["Real Lower Band"], latest["Real Middle Band"]
	if price == nil || upper == nil || lower == nil || middle == nil {
		return insufficient(nil)
	}
	p := *price

	var bandwidth *float64
	if *middle != 0 {
		bandwidth = scoring.Ptr((*upper - *lower) / *middle)
	}

	score := 5.0
	position := contracts.LabelNeutral
	switch {
	case p <= *lower*1.02:
		score, position = 7.0, "Support Zone"
	case p >= *upper*0.98:
		score, position = 4.0, "Exhaustion Zone"
	}

	volatility := "Normal"
	if bandwidth != nil && *bandwidth < 0.05 {
		volatility = "Squeeze"
		if p >= *middle {
			score = 6.0
		}
	}

	return &contracts.IndicatorResult{
		Value: contracts.BandsValue{
			Upper:     *upper,
			Lower:     *lower,
			Middle:    *middle,
			Bandwidth: bandwidth,
			Position:  position,
		},
		Signal: position,
		Score:  scoring.Ptr(score),
		Regime: scoring.Ptr(volatility),
	}
}
