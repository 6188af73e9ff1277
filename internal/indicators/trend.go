package indicators

// TrendIndicators is the EMA(8,20,50) + MACD(12,26,9) report for the most
// recent candle in a window.
type TrendIndicators struct {
	EMA8       Value
	EMA20      Value
	EMA50      Value
	MACD       Value
	MACDSignal Value
	MACDHist   Value
}

// smaSeries returns a same-length series where index i holds the SMA(period)
// ending at i, or 0 for i < period-1 (not yet valid).
func smaSeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// emaSeries returns a same-length series of EMA(period) values, seeded with
// the SMA of the first `period` prices at index period-1 (textbook
// convention), 0 before that.
func emaSeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) < period || period <= 0 {
		return out
	}

	seed := smaSeries(prices, period)[period-1]
	out[period-1] = seed

	multiplier := 2.0 / (float64(period) + 1.0)
	ema := seed
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// SMA returns the simple moving average of the last `period` prices, or
// unset if prices is shorter than period.
func SMA(prices []float64, period int) Value {
	if len(prices) < period || period <= 0 {
		return unset
	}
	s := smaSeries(prices, period)
	return set(s[len(s)-1])
}

// EMA returns the exponential moving average ending at the last price, or
// unset if prices is shorter than period+1 (the minimum history needed to
// seed the EMA and produce at least one smoothed value beyond the seed,
// per spec: EMA(p) requires >= p+1 candles).
func EMA(prices []float64, period int) Value {
	if len(prices) < period+1 {
		return unset
	}
	s := emaSeries(prices, period)
	return set(s[len(s)-1])
}

// MACD computes MACD(fastPeriod, slowPeriod, signalPeriod): the MACD line
// (fast EMA minus slow EMA), the signal line (an EMA of the MACD line
// itself, not an approximation of it), and the histogram (macd - signal).
// Requires at least slowPeriod + signalPeriod candles.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) (macd, signal, histogram Value) {
	if len(prices) < slowPeriod+signalPeriod {
		return unset, unset, unset
	}

	fastEMA := emaSeries(prices, fastPeriod)
	slowEMA := emaSeries(prices, slowPeriod)

	macdLine := make([]float64, len(prices))
	for i := slowPeriod - 1; i < len(prices); i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// The signal line is the EMA of the MACD line, computed only over the
	// portion of the line that is actually defined (from slowPeriod-1 on).
	definedMACD := macdLine[slowPeriod-1:]
	signalSeries := emaSeries(definedMACD, signalPeriod)

	lastIdx := len(definedMACD) - 1
	macdVal := definedMACD[lastIdx]
	signalVal := signalSeries[lastIdx]

	return set(macdVal), set(signalVal), set(macdVal - signalVal)
}

// CalculateTrendIndicators computes the full trend report for the most
// recent candle in closes.
func CalculateTrendIndicators(closes []float64) TrendIndicators {
	t := TrendIndicators{
		EMA8:  EMA(closes, 8),
		EMA20: EMA(closes, 20),
		EMA50: EMA(closes, 50),
	}
	t.MACD, t.MACDSignal, t.MACDHist = MACD(closes, 12, 26, 9)
	return t
}

// Direction classifies the trend as bullish/bearish/sideways from EMA
// ordering and MACD sign.
func (t TrendIndicators) Direction() string {
	if !t.EMA20.Set || !t.EMA50.Set || !t.MACD.Set {
		return "unknown"
	}
	if t.EMA20.V > t.EMA50.V && t.MACD.V > 0 {
		return "bullish"
	}
	if t.EMA20.V < t.EMA50.V && t.MACD.V < 0 {
		return "bearish"
	}
	return "sideways"
}
