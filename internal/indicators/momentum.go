package indicators

import "math"

// MomentumIndicators is the RSI(14) + Stochastic(14,3,3) report for the most
// recent candle in a window.
type MomentumIndicators struct {
	RSI         Value
	StochasticK Value
	StochasticD Value
	WilliamsR   Value
	ROC         Value
}

// RSI computes the Relative Strength Index over period, using Wilder's
// smoothed average of gains/losses. Requires at least period+1 candles.
func RSI(prices []float64, period int) Value {
	if len(prices) < period+1 {
		return unset
	}

	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += math.Abs(change)
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = math.Abs(change)
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return set(100)
	}
	rs := avgGain / avgLoss
	return set(100 - (100 / (1 + rs)))
}

// stochasticKSeries returns the raw %K series: for each index >= kPeriod-1,
// the close's position within the highest-high/lowest-low range of the
// trailing kPeriod candles, scaled to [0,100].
func stochasticKSeries(highs, lows, closes []float64, kPeriod int) []float64 {
	out := make([]float64, len(closes))
	for i := kPeriod - 1; i < len(closes); i++ {
		hh, ll := highs[i-kPeriod+1], lows[i-kPeriod+1]
		for j := i - kPeriod + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			out[i] = 50
		} else {
			out[i] = (closes[i] - ll) / (hh - ll) * 100
		}
	}
	return out
}

// Stochastic computes the slow stochastic: %K is the raw kPeriod %K
// smoothed by a kSmooth-length SMA, and %D is a proper dPeriod-length SMA of
// that smoothed %K series rather than a scaled approximation of %K itself.
// Requires at least kPeriod+kSmooth+dPeriod-2 candles.
func Stochastic(highs, lows, closes []float64, kPeriod, kSmooth, dPeriod int) (k, d Value) {
	if len(closes) < kPeriod+kSmooth+dPeriod-2 {
		return unset, unset
	}

	rawK := stochasticKSeries(highs, lows, closes, kPeriod)[kPeriod-1:]
	slowK := smaSeries(rawK, kSmooth)[kSmooth-1:]
	dSeries := smaSeries(slowK, dPeriod)

	lastIdx := len(slowK) - 1
	return set(slowK[lastIdx]), set(dSeries[lastIdx])
}

// WilliamsR computes Williams %R over period.
func WilliamsR(highs, lows, closes []float64, period int) Value {
	if len(closes) < period {
		return unset
	}
	hh, ll := highs[len(highs)-period], lows[len(lows)-period]
	for i := len(highs) - period; i < len(highs); i++ {
		if highs[i] > hh {
			hh = highs[i]
		}
		if lows[i] < ll {
			ll = lows[i]
		}
	}
	if hh == ll {
		return set(-50)
	}
	current := closes[len(closes)-1]
	return set((hh - current) / (hh - ll) * -100)
}

// ROC computes the Rate of Change over period.
func ROC(prices []float64, period int) Value {
	if len(prices) < period+1 {
		return unset
	}
	current := prices[len(prices)-1]
	past := prices[len(prices)-1-period]
	if past == 0 {
		return unset
	}
	return set((current - past) / past * 100)
}

// CalculateMomentumIndicators computes the full momentum report for the
// most recent candle.
func CalculateMomentumIndicators(highs, lows, closes []float64) MomentumIndicators {
	m := MomentumIndicators{
		RSI:       RSI(closes, 14),
		WilliamsR: WilliamsR(highs, lows, closes, 14),
		ROC:       ROC(closes, 10),
	}
	m.StochasticK, m.StochasticD = Stochastic(highs, lows, closes, 14, 3, 3)
	return m
}

// IsOverbought reports whether momentum indicators agree on overbought.
func (m MomentumIndicators) IsOverbought() bool {
	return (m.RSI.Set && m.RSI.V > 70) || (m.StochasticK.Set && m.StochasticK.V > 80) || (m.WilliamsR.Set && m.WilliamsR.V > -20)
}

// IsOversold reports whether momentum indicators agree on oversold.
func (m MomentumIndicators) IsOversold() bool {
	return (m.RSI.Set && m.RSI.V < 30) || (m.StochasticK.Set && m.StochasticK.V < 20) || (m.WilliamsR.Set && m.WilliamsR.V < -80)
}
