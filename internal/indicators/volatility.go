package indicators

import (
	"math"

	"github.com/nsedesk/signalengine/internal/models"
)

// VolatilityIndicators is the ATR(14) + Bollinger(20,2σ) report for the most
// recent candle in a window.
type VolatilityIndicators struct {
	ATR             Value
	BollingerUpper  Value
	BollingerMiddle Value
	BollingerLower  Value
	BollingerWidth  Value
	PercentB        Value
}

// StandardDeviation computes the population standard deviation of the last
// period prices.
func StandardDeviation(prices []float64, period int) Value {
	if len(prices) < period || period <= 0 {
		return unset
	}
	window := prices[len(prices)-period:]
	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(period)

	variance := 0.0
	for _, p := range window {
		variance += math.Pow(p-mean, 2)
	}
	variance /= float64(period)

	return set(math.Sqrt(variance))
}

// BollingerBands computes the upper/middle/lower bands, width
// ((upper-lower)/middle), and %B (position of the last close within the
// bands, 0=lower band, 1=upper band).
func BollingerBands(prices []float64, period int, stdDevMultiplier float64) (upper, middle, lower, width, percentB Value) {
	if len(prices) < period {
		return unset, unset, unset, unset, unset
	}

	mid := SMA(prices, period)
	sd := StandardDeviation(prices, period)
	if !mid.Set || !sd.Set {
		return unset, unset, unset, unset, unset
	}

	up := mid.V + sd.V*stdDevMultiplier
	lo := mid.V - sd.V*stdDevMultiplier

	w := unset
	if mid.V != 0 {
		w = set((up - lo) / mid.V)
	}

	pb := unset
	if up != lo {
		pb = set((prices[len(prices)-1] - lo) / (up - lo))
	}

	return set(up), mid, set(lo), w, pb
}

// trueRange computes the true range of candle i given the window it came
// from (or just the high-low range for the first candle, which has no
// previous close).
func trueRange(w models.Window, i int) float64 {
	if i == 0 {
		return w[i].High - w[i].Low
	}
	tr1 := w[i].High - w[i].Low
	tr2 := math.Abs(w[i].High - w[i-1].Close)
	tr3 := math.Abs(w[i].Low - w[i-1].Close)
	return math.Max(tr1, math.Max(tr2, tr3))
}

// ATR computes the Average True Range over period using Wilder's smoothing
// (the TA-lib-reference convention), seeded with a simple average of the
// first `period` true ranges. Requires at least period+1 candles.
func ATR(w models.Window, period int) Value {
	if len(w) < period+1 {
		return unset
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(w, i)
	}
	atr := sum / float64(period)

	for i := period + 1; i < len(w); i++ {
		atr = (atr*float64(period-1) + trueRange(w, i)) / float64(period)
	}

	return set(atr)
}

// CalculateVolatilityIndicators computes the full volatility report for the
// most recent candle in w.
func CalculateVolatilityIndicators(w models.Window) VolatilityIndicators {
	closes := w.Closes()
	v := VolatilityIndicators{ATR: ATR(w, 14)}
	v.BollingerUpper, v.BollingerMiddle, v.BollingerLower, v.BollingerWidth, v.PercentB = BollingerBands(closes, 20, 2.0)
	return v
}

// VolatilityLevel classifies the current band width relative to a fixed
// "normal" band.
func (v VolatilityIndicators) VolatilityLevel() string {
	if !v.BollingerWidth.Set {
		return "unknown"
	}
	switch {
	case v.BollingerWidth.V > 0.1:
		return "high"
	case v.BollingerWidth.V < 0.03:
		return "low"
	default:
		return "normal"
	}
}
