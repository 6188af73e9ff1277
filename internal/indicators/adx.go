package indicators

import (
	"math"

	"github.com/nsedesk/signalengine/internal/models"
)

// ADX computes the Average Directional Index over period, Wilder's
// smoothing throughout (directional movement, true range, and the final DX
// average), the TA-lib-reference convention. Requires at least 2*period
// candles (period to seed the +DI/-DI smoothing, period more to smooth DX
// into ADX).
func ADX(w models.Window, period int) Value {
	if len(w) < 2*period {
		return unset
	}

	plusDM := make([]float64, len(w))
	minusDM := make([]float64, len(w))
	tr := make([]float64, len(w))

	for i := 1; i < len(w); i++ {
		upMove := w[i].High - w[i-1].High
		downMove := w[i-1].Low - w[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(w, i)
	}

	smooth := func(series []float64) []float64 {
		out := make([]float64, len(series))
		sum := 0.0
		for i := 1; i <= period; i++ {
			sum += series[i]
		}
		out[period] = sum
		for i := period + 1; i < len(series); i++ {
			out[i] = out[i-1] - out[i-1]/float64(period) + series[i]
		}
		return out
	}

	smoothTR := smooth(tr)
	smoothPlusDM := smooth(plusDM)
	smoothMinusDM := smooth(minusDM)

	dx := make([]float64, len(w))
	for i := period; i < len(w); i++ {
		if smoothTR[i] == 0 {
			continue
		}
		plusDI := 100 * smoothPlusDM[i] / smoothTR[i]
		minusDI := 100 * smoothMinusDM[i] / smoothTR[i]
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	// First ADX value is a simple average of the first `period` DX values
	// starting at index `period`; subsequent values are Wilder-smoothed.
	sumDX := 0.0
	for i := period; i < 2*period; i++ {
		sumDX += dx[i]
	}
	adx := sumDX / float64(period)
	for i := 2 * period; i < len(w); i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
	}

	return set(adx)
}

// SupertrendDirection is the trend side a Supertrend line currently flags.
type SupertrendDirection int

const (
	SupertrendUnknown SupertrendDirection = iota
	SupertrendUp
	SupertrendDown
)

// Supertrend computes the Supertrend line and its current direction over
// period (ATR lookback) and multiplier. Requires at least period+1
// candles.
func Supertrend(w models.Window, period int, multiplier float64) (line Value, direction SupertrendDirection) {
	if len(w) < period+1 {
		return unset, SupertrendUnknown
	}

	atr := ATR(w, period)
	if !atr.Set {
		return unset, SupertrendUnknown
	}

	last := w[len(w)-1]
	mid := (last.High + last.Low) / 2.0
	upperBand := mid + multiplier*atr.V
	lowerBand := mid - multiplier*atr.V

	prevClose := last.Close
	if len(w) >= 2 {
		prevClose = w[len(w)-2].Close
	}

	if last.Close > upperBand {
		return set(lowerBand), SupertrendUp
	}
	if last.Close < lowerBand {
		return set(upperBand), SupertrendDown
	}
	if prevClose >= mid {
		return set(lowerBand), SupertrendUp
	}
	return set(upperBand), SupertrendDown
}
