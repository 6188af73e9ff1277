package indicators

import "github.com/nsedesk/signalengine/internal/models"

// Set is the complete indicator report ScoringStrategy consumes: trend,
// momentum, volatility, volume, and candlestick patterns for the most
// recent candle in a window, plus the optional ADX/Supertrend pair.
type Set struct {
	Trend      TrendIndicators
	Momentum   MomentumIndicators
	Volatility VolatilityIndicators
	Volume     VolumeIndicators
	Patterns   Patterns

	ADX              Value
	SupertrendLine   Value
	SupertrendSide   SupertrendDirection
}

// Calculate computes every indicator group against w in one pass.
func Calculate(w models.Window) Set {
	closes := w.Closes()
	highs := w.Highs()
	lows := w.Lows()

	s := Set{
		Trend:      CalculateTrendIndicators(closes),
		Momentum:   CalculateMomentumIndicators(highs, lows, closes),
		Volatility: CalculateVolatilityIndicators(w),
		Volume:     CalculateVolumeIndicators(w),
		Patterns:   DetectPatterns(w),
		ADX:        ADX(w, 14),
	}
	s.SupertrendLine, s.SupertrendSide = Supertrend(w, 10, 3.0)
	return s
}

// OverallSignal combines trend/momentum/volume into a coarse directional
// read.
func (s Set) OverallSignal() string {
	bullish, bearish := 0, 0

	switch s.Trend.Direction() {
	case "bullish":
		bullish++
	case "bearish":
		bearish++
	}

	if s.Momentum.IsOversold() {
		bullish++
	} else if s.Momentum.IsOverbought() {
		bearish++
	}

	if s.Volume.AccDist.Set {
		if s.Volume.AccDist.V > 0 {
			bullish++
		} else if s.Volume.AccDist.V < 0 {
			bearish++
		}
	}

	switch {
	case bullish > bearish:
		return "bullish"
	case bearish > bullish:
		return "bearish"
	default:
		return "neutral"
	}
}
