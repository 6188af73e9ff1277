package indicators

import (
	"math"

	"github.com/nsedesk/signalengine/internal/models"
)

// PatternSignal is a candlestick pattern's directional verdict: +100 for a
// bullish read, -100 for a bearish read, 0 for no pattern/neutral.
type PatternSignal int

const (
	PatternBearish PatternSignal = -100
	PatternNone    PatternSignal = 0
	PatternBullish PatternSignal = 100
)

const (
	dojiBodyRatio    = 0.1
	smallBodyRatio   = 0.3
	wickRatio        = 2.0
	starBodyFraction = 0.3
)

func bodySize(c models.Candle) float64  { return math.Abs(c.Close - c.Open) }
func candleRange(c models.Candle) float64 { return c.High - c.Low }
func lowerShadow(c models.Candle) float64 {
	return math.Min(c.Open, c.Close) - c.Low
}
func upperShadow(c models.Candle) float64 {
	return c.High - math.Max(c.Open, c.Close)
}
func isBullish(c models.Candle) bool { return c.Close > c.Open }
func isBearish(c models.Candle) bool { return c.Close < c.Open }

// Patterns is the signed-strength output of every recognized single/multi-
// candle pattern, evaluated against the tail of w.
type Patterns struct {
	Doji              PatternSignal
	Hammer            PatternSignal
	Engulfing         PatternSignal
	MorningStar       PatternSignal
	EveningStar       PatternSignal
	ThreeWhiteSoldiers PatternSignal
	ThreeBlackCrows   PatternSignal
}

// Doji reports whether c is a small-body indecision candle. A doji is
// neither bullish nor bearish on its own, so it carries no directional
// PatternSignal.
func Doji(c models.Candle) bool {
	r := candleRange(c)
	if r == 0 {
		return false
	}
	return bodySize(c)/r < dojiBodyRatio
}

// Hammer detects a small body with a long lower shadow and short upper
// shadow; +100 if the candle closed bullish, -100 (a "hanging man" read) if
// it closed bearish.
func Hammer(c models.Candle) PatternSignal {
	r := candleRange(c)
	b := bodySize(c)
	if r == 0 || b == 0 {
		return PatternNone
	}
	if lowerShadow(c) > b*wickRatio && upperShadow(c) < b*0.5 {
		if isBullish(c) {
			return PatternBullish
		}
		return PatternBearish
	}
	return PatternNone
}

// ShootingStar detects a small body with a long upper shadow and short
// lower shadow; always a bearish-reversal read at resistance.
func ShootingStar(c models.Candle) PatternSignal {
	r := candleRange(c)
	b := bodySize(c)
	if r == 0 || b == 0 {
		return PatternNone
	}
	if upperShadow(c) > b*wickRatio && lowerShadow(c) < b*0.5 {
		return PatternBearish
	}
	return PatternNone
}

// Engulfing detects a two-candle reversal where current's body fully
// engulfs prev's body in the opposite direction.
func Engulfing(prev, current models.Candle) PatternSignal {
	if isBearish(prev) && isBullish(current) && current.Open < prev.Close && current.Close > prev.Open {
		return PatternBullish
	}
	if isBullish(prev) && isBearish(current) && current.Open > prev.Close && current.Close < prev.Open {
		return PatternBearish
	}
	return PatternNone
}

// MorningStar detects a bearish candle, a small-bodied middle candle, then
// a bullish candle closing above the first candle's midpoint.
func MorningStar(first, middle, last models.Candle) PatternSignal {
	if !isBearish(first) || !isBullish(last) {
		return PatternNone
	}
	mb, fb, lb := bodySize(middle), bodySize(first), bodySize(last)
	if mb > fb*starBodyFraction || mb > lb*starBodyFraction {
		return PatternNone
	}
	firstMid := (first.Open + first.Close) / 2
	if last.Close > firstMid {
		return PatternBullish
	}
	return PatternNone
}

// EveningStar is the bearish mirror of MorningStar.
func EveningStar(first, middle, last models.Candle) PatternSignal {
	if !isBullish(first) || !isBearish(last) {
		return PatternNone
	}
	mb, fb, lb := bodySize(middle), bodySize(first), bodySize(last)
	if mb > fb*starBodyFraction || mb > lb*starBodyFraction {
		return PatternNone
	}
	firstMid := (first.Open + first.Close) / 2
	if last.Close < firstMid {
		return PatternBearish
	}
	return PatternNone
}

// ThreeWhiteSoldiers detects three consecutive bullish candles, each
// closing higher than the last, each opening within the prior candle's
// body.
func ThreeWhiteSoldiers(a, b, c models.Candle) PatternSignal {
	if !isBullish(a) || !isBullish(b) || !isBullish(c) {
		return PatternNone
	}
	if b.Close <= a.Close || c.Close <= b.Close {
		return PatternNone
	}
	if b.Open < a.Open || b.Open > a.Close || c.Open < b.Open || c.Open > b.Close {
		return PatternNone
	}
	return PatternBullish
}

// ThreeBlackCrows is the bearish mirror of ThreeWhiteSoldiers.
func ThreeBlackCrows(a, b, c models.Candle) PatternSignal {
	if !isBearish(a) || !isBearish(b) || !isBearish(c) {
		return PatternNone
	}
	if b.Close >= a.Close || c.Close >= b.Close {
		return PatternNone
	}
	if b.Open > a.Open || b.Open < a.Close || c.Open > b.Open || c.Open < b.Close {
		return PatternNone
	}
	return PatternBearish
}

// DetectPatterns evaluates every pattern against the tail of w.
func DetectPatterns(w models.Window) Patterns {
	var p Patterns
	n := len(w)
	if n == 0 {
		return p
	}

	current := w[n-1]
	if Doji(current) {
		p.Doji = PatternNone
	}
	p.Hammer = Hammer(current)
	if p.Hammer == PatternNone {
		p.Hammer = ShootingStar(current)
	}

	if n >= 2 {
		p.Engulfing = Engulfing(w[n-2], current)
	}

	if n >= 3 {
		p.MorningStar = MorningStar(w[n-3], w[n-2], current)
		p.EveningStar = EveningStar(w[n-3], w[n-2], current)
		p.ThreeWhiteSoldiers = ThreeWhiteSoldiers(w[n-3], w[n-2], current)
		p.ThreeBlackCrows = ThreeBlackCrows(w[n-3], w[n-2], current)
	}

	return p
}
