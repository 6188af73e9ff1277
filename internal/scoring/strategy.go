// Package scoring evaluates the composite trend/momentum/volatility scoring
// strategy, adjusted by fundamentals, and decides whether a BUY signal
// should be emitted.
package scoring

import (
	"fmt"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/indicators"
	"github.com/nsedesk/signalengine/internal/models"
)

const (
	minHistory = 50

	trendWeight      = 0.40
	momentumWeight   = 0.35
	volatilityWeight = 0.25

	strongCategoryThreshold = 60.0
	defaultMinConfidence    = 65.0
	relaxedThreshold        = 60.0
)

// Strategy evaluates ScoringStrategy against a candle window.
type Strategy struct {
	// MinConfidence gates BUY emission; below 60 the strong-category
	// requirement relaxes from 2 to 1.
	MinConfidence float64
}

// NewStrategy creates a Strategy with the given minimum confidence
// threshold (spec default 65).
func NewStrategy(minConfidence float64) *Strategy {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	return &Strategy{MinConfidence: minConfidence}
}

// Evaluate scores w (the full current window) against the indicator set
// computed from w and from w with its last candle dropped (for the
// "increasing vs. prior bar" conditions), adjusts by fundamentals, and
// returns the full Analysis. fundamentals may be nil.
func (s *Strategy) Evaluate(symbol string, tf models.Timeframe, w models.Window, fundamentals *models.Fundamentals) (models.Analysis, error) {
	if len(w) < minHistory {
		return models.Analysis{}, apperr.New(apperr.InsufficientData, "scoring",
			fmt.Sprintf("need at least %d candles, have %d", minHistory, len(w)), nil)
	}

	current := indicators.Calculate(w)
	prior := indicators.Calculate(w[:len(w)-1])

	trend := scoreTrend(w[len(w)-1].Close, current.Trend, prior.Trend)
	momentum := scoreMomentum(current.Momentum)
	volatility := scoreVolatility(current.Volatility, prior.Volatility)

	composite := trend.Score*trendWeight + momentum.Score*momentumWeight + volatility.Score*volatilityWeight

	delta := fundamentalAdjustment(fundamentals)
	final := clamp(composite+delta, 0, 100)

	return models.Analysis{
		Symbol:           symbol,
		Timeframe:        tf,
		Categories:       []models.CategoryScore{trend, momentum, volatility},
		CompositeScore:   composite,
		FundamentalDelta: delta,
		FinalScore:       final,
	}, nil
}

// StrongCategoryCount returns how many of a's categories scored ≥60.
func StrongCategoryCount(a models.Analysis) int {
	n := 0
	for _, c := range a.Categories {
		if c.Score >= strongCategoryThreshold {
			n++
		}
	}
	return n
}

// ShouldEmitBUY applies the BUY emission rule: final confidence ≥
// minConfidence AND strong-category count ≥ 2 (relaxed to ≥1 when
// minConfidence < 60).
func (s *Strategy) ShouldEmitBUY(a models.Analysis) bool {
	if a.FinalScore < s.MinConfidence {
		return false
	}
	required := 2
	if s.MinConfidence < relaxedThreshold {
		required = 1
	}
	return StrongCategoryCount(a) >= required
}

func scoreTrend(close float64, cur, prior indicators.TrendIndicators) models.CategoryScore {
	var details []string
	met := 0

	emaAligned := cur.EMA8.Set && cur.EMA20.Set && cur.EMA50.Set && cur.EMA8.V > cur.EMA20.V && cur.EMA20.V > cur.EMA50.V
	if emaAligned {
		met++
	}
	details = append(details, boolDetail("ema_aligned", emaAligned))

	priceAboveEMA8 := cur.EMA8.Set && close > cur.EMA8.V
	if priceAboveEMA8 {
		met++
	}
	details = append(details, boolDetail("price_above_ema8", priceAboveEMA8))

	macdBullish := cur.MACD.Set && cur.MACDSignal.Set && cur.MACD.V > cur.MACDSignal.V
	if macdBullish {
		met++
	}
	details = append(details, boolDetail("macd_bullish", macdBullish))

	macdPositive := cur.MACD.Set && cur.MACD.V > 0
	if macdPositive {
		met++
	}
	details = append(details, boolDetail("macd_positive", macdPositive))

	histIncreasing := cur.MACDHist.Set && prior.MACDHist.Set && cur.MACDHist.V > prior.MACDHist.V
	if histIncreasing {
		met++
	}
	details = append(details, boolDetail("macd_hist_increasing", histIncreasing))

	return models.CategoryScore{
		Name: "trend", Score: pct(met, 5), ConditionsMet: met, TotalConds: 5, Details: details,
	}
}

func scoreMomentum(cur indicators.MomentumIndicators) models.CategoryScore {
	var details []string
	met := 0

	rsiHealthy := cur.RSI.Set && cur.RSI.V >= 40 && cur.RSI.V <= 75
	if rsiHealthy {
		met++
	}
	details = append(details, boolDetail("rsi_healthy", rsiHealthy))

	stochNotOverbought := cur.StochasticK.Set && cur.StochasticK.V < 80
	if stochNotOverbought {
		met++
	}
	details = append(details, boolDetail("stoch_not_overbought", stochNotOverbought))

	stochBullish := cur.StochasticK.Set && cur.StochasticD.Set && cur.StochasticK.V > cur.StochasticD.V
	if stochBullish {
		met++
	}
	details = append(details, boolDetail("stoch_bullish", stochBullish))

	return models.CategoryScore{
		Name: "momentum", Score: pct(met, 3), ConditionsMet: met, TotalConds: 3, Details: details,
	}
}

func scoreVolatility(cur, prior indicators.VolatilityIndicators) models.CategoryScore {
	var details []string
	met := 0

	// %B is (close-lower)/(upper-lower); <0.3 is the same condition as
	// "distance from lower band under 30% of band width".
	nearLowerBB := cur.PercentB.Set && cur.PercentB.V < 0.3
	if nearLowerBB {
		met++
	}
	details = append(details, boolDetail("near_lower_bb", nearLowerBB))

	atrIncreasing := cur.ATR.Set && prior.ATR.Set && cur.ATR.V > prior.ATR.V
	if atrIncreasing {
		met++
	}
	details = append(details, boolDetail("atr_increasing", atrIncreasing))

	bbExpanding := cur.BollingerWidth.Set && prior.BollingerWidth.Set && cur.BollingerWidth.V > prior.BollingerWidth.V
	if bbExpanding {
		met++
	}
	details = append(details, boolDetail("bb_expanding", bbExpanding))

	return models.CategoryScore{
		Name: "volatility", Score: pct(met, 3), ConditionsMet: met, TotalConds: 3, Details: details,
	}
}

func pct(met, total int) float64 {
	return float64(met) / float64(total) * 100
}

func boolDetail(name string, v bool) string {
	if v {
		return name + "=true"
	}
	return name + "=false"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
