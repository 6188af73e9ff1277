// Package srlevels detects pivot-point and swing-based support/resistance
// levels from a candle window.
package srlevels

import (
	"math"
	"sort"

	"github.com/nsedesk/signalengine/internal/models"
)

const (
	// DefaultLookback is the candle window SRDetector consumes by default.
	DefaultLookback = 50

	swingRadius  = 5 // centered window radius; width 10 total (5 each side)
	touchBand    = 0.01
	pivotMinStrength = 2.0
)

// Detector finds support/resistance levels from a candle window.
type Detector struct{}

// NewDetector creates an SRDetector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect combines pivot-formula levels and swing-point levels over the last
// lookback candles of w (or all of w if shorter), sorted ascending by price.
func (d *Detector) Detect(w models.Window, lookback int) Levels {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if len(w) > lookback {
		w = w[len(w)-lookback:]
	}
	if len(w) == 0 {
		return nil
	}

	levels := pivotLevels(w)
	levels = append(levels, swingLevels(w)...)

	sort.Slice(levels, func(i, j int) bool {
		if levels[i].Price != levels[j].Price {
			return levels[i].Price < levels[j].Price
		}
		return levels[i].Touches > levels[j].Touches
	})
	return levels
}

// pivotLevels computes the classic PP/R1-R3/S1-S3 levels from the most
// recent candle in w.
func pivotLevels(w models.Window) Levels {
	last := w[len(w)-1]
	h, l, c := last.High, last.Low, last.Close

	pp := (h + l + c) / 3
	r1 := 2*pp - l
	r2 := pp + (h - l)
	r3 := h + 2*(pp-l)
	s1 := 2*pp - h
	s2 := pp - (h - l)
	s3 := l - 2*(pp-h)

	return Levels{
		{Price: pp, Kind: models.LevelPivot, Touches: 1, Strength: pivotMinStrength},
		{Price: r1, Kind: models.LevelResistance, Touches: 1, Strength: pivotMinStrength},
		{Price: r2, Kind: models.LevelResistance, Touches: 1, Strength: pivotMinStrength},
		{Price: r3, Kind: models.LevelResistance, Touches: 1, Strength: pivotMinStrength},
		{Price: s1, Kind: models.LevelSupport, Touches: 1, Strength: pivotMinStrength},
		{Price: s2, Kind: models.LevelSupport, Touches: 1, Strength: pivotMinStrength},
		{Price: s3, Kind: models.LevelSupport, Touches: 1, Strength: pivotMinStrength},
	}
}

// swingLevels finds local highs/lows via a centered rolling window, dedupes
// by rounding to 2 decimals, and counts touches within a ±1% band.
func swingLevels(w models.Window) Levels {
	type swing struct {
		price float64
		kind  models.LevelKind
	}
	var swings []swing

	for i := swingRadius; i < len(w)-swingRadius; i++ {
		current := w[i]

		isHigh := true
		isLow := true
		for j := i - swingRadius; j <= i+swingRadius; j++ {
			if j == i {
				continue
			}
			if w[j].High >= current.High {
				isHigh = false
			}
			if w[j].Low <= current.Low {
				isLow = false
			}
		}
		if isHigh {
			swings = append(swings, swing{price: current.High, kind: models.LevelResistance})
		}
		if isLow {
			swings = append(swings, swing{price: current.Low, kind: models.LevelSupport})
		}
	}

	dedup := make(map[float64]models.LevelKind)
	for _, sw := range swings {
		rounded := math.Round(sw.price*100) / 100
		dedup[rounded] = sw.kind
	}

	var levels Levels
	for price, kind := range dedup {
		touches := countTouches(w, price)
		levels = append(levels, models.SRLevel{
			Price:    price,
			Kind:     kind,
			Touches:  touches,
			Strength: float64(touches),
		})
	}
	return levels
}

// countTouches counts candles whose high or low lies within ±1% of price.
func countTouches(w models.Window, price float64) int {
	count := 0
	band := price * touchBand
	for _, c := range w {
		if math.Abs(c.High-price) <= band || math.Abs(c.Low-price) <= band {
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}
