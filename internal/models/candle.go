package models

import "time"

// Candle is an OHLCV bar keyed by (Symbol, Timeframe, Time). Candles are
// immutable once written; CandleStore.InsertBatch is idempotent on this key.
type Candle struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Timeframe Timeframe `json:"timeframe" db:"timeframe"`
	Time      time.Time `json:"time" db:"time"`
	Open      float64   `json:"open" db:"open"`
	High      float64   `json:"high" db:"high"`
	Low       float64   `json:"low" db:"low"`
	Close     float64   `json:"close" db:"close"`
	Volume    int64     `json:"volume" db:"volume"`
}

// Validate enforces the OHLC ordering and non-negativity invariants of
// spec.md §3/§8: low <= open <= high, low <= close <= high, low <= high,
// volume >= 0.
func (c Candle) Validate() error {
	if c.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !c.Timeframe.Valid() {
		return ErrInvalidTimeframe
	}
	if c.Low > c.High {
		return ErrInvalidCandle
	}
	if c.Open < c.Low || c.Open > c.High {
		return ErrInvalidCandle
	}
	if c.Close < c.Low || c.Close > c.High {
		return ErrInvalidCandle
	}
	if c.Volume < 0 {
		return ErrNegativeVolume
	}
	return nil
}

// Window is an ordered-ascending-by-time slice of candles for a single
// (symbol, timeframe). IndicatorEngine, SRDetector, and ScoringStrategy all
// consume a Window as a read-only snapshot.
type Window []Candle

// Closes returns the closing prices of the window, ascending in time.
func (w Window) Closes() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high prices of the window, ascending in time.
func (w Window) Highs() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices of the window, ascending in time.
func (w Window) Lows() []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volumes of the window, ascending in time.
func (w Window) Volumes() []int64 {
	out := make([]int64, len(w))
	for i, c := range w {
		out[i] = c.Volume
	}
	return out
}

// Last returns the most recent candle in the window, or the zero value and
// false if the window is empty.
func (w Window) Last() (Candle, bool) {
	if len(w) == 0 {
		return Candle{}, false
	}
	return w[len(w)-1], true
}
