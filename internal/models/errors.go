package models

import "errors"

// Sentinel validation errors, in the teacher's style of package-level
// errors.New values for cheap comparisons at call sites.
var (
	ErrInvalidSymbol    = errors.New("invalid symbol: must be non-empty")
	ErrInvalidTimeframe = errors.New("invalid timeframe: must be one of 1m 5m 15m 30m 1h 75m 1d 1w")
	ErrInvalidCandle    = errors.New("invalid candle: violates OHLC ordering or non-negativity invariants")
	ErrNegativeVolume   = errors.New("invalid volume: volume cannot be negative")
)
