// Package resample derives coarser-timeframe candles from a finer source
// series by bucketed OHLCV aggregation.
package resample

import (
	"time"

	"github.com/nsedesk/signalengine/internal/models"
)

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// sessionOpenHour, sessionOpenMinute is the NSE market open, 09:15, the
// wall-clock anchor buckets must align to (matches internal/sync's
// marketOpenHour/marketOpenMinute). A day length (86400s) is not a multiple
// of most bucket widths (75m = 4500s), so grid lines are recomputed from
// each candle's own session-open anchor rather than from the Unix epoch —
// anchoring to the epoch would drift the grid by a few minutes per day and
// cut sessions at the wrong boundary.
const sessionOpenHour, sessionOpenMinute = 9, 15

// bucketStart returns the epoch second of the left edge of the bucket
// (bucketSeconds wide, anchored to the 09:15 session open of t's own day)
// that t falls into.
func bucketStart(t time.Time, bucketSeconds int64) int64 {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	sessionOpenSeconds := int64(sessionOpenHour*3600 + sessionOpenMinute*60)
	offset := t.Unix() - dayStart.Unix() - sessionOpenSeconds
	bucketIndex := offset / bucketSeconds
	if offset < 0 && offset%bucketSeconds != 0 {
		bucketIndex--
	}
	return dayStart.Unix() + sessionOpenSeconds + bucketIndex*bucketSeconds
}

// Resample aggregates source (ascending by time, all the same symbol and
// source timeframe) into bucketMinutes-wide candles tagged with target.
// Buckets are left-aligned on wall-clock boundaries of bucketMinutes, so a
// 75-minute bucket aligns to the session open rather than an arbitrary
// offset. A trailing bucket that source doesn't fully cover is dropped
// rather than emitted incomplete.
func Resample(source models.Window, bucketMinutes int, target models.Timeframe) models.Window {
	if len(source) == 0 || bucketMinutes <= 0 {
		return nil
	}

	type bucket struct {
		start               int64
		open, high, low, cl float64
		volume              int64
		count               int
	}

	buckets := make(map[int64]*bucket)
	var order []int64

	bucketSeconds := int64(bucketMinutes) * 60

	for _, c := range source {
		start := bucketStart(c.Time, bucketSeconds)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{start: start, open: c.Open, high: c.High, low: c.Low, cl: c.Close}
			buckets[start] = b
			order = append(order, start)
		}
		if c.High > b.high {
			b.high = c.High
		}
		if c.Low < b.low {
			b.low = c.Low
		}
		b.cl = c.Close
		b.volume += c.Volume
		b.count++
	}

	expectedPerBucket := expectedCandlesPerBucket(source, bucketSeconds)

	out := make(models.Window, 0, len(order))
	for i, start := range order {
		b := buckets[start]
		isTrailing := i == len(order)-1
		if isTrailing && expectedPerBucket > 0 && b.count < expectedPerBucket {
			continue
		}
		out = append(out, models.Candle{
			Symbol:    source[0].Symbol,
			Timeframe: target,
			Time:      unixToTime(start),
			Open:      b.open,
			High:      b.high,
			Low:       b.low,
			Close:     b.cl,
			Volume:    b.volume,
		})
	}

	return out
}

// expectedCandlesPerBucket estimates how many source candles a full bucket
// should contain, from the median source sampling interval. Used only to
// decide whether the trailing bucket is complete.
func expectedCandlesPerBucket(source models.Window, bucketSeconds int64) int {
	if len(source) < 2 {
		return 0
	}
	sourceInterval := source[1].Time.Unix() - source[0].Time.Unix()
	if sourceInterval <= 0 {
		return 0
	}
	n := int(bucketSeconds / sourceInterval)
	if n <= 0 {
		return 1
	}
	return n
}
