package syncscheduler

import (
	"time"

	"github.com/nsedesk/signalengine/internal/models"
)

// istLocation is the NSE market's timezone; Asia/Kolkata has no DST so a
// fixed offset is equivalent to, and cheaper than, time.LoadLocation.
var istLocation = time.FixedZone("IST", 5*60*60+30*60)

const marketOpenHour, marketOpenMinute = 9, 15

// referencePoint returns the moment staleness should be measured against:
// "now" on a trading day, or the prior Friday 15:30 IST if now falls on a
// weekend or a Monday before the market open.
func referencePoint(now time.Time) time.Time {
	ist := now.In(istLocation)

	switch ist.Weekday() {
	case time.Saturday:
		return priorFridayClose(ist)
	case time.Sunday:
		return priorFridayClose(ist)
	case time.Monday:
		marketOpen := time.Date(ist.Year(), ist.Month(), ist.Day(), marketOpenHour, marketOpenMinute, 0, 0, istLocation)
		if ist.Before(marketOpen) {
			return priorFridayClose(ist)
		}
	}
	return now
}

// priorFridayClose returns 15:30 IST on the Friday before (or of) ist.
func priorFridayClose(ist time.Time) time.Time {
	daysSinceFriday := (int(ist.Weekday()) - int(time.Friday) + 7) % 7
	if daysSinceFriday == 0 && ist.Weekday() != time.Friday {
		daysSinceFriday = 7
	}
	friday := ist.AddDate(0, 0, -daysSinceFriday)
	return time.Date(friday.Year(), friday.Month(), friday.Day(), 15, 30, 0, 0, istLocation)
}

// IsStale reports whether a candle timestamped latest is stale for tf,
// measured against the weekend/Monday-corrected reference point for now.
func IsStale(tf models.Timeframe, latest, now time.Time) bool {
	thresholdMinutes, ok := tf.StalenessThreshold()
	if !ok {
		return true
	}
	ref := referencePoint(now)
	age := ref.Sub(latest)
	return age > time.Duration(thresholdMinutes)*time.Minute
}
