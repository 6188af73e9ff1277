package syncscheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nsedesk/signalengine/internal/models"
)

func ist(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, istLocation)
}

func TestReferencePointWeekdayIsUnchanged(t *testing.T) {
	// 2026-07-28 is a Tuesday
	now := ist(2026, 7, 28, 11, 0)
	assert.Equal(t, now, referencePoint(now))
}

func TestReferencePointSaturdayRollsBackToFriday(t *testing.T) {
	// 2026-08-01 is a Saturday; prior Friday is 2026-07-31
	now := ist(2026, 8, 1, 10, 0)
	ref := referencePoint(now)
	assert.Equal(t, ist(2026, 7, 31, 15, 30), ref)
}

func TestReferencePointSundayRollsBackToFriday(t *testing.T) {
	now := ist(2026, 8, 2, 9, 0)
	ref := referencePoint(now)
	assert.Equal(t, ist(2026, 7, 31, 15, 30), ref)
}

func TestReferencePointMondayBeforeOpenRollsBack(t *testing.T) {
	// 2026-08-03 is a Monday; before 09:15 rolls back to Friday 2026-07-31
	now := ist(2026, 8, 3, 8, 0)
	ref := referencePoint(now)
	assert.Equal(t, ist(2026, 7, 31, 15, 30), ref)
}

func TestReferencePointMondayAfterOpenIsUnchanged(t *testing.T) {
	now := ist(2026, 8, 3, 10, 0)
	assert.Equal(t, now, referencePoint(now))
}

func TestIsStaleRespectsThresholdPerTimeframe(t *testing.T) {
	now := ist(2026, 7, 28, 12, 0)
	fresh := now.Add(-30 * time.Minute)
	stale := now.Add(-2 * time.Hour)

	assert.False(t, IsStale(models.Timeframe1m, fresh, now))
	assert.True(t, IsStale(models.Timeframe1m, stale, now))
}

func TestIsStaleUsesWeekendCorrectedReference(t *testing.T) {
	// latest candle at Friday close; "now" is Saturday, so against the raw
	// now the daily candle would look ~1 day stale, but against the
	// corrected reference point (Friday 15:30) it is fresh.
	fridayClose := ist(2026, 7, 31, 15, 30)
	saturday := ist(2026, 8, 1, 12, 0)
	assert.False(t, IsStale(models.Timeframe1d, fridayClose, saturday))
}
