package srlevels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/models"
)

func candle(t time.Time, o, h, l, c float64) models.Candle {
	return models.Candle{
		Symbol: "TEST", Timeframe: models.Timeframe1d,
		Time: t, Open: o, High: h, Low: l, Close: c, Volume: 1000,
	}
}

func buildWindow(n int, base float64) models.Window {
	w := make(models.Window, 0, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		t := start.AddDate(0, 0, i)
		o := base + float64(i%5)
		h := o + 2
		l := o - 2
		c := o + 0.5
		w = append(w, candle(t, o, h, l, c))
	}
	return w
}

func TestDetectPivotLevelsFromLastCandle(t *testing.T) {
	w := buildWindow(30, 100)
	d := NewDetector()
	levels := d.Detect(w, DefaultLookback)
	require.NotEmpty(t, levels)

	var sawPivot bool
	for _, lvl := range levels {
		if lvl.Kind == models.LevelPivot {
			sawPivot = true
			assert.GreaterOrEqual(t, lvl.Strength, pivotMinStrength)
		}
	}
	assert.True(t, sawPivot)
}

func TestDetectLevelsSortedAscending(t *testing.T) {
	w := buildWindow(60, 100)
	d := NewDetector()
	levels := d.Detect(w, DefaultLookback)
	for i := 1; i < len(levels); i++ {
		assert.LessOrEqual(t, levels[i-1].Price, levels[i].Price)
	}
}

func TestNearestSupportBelowPrice(t *testing.T) {
	levels := Levels{
		{Price: 90, Kind: models.LevelSupport, Touches: 3},
		{Price: 95, Kind: models.LevelSupport, Touches: 2},
		{Price: 110, Kind: models.LevelResistance, Touches: 2},
	}
	lvl, ok := levels.NearestSupport(100, 0.01)
	require.True(t, ok)
	assert.Equal(t, 95.0, lvl.Price)
}

func TestNearestSupportRespectsMinDist(t *testing.T) {
	levels := Levels{
		{Price: 99.5, Kind: models.LevelSupport, Touches: 1},
	}
	_, ok := levels.NearestSupport(100, 0.01)
	assert.False(t, ok)
}

func TestNearestResistanceAbovePrice(t *testing.T) {
	levels := Levels{
		{Price: 105, Kind: models.LevelResistance, Touches: 2},
		{Price: 110, Kind: models.LevelResistance, Touches: 4},
	}
	lvl, ok := levels.NearestResistance(100, 0.01)
	require.True(t, ok)
	assert.Equal(t, 105.0, lvl.Price)
}

func TestResistanceTargetsFiltersByRiskReward(t *testing.T) {
	levels := Levels{
		{Price: 101, Kind: models.LevelResistance, Touches: 1},
		{Price: 103, Kind: models.LevelResistance, Touches: 2},
		{Price: 106, Kind: models.LevelResistance, Touches: 3},
	}
	entry, stop := 100.0, 99.0 // risk = 1
	targets := levels.ResistanceTargets(entry, stop, 1.5, 3)
	require.Len(t, targets, 2)
	assert.Equal(t, 103.0, targets[0].Price)
	assert.Equal(t, 106.0, targets[1].Price)
}

func TestResistanceTargetsCapsAtCount(t *testing.T) {
	levels := Levels{
		{Price: 102, Kind: models.LevelResistance, Touches: 1},
		{Price: 104, Kind: models.LevelResistance, Touches: 1},
		{Price: 106, Kind: models.LevelResistance, Touches: 1},
		{Price: 108, Kind: models.LevelResistance, Touches: 1},
	}
	targets := levels.ResistanceTargets(100, 99, 1.5, 2)
	assert.Len(t, targets, 2)
}
