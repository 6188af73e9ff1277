package levelplanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/indicators"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/srlevels"
)

func TestPlanUsesSupportAnchoredStopWhenValid(t *testing.T) {
	p := NewPlanner()
	entry := 100.0
	levels := srlevels.Levels{
		{Price: 97, Kind: models.LevelSupport, Touches: 3},
		{Price: 105, Kind: models.LevelResistance, Touches: 2},
		{Price: 110, Kind: models.LevelResistance, Touches: 3},
		{Price: 115, Kind: models.LevelResistance, Touches: 1},
	}
	planned, err := p.Plan(entry, indicators.Set{}, levels)
	require.NoError(t, err)

	wantStop := 97 * supportStopFactor
	assert.InDelta(t, wantStop, planned.StopLoss, 1e-9)
	assert.Less(t, planned.StopLoss, entry)
}

func TestPlanFallsBackWhenSupportTooFar(t *testing.T) {
	p := NewPlanner()
	entry := 100.0
	// support implying >5% risk is rejected
	levels := srlevels.Levels{
		{Price: 90, Kind: models.LevelSupport, Touches: 2},
	}
	ind := indicators.Set{}
	ind.Trend.EMA8 = indicators.Value{V: 99, Set: true}
	ind.Volatility.ATR = indicators.Value{V: 1.5, Set: true}

	planned, err := p.Plan(entry, ind, levels)
	require.NoError(t, err)
	assert.Less(t, planned.StopLoss, entry)

	emaStop := 99 * emaStopFactor
	atrStop := entry - 1.5
	fixedStop := entry * fixedStopFactor
	want := emaStop
	if atrStop > want {
		want = atrStop
	}
	if fixedStop > want {
		want = fixedStop
	}
	assert.InDelta(t, want, planned.StopLoss, 1e-9)
}

func TestTargetsPadWithRiskMultiplesWhenNoResistance(t *testing.T) {
	p := NewPlanner()
	entry, stop := 100.0, 95.0
	targets := p.targets(entry, stop, nil)
	require.Len(t, targets, 3)
	risk := entry - stop
	assert.InDelta(t, entry+risk*1.5, targets[0], 1e-9)
	assert.InDelta(t, entry+risk*2.0, targets[1], 1e-9)
	assert.InDelta(t, entry+risk*2.5, targets[2], 1e-9)
}

func TestTargetsUsesAllThreeResistanceAnchoredWhenAvailable(t *testing.T) {
	p := NewPlanner()
	entry, stop := 100.0, 95.0
	levels := srlevels.Levels{
		{Price: 108, Kind: models.LevelResistance, Touches: 2},
		{Price: 112, Kind: models.LevelResistance, Touches: 3},
		{Price: 120, Kind: models.LevelResistance, Touches: 1},
	}
	targets := p.targets(entry, stop, levels)
	require.Len(t, targets, 3)
	assert.Equal(t, []float64{108, 112, 120}, targets)
}

func TestTargetsAscendingInvariant(t *testing.T) {
	p := NewPlanner()
	entry, stop := 100.0, 95.0
	levels := srlevels.Levels{
		{Price: 108, Kind: models.LevelResistance, Touches: 2},
	}
	targets := p.targets(entry, stop, levels)
	require.Len(t, targets, 3)
	for i := 1; i < len(targets); i++ {
		assert.Less(t, targets[i-1], targets[i])
	}
	assert.Greater(t, targets[0], entry)
}
