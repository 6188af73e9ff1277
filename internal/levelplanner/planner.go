// Package levelplanner derives stop-loss and target levels for a BUY entry
// from support/resistance and indicator state.
package levelplanner

import (
	"math"
	"sort"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/indicators"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/srlevels"
)

const (
	minRiskReward = 1.5
	targetCount   = 3

	supportStopMinDist = 0.005
	supportStopFactor  = 0.99
	minRiskPct         = 0.005
	maxRiskPct         = 0.05

	emaStopFactor   = 0.997
	atrStopMultiple = 1.0
	fixedStopFactor = 0.98
)

var riskMultiples = []float64{1.5, 2.0, 2.5}

// Planner derives PlannedLevels for a confirmed BUY entry.
type Planner struct{}

// NewPlanner creates a LevelPlanner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan computes the stop-loss and up-to-3 targets for entry, given the
// symbol's indicator set and detected SR levels.
func (p *Planner) Plan(entry float64, ind indicators.Set, levels srlevels.Levels) (models.PlannedLevels, error) {
	stop, err := p.stopLoss(entry, ind, levels)
	if err != nil {
		return models.PlannedLevels{}, err
	}

	targets := p.targets(entry, stop, levels)

	return models.PlannedLevels{
		Entry:         entry,
		StopLoss:      stop,
		Targets:       targets,
		RiskRewardMin: minRiskReward,
	}, nil
}

// stopLoss tries a support-anchored stop first, falling back to the
// tightest of three protective technical stops when no support qualifies.
func (p *Planner) stopLoss(entry float64, ind indicators.Set, levels srlevels.Levels) (float64, error) {
	if support, ok := levels.NearestSupport(entry, supportStopMinDist); ok {
		candidate := support.Price * supportStopFactor
		riskPct := (entry - candidate) / entry
		if riskPct >= minRiskPct && riskPct <= maxRiskPct {
			return candidate, nil
		}
	}

	fallbacks := make([]float64, 0, 3)
	if ind.Trend.EMA8.Set {
		fallbacks = append(fallbacks, ind.Trend.EMA8.V*emaStopFactor)
	}
	if ind.Volatility.ATR.Set {
		fallbacks = append(fallbacks, entry-atrStopMultiple*ind.Volatility.ATR.V)
	}
	fallbacks = append(fallbacks, entry*fixedStopFactor)

	stop := fallbacks[0]
	for _, f := range fallbacks[1:] {
		if f > stop {
			stop = f
		}
	}

	if stop >= entry {
		return 0, apperr.New(apperr.InvariantViolation, "levelplanner", "computed stop-loss is not below entry", nil)
	}
	return stop, nil
}

// targets calls resistance_targets, then pads with risk-multiple targets
// when fewer than targetCount resistance-anchored levels qualify.
func (p *Planner) targets(entry, stop float64, levels srlevels.Levels) []float64 {
	anchored := levels.ResistanceTargets(entry, stop, minRiskReward, targetCount)
	risk := entry - stop

	prices := make([]float64, 0, targetCount)
	for _, lvl := range anchored {
		prices = append(prices, lvl.Price)
	}

	if len(prices) >= targetCount {
		return prices[:targetCount]
	}

	covered := make(map[float64]bool)
	for _, pr := range prices {
		for _, m := range riskMultiples {
			if math.Abs(pr-(entry+risk*m)) < 1e-9 {
				covered[m] = true
			}
		}
	}

	for _, m := range riskMultiples {
		if len(prices) >= targetCount {
			break
		}
		if covered[m] {
			continue
		}
		prices = append(prices, entry+risk*m)
	}

	sort.Float64s(prices)
	if len(prices) > targetCount {
		prices = prices[:targetCount]
	}
	return prices
}
