package srlevels

import "github.com/nsedesk/signalengine/internal/models"

// Levels is a sorted (ascending by price) collection of SRLevel, with the
// key queries LevelPlanner runs against it.
type Levels []models.SRLevel

// NearestSupport returns the highest support-kind level at least minDist
// below price, or false if none qualifies.
func (ls Levels) NearestSupport(price, minDist float64) (models.SRLevel, bool) {
	ceiling := price * (1 - minDist)
	var best models.SRLevel
	found := false
	for _, lvl := range ls {
		if lvl.Kind != models.LevelSupport {
			continue
		}
		if lvl.Price >= ceiling {
			continue
		}
		if !found || lvl.Price > best.Price || (lvl.Price == best.Price && lvl.Touches > best.Touches) {
			best = lvl
			found = true
		}
	}
	return best, found
}

// NearestResistance returns the lowest resistance-kind level at least
// minDist above price, or false if none qualifies.
func (ls Levels) NearestResistance(price, minDist float64) (models.SRLevel, bool) {
	floor := price * (1 + minDist)
	var best models.SRLevel
	found := false
	for _, lvl := range ls {
		if lvl.Kind != models.LevelResistance {
			continue
		}
		if lvl.Price <= floor {
			continue
		}
		if !found || lvl.Price < best.Price || (lvl.Price == best.Price && lvl.Touches > best.Touches) {
			best = lvl
			found = true
		}
	}
	return best, found
}

// ResistanceTargets returns the first count resistance-kind levels above
// entry whose risk/reward against stop is at least minRR, ascending by
// price.
func (ls Levels) ResistanceTargets(entry, stop, minRR float64, count int) []models.SRLevel {
	risk := entry - stop
	if risk <= 0 {
		return nil
	}

	candidates := make([]models.SRLevel, 0, len(ls))
	for _, lvl := range ls {
		if lvl.Kind != models.LevelResistance || lvl.Price <= entry {
			continue
		}
		rr := (lvl.Price - entry) / risk
		if rr >= minRR {
			candidates = append(candidates, lvl)
		}
	}
	// ls is already sorted ascending by price; candidates preserves that order.
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}
