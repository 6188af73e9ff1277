package scoring

import "github.com/nsedesk/signalengine/internal/models"

// fundamentalAdjustment scores P/E, ROE, D/E, P/B, and market-cap tier into
// a raw ±40 point sum, halved to the ±20 confidence adjustment. A nil or
// fully-empty fundamentals record yields zero adjustment.
func fundamentalAdjustment(f *models.Fundamentals) float64 {
	if f == nil {
		return 0
	}

	score := 0.0
	score += peScore(f)
	score += roeScore(f)
	score += debtScore(f)
	score += pbScore(f)
	score += marketCapScore(f)

	return score / 2
}

func peScore(f *models.Fundamentals) float64 {
	if !f.HasPE() || *f.PE <= 0 {
		return 0
	}
	pe := *f.PE
	switch {
	case pe >= 10 && pe <= 25:
		return 10
	case (pe >= 5 && pe < 10) || (pe > 25 && pe <= 35):
		return 5
	case pe > 50:
		return -10
	case pe < 5:
		return -5
	default:
		return 0
	}
}

func roeScore(f *models.Fundamentals) float64 {
	if !f.HasROE() {
		return 0
	}
	roe := *f.ROE
	switch {
	case roe >= 0.20:
		return 10
	case roe >= 0.15:
		return 5
	case roe >= 0.10:
		return 0
	default:
		return -10
	}
}

func debtScore(f *models.Fundamentals) float64 {
	if !f.HasDebtToEquity() {
		return 0
	}
	de := *f.DebtToEquity
	switch {
	case de < 0.5:
		return 10
	case de < 1.0:
		return 5
	case de < 2.0:
		return 0
	default:
		return -10
	}
}

func pbScore(f *models.Fundamentals) float64 {
	if f.PB == nil || *f.PB <= 0 {
		return 0
	}
	pb := *f.PB
	switch {
	case pb >= 1 && pb <= 3:
		return 5
	case pb > 10:
		return -5
	default:
		return 0
	}
}

// marketCapScore tiers by crores, matching the NSE-facing convention the
// rest of the pipeline uses for market cap.
func marketCapScore(f *models.Fundamentals) float64 {
	if f.MarketCap == nil {
		return 0
	}
	mcap := *f.MarketCap
	switch {
	case mcap > 50000:
		return 5
	case mcap > 10000:
		return 2
	case mcap < 1000:
		return -5
	default:
		return 0
	}
}
