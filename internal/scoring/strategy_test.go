package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/models"
)

func uptrendWindow(n int) models.Window {
	w := make(models.Window, 0, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.6
		o := price - 0.2
		c := price
		h := math.Max(o, c) + 0.3
		l := math.Min(o, c) - 0.8
		w = append(w, models.Candle{
			Symbol: "TEST", Timeframe: models.Timeframe1d,
			Time: start.AddDate(0, 0, i), Open: o, High: h, Low: l, Close: c,
			Volume: int64(100000 + i*10),
		})
	}
	return w
}

func TestEvaluateRequiresMinimumHistory(t *testing.T) {
	s := NewStrategy(65)
	_, err := s.Evaluate("TEST", models.Timeframe1d, uptrendWindow(40), nil)
	require.Error(t, err)
}

func TestEvaluateProducesThreeCategories(t *testing.T) {
	s := NewStrategy(65)
	w := uptrendWindow(80)
	analysis, err := s.Evaluate("TEST", models.Timeframe1d, w, nil)
	require.NoError(t, err)
	require.Len(t, analysis.Categories, 3)
	assert.Equal(t, "trend", analysis.Categories[0].Name)
	assert.Equal(t, "momentum", analysis.Categories[1].Name)
	assert.Equal(t, "volatility", analysis.Categories[2].Name)
	assert.GreaterOrEqual(t, analysis.FinalScore, 0.0)
	assert.LessOrEqual(t, analysis.FinalScore, 100.0)
}

func TestFundamentalAdjustmentZeroWhenAbsent(t *testing.T) {
	assert.Equal(t, 0.0, fundamentalAdjustment(nil))
}

func TestFundamentalAdjustmentIdealPE(t *testing.T) {
	pe := 18.0
	f := &models.Fundamentals{Symbol: "TEST", PE: &pe}
	assert.Equal(t, 5.0, fundamentalAdjustment(f)) // +10 raw, halved
}

func TestFundamentalAdjustmentClampedToBounds(t *testing.T) {
	pe, roe, de, pb, mcap := 18.0, 0.25, 0.3, 2.0, 60000.0
	f := &models.Fundamentals{Symbol: "TEST", PE: &pe, ROE: &roe, DebtToEquity: &de, PB: &pb, MarketCap: &mcap}
	delta := fundamentalAdjustment(f)
	assert.Equal(t, 20.0, delta) // (10+10+10+5+5)/2 = 20, the max
}

func TestShouldEmitBUYRequiresTwoStrongCategoriesByDefault(t *testing.T) {
	s := NewStrategy(65)
	a := models.Analysis{
		FinalScore: 70,
		Categories: []models.CategoryScore{
			{Name: "trend", Score: 70},
			{Name: "momentum", Score: 50},
			{Name: "volatility", Score: 40},
		},
	}
	assert.False(t, s.ShouldEmitBUY(a))
}

func TestShouldEmitBUYRelaxesBelowSixty(t *testing.T) {
	s := NewStrategy(55)
	a := models.Analysis{
		FinalScore: 58,
		Categories: []models.CategoryScore{
			{Name: "trend", Score: 70},
			{Name: "momentum", Score: 50},
			{Name: "volatility", Score: 40},
		},
	}
	assert.True(t, s.ShouldEmitBUY(a))
}
