package resample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/models"
)

func candleAt(t time.Time, o, h, l, c float64, v int64) models.Candle {
	return models.Candle{
		Symbol: "TCS", Timeframe: models.Timeframe15m, Time: t,
		Open: o, High: h, Low: l, Close: c, Volume: v,
	}
}

func TestResampleAggregatesOHLCV(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	source := models.Window{
		candleAt(base, 100, 102, 99, 101, 1000),
		candleAt(base.Add(15*time.Minute), 101, 103, 100, 102, 1500),
		candleAt(base.Add(30*time.Minute), 102, 104, 101, 103, 1200),
		candleAt(base.Add(45*time.Minute), 103, 105, 102, 104, 1800),
	}

	out := Resample(source, 60, models.Timeframe1h)
	require.Len(t, out, 1)

	bar := out[0]
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 105.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 104.0, bar.Close)
	assert.Equal(t, int64(5500), bar.Volume)
	assert.Equal(t, models.Timeframe1h, bar.Timeframe)
}

func TestResampleDropsIncompleteTrailingBucket(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	source := models.Window{
		candleAt(base, 100, 102, 99, 101, 1000),
		candleAt(base.Add(15*time.Minute), 101, 103, 100, 102, 1500),
		candleAt(base.Add(30*time.Minute), 102, 104, 101, 103, 1200),
		candleAt(base.Add(45*time.Minute), 103, 105, 102, 104, 1800),
		// Only one candle into the next hourly bucket: trailing & incomplete.
		candleAt(base.Add(60*time.Minute), 104, 106, 103, 105, 900),
	}

	out := Resample(source, 60, models.Timeframe1h)
	require.Len(t, out, 1, "the incomplete trailing bucket must be dropped")
	assert.Equal(t, 104.0, out[0].Close)
}

func TestResampleEmptySource(t *testing.T) {
	assert.Nil(t, Resample(nil, 60, models.Timeframe1h))
	assert.Nil(t, Resample(models.Window{}, 60, models.Timeframe1h))
}
