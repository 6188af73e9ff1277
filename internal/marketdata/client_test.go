package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/config"
	"github.com/nsedesk/signalengine/internal/models"
)

// bars15mDay returns one NSE session's worth of 15m bars (09:15 .. 15:15,
// 25 bars) so they resample cleanly into five 75m bars with no trailing
// partial bucket.
func bars15mDay(day time.Time) []barDTO {
	out := make([]barDTO, 0, 25)
	open := time.Date(day.Year(), day.Month(), day.Day(), 9, 15, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		t := open.Add(time.Duration(i) * 15 * time.Minute)
		price := 100.0 + float64(i)
		out = append(out, barDTO{
			Timestamp: t, Open: price, High: price + 1, Low: price - 1, Close: price + 0.5, Volume: 1000,
		})
	}
	return out
}

func TestFetchCandlesDerives75mFromVendor15m(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := bars15mDay(day)

	var capturedInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, _ := url.ParseQuery(r.URL.RawQuery)
		capturedInterval = q.Get("interval")
		resp := barsResponseDTO{Bars: map[string][]barDTO{"TCS": bars}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewHTTPClient(config.VendorConfig{BaseURL: srv.URL, RequestsPerSecond: 1000})

	out, err := c.FetchCandles(context.Background(), "TCS", models.Timeframe75m, models.Period60d)
	require.NoError(t, err)

	assert.Equal(t, "15m", capturedInterval, "a 75m request must fetch the 15m vendor interval, not 1h")
	require.Len(t, out, 5, "25 session 15m bars must resample into 5 complete 75m bars")
	for _, bar := range out {
		assert.Equal(t, models.Timeframe75m, bar.Timeframe)
	}
	assert.Equal(t, 100.0, out[0].Open)
}
