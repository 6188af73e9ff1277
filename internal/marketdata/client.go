// Package marketdata provides typed, rate-limited access to an external
// OHLCV/fundamentals vendor.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/config"
	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/resample"
)

// resampleSourceTimeframe is the finer timeframe 75m candles are derived
// from: the vendor has no native 75m interval, and 15m is the coarsest
// interval that divides evenly into a 75-minute bucket (75/15 = 5), so a
// bucket never straddles a partially-fetched source gap the way a 1m source
// would over the same vendor call.
const resampleSourceTimeframe = models.Timeframe15m

// Client is the interface the signal pipeline depends on: a narrow,
// mockable view of whatever HTTP vendor actually serves candles and
// fundamentals.
type Client interface {
	FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, period models.Period) (models.Window, error)
	FetchFundamentals(ctx context.Context, symbol string) (models.Fundamentals, bool, error)
	Validate(ctx context.Context, symbol string) bool
}

// HTTPClient is the default Client, shaped like the teacher's
// AlpacaProvider: a fixed-timeout *http.Client, context-aware requests, and
// JSON DTO → domain-model mapping, plus a polite per-instance rate limiter
// and vendor-failure classification into apperr.Kind.
type HTTPClient struct {
	cfg        config.VendorConfig
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
}

// barDTO is the vendor's wire shape for a single OHLCV bar.
type barDTO struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

type barsResponseDTO struct {
	Bars map[string][]barDTO `json:"bars"`
}

type fundamentalsDTO struct {
	PE            *float64        `json:"trailingPE"`
	PB            *float64        `json:"priceToBook"`
	ROE           *float64        `json:"returnOnEquity"`
	DebtToEquity  *float64        `json:"debtToEquity"`
	MarketCap     *float64        `json:"marketCap"`
	DividendYield *float64        `json:"dividendYield"`
	Sector        string          `json:"sector"`
	Industry      string          `json:"industry"`
}

// NewHTTPClient constructs a rate-limited vendor client from cfg.
// RequestsPerSecond <= 0 falls back to a conservative default so a
// misconfigured client can't hammer the vendor.
func NewHTTPClient(cfg config.VendorConfig) *HTTPClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 0.66
	}

	return &HTTPClient{
		cfg:     cfg,
		logger:  logger.NewContextLogger("marketdata_client"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchCandles returns a contiguous block of candles ending at "now",
// ascending by time, for the vendor's window corresponding to period. The
// vendor has no native 75m interval, so a 75m request is served by fetching
// resampleSourceTimeframe (15m) and resampling it (internal/resample, C4)
// into session-aligned 75-minute bars.
func (c *HTTPClient) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe, period models.Period) (models.Window, error) {
	if tf == models.Timeframe75m {
		source, err := c.fetchRaw(ctx, symbol, resampleSourceTimeframe, period)
		if err != nil {
			return nil, err
		}
		return resample.Resample(source, 75, models.Timeframe75m), nil
	}
	return c.fetchRaw(ctx, symbol, tf, period)
}

// fetchRaw performs the actual vendor HTTP round-trip for timeframe tf and
// tags the returned candles with tf.
func (c *HTTPClient) fetchRaw(ctx context.Context, symbol string, tf models.Timeframe, period models.Period) (models.Window, error) {
	start := time.Now()
	defer func() {
		logger.LogPerformance(c.logger, "fetch_candles", start, true)
	}()

	if !c.Validate(ctx, symbol) {
		return nil, apperr.New(apperr.InvariantViolation, "marketdata", fmt.Sprintf("invalid symbol %q", symbol), nil)
	}
	if !tf.Valid() {
		return nil, apperr.New(apperr.InvariantViolation, "marketdata", fmt.Sprintf("invalid timeframe %q", tf), nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", vendorInterval(tf))
	params.Set("range", string(period))

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), symbol, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.New(apperr.VendorMalformed, "marketdata", "failed to build request", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.VendorNetwork, "marketdata", "failed to read response body", err)
	}

	if kind, ok := c.classifyStatus(resp.StatusCode, body); ok {
		return nil, apperr.New(kind, "marketdata", fmt.Sprintf("vendor returned status %d", resp.StatusCode), nil)
	}

	var dto barsResponseDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, apperr.New(apperr.VendorMalformed, "marketdata", "failed to decode response", err)
	}

	bars, ok := dto.Bars[symbol]
	if !ok || len(bars) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("no bars returned for symbol")
		return models.Window{}, nil
	}

	out := make(models.Window, 0, len(bars))
	for _, b := range bars {
		candle := models.Candle{
			Symbol: symbol, Timeframe: tf, Time: b.Timestamp,
			Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		}
		if err := candle.Validate(); err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Time("time", b.Timestamp).Msg("skipping invalid vendor bar")
			continue
		}
		out = append(out, candle)
	}

	c.logger.Info().
		Str("symbol", symbol).
		Str("timeframe", tf.String()).
		Int("count", len(out)).
		Msg("fetched candles from vendor")

	return out, nil
}

// FetchFundamentals returns the vendor's current fundamentals snapshot for
// symbol, or false if the vendor has none.
func (c *HTTPClient) FetchFundamentals(ctx context.Context, symbol string) (models.Fundamentals, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Fundamentals{}, false, c.classify(err)
	}

	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=defaultKeyStatistics,summaryDetail,assetProfile", strings.TrimRight(c.cfg.BaseURL, "/"), symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Fundamentals{}, false, apperr.New(apperr.VendorMalformed, "marketdata", "failed to build request", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Fundamentals{}, false, c.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Fundamentals{}, false, apperr.New(apperr.VendorNetwork, "marketdata", "failed to read response body", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return models.Fundamentals{}, false, nil
	}
	if kind, ok := c.classifyStatus(resp.StatusCode, body); ok {
		return models.Fundamentals{}, false, apperr.New(kind, "marketdata", fmt.Sprintf("vendor returned status %d", resp.StatusCode), nil)
	}

	var dto fundamentalsDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return models.Fundamentals{}, false, apperr.New(apperr.VendorMalformed, "marketdata", "failed to decode fundamentals", err)
	}

	return models.Fundamentals{
		Symbol: symbol, PE: dto.PE, PB: dto.PB, ROE: dto.ROE,
		DebtToEquity: dto.DebtToEquity, MarketCap: dto.MarketCap, DividendYield: dto.DividendYield,
		Sector: dto.Sector, Industry: dto.Industry, Raw: body, UpdatedAt: time.Now(),
	}, true, nil
}

// Validate is a cheap liveness probe: non-empty, sane-length, uppercase
// symbol. It does not round-trip to the vendor.
func (c *HTTPClient) Validate(ctx context.Context, symbol string) bool {
	if symbol == "" || len(symbol) > 20 {
		return false
	}
	for _, r := range symbol {
		if !(r >= 'A' && r <= 'Z') && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

func (c *HTTPClient) setAuthHeaders(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}

// classify maps a transport-level failure to an apperr.Kind.
func (c *HTTPClient) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.VendorTimeout, "marketdata", "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperr.New(apperr.Cancelled, "marketdata", "request cancelled", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return apperr.New(apperr.VendorNetwork, "marketdata", "network error", err)
	}
	return apperr.New(apperr.VendorNetwork, "marketdata", "request failed", err)
}

// classifyStatus maps an HTTP response to an apperr.Kind. A 200 with a body
// that looks like a throttle placeholder (empty/whitespace) is classified
// as RateLimited rather than MalformedResponse, per spec.
func (c *HTTPClient) classifyStatus(status int, body []byte) (apperr.Kind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.VendorRateLimited, true
	case status == http.StatusNotFound:
		return apperr.VendorNotFound, true
	case status == http.StatusOK && len(strings.TrimSpace(string(body))) == 0:
		return apperr.VendorRateLimited, true
	case status >= 500:
		return apperr.VendorNetwork, true
	case status >= 400:
		return apperr.VendorMalformed, true
	default:
		return "", false
	}
}

func vendorInterval(tf models.Timeframe) string {
	switch tf {
	case models.Timeframe1m:
		return "1m"
	case models.Timeframe5m:
		return "5m"
	case models.Timeframe15m:
		return "15m"
	case models.Timeframe30m:
		return "30m"
	case models.Timeframe1h:
		return "1h"
	case models.Timeframe1d:
		return "1d"
	case models.Timeframe1w:
		return "1wk"
	default:
		return "1d"
	}
}
