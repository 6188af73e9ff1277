// Package sentiment enriches a Signal with news sentiment and an
// independent AI technical read, grounded on the teacher corpus's news
// feed / LLM interface shapes and rate-limited to one LLM call per
// configured interval (~7s by default).
package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/models"
)

const (
	maxHeadlines        = 10
	headlinesForPrompt  = 5
	defaultRateInterval = 7 * time.Second
)

// Enricher implements pipeline.SentimentEnricher: a news-sentiment pass
// followed by an independent AI technical-analysis pass, both going
// through the same rate-limited LLMClient.
type Enricher struct {
	news    NewsFeed
	llm     LLMClient
	limiter *rate.Limiter
}

// NewEnricher builds an Enricher. interval<=0 uses the spec default of
// ~7 seconds between LLM calls.
func NewEnricher(news NewsFeed, llm LLMClient, interval time.Duration) *Enricher {
	if interval <= 0 {
		interval = defaultRateInterval
	}
	return &Enricher{news: news, llm: llm, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Enrich adds a SentimentRecord to signal via a news-sentiment read
// followed by a technical sub-enrichment, both rate-limited against
// Enricher's shared limiter. A failure midway returns the original
// signal unchanged alongside the error; callers are expected to log and
// proceed per spec.md §4.9.
func (e *Enricher) Enrich(ctx context.Context, signal models.Signal, window models.Window, fundamentals *models.Fundamentals) (models.Signal, error) {
	lookback := headlineLookback(signal.Timeframe)
	companyName := canonicalName(signal.Symbol)

	headlines, err := e.news.FetchHeadlines(ctx, companyName, lookback)
	if err != nil {
		return signal, apperr.New(apperr.VendorNetwork, "sentiment", "fetch headlines", err)
	}

	news := defaultNewsSentiment()
	if len(headlines) > 0 {
		if err := e.limiter.Wait(ctx); err != nil {
			return signal, apperr.New(apperr.Cancelled, "sentiment", "rate limit wait cancelled", err)
		}
		response, err := e.llm.Complete(ctx, newsSentimentPrompt(signal.Symbol, headlines))
		if err != nil {
			return signal, err
		}
		news = parseNewsSentiment(response)
	}

	originalConfidence := signal.Confidence
	adjusted := clampFloat(originalConfidence+news.Impact, 0, 100)

	record := models.SentimentRecord{
		Label:       news.Label,
		Confidence:  news.Confidence,
		Impact:      news.Impact,
		Summary:     news.Summary,
		Provider:    "llm",
		GeneratedAt: signal.GeneratedAt,
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return signal, apperr.New(apperr.Cancelled, "sentiment", "rate limit wait cancelled", err)
	}
	techResponse, err := e.llm.Complete(ctx, technicalAnalysisPrompt(signal, window, fundamentals, news))
	if err != nil {
		return signal, err
	}
	tech := parseTechnicalAnalysis(techResponse)

	record.Strength = tech.Strength
	record.Prediction = tech.Prediction
	record.Timeframe = tech.Timeframe
	record.KeyFactors = tech.KeyFactors
	record.Recommendation = tech.Recommendation
	record.Reasoning = tech.Reasoning
	record.AIEntry = tech.AIEntry
	record.AIStop = tech.AIStop
	record.AITarget1 = tech.AITarget1
	record.AITarget2 = tech.AITarget2

	signal.Sentiment = &record
	signal.OriginalConfidence = originalConfidence
	signal.Confidence = adjusted
	return signal, nil
}

func headlineLookback(tf models.Timeframe) time.Duration {
	if tf == models.Timeframe75m {
		return 24 * time.Hour
	}
	return 3 * 24 * time.Hour
}

func newsSentimentPrompt(symbol string, headlines []Headline) string {
	n := len(headlines)
	if n > headlinesForPrompt {
		n = headlinesForPrompt
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following recent news headlines for %s stock and determine the overall sentiment:\n\n", symbol)
	for _, h := range headlines[:n] {
		fmt.Fprintf(&b, "- %s (%s)\n", h.Title, h.Publisher)
	}
	b.WriteString(`
Provide your analysis in this exact format:
SENTIMENT: [bullish/bearish/neutral]
CONFIDENCE: [0-100]
IMPACT: [-20 to +20] (negative for bearish, positive for bullish)
SUMMARY: [2-3 sentence explanation]
`)
	return b.String()
}

func technicalAnalysisPrompt(signal models.Signal, window models.Window, fundamentals *models.Fundamentals, news newsSentiment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional technical analyst. Analyze %s and provide independent trade recommendations.\n\n", signal.Symbol)

	last, _ := window.Last()
	fmt.Fprintf(&b, "CURRENT PRICE: %.2f\n\n", last.Close)
	b.WriteString("HISTORICAL PRICE DATA (tab-separated: Date\tOpen\tHigh\tLow\tClose\tVolume):\n")
	for _, c := range window {
		fmt.Fprintf(&b, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n", c.Time.Format("2006-01-02"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	if fundamentals != nil {
		b.WriteString("\nFUNDAMENTAL METRICS:\n")
		writeIfSet(&b, "P/E Ratio", fundamentals.PE)
		writeIfSet(&b, "P/B Ratio", fundamentals.PB)
		writeIfSet(&b, "ROE", fundamentals.ROE)
		writeIfSet(&b, "Debt/Equity", fundamentals.DebtToEquity)
		writeIfSet(&b, "Market Cap", fundamentals.MarketCap)
	}

	fmt.Fprintf(&b, "\nNEWS SENTIMENT: %s (%.0f%% confidence) - %s\n", strings.ToUpper(news.Label), news.Confidence, news.Summary)

	b.WriteString(`
Analyze the candles above to identify support/resistance from swing highs/lows, optimal entry, stop-loss, and target prices. Consider a minimum risk:reward of 1:1.5.

Provide analysis in this EXACT format:
STRENGTH: [weak/moderate/strong]
PREDICTION: [bullish/bearish/neutral]
TIMEFRAME: [1-3 days/1 week/2 weeks]
CONFIDENCE: [0-100]
KEY_FACTORS: [2-3 key technical factors, comma separated]
RECOMMENDATION: [buy/hold/avoid]
AI_ENTRY: [price OR 'N/A']
AI_STOP: [price OR 'N/A']
AI_TARGET1: [price OR 'N/A']
AI_TARGET2: [price OR 'None']
REASONING: [Concise technical rationale citing specific dates from the data]
`)
	return b.String()
}

func writeIfSet(b *strings.Builder, label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "- %s: %.2f\n", label, *v)
}
