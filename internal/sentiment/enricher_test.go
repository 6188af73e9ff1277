package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/models"
)

type fakeNewsFeed struct {
	headlines []Headline
	err       error
}

func (f fakeNewsFeed) FetchHeadlines(ctx context.Context, companyName string, lookback time.Duration) ([]Headline, error) {
	return f.headlines, f.err
}

type fakeLLM struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return resp, nil
}

func testWindow() models.Window {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return models.Window{
		{Symbol: "TEST", Timeframe: models.Timeframe1d, Time: start, Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000},
		{Symbol: "TEST", Timeframe: models.Timeframe1d, Time: start.AddDate(0, 0, 1), Open: 101, High: 104, Low: 100, Close: 103, Volume: 1200},
	}
}

func TestEnrichAppliesSentimentImpactToConfidence(t *testing.T) {
	news := fakeNewsFeed{headlines: []Headline{{Title: "Company beats estimates", Publisher: "Reuters", PublishedAt: time.Now()}}}
	llm := &fakeLLM{responses: []string{
		"SENTIMENT: bullish\nCONFIDENCE: 80\nIMPACT: 10\nSUMMARY: Good news.\n",
		"STRENGTH: strong\nPREDICTION: bullish\nRECOMMENDATION: buy\nAI_ENTRY: 101.00\nAI_STOP: 97.00\nAI_TARGET1: 110.00\nREASONING: Breakout confirmed.\n",
	}}
	e := NewEnricher(news, llm, time.Millisecond)

	signal := models.Signal{Symbol: "TEST", Timeframe: models.Timeframe1d, Confidence: 70}
	enriched, err := e.Enrich(context.Background(), signal, testWindow(), nil)
	require.NoError(t, err)
	assert.Equal(t, 70.0, enriched.OriginalConfidence)
	assert.Equal(t, 80.0, enriched.Confidence)
	require.NotNil(t, enriched.Sentiment)
	assert.Equal(t, "bullish", enriched.Sentiment.Label)
	assert.Equal(t, "buy", enriched.Sentiment.Recommendation)
	require.NotNil(t, enriched.Sentiment.AIEntry)
	assert.Equal(t, 101.0, *enriched.Sentiment.AIEntry)
}

func TestEnrichClampsAdjustedConfidenceToBounds(t *testing.T) {
	news := fakeNewsFeed{headlines: []Headline{{Title: "Bad quarter", Publisher: "Bloomberg"}}}
	llm := &fakeLLM{responses: []string{
		"SENTIMENT: bearish\nCONFIDENCE: 90\nIMPACT: -20\nSUMMARY: Weak guidance.\n",
		"STRENGTH: weak\nPREDICTION: bearish\nRECOMMENDATION: avoid\n",
	}}
	e := NewEnricher(news, llm, time.Millisecond)

	signal := models.Signal{Symbol: "TEST", Timeframe: models.Timeframe1d, Confidence: 10}
	enriched, err := e.Enrich(context.Background(), signal, testWindow(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, enriched.Confidence)
}

func TestEnrichSkipsNewsCallWhenNoHeadlines(t *testing.T) {
	news := fakeNewsFeed{}
	llm := &fakeLLM{responses: []string{
		"STRENGTH: moderate\nPREDICTION: neutral\nRECOMMENDATION: hold\n",
	}}
	e := NewEnricher(news, llm, time.Millisecond)

	signal := models.Signal{Symbol: "TEST", Timeframe: models.Timeframe1d, Confidence: 65}
	enriched, err := e.Enrich(context.Background(), signal, testWindow(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls) // only the technical-analysis call ran
	assert.Equal(t, "neutral", enriched.Sentiment.Label)
	assert.Equal(t, 65.0, enriched.Confidence) // zero impact leaves confidence unchanged
}

func TestEnrichPropagatesNewsFeedError(t *testing.T) {
	news := fakeNewsFeed{err: errors.New("feed unavailable")}
	llm := &fakeLLM{responses: []string{""}}
	e := NewEnricher(news, llm, time.Millisecond)

	signal := models.Signal{Symbol: "TEST", Timeframe: models.Timeframe1d, Confidence: 65}
	_, err := e.Enrich(context.Background(), signal, testWindow(), nil)
	assert.Error(t, err)
}

func TestEnrichPropagatesLLMError(t *testing.T) {
	news := fakeNewsFeed{headlines: []Headline{{Title: "Headline", Publisher: "Wire"}}}
	llm := &fakeLLM{err: errors.New("llm down")}
	e := NewEnricher(news, llm, time.Millisecond)

	signal := models.Signal{Symbol: "TEST", Timeframe: models.Timeframe1d, Confidence: 65}
	_, err := e.Enrich(context.Background(), signal, testWindow(), nil)
	assert.Error(t, err)
}
