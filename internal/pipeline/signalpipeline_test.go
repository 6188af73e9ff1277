package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/scoring"
)

func uptrendWindow(n int) models.Window {
	w := make(models.Window, 0, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		// Every fifth bar pulls back, so the trend keeps rising while RSI
		// and the stochastic stay out of overbought territory.
		if i%5 == 0 {
			price -= 1.0
		} else {
			price += 0.6
		}
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

type fakeCandles struct {
	window models.Window
	err    error
}

func (f fakeCandles) Tail(ctx context.Context, symbol string, tf models.Timeframe, n int) (models.Window, error) {
	return f.window, f.err
}

type fakeFundamentals struct {
	f  models.Fundamentals
	ok bool
}

func (f fakeFundamentals) Get(ctx context.Context, symbol string) (models.Fundamentals, bool, error) {
	return f.f, f.ok, nil
}

type fakeSentiment struct {
	calls int
	err   error
}

func (f *fakeSentiment) Enrich(ctx context.Context, signal models.Signal, window models.Window, fundamentals *models.Fundamentals) (models.Signal, error) {
	f.calls++
	if f.err != nil {
		return signal, f.err
	}
	record := models.SentimentRecord{Prediction: "bullish", Confidence: 70}
	signal.Sentiment = &record
	return signal, nil
}

type fakeSink struct {
	delivered []models.Signal
}

func (f *fakeSink) Broadcast(ctx context.Context, signal models.Signal) error {
	f.delivered = append(f.delivered, signal)
	return nil
}

func newTestPipeline(window models.Window, sentiment SentimentEnricher, sink BroadcastSink) *Pipeline {
	return New(
		fakeCandles{window: window},
		fakeFundamentals{},
		scoring.NewStrategy(65),
		sentiment,
		sink,
	)
}

func TestBuildAwaitSkipsInsufficientData(t *testing.T) {
	p := newTestPipeline(uptrendWindow(40), nil, nil)
	res := p.BuildAwait(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d})
	assert.Equal(t, OutcomeInsufficientData, res.Outcome)
}

func TestBuildAwaitProducesSignalOnStrongUptrend(t *testing.T) {
	p := newTestPipeline(uptrendWindow(80), nil, nil)
	res := p.BuildAwait(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d, MinConfidence: 55})
	require.Equal(t, OutcomeSignal, res.Outcome)
	require.NotNil(t, res.Signal)
	assert.Equal(t, "TEST", res.Signal.Symbol)
	assert.NotNil(t, res.Signal.Levels)
}

func TestBuildAwaitPropagatesCandleStoreError(t *testing.T) {
	p := New(fakeCandles{err: errors.New("boom")}, fakeFundamentals{}, scoring.NewStrategy(65), nil, nil)
	res := p.BuildAwait(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d})
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Error(t, res.Err)
}

func TestBuildAwaitAppliesSentimentWhenEnabled(t *testing.T) {
	sentiment := &fakeSentiment{}
	p := newTestPipeline(uptrendWindow(80), sentiment, nil)
	res := p.BuildAwait(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d, MinConfidence: 55, SentimentEnabled: true})
	require.Equal(t, OutcomeSignal, res.Outcome)
	assert.Equal(t, 1, sentiment.calls)
	require.NotNil(t, res.Signal.Sentiment)
}

func TestBuildAwaitSurvivesSentimentFailure(t *testing.T) {
	sentiment := &fakeSentiment{err: errors.New("llm unavailable")}
	p := newTestPipeline(uptrendWindow(80), sentiment, nil)
	res := p.BuildAwait(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d, MinConfidence: 55, SentimentEnabled: true})
	require.Equal(t, OutcomeSignal, res.Outcome)
	assert.Nil(t, res.Signal.Sentiment)
}

func TestBuildAwaitBroadcastsWhenEnabled(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(uptrendWindow(80), nil, sink)
	res := p.BuildAwait(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d, MinConfidence: 55, BroadcastEnabled: true})
	require.Equal(t, OutcomeSignal, res.Outcome)
	require.Len(t, sink.delivered, 1)
	assert.Equal(t, "TEST", sink.delivered[0].Symbol)
}

func TestBuildOrBusyRejectsConcurrentBuildForSameSymbol(t *testing.T) {
	gate := make(chan struct{})
	release := make(chan struct{})
	blocking := blockingCandles{gate: gate, release: release, window: uptrendWindow(80)}
	p := New(blocking, fakeFundamentals{}, scoring.NewStrategy(65), nil, nil)

	done := make(chan BuildResult)
	go func() {
		res, _ := p.BuildOrBusy(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d, MinConfidence: 55})
		done <- res
	}()
	<-gate // first build is now inside Tail, holding the in-flight marker

	_, ok := p.BuildOrBusy(context.Background(), "TEST", Config{Timeframe: models.Timeframe1d})
	assert.False(t, ok)

	close(release)
	res := <-done
	assert.Equal(t, OutcomeSignal, res.Outcome)
}

type blockingCandles struct {
	gate    chan struct{}
	release chan struct{}
	window  models.Window
}

func (b blockingCandles) Tail(ctx context.Context, symbol string, tf models.Timeframe, n int) (models.Window, error) {
	close(b.gate)
	<-b.release
	return b.window, nil
}

func TestRunBatchEmitsOneResultPerSymbolAndSummarizes(t *testing.T) {
	p := newTestPipeline(uptrendWindow(80), nil, nil)
	symbols := []string{"AAA", "BBB", "CCC"}
	results := p.RunBatch(context.Background(), symbols, Config{Timeframe: models.Timeframe1d, MinConfidence: 55}, 2)

	summary := Summarize(results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Signals)
}
