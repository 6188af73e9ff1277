// Package pipeline orchestrates the per-symbol build: candles in,
// enriched Signal out, with an at-most-one-concurrent-build gate per
// symbol.
package pipeline

import (
	"context"
	stdsync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nsedesk/signalengine/internal/apperr"
	"github.com/nsedesk/signalengine/internal/indicators"
	"github.com/nsedesk/signalengine/internal/levelplanner"
	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/scoring"
	"github.com/nsedesk/signalengine/internal/srlevels"
)

// CandleTailer is the narrow CandleStore view SignalPipeline depends on.
type CandleTailer interface {
	Tail(ctx context.Context, symbol string, tf models.Timeframe, n int) (models.Window, error)
}

// FundamentalsGetter is the narrow FundamentalsStore view SignalPipeline
// depends on.
type FundamentalsGetter interface {
	Get(ctx context.Context, symbol string) (models.Fundamentals, bool, error)
}

// SentimentEnricher enriches a Signal with news sentiment and AI technical
// analysis, given the candle window and fundamentals the build already
// fetched. A failure must not fail the whole build: callers log and carry
// on with the unmodified signal.
type SentimentEnricher interface {
	Enrich(ctx context.Context, signal models.Signal, window models.Window, fundamentals *models.Fundamentals) (models.Signal, error)
}

// BroadcastSink delivers a finished Signal to subscribers.
type BroadcastSink interface {
	Broadcast(ctx context.Context, signal models.Signal) error
}

// Outcome classifies why a symbol did or didn't produce a signal.
type Outcome string

const (
	OutcomeSignal           Outcome = "signal"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeNoSignal         Outcome = "no_signal"
	OutcomeError            Outcome = "error"
)

// BuildResult is one symbol's pipeline outcome.
type BuildResult struct {
	Symbol  string
	Outcome Outcome
	Signal  *models.Signal
	Sent    bool
	Err     error
}

// Config controls a single build's behavior.
type Config struct {
	Timeframe        models.Timeframe
	MinConfidence    float64
	SentimentEnabled bool
	BroadcastEnabled bool
	Lookback         int // 0 uses Timeframe.DefaultLookbackCandles()
}

// Pipeline builds signals for symbols, one at a time per symbol.
type Pipeline struct {
	candles      CandleTailer
	fundamentals FundamentalsGetter
	srDetector   *srlevels.Detector
	strategy     *scoring.Strategy
	planner      *levelplanner.Planner
	sentiment    SentimentEnricher
	sink         BroadcastSink

	group singleflight.Group

	inFlightMu stdsync.Mutex
	inFlight   map[string]bool
}

// New creates a Pipeline. sentiment and sink may be nil when the
// corresponding Config flags are always false.
func New(candles CandleTailer, fundamentals FundamentalsGetter, strategy *scoring.Strategy, sentiment SentimentEnricher, sink BroadcastSink) *Pipeline {
	return &Pipeline{
		candles:      candles,
		fundamentals: fundamentals,
		srDetector:   srlevels.NewDetector(),
		strategy:     strategy,
		planner:      levelplanner.NewPlanner(),
		sentiment:    sentiment,
		sink:         sink,
		inFlight:     make(map[string]bool),
	}
}

// BuildAwait runs (or awaits an in-flight run of) the build for symbol,
// for batch/scheduled callers that would rather wait than duplicate work.
func (p *Pipeline) BuildAwait(ctx context.Context, symbol string, cfg Config) BuildResult {
	v, err, _ := p.group.Do(symbol, func() (interface{}, error) {
		return p.build(ctx, symbol, cfg), nil
	})
	if err != nil {
		return BuildResult{Symbol: symbol, Outcome: OutcomeError, Err: err}
	}
	return v.(BuildResult)
}

// BuildOrBusy runs the build for symbol, returning ok=false immediately
// without doing any work if a build for the same symbol is already in
// flight. Intended for interactive callers that would rather fail fast
// than wait behind another caller's build.
func (p *Pipeline) BuildOrBusy(ctx context.Context, symbol string, cfg Config) (result BuildResult, ok bool) {
	p.inFlightMu.Lock()
	if p.inFlight[symbol] {
		p.inFlightMu.Unlock()
		return BuildResult{}, false
	}
	p.inFlight[symbol] = true
	p.inFlightMu.Unlock()

	defer func() {
		p.inFlightMu.Lock()
		delete(p.inFlight, symbol)
		p.inFlightMu.Unlock()
	}()

	return p.build(ctx, symbol, cfg), true
}

func (p *Pipeline) build(ctx context.Context, symbol string, cfg Config) BuildResult {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = cfg.Timeframe.DefaultLookbackCandles()
	}

	window, err := p.candles.Tail(ctx, symbol, cfg.Timeframe, lookback)
	if err != nil {
		return BuildResult{Symbol: symbol, Outcome: OutcomeError, Err: err}
	}

	var fundamentals *models.Fundamentals
	if f, ok, ferr := p.fundamentals.Get(ctx, symbol); ferr == nil && ok {
		fundamentals = &f
	}

	strategy := p.strategy
	if cfg.MinConfidence > 0 && cfg.MinConfidence != p.strategy.MinConfidence {
		strategy = scoring.NewStrategy(cfg.MinConfidence)
	}

	analysis, err := strategy.Evaluate(symbol, cfg.Timeframe, window, fundamentals)
	if err != nil {
		if apperr.Is(err, apperr.InsufficientData) {
			return BuildResult{Symbol: symbol, Outcome: OutcomeInsufficientData, Err: err}
		}
		return BuildResult{Symbol: symbol, Outcome: OutcomeError, Err: err}
	}

	if !strategy.ShouldEmitBUY(analysis) {
		return BuildResult{Symbol: symbol, Outcome: OutcomeNoSignal}
	}

	last, ok := window.Last()
	if !ok {
		return BuildResult{Symbol: symbol, Outcome: OutcomeInsufficientData, Err: apperr.New(apperr.InsufficientData, "pipeline", "empty candle window", nil)}
	}

	srLevels := p.srDetector.Detect(window, srlevels.DefaultLookback)
	ind := indicators.Calculate(window)

	planned, err := p.planner.Plan(last.Close, ind, srLevels)
	if err != nil {
		return BuildResult{Symbol: symbol, Outcome: OutcomeError, Err: err}
	}

	signal := models.Signal{
		Symbol:      symbol,
		Timeframe:   cfg.Timeframe,
		GeneratedAt: time.Now(),
		Analysis:    analysis,
		Levels:      &planned,
		SRLevels:    srLevels,
		Confidence:  analysis.FinalScore,
	}

	if cfg.SentimentEnabled && p.sentiment != nil {
		if enriched, serr := p.sentiment.Enrich(ctx, signal, window, fundamentals); serr == nil {
			signal = enriched
		} else {
			// A sentiment failure is logged as a warning here; the base
			// signal still ships unchanged.
			logger.NewContextLogger("signal_pipeline").Warn().Err(serr).Str("symbol", symbol).Msg("sentiment enrichment failed; emitting base signal")
		}
	}

	sent := false
	if cfg.BroadcastEnabled && p.sink != nil {
		if berr := p.sink.Broadcast(ctx, signal); berr == nil {
			sent = true
		}
		// A DeliveryFailed error is isolated to this symbol; the signal
		// still counts as generated even if it could not be sent.
	}

	return BuildResult{Symbol: symbol, Outcome: OutcomeSignal, Signal: &signal, Sent: sent}
}
