package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsedesk/signalengine/internal/broadcast"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/pipeline"
	"github.com/nsedesk/signalengine/internal/scoring"
	"github.com/nsedesk/signalengine/internal/sentiment"
	syncscheduler "github.com/nsedesk/signalengine/internal/sync"
)

var (
	batchTimeframe string
	batchSend      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the full sync-then-signal batch for every active instrument, outside the scheduler",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchTimeframe, "timeframe", "1d", "timeframe to build signals for")
	batchCmd.Flags().BoolVar(&batchSend, "send", false, "broadcast generated signals and the summary")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := initializeApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	tf, err := models.ParseTimeframe(batchTimeframe)
	if err != nil {
		return err
	}

	ctx := context.Background()
	instruments, err := a.instruments.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active instruments: %w", err)
	}

	symbols := make([]string, 0, len(instruments))
	tasks := make([]syncscheduler.Task, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
		tasks = append(tasks, syncscheduler.Task{Symbol: inst.Symbol, Timeframe: tf})
	}

	syncResults := a.scheduler.Run(ctx, tasks, syncscheduler.Mode(a.cfg.Pipeline.SyncMode), time.Now())
	for r := range syncResults {
		if r.Status == syncscheduler.StatusError {
			fmt.Printf("sync %-12s ERROR %v\n", r.Symbol, r.Err)
		}
	}

	strategy := scoring.NewStrategy(a.cfg.Pipeline.MinConfidence)

	var enricher pipeline.SentimentEnricher
	if a.cfg.Pipeline.SentimentEnabled {
		llmClient, err := sentiment.NewLLMClient(a.cfg.LLM.Provider, a.cfg.LLM.OpenAIAPIKey, a.cfg.LLM.AnthropicAPIKey, a.cfg.LLM.Model)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		newsFeed := sentiment.NewGoogleNewsFeed(a.cfg.News.BaseURL)
		enricher = sentiment.NewEnricher(newsFeed, llmClient, 0)
	}

	var sink *broadcast.Sink
	if batchSend {
		deliverer := broadcast.NewTelegramDeliverer(a.cfg.Telegram.BotToken)
		sink = broadcast.NewSingleSink(deliverer, a.cfg.Telegram.ChatID, nil)
	}

	var pipelineSink pipeline.BroadcastSink
	if sink != nil {
		pipelineSink = sink
	}

	p := pipeline.New(a.candles, a.fundamentals, strategy, enricher, pipelineSink)

	results := p.RunBatch(ctx, symbols, pipeline.Config{
		Timeframe:        tf,
		MinConfidence:    a.cfg.Pipeline.MinConfidence,
		SentimentEnabled: a.cfg.Pipeline.SentimentEnabled,
		BroadcastEnabled: batchSend,
		Lookback:         a.cfg.Pipeline.LookbackCandles,
	}, a.cfg.Pipeline.WorkerCap)

	summary := pipeline.Summarize(results)
	fmt.Printf("analyzed=%d signals=%d sent=%d no_signal=%d insufficient_data=%d errors=%d\n",
		summary.Total, summary.Signals, summary.SignalsSent, summary.NoSignal, summary.InsufficientData, summary.Errors)
	for kind, count := range summary.ErrorCountsByKind {
		fmt.Printf("  %s: %d\n", kind, count)
	}

	if batchSend && sink != nil {
		sink.SendSummary(ctx, summary, symbols)
	}
	return nil
}
