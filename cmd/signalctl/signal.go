package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsedesk/signalengine/internal/broadcast"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/pipeline"
	"github.com/nsedesk/signalengine/internal/scoring"
	"github.com/nsedesk/signalengine/internal/sentiment"
)

var (
	signalSymbol    string
	signalTimeframe string
	signalSend      bool
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Build a signal for one symbol on demand",
	RunE:  runSignal,
}

func init() {
	signalCmd.Flags().StringVar(&signalSymbol, "symbol", "", "symbol to build a signal for (required)")
	signalCmd.Flags().StringVar(&signalTimeframe, "timeframe", "1d", "timeframe (1m,5m,15m,30m,1h,75m,1d,1w)")
	signalCmd.Flags().BoolVar(&signalSend, "send", false, "broadcast the signal if one is generated")
}

func runSignal(cmd *cobra.Command, args []string) error {
	if signalSymbol == "" {
		return fmt.Errorf("--symbol is required")
	}

	a, err := initializeApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	tf, err := models.ParseTimeframe(signalTimeframe)
	if err != nil {
		return err
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

	var sink pipeline.BroadcastSink
	if signalSend {
		deliverer := broadcast.NewTelegramDeliverer(a.cfg.Telegram.BotToken)
		sink = broadcast.NewSingleSink(deliverer, a.cfg.Telegram.ChatID, nil)
	}

	p := pipeline.New(a.candles, a.fundamentals, strategy, enricher, sink)

	result := p.BuildAwait(context.Background(), signalSymbol, pipeline.Config{
		Timeframe:        tf,
		MinConfidence:    a.cfg.Pipeline.MinConfidence,
		SentimentEnabled: a.cfg.Pipeline.SentimentEnabled,
		BroadcastEnabled: signalSend,
		Lookback:         a.cfg.Pipeline.LookbackCandles,
	})

	switch result.Outcome {
	case pipeline.OutcomeSignal:
		out, _ := json.MarshalIndent(result.Signal, "", "  ")
		fmt.Println(string(out))
	case pipeline.OutcomeNoSignal:
		fmt.Printf("%s: no signal\n", signalSymbol)
	case pipeline.OutcomeInsufficientData:
		fmt.Printf("%s: insufficient data (%v)\n", signalSymbol, result.Err)
	case pipeline.OutcomeError:
		return fmt.Errorf("%s: %w", signalSymbol, result.Err)
	}
	return nil
}
