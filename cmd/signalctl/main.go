// Command signalctl is the ad-hoc operator CLI for the signal engine:
// sync a symbol's candles, build a signal on demand, or run the full
// daily batch outside the scheduler.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nsedesk/signalengine/internal/config"
	"github.com/nsedesk/signalengine/internal/database"
	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/marketdata"
	syncscheduler "github.com/nsedesk/signalengine/internal/sync"
)

var (
	rootCmd = &cobra.Command{
		Use:   "signalctl",
		Short: "Operator CLI for the NSE signal engine",
		Long:  `signalctl syncs candle data and builds/broadcasts signals outside the scheduled daily batch.`,
	}

	logLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(batchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles every collaborator a signalctl subcommand might need.
type app struct {
	cfg          *config.Config
	db           *database.DB
	instruments  *database.InstrumentStore
	candles      *database.CandleStore
	fundamentals *database.FundamentalsStore
	vendor       marketdata.Client
	scheduler    *syncscheduler.Scheduler
}

// initializeApp loads configuration and opens every store signalctl's
// subcommands share.
func initializeApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.InitLogger(cfg.LogLevel, cfg.Environment)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instruments, err := database.NewInstrumentStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrument store: %w", err)
	}
	candles, err := database.NewCandleStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create candle store: %w", err)
	}
	fundamentals, err := database.NewFundamentalsStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create fundamentals store: %w", err)
	}

	vendor := marketdata.NewHTTPClient(cfg.Vendor)
	scheduler := syncscheduler.NewScheduler(vendor, candles, cfg.Pipeline.WorkerCap, logger.New(cfg.Environment, cfg.LogLevel))

	return &app{
		cfg:          cfg,
		db:           db,
		instruments:  instruments,
		candles:      candles,
		fundamentals: fundamentals,
		vendor:       vendor,
		scheduler:    scheduler,
	}, nil
}
