package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsedesk/signalengine/internal/models"
	syncscheduler "github.com/nsedesk/signalengine/internal/sync"
)

var (
	syncSymbol    string
	syncAll       bool
	syncTimeframe string
	syncMode      string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local candle state against the vendor",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSymbol, "symbol", "", "symbol to sync (required unless --all)")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every active instrument")
	syncCmd.Flags().StringVar(&syncTimeframe, "timeframe", "1d", "timeframe to sync (1m,5m,15m,30m,1h,75m,1d,1w)")
	syncCmd.Flags().StringVar(&syncMode, "mode", "incremental", "sync mode (full, incremental, force)")
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncSymbol == "" && !syncAll {
		return fmt.Errorf("one of --symbol or --all is required")
	}

	a, err := initializeApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	tf, err := models.ParseTimeframe(syncTimeframe)
	if err != nil {
		return err
	}

	var tasks []syncscheduler.Task
	if syncAll {
		instruments, err := a.instruments.ListActive(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list active instruments: %w", err)
		}
		for _, inst := range instruments {
			tasks = append(tasks, syncscheduler.Task{Symbol: inst.Symbol, Timeframe: tf})
		}
	} else {
		tasks = []syncscheduler.Task{{Symbol: syncSymbol, Timeframe: tf}}
	}

	results := a.scheduler.Run(context.Background(), tasks, syncscheduler.Mode(syncMode), time.Now())
	for r := range results {
		if r.Status == syncscheduler.StatusError {
			fmt.Printf("%-12s ERROR    %v\n", r.Symbol, r.Err)
			continue
		}
		fmt.Printf("%-12s %-9s inserted=%d duration=%s\n", r.Symbol, r.Status, r.RowsInserted, r.Duration)
	}
	return nil
}
