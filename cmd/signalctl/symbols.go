package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List active instruments in the instrument store",
	RunE:  runSymbols,
}

func runSymbols(cmd *cobra.Command, args []string) error {
	a, err := initializeApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	instruments, err := a.instruments.ListActive(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list active instruments: %w", err)
	}

	for _, inst := range instruments {
		fmt.Printf("%-12s %-30s %s\n", inst.Symbol, inst.DisplayName, inst.Sector)
	}
	fmt.Printf("\n%d active instruments\n", len(instruments))
	return nil
}
