package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "equitylens",
	Short: "EquityLens - fundamental and technical stock analysis",
	Long: `EquityLens Unified CLI

Scores a stock on annual fundamentals and daily technical indicators,
blends both into one verdict and optionally requests a written narrative.

Usage:
  go run ./cmd/equitylens [command]

Examples:
  go run ./cmd/equitylens analyze AAPL
  go run ./cmd/equitylens analyze MSFT --technicals rsi,macd --no-fundamentals
  go run ./cmd/equitylens api --port 8080
  go run ./cmd/equitylens scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C or SIGTERM cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
