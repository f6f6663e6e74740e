package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sieve",
	Short: "Daily equity screening pipeline",
	Long: `Sieve scans a stock universe every trading day, computes technical
indicators per ticker, filters and scores candidates, and derives
entry/stop/target trade plans with a machine-readable explanation for
every decision.

Usage:
  go run ./cmd/sieve [command]

Examples:
  go run ./cmd/sieve scan
  go run ./cmd/sieve scan --resume --max-segments 5
  go run ./cmd/sieve plan
  go run ./cmd/sieve summary
  go run ./cmd/sieve serve
  go run ./cmd/sieve scheduler start`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
