package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sieve/internal/scan"
)

var (
	scanResume      bool
	scanMaxSegments int
	scanDate        string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the daily universe scan",
	Long: `Scans the active universe: fetches daily bars per ticker, computes
indicators, applies the candidate and risk filters, scores survivors and
derives trade plans. Results are upserted per (ticker, run date) and a
run-level coverage summary is stored.

The scan is segmented and checkpointed: with --resume it continues from
the last completed segment of an interrupted run, and --max-segments
caps how many segments one invocation processes.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanResume, "resume", true, "resume from the persisted checkpoint")
	scanCmd.Flags().IntVar(&scanMaxSegments, "max-segments", 0, "max segments this invocation (0 = all)")
	scanCmd.Flags().StringVar(&scanDate, "date", "", "run date YYYY-MM-DD (default today)")
}

func runScan(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	runDate := time.Now().UTC().Truncate(24 * time.Hour)
	if scanDate != "" {
		runDate, err = time.Parse("2006-01-02", scanDate)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
	}

	scanCfg := scan.ConfigFrom(a.cfg)
	scanCfg.Resume = scanResume
	if cmd.Flags().Changed("max-segments") {
		scanCfg.MaxSegments = scanMaxSegments
	}

	u, err := a.newUniverseProvider().Universe(context.Background())
	if err != nil {
		return err
	}

	summary, err := a.newOrchestrator(scanCfg).Run(context.Background(), u, runDate)
	if err != nil {
		return err
	}

	fmt.Printf("Scan %s: %d tickers, fetch %.1f%%, indicators %.1f%%, %d candidates\n",
		runDate.Format("2006-01-02"),
		summary.Total,
		summary.FetchCoverage()*100,
		summary.IndicatorCoverage()*100,
		summary.Candidates,
	)
	return nil
}
