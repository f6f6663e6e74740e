package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/internal/scan"
)

var summaryDate string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a scan run's coverage summary",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "run date YYYY-MM-DD (default latest)")
}

func runSummary(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	repo := scan.NewPostgresRepository(a.db.Pool)
	ctx := context.Background()

	var summary *contracts.ScanSummary
	if summaryDate != "" {
		if _, err := time.Parse("2006-01-02", summaryDate); err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		summary, err = repo.GetSummary(ctx, summaryDate)
	} else {
		summary, err = repo.GetLatestSummary(ctx)
	}
	if err != nil {
		return err
	}
	if summary == nil {
		fmt.Println("No scan summary found")
		return nil
	}

	fmt.Printf("Run date:        %s\n", summary.RunDate.Format("2006-01-02"))
	fmt.Printf("Tickers:         %d\n", summary.Total)
	fmt.Printf("Fetch OK:        %d (%.1f%%)\n", summary.FetchOK, summary.FetchCoverage()*100)
	fmt.Printf("Indicator ready: %d (%.1f%%)\n", summary.IndicatorReady, summary.IndicatorCoverage()*100)
	fmt.Printf("Candidates:      %d\n", summary.Candidates)

	if len(summary.ByFailure) > 0 {
		fmt.Println("Fetch failures:")
		for _, k := range sortedKeys(summary.ByFailure) {
			fmt.Printf("  %-24s %d\n", k, summary.ByFailure[contracts.ScanFailureReason(k)])
		}
	}
	if len(summary.ByInsufficient) > 0 {
		fmt.Println("Insufficient data:")
		for _, k := range sortedKeys(summary.ByInsufficient) {
			fmt.Printf("  %-24s %d\n", k, summary.ByInsufficient[contracts.DataInsufficientReason(k)])
		}
	}
	if len(summary.ByCause) > 0 {
		fmt.Println("Rejection causes:")
		for _, k := range sortedKeys(summary.ByCause) {
			fmt.Printf("  %-24s %d\n", k, summary.ByCause[contracts.CauseCode(k)])
		}
	}
	return nil
}

func sortedKeys[K ~string](m map[K]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
