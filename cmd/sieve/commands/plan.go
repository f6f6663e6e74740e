package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/sieve/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build trade plans for the watchlist",
	Long: `Loads the active watchlist rows and derives an entry/stop/target plan
from each row's persisted indicator snapshot. Rejections are printed with
their cause code and the values that triggered them.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := plan.NewWatchlistRepository(a.db.Pool).Active(context.Background())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Watchlist is empty")
		return nil
	}

	builder := plan.NewBuilder(plan.ConfigFrom(a.cfg), a.log)

	for _, row := range rows {
		out := builder.BuildForWatchlist(row.Ticker, row.Indicators)
		if out.OK {
			p := out.Value
			fmt.Printf("%-8s %-20s entry %.2f-%.2f stop %.2f target %.2f rr %.2f\n",
				row.Ticker, row.Name, p.EntryLow, p.EntryHigh, p.StopLoss, p.TakeProfit, p.RRRatio)
			continue
		}
		fmt.Printf("%-8s %-20s rejected [%s] %s\n", row.Ticker, row.Name, out.Cause, out.Reason)
	}
	return nil
}
