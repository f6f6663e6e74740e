package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/sieve/internal/scan"
	"github.com/wonny/sieve/internal/scheduler"
	"github.com/wonny/sieve/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler and block until interrupted",
	RunE:  runSchedulerStart,
}

var schedulerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered jobs and their schedules",
	RunE:  runSchedulerList,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "Run one job immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerRun,
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "status [job]",
	Short: "Show a job's recent run history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerStatus,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	job := jobs.NewDailyScanJob(
		a.newUniverseProvider(),
		a.newOrchestrator(scan.ConfigFrom(a.cfg)),
		a.cfg,
		a.log,
	)
	if err := s.AddJob(job); err != nil {
		return nil, err
	}
	return s, nil
}

func runSchedulerStart(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}

	s.Start()
	defer s.Stop()
	a.log.Info("Scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	a.log.WithField("signal", sig.String()).Info("Scheduler stopping")
	return nil
}

func runSchedulerList(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}

	for _, name := range s.Jobs() {
		fmt.Println(name)
	}
	return nil
}

func runSchedulerRun(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}

	if err := s.RunJob(args[0]); err != nil {
		return err
	}

	history, err := s.History(args[0])
	if err != nil {
		return err
	}
	results := history.LatestResults(1)
	if len(results) == 0 {
		return nil
	}
	r := results[0]
	if r.Success {
		fmt.Printf("Job %s completed in %s\n", args[0], r.Duration)
		return nil
	}
	return fmt.Errorf("job %s failed: %s", args[0], r.Error)
}

func runSchedulerStatus(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}

	history, err := s.History(args[0])
	if err != nil {
		return err
	}

	results := history.LatestResults(10)
	if len(results) == 0 {
		fmt.Printf("No runs recorded for %s\n", args[0])
		return nil
	}

	fmt.Printf("Job %s, success rate %.0f%%\n", args[0], history.SuccessRate()*100)
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed: " + r.Error
		}
		fmt.Printf("  %s  %-8s %s\n", r.StartTime.Format("2006-01-02 15:04:05"), r.Duration, status)
	}
	return nil
}
