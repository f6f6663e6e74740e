package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sieve/internal/scan"
	"github.com/wonny/sieve/internal/universe"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// DailyScanJob runs the full screening scan after the market close.
type DailyScanJob struct {
	provider     *universe.Provider
	orchestrator *scan.Orchestrator
	config       *config.Store
	logger       *logger.Logger
}

// NewDailyScanJob creates the daily scan job.
func NewDailyScanJob(provider *universe.Provider, orchestrator *scan.Orchestrator, cfg *config.Store, log *logger.Logger) *DailyScanJob {
	return &DailyScanJob{
		provider:     provider,
		orchestrator: orchestrator,
		config:       cfg,
		logger:       log,
	}
}

// Name returns the job name.
func (j *DailyScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the cron schedule, 6 PM on weekdays by default.
func (j *DailyScanJob) Schedule() string {
	return j.config.String("SCHEDULE_DAILY_SCAN", "0 0 18 * * 1-5")
}

// Run loads the universe and executes the scan for today.
func (j *DailyScanJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily scan")

	u, err := j.provider.Universe(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	runDate := time.Now().UTC().Truncate(24 * time.Hour)
	summary, err := j.orchestrator.Run(ctx, u, runDate)
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"total":              summary.Total,
		"candidates":         summary.Candidates,
		"fetch_coverage":     summary.FetchCoverage(),
		"indicator_coverage": summary.IndicatorCoverage(),
	}).Info("Scheduled daily scan finished")

	return nil
}
