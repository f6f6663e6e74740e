package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/internal/indicator"
	"github.com/wonny/sieve/internal/plan"
	"github.com/wonny/sieve/internal/risk"
	"github.com/wonny/sieve/internal/scoring"
	"github.com/wonny/sieve/internal/screen"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// Fetcher supplies the daily bar history for one ticker. Implementations
// return a *contracts.FetchError so failures stay classifiable.
type Fetcher interface {
	FetchDailyHistory(ctx context.Context, ticker string, days int) ([]contracts.Bar, error)
}

// Pipeline runs the full per-ticker decision chain:
// indicators → filter → risk → score → plan. It is stateless and safe to
// call from concurrent workers; all I/O happens in the Fetcher.
type Pipeline struct {
	fetcher   Fetcher
	indicator *indicator.Engine
	filter    *screen.CandidateFilter
	risk      *risk.Filter
	scoring   *scoring.Engine
	plan      *plan.Builder
	config    PipelineConfig
	logger    *logger.Logger
}

// PipelineConfig holds the data-quality gates applied before the decision
// stages.
type PipelineConfig struct {
	FetchDays      int     // history window requested from the fetcher
	MinHistoryBars int     // fewer bars is DataInsufficient history_short
	StaleDays      int     // last bar older than this is stale
	MinScore       float64 // composite score floor for candidacy
}

// DefaultPipelineConfig returns the documented default gates.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FetchDays:      300,
		MinHistoryBars: 120,
		StaleDays:      7,
		MinScore:       50.0,
	}
}

// PipelineConfigFrom reads the pipeline gates from the config store.
func PipelineConfigFrom(store *config.Store) PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.FetchDays = store.Int("SCAN_FETCH_DAYS", cfg.FetchDays)
	cfg.MinHistoryBars = store.Int("SCAN_MIN_HISTORY_BARS", cfg.MinHistoryBars)
	cfg.StaleDays = store.Int("SCAN_STALE_DAYS", cfg.StaleDays)
	cfg.MinScore = store.Float("SCAN_MIN_SCORE", cfg.MinScore)
	return cfg
}

// NewPipeline wires the decision stages together.
func NewPipeline(
	fetcher Fetcher,
	indicatorEngine *indicator.Engine,
	candidateFilter *screen.CandidateFilter,
	riskFilter *risk.Filter,
	scoringEngine *scoring.Engine,
	planBuilder *plan.Builder,
	cfg PipelineConfig,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		indicator: indicatorEngine,
		filter:    candidateFilter,
		risk:      riskFilter,
		scoring:   scoringEngine,
		plan:      planBuilder,
		config:    cfg,
		logger:    log.WithField("module", "scan"),
	}
}

// Run evaluates one universe entry and returns its result record. A panic
// in any stage is degraded to a runtime_error record; a single ticker must
// never abort the batch.
func (p *Pipeline) Run(ctx context.Context, entry contracts.UniverseEntry, runDate time.Time) (result contracts.TickerResult) {
	result = contracts.TickerResult{
		Ticker:  entry.Ticker,
		Name:    entry.Name,
		Market:  entry.Market,
		RunDate: runDate,
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(map[string]interface{}{
				"ticker": entry.Ticker,
				"panic":  fmt.Sprint(r),
			}).Error("Pipeline panicked")
			result.FailureReason = contracts.FailureOther
			result.Cause = contracts.CauseRuntimeError
		}
	}()

	bars, err := p.fetcher.FetchDailyHistory(ctx, entry.Ticker, p.config.FetchDays)
	if err != nil {
		result.FailureReason = classifyFetchError(err)
		result.InsufficientReason = contracts.InsufficientNoData
		result.Cause = contracts.CauseNoBars
		return result
	}
	result.FetchOK = true
	result.BarsCount = len(bars)

	if len(bars) == 0 {
		result.InsufficientReason = contracts.InsufficientNoData
		result.Cause = contracts.CauseNoBars
		return result
	}

	lastDate := bars[len(bars)-1].TradeDate
	if runDate.Sub(lastDate) > time.Duration(p.config.StaleDays)*24*time.Hour {
		result.InsufficientReason = contracts.InsufficientStale
		result.Cause = contracts.CauseStale
		return result
	}

	if len(bars) < p.config.MinHistoryBars {
		result.InsufficientReason = contracts.InsufficientHistoryShort
		result.Cause = contracts.CauseHistoryShort
		return result
	}

	snap := p.indicator.Compute(bars)
	if snap == nil {
		result.InsufficientReason = contracts.InsufficientNoData
		result.Cause = contracts.CauseMissingIndicators
		return result
	}
	result.IndicatorReady = true

	filterDecision := p.filter.Evaluate(bars, snap)
	if !filterDecision.Passed {
		result.Cause = contracts.CauseFilterRejected
		return result
	}

	riskDecision := p.risk.Evaluate(snap)
	if !riskDecision.Passed {
		result.Cause = contracts.CauseRiskRejected
		return result
	}

	score := p.scoring.Score(snap, riskDecision)
	if score.Score < p.config.MinScore {
		result.Cause = contracts.CauseScoreBelowThreshold
		return result
	}

	planOutcome := p.plan.Build(plan.InputFromSnapshot(entry.Ticker, snap))

	result.Candidate = &contracts.Candidate{
		Ticker:   entry.Ticker,
		Name:     entry.Name,
		Market:   entry.Market,
		Score:    score,
		Filter:   filterDecision,
		Risk:     riskDecision,
		Plan:     planOutcome,
		Snapshot: *snap,
	}
	return result
}

// classifyFetchError maps a fetch failure onto the scan taxonomy. Typed
// fetch errors carry their own reason; context deadline means timeout;
// anything else is other.
func classifyFetchError(err error) contracts.ScanFailureReason {
	var fe *contracts.FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.FailureTimeout
	}
	return contracts.FailureOther
}
