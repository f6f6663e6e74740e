package scan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// Repository persists per-ticker results and the run summary. Upserts are
// keyed by (ticker, run date) so re-running a completed segment after a
// resume is idempotent. GetSummary returns nil when no summary exists for
// the run date; a resumed run folds it in so the saved summary keeps
// covering the segments completed before the resume.
type Repository interface {
	UpsertTickerResult(ctx context.Context, result contracts.TickerResult) error
	SaveSummary(ctx context.Context, summary contracts.ScanSummary) error
	GetSummary(ctx context.Context, runDate string) (*contracts.ScanSummary, error)
}

// Checkpoints records the last fully processed segment index for a run
// key. Get returns -1 when no checkpoint exists.
type Checkpoints interface {
	Get(ctx context.Context, key string) (int, error)
	Set(ctx context.Context, key string, segment int) error
	Clear(ctx context.Context, key string) error
}

// Orchestrator drives the scan: the deduplicated universe is segmented,
// each segment runs under a bounded worker pool, and segments complete
// sequentially so the checkpoint can advance between them. All results of
// a segment are folded into the summary before its checkpoint is written,
// so a resumed run never double-counts or skips a ticker.
type Orchestrator struct {
	pipeline    *Pipeline
	repo        Repository
	checkpoints Checkpoints
	config      Config
	logger      *logger.Logger
}

// Config holds the orchestration knobs.
type Config struct {
	Workers         int    // concurrent workers per segment
	SegmentSize     int    // tickers per segment
	SegmentByMarket bool   // group segments by market before slicing
	MaxSegments     int    // cap per invocation, 0 = unlimited
	CheckpointKey   string // persisted checkpoint key for this run kind
	Resume          bool   // continue from the persisted checkpoint
}

// DefaultConfig returns the default orchestration knobs.
func DefaultConfig() Config {
	return Config{
		Workers:         8,
		SegmentSize:     200,
		SegmentByMarket: false,
		MaxSegments:     0,
		CheckpointKey:   "daily",
		Resume:          true,
	}
}

// ConfigFrom reads the orchestration knobs from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.Workers = store.Int("SCAN_WORKERS", cfg.Workers)
	cfg.SegmentSize = store.Int("SCAN_SEGMENT_SIZE", cfg.SegmentSize)
	cfg.SegmentByMarket = store.Bool("SCAN_SEGMENT_BY_MARKET", cfg.SegmentByMarket)
	cfg.MaxSegments = store.Int("SCAN_MAX_SEGMENTS", cfg.MaxSegments)
	cfg.CheckpointKey = store.String("SCAN_CHECKPOINT_KEY", cfg.CheckpointKey)
	cfg.Resume = store.Bool("SCAN_RESUME", cfg.Resume)
	return cfg
}

// NewOrchestrator creates a scan orchestrator.
func NewOrchestrator(pipeline *Pipeline, repo Repository, checkpoints Checkpoints, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SegmentSize < 1 {
		cfg.SegmentSize = 1
	}
	return &Orchestrator{
		pipeline:    pipeline,
		repo:        repo,
		checkpoints: checkpoints,
		config:      cfg,
		logger:      log.WithField("module", "scan"),
	}
}

// Run scans the universe for runDate and returns the coverage summary for
// the run so far: segments processed in this invocation plus, on a resume,
// the counts persisted by the interrupted one. An empty universe is fatal;
// everything below that is counted, not escalated.
func (o *Orchestrator) Run(ctx context.Context, universe contracts.Universe, runDate time.Time) (*contracts.ScanSummary, error) {
	deduped := universe.Dedup()
	if deduped.Count() == 0 {
		return nil, fmt.Errorf("scan: universe is empty")
	}

	segments := o.segment(deduped.Entries)

	start := 0
	if o.config.Resume {
		last, err := o.checkpoints.Get(ctx, o.config.CheckpointKey)
		if err != nil {
			o.logger.WithError(err).Warn("Checkpoint read failed, starting from the first segment")
		} else if last >= 0 {
			start = last + 1
		}
	}
	if start >= len(segments) {
		// Stale checkpoint from a completed or differently segmented run.
		start = 0
	}

	o.logger.WithFields(map[string]interface{}{
		"run_date":      runDate.Format("2006-01-02"),
		"tickers":       deduped.Count(),
		"segments":      len(segments),
		"start_segment": start,
		"workers":       o.config.Workers,
	}).Info("Starting scan")

	builder := newSummaryBuilder(runDate)
	if start > 0 {
		// Skipped segments were counted by the invocation that wrote the
		// checkpoint; without their summary the run-date upsert would
		// shrink the run to this invocation's share.
		prior, err := o.repo.GetSummary(ctx, runDate.Format("2006-01-02"))
		if err != nil {
			o.logger.WithError(err).Warn("Prior summary read failed, summary covers this invocation only")
		} else if prior != nil {
			builder.seed(prior)
		}
	}

	processed := 0
	completedAll := false

	for i := start; i < len(segments); i++ {
		if o.config.MaxSegments > 0 && processed >= o.config.MaxSegments {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan: cancelled at segment %d: %w", i, err)
		}

		results := o.runSegment(ctx, segments[i], runDate)

		// Fold and persist every result before advancing the checkpoint.
		for _, r := range results {
			builder.add(r)
			if err := o.repo.UpsertTickerResult(ctx, r); err != nil {
				o.logger.WithError(err).WithField("ticker", r.Ticker).Error("Failed to persist ticker result")
			}
		}

		if err := o.checkpoints.Set(ctx, o.config.CheckpointKey, i); err != nil {
			o.logger.WithError(err).WithField("segment", i).Warn("Failed to advance checkpoint")
		}
		processed++
		completedAll = i == len(segments)-1
	}

	summary := builder.build()

	if completedAll {
		if err := o.checkpoints.Clear(ctx, o.config.CheckpointKey); err != nil {
			o.logger.WithError(err).Warn("Failed to clear checkpoint")
		}
	}

	if err := o.repo.SaveSummary(ctx, summary); err != nil {
		o.logger.WithError(err).Error("Failed to persist scan summary")
	}

	o.logger.WithFields(map[string]interface{}{
		"total":              summary.Total,
		"fetch_coverage":     fmt.Sprintf("%.1f%%", summary.FetchCoverage()*100),
		"indicator_coverage": fmt.Sprintf("%.1f%%", summary.IndicatorCoverage()*100),
		"candidates":         summary.Candidates,
		"completed_all":      completedAll,
	}).Info("Scan finished")

	return &summary, nil
}

// runSegment fans the segment out to the worker pool and gathers every
// result. Results may complete in any order; the caller folds them before
// the checkpoint moves.
func (o *Orchestrator) runSegment(ctx context.Context, entries []contracts.UniverseEntry, runDate time.Time) []contracts.TickerResult {
	entryCh := make(chan contracts.UniverseEntry, len(entries))
	resultCh := make(chan contracts.TickerResult, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range entryCh {
				resultCh <- o.pipeline.Run(ctx, entry, runDate)
			}
		}()
	}

	for _, entry := range entries {
		entryCh <- entry
	}
	close(entryCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]contracts.TickerResult, 0, len(entries))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

// segment slices the universe into fixed-size segments, optionally grouping
// by market first so one market's segments complete before the next begins.
func (o *Orchestrator) segment(entries []contracts.UniverseEntry) [][]contracts.UniverseEntry {
	if !o.config.SegmentByMarket {
		return chunk(entries, o.config.SegmentSize)
	}

	byMarket := make(map[string][]contracts.UniverseEntry)
	markets := make([]string, 0, 4)
	for _, e := range entries {
		if _, seen := byMarket[e.Market]; !seen {
			markets = append(markets, e.Market)
		}
		byMarket[e.Market] = append(byMarket[e.Market], e)
	}
	sort.Strings(markets)

	var segments [][]contracts.UniverseEntry
	for _, m := range markets {
		segments = append(segments, chunk(byMarket[m], o.config.SegmentSize)...)
	}
	return segments
}

func chunk(entries []contracts.UniverseEntry, size int) [][]contracts.UniverseEntry {
	var out [][]contracts.UniverseEntry
	for len(entries) > size {
		out = append(out, entries[:size])
		entries = entries[size:]
	}
	if len(entries) > 0 {
		out = append(out, entries)
	}
	return out
}
