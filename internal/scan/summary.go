package scan

import (
	"time"

	"github.com/wonny/sieve/internal/contracts"
)

// summaryBuilder folds per-ticker results into the run summary. It is only
// ever touched by the orchestrator's coordinating goroutine; workers hand
// results over a channel and never write the aggregate directly.
type summaryBuilder struct {
	summary contracts.ScanSummary
}

func newSummaryBuilder(runDate time.Time) *summaryBuilder {
	return &summaryBuilder{
		summary: contracts.ScanSummary{
			RunDate:        runDate,
			ByFailure:      make(map[contracts.ScanFailureReason]int),
			ByInsufficient: make(map[contracts.DataInsufficientReason]int),
			ByCause:        make(map[contracts.CauseCode]int),
		},
	}
}

// seed folds a previously persisted partial summary in. Segments counted
// there ran before the current checkpoint, so they never overlap with the
// results added afterwards.
func (b *summaryBuilder) seed(prior *contracts.ScanSummary) {
	b.summary.Total += prior.Total
	b.summary.FetchOK += prior.FetchOK
	b.summary.IndicatorReady += prior.IndicatorReady
	b.summary.Candidates += prior.Candidates
	for k, v := range prior.ByFailure {
		b.summary.ByFailure[k] += v
	}
	for k, v := range prior.ByInsufficient {
		b.summary.ByInsufficient[k] += v
	}
	for k, v := range prior.ByCause {
		b.summary.ByCause[k] += v
	}
}

func (b *summaryBuilder) add(r contracts.TickerResult) {
	b.summary.Total++
	if r.FetchOK {
		b.summary.FetchOK++
	}
	if r.IndicatorReady {
		b.summary.IndicatorReady++
	}
	if r.Candidate != nil {
		b.summary.Candidates++
	}
	if r.FailureReason != "" {
		b.summary.ByFailure[r.FailureReason]++
	}
	if r.InsufficientReason != "" {
		b.summary.ByInsufficient[r.InsufficientReason]++
	}
	if r.Cause != "" {
		b.summary.ByCause[r.Cause]++
	}
}

func (b *summaryBuilder) build() contracts.ScanSummary {
	return b.summary
}
