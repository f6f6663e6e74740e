package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/internal/indicator"
	"github.com/wonny/sieve/internal/plan"
	"github.com/wonny/sieve/internal/risk"
	"github.com/wonny/sieve/internal/scoring"
	"github.com/wonny/sieve/internal/screen"
	"github.com/wonny/sieve/pkg/logger"
)

var barStart = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

// fakeFetcher serves canned bars or errors per ticker.
type fakeFetcher struct {
	bars map[string][]contracts.Bar
	errs map[string]error
}

func (f *fakeFetcher) FetchDailyHistory(_ context.Context, ticker string, _ int) ([]contracts.Bar, error) {
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	return f.bars[ticker], nil
}

func flatBars(n int, price, volume float64) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{
			TradeDate: barStart.AddDate(0, 0, i),
			Open:      price, High: price, Low: price, Close: price,
			Volume: volume,
		}
	}
	return bars
}

// pullbackBars builds a series that survives the whole decision pipeline:
// a long base, a multi-week decline, then a small rebound on doubled
// volume.
func pullbackBars() []contracts.Bar {
	bars := flatBars(280, 130, 10_000)
	price := 130.0
	step := 30.0 / 16.0
	for i := 0; i < 17; i++ {
		price -= step
		bars = append(bars, contracts.Bar{
			TradeDate: barStart.AddDate(0, 0, len(bars)),
			Open:      price + step, High: (price + step) * 1.005, Low: price * 0.995, Close: price,
			Volume: 10_000,
		})
	}
	for i := 0; i < 3; i++ {
		price += 1
		bars = append(bars, contracts.Bar{
			TradeDate: barStart.AddDate(0, 0, len(bars)),
			Open:      price - 1, High: price * 1.005, Low: (price - 1) * 0.995, Close: price,
			Volume: 20_000,
		})
	}
	// double the volume across the last 5 bars
	for i := len(bars) - 5; i < len(bars); i++ {
		bars[i].Volume = 20_000
	}
	return bars
}

func runDateFor(bars []contracts.Bar) time.Time {
	return bars[len(bars)-1].TradeDate
}

func newTestPipeline(fetcher Fetcher, cfg PipelineConfig) *Pipeline {
	log := logger.NewNop()
	return NewPipeline(
		fetcher,
		indicator.NewEngine(indicator.DefaultConfig()),
		screen.NewCandidateFilter(screen.DefaultConfig(), log),
		risk.NewFilter(risk.DefaultConfig(), log),
		scoring.NewEngine(scoring.DefaultConfig(), log),
		plan.NewBuilder(plan.DefaultConfig(), log),
		cfg,
		log,
	)
}

func entry(ticker string) contracts.UniverseEntry {
	return contracts.UniverseEntry{Ticker: ticker, Code: ticker, Name: ticker + " Corp", Market: "MAIN"}
}

func TestPipelineFlatSeriesFilterRejected(t *testing.T) {
	bars := flatBars(180, 100, 50_000)
	p := newTestPipeline(&fakeFetcher{bars: map[string][]contracts.Bar{"FLAT": bars}}, DefaultPipelineConfig())

	r := p.Run(context.Background(), entry("FLAT"), runDateFor(bars))

	assert.True(t, r.FetchOK)
	assert.True(t, r.IndicatorReady)
	assert.Equal(t, 180, r.BarsCount)
	assert.Equal(t, contracts.CauseFilterRejected, r.Cause)
	assert.Nil(t, r.Candidate)
}

func TestPipelinePullbackProducesCandidateWithPlan(t *testing.T) {
	bars := pullbackBars()
	cfg := DefaultPipelineConfig()
	cfg.MinScore = 30
	p := newTestPipeline(&fakeFetcher{bars: map[string][]contracts.Bar{"PULL": bars}}, cfg)

	r := p.Run(context.Background(), entry("PULL"), runDateFor(bars))

	require.NotNil(t, r.Candidate, "cause=%s", r.Cause)
	assert.True(t, r.IndicatorReady)
	assert.True(t, r.Candidate.Filter.Passed)
	assert.True(t, r.Candidate.Risk.Passed)

	planOut := r.Candidate.Plan
	require.True(t, planOut.OK, "plan reason: %s", planOut.Reason)
	tp := planOut.Value
	assert.Less(t, tp.StopLoss, tp.EntryLow)
	assert.Less(t, tp.EntryHigh, tp.TakeProfit)
	assert.GreaterOrEqual(t, tp.RRRatio, plan.DefaultConfig().RRMin)
}

func TestPipelineFetchErrorClassification(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"TIMEOUT": context.DeadlineExceeded,
		"RATED":   &contracts.FetchError{Reason: contracts.FailureRateLimit},
		"GONE":    &contracts.FetchError{Reason: contracts.FailureHTTP404},
		"WEIRD":   errors.New("connection reset"),
	}}
	p := newTestPipeline(fetcher, DefaultPipelineConfig())
	runDate := barStart.AddDate(0, 0, 200)

	tests := []struct {
		ticker string
		want   contracts.ScanFailureReason
	}{
		{"TIMEOUT", contracts.FailureTimeout},
		{"RATED", contracts.FailureRateLimit},
		{"GONE", contracts.FailureHTTP404},
		{"WEIRD", contracts.FailureOther},
	}
	for _, tt := range tests {
		r := p.Run(context.Background(), entry(tt.ticker), runDate)
		assert.False(t, r.FetchOK)
		assert.Equal(t, tt.want, r.FailureReason, tt.ticker)
		assert.Equal(t, contracts.InsufficientNoData, r.InsufficientReason)
		assert.Equal(t, contracts.CauseNoBars, r.Cause)
	}
}

func TestPipelineEmptyBars(t *testing.T) {
	p := newTestPipeline(&fakeFetcher{bars: map[string][]contracts.Bar{"EMPTY": {}}}, DefaultPipelineConfig())

	r := p.Run(context.Background(), entry("EMPTY"), barStart)
	assert.True(t, r.FetchOK)
	assert.False(t, r.IndicatorReady)
	assert.Equal(t, contracts.InsufficientNoData, r.InsufficientReason)
	assert.Equal(t, contracts.CauseNoBars, r.Cause)
}

func TestPipelineStaleBars(t *testing.T) {
	bars := flatBars(180, 100, 50_000)
	p := newTestPipeline(&fakeFetcher{bars: map[string][]contracts.Bar{"STALE": bars}}, DefaultPipelineConfig())

	runDate := runDateFor(bars).AddDate(0, 0, 30)
	r := p.Run(context.Background(), entry("STALE"), runDate)

	assert.True(t, r.FetchOK)
	assert.False(t, r.IndicatorReady)
	assert.Equal(t, contracts.InsufficientStale, r.InsufficientReason)
	assert.Equal(t, contracts.CauseStale, r.Cause)
}

func TestPipelineShortHistory(t *testing.T) {
	bars := flatBars(30, 100, 50_000)
	p := newTestPipeline(&fakeFetcher{bars: map[string][]contracts.Bar{"SHORT": bars}}, DefaultPipelineConfig())

	r := p.Run(context.Background(), entry("SHORT"), runDateFor(bars))
	assert.True(t, r.FetchOK)
	assert.False(t, r.IndicatorReady)
	assert.Equal(t, contracts.InsufficientHistoryShort, r.InsufficientReason)
	assert.Equal(t, contracts.CauseHistoryShort, r.Cause)
}

func TestPipelineScoreBelowThreshold(t *testing.T) {
	bars := pullbackBars()
	cfg := DefaultPipelineConfig()
	cfg.MinScore = 99.5 // nothing realistic clears this
	p := newTestPipeline(&fakeFetcher{bars: map[string][]contracts.Bar{"PULL": bars}}, cfg)

	r := p.Run(context.Background(), entry("PULL"), runDateFor(bars))
	assert.Equal(t, contracts.CauseScoreBelowThreshold, r.Cause)
	assert.Nil(t, r.Candidate)
}
