package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/logger"
)

// healthySnapshot passes every hard rule and fires no signal by default.
func healthySnapshot() *contracts.IndicatorSnapshot {
	return &contracts.IndicatorSnapshot{
		BarCount:        180,
		LastClose:       100,
		SMA20:           100,
		SMA60:           100,
		AvgVolume20:     50_000,
		VolumeRatio20:   1.0,
		RSI14:           50,
		Drawdown120Pct:  0,
		PctFromSMA20:    0,
		PctFromSMA60:    0,
		Return3DPct:     0,
		BollingerLower:  95,
		BollingerMiddle: 100,
		BollingerUpper:  105,
		HighLookback:    101,
		LowLookback:     99,
	}
}

func TestHardRuleFailureVetoesSignals(t *testing.T) {
	f := NewCandidateFilter(DefaultConfig(), logger.NewNop())

	snap := healthySnapshot()
	snap.BarCount = 50 // history too short
	// Fire plenty of signals
	snap.RSI14 = 35
	snap.VolumeRatio20 = 2.0
	snap.Return3DPct = 2.0
	snap.HighLookback = 130

	d := f.Evaluate(nil, snap)
	assert.False(t, d.Passed)
	assert.Contains(t, d.Reasons, RuleHistoryTooShort)
	assert.GreaterOrEqual(t, d.SignalCount, 3, "signals still counted for diagnostics")
}

func TestMultipleHardRulesAllRecorded(t *testing.T) {
	f := NewCandidateFilter(DefaultConfig(), logger.NewNop())

	snap := healthySnapshot()
	snap.BarCount = 10
	snap.LastClose = 0.5       // out of range
	snap.AvgVolume20 = 100     // too low
	snap.Drawdown120Pct = 55   // too deep
	snap.PctFromSMA60 = 30     // too far above
	snap.Return3DPct = -20     // drop too fast

	d := f.Evaluate(nil, snap)
	assert.False(t, d.Passed)
	for _, rule := range []string{
		RuleHistoryTooShort,
		RulePriceOutOfRange,
		RuleAvgVolumeTooLow,
		RuleDrawdownTooDeep,
		RuleTooFarAboveSMA60,
		RuleShortTermDropTooFast,
	} {
		assert.Contains(t, d.Reasons, rule)
	}
}

func TestSignalCountGate(t *testing.T) {
	f := NewCandidateFilter(DefaultConfig(), logger.NewNop())

	tests := []struct {
		name    string
		mutate  func(*contracts.IndicatorSnapshot)
		signals []string
		passed  bool
	}{
		{
			name:    "no signals",
			mutate:  func(s *contracts.IndicatorSnapshot) {},
			signals: []string{SignalPriceNearOrBelowSMA20}, // pct_from_sma20 = 0 qualifies
			passed:  false,
		},
		{
			name: "one signal below gate",
			mutate: func(s *contracts.IndicatorSnapshot) {
				s.RSI14 = 35
				s.PctFromSMA20 = 5 // suppress the near-sma20 signal
			},
			signals: []string{SignalRSIReboundZone},
			passed:  false,
		},
		{
			name: "three signals pass",
			mutate: func(s *contracts.IndicatorSnapshot) {
				s.RSI14 = 35
				s.VolumeRatio20 = 1.8
			},
			signals: []string{SignalRSIReboundZone, SignalPriceNearOrBelowSMA20, SignalVolumeSupport},
			passed:  true,
		},
		{
			name: "pullback and bollinger and rebound",
			mutate: func(s *contracts.IndicatorSnapshot) {
				s.HighLookback = 130 // 23% pullback
				s.LastClose = 96     // within 2% of lower band 95
				s.PctFromSMA20 = -4
				s.Return3DPct = 2.5
			},
			signals: []string{
				SignalPullbackDetected,
				SignalPriceNearOrBelowSMA20,
				SignalNearLowerBollinger,
				SignalShortTermRebound,
			},
			passed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := healthySnapshot()
			tt.mutate(snap)

			d := f.Evaluate(nil, snap)
			assert.Equal(t, tt.passed, d.Passed)
			for _, sig := range tt.signals {
				assert.Contains(t, d.Reasons, sig)
			}
		})
	}
}

func TestNilSnapshotRejected(t *testing.T) {
	f := NewCandidateFilter(DefaultConfig(), logger.NewNop())

	d := f.Evaluate(nil, nil)
	assert.False(t, d.Passed)
	assert.Equal(t, []string{RuleHistoryTooShort}, d.Reasons)
}

func TestFlatSeriesFailsSignalGateOnly(t *testing.T) {
	// Scenario: 180 flat days. Hard rules hold, but only the near-SMA20
	// signal fires, so the ticker is excluded by the signal-count gate.
	f := NewCandidateFilter(DefaultConfig(), logger.NewNop())

	snap := healthySnapshot()
	d := f.Evaluate(nil, snap)

	assert.False(t, d.Passed)
	for _, hard := range []string{
		RuleHistoryTooShort, RulePriceOutOfRange, RuleAvgVolumeTooLow,
		RuleDrawdownTooDeep, RuleTooFarAboveSMA60, RuleShortTermDropTooFast,
	} {
		assert.NotContains(t, d.Reasons, hard)
	}
	assert.Less(t, d.SignalCount, DefaultConfig().MinSignals)
}
