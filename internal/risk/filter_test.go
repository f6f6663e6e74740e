package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/logger"
)

// calmSnapshot sits comfortably inside every risk limit.
func calmSnapshot() *contracts.IndicatorSnapshot {
	return &contracts.IndicatorSnapshot{
		ATRPct:          3.0,
		Volatility20Pct: 30.0,
		Drawdown120Pct:  10.0,
		VolumeRatio20:   1.0,
	}
}

func TestCleanSnapshotPassesWithZeroPenalty(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	d := f.Evaluate(calmSnapshot())
	assert.True(t, d.Passed)
	assert.Zero(t, d.Penalty)
	assert.Empty(t, d.Flags)
}

func TestVolatilityPenaltyWithoutVeto(t *testing.T) {
	// Volatility over the 80% limit but under 80×1.4=112 keeps the ticker
	// alive and only charges a penalty.
	f := NewFilter(DefaultConfig(), logger.NewNop())

	snap := calmSnapshot()
	snap.Volatility20Pct = 85.0

	d := f.Evaluate(snap)
	assert.True(t, d.Passed)
	assert.Greater(t, d.Penalty, 0.0)
	assert.Equal(t, []string{FlagVolatilityTooHigh}, d.Flags)
}

func TestVolatilityVetoPastMultiplier(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	snap := calmSnapshot()
	snap.Volatility20Pct = 115.0 // past 80×1.4

	d := f.Evaluate(snap)
	assert.False(t, d.Passed)
	assert.Contains(t, d.Flags, FlagVolatilityTooHigh)
}

func TestVolatilityBoundaryIsExclusive(t *testing.T) {
	// Exactly threshold×multiplier still passes.
	f := NewFilter(DefaultConfig(), logger.NewNop())

	snap := calmSnapshot()
	snap.Volatility20Pct = 80.0 * 1.4

	d := f.Evaluate(snap)
	assert.True(t, d.Passed)
	assert.Contains(t, d.Flags, FlagVolatilityTooHigh)
}

func TestATRPenaltyAndVeto(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	tests := []struct {
		name   string
		atrPct float64
		passed bool
	}{
		{"under limit", 7.9, true},
		{"penalty zone", 10.0, true},
		{"at boundary", 12.0, true}, // 8×1.5, exclusive
		{"vetoed", 12.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := calmSnapshot()
			snap.ATRPct = tt.atrPct
			d := f.Evaluate(snap)
			assert.Equal(t, tt.passed, d.Passed)
		})
	}
}

func TestDrawdownAlwaysVetoes(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	snap := calmSnapshot()
	snap.Drawdown120Pct = 51.0

	d := f.Evaluate(snap)
	assert.False(t, d.Passed)
	assert.Equal(t, []string{FlagDrawdownTooDeep}, d.Flags)
	assert.Greater(t, d.Penalty, 0.0)
}

func TestLiquidityAlwaysVetoes(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	snap := calmSnapshot()
	snap.VolumeRatio20 = 0.2

	d := f.Evaluate(snap)
	assert.False(t, d.Passed)
	assert.Equal(t, []string{FlagLiquidityTooWeak}, d.Flags)
}

func TestPenaltiesAccumulateAcrossCategories(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	snap := calmSnapshot()
	snap.ATRPct = 10.0          // penalty, no veto
	snap.Volatility20Pct = 90.0 // penalty, no veto

	d := f.Evaluate(snap)
	assert.True(t, d.Passed)
	assert.Len(t, d.Flags, 2)

	single := calmSnapshot()
	single.ATRPct = 10.0
	assert.Greater(t, d.Penalty, f.Evaluate(single).Penalty)
}

func TestPenaltyCapsPerCategory(t *testing.T) {
	cfg := DefaultConfig()
	f := NewFilter(cfg, logger.NewNop())

	snap := calmSnapshot()
	snap.ATRPct = 1000 // absurd excess saturates at the cap

	d := f.Evaluate(snap)
	assert.False(t, d.Passed)
	assert.InDelta(t, cfg.ATRPenaltyCap, d.Penalty, 1e-9)
}

func TestNilSnapshotPasses(t *testing.T) {
	f := NewFilter(DefaultConfig(), logger.NewNop())

	d := f.Evaluate(nil)
	assert.True(t, d.Passed)
	assert.Zero(t, d.Penalty)
}
