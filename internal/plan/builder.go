package plan

import (
	"fmt"
	"math"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

const ownerPlanBuilder = "trade_plan_builder"

// Input is the strongly typed record the validation chain runs over. The
// primary path fills it from an IndicatorSnapshot; the watchlist path
// parses it from a persisted JSON blob. Both go through the same chain.
type Input struct {
	Ticker          string
	LastClose       float64
	SMA20           float64
	LowLookback     float64
	HighLookback    float64
	ATR14           float64
	Volatility20Pct float64
	VolumeRatio20   float64
}

// InputFromSnapshot adapts an indicator snapshot into the plan input.
func InputFromSnapshot(ticker string, snap *contracts.IndicatorSnapshot) Input {
	if snap == nil {
		return Input{Ticker: ticker}
	}
	return Input{
		Ticker:          ticker,
		LastClose:       snap.LastClose,
		SMA20:           snap.SMA20,
		LowLookback:     snap.LowLookback,
		HighLookback:    snap.HighLookback,
		ATR14:           snap.ATR14,
		Volatility20Pct: snap.Volatility20Pct,
		VolumeRatio20:   snap.VolumeRatio20,
	}
}

// Builder derives a trade plan from an input record, or a typed failure
// naming the first stage that rejected it. Stages run in a fixed order and
// each failure carries the concrete values that triggered it.
type Builder struct {
	config Config
	logger *logger.Logger
}

// Config holds the plan tunables. RRMin is floored by RRHardMin at
// evaluation time.
type Config struct {
	EntryBandPct         float64 // entry zone half-width around last close
	MaxVolatilityPct     float64 // volatility ceiling for planning
	MinVolumeRatio       float64 // liquidity floor for planning
	MaxEntryDeviationPct float64 // max |close-sma20|/sma20 deviation
	StopBufferPct        float64 // buffer below the lookback low
	ATRMultiplier        float64 // ATR-based stop distance multiplier
	HighLookbackMult     float64 // target multiplier on the lookback high
	RRMin                float64 // minimum reward/risk ratio
	RRHardMin            float64 // absolute floor for RRMin
}

// DefaultConfig returns the documented default tunables.
func DefaultConfig() Config {
	return Config{
		EntryBandPct:         1.0,
		MaxVolatilityPct:     120.0,
		MinVolumeRatio:       0.3,
		MaxEntryDeviationPct: 10.0,
		StopBufferPct:        2.0,
		ATRMultiplier:        1.5,
		HighLookbackMult:     1.02,
		RRMin:                1.5,
		RRHardMin:            1.2,
	}
}

// ConfigFrom reads the plan tunables from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.EntryBandPct = store.Float("PLAN_ENTRY_BAND_PCT", cfg.EntryBandPct)
	cfg.MaxVolatilityPct = store.Float("PLAN_MAX_VOLATILITY_PCT", cfg.MaxVolatilityPct)
	cfg.MinVolumeRatio = store.Float("PLAN_MIN_VOLUME_RATIO", cfg.MinVolumeRatio)
	cfg.MaxEntryDeviationPct = store.Float("PLAN_MAX_ENTRY_DEVIATION_PCT", cfg.MaxEntryDeviationPct)
	cfg.StopBufferPct = store.Float("PLAN_STOP_BUFFER_PCT", cfg.StopBufferPct)
	cfg.ATRMultiplier = store.Float("PLAN_ATR_MULTIPLIER", cfg.ATRMultiplier)
	cfg.HighLookbackMult = store.Float("PLAN_HIGH_LOOKBACK_MULT", cfg.HighLookbackMult)
	cfg.RRMin = store.Float("PLAN_RR_MIN", cfg.RRMin)
	cfg.RRHardMin = store.Float("PLAN_RR_HARD_MIN", cfg.RRHardMin)
	return cfg
}

// NewBuilder creates a new plan builder.
func NewBuilder(cfg Config, log *logger.Logger) *Builder {
	return &Builder{config: cfg, logger: log}
}

// Build runs the validation chain over the input. Every rejection returns
// immediately with a cause code and a details map sufficient to reproduce
// it; success returns a plan with prices rounded to 2 decimals plus every
// tunable that shaped it.
func (b *Builder) Build(in Input) contracts.Outcome[contracts.TradePlan] {
	// Missing or non-positive core inputs.
	missing := make([]string, 0, 4)
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"last_close", in.LastClose},
		{"sma20", in.SMA20},
		{"low_lookback", in.LowLookback},
		{"high_lookback", in.HighLookback},
	} {
		if !finitePositive(field.value) {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		d := contracts.NewDetails()
		d.Set("missing_inputs", missing)
		return contracts.Failure[contracts.TradePlan](
			contracts.CausePlanInvalid, ownerPlanBuilder, "required plan inputs missing or non-positive", d)
	}

	if !finitePositive(in.ATR14) {
		d := contracts.NewDetails()
		d.Set("atr_14", in.ATR14)
		return contracts.Failure[contracts.TradePlan](
			contracts.CauseATRUnavailable, ownerPlanBuilder, "ATR is unavailable or non-positive", d)
	}

	if in.Volatility20Pct > b.config.MaxVolatilityPct || in.VolumeRatio20 < b.config.MinVolumeRatio {
		d := contracts.NewDetails()
		d.Set("volatility_20_pct", in.Volatility20Pct)
		d.Set("max_volatility_pct", b.config.MaxVolatilityPct)
		d.Set("volume_ratio_20", in.VolumeRatio20)
		d.Set("min_volume_ratio", b.config.MinVolumeRatio)
		return contracts.Failure[contracts.TradePlan](
			contracts.CauseAbnormalVolatilityOrLiquidity, ownerPlanBuilder,
			"volatility or liquidity outside plannable range", d)
	}

	deviation := math.Abs(in.LastClose-in.SMA20) / in.SMA20 * 100
	if deviation > b.config.MaxEntryDeviationPct {
		d := contracts.NewDetails()
		d.Set("entry_deviation_pct", round2(deviation))
		d.Set("max_entry_deviation_pct", b.config.MaxEntryDeviationPct)
		return contracts.Failure[contracts.TradePlan](
			contracts.CauseEntryDeviationTooLarge, ownerPlanBuilder,
			fmt.Sprintf("price deviates %.1f%% from SMA20", deviation), d)
	}

	entryLow := in.LastClose * (1 - b.config.EntryBandPct/100)
	entryHigh := in.LastClose * (1 + b.config.EntryBandPct/100)

	// Stop loss: lookback-low based first, ATR based second.
	stop := firstFinitePositive(
		in.LowLookback*(1-b.config.StopBufferPct/100),
		in.LastClose-b.config.ATRMultiplier*in.ATR14,
	)
	riskDist := entryLow - stop
	if !finitePositive(stop) || !finitePositive(riskDist) {
		d := contracts.NewDetails()
		d.Set("stop_loss", stop)
		d.Set("entry_low", round2(entryLow))
		d.Set("risk_distance", riskDist)
		return contracts.Failure[contracts.TradePlan](
			contracts.CauseInvalidStopOrRiskDistance, ownerPlanBuilder,
			"stop loss or risk distance is not a positive finite value", d)
	}

	rrMin := math.Max(b.config.RRMin, b.config.RRHardMin)
	target := math.Max(in.SMA20, math.Max(
		in.HighLookback*b.config.HighLookbackMult,
		entryLow+rrMin*riskDist,
	))

	// The remaining checks run on the rounded prices the plan publishes,
	// so a valid plan's own numbers always satisfy them.
	entryLow = round2(entryLow)
	entryHigh = round2(entryHigh)
	stop = round2(stop)
	target = round2(target)

	if !(stop < entryLow && entryLow <= entryHigh && entryHigh < target) {
		d := contracts.NewDetails()
		d.Set("stop_loss", stop)
		d.Set("entry_low", entryLow)
		d.Set("entry_high", entryHigh)
		d.Set("take_profit", target)
		return contracts.Failure[contracts.TradePlan](
			contracts.CausePriceStructureInvalid, ownerPlanBuilder,
			"price levels violate stop < entry <= entry < target", d)
	}

	// Rounding can pull a floor-driven target a fraction below rrMin times
	// the rounded risk distance.
	rr := (target - entryLow) / (entryLow - stop)
	if rr < rrMin {
		d := contracts.NewDetails()
		d.Set("rr_ratio", rr)
		d.Set("rr_min", rrMin)
		return contracts.Failure[contracts.TradePlan](
			contracts.CauseRRBelowThreshold, ownerPlanBuilder,
			fmt.Sprintf("reward/risk %.4f below minimum %.2f", rr, rrMin), d)
	}

	plan := contracts.TradePlan{
		Valid:      true,
		EntryLow:   entryLow,
		EntryHigh:  entryHigh,
		StopLoss:   stop,
		TakeProfit: target,
		RRRatio:    round2(rr),
	}

	d := contracts.NewDetails()
	d.Set("entry_band_pct", b.config.EntryBandPct)
	d.Set("stop_buffer_pct", b.config.StopBufferPct)
	d.Set("atr_multiplier", b.config.ATRMultiplier)
	d.Set("high_lookback_mult", b.config.HighLookbackMult)
	d.Set("rr_min", rrMin)
	d.Set("max_entry_deviation_pct", b.config.MaxEntryDeviationPct)
	d.Set("max_volatility_pct", b.config.MaxVolatilityPct)
	d.Set("min_volume_ratio", b.config.MinVolumeRatio)
	return contracts.Success(plan, d)
}

// firstFinitePositive returns the smaller of the finite positive
// candidates, or the single finite positive one, or the first candidate
// unchanged when neither qualifies (the caller validates it).
func firstFinitePositive(a, b float64) float64 {
	aOK, bOK := finitePositive(a), finitePositive(b)
	switch {
	case aOK && bOK:
		return math.Min(a, b)
	case aOK:
		return a
	case bOK:
		return b
	default:
		return a
	}
}

func finitePositive(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
