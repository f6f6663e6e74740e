package risk

import (
	"fmt"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// Risk flag names are a fixed vocabulary; reports key off them literally.
const (
	FlagATRTooHigh        = "atr_too_high"
	FlagVolatilityTooHigh = "volatility_too_high"
	FlagDrawdownTooDeep   = "drawdown_too_deep"
	FlagLiquidityTooWeak  = "liquidity_too_weak"
)

// Filter runs four independent risk checks over a snapshot. Each check
// contributes an additive, separately capped penalty when its soft
// threshold is exceeded. ATR and volatility only veto past a fail
// multiplier; drawdown and liquidity violations always veto.
//
// The fail-multiplier boundary is exclusive: a value exactly at
// threshold×multiplier still passes, only strictly exceeding it vetoes.
type Filter struct {
	config Config
	logger *logger.Logger
}

// Config holds the risk thresholds and penalty caps.
type Config struct {
	MaxATRPct         float64 // soft ATR% threshold
	ATRPenaltyCap     float64 // max penalty from the ATR check
	ATRFailMultiplier float64 // hard veto above MaxATRPct × this

	MaxVolatilityPct  float64 // soft realized-volatility threshold
	VolPenaltyCap     float64 // max penalty from the volatility check
	VolFailMultiplier float64 // hard veto above MaxVolatilityPct × this

	MaxDrawdownPct     float64 // drawdown beyond this always vetoes
	DrawdownPenaltyCap float64

	MinVolumeRatio      float64 // volume ratio under this always vetoes
	LiquidityPenaltyCap float64
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxATRPct:         8.0,
		ATRPenaltyCap:     15.0,
		ATRFailMultiplier: 1.5,

		MaxVolatilityPct:  80.0,
		VolPenaltyCap:     15.0,
		VolFailMultiplier: 1.4,

		MaxDrawdownPct:     50.0,
		DrawdownPenaltyCap: 20.0,

		MinVolumeRatio:      0.5,
		LiquidityPenaltyCap: 10.0,
	}
}

// ConfigFrom reads the risk thresholds from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.MaxATRPct = store.Float("RISK_MAX_ATR_PCT", cfg.MaxATRPct)
	cfg.ATRPenaltyCap = store.Float("RISK_ATR_PENALTY_CAP", cfg.ATRPenaltyCap)
	cfg.ATRFailMultiplier = store.Float("RISK_ATR_FAIL_MULTIPLIER", cfg.ATRFailMultiplier)
	cfg.MaxVolatilityPct = store.Float("RISK_MAX_VOLATILITY_PCT", cfg.MaxVolatilityPct)
	cfg.VolPenaltyCap = store.Float("RISK_VOL_PENALTY_CAP", cfg.VolPenaltyCap)
	cfg.VolFailMultiplier = store.Float("RISK_VOL_FAIL_MULTIPLIER", cfg.VolFailMultiplier)
	cfg.MaxDrawdownPct = store.Float("RISK_MAX_DRAWDOWN_PCT", cfg.MaxDrawdownPct)
	cfg.DrawdownPenaltyCap = store.Float("RISK_DRAWDOWN_PENALTY_CAP", cfg.DrawdownPenaltyCap)
	cfg.MinVolumeRatio = store.Float("RISK_MIN_VOLUME_RATIO", cfg.MinVolumeRatio)
	cfg.LiquidityPenaltyCap = store.Float("RISK_LIQUIDITY_PENALTY_CAP", cfg.LiquidityPenaltyCap)
	return cfg
}

// NewFilter creates a new risk filter.
func NewFilter(cfg Config, log *logger.Logger) *Filter {
	return &Filter{config: cfg, logger: log}
}

// Evaluate runs all four checks. Passed is true iff no hard-fail condition
// triggered; Penalty is advisory and later subtracted from the composite
// score.
func (f *Filter) Evaluate(snap *contracts.IndicatorSnapshot) contracts.RiskDecision {
	decision := contracts.RiskDecision{
		Passed:  true,
		Flags:   make([]string, 0, 2),
		Reasons: make([]string, 0, 2),
	}
	if snap == nil {
		return decision
	}

	// ATR: penalty past the soft threshold, veto past the multiplier.
	if snap.ATRPct > f.config.MaxATRPct {
		penalty := cappedPenalty(snap.ATRPct, f.config.MaxATRPct,
			f.config.MaxATRPct*(f.config.ATRFailMultiplier-1), f.config.ATRPenaltyCap)
		decision.Penalty += penalty
		decision.Flags = append(decision.Flags, FlagATRTooHigh)
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("ATR %.1f%% above limit %.1f%%", snap.ATRPct, f.config.MaxATRPct))
		if snap.ATRPct > f.config.MaxATRPct*f.config.ATRFailMultiplier {
			decision.Passed = false
		}
	}

	// Realized volatility: same shape as the ATR check.
	if snap.Volatility20Pct > f.config.MaxVolatilityPct {
		penalty := cappedPenalty(snap.Volatility20Pct, f.config.MaxVolatilityPct,
			f.config.MaxVolatilityPct*(f.config.VolFailMultiplier-1), f.config.VolPenaltyCap)
		decision.Penalty += penalty
		decision.Flags = append(decision.Flags, FlagVolatilityTooHigh)
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("volatility %.1f%% above limit %.1f%%", snap.Volatility20Pct, f.config.MaxVolatilityPct))
		if snap.Volatility20Pct > f.config.MaxVolatilityPct*f.config.VolFailMultiplier {
			decision.Passed = false
		}
	}

	// Drawdown: always a hard fail.
	if snap.Drawdown120Pct > f.config.MaxDrawdownPct {
		penalty := cappedPenalty(snap.Drawdown120Pct, f.config.MaxDrawdownPct,
			f.config.MaxDrawdownPct, f.config.DrawdownPenaltyCap)
		decision.Penalty += penalty
		decision.Flags = append(decision.Flags, FlagDrawdownTooDeep)
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("drawdown %.1f%% beyond limit %.1f%%", snap.Drawdown120Pct, f.config.MaxDrawdownPct))
		decision.Passed = false
	}

	// Liquidity: always a hard fail.
	if snap.VolumeRatio20 < f.config.MinVolumeRatio {
		penalty := cappedPenalty(f.config.MinVolumeRatio, snap.VolumeRatio20,
			f.config.MinVolumeRatio, f.config.LiquidityPenaltyCap)
		decision.Penalty += penalty
		decision.Flags = append(decision.Flags, FlagLiquidityTooWeak)
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("volume ratio %.2f under floor %.2f", snap.VolumeRatio20, f.config.MinVolumeRatio))
		decision.Passed = false
	}

	return decision
}

// cappedPenalty maps the excess of value over threshold linearly onto
// [0, maxPenalty], saturating at fullScaleExcess.
func cappedPenalty(value, threshold, fullScaleExcess, maxPenalty float64) float64 {
	if fullScaleExcess <= 0 {
		return maxPenalty
	}
	excess := value - threshold
	if excess <= 0 {
		return 0
	}
	fraction := excess / fullScaleExcess
	if fraction > 1 {
		fraction = 1
	}
	return fraction * maxPenalty
}
