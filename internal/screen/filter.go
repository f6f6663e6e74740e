package screen

import (
	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// Rule names are a fixed, stable vocabulary: report text and tests key off
// them literally.
const (
	// Hard rules: any failure excludes the ticker regardless of signals.
	RuleHistoryTooShort      = "history_too_short"
	RulePriceOutOfRange      = "price_out_of_range"
	RuleAvgVolumeTooLow      = "avg_volume_too_low"
	RuleDrawdownTooDeep      = "drawdown_too_deep"
	RuleTooFarAboveSMA60     = "too_far_above_sma60"
	RuleShortTermDropTooFast = "short_term_drop_too_fast"

	// Signals: the satisfied count gates inclusion.
	SignalPullbackDetected      = "pullback_detected"
	SignalRSIReboundZone        = "rsi_rebound_zone"
	SignalPriceNearOrBelowSMA20 = "price_near_or_below_sma20"
	SignalNearLowerBollinger    = "near_lower_bollinger"
	SignalShortTermRebound      = "short_term_rebound"
	SignalVolumeSupport         = "volume_support"
)

// CandidateFilter applies the two-stage filter: six independently evaluated
// hard rules, then a signal-count gate over six soft signals. The filter is
// threshold-agnostic logic over named rules; every threshold is injected.
type CandidateFilter struct {
	config Config
	logger *logger.Logger
}

// Config holds the filter thresholds.
type Config struct {
	MinHistoryDays int     // hard: minimum bar count
	MinPrice       float64 // hard: tradable price floor
	MaxPrice       float64 // hard: tradable price ceiling
	MinAvgVolume   float64 // hard: minimum 20-day average volume
	MaxDrawdownPct float64 // hard: maximum 120-day drawdown
	MaxAboveSMA60  float64 // hard: max percent above SMA60
	MaxDrop3DPct   float64 // hard: max 3-day drop (positive number)

	PullbackMinPct    float64 // signal: min decline from lookback high
	RSIReboundLow     float64 // signal: RSI rebound zone lower bound
	RSIReboundHigh    float64 // signal: RSI rebound zone upper bound
	NearSMA20Pct      float64 // signal: max percent above SMA20
	NearBollingerPct  float64 // signal: max percent above the lower band
	Rebound3DMinPct   float64 // signal: min 3-day return
	VolumeSupportRate float64 // signal: min volume ratio

	MinSignals int // pass gate: minimum satisfied signals
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MinHistoryDays: 120,
		MinPrice:       1.0,
		MaxPrice:       1_000_000,
		MinAvgVolume:   10_000,
		MaxDrawdownPct: 40.0,
		MaxAboveSMA60:  15.0,
		MaxDrop3DPct:   12.0,

		PullbackMinPct:    5.0,
		RSIReboundLow:     20.0,
		RSIReboundHigh:    45.0,
		NearSMA20Pct:      1.0,
		NearBollingerPct:  2.0,
		Rebound3DMinPct:   1.0,
		VolumeSupportRate: 1.3,

		MinSignals: 3,
	}
}

// ConfigFrom reads the filter thresholds from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.MinHistoryDays = store.Int("FILTER_MIN_HISTORY_DAYS", cfg.MinHistoryDays)
	cfg.MinPrice = store.Float("FILTER_MIN_PRICE", cfg.MinPrice)
	cfg.MaxPrice = store.Float("FILTER_MAX_PRICE", cfg.MaxPrice)
	cfg.MinAvgVolume = store.Float("FILTER_MIN_AVG_VOLUME", cfg.MinAvgVolume)
	cfg.MaxDrawdownPct = store.Float("FILTER_MAX_DRAWDOWN_PCT", cfg.MaxDrawdownPct)
	cfg.MaxAboveSMA60 = store.Float("FILTER_MAX_ABOVE_SMA60_PCT", cfg.MaxAboveSMA60)
	cfg.MaxDrop3DPct = store.Float("FILTER_MAX_DROP_3D_PCT", cfg.MaxDrop3DPct)
	cfg.PullbackMinPct = store.Float("FILTER_PULLBACK_MIN_PCT", cfg.PullbackMinPct)
	cfg.RSIReboundLow = store.Float("FILTER_RSI_REBOUND_LOW", cfg.RSIReboundLow)
	cfg.RSIReboundHigh = store.Float("FILTER_RSI_REBOUND_HIGH", cfg.RSIReboundHigh)
	cfg.NearSMA20Pct = store.Float("FILTER_NEAR_SMA20_PCT", cfg.NearSMA20Pct)
	cfg.NearBollingerPct = store.Float("FILTER_NEAR_BOLLINGER_PCT", cfg.NearBollingerPct)
	cfg.Rebound3DMinPct = store.Float("FILTER_REBOUND_3D_MIN_PCT", cfg.Rebound3DMinPct)
	cfg.VolumeSupportRate = store.Float("FILTER_VOLUME_SUPPORT_RATE", cfg.VolumeSupportRate)
	cfg.MinSignals = store.Int("FILTER_MIN_SIGNALS", cfg.MinSignals)
	return cfg
}

// NewCandidateFilter creates a new filter.
func NewCandidateFilter(cfg Config, log *logger.Logger) *CandidateFilter {
	return &CandidateFilter{config: cfg, logger: log}
}

// Evaluate applies all hard rules and counts all signals. Every failing
// hard rule is recorded (multiple can fail at once); the ticker passes only
// if no hard rule fails AND the signal count meets the configured minimum.
func (f *CandidateFilter) Evaluate(bars []contracts.Bar, snap *contracts.IndicatorSnapshot) contracts.FilterDecision {
	decision := contracts.FilterDecision{
		Reasons: make([]string, 0, 4),
		Metrics: make(map[string]float64),
	}
	if snap == nil {
		decision.Reasons = append(decision.Reasons, RuleHistoryTooShort)
		return decision
	}

	decision.Metrics["bar_count"] = float64(snap.BarCount)
	decision.Metrics["last_close"] = snap.LastClose
	decision.Metrics["avg_volume_20"] = snap.AvgVolume20
	decision.Metrics["drawdown_120_pct"] = snap.Drawdown120Pct
	decision.Metrics["pct_from_sma_60"] = snap.PctFromSMA60
	decision.Metrics["return_3d_pct"] = snap.Return3DPct
	decision.Metrics["rsi_14"] = snap.RSI14
	decision.Metrics["volume_ratio_20"] = snap.VolumeRatio20

	hardFailed := f.evaluateHardRules(snap, &decision)
	signals := f.evaluateSignals(snap, &decision)

	decision.SignalCount = signals
	decision.Metrics["signal_count"] = float64(signals)
	decision.Passed = !hardFailed && signals >= f.config.MinSignals

	return decision
}

// evaluateHardRules records every failing hard rule and reports whether any
// failed. Rules are independent; evaluation never short-circuits.
func (f *CandidateFilter) evaluateHardRules(snap *contracts.IndicatorSnapshot, d *contracts.FilterDecision) bool {
	failed := false

	if snap.BarCount < f.config.MinHistoryDays {
		d.Reasons = append(d.Reasons, RuleHistoryTooShort)
		failed = true
	}
	if snap.LastClose < f.config.MinPrice || snap.LastClose > f.config.MaxPrice {
		d.Reasons = append(d.Reasons, RulePriceOutOfRange)
		failed = true
	}
	if snap.AvgVolume20 < f.config.MinAvgVolume {
		d.Reasons = append(d.Reasons, RuleAvgVolumeTooLow)
		failed = true
	}
	if snap.Drawdown120Pct > f.config.MaxDrawdownPct {
		d.Reasons = append(d.Reasons, RuleDrawdownTooDeep)
		failed = true
	}
	if snap.PctFromSMA60 > f.config.MaxAboveSMA60 {
		d.Reasons = append(d.Reasons, RuleTooFarAboveSMA60)
		failed = true
	}
	if snap.Return3DPct < -f.config.MaxDrop3DPct {
		d.Reasons = append(d.Reasons, RuleShortTermDropTooFast)
		failed = true
	}

	return failed
}

// evaluateSignals counts satisfied signals, recording each satisfied name.
func (f *CandidateFilter) evaluateSignals(snap *contracts.IndicatorSnapshot, d *contracts.FilterDecision) int {
	count := 0
	fire := func(name string) {
		d.Reasons = append(d.Reasons, name)
		count++
	}

	// Pullback depth from the lookback high
	if snap.HighLookback > 0 {
		pullback := (snap.HighLookback - snap.LastClose) / snap.HighLookback * 100
		d.Metrics["pullback_pct"] = pullback
		if pullback >= f.config.PullbackMinPct {
			fire(SignalPullbackDetected)
		}
	}

	if snap.RSI14 >= f.config.RSIReboundLow && snap.RSI14 <= f.config.RSIReboundHigh {
		fire(SignalRSIReboundZone)
	}

	if snap.SMA20 > 0 && snap.PctFromSMA20 <= f.config.NearSMA20Pct {
		fire(SignalPriceNearOrBelowSMA20)
	}

	if snap.BollingerLower > 0 &&
		snap.LastClose <= snap.BollingerLower*(1+f.config.NearBollingerPct/100) {
		fire(SignalNearLowerBollinger)
	}

	if snap.Return3DPct >= f.config.Rebound3DMinPct {
		fire(SignalShortTermRebound)
	}

	if snap.VolumeRatio20 >= f.config.VolumeSupportRate {
		fire(SignalVolumeSupport)
	}

	return count
}
