package scoring

import (
	"math"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
)

// Breakdown keys. The full per-factor breakdown is preserved on every
// result; the report layer renders it verbatim.
const (
	FactorPullback       = "pullback"
	FactorRSI            = "rsi"
	FactorSMA20Distance  = "sma20_distance"
	FactorBollingerPos   = "bollinger_position"
	FactorRebound        = "rebound"
	FactorVolumeStrength = "volume_strength"

	BreakdownRiskPenalty       = "risk_penalty"
	BreakdownFinal             = "final"
	BreakdownWeightSumFallback = "weight_sum_fallback"
)

// Engine blends six sub-factor scores into a 0-100 composite, then
// subtracts the risk penalty. Each sub-score is an affine mapping of one
// raw indicator, clamped to [0,100].
type Engine struct {
	config Config
	logger *logger.Logger
}

// Config holds the factor weights and the affine mapping scales.
type Config struct {
	WeightPullback       float64
	WeightRSI            float64
	WeightSMA20Distance  float64
	WeightBollingerPos   float64
	WeightRebound        float64
	WeightVolumeStrength float64

	PullbackFullScalePct float64 // pullback % that maps to a 100 sub-score
	RSITarget            float64 // RSI value scoring 100
	RSIFullScaleDist     float64 // RSI distance from target that maps to 0
	SMA20FullScalePct    float64 // % below SMA20 that maps to 100
	ReboundFullScalePct  float64 // 3-day return that maps to 100
	VolumeFullScaleRatio float64 // volume ratio that maps to 100
}

// DefaultConfig returns equal weights and the documented mapping scales.
func DefaultConfig() Config {
	return Config{
		WeightPullback:       1.0,
		WeightRSI:            1.0,
		WeightSMA20Distance:  1.0,
		WeightBollingerPos:   1.0,
		WeightRebound:        1.0,
		WeightVolumeStrength: 1.0,

		PullbackFullScalePct: 20.0,
		RSITarget:            40.0,
		RSIFullScaleDist:     30.0,
		SMA20FullScalePct:    10.0,
		ReboundFullScalePct:  5.0,
		VolumeFullScaleRatio: 3.0,
	}
}

// ConfigFrom reads the scoring weights and scales from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.WeightPullback = store.Float("SCORE_WEIGHT_PULLBACK", cfg.WeightPullback)
	cfg.WeightRSI = store.Float("SCORE_WEIGHT_RSI", cfg.WeightRSI)
	cfg.WeightSMA20Distance = store.Float("SCORE_WEIGHT_SMA20_DISTANCE", cfg.WeightSMA20Distance)
	cfg.WeightBollingerPos = store.Float("SCORE_WEIGHT_BOLLINGER_POSITION", cfg.WeightBollingerPos)
	cfg.WeightRebound = store.Float("SCORE_WEIGHT_REBOUND", cfg.WeightRebound)
	cfg.WeightVolumeStrength = store.Float("SCORE_WEIGHT_VOLUME_STRENGTH", cfg.WeightVolumeStrength)
	cfg.PullbackFullScalePct = store.Float("SCORE_PULLBACK_FULL_SCALE_PCT", cfg.PullbackFullScalePct)
	cfg.RSITarget = store.Float("SCORE_RSI_TARGET", cfg.RSITarget)
	cfg.RSIFullScaleDist = store.Float("SCORE_RSI_FULL_SCALE_DIST", cfg.RSIFullScaleDist)
	cfg.SMA20FullScalePct = store.Float("SCORE_SMA20_FULL_SCALE_PCT", cfg.SMA20FullScalePct)
	cfg.ReboundFullScalePct = store.Float("SCORE_REBOUND_FULL_SCALE_PCT", cfg.ReboundFullScalePct)
	cfg.VolumeFullScaleRatio = store.Float("SCORE_VOLUME_FULL_SCALE_RATIO", cfg.VolumeFullScaleRatio)
	return cfg
}

// NewEngine creates a new scoring engine.
func NewEngine(cfg Config, log *logger.Logger) *Engine {
	return &Engine{config: cfg, logger: log}
}

// Score computes the weighted composite of the six sub-factors, minus the
// risk penalty, clamped to [0,100]. A near-zero weight sum falls back to
// the unweighted average and surfaces the fallback in the breakdown so a
// misconfiguration is observable instead of silent.
func (e *Engine) Score(snap *contracts.IndicatorSnapshot, risk contracts.RiskDecision) contracts.ScoreResult {
	breakdown := make(map[string]float64, 9)
	if snap == nil {
		breakdown[BreakdownRiskPenalty] = -risk.Penalty
		breakdown[BreakdownFinal] = 0
		return contracts.ScoreResult{Score: 0, Breakdown: breakdown}
	}

	factors := []struct {
		name   string
		weight float64
		score  float64
	}{
		{FactorPullback, e.config.WeightPullback, e.pullbackScore(snap)},
		{FactorRSI, e.config.WeightRSI, e.rsiScore(snap)},
		{FactorSMA20Distance, e.config.WeightSMA20Distance, e.sma20DistanceScore(snap)},
		{FactorBollingerPos, e.config.WeightBollingerPos, e.bollingerPositionScore(snap)},
		{FactorRebound, e.config.WeightRebound, e.reboundScore(snap)},
		{FactorVolumeStrength, e.config.WeightVolumeStrength, e.volumeStrengthScore(snap)},
	}

	var weighted, wSum float64
	for _, f := range factors {
		breakdown[f.name] = f.score
		weighted += f.weight * f.score
		wSum += f.weight
	}

	var composite float64
	if wSum <= 0.0001 {
		// Zero-weight configuration: score the unweighted average rather
		// than dividing by zero.
		var sum float64
		for _, f := range factors {
			sum += f.score
		}
		composite = sum / float64(len(factors))
		breakdown[BreakdownWeightSumFallback] = 1
	} else {
		composite = weighted / wSum
	}

	final := clamp(composite-risk.Penalty, 0, 100)
	breakdown[BreakdownRiskPenalty] = -risk.Penalty
	breakdown[BreakdownFinal] = final

	return contracts.ScoreResult{Score: final, Breakdown: breakdown}
}

// pullbackScore rewards depth of the decline from the lookback high.
func (e *Engine) pullbackScore(snap *contracts.IndicatorSnapshot) float64 {
	if snap.HighLookback <= 0 || e.config.PullbackFullScalePct <= 0 {
		return 0
	}
	pullback := (snap.HighLookback - snap.LastClose) / snap.HighLookback * 100
	return clamp(pullback/e.config.PullbackFullScalePct*100, 0, 100)
}

// rsiScore peaks at the target RSI and decays linearly with distance.
func (e *Engine) rsiScore(snap *contracts.IndicatorSnapshot) float64 {
	if e.config.RSIFullScaleDist <= 0 {
		return 0
	}
	dist := math.Abs(snap.RSI14 - e.config.RSITarget)
	return clamp(100-dist/e.config.RSIFullScaleDist*100, 0, 100)
}

// sma20DistanceScore rewards price sitting below its 20-day average.
func (e *Engine) sma20DistanceScore(snap *contracts.IndicatorSnapshot) float64 {
	if snap.SMA20 <= 0 || e.config.SMA20FullScalePct <= 0 {
		return 0
	}
	below := -snap.PctFromSMA20
	return clamp(below/e.config.SMA20FullScalePct*100, 0, 100)
}

// bollingerPositionScore rewards proximity to the lower band: 100 at or
// below the lower band, 0 at or above the upper band.
func (e *Engine) bollingerPositionScore(snap *contracts.IndicatorSnapshot) float64 {
	width := snap.BollingerUpper - snap.BollingerLower
	if width <= 0 {
		return 0
	}
	position := (snap.LastClose - snap.BollingerLower) / width
	return clamp((1-position)*100, 0, 100)
}

// reboundScore rewards positive short-term momentum.
func (e *Engine) reboundScore(snap *contracts.IndicatorSnapshot) float64 {
	if e.config.ReboundFullScalePct <= 0 {
		return 0
	}
	return clamp(snap.Return3DPct/e.config.ReboundFullScalePct*100, 0, 100)
}

// volumeStrengthScore rewards volume above the 20-day average.
func (e *Engine) volumeStrengthScore(snap *contracts.IndicatorSnapshot) float64 {
	scale := e.config.VolumeFullScaleRatio - 1
	if scale <= 0 {
		return 0
	}
	return clamp((snap.VolumeRatio20-1)/scale*100, 0, 100)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
