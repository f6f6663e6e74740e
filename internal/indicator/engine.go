package indicator

import (
	"math"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
)

// Engine computes the indicator snapshot from an ordered bar series. It is
// a pure function of its input: no I/O, no shared state.
//
// Every windowed statistic degrades to its neutral default (RSI 50,
// everything else 0) when the bar count is smaller than the required
// window, so downstream stages can apply explicit insufficient-history
// gating instead of handling errors.
type Engine struct {
	config Config
}

// Config holds the indicator windows. All values are injected; see
// DefaultConfig for the documented defaults.
type Config struct {
	RSIPeriod       int     // Wilder RSI period
	ATRPeriod       int     // ATR period
	BollingerPeriod int     // Bollinger band window
	BollingerStdDev float64 // band width in standard deviations
	VolatilityDays  int     // realized volatility window
	DrawdownDays    int     // max drawdown trailing window
	LookbackDays    int     // low/high lookback extremes window
	SlopeDays       int     // SMA60 slope reference offset
}

// DefaultConfig returns the default indicator windows.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:       14,
		ATRPeriod:       14,
		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
		VolatilityDays:  20,
		DrawdownDays:    120,
		LookbackDays:    20,
		SlopeDays:       5,
	}
}

// ConfigFrom reads the indicator windows from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.RSIPeriod = store.Int("INDICATOR_RSI_PERIOD", cfg.RSIPeriod)
	cfg.ATRPeriod = store.Int("INDICATOR_ATR_PERIOD", cfg.ATRPeriod)
	cfg.BollingerPeriod = store.Int("INDICATOR_BOLLINGER_PERIOD", cfg.BollingerPeriod)
	cfg.BollingerStdDev = store.Float("INDICATOR_BOLLINGER_STDDEV", cfg.BollingerStdDev)
	cfg.VolatilityDays = store.Int("INDICATOR_VOLATILITY_DAYS", cfg.VolatilityDays)
	cfg.DrawdownDays = store.Int("INDICATOR_DRAWDOWN_DAYS", cfg.DrawdownDays)
	cfg.LookbackDays = store.Int("INDICATOR_LOOKBACK_DAYS", cfg.LookbackDays)
	cfg.SlopeDays = store.Int("INDICATOR_SLOPE_DAYS", cfg.SlopeDays)
	return cfg
}

// NewEngine creates a new indicator engine.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Compute derives the snapshot from bars ordered ascending by date.
// Returns nil only on empty input.
func (e *Engine) Compute(bars []contracts.Bar) *contracts.IndicatorSnapshot {
	if len(bars) == 0 {
		return nil
	}

	last := bars[len(bars)-1]
	snap := &contracts.IndicatorSnapshot{
		LastClose: finite(last.Close),
		BarCount:  len(bars),
	}

	snap.SMA20 = sma(bars, 20)
	snap.SMA60 = sma(bars, 60)
	snap.SMA120 = sma(bars, 120)

	// SMA60 measured e.config.SlopeDays bars back, and its percent slope.
	if len(bars) >= 60+e.config.SlopeDays {
		snap.SMA60Prev5 = sma(bars[:len(bars)-e.config.SlopeDays], 60)
		if snap.SMA60Prev5 > 0 {
			snap.SMA60Slope = finite((snap.SMA60 - snap.SMA60Prev5) / snap.SMA60Prev5 * 100)
		}
	}

	snap.RSI14 = e.rsi(bars, e.config.RSIPeriod)
	snap.ATR14 = e.atr(bars, e.config.ATRPeriod)
	if snap.LastClose > 0 {
		snap.ATRPct = finite(snap.ATR14 / snap.LastClose * 100)
	}

	snap.BollingerUpper, snap.BollingerMiddle, snap.BollingerLower =
		e.bollinger(bars, e.config.BollingerPeriod, e.config.BollingerStdDev)

	snap.Drawdown120Pct = e.maxDrawdown(bars, e.config.DrawdownDays)
	snap.Volatility20Pct = e.realizedVolatility(bars, e.config.VolatilityDays)

	snap.AvgVolume20 = avgVolume(bars, 20)
	if snap.AvgVolume20 > 0 {
		snap.VolumeRatio20 = finite(last.Volume / snap.AvgVolume20)
	}

	if snap.SMA20 > 0 {
		snap.PctFromSMA20 = finite((snap.LastClose - snap.SMA20) / snap.SMA20 * 100)
	}
	if snap.SMA60 > 0 {
		snap.PctFromSMA60 = finite((snap.LastClose - snap.SMA60) / snap.SMA60 * 100)
	}

	snap.Return3DPct = trailingReturn(bars, 3)
	snap.Return5DPct = trailingReturn(bars, 5)
	snap.Return10DPct = trailingReturn(bars, 10)

	snap.LowLookback, snap.HighLookback = lookbackExtremes(bars, e.config.LookbackDays)

	return snap
}

// sma returns the simple moving average of the last period closes, or 0
// when there are fewer bars than the period.
func sma(bars []contracts.Bar, period int) float64 {
	if len(bars) < period || period <= 0 {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return finite(sum / float64(period))
}

// rsi implements Wilder's recursive average-gain/average-loss formulation,
// seeded from the first period deltas. Neutral 50 on short history or a
// completely flat series; 100 when the average loss is exactly zero.
func (e *Engine) rsi(bars []contracts.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50 // flat series carries no signal
	}
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return clamp(finite(100-100/(1+rs)), 0, 100)
}

// atr is the simple mean of the true range over the trailing window.
func (e *Engine) atr(bars []contracts.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}

	var sum float64
	start := len(bars) - period
	for i := start; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		prevClose := bars[i-1].Close
		if hc := math.Abs(bars[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bars[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return finite(sum / float64(period))
}

// bollinger returns upper/middle/lower bands at width standard deviations
// over the window, or zeros on short history.
func (e *Engine) bollinger(bars []contracts.Bar, period int, width float64) (upper, middle, lower float64) {
	if len(bars) < period {
		return 0, 0, 0
	}

	middle = sma(bars, period)
	var variance float64
	for _, b := range bars[len(bars)-period:] {
		d := b.Close - middle
		variance += d * d
	}
	variance /= float64(period)
	sd := math.Sqrt(variance)

	return finite(middle + width*sd), middle, finite(middle - width*sd)
}

// maxDrawdown returns the deepest peak-to-trough decline (percent, positive)
// over the trailing window, or 0 on short history.
func (e *Engine) maxDrawdown(bars []contracts.Bar, window int) float64 {
	if len(bars) < window {
		return 0
	}

	peak := 0.0
	maxDD := 0.0
	for _, b := range bars[len(bars)-window:] {
		if b.Close > peak {
			peak = b.Close
		}
		if peak > 0 {
			dd := (peak - b.Close) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return finite(maxDD)
}

// realizedVolatility is the annualized sample standard deviation of daily
// log returns over the window, in percent.
func (e *Engine) realizedVolatility(bars []contracts.Bar, window int) float64 {
	if len(bars) < window+1 {
		return 0
	}

	returns := make([]float64, 0, window)
	start := len(bars) - window
	for i := start; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	if len(returns) < 2 {
		return 0
	}
	variance /= float64(len(returns) - 1) // sample variance

	return finite(math.Sqrt(variance*252) * 100)
}

func avgVolume(bars []contracts.Bar, period int) float64 {
	if len(bars) < period {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	return finite(sum / float64(period))
}

// trailingReturn is the percent change of the last close vs the close days
// bars earlier, or 0 on short history.
func trailingReturn(bars []contracts.Bar, days int) float64 {
	if len(bars) < days+1 {
		return 0
	}
	base := bars[len(bars)-1-days].Close
	if base <= 0 {
		return 0
	}
	return finite((bars[len(bars)-1].Close - base) / base * 100)
}

func lookbackExtremes(bars []contracts.Bar, window int) (low, high float64) {
	if len(bars) < window {
		return 0, 0
	}
	low = math.Inf(1)
	for _, b := range bars[len(bars)-window:] {
		if b.Low < low {
			low = b.Low
		}
		if b.High > high {
			high = b.High
		}
	}
	return finite(low), finite(high)
}

// finite maps NaN and ±Inf to 0 so they never cross the snapshot boundary.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
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
