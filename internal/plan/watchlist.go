package plan

import (
	"encoding/json"
	"strconv"

	"github.com/wonny/sieve/internal/contracts"
)

// BuildForWatchlist adapts a persisted indicator JSON blob into the same
// Input record used by the primary path and delegates to Build. This is a
// pure parsing boundary: all business rules live in the validation chain.
func (b *Builder) BuildForWatchlist(ticker string, indicatorJSON []byte) contracts.Outcome[contracts.TradePlan] {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(indicatorJSON, &raw); err != nil {
		d := contracts.NewDetails()
		d.Set("parse_error", err.Error())
		return contracts.Failure[contracts.TradePlan](
			contracts.CausePlanInvalid, ownerPlanBuilder, "watchlist indicator blob is not valid JSON", d)
	}

	in := Input{
		Ticker:          ticker,
		LastClose:       firstFinitePositive(numberAt(raw, "last_close"), numberAt(raw, "lastClose")),
		SMA20:           firstFinitePositive(numberAt(raw, "sma_20"), numberAt(raw, "sma20")),
		LowLookback:     firstFinitePositive(numberAt(raw, "low_lookback"), numberAt(raw, "lowLookback")),
		HighLookback:    firstFinitePositive(numberAt(raw, "high_lookback"), numberAt(raw, "highLookback")),
		ATR14:           firstFinitePositive(numberAt(raw, "atr_14"), numberAt(raw, "atr14")),
		Volatility20Pct: firstFinitePositive(numberAt(raw, "volatility_20_pct"), numberAt(raw, "volatility20Pct")),
		VolumeRatio20:   firstFinitePositive(numberAt(raw, "volume_ratio_20"), numberAt(raw, "volumeRatio20")),
	}

	return b.Build(in)
}

// numberAt extracts a numeric field that may be encoded as a JSON number
// or a numeric string. Returns 0 when absent or unparsable.
func numberAt(raw map[string]json.RawMessage, key string) float64 {
	msg, ok := raw[key]
	if !ok {
		return 0
	}

	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
