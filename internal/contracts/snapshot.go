package contracts

// IndicatorSnapshot is the fixed-shape set of derived indicators for one
// ticker at one point in time. Every field is a finite number or the
// documented neutral default (RSI 50, everything else 0); NaN never crosses
// this boundary.
type IndicatorSnapshot struct {
	LastClose float64 `json:"last_close"`

	SMA20      float64 `json:"sma_20"`
	SMA60      float64 `json:"sma_60"`
	SMA60Prev5 float64 `json:"sma_60_prev_5"`
	SMA60Slope float64 `json:"sma_60_slope"`
	SMA120     float64 `json:"sma_120"`

	RSI14  float64 `json:"rsi_14"`
	ATR14  float64 `json:"atr_14"`
	ATRPct float64 `json:"atr_pct"`

	BollingerUpper  float64 `json:"bollinger_upper"`
	BollingerMiddle float64 `json:"bollinger_middle"`
	BollingerLower  float64 `json:"bollinger_lower"`

	Drawdown120Pct  float64 `json:"drawdown_120_pct"`
	Volatility20Pct float64 `json:"volatility_20_pct"`

	AvgVolume20   float64 `json:"avg_volume_20"`
	VolumeRatio20 float64 `json:"volume_ratio_20"`

	PctFromSMA20 float64 `json:"pct_from_sma_20"`
	PctFromSMA60 float64 `json:"pct_from_sma_60"`

	Return3DPct  float64 `json:"return_3d_pct"`
	Return5DPct  float64 `json:"return_5d_pct"`
	Return10DPct float64 `json:"return_10d_pct"`

	LowLookback  float64 `json:"low_lookback"`
	HighLookback float64 `json:"high_lookback"`

	BarCount int `json:"bar_count"`
}
