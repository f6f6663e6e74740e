package contracts

// FilterDecision is the result of the candidate filter for one ticker.
// Reasons holds hard-rule failures and/or satisfied signal names, in
// evaluation order. Metrics is the named numeric snapshot the decision was
// made from.
type FilterDecision struct {
	Passed      bool               `json:"passed"`
	Reasons     []string           `json:"reasons"`
	SignalCount int                `json:"signal_count"`
	Metrics     map[string]float64 `json:"metrics"`
}

// RiskDecision is the result of the risk filter for one ticker. Penalty is
// additive, capped per category, and advisory; Passed=false is a hard veto
// independent of the numeric score.
type RiskDecision struct {
	Passed  bool     `json:"passed"`
	Penalty float64  `json:"penalty"`
	Flags   []string `json:"flags"`
	Reasons []string `json:"reasons"`
}

// ScoreResult is the composite score with its full per-factor breakdown.
// The breakdown always includes the negative "risk_penalty" term and
// "final"; the report layer renders every term as-is.
type ScoreResult struct {
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// TradePlan is an executable entry/stop/target plan. Only meaningful when
// Valid=true, in which case StopLoss < EntryLow ≤ EntryHigh < TakeProfit.
type TradePlan struct {
	Valid      bool    `json:"valid"`
	EntryLow   float64 `json:"entry_low"`
	EntryHigh  float64 `json:"entry_high"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	RRRatio    float64 `json:"rr_ratio"`
}

// Candidate is a ticker that survived the full decision pipeline.
type Candidate struct {
	Ticker   string             `json:"ticker"`
	Name     string             `json:"name"`
	Market   string             `json:"market"`
	Score    ScoreResult        `json:"score"`
	Filter   FilterDecision     `json:"filter"`
	Risk     RiskDecision       `json:"risk"`
	Plan     Outcome[TradePlan] `json:"plan"`
	Snapshot IndicatorSnapshot  `json:"snapshot"`
}
