package contracts

import "time"

// ScanFailureReason describes why the fetch layer failed for one ticker.
// One ticker has at most one primary reason per run.
type ScanFailureReason string

const (
	FailureTimeout    ScanFailureReason = "timeout"
	FailureHTTP404    ScanFailureReason = "http_404_no_data"
	FailureParseError ScanFailureReason = "parse_error"
	FailureRateLimit  ScanFailureReason = "rate_limit"
	FailureOther      ScanFailureReason = "other"
)

// FetchError carries the failure taxonomy across the fetch boundary so the
// scan layer can count it without inspecting transport details.
type FetchError struct {
	Reason ScanFailureReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// DataInsufficientReason describes why fetched data could not produce
// indicators for one ticker.
type DataInsufficientReason string

const (
	InsufficientNoData       DataInsufficientReason = "no_data"
	InsufficientStale        DataInsufficientReason = "stale"
	InsufficientHistoryShort DataInsufficientReason = "history_short"
)

// TickerResult is the per-ticker record emitted once per run. It is the
// persistence payload: upserts are keyed by (ticker, run date).
type TickerResult struct {
	Ticker  string    `json:"ticker"`
	Name    string    `json:"name"`
	Market  string    `json:"market"`
	RunDate time.Time `json:"run_date"`

	FetchOK        bool `json:"fetch_ok"`
	IndicatorReady bool `json:"indicator_ready"`
	BarsCount      int  `json:"bars_count"`

	FailureReason      ScanFailureReason      `json:"failure_reason,omitempty"`
	InsufficientReason DataInsufficientReason `json:"insufficient_reason,omitempty"`

	Cause     CauseCode  `json:"cause,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

// ScanSummary is the per-run aggregate coverage record, built once per run
// from the full set of per-ticker results and immutable after construction.
type ScanSummary struct {
	RunDate        time.Time                      `json:"run_date"`
	Total          int                            `json:"total"`
	FetchOK        int                            `json:"fetch_ok"`
	IndicatorReady int                            `json:"indicator_ready"`
	Candidates     int                            `json:"candidates"`
	ByFailure      map[ScanFailureReason]int      `json:"by_failure"`
	ByInsufficient map[DataInsufficientReason]int `json:"by_insufficient"`
	ByCause        map[CauseCode]int              `json:"by_cause"`
}

// FetchCoverage returns successful fetches / total, in [0,1].
func (s *ScanSummary) FetchCoverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.FetchOK) / float64(s.Total)
}

// IndicatorCoverage returns indicator-ready tickers / total, in [0,1].
func (s *ScanSummary) IndicatorCoverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.IndicatorReady) / float64(s.Total)
}
