package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CauseCode is the closed vocabulary of machine-readable rejection and
// failure reasons. Every negative Outcome in the pipeline carries exactly
// one of these.
type CauseCode string

const (
	// Ticker-level pipeline causes
	CauseNoBars               CauseCode = "no_bars"
	CauseHistoryShort         CauseCode = "history_short"
	CauseStale                CauseCode = "stale"
	CauseMissingIndicators    CauseCode = "missing_indicators"
	CauseFilterRejected       CauseCode = "filter_rejected"
	CauseRiskRejected         CauseCode = "risk_rejected"
	CauseScoreBelowThreshold  CauseCode = "score_below_threshold"
	CausePlanInvalid          CauseCode = "plan_invalid"
	CauseGateMinFetchCoverage CauseCode = "gate_min_fetch_coverage"
	CauseRuntimeError         CauseCode = "runtime_error"

	// Trade plan stage causes. Missing plan inputs report CausePlanInvalid
	// with the absent fields listed under the "missing_inputs" detail key.
	CauseATRUnavailable                CauseCode = "atr_unavailable"
	CauseAbnormalVolatilityOrLiquidity CauseCode = "abnormal_volatility_or_liquidity"
	CauseEntryDeviationTooLarge        CauseCode = "entry_deviation_too_large"
	CauseInvalidStopOrRiskDistance     CauseCode = "invalid_stop_or_risk_distance"
	CausePriceStructureInvalid         CauseCode = "price_structure_invalid"
	CauseRRBelowThreshold              CauseCode = "rr_below_threshold"
)

// Details is an insertion-ordered key→value map carried by Outcomes so a
// rejection can be reproduced from the Outcome alone. It marshals to a JSON
// object preserving insertion order.
type Details struct {
	keys   []string
	values map[string]interface{}
}

// NewDetails creates an empty Details map.
func NewDetails() *Details {
	return &Details{values: make(map[string]interface{})}
}

// Set stores value under key, appending the key on first insert.
func (d *Details) Set(key string, value interface{}) *Details {
	if d.values == nil {
		d.values = make(map[string]interface{})
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return d
}

// Get returns the value for key.
func (d *Details) Get(key string) (interface{}, bool) {
	if d == nil || d.values == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d *Details) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Len returns the number of entries.
func (d *Details) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// MarshalJSON renders the map as a JSON object in insertion order.
func (d *Details) MarshalJSON() ([]byte, error) {
	if d == nil || len(d.keys) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores the map. Key order follows the JSON document.
func (d *Details) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("details: expected JSON object")
	}

	d.keys = nil
	d.values = make(map[string]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}
		d.Set(key, value)
	}
	_, err = dec.Token() // closing brace
	return err
}

// Outcome is a tagged result used wherever a computation can fail with an
// explainable cause rather than an error. A failure carries exactly one
// CauseCode, the owner rule that produced it, and a Details map of the
// concrete values that triggered it.
type Outcome[T any] struct {
	OK      bool      `json:"ok"`
	Value   T         `json:"value,omitempty"`
	Cause   CauseCode `json:"cause,omitempty"`
	Owner   string    `json:"owner,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Details *Details  `json:"details,omitempty"`
}

// Success builds a successful Outcome.
func Success[T any](value T, details *Details) Outcome[T] {
	return Outcome[T]{OK: true, Value: value, Details: details}
}

// Failure builds a failed Outcome. reason is the human-readable line that
// report tables render next to the cause code.
func Failure[T any](cause CauseCode, owner, reason string, details *Details) Outcome[T] {
	return Outcome[T]{
		OK:      false,
		Cause:   cause,
		Owner:   owner,
		Reason:  reason,
		Details: details,
	}
}
