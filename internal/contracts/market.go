package contracts

import "time"

// Bar is one day's OHLCV record for a ticker. Bars arrive from the market
// data collaborator ordered ascending by date with no duplicate dates.
type Bar struct {
	Ticker    string    `json:"ticker"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// UniverseEntry is one scannable ticker.
type UniverseEntry struct {
	Ticker string `json:"ticker"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
}

// Universe is the deduplicated list of tickers for one run.
type Universe struct {
	Date    time.Time       `json:"date"`
	Entries []UniverseEntry `json:"entries"`
}

// Count returns the number of entries.
func (u *Universe) Count() int {
	return len(u.Entries)
}

// Dedup returns a copy of the universe with duplicate tickers removed,
// keeping the first occurrence and preserving order.
func (u *Universe) Dedup() *Universe {
	seen := make(map[string]bool, len(u.Entries))
	out := &Universe{Date: u.Date, Entries: make([]UniverseEntry, 0, len(u.Entries))}
	for _, e := range u.Entries {
		if seen[e.Ticker] {
			continue
		}
		seen[e.Ticker] = true
		out.Entries = append(out.Entries, e)
	}
	return out
}
