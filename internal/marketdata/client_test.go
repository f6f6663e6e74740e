package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/httputil"
	"github.com/wonny/sieve/pkg/logger"
)

func dailyRow(date string, close, open, high, low, volume string) string {
	return fmt.Sprintf(`<tr>
		<td><span>%s</span></td>
		<td><span>%s</span></td>
		<td><span>100</span></td>
		<td><span>%s</span></td>
		<td><span>%s</span></td>
		<td><span>%s</span></td>
		<td><span>%s</span></td>
	</tr>`, date, close, open, high, low, volume)
}

func dailyPage(rows ...string) string {
	var b []byte
	b = append(b, `<html><body><table class="type2"><tr><th>date</th></tr>`...)
	for _, r := range rows {
		b = append(b, r...)
	}
	b = append(b, `</table></body></html>`...)
	return string(b)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	httpClient := httputil.New(logger.NewNop(), 0).DisableRetry()
	return NewClientWithHTTP(cfg, httpClient, logger.NewNop()), srv
}

func TestFetchDailyHistoryParsesAndOrders(t *testing.T) {
	pages := map[string]string{
		"1": dailyPage(
			dailyRow("2026.08.28", "10,500", "10,200", "10,600", "10,100", "120,000"),
			dailyRow("2026.08.27", "10,200", "10,000", "10,300", "9,900", "80,000"),
		),
		"2": dailyPage(
			dailyRow("2026.08.26", "10,000", "9,800", "10,050", "9,750", "90,000"),
		),
		"3": dailyPage(),
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pages[r.URL.Query().Get("page")])
	}))

	bars, err := client.FetchDailyHistory(context.Background(), "005930", 30)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	// Oldest first
	assert.Equal(t, "2026-08-26", bars[0].TradeDate.Format("2006-01-02"))
	assert.Equal(t, "2026-08-28", bars[2].TradeDate.Format("2006-01-02"))

	last := bars[2]
	assert.Equal(t, "005930", last.Ticker)
	assert.Equal(t, 10_500.0, last.Close)
	assert.Equal(t, 10_200.0, last.Open)
	assert.Equal(t, 10_600.0, last.High)
	assert.Equal(t, 10_100.0, last.Low)
	assert.Equal(t, 120_000.0, last.Volume)
}

func TestFetchDailyHistoryTruncatesToRequestedDays(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dailyPage(
			dailyRow("2026.08.28", "101", "100", "102", "99", "1000"),
			dailyRow("2026.08.27", "100", "99", "101", "98", "1000"),
			dailyRow("2026.08.26", "99", "98", "100", "97", "1000"),
		))
	}))

	bars, err := client.FetchDailyHistory(context.Background(), "TEST", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2026-08-27", bars[0].TradeDate.Format("2006-01-02"))
}

func TestFetchDailyHistoryStopsOnRepeatedPage(t *testing.T) {
	// Upstream serves the last real page for every out-of-range page
	// number; the duplicate dates must not loop or multiply.
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, dailyPage(dailyRow("2026.08.28", "101", "100", "102", "99", "1000")))
	}))

	bars, err := client.FetchDailyHistory(context.Background(), "TEST", 50)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 2, calls, "stops as soon as a page adds nothing new")
}

func TestFetchDailyHistoryStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   contracts.ScanFailureReason
	}{
		{http.StatusNotFound, contracts.FailureHTTP404},
		{http.StatusForbidden, contracts.FailureOther},
	}
	for _, tt := range tests {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := client.FetchDailyHistory(context.Background(), "TEST", 10)
		require.Error(t, err)
		fe, ok := err.(*contracts.FetchError)
		require.True(t, ok)
		assert.Equal(t, tt.want, fe.Reason)
	}
}

func TestFetchDailyHistorySkipsMalformedRows(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dailyPage(
			dailyRow("not a date", "101", "100", "102", "99", "1000"),
			dailyRow("2026.08.28", "-", "100", "102", "99", "1000"), // placeholder close
			dailyRow("2026.08.27", "100", "99", "101", "98", "1000"),
		))
	}))

	bars, err := client.FetchDailyHistory(context.Background(), "TEST", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 0.0, bars[1].Close)
	assert.Equal(t, 100.0, bars[0].Close)
}
