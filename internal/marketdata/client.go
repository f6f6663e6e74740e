package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/httputil"
	"github.com/wonny/sieve/pkg/logger"
)

const rowsPerPage = 10

var dateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// Client fetches daily OHLCV history by scraping the paginated daily-quote
// HTML table of the upstream finance site. All failures are returned as
// *contracts.FetchError so the scan layer can count them by reason.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	config     Config
}

// Config holds the market data client settings.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	RatePerSecond  float64
	RateBurst      int
	MaxPages       int
	UserAgent      string
}

// DefaultConfig returns the default client settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://finance.naver.com",
		TimeoutSeconds: 10,
		RatePerSecond:  5,
		RateBurst:      5,
		MaxPages:       40,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	}
}

// ConfigFrom reads the market data settings from the config store.
func ConfigFrom(store *config.Store) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = store.String("MARKETDATA_BASE_URL", cfg.BaseURL)
	cfg.TimeoutSeconds = store.Int("MARKETDATA_TIMEOUT_SECONDS", cfg.TimeoutSeconds)
	cfg.RatePerSecond = store.Float("MARKETDATA_RATE_PER_SECOND", cfg.RatePerSecond)
	cfg.RateBurst = store.Int("MARKETDATA_RATE_BURST", cfg.RateBurst)
	cfg.MaxPages = store.Int("MARKETDATA_MAX_PAGES", cfg.MaxPages)
	cfg.UserAgent = store.String("MARKETDATA_USER_AGENT", cfg.UserAgent)
	return cfg
}

// NewClient creates a market data client with its own rate-limited HTTP
// client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	httpClient := httputil.New(log, time.Duration(cfg.TimeoutSeconds)*time.Second).
		WithRateLimit(cfg.RatePerSecond, cfg.RateBurst).
		WithUserAgent(cfg.UserAgent)
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "marketdata"),
		config:     cfg,
	}
}

// NewClientWithHTTP creates a client over an existing HTTP client. Used by
// tests and by callers that share one rate limiter across clients.
func NewClientWithHTTP(cfg Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "marketdata"),
		config:     cfg,
	}
}

// FetchDailyHistory returns up to days daily bars for ticker, oldest
// first. It pages backwards through the daily-quote table until enough
// rows are collected or the table runs out.
func (c *Client) FetchDailyHistory(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	maxPages := (days+rowsPerPage-1)/rowsPerPage + 1
	if c.config.MaxPages > 0 && maxPages > c.config.MaxPages {
		maxPages = c.config.MaxPages
	}

	seen := make(map[string]bool)
	var bars []contracts.Bar

	for page := 1; page <= maxPages; page++ {
		pageBars, err := c.fetchPage(ctx, ticker, page)
		if err != nil {
			return nil, err
		}
		if len(pageBars) == 0 {
			break
		}

		added := 0
		for _, b := range pageBars {
			key := b.TradeDate.Format("2006-01-02")
			if seen[key] {
				continue
			}
			seen[key] = true
			bars = append(bars, b)
			added++
		}
		if added == 0 || len(bars) >= days {
			break
		}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TradeDate.Before(bars[j].TradeDate) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(bars),
	}).Debug("Fetched daily history")
	return bars, nil
}

// fetchPage fetches and parses one page of the daily-quote table.
func (c *Client) fetchPage(ctx context.Context, ticker string, page int) ([]contracts.Bar, error) {
	url := fmt.Sprintf("%s/item/sise_day.naver?code=%s&page=%d", c.config.BaseURL, ticker, page)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &contracts.FetchError{Reason: contracts.FailureHTTP404}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &contracts.FetchError{Reason: contracts.FailureRateLimit}
	case resp.StatusCode != http.StatusOK:
		return nil, &contracts.FetchError{
			Reason: contracts.FailureOther,
			Err:    fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Reason: contracts.FailureParseError, Err: err}
	}

	return parseDailyTable(doc, ticker), nil
}

// parseDailyTable extracts bars from the daily-quote table. Rows without a
// parsable date cell (headers, spacers) are skipped.
func parseDailyTable(doc *goquery.Document, ticker string) []contracts.Bar {
	var bars []contracts.Bar

	doc.Find("table.type2 tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !dateRe.MatchString(dateText) {
			return
		}
		tradeDate, err := time.Parse("2006.01.02", dateText)
		if err != nil {
			return
		}

		bars = append(bars, contracts.Bar{
			Ticker:    ticker,
			TradeDate: tradeDate,
			Close:     parseNum(cells.Eq(1).Text()),
			Open:      parseNum(cells.Eq(3).Text()),
			High:      parseNum(cells.Eq(4).Text()),
			Low:       parseNum(cells.Eq(5).Text()),
			Volume:    parseNum(cells.Eq(6).Text()),
		})
	})

	return bars
}

func parseNum(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}

// classifyTransportError wraps a transport-level failure in the fetch
// taxonomy. Context timeouts become FailureTimeout.
func classifyTransportError(err error) error {
	var fe *contracts.FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &contracts.FetchError{Reason: contracts.FailureTimeout, Err: err}
	}
	return &contracts.FetchError{Reason: contracts.FailureOther, Err: err}
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
