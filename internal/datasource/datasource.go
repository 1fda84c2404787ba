// Package datasource fetches market data for StockPulse and maps the raw
// payloads into pkg/models records: FMP statements and calendars, Yahoo
// Finance chart history and quotes, and Yahoo Finance RSS headlines.
//
// Statement slices are returned newest first, price history oldest first.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// HistorySource returns daily close/volume history, oldest first.
type HistorySource interface {
	History(ctx context.Context, ticker string, days int) ([]models.PricePoint, error)
}

// QuoteSource returns a current quote.
type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (*models.Quote, error)
}

// FundamentalsSource returns annual statement history, newest first.
type FundamentalsSource interface {
	IncomeStatements(ctx context.Context, ticker string) ([]models.IncomeStatementYear, error)
	KeyMetrics(ctx context.Context, ticker string) ([]models.KeyMetricYear, error)
	CashFlows(ctx context.Context, ticker string) ([]models.CashFlowYear, error)
	BalanceSheets(ctx context.Context, ticker string) ([]models.BalanceSheetYear, error)
}

// CalendarSource lists earnings and dividend dates between two YYYY-MM-DD days.
type CalendarSource interface {
	EarningsCalendar(ctx context.Context, from, to string) ([]EarningsEntry, error)
	DividendCalendar(ctx context.Context, from, to string) ([]DividendEntry, error)
}

// NewsSource returns recent headlines for a ticker, newest first.
type NewsSource interface {
	StockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error)
}

// EarningsEntry is one row of an earnings calendar.
type EarningsEntry struct {
	Symbol           string `json:"symbol"`
	Date             string `json:"date"`
	FiscalDateEnding string `json:"fiscalDateEnding"`
}

// DividendEntry is one row of a dividend calendar.
type DividendEntry struct {
	Symbol   string  `json:"symbol"`
	Date     string  `json:"date"`
	Dividend float64 `json:"dividend"`
}

// --- Sentinel errors ---

var (
	// ErrTickerNotFound is returned when a ticker cannot be resolved.
	ErrTickerNotFound = errors.New("ticker not found")

	// ErrRateLimited is returned when a source rate-limits the request.
	ErrRateLimited = errors.New("rate limited by data source")

	// ErrEndpointNotAllowed is returned for FMP endpoints outside the allow-list.
	ErrEndpointNotAllowed = errors.New("endpoint not allowed")

	// ErrMissingAPIKey is returned when no usable FMP key is configured.
	ErrMissingAPIKey = errors.New("FMP_API_KEY not configured")
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match a 429.
func (e *ErrHTTP) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// NewHTTPClient returns a client with the timeout every source uses.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// doGet performs a GET request and returns the body on a 2xx/3xx status.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// getJSON fetches url and decodes the JSON body into dest.
func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
	body, _, err := doGet(ctx, client, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}
