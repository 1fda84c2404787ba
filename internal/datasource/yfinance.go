package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stockpulse/stockpulse/internal/infra"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// YahooBaseURL is the Yahoo Finance query host.
const YahooBaseURL = "https://query1.finance.yahoo.com"

// DefaultHistoryDays is the look-back the signal scan uses; enough for a
// 200-day SMA pair.
const DefaultHistoryDays = 220

// YFinance fetches daily history and quotes from Yahoo Finance.
type YFinance struct {
	baseURL string
	client  *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
	now     func() time.Time
}

// YFinanceOption configures a YFinance client.
type YFinanceOption func(*YFinance)

// WithYahooBaseURL points the client at another server.
func WithYahooBaseURL(u string) YFinanceOption { return func(y *YFinance) { y.baseURL = u } }

// WithYahooHTTPClient replaces the HTTP client.
func WithYahooHTTPClient(c *http.Client) YFinanceOption { return func(y *YFinance) { y.client = c } }

// WithYahooClock replaces the time source used for history windows.
func WithYahooClock(now func() time.Time) YFinanceOption { return func(y *YFinance) { y.now = now } }

// NewYFinance creates a Yahoo Finance client sharing the given cache.
func NewYFinance(cache *infra.Cache, opts ...YFinanceOption) *YFinance {
	if cache == nil {
		cache = infra.NewCache(time.Minute)
	}
	y := &YFinance{
		baseURL: YahooBaseURL,
		client:  NewHTTPClient(),
		cache:   cache,
		limiter: infra.NewRateLimiter(5, time.Second), // 5 req/s
		now:     time.Now,
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfQuoteResponse struct {
	QuoteResponse struct {
		Result []yfQuoteResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"quoteResponse"`
}

type yfQuoteResult struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketVolume        float64 `json:"regularMarketVolume"`
	MarketCap                  float64 `json:"marketCap"`
	SharesOutstanding          float64 `json:"sharesOutstanding"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
	Currency                   string  `json:"currency"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type yfIndicators struct {
	Quote []yfCloseVolume `json:"quote"`
}

type yfCloseVolume struct {
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// Quote returns the current quote. Missing fields default to zero and the
// currency to USD.
func (y *YFinance) Quote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.ToYahooSymbol(ticker)

	q, _, err := infra.Load(ctx, y.cache, "quote:"+symbol, func(ctx context.Context) (*models.Quote, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var resp yfQuoteResponse
		u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.baseURL, url.QueryEscape(symbol))
		if err := getJSON(ctx, y.client, u, &resp); err != nil {
			return nil, fmt.Errorf("yfinance quote %s: %w", symbol, err)
		}
		if resp.QuoteResponse.Error != nil {
			return nil, fmt.Errorf("yfinance API error: %s", resp.QuoteResponse.Error.Description)
		}
		if len(resp.QuoteResponse.Result) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
		}
		return quoteFromYF(resp.QuoteResponse.Result[0], ticker), nil
	})
	return q, err
}

// History returns daily close/volume points for the last days calendar
// days, oldest first. Bars without a close are skipped.
func (y *YFinance) History(ctx context.Context, ticker string, days int) ([]models.PricePoint, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	symbol := utils.ToYahooSymbol(ticker)
	to := y.now()
	from := to.AddDate(0, 0, -days)

	key := fmt.Sprintf("hist:%s:%d:%s", symbol, days, to.Format(utils.DateLayout))
	series, _, err := infra.Load(ctx, y.cache, key, func(ctx context.Context) ([]models.PricePoint, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
			y.baseURL, url.PathEscape(symbol), from.Unix(), to.Unix())
		var resp yfChartResponse
		if err := getJSON(ctx, y.client, u, &resp); err != nil {
			return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
		}
		if resp.Chart.Error != nil {
			return nil, fmt.Errorf("yfinance chart error: %s", resp.Chart.Error.Description)
		}
		if len(resp.Chart.Result) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
		}
		return parseYFSeries(resp.Chart.Result[0]), nil
	})
	return series, err
}

// --- Helpers ---

func quoteFromYF(r yfQuoteResult, ticker string) *models.Quote {
	q := &models.Quote{
		Ticker:            coalesce(strings.ReplaceAll(r.Symbol, "-", "."), utils.NormalizeTicker(ticker)),
		Name:              coalesce(r.LongName, r.ShortName, r.Symbol, ticker),
		Price:             r.RegularMarketPrice,
		Change:            r.RegularMarketChange,
		ChangePct:         r.RegularMarketChangePercent,
		DayHigh:           r.RegularMarketDayHigh,
		DayLow:            r.RegularMarketDayLow,
		PrevClose:         r.RegularMarketPreviousClose,
		Volume:            r.RegularMarketVolume,
		MarketCap:         r.MarketCap,
		SharesOutstanding: r.SharesOutstanding,
		WeekHigh52:        r.FiftyTwoWeekHigh,
		WeekLow52:         r.FiftyTwoWeekLow,
		Currency:          coalesce(r.Currency, "USD"),
	}
	if r.RegularMarketTime > 0 {
		q.Timestamp = time.Unix(r.RegularMarketTime, 0).UTC()
	}
	return q
}

func parseYFSeries(result yfChartResult) []models.PricePoint {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	series := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		p := models.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			p.Volume = *q.Volume[i]
		}
		series = append(series, p)
	}
	return series
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
