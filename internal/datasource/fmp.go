package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/infra"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// FMP endpoints the client is allowed to call.
const (
	EndpointIncomeStatement = "income-statement"
	EndpointKeyMetrics      = "key-metrics"
	EndpointCashFlow        = "cash-flow-statement"
	EndpointBalanceSheet    = "balance-sheet-statement"
	EndpointRatios          = "ratios"

	calendarEarnings = "earnings-calendar"
	calendarDividend = "dividend-calendar"
)

const (
	// FMPBaseURL is the stable API root.
	FMPBaseURL = "https://financialmodelingprep.com/stable"

	// DefaultFMPCacheTTL is how long statement payloads stay cached.
	DefaultFMPCacheTTL = 5 * time.Minute

	fmpMaxAttempts      = 3
	placeholderFMPKey   = "your_fmp_api_key_here"
	statementYearsLimit = 5
)

var allowedEndpoints = map[string]bool{
	EndpointIncomeStatement: true,
	EndpointKeyMetrics:      true,
	EndpointCashFlow:        true,
	EndpointBalanceSheet:    true,
	EndpointRatios:          true,
}

// IsAllowedEndpoint reports whether ep is one of the five statement endpoints.
func IsAllowedEndpoint(ep string) bool { return allowedEndpoints[ep] }

// FMP is a Financial Modeling Prep client for annual statements and
// corporate calendars.
type FMP struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *infra.Cache
	limiter *infra.RateLimiter
	backoff func(attempt int) time.Duration
	log     zerolog.Logger
}

// FMPOption configures an FMP client.
type FMPOption func(*FMP)

// WithFMPBaseURL points the client at another server (tests, proxies).
func WithFMPBaseURL(u string) FMPOption { return func(f *FMP) { f.baseURL = u } }

// WithFMPHTTPClient replaces the HTTP client.
func WithFMPHTTPClient(c *http.Client) FMPOption { return func(f *FMP) { f.client = c } }

// WithFMPBackoff replaces the wait between 429 retries.
func WithFMPBackoff(b func(attempt int) time.Duration) FMPOption {
	return func(f *FMP) { f.backoff = b }
}

// WithFMPRateLimiter throttles outgoing requests.
func WithFMPRateLimiter(rl *infra.RateLimiter) FMPOption { return func(f *FMP) { f.limiter = rl } }

// WithFMPLogger sets the logger.
func WithFMPLogger(l zerolog.Logger) FMPOption { return func(f *FMP) { f.log = l } }

// NewFMP creates a client. A nil cache gets a private one with the default TTL.
func NewFMP(apiKey string, cache *infra.Cache, opts ...FMPOption) *FMP {
	if cache == nil {
		cache = infra.NewCache(DefaultFMPCacheTTL)
	}
	f := &FMP{
		apiKey:  apiKey,
		baseURL: FMPBaseURL,
		client:  NewHTTPClient(),
		cache:   cache,
		backoff: func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Second },
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Configured reports whether a real API key is set.
func (f *FMP) Configured() bool {
	return f.apiKey != "" && f.apiKey != placeholderFMPKey
}

// Raw returns the cached or freshly fetched JSON payload of an allowed
// statement endpoint for symbol.
func (f *FMP) Raw(ctx context.Context, endpoint, symbol string) (json.RawMessage, error) {
	if !IsAllowedEndpoint(endpoint) {
		return nil, fmt.Errorf("%w: %q", ErrEndpointNotAllowed, endpoint)
	}
	if !f.Configured() {
		return nil, ErrMissingAPIKey
	}
	symbol = utils.ToFMPSymbol(symbol)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("period", "annual")
	q.Set("limit", fmt.Sprint(statementYearsLimit))
	q.Set("apikey", f.apiKey)
	u := f.baseURL + "/" + endpoint + "?" + q.Encode()

	data, hit, err := infra.Load(ctx, f.cache, endpoint+":"+symbol, func(ctx context.Context) ([]byte, error) {
		return f.fetchWithRetry(ctx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("fmp %s %s: %w", endpoint, symbol, err)
	}
	f.log.Debug().Str("endpoint", endpoint).Str("symbol", symbol).Bool("cached", hit).Msg("fmp payload")
	return data, nil
}

// fetchWithRetry retries on 429 with a growing wait, up to three attempts.
func (f *FMP) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < fmpMaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, _, err := doGet(ctx, f.client, u, map[string]string{"Accept": "application/json"})
		if err == nil {
			defer body.Close()
			data, err := io.ReadAll(body)
			if err != nil {
				return nil, fmt.Errorf("read response: %w", err)
			}
			return data, nil
		}

		lastErr = err
		if !errors.Is(err, ErrRateLimited) || attempt == fmpMaxAttempts-1 {
			break
		}
		wait := f.backoff(attempt)
		f.log.Warn().Int("attempt", attempt+1).Dur("wait", wait).Msg("fmp rate limited, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (f *FMP) decode(ctx context.Context, endpoint, symbol string, dest any) error {
	raw, err := f.Raw(ctx, endpoint, symbol)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Error payloads come back as objects; treat them as no data.
		var obj map[string]any
		if json.Unmarshal(raw, &obj) == nil {
			return nil
		}
		return fmt.Errorf("parse fmp %s: %w", endpoint, err)
	}
	return nil
}

// --- Raw FMP payloads ---

type fmpIncome struct {
	Date                     string  `json:"date"`
	Revenue                  float64 `json:"revenue"`
	NetIncome                float64 `json:"netIncome"`
	EPS                      float64 `json:"eps"`
	EPSDiluted               float64 `json:"epsDiluted"`
	GrossProfit              float64 `json:"grossProfit"`
	OperatingIncome          float64 `json:"operatingIncome"`
	WeightedAverageShsOutDil float64 `json:"weightedAverageShsOutDil"`
}

type fmpRatios struct {
	Date                    string  `json:"date"`
	PriceToEarningsRatio    float64 `json:"priceToEarningsRatio"`
	PriceToSalesRatio       float64 `json:"priceToSalesRatio"`
	PriceToBookRatio        float64 `json:"priceToBookRatio"`
	DebtToEquityRatio       float64 `json:"debtToEquityRatio"`
	CurrentRatio            float64 `json:"currentRatio"`
	RevenuePerShare         float64 `json:"revenuePerShare"`
	NetIncomePerShare       float64 `json:"netIncomePerShare"`
	FreeCashFlowPerShare    float64 `json:"freeCashFlowPerShare"`
	DividendYield           float64 `json:"dividendYield"` // decimal
	EnterpriseValueMultiple float64 `json:"enterpriseValueMultiple"`
}

type fmpKeyMetrics struct {
	Date           string  `json:"date"`
	ReturnOnEquity float64 `json:"returnOnEquity"` // decimal
	ReturnOnAssets float64 `json:"returnOnAssets"` // decimal
}

type fmpCashFlow struct {
	Date                             string  `json:"date"`
	FreeCashFlow                     float64 `json:"freeCashFlow"`
	OperatingCashFlow                float64 `json:"operatingCashFlow"`
	CapitalExpenditure               float64 `json:"capitalExpenditure"`
	DividendsPaid                    float64 `json:"dividendsPaid"`
	NetCashUsedForInvestingActivites float64 `json:"netCashUsedForInvestingActivites"`
	DebtRepayment                    float64 `json:"debtRepayment"`
}

type fmpBalanceSheet struct {
	Date                        string  `json:"date"`
	CashAndCashEquivalents      float64 `json:"cashAndCashEquivalents"`
	CashAndShortTermInvestments float64 `json:"cashAndShortTermInvestments"`
	TotalDebt                   float64 `json:"totalDebt"`
	NetDebt                     float64 `json:"netDebt"`
	TotalAssets                 float64 `json:"totalAssets"`
	TotalLiabilities            float64 `json:"totalLiabilities"`
	TotalStockholdersEquity     float64 `json:"totalStockholdersEquity"`
}

// --- Typed statement accessors ---

// IncomeStatements returns up to five annual income statements, newest first.
func (f *FMP) IncomeStatements(ctx context.Context, ticker string) ([]models.IncomeStatementYear, error) {
	var raw []fmpIncome
	if err := f.decode(ctx, EndpointIncomeStatement, ticker, &raw); err != nil {
		return nil, err
	}
	out := make([]models.IncomeStatementYear, len(raw))
	for i, r := range raw {
		out[i] = models.IncomeStatementYear{
			Date:                     r.Date,
			Revenue:                  r.Revenue,
			NetIncome:                r.NetIncome,
			EPS:                      r.EPS,
			EPSDiluted:               r.EPSDiluted,
			GrossProfit:              r.GrossProfit,
			OperatingIncome:          r.OperatingIncome,
			DilutedSharesOutstanding: r.WeightedAverageShsOutDil,
		}
	}
	return out, nil
}

// KeyMetrics merges the ratios and key-metrics payloads into one snapshot
// per year. The ratios payload drives the rows; key-metrics is matched by
// index. ROE, ROA and dividend yield are converted to percent.
func (f *FMP) KeyMetrics(ctx context.Context, ticker string) ([]models.KeyMetricYear, error) {
	var ratios []fmpRatios
	if err := f.decode(ctx, EndpointRatios, ticker, &ratios); err != nil {
		return nil, err
	}
	var km []fmpKeyMetrics
	if err := f.decode(ctx, EndpointKeyMetrics, ticker, &km); err != nil {
		return nil, err
	}
	return mergeKeyMetrics(ratios, km), nil
}

func mergeKeyMetrics(ratios []fmpRatios, km []fmpKeyMetrics) []models.KeyMetricYear {
	out := make([]models.KeyMetricYear, len(ratios))
	for i, r := range ratios {
		var k fmpKeyMetrics
		if i < len(km) {
			k = km[i]
		}
		out[i] = models.KeyMetricYear{
			Date:                 r.Date,
			PERatio:              r.PriceToEarningsRatio,
			PriceToSalesRatio:    r.PriceToSalesRatio,
			PBRatio:              r.PriceToBookRatio,
			DebtToEquity:         r.DebtToEquityRatio,
			CurrentRatio:         r.CurrentRatio,
			ReturnOnEquity:       k.ReturnOnEquity * 100,
			ReturnOnAssets:       k.ReturnOnAssets * 100,
			RevenuePerShare:      r.RevenuePerShare,
			NetIncomePerShare:    r.NetIncomePerShare,
			FreeCashFlowPerShare: r.FreeCashFlowPerShare,
			DividendYield:        r.DividendYield * 100,
			EVToEBITDA:           r.EnterpriseValueMultiple,
		}
	}
	return out
}

// CashFlows returns up to five annual cash flow statements, newest first.
func (f *FMP) CashFlows(ctx context.Context, ticker string) ([]models.CashFlowYear, error) {
	var raw []fmpCashFlow
	if err := f.decode(ctx, EndpointCashFlow, ticker, &raw); err != nil {
		return nil, err
	}
	out := make([]models.CashFlowYear, len(raw))
	for i, r := range raw {
		out[i] = models.CashFlowYear{
			Date:                    r.Date,
			FreeCashFlow:            r.FreeCashFlow,
			OperatingCashFlow:       r.OperatingCashFlow,
			CapitalExpenditure:      r.CapitalExpenditure,
			DividendsPaid:           r.DividendsPaid,
			NetCashUsedForInvesting: r.NetCashUsedForInvestingActivites,
			DebtRepayment:           r.DebtRepayment,
		}
	}
	return out, nil
}

// BalanceSheets returns up to five annual balance sheets, newest first.
func (f *FMP) BalanceSheets(ctx context.Context, ticker string) ([]models.BalanceSheetYear, error) {
	var raw []fmpBalanceSheet
	if err := f.decode(ctx, EndpointBalanceSheet, ticker, &raw); err != nil {
		return nil, err
	}
	out := make([]models.BalanceSheetYear, len(raw))
	for i, r := range raw {
		out[i] = models.BalanceSheetYear{
			Date:                        r.Date,
			CashAndEquivalents:          r.CashAndCashEquivalents,
			CashAndShortTermInvestments: r.CashAndShortTermInvestments,
			TotalDebt:                   r.TotalDebt,
			NetDebt:                     r.NetDebt,
			TotalAssets:                 r.TotalAssets,
			TotalLiabilities:            r.TotalLiabilities,
			TotalEquity:                 r.TotalStockholdersEquity,
		}
	}
	return out, nil
}

// --- Calendars ---

// EarningsCalendar lists earnings dates in [from, to].
func (f *FMP) EarningsCalendar(ctx context.Context, from, to string) ([]EarningsEntry, error) {
	var out []EarningsEntry
	if err := f.calendar(ctx, calendarEarnings, from, to, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DividendCalendar lists dividend dates in [from, to].
func (f *FMP) DividendCalendar(ctx context.Context, from, to string) ([]DividendEntry, error) {
	var out []DividendEntry
	if err := f.calendar(ctx, calendarDividend, from, to, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// calendar is uncached: the window moves daily.
func (f *FMP) calendar(ctx context.Context, name, from, to string, dest any) error {
	if !f.Configured() {
		return ErrMissingAPIKey
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("apikey", f.apiKey)

	var raw json.RawMessage
	if err := getJSON(ctx, f.client, f.baseURL+"/"+name+"?"+q.Encode(), &raw); err != nil {
		return fmt.Errorf("fmp %s: %w", name, err)
	}
	// Anything but an array means no events.
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("parse fmp %s: %w", name, err)
	}
	return nil
}
