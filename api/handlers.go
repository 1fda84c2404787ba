package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockpulse/stockpulse/internal/analysis/fundamental"
	"github.com/stockpulse/stockpulse/internal/analysis/sentiment"
	"github.com/stockpulse/stockpulse/internal/analysis/technical"
	"github.com/stockpulse/stockpulse/internal/scanner"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// fetchTimeout bounds handlers that call the data sources.
const fetchTimeout = 20 * time.Second

// maxProjectionYears bounds user-supplied horizons.
const maxProjectionYears = 50

// ============================================================
// Request / Response types
// ============================================================

// SignalsRequest is the body for POST /api/v1/signals.
type SignalsRequest struct {
	Ticker     string                `json:"ticker"`
	Series     []models.PricePoint   `json:"series"`
	Thresholds *technical.Thresholds `json:"thresholds,omitempty"`
}

// SignalsResponse is the result of signal detection for one ticker.
type SignalsResponse struct {
	Ticker   string                   `json:"ticker"`
	Points   int                      `json:"points"`
	Signals  []models.TechnicalSignal `json:"signals"`
	Summary  string                   `json:"summary"`
	Snapshot technical.TrendSnapshot  `json:"snapshot"`
	Levels   *technical.Levels        `json:"levels,omitempty"`
}

// ProjectionRequest is the body for POST /api/v1/projections.
type ProjectionRequest struct {
	Inputs      []models.ProjectionYearInput `json:"inputs"`
	BaseRevenue float64                      `json:"base_revenue"`
	Shares      float64                      `json:"shares"`
	Price       float64                      `json:"price"`
}

// DeriveProjectionRequest is the body for POST /api/v1/projections/derive.
type DeriveProjectionRequest struct {
	Income     []models.IncomeStatementYear `json:"income"`
	KeyMetrics []models.KeyMetricYear       `json:"key_metrics"`
}

// DeriveProjectionResponse carries the derived cases and the base figures
// they project from.
type DeriveProjectionResponse struct {
	Cases       models.ProjectionCases `json:"cases"`
	BaseRevenue float64                `json:"base_revenue"`
	Shares      float64                `json:"shares"`
}

// DCFRequest is the body for POST /api/v1/dcf. Inputs default to the
// baseline's defaults, then to the configured assumptions.
type DCFRequest struct {
	Baseline    models.DCFBaseline `json:"baseline"`
	Shares      float64            `json:"shares"`
	Price       float64            `json:"price"`
	Inputs      *models.DCFInputs  `json:"inputs,omitempty"`
	Sensitivity bool               `json:"sensitivity,omitempty"`
}

// DCFResponse is a valuation plus its verdict.
type DCFResponse struct {
	Inputs      models.DCFInputs                `json:"inputs"`
	Result      models.DCFResult                `json:"result"`
	Verdict     string                          `json:"verdict,omitempty"`
	Sensitivity [][]fundamental.SensitivityCell `json:"sensitivity,omitempty"`
}

// DeriveDCFRequest is the body for POST /api/v1/dcf/derive.
type DeriveDCFRequest struct {
	CashFlows     []models.CashFlowYear     `json:"cash_flows"`
	BalanceSheets []models.BalanceSheetYear `json:"balance_sheets"`
}

// RateRequest is the body for POST /api/v1/metrics/rate. Either Key and
// Value rate a single reading, or KeyMetrics rates a whole snapshot.
type RateRequest struct {
	Key        string                `json:"key,omitempty"`
	Value      *float64              `json:"value,omitempty"`
	KeyMetrics *models.KeyMetricYear `json:"key_metrics,omitempty"`
}

// RatedMetric is a rating with its display string.
type RatedMetric struct {
	models.MetricRating
	Display string `json:"display"`
}

// CompareRequest is the body for POST /api/v1/metrics/compare.
type CompareRequest struct {
	Peers []fundamental.PeerMetrics `json:"peers"`
}

// ResearchResponse is a research bundle with every engine run over it.
type ResearchResponse struct {
	Ticker       string                     `json:"ticker"`
	Quote        *models.Quote              `json:"quote,omitempty"`
	Fundamentals models.Fundamentals        `json:"fundamentals"`
	Warnings     []string                   `json:"warnings,omitempty"`
	FetchedAt    time.Time                  `json:"fetched_at"`
	Cases        models.ProjectionCases     `json:"cases"`
	Projections  []models.ProjectionSummary `json:"projections"`
	DCFBaseline  models.DCFBaseline         `json:"dcf_baseline"`
	DCF          models.DCFResult           `json:"dcf"`
	Verdict      string                     `json:"verdict,omitempty"`
	Ratings      []RatedMetric              `json:"ratings"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Now()
	writeData(w, map[string]any{
		"status":        "ok",
		"version":       s.deps.Version,
		"market_status": utils.MarketStatus(now),
		"time_et":       now.In(utils.ET).Format(time.RFC3339),
	})
}

func (s *Server) handleTickerSignals(w http.ResponseWriter, r *http.Request) {
	ticker, err := utils.ValidateTicker(chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "price history unavailable")
		return
	}

	days := s.cfg.Data.HistoryDays
	if q := r.URL.Query().Get("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 5000 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 5000")
			return
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	series, err := s.deps.History.History(ctx, ticker, days)
	if err != nil {
		writeSourceError(w, err)
		return
	}

	resp := s.detect(ticker, series, s.cfg.Signals)
	levels := technical.KeyLevels(series, 0, 0)
	resp.Levels = &levels
	if len(resp.Signals) > 0 {
		s.wsHub.Broadcast(WSMessage{Type: MsgSignals, Data: resp.Signals})
	}
	writeData(w, resp)
}

func (s *Server) handleDetectSignals(w http.ResponseWriter, r *http.Request) {
	var req SignalsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticker := utils.NormalizeTicker(req.Ticker)
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	th := s.cfg.Signals
	if req.Thresholds != nil {
		th = *req.Thresholds
	}
	writeData(w, s.detect(ticker, req.Series, th))
}

func (s *Server) detect(ticker string, series []models.PricePoint, th technical.Thresholds) SignalsResponse {
	signals := technical.DetectSignalsWith(ticker, series, th)
	if signals == nil {
		signals = []models.TechnicalSignal{}
	}
	s.deps.Metrics.ObserveSignals(signals)
	return SignalsResponse{
		Ticker:   ticker,
		Points:   len(series),
		Signals:  signals,
		Summary:  technical.Summarize(signals),
		Snapshot: technical.Snapshot(models.Closes(series)),
	}
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Inputs) > maxProjectionYears {
		writeError(w, http.StatusBadRequest, errTooManyYears.Error())
		return
	}
	writeData(w, fundamental.SummarizeInputs(req.Inputs, req.BaseRevenue, req.Shares, req.Price))
}

func (s *Server) handleDeriveProjections(w http.ResponseWriter, r *http.Request) {
	var req DeriveProjectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f := models.Fundamentals{Income: req.Income}
	writeData(w, DeriveProjectionResponse{
		Cases:       fundamental.DeriveProjectionCases(req.Income, req.KeyMetrics),
		BaseRevenue: f.LatestRevenue(),
		Shares:      f.LatestShares(),
	})
}

func (s *Server) handleDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := s.dcfInputs(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, valuate(req.Baseline, req.Shares, req.Price, in, req.Sensitivity))
}

var errTooManyYears = errors.New("too many projection years")

// dcfInputs picks explicit inputs, then the baseline's defaults, then the
// configured assumptions.
func (s *Server) dcfInputs(req DCFRequest) (models.DCFInputs, error) {
	in := s.cfg.DCF.Inputs(fundamental.DefaultFCFGrowthPct)
	switch {
	case req.Inputs != nil:
		in = *req.Inputs
	case req.Baseline.Defaults.ProjectionYears > 0:
		in = req.Baseline.Defaults
	}
	if in.ProjectionYears > maxProjectionYears {
		return in, errTooManyYears
	}
	if err := fundamental.ValidateDCFInputs(in); err != nil {
		return in, err
	}
	if req.Sensitivity {
		lowest := in
		lowest.DiscountRatePct += discountOffsets[0]
		if err := fundamental.ValidateDCFInputs(lowest); err != nil {
			return in, fmt.Errorf("sensitivity grid: %w", err)
		}
	}
	return in, nil
}

// Sensitivity grid offsets around the chosen inputs, in percentage points.
var (
	discountOffsets = []float64{-2, -1, 0, 1, 2}
	growthOffsets   = []float64{-1, -0.5, 0, 0.5, 1}
)

func valuate(b models.DCFBaseline, shares, price float64, in models.DCFInputs, sensitivity bool) DCFResponse {
	resp := DCFResponse{
		Inputs: in,
		Result: fundamental.ComputeDCF(b.BaseFCF, b.Cash, b.Debt, shares, price, in),
	}
	if price > 0 && shares > 0 {
		resp.Verdict = fundamental.Verdict(resp.Result.MarginOfSafetyPct)
	}
	if sensitivity {
		rates := make([]float64, len(discountOffsets))
		for i, d := range discountOffsets {
			rates[i] = in.DiscountRatePct + d
		}
		growths := make([]float64, len(growthOffsets))
		for i, g := range growthOffsets {
			growths[i] = in.PerpetualGrowthRatePct + g
		}
		resp.Sensitivity = fundamental.SensitivityGrid(b, shares, price, in, rates, growths)
	}
	return resp
}

func (s *Server) handleDeriveDCF(w http.ResponseWriter, r *http.Request) {
	var req DeriveDCFRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeData(w, s.deriveBaseline(req.CashFlows, req.BalanceSheets))
}

// deriveBaseline applies the configured discount, perpetual growth and
// horizon on top of the derived FCF growth.
func (s *Server) deriveBaseline(cf []models.CashFlowYear, bs []models.BalanceSheetYear) models.DCFBaseline {
	b := fundamental.DeriveDCFInputs(cf, bs)
	b.Defaults = s.cfg.DCF.Inputs(b.Defaults.FCFGrowthRatePct)
	return b
}

func (s *Server) handleMetricCatalog(w http.ResponseWriter, r *http.Request) {
	writeData(w, fundamental.Metrics())
}

func (s *Server) handleRateMetrics(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Key != "":
		def, ok := fundamental.MetricByKey(req.Key)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown metric "+strconv.Quote(req.Key))
			return
		}
		if req.Value == nil {
			writeError(w, http.StatusBadRequest, "value is required")
			return
		}
		writeData(w, RatedMetric{
			MetricRating: models.MetricRating{
				Key:    def.Key,
				Label:  def.Label,
				Value:  *req.Value,
				Rating: fundamental.Rate(def, *req.Value),
			},
			Display: fundamental.FormatMetricValue(def, *req.Value),
		})
	case req.KeyMetrics != nil:
		writeData(w, rateAll(*req.KeyMetrics))
	default:
		writeError(w, http.StatusBadRequest, "key and value or key_metrics is required")
	}
}

func rateAll(km models.KeyMetricYear) []RatedMetric {
	ratings := fundamental.RateKeyMetrics(km)
	out := make([]RatedMetric, 0, len(ratings))
	for _, mr := range ratings {
		def, _ := fundamental.MetricByKey(mr.Key)
		out = append(out, RatedMetric{MetricRating: mr, Display: fundamental.FormatMetricValue(def, mr.Value)})
	}
	return out
}

func (s *Server) handleCompareMetrics(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Peers) == 0 {
		writeError(w, http.StatusBadRequest, "peers is required")
		return
	}
	writeData(w, fundamental.CompareMetrics(req.Peers))
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	ticker, err := utils.ValidateTicker(chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Research == nil {
		writeError(w, http.StatusServiceUnavailable, "research unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	bundle, err := s.deps.Research.Fetch(ctx, ticker)
	if err != nil {
		writeSourceError(w, err)
		return
	}

	f := bundle.Fundamentals
	var price, shares float64
	if bundle.Quote != nil {
		price = bundle.Quote.Price
		shares = bundle.Quote.SharesOutstanding
	}
	if shares <= 0 {
		shares = f.LatestShares()
	}

	resp := ResearchResponse{
		Ticker:       bundle.Ticker,
		Quote:        bundle.Quote,
		Fundamentals: f,
		Warnings:     bundle.Warnings,
		FetchedAt:    bundle.FetchedAt,
		Cases:        fundamental.DeriveProjectionCases(f.Income, f.KeyMetrics),
		DCFBaseline:  s.deriveBaseline(f.CashFlows, f.BalanceSheets),
		Ratings:      []RatedMetric{},
	}
	for _, name := range []models.CaseName{models.CaseBase, models.CaseBull, models.CaseBear} {
		c, _ := resp.Cases.Case(name)
		resp.Projections = append(resp.Projections, fundamental.Summarize(c, f.LatestRevenue(), shares, price))
	}

	dcf := valuate(resp.DCFBaseline, shares, price, resp.DCFBaseline.Defaults, false)
	resp.DCF = dcf.Result
	resp.Verdict = dcf.Verdict

	if len(f.KeyMetrics) > 0 {
		resp.Ratings = rateAll(f.KeyMetrics[0])
	}
	writeData(w, resp)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker, err := utils.ValidateTicker(chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.News == nil {
		writeError(w, http.StatusServiceUnavailable, "news unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	articles, err := s.deps.News.StockNews(ctx, ticker, s.cfg.Data.NewsLimit)
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeData(w, sentiment.Aggregate(ticker, articles, s.deps.Now()))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quotes == nil {
		writeError(w, http.StatusServiceUnavailable, "quotes unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	writeData(w, scanner.Value(ctx, s.deps.Quotes, s.cfg.Portfolio, s.cfg.Scanner.Concurrency))
}

// AlertsResponse lists the configured price alerts and those that hold
// at current quotes.
type AlertsResponse struct {
	Alerts    []models.PriceAlert     `json:"alerts"`
	Triggered []models.TriggeredAlert `json:"triggered"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quotes == nil {
		writeError(w, http.StatusServiceUnavailable, "quotes unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	resp := AlertsResponse{Alerts: s.cfg.Alerts, Triggered: []models.TriggeredAlert{}}
	if resp.Alerts == nil {
		resp.Alerts = []models.PriceAlert{}
	}
	quotes := scanner.FetchQuotes(ctx, s.deps.Quotes, scanner.AlertTickers(resp.Alerts), s.cfg.Scanner.Concurrency)
	if triggered := scanner.EvaluateAlerts(quotes, resp.Alerts); triggered != nil {
		resp.Triggered = triggered
	}
	writeData(w, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if s.deps.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	events, err := s.deps.Calendar.UpcomingEvents(ctx, s.cfg.Tickers(), s.deps.Now())
	if err != nil {
		writeSourceError(w, err)
		return
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	writeData(w, events)
}
