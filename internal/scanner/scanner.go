// Package scanner runs the technical signal detector over a portfolio,
// values holdings at current quotes and drives the scheduled daily check.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/stockpulse/internal/analysis/technical"
	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/internal/metrics"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// DefaultConcurrency bounds parallel history fetches.
const DefaultConcurrency = 5

// Result is the outcome for one ticker.
type Result struct {
	Ticker  string                   `json:"ticker"`
	Points  int                      `json:"points"`
	Signals []models.TechnicalSignal `json:"signals"`
	Err     string                   `json:"error,omitempty"`
}

// Run is one scan over a ticker list.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Signals flattens the per-ticker signals in scan order.
func (r *Run) Signals() []models.TechnicalSignal {
	var out []models.TechnicalSignal
	for _, res := range r.Results {
		out = append(out, res.Signals...)
	}
	return out
}

// Failures counts tickers whose history could not be fetched.
func (r *Run) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != "" {
			n++
		}
	}
	return n
}

// Scanner fetches history per ticker and detects signals.
type Scanner struct {
	history    datasource.HistorySource
	days       int
	thresholds technical.Thresholds
	limit      int
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithHistoryDays sets the look-back passed to the history source.
func WithHistoryDays(days int) Option { return func(s *Scanner) { s.days = days } }

// WithThresholds sets the signal trigger levels.
func WithThresholds(th technical.Thresholds) Option { return func(s *Scanner) { s.thresholds = th } }

// WithConcurrency bounds parallel fetches. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithMetrics records scans and signals.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Scanner) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Scanner) { s.log = l } }

// New creates a scanner.
func New(history datasource.HistorySource, opts ...Option) *Scanner {
	s := &Scanner{
		history:    history,
		days:       datasource.DefaultHistoryDays,
		thresholds: technical.DefaultThresholds(),
		limit:      DefaultConcurrency,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan detects signals for every valid ticker. A ticker whose history
// cannot be fetched is recorded with its error and skipped; the scan
// only fails when ctx is done.
func (s *Scanner) Scan(ctx context.Context, tickers []string) (*Run, error) {
	symbols := utils.NormalizeTickers(tickers)
	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: s.now().UTC(),
		Results:   make([]Result, len(symbols)),
	}
	log := s.log.With().Str("run", run.ID).Logger()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			run.Results[i] = s.scanOne(gctx, sym)
			if run.Results[i].Err != "" {
				log.Warn().Str("ticker", sym).Str("error", run.Results[i].Err).Msg("history unavailable")
			}
			return nil
		})
	}
	_ = g.Wait()

	run.FinishedAt = s.now().UTC()
	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("scan %s: %w", run.ID, err)
	}

	signals := run.Signals()
	s.metrics.ObserveSignals(signals)
	s.metrics.ObserveScan(run.Failures(), run.FinishedAt.Sub(run.StartedAt))
	log.Info().
		Int("tickers", len(symbols)).
		Int("signals", len(signals)).
		Int("failures", run.Failures()).
		Msg("scan complete")
	return run, nil
}

func (s *Scanner) scanOne(ctx context.Context, ticker string) Result {
	res := Result{Ticker: ticker}
	series, err := s.history.History(ctx, ticker, s.days)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Points = len(series)
	res.Signals = technical.DetectSignalsWith(ticker, series, s.thresholds)
	return res
}
