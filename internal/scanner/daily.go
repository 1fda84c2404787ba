package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/internal/metrics"
	"github.com/stockpulse/stockpulse/internal/notification"
	"github.com/stockpulse/stockpulse/internal/report"
	"github.com/stockpulse/stockpulse/pkg/models"
)

// Prefs selects which digests the daily check sends.
type Prefs struct {
	SignalAlerts      bool
	EarningsReminders bool
	DividendReminders bool
	DailySummary      bool
	PriceAlerts       bool
}

// Stats counts what one daily check did.
type Stats struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
}

// DailyCheck scans the portfolio, sends signal and calendar digests,
// reports price alerts that crossed their target, and optionally sends a
// portfolio summary. An alert is reported once per process; a failed
// delivery leaves it armed for the next run.
type DailyCheck struct {
	Scanner  *Scanner
	Calendar *datasource.Calendar
	Quotes   datasource.QuoteSource
	Notifier notification.Notifier
	Holdings []models.Holding
	Alerts   []models.PriceAlert
	Prefs    Prefs
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	Now      func() time.Time

	mu    sync.Mutex
	fired map[string]bool
}

// Name identifies the job in scheduler logs.
func (d *DailyCheck) Name() string { return "daily-check" }

// Run performs the check and logs the resulting stats.
func (d *DailyCheck) Run(ctx context.Context) error {
	stats, err := d.Check(ctx)
	d.Log.Info().
		Int("checked", stats.Checked).
		Int("sent", stats.Sent).
		Int("errors", stats.Errors).
		Msg("daily check finished")
	return err
}

// Check runs every enabled step. Delivery and calendar failures are
// counted in Stats rather than returned; only a cancelled ctx aborts.
func (d *DailyCheck) Check(ctx context.Context) (Stats, error) {
	var stats Stats
	if len(d.Holdings) == 0 && len(d.Alerts) == 0 {
		return stats, nil
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	tickers := make([]string, len(d.Holdings))
	for i, h := range d.Holdings {
		tickers[i] = h.Ticker
	}

	var signals []models.TechnicalSignal
	if d.Prefs.SignalAlerts && d.Scanner != nil && len(tickers) > 0 {
		run, err := d.Scanner.Scan(ctx, tickers)
		if err != nil {
			return stats, err
		}
		stats.Checked = len(run.Results) - run.Failures()
		signals = run.Signals()
		if len(signals) > 0 {
			d.deliver(ctx, &stats, func() (notification.Message, error) {
				return report.SignalDigest(signals, now)
			})
		}
	}

	var events []models.CalendarEvent
	if (d.Prefs.EarningsReminders || d.Prefs.DividendReminders) && d.Calendar != nil && len(tickers) > 0 {
		upcoming, err := d.Calendar.UpcomingEvents(ctx, tickers, now)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Errors++
		}
		events = datasource.FilterByKind(datasource.FilterReminders(upcoming),
			d.Prefs.EarningsReminders, d.Prefs.DividendReminders)
		if len(events) > 0 {
			d.deliver(ctx, &stats, func() (notification.Message, error) {
				return report.CalendarDigest(events, now)
			})
		}
	}

	if d.Prefs.PriceAlerts && d.Quotes != nil {
		if triggered := d.pendingAlerts(ctx); len(triggered) > 0 {
			sent := d.deliver(ctx, &stats, func() (notification.Message, error) {
				return report.AlertDigest(triggered, now)
			})
			if sent {
				d.markFired(triggered)
			}
		}
	}

	if d.Prefs.DailySummary && d.Quotes != nil && len(d.Holdings) > 0 {
		summary := Value(ctx, d.Quotes, d.Holdings, DefaultConcurrency)
		d.deliver(ctx, &stats, func() (notification.Message, error) {
			return report.DailySummary(summary, signals, events, now)
		})
	}

	return stats, ctx.Err()
}

// pendingAlerts quotes the watched tickers and returns the alerts that
// hold now and have not been reported yet.
func (d *DailyCheck) pendingAlerts(ctx context.Context) []models.TriggeredAlert {
	d.mu.Lock()
	armed := make([]models.PriceAlert, 0, len(d.Alerts))
	for _, a := range d.Alerts {
		if !d.fired[alertKey(a)] {
			armed = append(armed, a)
		}
	}
	d.mu.Unlock()
	if len(armed) == 0 {
		return nil
	}

	quotes := FetchQuotes(ctx, d.Quotes, AlertTickers(armed), DefaultConcurrency)
	triggered := EvaluateAlerts(quotes, armed)
	for _, t := range triggered {
		d.Log.Info().Str("ticker", t.Ticker).Float64("price", t.Price).Msg(t.Message)
	}
	return triggered
}

func (d *DailyCheck) markFired(triggered []models.TriggeredAlert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fired == nil {
		d.fired = make(map[string]bool, len(triggered))
	}
	for _, t := range triggered {
		d.fired[alertKey(t.PriceAlert)] = true
	}
}

func (d *DailyCheck) deliver(ctx context.Context, stats *Stats, build func() (notification.Message, error)) bool {
	msg, err := build()
	if err == nil {
		err = d.Notifier.Send(ctx, msg)
	}
	d.Metrics.ObserveNotification(err)
	if err != nil {
		d.Log.Error().Err(err).Str("subject", msg.Subject).Msg("digest delivery failed")
		stats.Errors++
		return false
	}
	stats.Sent++
	return true
}
