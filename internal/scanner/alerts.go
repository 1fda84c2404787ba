package scanner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// EvaluateAlerts returns the alerts whose condition holds at the quoted
// price, in alert order. An above alert fires at or over its target and a
// below alert at or under it. Alerts with no quote, or a quote without a
// positive price, are skipped.
func EvaluateAlerts(quotes map[string]*models.Quote, alerts []models.PriceAlert) []models.TriggeredAlert {
	var out []models.TriggeredAlert
	for _, a := range alerts {
		q := quotes[utils.NormalizeTicker(a.Ticker)]
		if q == nil || q.Price <= 0 || !alertHolds(a, q.Price) {
			continue
		}
		out = append(out, models.TriggeredAlert{
			PriceAlert: a,
			Price:      q.Price,
			Message:    AlertMessage(a, q.Price),
		})
	}
	return out
}

func alertHolds(a models.PriceAlert, price float64) bool {
	switch a.Direction {
	case models.AlertAbove:
		return price >= a.TargetPrice
	case models.AlertBelow:
		return price <= a.TargetPrice
	}
	return false
}

// AlertMessage phrases a triggered alert, e.g.
// "AAPL is now $201.50 (target: $200.00 above)".
func AlertMessage(a models.PriceAlert, price float64) string {
	return fmt.Sprintf("%s is now $%.2f (target: $%.2f %s)",
		utils.NormalizeTicker(a.Ticker), price, a.TargetPrice, a.Direction)
}

// alertKey identifies an alert across daily runs.
func alertKey(a models.PriceAlert) string {
	return fmt.Sprintf("%s|%s|%g", utils.NormalizeTicker(a.Ticker), a.Direction, a.TargetPrice)
}

// AlertTickers returns the distinct normalized tickers alerts watch.
func AlertTickers(alerts []models.PriceAlert) []string {
	tickers := make([]string, len(alerts))
	for i, a := range alerts {
		tickers[i] = a.Ticker
	}
	return utils.NormalizeTickers(tickers)
}

// FetchQuotes fetches quotes for tickers, up to limit at once, keyed by
// normalized ticker. Failed quotes are left out.
func FetchQuotes(ctx context.Context, quotes datasource.QuoteSource, tickers []string, limit int) map[string]*models.Quote {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	var mu sync.Mutex
	out := make(map[string]*models.Quote, len(tickers))

	var g errgroup.Group
	g.SetLimit(limit)
	for _, t := range tickers {
		t := t
		g.Go(func() error {
			t := utils.NormalizeTicker(t)
			q, err := quotes.Quote(ctx, t)
			if err != nil || q == nil {
				return nil
			}
			mu.Lock()
			out[t] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
