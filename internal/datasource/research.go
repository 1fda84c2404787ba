package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// ResearchBundle is everything the research page needs for one ticker.
type ResearchBundle struct {
	Ticker       string              `json:"ticker"`
	Quote        *models.Quote       `json:"quote,omitempty"`
	Fundamentals models.Fundamentals `json:"fundamentals"`
	Warnings     []string            `json:"warnings,omitempty"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

// Research fetches a quote and the statement history concurrently.
type Research struct {
	quotes       QuoteSource
	fundamentals FundamentalsSource
	now          func() time.Time
}

// NewResearch creates a research aggregator.
func NewResearch(quotes QuoteSource, fundamentals FundamentalsSource) *Research {
	return &Research{quotes: quotes, fundamentals: fundamentals, now: time.Now}
}

// Fetch gathers the quote and all four statement series for ticker.
// Individual failures are reported as warnings; the call only fails when
// nothing at all could be fetched or ctx is cancelled.
func (r *Research) Fetch(ctx context.Context, ticker string) (*ResearchBundle, error) {
	symbol := utils.NormalizeTicker(ticker)
	bundle := &ResearchBundle{
		Ticker:       symbol,
		Fundamentals: models.Fundamentals{Ticker: symbol},
		FetchedAt:    r.now().UTC(),
	}

	var mu sync.Mutex
	var errs []error
	fail := func(what string, err error) {
		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", what, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q, err := r.quotes.Quote(gctx, symbol)
		if err != nil {
			fail("quote", err)
			return nil // non-fatal
		}
		mu.Lock()
		bundle.Quote = q
		mu.Unlock()
		return nil
	})

	if r.fundamentals != nil {
		g.Go(func() error {
			v, err := r.fundamentals.IncomeStatements(gctx, symbol)
			if err != nil {
				fail("income statements", err)
				return nil
			}
			mu.Lock()
			bundle.Fundamentals.Income = v
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			v, err := r.fundamentals.KeyMetrics(gctx, symbol)
			if err != nil {
				fail("key metrics", err)
				return nil
			}
			mu.Lock()
			bundle.Fundamentals.KeyMetrics = v
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			v, err := r.fundamentals.CashFlows(gctx, symbol)
			if err != nil {
				fail("cash flows", err)
				return nil
			}
			mu.Lock()
			bundle.Fundamentals.CashFlows = v
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			v, err := r.fundamentals.BalanceSheets(gctx, symbol)
			if err != nil {
				fail("balance sheets", err)
				return nil
			}
			mu.Lock()
			bundle.Fundamentals.BalanceSheets = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return bundle, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, err := range errs {
		bundle.Warnings = append(bundle.Warnings, err.Error())
	}
	if bundle.Quote == nil && bundle.Fundamentals.Empty() && len(errs) > 0 {
		return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
	}
	return bundle, nil
}
