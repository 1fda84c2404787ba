package scanner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// Summarize aggregates priced positions. The dollar change backs each
// position's prior value out of its percent change; the portfolio percent
// change is that dollar change over the prior total.
func Summarize(positions []models.PositionValue) models.PortfolioSummary {
	s := models.PortfolioSummary{Positions: positions}
	if s.Positions == nil {
		s.Positions = []models.PositionValue{}
	}

	var changeSum float64
	for _, p := range positions {
		s.TotalValue += p.Value
		prior := p.Value
		if p.Change != 0 && p.Change != -100 {
			prior = p.Value / (1 + p.Change/100)
		}
		s.TotalChangeDollar += p.Value - prior
		changeSum += p.Change
	}
	if len(positions) > 0 {
		s.AvgChangePct = changeSum / float64(len(positions))
	}
	if prior := s.TotalValue - s.TotalChangeDollar; s.TotalValue > 0 && prior != 0 {
		s.TotalChangePct = s.TotalChangeDollar / prior * 100
	}
	return s
}

// Value prices holdings at current quotes, fetching up to limit quotes at
// once. A failed quote prices the holding at zero.
func Value(ctx context.Context, quotes datasource.QuoteSource, holdings []models.Holding, limit int) models.PortfolioSummary {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	positions := make([]models.PositionValue, len(holdings))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			p := models.PositionValue{Ticker: utils.NormalizeTicker(h.Ticker), Shares: h.Shares}
			if q, err := quotes.Quote(ctx, p.Ticker); err == nil && q != nil {
				p.Price = q.Price
				p.Change = q.ChangePct
				p.Value = p.Shares * p.Price
			}
			positions[i] = p
			return nil
		})
	}
	_ = g.Wait()

	return Summarize(positions)
}
