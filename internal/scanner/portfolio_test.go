package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/pkg/models"
)

type fakeQuotes map[string]*models.Quote

func (f fakeQuotes) Quote(_ context.Context, ticker string) (*models.Quote, error) {
	q, ok := f[ticker]
	if !ok {
		return nil, errors.New("quote unavailable")
	}
	return q, nil
}

func TestSummarize(t *testing.T) {
	positions := []models.PositionValue{
		{Ticker: "AAPL", Shares: 10, Price: 110, Change: 10, Value: 1100},
		{Ticker: "MSFT", Shares: 5, Price: 180, Change: -10, Value: 900},
	}
	s := Summarize(positions)

	assert.InDelta(t, 2000, s.TotalValue, 1e-9)
	// 1100 - 1000 + 900 - 1000
	assert.InDelta(t, 0, s.TotalChangeDollar, 1e-9)
	assert.InDelta(t, 0, s.TotalChangePct, 1e-9)
	assert.InDelta(t, 0, s.AvgChangePct, 1e-9)
	assert.Len(t, s.Positions, 2)
}

func TestSummarizeWeightedChange(t *testing.T) {
	s := Summarize([]models.PositionValue{
		{Ticker: "A", Value: 1100, Change: 10},
		{Ticker: "B", Value: 1000, Change: 0},
	})
	assert.InDelta(t, 100, s.TotalChangeDollar, 1e-9)
	assert.InDelta(t, 5, s.TotalChangePct, 1e-9) // 100 / 2000
	assert.InDelta(t, 5, s.AvgChangePct, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalValue)
	assert.Zero(t, s.TotalChangePct)
	assert.NotNil(t, s.Positions)
}

func TestValue(t *testing.T) {
	quotes := fakeQuotes{
		"AAPL":  {Price: 200, ChangePct: 1},
		"BRK.B": {Price: 400, ChangePct: -2},
	}
	holdings := []models.Holding{
		{Ticker: "aapl", Shares: 10},
		{Ticker: "BRK.B", Shares: 2},
		{Ticker: "GONE", Shares: 3},
	}

	s := Value(context.Background(), quotes, holdings, 2)
	require.Len(t, s.Positions, 3)
	assert.Equal(t, models.PositionValue{Ticker: "AAPL", Shares: 10, Price: 200, Change: 1, Value: 2000}, s.Positions[0])
	assert.Equal(t, 800.0, s.Positions[1].Value)
	assert.Equal(t, models.PositionValue{Ticker: "GONE", Shares: 3}, s.Positions[2])
	assert.InDelta(t, 2800, s.TotalValue, 1e-9)
	assert.InDelta(t, -1.0/3, s.AvgChangePct, 1e-9)
}
