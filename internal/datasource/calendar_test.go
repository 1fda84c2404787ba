package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/pkg/models"
)

type stubCalendar struct {
	earnings    []EarningsEntry
	dividends   []DividendEntry
	earningsErr error
	from, to    string
}

func (s *stubCalendar) EarningsCalendar(_ context.Context, from, to string) ([]EarningsEntry, error) {
	s.from, s.to = from, to
	return s.earnings, s.earningsErr
}

func (s *stubCalendar) DividendCalendar(_ context.Context, from, to string) ([]DividendEntry, error) {
	return s.dividends, nil
}

func TestUpcomingEvents(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	src := &stubCalendar{
		earnings: []EarningsEntry{
			{Symbol: "AAPL", Date: "2026-03-08", FiscalDateEnding: "2025-12-31"},
			{Symbol: "TSLA", Date: "2026-03-02"},
			{Symbol: "msft", Date: "2026-02-27"}, // already past
		},
		dividends: []DividendEntry{
			{Symbol: "msft", Date: "2026-03-03", Dividend: 0.83},
			{Symbol: "AAPL", Date: "2026-03-20"},
		},
	}
	cal := NewCalendar(src, zerolog.Nop())

	events, err := cal.UpcomingEvents(context.Background(), []string{"aapl", "MSFT"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", src.from)
	assert.Equal(t, "2026-03-31", src.to)

	require.Len(t, events, 3)
	assert.Equal(t, models.CalendarEvent{Ticker: "msft", Event: models.EventDividend, Date: "2026-03-03", DaysUntil: 2, Details: "$0.83/share"}, events[0])
	assert.Equal(t, models.CalendarEvent{Ticker: "AAPL", Event: models.EventEarnings, Date: "2026-03-08", DaysUntil: 7, Details: "Fiscal 2025-12-31"}, events[1])
	assert.Equal(t, 19, events[2].DaysUntil)
	assert.Empty(t, events[2].Details)
}

func TestUpcomingEventsSwallowsSourceErrors(t *testing.T) {
	src := &stubCalendar{
		earningsErr: errors.New("premium endpoint"),
		dividends:   []DividendEntry{{Symbol: "KO", Date: "2026-03-01", Dividend: 0.51}},
	}
	events, err := NewCalendar(src, zerolog.Nop()).UpcomingEvents(context.Background(), []string{"KO"}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].DaysUntil)
}

func TestUpcomingEventsNoTickers(t *testing.T) {
	events, err := NewCalendar(&stubCalendar{}, zerolog.Nop()).UpcomingEvents(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFilterReminders(t *testing.T) {
	events := []models.CalendarEvent{
		{Ticker: "A", Event: models.EventEarnings, DaysUntil: 1},
		{Ticker: "B", Event: models.EventEarnings, DaysUntil: 3},
		{Ticker: "C", Event: models.EventEarnings, DaysUntil: 7},
		{Ticker: "D", Event: models.EventDividend, DaysUntil: 0},
		{Ticker: "E", Event: models.EventDividend, DaysUntil: 2},
		{Ticker: "F", Event: models.EventDividend, DaysUntil: 3},
	}
	got := FilterReminders(events)
	var tickers []string
	for _, e := range got {
		tickers = append(tickers, e.Ticker)
	}
	assert.Equal(t, []string{"A", "C", "D", "E"}, tickers)
}

func TestFilterByKind(t *testing.T) {
	events := []models.CalendarEvent{
		{Ticker: "A", Event: models.EventEarnings},
		{Ticker: "B", Event: models.EventDividend},
	}
	assert.Len(t, FilterByKind(events, true, true), 2)
	only := FilterByKind(events, false, true)
	require.Len(t, only, 1)
	assert.Equal(t, "B", only[0].Ticker)
	assert.Empty(t, FilterByKind(events, false, false))
}
