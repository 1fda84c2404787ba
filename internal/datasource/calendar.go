package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// CalendarWindowDays is how far ahead upcoming events are listed.
const CalendarWindowDays = 30

// Calendar turns raw earnings and dividend calendars into per-ticker events.
type Calendar struct {
	src CalendarSource
	log zerolog.Logger
}

// NewCalendar wraps a calendar source.
func NewCalendar(src CalendarSource, log zerolog.Logger) *Calendar {
	return &Calendar{src: src, log: log}
}

// UpcomingEvents returns earnings and dividend events for tickers in the
// next 30 days, soonest first. A calendar that cannot be fetched is
// logged and skipped, since not every plan includes both feeds.
func (c *Calendar) UpcomingEvents(ctx context.Context, tickers []string, now time.Time) ([]models.CalendarEvent, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	held := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		held[strings.ToUpper(t)] = true
	}
	from, to := utils.DateWindow(now, CalendarWindowDays)

	var events []models.CalendarEvent

	earnings, err := c.src.EarningsCalendar(ctx, from, to)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Err(err).Msg("earnings calendar unavailable")
	}
	for _, e := range earnings {
		ev, ok := upcoming(held, e.Symbol, e.Date, now)
		if !ok {
			continue
		}
		ev.Event = models.EventEarnings
		if e.FiscalDateEnding != "" {
			ev.Details = "Fiscal " + e.FiscalDateEnding
		}
		events = append(events, ev)
	}

	dividends, err := c.src.DividendCalendar(ctx, from, to)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Err(err).Msg("dividend calendar unavailable")
	}
	for _, d := range dividends {
		ev, ok := upcoming(held, d.Symbol, d.Date, now)
		if !ok {
			continue
		}
		ev.Event = models.EventDividend
		if d.Dividend != 0 {
			ev.Details = fmt.Sprintf("$%.2f/share", d.Dividend)
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DaysUntil < events[j].DaysUntil
	})
	return events, nil
}

func upcoming(held map[string]bool, symbol, date string, now time.Time) (models.CalendarEvent, bool) {
	if !held[strings.ToUpper(symbol)] {
		return models.CalendarEvent{}, false
	}
	days, err := utils.DaysUntil(date, now)
	if err != nil || days < 0 {
		return models.CalendarEvent{}, false
	}
	return models.CalendarEvent{Ticker: symbol, Date: date, DaysUntil: days}, true
}

// FilterReminders keeps the events worth a notification today: earnings a
// week out or the day before, and dividends within two days.
func FilterReminders(events []models.CalendarEvent) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, e := range events {
		switch e.Event {
		case models.EventEarnings:
			if e.DaysUntil == 7 || e.DaysUntil == 1 {
				out = append(out, e)
			}
		case models.EventDividend:
			if e.DaysUntil <= 2 {
				out = append(out, e)
			}
		}
	}
	return out
}

// FilterByKind drops events whose kind is disabled.
func FilterByKind(events []models.CalendarEvent, earnings, dividends bool) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, e := range events {
		if (e.Event == models.EventEarnings && earnings) || (e.Event == models.EventDividend && dividends) {
			out = append(out, e)
		}
	}
	return out
}
