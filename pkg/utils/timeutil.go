package utils

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used by the data providers.
const DateLayout = "2006-01-02"

// ET is the US Eastern time zone the exchanges trade in.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST offset if the tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// MarketOpenTime returns the regular-session open (9:30 AM ET) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, ET)
}

// MarketCloseTime returns the regular-session close (4:00 PM ET) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, ET)
}

// IsMarketOpenAt reports whether the regular session is open at t.
// Exchange holidays are not modelled.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !t.Before(MarketOpenTime(t)) && t.Before(MarketCloseTime(t))
}

// MarketStatus returns "OPEN", "PRE-MARKET", "AFTER-HOURS" or "CLOSED (Weekend)".
func MarketStatus(now time.Time) string {
	now = now.In(ET)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	switch {
	case now.Before(MarketOpenTime(now)):
		return "PRE-MARKET"
	case now.Before(MarketCloseTime(now)):
		return "OPEN"
	default:
		return "AFTER-HOURS"
	}
}

// DaysUntil returns the whole number of days from now's UTC calendar date to
// the given YYYY-MM-DD date. Past dates are negative.
func DaysUntil(date string, now time.Time) (int, error) {
	target, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, err
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(target.Sub(today).Hours() / 24)), nil
}

// DateWindow returns now and now+days as YYYY-MM-DD strings in UTC.
func DateWindow(now time.Time, days int) (from, to string) {
	now = now.UTC()
	return now.Format(DateLayout), now.AddDate(0, 0, days).Format(DateLayout)
}
