package models

import "time"

// NewsArticle represents a headline associated with a ticker.
type NewsArticle struct {
	Ticker      string    `json:"ticker"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// EventKind distinguishes calendar events.
type EventKind string

const (
	EventEarnings EventKind = "earnings"
	EventDividend EventKind = "dividend"
)

// CalendarEvent is an upcoming corporate event for a held ticker.
type CalendarEvent struct {
	Ticker    string    `json:"ticker"`
	Event     EventKind `json:"event"`
	Date      string    `json:"date"` // YYYY-MM-DD
	DaysUntil int       `json:"days_until"`
	Details   string    `json:"details,omitempty"`
}
