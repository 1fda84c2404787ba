// Package notification delivers StockPulse digests to external channels.
package notification

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Kind identifies what a message reports.
type Kind string

const (
	KindSignals  Kind = "signals"
	KindCalendar Kind = "calendar"
	KindSummary  Kind = "summary"
	KindAlerts   Kind = "alerts"
)

// Message is a rendered digest ready for delivery.
type Message struct {
	Kind     Kind   `json:"kind"`
	Subject  string `json:"subject"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers a message. Returns error if delivery fails.
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log. Used when no webhook is configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info().
		Str("kind", string(msg.Kind)).
		Str("subject", msg.Subject).
		Msg(msg.Markdown)
	return nil
}

// Multi fans a message out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
