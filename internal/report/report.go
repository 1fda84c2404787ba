// Package report builds the StockPulse digests: technical signal alerts,
// calendar reminders and the daily portfolio summary. Each digest is
// written as markdown and rendered to HTML for delivery.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/stockpulse/stockpulse/internal/analysis/technical"
	"github.com/stockpulse/stockpulse/internal/notification"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

var emailTmpl = template.Must(template.New("email").Parse(EmailTemplate))

// emailData is the model passed to EmailTemplate.
type emailData struct {
	Title     string
	Generated string
	Body      template.HTML
	Footer    string
}

// ════════════════════════════════════════════════════════════════════
// Digests
// ════════════════════════════════════════════════════════════════════

// SignalDigest reports technical signals grouped by ticker.
func SignalDigest(signals []models.TechnicalSignal, now time.Time) (notification.Message, error) {
	n := len(signals)
	subject := fmt.Sprintf("StockPulse: %d technical %s detected", n, plural(n, "signal", "signals"))

	var b strings.Builder
	b.WriteString("# Technical Signals\n\n")
	b.WriteString(technical.Summarize(signals) + "\n")
	writeSignalTables(&b, signals)

	return render(notification.KindSignals, subject, b.String(), now)
}

// CalendarDigest reports upcoming earnings and dividend dates.
func CalendarDigest(events []models.CalendarEvent, now time.Time) (notification.Message, error) {
	n := len(events)
	subject := fmt.Sprintf("StockPulse: %d upcoming %s", n, plural(n, "event", "events"))

	var b strings.Builder
	b.WriteString("# Upcoming Events\n\n")
	writeEventTable(&b, events)

	return render(notification.KindCalendar, subject, b.String(), now)
}

// AlertDigest reports price alerts that reached their target.
func AlertDigest(alerts []models.TriggeredAlert, now time.Time) (notification.Message, error) {
	n := len(alerts)
	subject := fmt.Sprintf("StockPulse: %d price %s triggered", n, plural(n, "alert", "alerts"))
	if n == 1 {
		subject = fmt.Sprintf("StockPulse: %s alert triggered", utils.NormalizeTicker(alerts[0].Ticker))
	}

	var b strings.Builder
	b.WriteString("# Price Alerts\n\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "- %s\n", cell(a.Message))
	}

	return render(notification.KindAlerts, subject, b.String(), now)
}

// DailySummary reports portfolio value and the day's change, followed by
// any signals and reminders found in the same run. The subject carries
// the unweighted mean of position changes.
func DailySummary(summary models.PortfolioSummary, signals []models.TechnicalSignal, events []models.CalendarEvent, now time.Time) (notification.Message, error) {
	subject := "StockPulse Daily Summary - " + utils.FormatPct(summary.AvgChangePct)

	var b strings.Builder
	b.WriteString("# Daily Portfolio Summary\n\n")
	fmt.Fprintf(&b, "%s\n\n", now.In(utils.ET).Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "**%s** (%s, %s today)\n\n",
		utils.FormatUSD(summary.TotalValue),
		utils.FormatPct(summary.TotalChangePct),
		signedUSD(summary.TotalChangeDollar))

	b.WriteString("| Ticker | Shares | Price | Change | Value |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, p := range summary.Positions {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(p.Ticker),
			strconv.FormatFloat(p.Shares, 'f', -1, 64),
			utils.FormatUSD(p.Price),
			utils.FormatPct(p.Change),
			utils.FormatUSD(p.Value))
	}

	if len(signals) > 0 {
		b.WriteString("\n## Signals\n\n")
		b.WriteString(technical.Summarize(signals) + "\n")
		writeSignalTables(&b, signals)
	}
	if len(events) > 0 {
		b.WriteString("\n## Upcoming Events\n\n")
		writeEventTable(&b, events)
	}

	return render(notification.KindSummary, subject, b.String(), now)
}

// ════════════════════════════════════════════════════════════════════
// Internal: markdown builders
// ════════════════════════════════════════════════════════════════════

func writeSignalTables(b *strings.Builder, signals []models.TechnicalSignal) {
	tickers, groups := technical.GroupByTicker(signals)
	for _, t := range tickers {
		fmt.Fprintf(b, "\n### %s\n\n", cell(t))
		b.WriteString("| Signal | Type | Value | Details |\n")
		b.WriteString("|---|---|---:|---|\n")
		for _, s := range groups[t] {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
				cell(s.Signal), s.Type,
				strconv.FormatFloat(s.Value, 'f', -1, 64),
				cell(s.Description))
		}
	}
}

func writeEventTable(b *strings.Builder, events []models.CalendarEvent) {
	b.WriteString("| Ticker | Event | Date | When | Details |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range events {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			cell(e.Ticker), e.Event, e.Date, When(e.DaysUntil), cell(e.Details))
	}
}

// When phrases a day offset for humans.
func When(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func signedUSD(v float64) string {
	if v >= 0 {
		return "+" + utils.FormatUSD(v)
	}
	return utils.FormatUSD(v)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// ════════════════════════════════════════════════════════════════════
// Internal: HTML rendering
// ════════════════════════════════════════════════════════════════════

func render(kind notification.Kind, subject, markdown string, now time.Time) (notification.Message, error) {
	body, err := RenderHTML(markdown)
	if err != nil {
		return notification.Message{}, err
	}

	var buf bytes.Buffer
	err = emailTmpl.Execute(&buf, emailData{
		Title:     subject,
		Generated: ReportTimestamp(now),
		Body:      template.HTML(body),
		Footer:    string(kind) + " digest",
	})
	if err != nil {
		return notification.Message{}, fmt.Errorf("executing template: %w", err)
	}

	return notification.Message{
		Kind:     kind,
		Subject:  subject,
		Markdown: markdown,
		HTML:     buf.String(),
	}, nil
}

// ReportTimestamp formats t in US Eastern time for digest headers.
func ReportTimestamp(t time.Time) string {
	return t.In(utils.ET).Format("02 Jan 2006, 03:04 PM MST")
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
