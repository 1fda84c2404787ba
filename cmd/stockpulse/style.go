package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// palette styles CLI output for one writer. Writers that are not
// terminals get plain text.
type palette struct {
	good  lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	muted lipgloss.Style
	title lipgloss.Style
}

func newPalette(out io.Writer) palette {
	r := lipgloss.NewRenderer(out)
	return palette{
		good:  r.NewStyle().Foreground(lipgloss.Color("#00D787")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#FFD300")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		muted: r.NewStyle().Foreground(lipgloss.Color("#858392")),
		title: r.NewStyle().Bold(true),
	}
}

func (p palette) rating(r models.Rating) string {
	switch r {
	case models.RatingExcellent, models.RatingGood:
		return p.good.Render(string(r))
	case models.RatingFair:
		return p.warn.Render(string(r))
	}
	return p.bad.Render(string(r))
}

func (p palette) verdict(v string) string {
	switch v {
	case models.VerdictUndervalued:
		return p.good.Render(v)
	case models.VerdictOvervalued:
		return p.bad.Render(v)
	}
	return p.warn.Render(v)
}

// signalType colors text by the kind of signal it describes. Pad text
// before styling so escape codes do not skew column widths.
func (p palette) signalType(t models.SignalType, text string) string {
	switch t {
	case models.SignalBuy:
		return p.good.Render(text)
	case models.SignalSell:
		return p.bad.Render(text)
	case models.SignalSwing:
		return p.title.Render(text)
	}
	return p.warn.Render(text)
}
