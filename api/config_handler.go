package api

import (
	"net/http"

	"github.com/stockpulse/stockpulse/internal/analysis/technical"
	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/pkg/models"
)

// ConfigView is the running configuration with secrets left out.
type ConfigView struct {
	CacheTTLSeconds int                  `json:"cache_ttl_seconds"`
	HistoryDays     int                  `json:"history_days"`
	NewsLimit       int                  `json:"news_limit"`
	Signals         technical.Thresholds `json:"signals"`
	DCF             models.DCFInputs     `json:"dcf"`
	Schedule        string               `json:"schedule"`
	Concurrency     int                  `json:"concurrency"`
	Notify          NotifyView           `json:"notify"`
	Portfolio       []models.Holding     `json:"portfolio"`
	Alerts          []models.PriceAlert  `json:"alerts"`
}

// NotifyView lists which digests are enabled.
type NotifyView struct {
	Webhook           bool `json:"webhook"`
	SignalAlerts      bool `json:"signal_alerts"`
	EarningsReminders bool `json:"earnings_reminders"`
	DividendReminders bool `json:"dividend_reminders"`
	DailySummary      bool `json:"daily_summary"`
	PriceAlerts       bool `json:"price_alerts"`
}

func newConfigView(cfg *config.Config) ConfigView {
	portfolio := cfg.Portfolio
	if portfolio == nil {
		portfolio = []models.Holding{}
	}
	alerts := cfg.Alerts
	if alerts == nil {
		alerts = []models.PriceAlert{}
	}
	return ConfigView{
		CacheTTLSeconds: cfg.Data.CacheTTL,
		HistoryDays:     cfg.Data.HistoryDays,
		NewsLimit:       cfg.Data.NewsLimit,
		Signals:         cfg.Signals,
		DCF:             cfg.DCF.Inputs(0),
		Schedule:        cfg.Scanner.Schedule,
		Concurrency:     cfg.Scanner.Concurrency,
		Notify: NotifyView{
			Webhook:           cfg.Notify.WebhookURL != "",
			SignalAlerts:      cfg.Notify.SignalAlerts,
			EarningsReminders: cfg.Notify.EarningsReminders,
			DividendReminders: cfg.Notify.DividendReminders,
			DailySummary:      cfg.Notify.DailySummary,
			PriceAlerts:       cfg.Notify.PriceAlerts,
		},
		Portfolio: portfolio,
		Alerts:    alerts,
	}
}

// handleGetConfig returns the running configuration without secrets.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeData(w, newConfigView(s.cfg))
}

// handleGetConfigKeys returns where each secret comes from, masked.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeData(w, config.CheckAPIKeys(s.cfg))
}
