// Package metrics holds the Prometheus collectors StockPulse exposes.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// Metrics holds all Prometheus metrics for the API and the scanner.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: route

	SignalsDetected *prometheus.CounterVec // labels: type
	ScanRuns        prometheus.Counter
	ScanFailures    prometheus.Counter // per ticker
	ScanDuration    prometheus.Histogram

	Notifications *prometheus.CounterVec // labels: outcome

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg gets a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockpulse_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		SignalsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_signals_detected_total",
			Help: "Technical signals detected, by signal type",
		}, []string{"type"}),
		ScanRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_scan_runs_total",
			Help: "Portfolio scans started",
		}),
		ScanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_scan_ticker_failures_total",
			Help: "Tickers whose history could not be fetched during a scan",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_scan_duration_seconds",
			Help:    "Wall time of a portfolio scan",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_notifications_total",
			Help: "Digest deliveries by outcome",
		}, []string{"outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.SignalsDetected,
		m.ScanRuns,
		m.ScanFailures,
		m.ScanDuration,
		m.Notifications,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveSignals counts detected signals by type.
func (m *Metrics) ObserveSignals(signals []models.TechnicalSignal) {
	if m == nil {
		return
	}
	for _, s := range signals {
		m.SignalsDetected.WithLabelValues(string(s.Type)).Inc()
	}
}

// ObserveScan records a finished scan.
func (m *Metrics) ObserveScan(failures int, d time.Duration) {
	if m == nil {
		return
	}
	m.ScanRuns.Inc()
	m.ScanFailures.Add(float64(failures))
	m.ScanDuration.Observe(d.Seconds())
}

// ObserveNotification records a delivery attempt.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}
