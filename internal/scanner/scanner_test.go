package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/internal/metrics"
	"github.com/stockpulse/stockpulse/pkg/models"
)

// fakeHistory serves canned series; unknown tickers fail.
type fakeHistory struct {
	series   map[string][]models.PricePoint
	days     atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeHistory) History(ctx context.Context, ticker string, days int) ([]models.PricePoint, error) {
	f.days.Store(int32(days))
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	s, ok := f.series[ticker]
	if !ok {
		return nil, errors.New("no data for " + ticker)
	}
	return s, nil
}

func rally() []models.PricePoint {
	return []models.PricePoint{{Close: 100, Volume: 1}, {Close: 105, Volume: 1}}
}

func flat() []models.PricePoint {
	return []models.PricePoint{{Close: 100, Volume: 1}, {Close: 100.5, Volume: 1}}
}

func TestScanCollectsSignalsAndFailures(t *testing.T) {
	h := &fakeHistory{series: map[string][]models.PricePoint{"AAPL": rally(), "MSFT": flat()}}
	m := metrics.New(nil)
	s := New(h, WithMetrics(m), WithHistoryDays(300))

	run, err := s.Scan(context.Background(), []string{"aapl", "MSFT", "ZZZZ", "aapl", "not a ticker"})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	require.Len(t, run.Results, 3)
	assert.Equal(t, "AAPL", run.Results[0].Ticker)
	assert.Equal(t, 2, run.Results[0].Points)
	assert.Equal(t, "MSFT", run.Results[1].Ticker)
	assert.Empty(t, run.Results[1].Signals)
	assert.Equal(t, "ZZZZ", run.Results[2].Ticker)
	assert.Contains(t, run.Results[2].Err, "no data")
	assert.Equal(t, 1, run.Failures())
	assert.Equal(t, int32(300), h.days.Load())

	signals := run.Signals()
	require.Len(t, signals, 1)
	assert.Equal(t, "Large Rally", signals[0].Signal)
	assert.Equal(t, 5.0, signals[0].Value)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsDetected.WithLabelValues("attention")))
}

func TestScanRespectsConcurrencyLimit(t *testing.T) {
	series := map[string][]models.PricePoint{}
	tickers := []string{"AA", "BB", "CC", "DD", "EE", "FF", "GG", "HH"}
	for _, tk := range tickers {
		series[tk] = flat()
	}
	h := &fakeHistory{series: series, delay: 20 * time.Millisecond}

	run, err := New(h, WithConcurrency(2)).Scan(context.Background(), tickers)
	require.NoError(t, err)
	assert.Len(t, run.Results, len(tickers))
	assert.LessOrEqual(t, h.peak.Load(), int32(2))
}

func TestScanCancelled(t *testing.T) {
	h := &fakeHistory{series: map[string][]models.PricePoint{"AAPL": rally()}, delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(h).Scan(ctx, []string{"AAPL"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScanDistinctRunIDs(t *testing.T) {
	s := New(&fakeHistory{})
	a, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	b, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Empty(t, a.Signals())
}

func TestWithConcurrencyIgnoresNonPositive(t *testing.T) {
	s := New(&fakeHistory{}, WithConcurrency(0))
	assert.Equal(t, DefaultConcurrency, s.limit)
}
