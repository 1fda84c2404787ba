package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
logging:
  level: error
portfolio:
  - ticker: AAPL
    shares: 10
`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--env-file", filepath.Join(dir, "missing.env")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "StockPulse dev")
	assert.Contains(t, out, "commit:")
}

func TestStatusCommand(t *testing.T) {
	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio:     1 holdings")
	assert.Contains(t, out, "FMP")
}

func TestMetricsCommand(t *testing.T) {
	t.Run("catalog", func(t *testing.T) {
		out, err := execute(t, "metrics")
		require.NoError(t, err)
		assert.Contains(t, out, "peRatio")
		assert.Contains(t, out, "returnOnEquity")
	})

	t.Run("rate", func(t *testing.T) {
		out, err := execute(t, "metrics", "peRatio", "12")
		require.NoError(t, err)
		assert.Contains(t, out, "12.00x: excellent")
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := execute(t, "metrics", "bogus", "1")
		assert.ErrorContains(t, err, `unknown metric "bogus"`)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := execute(t, "metrics", "peRatio", "abc")
		assert.ErrorContains(t, err, "invalid value")
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := execute(t, "metrics", "peRatio")
		assert.Error(t, err)
	})
}

func TestSignalsRejectsBadTicker(t *testing.T) {
	_, err := execute(t, "signals", "not a ticker!")
	assert.Error(t, err)
}

func TestProjectRejectsUnknownCase(t *testing.T) {
	_, err := execute(t, "project", "AAPL", "--case", "sideways")
	assert.Error(t, err)
}

func TestAlertsCommandWithoutAlerts(t *testing.T) {
	out, err := execute(t, "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "No price alerts configured.")
}

func TestStatusCountsAlerts(t *testing.T) {
	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Price alerts:  0")
}

func TestPalettePlainForNonTerminal(t *testing.T) {
	p := newPalette(&bytes.Buffer{})
	assert.Equal(t, "excellent", p.rating("excellent"))
	assert.Equal(t, "OVERVALUED", p.verdict("OVERVALUED"))
	assert.Equal(t, "buy", p.signalType("buy", "buy"))
}
