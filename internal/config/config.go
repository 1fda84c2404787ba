// Package config handles configuration loading for StockPulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stockpulse/stockpulse/internal/analysis/technical"
	"github.com/stockpulse/stockpulse/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	Data      DataConfig           `mapstructure:"data"      yaml:"data"`
	Signals   technical.Thresholds `mapstructure:"signals"   yaml:"signals"`
	DCF       DCFConfig            `mapstructure:"dcf"       yaml:"dcf"`
	Scanner   ScannerConfig        `mapstructure:"scanner"   yaml:"scanner"`
	Notify    NotifyConfig         `mapstructure:"notify"    yaml:"notify"`
	API       APIConfig            `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig        `mapstructure:"logging"   yaml:"logging"`
	Portfolio []models.Holding     `mapstructure:"portfolio" yaml:"portfolio"`
	Alerts    []models.PriceAlert  `mapstructure:"alerts"    yaml:"alerts"`
}

// DataConfig holds fetch layer settings.
type DataConfig struct {
	FMPKey      string `mapstructure:"fmp_key"      yaml:"fmp_key"`
	CacheTTL    int    `mapstructure:"cache_ttl"    yaml:"cache_ttl"` // seconds
	HistoryDays int    `mapstructure:"history_days" yaml:"history_days"`
	NewsLimit   int    `mapstructure:"news_limit"   yaml:"news_limit"`
}

// CacheDuration returns the cache TTL as a duration.
func (d DataConfig) CacheDuration() time.Duration {
	return time.Duration(d.CacheTTL) * time.Second
}

// DCFConfig holds the default valuation assumptions.
type DCFConfig struct {
	DiscountRatePct        float64 `mapstructure:"discount_rate_pct"         yaml:"discount_rate_pct"`
	PerpetualGrowthRatePct float64 `mapstructure:"perpetual_growth_rate_pct" yaml:"perpetual_growth_rate_pct"`
	ProjectionYears        int     `mapstructure:"projection_years"          yaml:"projection_years"`
}

// Inputs returns DCF inputs using fcfGrowthPct for the growth stage.
func (d DCFConfig) Inputs(fcfGrowthPct float64) models.DCFInputs {
	return models.DCFInputs{
		DiscountRatePct:        d.DiscountRatePct,
		PerpetualGrowthRatePct: d.PerpetualGrowthRatePct,
		FCFGrowthRatePct:       fcfGrowthPct,
		ProjectionYears:        d.ProjectionYears,
	}
}

// ScannerConfig holds portfolio scan and scheduler settings.
type ScannerConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Schedule    string `mapstructure:"schedule"    yaml:"schedule"` // cron spec, America/New_York
}

// NotifyConfig holds digest delivery settings.
type NotifyConfig struct {
	WebhookURL        string `mapstructure:"webhook_url"        yaml:"webhook_url"`
	SignalAlerts      bool   `mapstructure:"signal_alerts"      yaml:"signal_alerts"`
	EarningsReminders bool   `mapstructure:"earnings_reminders" yaml:"earnings_reminders"`
	DividendReminders bool   `mapstructure:"dividend_reminders" yaml:"dividend_reminders"`
	DailySummary      bool   `mapstructure:"daily_summary"      yaml:"daily_summary"`
	PriceAlerts       bool   `mapstructure:"price_alerts"       yaml:"price_alerts"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns host:port.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

const envPrefix = "STOCKPULSE"

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockpulse/config.yaml (home directory)
//  3. /etc/stockpulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKPULSE_<SECTION>_<KEY>, e.g., STOCKPULSE_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockpulse"))
	v.AddConfigPath("/etc/stockpulse")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Data defaults
	v.SetDefault("data.cache_ttl", 300) // 5 minutes
	v.SetDefault("data.history_days", 220)
	v.SetDefault("data.news_limit", 6)

	// Signal thresholds
	th := technical.DefaultThresholds()
	v.SetDefault("signals.rsi_oversold", th.RSIOversold)
	v.SetDefault("signals.rsi_overbought", th.RSIOverbought)
	v.SetDefault("signals.spike_ratio", th.SpikeRatio)
	v.SetDefault("signals.large_move_pct", th.LargeMovePct)

	// DCF defaults
	v.SetDefault("dcf.discount_rate_pct", 10.0)
	v.SetDefault("dcf.perpetual_growth_rate_pct", 3.0)
	v.SetDefault("dcf.projection_years", 10)

	// Scanner defaults: weekdays after the US close.
	v.SetDefault("scanner.concurrency", 5)
	v.SetDefault("scanner.schedule", "30 16 * * 1-5")

	// Notification defaults
	v.SetDefault("notify.signal_alerts", true)
	v.SetDefault("notify.earnings_reminders", true)
	v.SetDefault("notify.dividend_reminders", true)
	v.SetDefault("notify.daily_summary", false)
	v.SetDefault("notify.price_alerts", true)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads secrets from environment variables.
// FMP_API_KEY is honoured for compatibility with existing deployments.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("FMP_API_KEY"); key != "" && cfg.Data.FMPKey == "" {
		cfg.Data.FMPKey = key
	}
	if key := os.Getenv("STOCKPULSE_DATA_FMP_KEY"); key != "" {
		cfg.Data.FMPKey = key
	}
	if u := os.Getenv("STOCKPULSE_NOTIFY_WEBHOOK_URL"); u != "" {
		cfg.Notify.WebhookURL = u
	}
}

// Validate rejects settings the engines cannot work with.
func (c *Config) Validate() error {
	if c.Signals.RSIOversold >= c.Signals.RSIOverbought {
		return fmt.Errorf("signals: rsi_oversold (%g) must be below rsi_overbought (%g)",
			c.Signals.RSIOversold, c.Signals.RSIOverbought)
	}
	if c.DCF.ProjectionYears < 0 {
		return fmt.Errorf("dcf: projection_years must not be negative, got %d", c.DCF.ProjectionYears)
	}
	if c.Scanner.Concurrency < 1 {
		return fmt.Errorf("scanner: concurrency must be at least 1, got %d", c.Scanner.Concurrency)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api: invalid port %d", c.API.Port)
	}
	for i, h := range c.Portfolio {
		if strings.TrimSpace(h.Ticker) == "" || h.Shares < 0 {
			return fmt.Errorf("portfolio[%d]: invalid holding %+v", i, h)
		}
	}
	for i, a := range c.Alerts {
		if strings.TrimSpace(a.Ticker) == "" || !(a.TargetPrice > 0) {
			return fmt.Errorf("alerts[%d]: invalid alert %+v", i, a)
		}
		if a.Direction != models.AlertAbove && a.Direction != models.AlertBelow {
			return fmt.Errorf("alerts[%d]: direction must be %q or %q, got %q",
				i, models.AlertAbove, models.AlertBelow, a.Direction)
		}
	}
	return nil
}

// Tickers returns the portfolio tickers in configured order.
func (c *Config) Tickers() []string {
	out := make([]string, 0, len(c.Portfolio))
	for _, h := range c.Portfolio {
		out = append(out, h.Ticker)
	}
	return out
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
