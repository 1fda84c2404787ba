// StockPulse: technical signals, projections and DCF valuation for US equities.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/internal/infra"
	"github.com/stockpulse/stockpulse/internal/logger"
	"github.com/stockpulse/stockpulse/internal/metrics"
	"github.com/stockpulse/stockpulse/internal/notification"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockpulse",
	Short: "StockPulse: signals, projections and valuation for US stocks",
	Long: `StockPulse scans a portfolio for technical signals, projects revenue,
earnings and share price under base, bull and bear cases, values
companies with a discounted cash flow model and rates key metrics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		log = logger.New(logger.Config{
			Level:  cfg.Logging.Level,
			Pretty: cfg.Logging.Format != "json",
		})
		logger.SetGlobalLogger(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with secrets")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

// app holds the collaborators shared by commands.
type app struct {
	yahoo   *datasource.YFinance
	fmp     *datasource.FMP
	news    *datasource.News
	metrics *metrics.Metrics
}

func newApp() *app {
	cache := infra.NewCache(cfg.Data.CacheDuration())
	return &app{
		yahoo: datasource.NewYFinance(cache),
		fmp: datasource.NewFMP(cfg.Data.FMPKey, cache,
			datasource.WithFMPRateLimiter(infra.NewRateLimiter(5, time.Second)),
			datasource.WithFMPLogger(logger.Component(log, "fmp"))),
		news:    datasource.NewNews(cache),
		metrics: metrics.New(nil),
	}
}

// fundamentals returns the FMP client, or nil when no key is configured.
func (a *app) fundamentals() datasource.FundamentalsSource {
	if !a.fmp.Configured() {
		return nil
	}
	return a.fmp
}

func (a *app) research() *datasource.Research {
	return datasource.NewResearch(a.yahoo, a.fundamentals())
}

func (a *app) calendar() *datasource.Calendar {
	return datasource.NewCalendar(a.fmp, logger.Component(log, "calendar"))
}

// notifier logs every digest and posts it to the webhook when one is set.
func (a *app) notifier() notification.Notifier {
	n := notification.Multi{notification.NewLogNotifier(logger.Component(log, "notify"))}
	if cfg.Notify.WebhookURL != "" {
		n = append(n, notification.NewWebhookNotifier(cfg.Notify.WebhookURL, logger.Component(log, "webhook")))
	}
	return n
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "StockPulse %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		now := time.Now()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  StockPulse — System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Market Status: %s\n", utils.MarketStatus(now))
		fmt.Fprintf(out, "  Time (ET):     %s\n", now.In(utils.ET).Format("2006-01-02 15:04 MST"))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Portfolio:     %d holdings\n", len(cfg.Portfolio))
		fmt.Fprintf(out, "    Price alerts:  %d\n", len(cfg.Alerts))
		fmt.Fprintf(out, "    Schedule:      %s (America/New_York)\n", cfg.Scanner.Schedule)
		fmt.Fprintf(out, "    RSI bounds:    %g / %g\n", cfg.Signals.RSIOversold, cfg.Signals.RSIOverbought)
		fmt.Fprintf(out, "    DCF defaults:  %g%% discount, %g%% perpetual, %d years\n",
			cfg.DCF.DiscountRatePct, cfg.DCF.PerpetualGrowthRatePct, cfg.DCF.ProjectionYears)
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.API.Addr())
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}
