package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockpulse/stockpulse/api"
	"github.com/stockpulse/stockpulse/internal/logger"
	"github.com/stockpulse/stockpulse/internal/report"
	"github.com/stockpulse/stockpulse/internal/scanner"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

func init() {
	scanCmd.Flags().Bool("notify", false, "deliver the signal digest through the configured notifiers")

	serveCmd.Flags().Bool("with-scheduler", false, "also run the daily check on its cron schedule")

	dailyCmd.Flags().Bool("now", false, "run the check once and exit instead of waiting for the schedule")

	alertsCmd.Flags().Bool("notify", false, "deliver triggered alerts through the configured notifiers")

	rootCmd.AddCommand(scanCmd, serveCmd, dailyCmd, alertsCmd)
}

func (a *app) newScanner() *scanner.Scanner {
	return scanner.New(a.yahoo,
		scanner.WithHistoryDays(cfg.Data.HistoryDays),
		scanner.WithThresholds(cfg.Signals),
		scanner.WithConcurrency(cfg.Scanner.Concurrency),
		scanner.WithMetrics(a.metrics),
		scanner.WithLogger(logger.Component(log, "scanner")))
}

func (a *app) dailyCheck() *scanner.DailyCheck {
	return &scanner.DailyCheck{
		Scanner:  a.newScanner(),
		Calendar: a.calendar(),
		Quotes:   a.yahoo,
		Notifier: a.notifier(),
		Holdings: cfg.Portfolio,
		Alerts:   cfg.Alerts,
		Prefs: scanner.Prefs{
			SignalAlerts:      cfg.Notify.SignalAlerts,
			EarningsReminders: cfg.Notify.EarningsReminders,
			DividendReminders: cfg.Notify.DividendReminders,
			DailySummary:      cfg.Notify.DailySummary,
			PriceAlerts:       cfg.Notify.PriceAlerts,
		},
		Metrics: a.metrics,
		Log:     logger.Component(log, "daily"),
		Now:     time.Now,
	}
}

// --- Scan Command ---

var scanCmd = &cobra.Command{
	Use:   "scan [TICKER...]",
	Short: "Scan tickers for technical signals (default: the configured portfolio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		tickers := utils.NormalizeTickers(args)
		if len(tickers) == 0 {
			tickers = cfg.Tickers()
		}
		if len(tickers) == 0 {
			return fmt.Errorf("no tickers given and no portfolio configured")
		}

		a := newApp()
		run, err := a.newScanner().Scan(cmd.Context(), tickers)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🔍 Scanned %d tickers in %s (run %s)\n",
			len(run.Results), report.FormatDuration(run.FinishedAt.Sub(run.StartedAt)), run.ID)
		for _, r := range run.Results {
			if r.Err != "" {
				fmt.Fprintf(out, "  %-6s ⚠️  %s\n", r.Ticker, r.Err)
			}
		}
		signals := run.Signals()
		printSignals(out, signals)

		if notify, _ := cmd.Flags().GetBool("notify"); notify && len(signals) > 0 {
			msg, err := report.SignalDigest(signals, time.Now())
			if err != nil {
				return err
			}
			if err := a.notifier().Send(cmd.Context(), msg); err != nil {
				return fmt.Errorf("deliver digest: %w", err)
			}
		}
		return nil
	},
}

// --- Alerts Command ---

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Check the configured price alerts against current quotes",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(cfg.Alerts) == 0 {
			fmt.Fprintln(out, "No price alerts configured.")
			return nil
		}

		a := newApp()
		quotes := scanner.FetchQuotes(cmd.Context(), a.yahoo, scanner.AlertTickers(cfg.Alerts), cfg.Scanner.Concurrency)
		triggered := scanner.EvaluateAlerts(quotes, cfg.Alerts)

		p := newPalette(out)
		fired := make(map[models.PriceAlert]bool, len(triggered))
		for _, t := range triggered {
			fired[t.PriceAlert] = true
		}
		for _, al := range cfg.Alerts {
			ticker := utils.NormalizeTicker(al.Ticker)
			state := p.muted.Render("waiting")
			switch q := quotes[ticker]; {
			case fired[al]:
				state = p.good.Render(scanner.AlertMessage(al, q.Price))
			case q == nil:
				state = p.bad.Render("no quote")
			}
			fmt.Fprintf(out, "  %-6s %-5s %10s  %s\n", ticker, al.Direction, utils.FormatUSD(al.TargetPrice), state)
		}

		if notify, _ := cmd.Flags().GetBool("notify"); notify && len(triggered) > 0 {
			msg, err := report.AlertDigest(triggered, time.Now())
			if err != nil {
				return err
			}
			if err := a.notifier().Send(cmd.Context(), msg); err != nil {
				return fmt.Errorf("deliver alerts: %w", err)
			}
		}
		return nil
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST and WebSocket API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newApp()
		if withSched, _ := cmd.Flags().GetBool("with-scheduler"); withSched {
			sched, err := startScheduler(ctx, a)
			if err != nil {
				return err
			}
			defer sched.Stop()
		}

		srv := api.NewServer(cfg, api.Deps{
			History:  a.yahoo,
			Quotes:   a.yahoo,
			Research: a.research(),
			News:     a.news,
			Calendar: a.calendar(),
			Metrics:  a.metrics,
			Log:      logger.Component(log, "api"),
			Version:  version,
		})
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

// --- Daily Command ---

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the after-close portfolio check on its schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		if now, _ := cmd.Flags().GetBool("now"); now {
			return scanner.NewScheduler(cmd.Context(), log).RunNow(a.dailyCheck())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched, err := startScheduler(ctx, a)
		if err != nil {
			return err
		}
		defer sched.Stop()

		fmt.Fprintf(cmd.OutOrStdout(), "⏰ Daily check scheduled at %q (America/New_York). Press Ctrl+C to stop.\n", cfg.Scanner.Schedule)
		<-ctx.Done()
		return nil
	},
}

func startScheduler(ctx context.Context, a *app) (*scanner.Scheduler, error) {
	sched := scanner.NewScheduler(ctx, logger.Component(log, "scheduler"))
	if err := sched.AddJob(cfg.Scanner.Schedule, a.dailyCheck()); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Scanner.Schedule, err)
	}
	sched.Start()
	return sched, nil
}
