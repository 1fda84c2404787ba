package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockpulse/stockpulse/internal/analysis/fundamental"
	"github.com/stockpulse/stockpulse/internal/analysis/sentiment"
	"github.com/stockpulse/stockpulse/internal/analysis/technical"
	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

const commandTimeout = 30 * time.Second

func init() {
	signalsCmd.Flags().Int("days", 0, "days of history to fetch (default: data.history_days)")

	projectCmd.Flags().String("case", "", "only show one case: base, bull or bear")

	dcfCmd.Flags().Float64("discount", 0, "discount rate in percent")
	dcfCmd.Flags().Float64("perpetual", 0, "perpetual growth rate in percent")
	dcfCmd.Flags().Float64("growth", 0, "FCF growth rate in percent (default: derived from history)")
	dcfCmd.Flags().Int("years", 0, "projection years")
	dcfCmd.Flags().Bool("sensitivity", false, "print a discount × perpetual growth grid")

	newsCmd.Flags().Int("limit", 0, "number of headlines (default: data.news_limit)")

	rootCmd.AddCommand(signalsCmd, projectCmd, dcfCmd, metricsCmd, compareCmd, newsCmd)
}

// tickerArg validates and normalizes the first argument.
func tickerArg(args []string) (string, error) {
	return utils.ValidateTicker(args[0])
}

// --- Signals Command ---

var signalsCmd = &cobra.Command{
	Use:   "signals TICKER",
	Short: "Detect technical signals for a stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, err := tickerArg(args)
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.Data.HistoryDays
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		series, err := newApp().yahoo.History(ctx, ticker, days)
		if err != nil {
			return err
		}
		signals := technical.DetectSignalsWith(ticker, series, cfg.Signals)

		out := cmd.OutOrStdout()
		snap := technical.Snapshot(models.Closes(series))
		fmt.Fprintf(out, "📊 %s: %s over %d sessions\n", ticker, utils.FormatUSD(snap.Price), snap.Points)
		if snap.RSI != 0 {
			fmt.Fprintf(out, "   RSI(14): %.1f\n", snap.RSI)
		}
		printSignals(out, signals)

		levels := technical.KeyLevels(series, 0, 0)
		if len(levels.Supports) > 0 || len(levels.Resistances) > 0 {
			fmt.Fprintf(out, "\n   Supports:    %v\n", levels.Supports)
			fmt.Fprintf(out, "   Resistances: %v\n", levels.Resistances)
		}
		return nil
	},
}

func printSignals(out io.Writer, signals []models.TechnicalSignal) {
	p := newPalette(out)
	fmt.Fprintf(out, "\n%s\n", p.title.Render(technical.Summarize(signals)))
	for _, s := range signals {
		kind := p.signalType(s.Type, fmt.Sprintf("%-10s", s.Type))
		fmt.Fprintf(out, "  %s %-6s %-22s %10.2f  %s\n", kind, s.Ticker, s.Signal, s.Value, p.muted.Render(s.Description))
	}
}

// --- Project Command ---

var projectCmd = &cobra.Command{
	Use:   "project TICKER",
	Short: "Project revenue, EPS and share price under base, bull and bear cases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, err := tickerArg(args)
		if err != nil {
			return err
		}
		names := []models.CaseName{models.CaseBase, models.CaseBull, models.CaseBear}
		if c, _ := cmd.Flags().GetString("case"); c != "" {
			name, err := models.ParseCaseName(c)
			if err != nil {
				return err
			}
			names = []models.CaseName{name}
		}

		b, err := fetchResearch(cmd, ticker)
		if err != nil {
			return err
		}
		f := b.Fundamentals
		price, shares := priceAndShares(b)
		cases := fundamental.DeriveProjectionCases(f.Income, f.KeyMetrics)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📈 %s projections from %s revenue, price %s\n",
			ticker, utils.FormatUSDCompact(f.LatestRevenue()), utils.FormatUSD(price))
		for _, name := range names {
			c, _ := cases.Case(name)
			printProjection(out, fundamental.Summarize(c, f.LatestRevenue(), shares, price))
		}
		return nil
	},
}

func printProjection(out io.Writer, s models.ProjectionSummary) {
	fmt.Fprintf(out, "\n  %s case  (price CAGR %s to %s)\n", s.Case,
		utils.FormatPct(s.CAGRLow), utils.FormatPct(s.CAGRHigh))
	fmt.Fprintf(out, "  %-4s %12s %8s %12s %8s %8s %18s\n", "Year", "Revenue", "Growth", "Net income", "Margin", "EPS", "Price range")
	for _, r := range s.Rows {
		fmt.Fprintf(out, "  %-4d %12s %7.1f%% %12s %7.1f%% %8.2f %8s - %-8s\n",
			r.Year, utils.FormatUSDCompact(r.Revenue), r.RevGrowthPct,
			utils.FormatUSDCompact(r.NetIncome), r.NetMarginPct, r.EPS,
			utils.FormatUSD(r.SharePriceLow), utils.FormatUSD(r.SharePriceHigh))
	}
}

// --- DCF Command ---

var dcfCmd = &cobra.Command{
	Use:   "dcf TICKER",
	Short: "Value a stock with a discounted cash flow model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, err := tickerArg(args)
		if err != nil {
			return err
		}
		b, err := fetchResearch(cmd, ticker)
		if err != nil {
			return err
		}
		price, shares := priceAndShares(b)

		baseline := fundamental.DeriveDCFInputs(b.Fundamentals.CashFlows, b.Fundamentals.BalanceSheets)
		in, err := dcfFlagInputs(cmd, baseline.Defaults.FCFGrowthRatePct)
		if err != nil {
			return err
		}
		res := fundamental.ComputeDCF(baseline.BaseFCF, baseline.Cash, baseline.Debt, shares, price, in)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "💰 %s DCF  (%g%% discount, %g%% perpetual, %g%% FCF growth, %d years)\n",
			ticker, in.DiscountRatePct, in.PerpetualGrowthRatePct, in.FCFGrowthRatePct, in.ProjectionYears)
		fmt.Fprintf(out, "   Base FCF:          %s\n", utils.FormatUSDCompact(baseline.BaseFCF))
		fmt.Fprintf(out, "   PV of FCFs:        %s\n", utils.FormatUSDCompact(res.TotalPVofFCFs))
		fmt.Fprintf(out, "   PV of terminal:    %s\n", utils.FormatUSDCompact(res.PVofTerminalValue))
		fmt.Fprintf(out, "   Enterprise value:  %s\n", utils.FormatUSDCompact(res.EnterpriseValue))
		fmt.Fprintf(out, "   Equity value:      %s\n", utils.FormatUSDCompact(res.EquityValue))
		fmt.Fprintf(out, "   Intrinsic / share: %s  vs price %s\n",
			utils.FormatUSD(res.IntrinsicValuePerShare), utils.FormatUSD(price))
		if price > 0 && shares > 0 {
			fmt.Fprintf(out, "   Margin of safety:  %s  → %s\n",
				utils.FormatPct(res.MarginOfSafetyPct), newPalette(out).verdict(fundamental.Verdict(res.MarginOfSafetyPct)))
		}

		if sens, _ := cmd.Flags().GetBool("sensitivity"); sens {
			rates := []float64{in.DiscountRatePct - 2, in.DiscountRatePct - 1, in.DiscountRatePct, in.DiscountRatePct + 1, in.DiscountRatePct + 2}
			growths := []float64{in.PerpetualGrowthRatePct - 1, in.PerpetualGrowthRatePct, in.PerpetualGrowthRatePct + 1}
			grid := fundamental.SensitivityGrid(baseline, shares, price, in, rates, growths)
			fmt.Fprintf(out, "\n   %-9s", "r \\ g")
			for _, g := range growths {
				fmt.Fprintf(out, " %10s", strconv.FormatFloat(g, 'f', 1, 64)+"%")
			}
			fmt.Fprintln(out)
			for _, row := range grid {
				fmt.Fprintf(out, "   %-9s", strconv.FormatFloat(row[0].DiscountRatePct, 'f', 1, 64)+"%")
				for _, c := range row {
					fmt.Fprintf(out, " %10s", utils.FormatUSD(c.IntrinsicValuePerShare))
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

// dcfFlagInputs starts from the configured assumptions and applies any
// flags the user set.
func dcfFlagInputs(cmd *cobra.Command, derivedGrowth float64) (models.DCFInputs, error) {
	in := cfg.DCF.Inputs(derivedGrowth)
	flags := cmd.Flags()
	if flags.Changed("discount") {
		in.DiscountRatePct, _ = flags.GetFloat64("discount")
	}
	if flags.Changed("perpetual") {
		in.PerpetualGrowthRatePct, _ = flags.GetFloat64("perpetual")
	}
	if flags.Changed("growth") {
		in.FCFGrowthRatePct, _ = flags.GetFloat64("growth")
	}
	if flags.Changed("years") {
		in.ProjectionYears, _ = flags.GetInt("years")
	}
	check := in
	if sens, _ := flags.GetBool("sensitivity"); sens {
		check.DiscountRatePct -= 2
	}
	return in, fundamental.ValidateDCFInputs(check)
}

// --- Metrics Command ---

var metricsCmd = &cobra.Command{
	Use:   "metrics [KEY VALUE]",
	Short: "List the metric catalog or rate a value",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or KEY VALUE, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, def := range fundamental.Metrics() {
				fmt.Fprintf(out, "  %-20s %-22s %s\n", def.Key, def.Label, def.Description)
			}
			return nil
		}

		def, ok := fundamental.MetricByKey(args[0])
		if !ok {
			return fmt.Errorf("unknown metric %q", args[0])
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		fmt.Fprintf(out, "%s %s: %s\n", def.Label, fundamental.FormatMetricValue(def, v), newPalette(out).rating(fundamental.Rate(def, v)))
		return nil
	},
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare TICKER TICKER...",
	Short: "Compare the latest key metrics of several stocks",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		if !a.fmp.Configured() {
			return datasource.ErrMissingAPIKey
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		tickers := utils.NormalizeTickers(args)
		peers := make([]fundamental.PeerMetrics, 0, len(tickers))
		for _, t := range tickers {
			p := fundamental.PeerMetrics{Ticker: t}
			km, err := a.fmp.KeyMetrics(ctx, t)
			if err != nil {
				log.Warn().Err(err).Str("ticker", t).Msg("key metrics unavailable")
			} else if len(km) > 0 {
				p.Latest = &km[0]
			}
			peers = append(peers, p)
		}

		cmp := fundamental.CompareMetrics(peers)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %-22s", "Metric")
		for _, t := range cmp.Tickers {
			fmt.Fprintf(out, " %12s", t)
		}
		fmt.Fprintln(out)
		for _, row := range cmp.Rows {
			fmt.Fprintf(out, "  %-22s", row.Metric.Label)
			for _, c := range row.Cells {
				mark := " "
				if c.Ticker == row.Best {
					mark = "*"
				}
				fmt.Fprintf(out, " %11s%s", c.Display, mark)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out)
		for _, s := range cmp.Ranking {
			fmt.Fprintf(out, "  #%d %-6s score %d (%d excellent, %d good)\n", s.Rank, s.Ticker, s.Score, s.Excellent, s.Good)
		}
		return nil
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news TICKER",
	Short: "Show recent headlines with keyword sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, err := tickerArg(args)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Data.NewsLimit
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		articles, err := newApp().news.StockNews(ctx, ticker, limit)
		if err != nil {
			return err
		}
		s := sentiment.Aggregate(ticker, articles, time.Now())

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📰 %s: %s (%+.2f)\n\n", ticker, s.Label, s.Score)
		for _, a := range s.Articles {
			when := "undated"
			if !a.PublishedAt.IsZero() {
				when = a.PublishedAt.In(utils.ET).Format("Jan 2 15:04")
			}
			fmt.Fprintf(out, "  %+.2f  %-12s %s\n         %s\n", a.Score, when, a.Title, a.URL)
		}
		return nil
	},
}

// --- helpers ---

func fetchResearch(cmd *cobra.Command, ticker string) (*datasource.ResearchBundle, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	b, err := newApp().research().Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}
	for _, w := range b.Warnings {
		log.Warn().Str("ticker", ticker).Msg(w)
	}
	return b, nil
}

// priceAndShares prefers the live quote and falls back to the latest
// diluted share count from the income statement.
func priceAndShares(b *datasource.ResearchBundle) (price, shares float64) {
	if b.Quote != nil {
		price = b.Quote.Price
		shares = b.Quote.SharesOutstanding
	}
	if shares <= 0 {
		shares = b.Fundamentals.LatestShares()
	}
	return price, shares
}
