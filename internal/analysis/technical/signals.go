package technical

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// Thresholds configures the trigger levels used by DetectSignalsWith.
type Thresholds struct {
	RSIOversold   float64 `mapstructure:"rsi_oversold" yaml:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought" yaml:"rsi_overbought" json:"rsi_overbought"`
	SpikeRatio    float64 `mapstructure:"spike_ratio" yaml:"spike_ratio" json:"spike_ratio"`
	LargeMovePct  float64 `mapstructure:"large_move_pct" yaml:"large_move_pct" json:"large_move_pct"`
}

// DefaultThresholds returns the standard trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:   30,
		RSIOverbought: 70,
		SpikeRatio:    DefaultSpikeRatio,
		LargeMovePct:  DefaultMoveThreshold,
	}
}

func (th Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if th.RSIOversold <= 0 {
		th.RSIOversold = d.RSIOversold
	}
	if th.RSIOverbought <= 0 {
		th.RSIOverbought = d.RSIOverbought
	}
	if th.SpikeRatio <= 0 {
		th.SpikeRatio = d.SpikeRatio
	}
	if th.LargeMovePct <= 0 {
		th.LargeMovePct = d.LargeMovePct
	}
	return th
}

// DetectSignals runs every indicator over series (oldest to newest) with the
// default thresholds. At least 220 points are needed for every indicator to
// report; shorter series silently skip the indicators they cannot feed.
func DetectSignals(ticker string, series []models.PricePoint) []models.TechnicalSignal {
	return DetectSignalsWith(ticker, series, DefaultThresholds())
}

// DetectSignalsWith is DetectSignals with explicit thresholds. Signals are
// appended in a fixed order: RSI, SMA 50/200 cross, volume spike, MACD,
// EMA 9/21 cross, Bollinger breakout, large daily move.
func DetectSignalsWith(ticker string, series []models.PricePoint, th Thresholds) []models.TechnicalSignal {
	th = th.withDefaults()
	closes := models.Closes(series)
	volumes := models.Volumes(series)

	var signals []models.TechnicalSignal
	add := func(name string, typ models.SignalType, value float64, desc string) {
		signals = append(signals, models.TechnicalSignal{
			Ticker:      ticker,
			Signal:      name,
			Type:        typ,
			Value:       value,
			Description: desc,
		})
	}

	// --- RSI ---
	if rsi, ok := RSI(closes, DefaultRSIPeriod); ok {
		if rsi < th.RSIOversold {
			add("RSI Oversold", models.SignalBuy, utils.RoundHalfUp(rsi, 2),
				fmt.Sprintf("RSI at %.1f, oversold territory (below %g)", rsi, th.RSIOversold))
		} else if rsi > th.RSIOverbought {
			add("RSI Overbought", models.SignalSell, utils.RoundHalfUp(rsi, 2),
				fmt.Sprintf("RSI at %.1f, overbought territory (above %g)", rsi, th.RSIOverbought))
		}
	}

	// --- Golden / Death cross (50 vs 200 SMA) ---
	sma50, ok50 := SMAPair(closes, 50)
	sma200, ok200 := SMAPair(closes, 200)
	if ok50 && ok200 {
		if CrossedAbove(sma50, sma200) {
			add("Golden Cross", models.SignalBuy, utils.RoundHalfUp(sma50.Curr, 2),
				fmt.Sprintf("50-day SMA ($%.2f) crossed above 200-day SMA ($%.2f)", sma50.Curr, sma200.Curr))
		}
		if CrossedBelow(sma50, sma200) {
			add("Death Cross", models.SignalSell, utils.RoundHalfUp(sma50.Curr, 2),
				fmt.Sprintf("50-day SMA ($%.2f) crossed below 200-day SMA ($%.2f)", sma50.Curr, sma200.Curr))
		}
	}

	// --- Volume spike ---
	if vol, ok := VolumeSpike(volumes, DefaultVolumePeriod, th.SpikeRatio); ok && vol.IsSpike {
		add("Volume Spike", models.SignalAttention, utils.RoundHalfUp(vol.Ratio, 2),
			fmt.Sprintf("Volume is %.1fx the %d-day average", vol.Ratio, DefaultVolumePeriod))
	}

	// --- MACD histogram flip ---
	if macd, ok := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal); ok {
		if macd.PrevHistogram <= 0 && macd.Histogram > 0 {
			add("MACD Bullish Crossover", models.SignalSwing, utils.RoundHalfUp(macd.Histogram, 3),
				"MACD histogram flipped positive, bullish momentum shift")
		} else if macd.PrevHistogram >= 0 && macd.Histogram < 0 {
			add("MACD Bearish Crossover", models.SignalSwing, utils.RoundHalfUp(macd.Histogram, 3),
				"MACD histogram flipped negative, bearish momentum shift")
		}
	}

	// --- 9/21 EMA cross ---
	ema9, ok9 := EMAPair(closes, 9)
	ema21, ok21 := EMAPair(closes, 21)
	if ok9 && ok21 {
		if CrossedAbove(ema9, ema21) {
			add("9/21 EMA Bullish Cross", models.SignalSwing, utils.RoundHalfUp(ema9.Curr, 2),
				fmt.Sprintf("9-day EMA ($%.2f) crossed above 21-day EMA ($%.2f)", ema9.Curr, ema21.Curr))
		} else if CrossedBelow(ema9, ema21) {
			add("9/21 EMA Bearish Cross", models.SignalSwing, utils.RoundHalfUp(ema9.Curr, 2),
				fmt.Sprintf("9-day EMA ($%.2f) crossed below 21-day EMA ($%.2f)", ema9.Curr, ema21.Curr))
		}
	}

	// --- Bollinger breakout ---
	if bb, ok := BollingerBands(closes, DefaultBollingerPeriod, DefaultBollingerMult); ok {
		price := closes[len(closes)-1]
		if price > bb.Upper {
			add("Bollinger Upper Breakout", models.SignalAttention, utils.RoundHalfUp(bb.PercentB, 2),
				fmt.Sprintf("Price ($%.2f) closed above upper Bollinger Band ($%.2f)", price, bb.Upper))
		} else if price < bb.Lower {
			add("Bollinger Lower Breakout", models.SignalAttention, utils.RoundHalfUp(bb.PercentB, 2),
				fmt.Sprintf("Price ($%.2f) closed below lower Bollinger Band ($%.2f)", price, bb.Lower))
		}
	}

	// --- Large daily move ---
	if move, ok := LargeDailyMove(closes, th.LargeMovePct); ok && move.IsLarge {
		name, sign := "Large Drop", ""
		if move.ChangePct > 0 {
			name, sign = "Large Rally", "+"
		}
		add(name, models.SignalAttention, utils.RoundHalfUp(move.ChangePct, 2),
			fmt.Sprintf("Price moved %s%.1f%% in one day", sign, move.ChangePct))
	}

	return signals
}

// CountByType tallies signals per type.
func CountByType(signals []models.TechnicalSignal) map[models.SignalType]int {
	counts := make(map[models.SignalType]int)
	for _, s := range signals {
		counts[s.Type]++
	}
	return counts
}

// Summarize renders a one-line tally such as "2 buy, 1 attention".
func Summarize(signals []models.TechnicalSignal) string {
	if len(signals) == 0 {
		return "no signals"
	}
	counts := CountByType(signals)
	order := []models.SignalType{models.SignalBuy, models.SignalSell, models.SignalSwing, models.SignalAttention}
	parts := make([]string, 0, len(counts))
	for _, t := range order {
		if c := counts[t]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, t))
		}
	}
	return strings.Join(parts, ", ")
}

// GroupByTicker splits a flat signal list per ticker, keeping order inside
// each group. Tickers are returned sorted.
func GroupByTicker(signals []models.TechnicalSignal) ([]string, map[string][]models.TechnicalSignal) {
	groups := make(map[string][]models.TechnicalSignal)
	for _, s := range signals {
		groups[s.Ticker] = append(groups[s.Ticker], s)
	}
	tickers := make([]string, 0, len(groups))
	for t := range groups {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers, groups
}
