// Package technical implements technical indicators and signal detection
// over daily close/volume history. Every series is ordered oldest to newest.
//
// Indicators return (value, ok). ok is false when the series is shorter than
// the indicator's lookback or the input is degenerate; callers skip the
// indicator rather than treat the zero value as a reading.
package technical

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Default indicator parameters.
const (
	DefaultRSIPeriod       = 14
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultBollingerPeriod = 20
	DefaultBollingerMult   = 2.0
	DefaultMoveThreshold   = 3.0 // percent
	DefaultVolumePeriod    = 20
	DefaultSpikeRatio      = 2.0
	DefaultExtremeDistance = 0.02
)

// RSI calculates the Relative Strength Index with Wilder smoothing.
// Returns 100 when the average loss is exactly zero.
// Requires len(closes) >= period+1.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	n := len(closes)
	if n < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACDResult holds the latest MACD reading and the histogram one bar earlier.
type MACDResult struct {
	MACDLine      float64 `json:"macd_line"`
	SignalLine    float64 `json:"signal_line"`
	Histogram     float64 `json:"histogram"`
	PrevHistogram float64 `json:"prev_histogram"`
}

// MACD calculates the Moving Average Convergence Divergence.
//
// Both EMAs are seeded with the SMA of their own first window, and both are
// first advanced at index slow, so the MACD series starts where the slow
// seed becomes available. The signal line is an EMA of that series.
// PrevHistogram is recomputed on the series without its last point.
// Requires len(closes) >= slow+signal+1.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, bool) {
	if fast <= 0 {
		fast = DefaultMACDFast
	}
	if slow <= 0 {
		slow = DefaultMACDSlow
	}
	if signal <= 0 {
		signal = DefaultMACDSignal
	}
	n := len(closes)
	if n < slow+signal+1 || fast > slow {
		return MACDResult{}, false
	}

	kFast := 2.0 / float64(fast+1)
	kSlow := 2.0 / float64(slow+1)
	emaFast := avg(closes[:fast])
	emaSlow := avg(closes[:slow])

	series := make([]float64, 0, n-slow)
	for i := slow; i < n; i++ {
		emaFast = closes[i]*kFast + emaFast*(1-kFast)
		emaSlow = closes[i]*kSlow + emaSlow*(1-kSlow)
		series = append(series, emaFast-emaSlow)
	}

	signalLine, _ := EMA(series, signal)
	prevSignal, _ := EMA(series[:len(series)-1], signal)

	macdLine := series[len(series)-1]
	prevMACD := series[len(series)-2]
	return MACDResult{
		MACDLine:      macdLine,
		SignalLine:    signalLine,
		Histogram:     macdLine - signalLine,
		PrevHistogram: prevMACD - prevSignal,
	}, true
}

// Bollinger holds the latest Bollinger Band values.
type Bollinger struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Bandwidth float64 `json:"bandwidth"` // upper - lower
	PercentB  float64 `json:"percent_b"`
}

// BollingerBands calculates bands over the last period closes using the
// population standard deviation. PercentB is 0.5 when the bands collapse.
func BollingerBands(closes []float64, period int, mult float64) (Bollinger, bool) {
	if period <= 0 {
		period = DefaultBollingerPeriod
	}
	if mult <= 0 {
		mult = DefaultBollingerMult
	}
	n := len(closes)
	if n < period {
		return Bollinger{}, false
	}

	window := closes[n-period:]
	mean, variance := stat.PopMeanVariance(window, nil)
	sd := math.Sqrt(variance)

	b := Bollinger{
		Upper:  mean + mult*sd,
		Middle: mean,
		Lower:  mean - mult*sd,
	}
	b.Bandwidth = b.Upper - b.Lower
	if b.Bandwidth == 0 {
		b.PercentB = 0.5
	} else {
		b.PercentB = (closes[n-1] - b.Lower) / b.Bandwidth
	}
	return b, true
}

// DailyMove is the percent change between the last two closes.
type DailyMove struct {
	ChangePct float64 `json:"change_pct"`
	IsLarge   bool    `json:"is_large"`
}

// LargeDailyMove flags a last-bar move of at least thresholdPct percent in
// either direction. Absent with fewer than two closes or a zero prior close.
func LargeDailyMove(closes []float64, thresholdPct float64) (DailyMove, bool) {
	if thresholdPct <= 0 {
		thresholdPct = DefaultMoveThreshold
	}
	n := len(closes)
	if n < 2 {
		return DailyMove{}, false
	}
	prev, curr := closes[n-2], closes[n-1]
	if prev == 0 {
		return DailyMove{}, false
	}
	change := (curr - prev) / prev * 100
	return DailyMove{ChangePct: change, IsLarge: math.Abs(change) >= thresholdPct}, true
}

// VolumeSpikeResult compares the latest volume to its trailing average.
type VolumeSpikeResult struct {
	Ratio   float64 `json:"ratio"`
	IsSpike bool    `json:"is_spike"`
}

// VolumeSpike returns the ratio of the last volume to the mean of the
// avgPeriod volumes before it. Absent when that mean is zero.
func VolumeSpike(volumes []float64, avgPeriod int, thresholdRatio float64) (VolumeSpikeResult, bool) {
	if avgPeriod <= 0 {
		avgPeriod = DefaultVolumePeriod
	}
	if thresholdRatio <= 0 {
		thresholdRatio = DefaultSpikeRatio
	}
	n := len(volumes)
	if n < avgPeriod+1 {
		return VolumeSpikeResult{}, false
	}
	trailing := avg(volumes[n-avgPeriod-1 : n-1])
	if trailing == 0 {
		return VolumeSpikeResult{}, false
	}
	ratio := volumes[n-1] / trailing
	return VolumeSpikeResult{Ratio: ratio, IsSpike: ratio >= thresholdRatio}, true
}

// Extremes reports proximity to the 52-week range.
type Extremes struct {
	NearHigh bool `json:"near_high"`
	NearLow  bool `json:"near_low"`
}

// Near52WeekExtreme reports whether price is within distance (a fraction,
// 0.02 = 2%) of the 52-week high or low. Non-positive bounds never match.
func Near52WeekExtreme(high52, low52, price, distance float64) Extremes {
	if distance <= 0 {
		distance = DefaultExtremeDistance
	}
	return Extremes{
		NearHigh: high52 > 0 && (high52-price)/high52 <= distance,
		NearLow:  low52 > 0 && (price-low52)/low52 <= distance,
	}
}

// --- helper functions ---

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func emaCalc(data []float64, period int) []float64 {
	n := len(data)
	if n == 0 || period <= 0 {
		return make([]float64, n)
	}

	ema := make([]float64, n)
	k := 2.0 / float64(period+1)

	// Seed with SMA of first `period` values.
	if n < period {
		return ema
	}
	ema[period-1] = avg(data[:period])

	for i := period; i < n; i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}

	return ema
}
