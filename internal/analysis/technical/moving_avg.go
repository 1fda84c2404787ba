package technical

import (
	"gonum.org/v1/gonum/stat"
)

// Pair is a moving average one bar ago and now, for crossover detection.
type Pair struct {
	Prev float64 `json:"prev"`
	Curr float64 `json:"curr"`
}

// CrossedAbove reports whether a moved from at-or-below b to strictly above it.
func CrossedAbove(a, b Pair) bool {
	return a.Prev <= b.Prev && a.Curr > b.Curr
}

// CrossedBelow reports whether a moved from at-or-above b to strictly below it.
func CrossedBelow(a, b Pair) bool {
	return a.Prev >= b.Prev && a.Curr < b.Curr
}

// SMA returns the arithmetic mean of the last period values.
func SMA(data []float64, period int) (float64, bool) {
	if period <= 0 || len(data) < period {
		return 0, false
	}
	return stat.Mean(data[len(data)-period:], nil), true
}

// SMAPair returns the SMA excluding and including the last point.
// Requires len(data) >= period+1.
func SMAPair(data []float64, period int) (Pair, bool) {
	if period <= 0 || len(data) < period+1 {
		return Pair{}, false
	}
	prev, _ := SMA(data[:len(data)-1], period)
	curr, _ := SMA(data, period)
	return Pair{Prev: prev, Curr: curr}, true
}

// EMA returns the exponential moving average at the last point. The seed is
// the SMA of the first period values, then k = 2/(period+1).
func EMA(data []float64, period int) (float64, bool) {
	if period <= 0 || len(data) < period {
		return 0, false
	}
	vals := emaCalc(data, period)
	return vals[len(vals)-1], true
}

// EMAPair returns the EMA excluding and including the last point.
func EMAPair(data []float64, period int) (Pair, bool) {
	if period <= 0 || len(data) < period+1 {
		return Pair{}, false
	}
	prev, _ := EMA(data[:len(data)-1], period)
	curr, _ := EMA(data, period)
	return Pair{Prev: prev, Curr: curr}, true
}

// SMASeries calculates a full-length SMA series. Entries before the first
// complete window are zero. Returns nil for insufficient data.
func SMASeries(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// EMASeries calculates a full-length EMA series. Entries before the seed
// are zero. Returns nil for insufficient data.
func EMASeries(data []float64, period int) []float64 {
	if period <= 0 || len(data) < period {
		return nil
	}
	return emaCalc(data, period)
}

// TrendSnapshot summarises where price sits relative to its averages.
type TrendSnapshot struct {
	Price  float64         `json:"price"`
	SMA    map[int]float64 `json:"sma"`
	EMA    map[int]float64 `json:"ema"`
	RSI    float64         `json:"rsi,omitempty"`
	MACD   *MACDResult     `json:"macd,omitempty"`
	Bands  *Bollinger      `json:"bollinger,omitempty"`
	Points int             `json:"points"`
}

// StandardPeriods are the moving average periods reported in snapshots.
var StandardPeriods = []int{9, 21, 50, 200}

// Snapshot computes every available indicator on closes. Indicators whose
// lookback exceeds the series are left out.
func Snapshot(closes []float64) TrendSnapshot {
	s := TrendSnapshot{
		SMA:    make(map[int]float64),
		EMA:    make(map[int]float64),
		Points: len(closes),
	}
	if len(closes) == 0 {
		return s
	}
	s.Price = closes[len(closes)-1]
	for _, p := range StandardPeriods {
		if v, ok := SMA(closes, p); ok {
			s.SMA[p] = v
		}
		if v, ok := EMA(closes, p); ok {
			s.EMA[p] = v
		}
	}
	if v, ok := RSI(closes, DefaultRSIPeriod); ok {
		s.RSI = v
	}
	if m, ok := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal); ok {
		s.MACD = &m
	}
	if b, ok := BollingerBands(closes, DefaultBollingerPeriod, DefaultBollingerMult); ok {
		s.Bands = &b
	}
	return s
}
