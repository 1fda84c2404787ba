package technical

import (
	"math"
	"strings"
	"testing"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// makeCloses generates a linear close series.
func makeCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

// makeSeries wraps closes into price points with a constant volume.
func makeSeries(closes []float64, volume float64) []models.PricePoint {
	series := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		series[i] = models.PricePoint{Close: c, Volume: volume}
	}
	return series
}

// flatThenJump is 200 closes at 100 followed by one close at last.
func flatThenJump(last float64) []models.PricePoint {
	closes := makeCloses(200, 100, 0)
	closes = append(closes, last)
	return makeSeries(closes, 1_000_000)
}

func signalNames(signals []models.TechnicalSignal) []string {
	names := make([]string, len(signals))
	for i, s := range signals {
		names[i] = s.Signal
	}
	return names
}

func findSignal(signals []models.TechnicalSignal, name string) (models.TechnicalSignal, bool) {
	for _, s := range signals {
		if s.Signal == name {
			return s, true
		}
	}
	return models.TechnicalSignal{}, false
}

// ── RSI ──

func TestRSIMonotonicIsHundred(t *testing.T) {
	rsi, ok := RSI(makeCloses(15, 100, 1), 14)
	if !ok {
		t.Fatal("RSI should be available with period+1 closes")
	}
	if rsi != 100 {
		t.Errorf("expected RSI exactly 100 for rising series, got %v", rsi)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, ok := RSI(makeCloses(14, 100, 1), 14); ok {
		t.Error("RSI should be absent with only period closes")
	}
	if _, ok := RSI(nil, 14); ok {
		t.Error("RSI should be absent for empty input")
	}
}

func TestRSIFallingIsZero(t *testing.T) {
	rsi, ok := RSI(makeCloses(30, 200, -2), 14)
	if !ok || rsi != 0 {
		t.Errorf("expected RSI 0 for falling series, got %v (ok=%v)", rsi, ok)
	}
}

func TestRSIBalancedIsFifty(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 101
		}
	}
	rsi, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI unexpectedly absent")
	}
	if math.Abs(rsi-50) > 1e-9 {
		t.Errorf("expected RSI 50 for equal gains and losses, got %v", rsi)
	}
}

func TestRSIDefaultPeriod(t *testing.T) {
	a, _ := RSI(makeCloses(40, 50, 0.5), 0)
	b, _ := RSI(makeCloses(40, 50, 0.5), 14)
	if a != b {
		t.Errorf("period 0 should fall back to 14: %v vs %v", a, b)
	}
}

// ── Moving averages ──

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4, 5}, 5)
	if !ok || v != 3 {
		t.Errorf("SMA([1..5], 5) = %v, %v; want 3", v, ok)
	}
	v, ok = SMA([]float64{10, 1, 2, 3, 4, 5}, 5)
	if !ok || v != 3 {
		t.Errorf("SMA should use only the last period values, got %v", v)
	}
	if _, ok := SMA([]float64{1, 2, 3}, 5); ok {
		t.Error("SMA should be absent for insufficient data")
	}
	if _, ok := SMA([]float64{1, 2, 3}, 0); ok {
		t.Error("SMA should be absent for period 0")
	}
}

func TestSMAPair(t *testing.T) {
	p, ok := SMAPair([]float64{1, 2, 3, 4, 5, 6}, 5)
	if !ok {
		t.Fatal("SMAPair unexpectedly absent")
	}
	if p.Prev != 3 || p.Curr != 4 {
		t.Errorf("SMAPair = %+v, want {3 4}", p)
	}
	if _, ok := SMAPair([]float64{1, 2, 3, 4, 5}, 5); ok {
		t.Error("SMAPair requires period+1 values")
	}
}

func TestEMA(t *testing.T) {
	v, ok := EMA([]float64{1, 2, 3}, 3)
	if !ok || v != 2 {
		t.Errorf("EMA seed should be the SMA, got %v", v)
	}
	// k = 0.5 for period 3: 4*0.5 + 2*0.5 = 3
	v, ok = EMA([]float64{1, 2, 3, 4}, 3)
	if !ok || v != 3 {
		t.Errorf("EMA([1,2,3,4], 3) = %v, want 3", v)
	}
	if _, ok := EMA([]float64{1, 2}, 3); ok {
		t.Error("EMA should be absent for insufficient data")
	}
}

func TestEMAPair(t *testing.T) {
	p, ok := EMAPair([]float64{1, 2, 3, 4}, 3)
	if !ok {
		t.Fatal("EMAPair unexpectedly absent")
	}
	if p.Prev != 2 || p.Curr != 3 {
		t.Errorf("EMAPair = %+v, want {2 3}", p)
	}
	if _, ok := EMAPair([]float64{1, 2, 3}, 3); ok {
		t.Error("EMAPair requires period+1 values")
	}
}

func TestSeriesHelpers(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	sma := SMASeries(data, 3)
	if len(sma) != 6 || sma[2] != 2 || sma[5] != 5 {
		t.Errorf("SMASeries = %v", sma)
	}
	ema := EMASeries(data, 3)
	last, _ := EMA(data, 3)
	if len(ema) != 6 || ema[5] != last {
		t.Errorf("EMASeries last = %v, EMA = %v", ema[len(ema)-1], last)
	}
	if SMASeries(data, 10) != nil || EMASeries(data, 10) != nil {
		t.Error("series helpers should return nil for insufficient data")
	}
}

func TestCrossHelpers(t *testing.T) {
	if !CrossedAbove(Pair{Prev: 1, Curr: 3}, Pair{Prev: 1, Curr: 2}) {
		t.Error("equal then above should be a cross above")
	}
	if CrossedAbove(Pair{Prev: 2, Curr: 3}, Pair{Prev: 1, Curr: 2}) {
		t.Error("already above is not a cross")
	}
	if !CrossedBelow(Pair{Prev: 2, Curr: 1}, Pair{Prev: 2, Curr: 2}) {
		t.Error("equal then below should be a cross below")
	}
}

// ── MACD ──

func TestMACDBoundaryLength(t *testing.T) {
	if _, ok := MACD(makeCloses(35, 100, 0.5), 12, 26, 9); ok {
		t.Error("MACD should be absent with 35 closes")
	}
	if _, ok := MACD(makeCloses(36, 100, 0.5), 12, 26, 9); !ok {
		t.Error("MACD should be available with 36 closes")
	}
}

func TestMACDUptrend(t *testing.T) {
	m, ok := MACD(makeCloses(120, 100, 1), 0, 0, 0)
	if !ok {
		t.Fatal("MACD unexpectedly absent")
	}
	if m.MACDLine <= 0 {
		t.Errorf("expected positive MACD line in uptrend, got %.4f", m.MACDLine)
	}
	if math.Abs(m.Histogram-(m.MACDLine-m.SignalLine)) > 1e-12 {
		t.Error("histogram must equal macd - signal")
	}
}

func TestMACDFlatSeries(t *testing.T) {
	m, ok := MACD(makeCloses(60, 100, 0), 12, 26, 9)
	if !ok {
		t.Fatal("MACD unexpectedly absent")
	}
	if math.Abs(m.Histogram) > 1e-9 || math.Abs(m.PrevHistogram) > 1e-9 {
		t.Errorf("flat series should have ~zero histogram, got %+v", m)
	}
}

func TestMACDPrevHistogramMatchesShorterSeries(t *testing.T) {
	closes := randomWalk(150, 7)
	full, _ := MACD(closes, 12, 26, 9)
	shorter, _ := MACD(closes[:len(closes)-1], 12, 26, 9)
	if math.Abs(full.PrevHistogram-shorter.Histogram) > 1e-9 {
		t.Errorf("PrevHistogram %v should equal histogram one bar earlier %v", full.PrevHistogram, shorter.Histogram)
	}
}

// ── Bollinger ──

func TestBollingerFlatBands(t *testing.T) {
	b, ok := BollingerBands(makeCloses(20, 100, 0), 20, 2)
	if !ok {
		t.Fatal("Bollinger should be available with exactly period closes")
	}
	if b.Bandwidth != 0 || b.PercentB != 0.5 {
		t.Errorf("flat series: bandwidth=%v percentB=%v, want 0 and 0.5", b.Bandwidth, b.PercentB)
	}
	if b.Upper != 100 || b.Lower != 100 || b.Middle != 100 {
		t.Errorf("flat series bands should collapse to 100: %+v", b)
	}
}

func TestBollingerPopulationStdDev(t *testing.T) {
	closes := makeCloses(20, 1, 1) // 1..20
	b, ok := BollingerBands(closes, 20, 2)
	if !ok {
		t.Fatal("Bollinger unexpectedly absent")
	}
	sd := math.Sqrt(33.25) // population variance of 1..20
	if math.Abs(b.Middle-10.5) > 1e-9 {
		t.Errorf("middle = %v, want 10.5", b.Middle)
	}
	if math.Abs(b.Upper-(10.5+2*sd)) > 1e-9 || math.Abs(b.Lower-(10.5-2*sd)) > 1e-9 {
		t.Errorf("bands = %+v, want ±%v", b, 2*sd)
	}
	wantB := (20 - b.Lower) / b.Bandwidth
	if math.Abs(b.PercentB-wantB) > 1e-12 {
		t.Errorf("percentB = %v, want %v", b.PercentB, wantB)
	}
}

func TestBollingerInsufficientData(t *testing.T) {
	if _, ok := BollingerBands(makeCloses(19, 100, 1), 20, 2); ok {
		t.Error("Bollinger should be absent with 19 closes")
	}
}

// ── Daily move and volume ──

func TestLargeDailyMove(t *testing.T) {
	m, ok := LargeDailyMove([]float64{100, 104}, 3)
	if !ok || !m.IsLarge || math.Abs(m.ChangePct-4) > 1e-9 {
		t.Errorf("100→104 should be a large +4%% move, got %+v (ok=%v)", m, ok)
	}
	m, ok = LargeDailyMove([]float64{100, 98}, 3)
	if !ok || m.IsLarge {
		t.Errorf("-2%% should not be large, got %+v", m)
	}
	m, ok = LargeDailyMove([]float64{100, 95}, 3)
	if !ok || !m.IsLarge || m.ChangePct >= 0 {
		t.Errorf("-5%% should be a large drop, got %+v", m)
	}
	if _, ok := LargeDailyMove([]float64{100}, 3); ok {
		t.Error("single close should be absent")
	}
	if _, ok := LargeDailyMove([]float64{0, 5}, 3); ok {
		t.Error("zero previous close should be absent")
	}
}

func TestVolumeSpike(t *testing.T) {
	vols := makeCloses(20, 100, 0)
	v, ok := VolumeSpike(append(vols, 250), 20, 2)
	if !ok || !v.IsSpike || v.Ratio != 2.5 {
		t.Errorf("expected spike ratio 2.5, got %+v (ok=%v)", v, ok)
	}

	// Only the trailing avgPeriod volumes count.
	vols = append([]float64{1_000_000}, makeCloses(20, 100, 0)...)
	v, ok = VolumeSpike(append(vols, 200), 20, 2)
	if !ok || !v.IsSpike || v.Ratio != 2 {
		t.Errorf("ratio exactly at threshold should spike, got %+v", v)
	}
}

func TestVolumeSpikeZeroAverageIsAbsent(t *testing.T) {
	vols := make([]float64, 20)
	if _, ok := VolumeSpike(append(vols, 5000), 20, 2); ok {
		t.Error("zero trailing average must be absent, not a spike")
	}
}

func TestVolumeSpikeBoundary(t *testing.T) {
	if _, ok := VolumeSpike(makeCloses(20, 100, 0), 20, 2); ok {
		t.Error("VolumeSpike needs avgPeriod+1 volumes")
	}
	if _, ok := VolumeSpike(makeCloses(21, 100, 0), 20, 2); !ok {
		t.Error("VolumeSpike should be available with 21 volumes")
	}
}

func TestNear52WeekExtreme(t *testing.T) {
	e := Near52WeekExtreme(200, 100, 197, 0.02)
	if !e.NearHigh || e.NearLow {
		t.Errorf("197 vs high 200 should be near high: %+v", e)
	}
	e = Near52WeekExtreme(200, 100, 101, 0)
	if !e.NearLow || e.NearHigh {
		t.Errorf("101 vs low 100 should be near low: %+v", e)
	}
	e = Near52WeekExtreme(0, 0, 50, 0.02)
	if e.NearHigh || e.NearLow {
		t.Error("zero bounds never match")
	}
}

// ── Signal detector ──

// tableRank is the documented emission order.
var tableRank = map[string]int{
	"RSI Oversold":             0,
	"RSI Overbought":           0,
	"Golden Cross":             1,
	"Death Cross":              1,
	"Volume Spike":             2,
	"MACD Bullish Crossover":   3,
	"MACD Bearish Crossover":   3,
	"9/21 EMA Bullish Cross":   4,
	"9/21 EMA Bearish Cross":   4,
	"Bollinger Upper Breakout": 5,
	"Bollinger Lower Breakout": 5,
	"Large Rally":              6,
	"Large Drop":               6,
}

func assertTableOrder(t *testing.T, signals []models.TechnicalSignal) {
	t.Helper()
	last := -1
	for _, s := range signals {
		r, ok := tableRank[s.Signal]
		if !ok {
			t.Fatalf("unknown signal %q", s.Signal)
		}
		if r < last {
			t.Errorf("signals out of order: %v", signalNames(signals))
			return
		}
		last = r
	}
}

func TestGoldenCross(t *testing.T) {
	signals := DetectSignals("ACME", flatThenJump(110))
	assertTableOrder(t, signals)

	gc, ok := findSignal(signals, "Golden Cross")
	if !ok {
		t.Fatalf("expected Golden Cross, got %v", signalNames(signals))
	}
	if gc.Type != models.SignalBuy || gc.Ticker != "ACME" {
		t.Errorf("unexpected golden cross: %+v", gc)
	}
	if gc.Value != 100.2 {
		t.Errorf("golden cross value = %v, want 100.2", gc.Value)
	}
	if gc.Description != "50-day SMA ($100.20) crossed above 200-day SMA ($100.05)" {
		t.Errorf("description = %q", gc.Description)
	}
	if _, ok := findSignal(signals, "Death Cross"); ok {
		t.Error("Golden and Death cross must never fire together")
	}

	rsi, ok := findSignal(signals, "RSI Overbought")
	if !ok || rsi.Value != 100 || rsi.Type != models.SignalSell {
		t.Errorf("expected RSI Overbought at 100, got %+v", rsi)
	}
	if _, ok := findSignal(signals, "Bollinger Upper Breakout"); !ok {
		t.Error("expected Bollinger Upper Breakout")
	}
	rally, ok := findSignal(signals, "Large Rally")
	if !ok || rally.Value != 10 || rally.Description != "Price moved +10.0% in one day" {
		t.Errorf("unexpected large rally: %+v", rally)
	}
}

func TestDeathCross(t *testing.T) {
	signals := DetectSignals("ACME", flatThenJump(90))
	assertTableOrder(t, signals)

	dc, ok := findSignal(signals, "Death Cross")
	if !ok {
		t.Fatalf("expected Death Cross, got %v", signalNames(signals))
	}
	if dc.Type != models.SignalSell {
		t.Errorf("death cross type = %s", dc.Type)
	}
	if _, ok := findSignal(signals, "Golden Cross"); ok {
		t.Error("Golden and Death cross must never fire together")
	}
	rsi, ok := findSignal(signals, "RSI Oversold")
	if !ok || rsi.Value != 0 || !strings.Contains(rsi.Description, "oversold territory (below 30)") {
		t.Errorf("expected RSI Oversold at 0, got %+v", rsi)
	}
	if _, ok := findSignal(signals, "Bollinger Lower Breakout"); !ok {
		t.Error("expected Bollinger Lower Breakout")
	}
	drop, ok := findSignal(signals, "Large Drop")
	if !ok || drop.Value != -10 || drop.Description != "Price moved -10.0% in one day" {
		t.Errorf("unexpected large drop: %+v", drop)
	}
}

func TestCrossesNeverFireTogether(t *testing.T) {
	closes := randomWalk(400, 11)
	series := makeSeries(closes, 1_000_000)
	for end := 201; end <= len(series); end++ {
		signals := DetectSignals("RW", series[:end])
		_, golden := findSignal(signals, "Golden Cross")
		_, death := findSignal(signals, "Death Cross")
		if golden && death {
			t.Fatalf("both crosses at length %d", end)
		}
		assertTableOrder(t, signals)
	}
}

func TestVolumeSpikeSignal(t *testing.T) {
	series := makeSeries(makeCloses(30, 100, 0), 1000)
	series[len(series)-1].Volume = 5000
	signals := DetectSignals("VOL", series)
	s, ok := findSignal(signals, "Volume Spike")
	if !ok {
		t.Fatalf("expected Volume Spike, got %v", signalNames(signals))
	}
	if s.Type != models.SignalAttention || s.Value != 5 || s.Description != "Volume is 5.0x the 20-day average" {
		t.Errorf("unexpected volume spike: %+v", s)
	}
}

func TestEMABullishCrossSignal(t *testing.T) {
	closes := makeCloses(30, 200, -1)
	closes = append(closes, closes[len(closes)-1]+100)
	signals := DetectSignals("EMA", makeSeries(closes, 1000))
	s, ok := findSignal(signals, "9/21 EMA Bullish Cross")
	if !ok {
		t.Fatalf("expected 9/21 EMA Bullish Cross, got %v", signalNames(signals))
	}
	if s.Type != models.SignalSwing {
		t.Errorf("type = %s, want swing", s.Type)
	}
	ema9, _ := EMA(closes, 9)
	if s.Value != utils.RoundHalfUp(ema9, 2) {
		t.Errorf("value = %v, want rounded EMA9 %v", s.Value, ema9)
	}
}

func TestEMABearishCrossSignal(t *testing.T) {
	closes := makeCloses(30, 100, 1)
	closes = append(closes, closes[len(closes)-1]-100)
	signals := DetectSignals("EMA", makeSeries(closes, 1000))
	if _, ok := findSignal(signals, "9/21 EMA Bearish Cross"); !ok {
		t.Fatalf("expected 9/21 EMA Bearish Cross, got %v", signalNames(signals))
	}
}

func TestMACDCrossoverSignals(t *testing.T) {
	// Decline then rally: the histogram must flip positive somewhere.
	closes := append(makeCloses(60, 200, -1), makeCloses(40, 141, 2)...)
	flip := -1
	for end := 36; end <= len(closes); end++ {
		m, _ := MACD(closes[:end], 12, 26, 9)
		if m.PrevHistogram <= 0 && m.Histogram > 0 {
			flip = end
			break
		}
	}
	if flip < 0 {
		t.Fatal("test series never flips the MACD histogram")
	}
	signals := DetectSignals("MACD", makeSeries(closes[:flip], 1000))
	s, ok := findSignal(signals, "MACD Bullish Crossover")
	if !ok {
		t.Fatalf("expected MACD Bullish Crossover at length %d, got %v", flip, signalNames(signals))
	}
	m, _ := MACD(closes[:flip], 12, 26, 9)
	if s.Value != utils.RoundHalfUp(m.Histogram, 3) {
		t.Errorf("value = %v, want histogram rounded to 3dp", s.Value)
	}

	// Rally then decline flips negative.
	closes = append(makeCloses(60, 100, 1), makeCloses(40, 158, -2)...)
	flip = -1
	for end := 36; end <= len(closes); end++ {
		m, _ := MACD(closes[:end], 12, 26, 9)
		if m.PrevHistogram >= 0 && m.Histogram < 0 {
			flip = end
			break
		}
	}
	if flip < 0 {
		t.Fatal("test series never flips the MACD histogram negative")
	}
	signals = DetectSignals("MACD", makeSeries(closes[:flip], 1000))
	if _, ok := findSignal(signals, "MACD Bearish Crossover"); !ok {
		t.Errorf("expected MACD Bearish Crossover, got %v", signalNames(signals))
	}
}

func TestDetectSignalsShortSeries(t *testing.T) {
	if got := DetectSignals("X", nil); len(got) != 0 {
		t.Errorf("empty series should yield no signals, got %v", got)
	}
	signals := DetectSignals("X", makeSeries([]float64{100, 110}, 1000))
	if len(signals) != 1 || signals[0].Signal != "Large Rally" {
		t.Errorf("two points can only produce a daily move, got %v", signalNames(signals))
	}
}

func TestDetectSignalsWithThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.LargeMovePct = 15
	signals := DetectSignalsWith("ACME", flatThenJump(110), th)
	if _, ok := findSignal(signals, "Large Rally"); ok {
		t.Error("10% move should not trigger with a 15% threshold")
	}
	if _, ok := findSignal(signals, "Golden Cross"); !ok {
		t.Error("threshold changes must not affect crosses")
	}
}

func TestSummarize(t *testing.T) {
	signals := []models.TechnicalSignal{
		{Ticker: "B", Signal: "Golden Cross", Type: models.SignalBuy},
		{Ticker: "A", Signal: "Volume Spike", Type: models.SignalAttention},
		{Ticker: "B", Signal: "RSI Oversold", Type: models.SignalBuy},
	}
	if got := Summarize(signals); got != "2 buy, 1 attention" {
		t.Errorf("Summarize = %q", got)
	}
	if got := Summarize(nil); got != "no signals" {
		t.Errorf("Summarize(nil) = %q", got)
	}
	tickers, groups := GroupByTicker(signals)
	if len(tickers) != 2 || tickers[0] != "A" || len(groups["B"]) != 2 {
		t.Errorf("GroupByTicker = %v %v", tickers, groups)
	}
	if groups["B"][0].Signal != "Golden Cross" {
		t.Error("GroupByTicker must keep per-ticker order")
	}
}

// ── Snapshot and levels ──

func TestSnapshot(t *testing.T) {
	s := Snapshot(makeCloses(250, 100, 0.5))
	if s.Points != 250 || s.Price != 100+249*0.5 {
		t.Errorf("snapshot price/points = %v/%d", s.Price, s.Points)
	}
	for _, p := range StandardPeriods {
		if _, ok := s.SMA[p]; !ok {
			t.Errorf("missing SMA%d", p)
		}
	}
	if s.MACD == nil || s.Bands == nil || s.RSI != 100 {
		t.Errorf("snapshot missing indicators: %+v", s)
	}

	short := Snapshot(makeCloses(10, 100, 1))
	if short.MACD != nil || short.Bands != nil || len(short.SMA) != 1 {
		t.Errorf("short snapshot should skip long lookbacks: %+v", short)
	}
}

func TestKeyLevels(t *testing.T) {
	// Oscillate between 90 and 110 and finish at 100.
	var closes []float64
	for i := 0; i < 6; i++ {
		closes = append(closes, makeCloses(10, 90, 2)...)  // 90..108
		closes = append(closes, makeCloses(10, 110, -2)...) // 110..92
	}
	closes = append(closes, 100)
	lv := KeyLevels(makeSeries(closes, 1000), 5, 0.015)
	if len(lv.Supports) == 0 || len(lv.Resistances) == 0 {
		t.Fatalf("expected both supports and resistances: %+v", lv)
	}
	if lv.Supports[0] >= 100 || lv.Resistances[0] < 100 {
		t.Errorf("levels on wrong side of price: %+v", lv)
	}
	if lv.ValueAreaLow > lv.PointOfControl || lv.PointOfControl > lv.ValueAreaHigh {
		t.Errorf("value area should bracket the POC: %+v", lv)
	}

	empty := KeyLevels(nil, 5, 0)
	if len(empty.Supports) != 0 || empty.PointOfControl != 0 {
		t.Errorf("empty input should give zero levels: %+v", empty)
	}
}
