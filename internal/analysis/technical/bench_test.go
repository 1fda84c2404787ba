package technical

import (
	"math/rand"
	"testing"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// benchSeries creates synthetic daily history for benchmarks.
func benchSeries(n int) []models.PricePoint {
	series := make([]models.PricePoint, n)
	rng := rand.New(rand.NewSource(42))
	price := 180.0

	for i := range series {
		price += (rng.Float64() - 0.48) * 4 // slight upward bias
		if price < 1 {
			price = 1
		}
		series[i] = models.PricePoint{
			Close:  price,
			Volume: float64(rng.Intn(50_000_000) + 1_000_000),
		}
	}
	return series
}

// ── Moving Average Benchmarks ──

func BenchmarkSMA50_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SMA(data, 50)
	}
}

func BenchmarkSMAPair200_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SMAPair(data, 200)
	}
}

func BenchmarkEMAPair21_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EMAPair(data, 21)
	}
}

// ── Oscillator Benchmarks ──

func BenchmarkRSI14_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RSI(data, 14)
	}
}

func BenchmarkRSI14_1000(b *testing.B) {
	data := models.Closes(benchSeries(1000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RSI(data, 14)
	}
}

func BenchmarkMACD_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MACD(data, 12, 26, 9)
	}
}

func BenchmarkBollingerBands_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BollingerBands(data, 20, 2)
	}
}

// ── Signal Benchmarks ──

func BenchmarkDetectSignals_220(b *testing.B) {
	series := benchSeries(220)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DetectSignals("BENCH", series)
	}
}

func BenchmarkDetectSignals_1000(b *testing.B) {
	series := benchSeries(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DetectSignals("BENCH", series)
	}
}

func BenchmarkKeyLevels_220(b *testing.B) {
	series := benchSeries(220)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		KeyLevels(series, 5, 0.015)
	}
}

func BenchmarkSnapshot_220(b *testing.B) {
	data := models.Closes(benchSeries(220))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Snapshot(data)
	}
}
