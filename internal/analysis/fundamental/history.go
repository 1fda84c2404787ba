package fundamental

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// chronological returns a reversed copy of a newest-first slice.
// The input is never modified.
func chronological[T any](newestFirst []T) []T {
	out := slices.Clone(newestFirst)
	slices.Reverse(out)
	return out
}

// RevenueGrowthRates returns year-over-year revenue growth in percent,
// oldest pair first. Pairs with a non-positive prior revenue are skipped.
func RevenueGrowthRates(incomeNewestFirst []models.IncomeStatementYear) []float64 {
	sorted := chronological(incomeNewestFirst)
	var rates []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Revenue > 0 {
			rates = append(rates, pctChange(sorted[i-1].Revenue, sorted[i].Revenue))
		}
	}
	return rates
}

// NetMargins returns net income over revenue in percent, oldest first,
// for years with positive revenue.
func NetMargins(incomeNewestFirst []models.IncomeStatementYear) []float64 {
	var margins []float64
	for _, s := range chronological(incomeNewestFirst) {
		if s.Revenue > 0 {
			margins = append(margins, s.NetIncome/s.Revenue*100)
		}
	}
	return margins
}

// PERatios keeps the positive, finite P/E readings in input order.
func PERatios(keyMetrics []models.KeyMetricYear) []float64 {
	var pes []float64
	for _, k := range keyMetrics {
		if k.PERatio > 0 && !math.IsInf(k.PERatio, 0) && !math.IsNaN(k.PERatio) {
			pes = append(pes, k.PERatio)
		}
	}
	return pes
}

// FCFGrowthRates returns year-over-year free cash flow growth in percent.
// Only pairs where both years are cash-generative count.
func FCFGrowthRates(cashFlowsNewestFirst []models.CashFlowYear) []float64 {
	sorted := chronological(cashFlowsNewestFirst)
	var rates []float64
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1].FreeCashFlow, sorted[i].FreeCashFlow
		if prev > 0 && curr > 0 {
			rates = append(rates, pctChange(prev, curr))
		}
	}
	return rates
}

// pctChange calculates the percentage change from old to new.
func pctChange(old, new float64) float64 {
	if old == 0 {
		return 0
	}
	return (new - old) / math.Abs(old) * 100
}

// tail returns the last n values (or all of them).
func tail(vals []float64, n int) []float64 {
	if len(vals) > n {
		return vals[len(vals)-n:]
	}
	return vals
}

// mean is the arithmetic mean, 0 for an empty slice.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// maxOr and minOr return the extreme value, or fallback when vals is empty.
func maxOr(vals []float64, fallback float64) float64 {
	if len(vals) == 0 {
		return fallback
	}
	return floats.Max(vals)
}

func minOr(vals []float64, fallback float64) float64 {
	if len(vals) == 0 {
		return fallback
	}
	return floats.Min(vals)
}

// orDefault mirrors "value or fallback" when a computed average is zero.
func orDefault(v, fallback float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return fallback
	}
	return v
}
