package fundamental

import (
	"math"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// Fallbacks used when history cannot produce an assumption.
const (
	DefaultRevGrowthPct = 10.0
	DefaultNetMarginPct = 10.0
	DefaultPEHigh       = 20.0
	DefaultPELow        = 12.0
)

// ComputeProjections compounds revenue year over year from baseRevenue and
// derives net income, EPS and the implied share price band for each input.
// EPS is 0 when shares is not positive.
func ComputeProjections(inputs []models.ProjectionYearInput, baseRevenue, shares float64) []models.ProjectionRow {
	rows := make([]models.ProjectionRow, 0, len(inputs))
	prevRevenue := baseRevenue

	for i, in := range inputs {
		revenue := prevRevenue * (1 + in.RevGrowthPct/100)
		netIncome := revenue * (in.NetMarginPct / 100)
		eps := 0.0
		if shares > 0 {
			eps = netIncome / shares
		}

		rows = append(rows, models.ProjectionRow{
			Year:           i + 1,
			Revenue:        revenue,
			RevGrowthPct:   in.RevGrowthPct,
			NetIncome:      netIncome,
			NetMarginPct:   in.NetMarginPct,
			EPS:            eps,
			PEHigh:         in.PEHigh,
			PELow:          in.PELow,
			SharePriceHigh: eps * in.PEHigh,
			SharePriceLow:  eps * in.PELow,
		})
		prevRevenue = revenue
	}
	return rows
}

// ComputeCAGR returns the compound annual growth rate in percent, or 0 if
// any argument is not positive.
func ComputeCAGR(current, future, years float64) float64 {
	if current <= 0 || future <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(future/current, 1/years) - 1) * 100
}

// DeriveProjectionCases builds base, bull and bear scenarios from history.
//
// Base averages the three most recent growth rates and margins and the mean
// P/E. Bull and bear take the historical max and min; without history they
// scale the base case instead. Every year of a case carries the same values.
func DeriveProjectionCases(incomeNewestFirst []models.IncomeStatementYear, keyMetrics []models.KeyMetricYear) models.ProjectionCases {
	growth := RevenueGrowthRates(incomeNewestFirst)
	margins := NetMargins(incomeNewestFirst)
	pes := PERatios(keyMetrics)

	baseGrowth := orDefault(mean(tail(growth, 3)), DefaultRevGrowthPct)
	baseMargin := orDefault(mean(tail(margins, 3)), DefaultNetMarginPct)
	basePEHigh := orDefault(mean(pes), DefaultPEHigh)

	bullPEHigh := maxOr(pes, basePEHigh*1.3)
	bearPEHigh := minOr(pes, basePEHigh*0.7)

	return models.ProjectionCases{
		Base: broadcast(models.CaseBase, baseGrowth, baseMargin, basePEHigh, basePEHigh*0.6),
		Bull: broadcast(models.CaseBull,
			maxOr(growth, baseGrowth*1.5),
			maxOr(margins, baseMargin*1.3),
			bullPEHigh, bullPEHigh*0.7),
		Bear: broadcast(models.CaseBear,
			minOr(growth, baseGrowth*0.5),
			minOr(margins, baseMargin*0.7),
			bearPEHigh, bearPEHigh*0.6),
	}
}

// DefaultProjectionCases is the starting state before any history loads.
func DefaultProjectionCases() models.ProjectionCases {
	return models.ProjectionCases{
		Base: broadcast(models.CaseBase, DefaultRevGrowthPct, DefaultNetMarginPct, DefaultPEHigh, DefaultPELow),
		Bull: broadcast(models.CaseBull, DefaultRevGrowthPct, DefaultNetMarginPct, DefaultPEHigh, DefaultPELow),
		Bear: broadcast(models.CaseBear, DefaultRevGrowthPct, DefaultNetMarginPct, DefaultPEHigh, DefaultPELow),
	}
}

func broadcast(name models.CaseName, growth, margin, peHigh, peLow float64) models.ProjectionCase {
	in := models.ProjectionYearInput{
		RevGrowthPct: utils.RoundHalfUp(growth, 1),
		NetMarginPct: utils.RoundHalfUp(margin, 1),
		PEHigh:       utils.RoundHalfUp(peHigh, 1),
		PELow:        utils.RoundHalfUp(peLow, 1),
	}
	c := models.ProjectionCase{Name: name}
	for i := range c.Years {
		c.Years[i] = in
	}
	return c
}

// Summarize runs one scenario and reports the price CAGR implied by the
// final year's high and low share price against the current price.
func Summarize(c models.ProjectionCase, baseRevenue, shares, price float64) models.ProjectionSummary {
	s := SummarizeInputs(c.Years[:], baseRevenue, shares, price)
	s.Case = c.Name
	return s
}

// SummarizeInputs is Summarize for an arbitrary number of years.
func SummarizeInputs(inputs []models.ProjectionYearInput, baseRevenue, shares, price float64) models.ProjectionSummary {
	rows := ComputeProjections(inputs, baseRevenue, shares)
	s := models.ProjectionSummary{Rows: rows}
	if len(rows) == 0 {
		return s
	}
	last := rows[len(rows)-1]
	years := float64(len(rows))
	s.CAGRHigh = ComputeCAGR(price, last.SharePriceHigh, years)
	s.CAGRLow = ComputeCAGR(price, last.SharePriceLow, years)
	return s
}
