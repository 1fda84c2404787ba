package fundamental

import (
	"errors"
	"math"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// DCF defaults, in percent and years.
const (
	DefaultDiscountRatePct = 10.0
	DefaultPerpetualGrowth = 3.0
	DefaultFCFGrowthPct    = 10.0
	DefaultProjectionYears = 10

	minDerivedFCFGrowthPct = -5.0
	maxDerivedFCFGrowthPct = 50.0

	undervaluedMarginPct = 25.0
	fairValueFloorPct    = -10.0
)

// DefaultDCFInputs returns the stock assumptions: 10% discount, 3%
// perpetual growth, 10% FCF growth over 10 years.
func DefaultDCFInputs() models.DCFInputs {
	return models.DCFInputs{
		DiscountRatePct:        DefaultDiscountRatePct,
		PerpetualGrowthRatePct: DefaultPerpetualGrowth,
		FCFGrowthRatePct:       DefaultFCFGrowthPct,
		ProjectionYears:        DefaultProjectionYears,
	}
}

// ErrDiscountRate reports a discount rate at or below -100%, where the
// discount factor (1+r)^t stops being positive.
var ErrDiscountRate = errors.New("discount rate must be above -100%")

// ValidateDCFInputs rejects assumptions ComputeDCF cannot discount with.
func ValidateDCFInputs(in models.DCFInputs) error {
	if !(in.DiscountRatePct > -100) {
		return ErrDiscountRate
	}
	return nil
}

// ComputeDCF performs a single-stage discounted cash flow valuation.
//
// FCF grows at the FCF growth rate for ProjectionYears and each year is
// discounted at the discount rate. The Gordon terminal value is only
// applied when the discount rate exceeds perpetual growth; otherwise it is
// 0. A non-positive horizon yields empty series and no terminal value.
func ComputeDCF(baseFCF, cash, debt, shares, price float64, in models.DCFInputs) models.DCFResult {
	r := in.DiscountRatePct / 100
	g := in.FCFGrowthRatePct / 100
	gPerp := in.PerpetualGrowthRatePct / 100
	n := in.ProjectionYears

	res := models.DCFResult{
		ProjectedFCFs: []float64{},
		PresentValues: []float64{},
	}

	fcf := baseFCF
	for year := 1; year <= n; year++ {
		fcf *= 1 + g
		pv := fcf / math.Pow(1+r, float64(year))
		res.ProjectedFCFs = append(res.ProjectedFCFs, fcf)
		res.PresentValues = append(res.PresentValues, pv)
		res.TotalPVofFCFs += pv
	}

	if n > 0 && r > gPerp {
		terminalFCF := res.ProjectedFCFs[n-1]
		res.TerminalValue = terminalFCF * (1 + gPerp) / (r - gPerp)
		res.PVofTerminalValue = res.TerminalValue / math.Pow(1+r, float64(n))
	}

	res.EnterpriseValue = res.TotalPVofFCFs + res.PVofTerminalValue
	res.EquityValue = res.EnterpriseValue + cash - debt
	if shares > 0 {
		res.IntrinsicValuePerShare = res.EquityValue / shares
	}
	if price > 0 {
		res.MarginOfSafetyPct = (res.IntrinsicValuePerShare - price) / price * 100
	}
	return res
}

// DeriveDCFInputs pulls the base FCF, cash and debt from the most recent
// statements and estimates FCF growth from history, clamped to [-5, 50].
func DeriveDCFInputs(cashFlowsNewestFirst []models.CashFlowYear, balanceSheetsNewestFirst []models.BalanceSheetYear) models.DCFBaseline {
	var b models.DCFBaseline
	if len(cashFlowsNewestFirst) > 0 {
		b.BaseFCF = cashFlowsNewestFirst[0].FreeCashFlow
	}
	if len(balanceSheetsNewestFirst) > 0 {
		b.Cash = balanceSheetsNewestFirst[0].CashAndEquivalents
		b.Debt = balanceSheetsNewestFirst[0].TotalDebt
	}

	growth := DefaultFCFGrowthPct
	if rates := FCFGrowthRates(cashFlowsNewestFirst); len(rates) > 0 {
		growth = mean(rates)
	}
	growth = math.Max(minDerivedFCFGrowthPct, math.Min(maxDerivedFCFGrowthPct, growth))

	b.Defaults = DefaultDCFInputs()
	b.Defaults.FCFGrowthRatePct = utils.RoundHalfUp(growth, 1)
	return b
}

// Verdict labels a margin of safety. More than 25% upside is undervalued,
// down to -10% is fairly valued, anything lower is overvalued.
func Verdict(marginPct float64) string {
	switch {
	case marginPct > undervaluedMarginPct:
		return models.VerdictUndervalued
	case marginPct > fairValueFloorPct:
		return models.VerdictFairlyValued
	default:
		return models.VerdictOvervalued
	}
}

// SensitivityCell is one point of a discount rate × perpetual growth grid.
type SensitivityCell struct {
	DiscountRatePct        float64 `json:"discount_rate_pct"`
	PerpetualGrowthRatePct float64 `json:"perpetual_growth_rate_pct"`
	IntrinsicValuePerShare float64 `json:"intrinsic_value_per_share"`
	MarginOfSafetyPct      float64 `json:"margin_of_safety_pct"`
}

// SensitivityGrid re-runs the DCF for every combination of discount rate
// and perpetual growth rate, keeping the other inputs fixed. Rows follow
// discountRates, columns follow growthRates.
func SensitivityGrid(b models.DCFBaseline, shares, price float64, in models.DCFInputs, discountRates, growthRates []float64) [][]SensitivityCell {
	grid := make([][]SensitivityCell, len(discountRates))
	for i, r := range discountRates {
		grid[i] = make([]SensitivityCell, len(growthRates))
		for j, g := range growthRates {
			cellIn := in
			cellIn.DiscountRatePct = r
			cellIn.PerpetualGrowthRatePct = g
			res := ComputeDCF(b.BaseFCF, b.Cash, b.Debt, shares, price, cellIn)
			grid[i][j] = SensitivityCell{
				DiscountRatePct:        r,
				PerpetualGrowthRatePct: g,
				IntrinsicValuePerShare: res.IntrinsicValuePerShare,
				MarginOfSafetyPct:      res.MarginOfSafetyPct,
			}
		}
	}
	return grid
}
