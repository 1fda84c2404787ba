package fundamental

import (
	"math"
	"testing"

	"github.com/stockpulse/stockpulse/pkg/models"
)

const eps = 1e-9

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// sampleHistory returns three fiscal years, newest first, growing 10% a
// year at a 10% net margin.
func sampleHistory() ([]models.IncomeStatementYear, []models.KeyMetricYear) {
	income := []models.IncomeStatementYear{
		{Date: "2024-12-31", Revenue: 121, NetIncome: 12.1},
		{Date: "2023-12-31", Revenue: 110, NetIncome: 11},
		{Date: "2022-12-31", Revenue: 100, NetIncome: 10},
	}
	metrics := []models.KeyMetricYear{
		{Date: "2024-12-31", PERatio: 20},
		{Date: "2023-12-31", PERatio: 25},
		{Date: "2022-12-31", PERatio: 15},
	}
	return income, metrics
}

func TestComputeProjectionsSingleYear(t *testing.T) {
	rows := ComputeProjections([]models.ProjectionYearInput{
		{RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 20, PELow: 12},
	}, 1000, 10)

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Year != 1 {
		t.Errorf("Year = %d, want 1", r.Year)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"revenue", r.Revenue, 1100},
		{"net income", r.NetIncome, 110},
		{"eps", r.EPS, 11},
		{"price high", r.SharePriceHigh, 220},
		{"price low", r.SharePriceLow, 132},
	}
	for _, c := range checks {
		if !near(c.got, c.want, 1e-6) {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}
}

func TestComputeProjectionsCompounds(t *testing.T) {
	inputs := []models.ProjectionYearInput{
		{RevGrowthPct: 10}, {RevGrowthPct: 20}, {RevGrowthPct: -50},
	}
	rows := ComputeProjections(inputs, 100, 1)
	want := []float64{110, 132, 66}
	for i, w := range want {
		if !near(rows[i].Revenue, w, 1e-6) {
			t.Errorf("year %d revenue = %f, want %f", i+1, rows[i].Revenue, w)
		}
		if rows[i].Year != i+1 {
			t.Errorf("year index = %d, want %d", rows[i].Year, i+1)
		}
	}
}

func TestComputeProjectionsZeroShares(t *testing.T) {
	rows := ComputeProjections([]models.ProjectionYearInput{
		{RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 20, PELow: 12},
	}, 1000, 0)
	if rows[0].EPS != 0 || rows[0].SharePriceHigh != 0 || rows[0].SharePriceLow != 0 {
		t.Errorf("expected zero per-share values, got %+v", rows[0])
	}
	if rows[0].NetIncome == 0 {
		t.Error("net income should still be computed")
	}
}

func TestComputeProjectionsEmpty(t *testing.T) {
	if rows := ComputeProjections(nil, 100, 1); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestComputeCAGR(t *testing.T) {
	tests := []struct {
		name                   string
		current, future, years float64
		want                   float64
	}{
		{"unchanged", 50, 50, 5, 0},
		{"doubling in one year", 100, 200, 1, 100},
		{"halving in one year", 100, 50, 1, -50},
		{"zero current", 0, 200, 5, 0},
		{"negative future", 100, -10, 5, 0},
		{"zero years", 100, 200, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeCAGR(tt.current, tt.future, tt.years); !near(got, tt.want, 1e-9) {
				t.Errorf("ComputeCAGR = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDeriveProjectionCasesFromHistory(t *testing.T) {
	income, metrics := sampleHistory()
	cases := DeriveProjectionCases(income, metrics)

	want := map[models.CaseName]models.ProjectionYearInput{
		models.CaseBase: {RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 20, PELow: 12},
		models.CaseBull: {RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 25, PELow: 17.5},
		models.CaseBear: {RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 15, PELow: 9},
	}
	for name, w := range want {
		c, ok := cases.Case(name)
		if !ok {
			t.Fatalf("missing case %s", name)
		}
		if c.Name != name {
			t.Errorf("case name = %q, want %q", c.Name, name)
		}
		for i, y := range c.Years {
			if !near(y.RevGrowthPct, w.RevGrowthPct, eps) || !near(y.NetMarginPct, w.NetMarginPct, eps) ||
				!near(y.PEHigh, w.PEHigh, eps) || !near(y.PELow, w.PELow, eps) {
				t.Errorf("%s year %d = %+v, want %+v", name, i+1, y, w)
			}
		}
	}
}

func TestDeriveProjectionCasesWithoutHistory(t *testing.T) {
	cases := DeriveProjectionCases(nil, nil)

	want := map[models.CaseName]models.ProjectionYearInput{
		models.CaseBase: {RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 20, PELow: 12},
		models.CaseBull: {RevGrowthPct: 15, NetMarginPct: 13, PEHigh: 26, PELow: 18.2},
		models.CaseBear: {RevGrowthPct: 5, NetMarginPct: 7, PEHigh: 14, PELow: 8.4},
	}
	for name, w := range want {
		c, _ := cases.Case(name)
		y := c.Years[0]
		if !near(y.RevGrowthPct, w.RevGrowthPct, eps) || !near(y.NetMarginPct, w.NetMarginPct, eps) ||
			!near(y.PEHigh, w.PEHigh, eps) || !near(y.PELow, w.PELow, eps) {
			t.Errorf("%s = %+v, want %+v", name, y, w)
		}
		if c.Years[4] != c.Years[0] {
			t.Errorf("%s: years differ: %+v vs %+v", name, c.Years[0], c.Years[4])
		}
	}
}

func TestDeriveProjectionCasesUsesLastThreeYears(t *testing.T) {
	// Chronological revenue: 100, 200, 220, 242, 266.2.
	// Growth: 100, 10, 10, 10. Base uses the last three.
	income := []models.IncomeStatementYear{
		{Revenue: 266.2, NetIncome: 26.62},
		{Revenue: 242, NetIncome: 24.2},
		{Revenue: 220, NetIncome: 22},
		{Revenue: 200, NetIncome: 20},
		{Revenue: 100, NetIncome: 50},
	}
	cases := DeriveProjectionCases(income, nil)

	if got := cases.Base.Years[0].RevGrowthPct; !near(got, 10, eps) {
		t.Errorf("base growth = %f, want 10", got)
	}
	if got := cases.Bull.Years[0].RevGrowthPct; !near(got, 100, eps) {
		t.Errorf("bull growth = %f, want 100", got)
	}
	if got := cases.Bull.Years[0].NetMarginPct; !near(got, 50, eps) {
		t.Errorf("bull margin = %f, want 50", got)
	}
	if got := cases.Bear.Years[0].NetMarginPct; !near(got, 10, eps) {
		t.Errorf("bear margin = %f, want 10", got)
	}
}

func TestDeriveProjectionCasesSkipsBadPE(t *testing.T) {
	metrics := []models.KeyMetricYear{
		{PERatio: -8}, {PERatio: 0}, {PERatio: math.Inf(1)}, {PERatio: math.NaN()}, {PERatio: 30},
	}
	cases := DeriveProjectionCases(nil, metrics)
	if got := cases.Base.Years[0].PEHigh; !near(got, 30, eps) {
		t.Errorf("base PE = %f, want 30", got)
	}
	if got := cases.Bear.Years[0].PEHigh; !near(got, 30, eps) {
		t.Errorf("bear PE = %f, want 30", got)
	}
}

func TestDeriveProjectionCasesDoesNotMutateInput(t *testing.T) {
	income, metrics := sampleHistory()
	first := income[0]
	DeriveProjectionCases(income, metrics)
	if income[0] != first {
		t.Errorf("input reordered: first = %+v", income[0])
	}
}

func TestEndToEndProjection(t *testing.T) {
	income, metrics := sampleHistory()
	cases := DeriveProjectionCases(income, metrics)

	rows := ComputeProjections(cases.Base.Years[:], income[0].Revenue, 1)
	if len(rows) != models.ProjectionHorizon {
		t.Fatalf("expected %d rows, got %d", models.ProjectionHorizon, len(rows))
	}
	if !near(rows[4].Revenue, 194.87, 0.01) {
		t.Errorf("year 5 revenue = %f, want ~194.87", rows[4].Revenue)
	}
}

func TestDefaultProjectionCases(t *testing.T) {
	cases := DefaultProjectionCases()
	want := models.ProjectionYearInput{RevGrowthPct: 10, NetMarginPct: 10, PEHigh: 20, PELow: 12}
	for _, c := range []models.ProjectionCase{cases.Base, cases.Bull, cases.Bear} {
		for _, y := range c.Years {
			if y != want {
				t.Errorf("%s year = %+v, want %+v", c.Name, y, want)
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	c := DefaultProjectionCases().Base
	// Revenue 1000 -> 1610.51 after five years, NI 161.051, EPS 16.1051,
	// high 322.102, low 193.2612.
	s := Summarize(c, 1000, 10, 100)

	if s.Case != models.CaseBase {
		t.Errorf("Case = %q", s.Case)
	}
	if len(s.Rows) != 5 {
		t.Fatalf("rows = %d", len(s.Rows))
	}
	wantHigh := (math.Pow(322.102/100, 0.2) - 1) * 100
	wantLow := (math.Pow(193.2612/100, 0.2) - 1) * 100
	if !near(s.CAGRHigh, wantHigh, 1e-6) {
		t.Errorf("CAGRHigh = %f, want %f", s.CAGRHigh, wantHigh)
	}
	if !near(s.CAGRLow, wantLow, 1e-6) {
		t.Errorf("CAGRLow = %f, want %f", s.CAGRLow, wantLow)
	}

	if s := Summarize(c, 1000, 10, 0); s.CAGRHigh != 0 || s.CAGRLow != 0 {
		t.Errorf("expected zero CAGR without a price, got %+v", s)
	}
}
