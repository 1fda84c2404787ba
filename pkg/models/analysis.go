package models

import "fmt"

// SignalType classifies a technical signal.
type SignalType string

const (
	SignalBuy       SignalType = "buy"
	SignalSell      SignalType = "sell"
	SignalAttention SignalType = "attention"
	SignalSwing     SignalType = "swing"
)

// TechnicalSignal is a single triggered indicator condition for one ticker.
type TechnicalSignal struct {
	Ticker      string     `json:"ticker"`
	Signal      string     `json:"signal"` // e.g., "Golden Cross"
	Type        SignalType `json:"type"`
	Value       float64    `json:"value"`       // rounded indicator reading
	Description string     `json:"description"` // human-readable explanation
}

// ProjectionHorizon is the number of years every projection case spans.
const ProjectionHorizon = 5

// ProjectionYearInput holds the editable assumptions for one projected year.
type ProjectionYearInput struct {
	RevGrowthPct float64 `json:"rev_growth_pct"`
	NetMarginPct float64 `json:"net_margin_pct"`
	PEHigh       float64 `json:"pe_high"`
	PELow        float64 `json:"pe_low"`
}

// ProjectionRow is one computed year of a projection.
type ProjectionRow struct {
	Year           int     `json:"year"`
	Revenue        float64 `json:"revenue"`
	RevGrowthPct   float64 `json:"rev_growth_pct"`
	NetIncome      float64 `json:"net_income"`
	NetMarginPct   float64 `json:"net_margin_pct"`
	EPS            float64 `json:"eps"`
	PEHigh         float64 `json:"pe_high"`
	PELow          float64 `json:"pe_low"`
	SharePriceHigh float64 `json:"share_price_high"`
	SharePriceLow  float64 `json:"share_price_low"`
}

// CaseName identifies a projection scenario.
type CaseName string

const (
	CaseBase CaseName = "base"
	CaseBull CaseName = "bull"
	CaseBear CaseName = "bear"
)

// ParseCaseName validates a scenario name.
func ParseCaseName(s string) (CaseName, error) {
	switch CaseName(s) {
	case CaseBase, CaseBull, CaseBear:
		return CaseName(s), nil
	}
	return "", fmt.Errorf("unknown projection case %q (want base, bull or bear)", s)
}

// ProjectionCase is one scenario. Years is a fixed-size array so copies
// never share storage.
type ProjectionCase struct {
	Name  CaseName                               `json:"name"`
	Years [ProjectionHorizon]ProjectionYearInput `json:"years"`
}

// ProjectionCases holds the three scenarios side by side.
type ProjectionCases struct {
	Base ProjectionCase `json:"base"`
	Bull ProjectionCase `json:"bull"`
	Bear ProjectionCase `json:"bear"`
}

// Case returns the scenario with the given name.
func (pc ProjectionCases) Case(name CaseName) (ProjectionCase, bool) {
	switch name {
	case CaseBase:
		return pc.Base, true
	case CaseBull:
		return pc.Bull, true
	case CaseBear:
		return pc.Bear, true
	}
	return ProjectionCase{}, false
}

// WithYear returns a copy of pc with one year of one scenario replaced.
// The receiver is left untouched. year is 1-based.
func (pc ProjectionCases) WithYear(name CaseName, year int, in ProjectionYearInput) (ProjectionCases, error) {
	if year < 1 || year > ProjectionHorizon {
		return pc, fmt.Errorf("projection year %d out of range 1..%d", year, ProjectionHorizon)
	}
	out := pc
	switch name {
	case CaseBase:
		out.Base.Years[year-1] = in
	case CaseBull:
		out.Bull.Years[year-1] = in
	case CaseBear:
		out.Bear.Years[year-1] = in
	default:
		return pc, fmt.Errorf("unknown projection case %q", name)
	}
	return out, nil
}

// ProjectionSummary is a computed projection plus its implied price CAGR.
type ProjectionSummary struct {
	Case     CaseName        `json:"case,omitempty"`
	Rows     []ProjectionRow `json:"rows"`
	CAGRHigh float64         `json:"cagr_high"`
	CAGRLow  float64         `json:"cagr_low"`
}

// DCFInputs are the editable discounted cash flow assumptions, in percent.
type DCFInputs struct {
	DiscountRatePct        float64 `json:"discount_rate_pct"`
	PerpetualGrowthRatePct float64 `json:"perpetual_growth_rate_pct"`
	FCFGrowthRatePct       float64 `json:"fcf_growth_rate_pct"`
	ProjectionYears        int     `json:"projection_years"`
}

// DCFResult is the output of a DCF computation.
type DCFResult struct {
	ProjectedFCFs          []float64 `json:"projected_fcfs"`
	PresentValues          []float64 `json:"present_values"`
	TotalPVofFCFs          float64   `json:"total_pv_of_fcfs"`
	TerminalValue          float64   `json:"terminal_value"`
	PVofTerminalValue      float64   `json:"pv_of_terminal_value"`
	EnterpriseValue        float64   `json:"enterprise_value"`
	EquityValue            float64   `json:"equity_value"`
	IntrinsicValuePerShare float64   `json:"intrinsic_value_per_share"`
	MarginOfSafetyPct      float64   `json:"margin_of_safety_pct"`
}

// DCFBaseline is what the DCF engine derives from statement history.
type DCFBaseline struct {
	BaseFCF  float64   `json:"base_fcf"`
	Cash     float64   `json:"cash"`
	Debt     float64   `json:"debt"`
	Defaults DCFInputs `json:"defaults"`
}

// Valuation verdict labels.
const (
	VerdictUndervalued  = "UNDERVALUED"
	VerdictFairlyValued = "FAIRLY_VALUED"
	VerdictOvervalued   = "OVERVALUED"
)

// MetricFormat controls how a metric value is displayed.
type MetricFormat string

const (
	FormatPercent  MetricFormat = "percent"
	FormatRatio    MetricFormat = "ratio"
	FormatCurrency MetricFormat = "currency"
	FormatNumber   MetricFormat = "number"
)

// Rating is a metric quality bucket.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// Range is a half-open interval [Min, Max).
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v falls in [Min, Max).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

// RatingRanges holds one range per rating bucket.
type RatingRanges struct {
	Excellent Range `json:"excellent"`
	Good      Range `json:"good"`
	Fair      Range `json:"fair"`
	Poor      Range `json:"poor"`
}

// MetricDefinition is a static catalog entry used for rating ratios.
type MetricDefinition struct {
	Key            string       `json:"key"`
	Label          string       `json:"label"`
	Description    string       `json:"description"`
	Format         MetricFormat `json:"format"`
	Ranges         RatingRanges `json:"ranges"`
	HigherIsBetter bool         `json:"higher_is_better"`
}

// MetricRating pairs a metric value with its rating.
type MetricRating struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Rating Rating  `json:"rating"`
}
