package models

// Statement slices returned by the fetch layer are ordered newest first
// (index 0 is the most recent fiscal year). Functions consuming them say so.

// IncomeStatementYear represents one annual income statement.
type IncomeStatementYear struct {
	Date                     string  `json:"date"` // fiscal year end, "2024-09-28"
	Revenue                  float64 `json:"revenue"`
	NetIncome                float64 `json:"net_income"`
	EPS                      float64 `json:"eps"`
	EPSDiluted               float64 `json:"eps_diluted"`
	GrossProfit              float64 `json:"gross_profit"`
	OperatingIncome          float64 `json:"operating_income"`
	DilutedSharesOutstanding float64 `json:"diluted_shares_outstanding"`
}

// KeyMetricYear is a per-year ratio snapshot.
// Percent fields (ROE, ROA, dividend yield) are on a 0-100 scale.
type KeyMetricYear struct {
	Date                 string  `json:"date"`
	PERatio              float64 `json:"pe_ratio"`
	PriceToSalesRatio    float64 `json:"price_to_sales_ratio"`
	PBRatio              float64 `json:"pb_ratio"`
	DebtToEquity         float64 `json:"debt_to_equity"`
	CurrentRatio         float64 `json:"current_ratio"`
	ReturnOnEquity       float64 `json:"return_on_equity"`
	ReturnOnAssets       float64 `json:"return_on_assets"`
	RevenuePerShare      float64 `json:"revenue_per_share"`
	NetIncomePerShare    float64 `json:"net_income_per_share"`
	FreeCashFlowPerShare float64 `json:"free_cash_flow_per_share"`
	DividendYield        float64 `json:"dividend_yield"`
	EVToEBITDA           float64 `json:"ev_to_ebitda"`
}

// CashFlowYear represents one annual cash flow statement.
type CashFlowYear struct {
	Date                    string  `json:"date"`
	FreeCashFlow            float64 `json:"free_cash_flow"`
	OperatingCashFlow       float64 `json:"operating_cash_flow"`
	CapitalExpenditure      float64 `json:"capital_expenditure"`
	DividendsPaid           float64 `json:"dividends_paid"`
	NetCashUsedForInvesting float64 `json:"net_cash_used_for_investing"`
	DebtRepayment           float64 `json:"debt_repayment"`
}

// BalanceSheetYear represents one annual balance sheet.
type BalanceSheetYear struct {
	Date                        string  `json:"date"`
	CashAndEquivalents          float64 `json:"cash_and_equivalents"`
	CashAndShortTermInvestments float64 `json:"cash_and_short_term_investments"`
	TotalDebt                   float64 `json:"total_debt"`
	NetDebt                     float64 `json:"net_debt"`
	TotalAssets                 float64 `json:"total_assets"`
	TotalLiabilities            float64 `json:"total_liabilities"`
	TotalEquity                 float64 `json:"total_equity"`
}

// Fundamentals bundles the statement history for one ticker.
type Fundamentals struct {
	Ticker        string                `json:"ticker"`
	Income        []IncomeStatementYear `json:"income"`
	KeyMetrics    []KeyMetricYear       `json:"key_metrics"`
	CashFlows     []CashFlowYear        `json:"cash_flows"`
	BalanceSheets []BalanceSheetYear    `json:"balance_sheets"`
}

// LatestRevenue returns the most recent annual revenue, or 0.
func (f Fundamentals) LatestRevenue() float64 {
	if len(f.Income) == 0 {
		return 0
	}
	return f.Income[0].Revenue
}

// LatestShares returns the most recent diluted share count, or 0.
func (f Fundamentals) LatestShares() float64 {
	if len(f.Income) == 0 {
		return 0
	}
	return f.Income[0].DilutedSharesOutstanding
}

// Empty reports whether no statement series was fetched.
func (f Fundamentals) Empty() bool {
	return len(f.Income) == 0 && len(f.KeyMetrics) == 0 && len(f.CashFlows) == 0 && len(f.BalanceSheets) == 0
}
