// Package models defines the core data structures used throughout StockPulse.
package models

import "time"

// PricePoint is one daily bar reduced to what the indicators need.
// Series of PricePoint are always ordered oldest to newest.
type PricePoint struct {
	Date   time.Time `json:"date,omitempty"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Closes extracts the close prices of a series, preserving order.
func Closes(series []PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Close
	}
	return out
}

// Volumes extracts the volumes of a series, preserving order.
func Volumes(series []PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Volume
	}
	return out
}

// Quote represents a current stock quote.
type Quote struct {
	Ticker            string    `json:"ticker"` // e.g., "AAPL"
	Name              string    `json:"name"`
	Price             float64   `json:"price"`
	Change            float64   `json:"change"`
	ChangePct         float64   `json:"change_pct"`
	DayHigh           float64   `json:"day_high"`
	DayLow            float64   `json:"day_low"`
	PrevClose         float64   `json:"prev_close"`
	Volume            float64   `json:"volume"`
	MarketCap         float64   `json:"market_cap"`
	SharesOutstanding float64   `json:"shares_outstanding"`
	WeekHigh52        float64   `json:"week_high_52"`
	WeekLow52         float64   `json:"week_low_52"`
	Currency          string    `json:"currency"` // defaults to "USD"
	Timestamp         time.Time `json:"timestamp"`
}

// Holding is a portfolio line as entered by the user.
type Holding struct {
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
}

// PositionValue is a holding priced at the latest quote.
type PositionValue struct {
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"` // percent change on the day
	Value  float64 `json:"value"`
}

// PortfolioSummary aggregates priced positions.
type PortfolioSummary struct {
	TotalValue        float64         `json:"total_value"`
	TotalChangePct    float64         `json:"total_change_pct"`
	TotalChangeDollar float64         `json:"total_change_dollar"`
	AvgChangePct      float64         `json:"avg_change_pct"` // unweighted mean of position changes
	Positions         []PositionValue `json:"positions"`
}

// AlertDirection says which side of the target a price alert fires on.
type AlertDirection string

const (
	AlertAbove AlertDirection = "above"
	AlertBelow AlertDirection = "below"
)

// PriceAlert fires once a ticker trades at or beyond TargetPrice in
// Direction.
type PriceAlert struct {
	Ticker      string         `json:"ticker"       mapstructure:"ticker"`
	TargetPrice float64        `json:"target_price" mapstructure:"target_price"`
	Direction   AlertDirection `json:"direction"    mapstructure:"direction"`
}

// TriggeredAlert is a PriceAlert whose condition held at Price.
type TriggeredAlert struct {
	PriceAlert
	Price   float64 `json:"price"`
	Message string  `json:"message"`
}
