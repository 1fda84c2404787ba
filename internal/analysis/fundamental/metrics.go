package fundamental

import (
	"fmt"
	"math"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// Metric keys, matching the catalog order.
const (
	MetricPERatio        = "peRatio"
	MetricPriceToSales   = "priceToSalesRatio"
	MetricPBRatio        = "pbRatio"
	MetricROE            = "returnOnEquity"
	MetricROA            = "returnOnAssets"
	MetricDebtToEquity   = "debtToEquity"
	MetricCurrentRatio   = "currentRatio"
	MetricRevenuePerSh   = "revenuePerShare"
	MetricNetIncomePerSh = "netIncomePerShare"
	MetricFCFPerShare    = "freeCashFlowPerShare"
	MetricDividendYield  = "dividendYield"
	MetricEVToEBITDA     = "enterpriseValueOverEBITDA"
)

func ranges(ex, good, fair, poor [2]float64) models.RatingRanges {
	return models.RatingRanges{
		Excellent: models.Range{Min: ex[0], Max: ex[1]},
		Good:      models.Range{Min: good[0], Max: good[1]},
		Fair:      models.Range{Min: fair[0], Max: fair[1]},
		Poor:      models.Range{Min: poor[0], Max: poor[1]},
	}
}

var catalog = []models.MetricDefinition{
	{
		Key: MetricPERatio, Label: "P/E Ratio",
		Description: "Price relative to earnings per share",
		Format:      models.FormatRatio,
		Ranges:      ranges([2]float64{0, 15}, [2]float64{15, 25}, [2]float64{25, 40}, [2]float64{40, 1000}),
	},
	{
		Key: MetricPriceToSales, Label: "P/S Ratio",
		Description: "Price relative to revenue per share",
		Format:      models.FormatRatio,
		Ranges:      ranges([2]float64{0, 3}, [2]float64{3, 8}, [2]float64{8, 15}, [2]float64{15, 100}),
	},
	{
		Key: MetricPBRatio, Label: "P/B Ratio",
		Description: "Price relative to book value per share",
		Format:      models.FormatRatio,
		Ranges:      ranges([2]float64{0, 3}, [2]float64{3, 6}, [2]float64{6, 10}, [2]float64{10, 100}),
	},
	{
		Key: MetricROE, Label: "ROE",
		Description:    "Net income as a percentage of shareholder equity",
		Format:         models.FormatPercent,
		Ranges:         ranges([2]float64{20, 100}, [2]float64{15, 20}, [2]float64{10, 15}, [2]float64{0, 10}),
		HigherIsBetter: true,
	},
	{
		Key: MetricROA, Label: "ROA",
		Description:    "Net income as a percentage of total assets",
		Format:         models.FormatPercent,
		Ranges:         ranges([2]float64{10, 100}, [2]float64{5, 10}, [2]float64{2, 5}, [2]float64{0, 2}),
		HigherIsBetter: true,
	},
	{
		Key: MetricDebtToEquity, Label: "Debt/Equity",
		Description: "Total debt relative to shareholder equity",
		Format:      models.FormatRatio,
		Ranges:      ranges([2]float64{0, 0.5}, [2]float64{0.5, 1}, [2]float64{1, 2}, [2]float64{2, 100}),
	},
	{
		Key: MetricCurrentRatio, Label: "Current Ratio",
		Description:    "Current assets divided by current liabilities",
		Format:         models.FormatRatio,
		Ranges:         ranges([2]float64{2, 10}, [2]float64{1.5, 2}, [2]float64{1, 1.5}, [2]float64{0, 1}),
		HigherIsBetter: true,
	},
	{
		Key: MetricRevenuePerSh, Label: "Revenue/Share",
		Description:    "Revenue per diluted share",
		Format:         models.FormatCurrency,
		Ranges:         ranges([2]float64{50, 10000}, [2]float64{20, 50}, [2]float64{5, 20}, [2]float64{0, 5}),
		HigherIsBetter: true,
	},
	{
		Key: MetricNetIncomePerSh, Label: "Net Income/Share",
		Description:    "Net income per diluted share",
		Format:         models.FormatCurrency,
		Ranges:         ranges([2]float64{10, 10000}, [2]float64{3, 10}, [2]float64{1, 3}, [2]float64{0, 1}),
		HigherIsBetter: true,
	},
	{
		Key: MetricFCFPerShare, Label: "FCF/Share",
		Description:    "Free cash flow per diluted share",
		Format:         models.FormatCurrency,
		Ranges:         ranges([2]float64{10, 10000}, [2]float64{3, 10}, [2]float64{1, 3}, [2]float64{0, 1}),
		HigherIsBetter: true,
	},
	{
		Key: MetricDividendYield, Label: "Dividend Yield",
		Description:    "Annual dividend as a percentage of price",
		Format:         models.FormatPercent,
		Ranges:         ranges([2]float64{3, 10}, [2]float64{2, 3}, [2]float64{0.5, 2}, [2]float64{0, 0.5}),
		HigherIsBetter: true,
	},
	{
		Key: MetricEVToEBITDA, Label: "EV/EBITDA",
		Description: "Enterprise value relative to EBITDA",
		Format:      models.FormatRatio,
		Ranges:      ranges([2]float64{0, 10}, [2]float64{10, 15}, [2]float64{15, 25}, [2]float64{25, 200}),
	},
}

// Metrics returns a copy of the rating catalog in display order.
func Metrics() []models.MetricDefinition {
	out := make([]models.MetricDefinition, len(catalog))
	copy(out, catalog)
	return out
}

// MetricByKey looks up a catalog entry.
func MetricByKey(key string) (models.MetricDefinition, bool) {
	for _, m := range catalog {
		if m.Key == key {
			return m, true
		}
	}
	return models.MetricDefinition{}, false
}

// Rate returns the first bucket, in excellent, good, fair, poor order, whose
// half-open range contains value. Values outside every range are poor.
func Rate(def models.MetricDefinition, value float64) models.Rating {
	buckets := []struct {
		rating models.Rating
		r      models.Range
	}{
		{models.RatingExcellent, def.Ranges.Excellent},
		{models.RatingGood, def.Ranges.Good},
		{models.RatingFair, def.Ranges.Fair},
		{models.RatingPoor, def.Ranges.Poor},
	}
	for _, b := range buckets {
		if b.r.Contains(value) {
			return b.rating
		}
	}
	return models.RatingPoor
}

// KeyMetricValue reads the catalog metric key from a snapshot.
func KeyMetricValue(km models.KeyMetricYear, key string) (float64, bool) {
	switch key {
	case MetricPERatio:
		return km.PERatio, true
	case MetricPriceToSales:
		return km.PriceToSalesRatio, true
	case MetricPBRatio:
		return km.PBRatio, true
	case MetricROE:
		return km.ReturnOnEquity, true
	case MetricROA:
		return km.ReturnOnAssets, true
	case MetricDebtToEquity:
		return km.DebtToEquity, true
	case MetricCurrentRatio:
		return km.CurrentRatio, true
	case MetricRevenuePerSh:
		return km.RevenuePerShare, true
	case MetricNetIncomePerSh:
		return km.NetIncomePerShare, true
	case MetricFCFPerShare:
		return km.FreeCashFlowPerShare, true
	case MetricDividendYield:
		return km.DividendYield, true
	case MetricEVToEBITDA:
		return km.EVToEBITDA, true
	}
	return 0, false
}

// RateKeyMetrics rates every finite catalog metric in a snapshot, in
// catalog order.
func RateKeyMetrics(km models.KeyMetricYear) []models.MetricRating {
	out := make([]models.MetricRating, 0, len(catalog))
	for _, def := range catalog {
		v, _ := KeyMetricValue(km, def.Key)
		if !finite(v) {
			continue
		}
		out = append(out, models.MetricRating{
			Key:    def.Key,
			Label:  def.Label,
			Value:  v,
			Rating: Rate(def, v),
		})
	}
	return out
}

// FormatMetricValue renders a value the way the metric's format asks for.
// Non-finite values render as N/A.
func FormatMetricValue(def models.MetricDefinition, value float64) string {
	if !finite(value) {
		return "N/A"
	}
	switch def.Format {
	case models.FormatPercent:
		return fmt.Sprintf("%.2f%%", value)
	case models.FormatCurrency:
		return utils.FormatUSD(value)
	case models.FormatRatio:
		return fmt.Sprintf("%.2fx", value)
	default:
		return fmt.Sprintf("%g", value)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
