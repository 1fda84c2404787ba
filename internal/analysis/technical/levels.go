package technical

import (
	"math"
	"sort"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// Levels are support and resistance prices inferred from swing closes,
// nearest first, plus a close-weighted volume profile.
type Levels struct {
	Supports       []float64 `json:"supports"`
	Resistances    []float64 `json:"resistances"`
	PointOfControl float64   `json:"point_of_control"` // price bin with highest volume
	ValueAreaHigh  float64   `json:"value_area_high"`  // upper bound of the 70% volume zone
	ValueAreaLow   float64   `json:"value_area_low"`
}

// KeyLevels finds swing highs and lows in the closes (a close strictly above
// or below every close within window bars on either side), clusters levels
// within threshold of each other, and splits them around the last close.
func KeyLevels(series []models.PricePoint, window int, threshold float64) Levels {
	if window <= 0 {
		window = 5
	}
	if threshold <= 0 {
		threshold = 0.015 // 1.5% clustering
	}

	var lv Levels
	n := len(series)
	if n == 0 {
		return lv
	}
	lv.PointOfControl, lv.ValueAreaLow, lv.ValueAreaHigh = volumeProfile(series, 50)
	if n < window*2+1 {
		return lv
	}

	var levels []float64
	for i := window; i < n-window; i++ {
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if series[j].Close >= series[i].Close {
				isHigh = false
			}
			if series[j].Close <= series[i].Close {
				isLow = false
			}
		}
		if isHigh || isLow {
			levels = append(levels, series[i].Close)
		}
	}
	if len(levels) == 0 {
		return lv
	}

	sort.Float64s(levels)
	current := series[n-1].Close
	for _, level := range clusterLevels(levels, threshold) {
		if level < current {
			lv.Supports = append(lv.Supports, level)
		} else {
			lv.Resistances = append(lv.Resistances, level)
		}
	}

	// Supports descending (nearest first), resistances ascending.
	sort.Sort(sort.Reverse(sort.Float64Slice(lv.Supports)))
	lv.Supports = capSlice(lv.Supports, 3)
	lv.Resistances = capSlice(lv.Resistances, 3)
	return lv
}

// volumeProfile buckets volume by close price and returns the point of
// control and the value area holding 70% of volume.
func volumeProfile(series []models.PricePoint, bins int) (poc, low, high float64) {
	minPrice, maxPrice := series[0].Close, series[0].Close
	for _, p := range series {
		minPrice = math.Min(minPrice, p.Close)
		maxPrice = math.Max(maxPrice, p.Close)
	}
	priceRange := maxPrice - minPrice
	if priceRange == 0 {
		last := series[len(series)-1].Close
		return last, last, last
	}

	binSize := priceRange / float64(bins)
	volumes := make([]float64, bins)
	totalVol := 0.0
	for _, p := range series {
		idx := int((p.Close - minPrice) / binSize)
		if idx >= bins {
			idx = bins - 1
		}
		volumes[idx] += p.Volume
		totalVol += p.Volume
	}

	pocIdx := 0
	for i, v := range volumes {
		if v > volumes[pocIdx] {
			pocIdx = i
		}
	}

	// Expand from the POC toward the heavier neighbour until 70% is captured.
	target := totalVol * 0.70
	captured := volumes[pocIdx]
	lo, hi := pocIdx, pocIdx
	for captured < target && (lo > 0 || hi < bins-1) {
		switch {
		case lo > 0 && hi < bins-1:
			if volumes[lo-1] >= volumes[hi+1] {
				lo--
				captured += volumes[lo]
			} else {
				hi++
				captured += volumes[hi]
			}
		case lo > 0:
			lo--
			captured += volumes[lo]
		default:
			hi++
			captured += volumes[hi]
		}
	}

	round := func(v float64) float64 { return math.Round(v*100) / 100 }
	return round(minPrice + (float64(pocIdx)+0.5)*binSize),
		round(minPrice + float64(lo)*binSize),
		round(minPrice + float64(hi+1)*binSize)
}

// clusterLevels groups nearby price levels and returns midpoints.
func clusterLevels(sorted []float64, threshold float64) []float64 {
	if len(sorted) == 0 {
		return nil
	}

	var clusters []float64
	clusterSum := sorted[0]
	clusterCount := 1

	for i := 1; i < len(sorted); i++ {
		clusterMid := clusterSum / float64(clusterCount)
		if clusterMid != 0 && (sorted[i]-clusterMid)/clusterMid <= threshold {
			clusterSum += sorted[i]
			clusterCount++
		} else {
			clusters = append(clusters, clusterSum/float64(clusterCount))
			clusterSum = sorted[i]
			clusterCount = 1
		}
	}
	clusters = append(clusters, clusterSum/float64(clusterCount))

	return clusters
}

func capSlice(s []float64, max int) []float64 {
	if len(s) > max {
		return s[:max]
	}
	return s
}
