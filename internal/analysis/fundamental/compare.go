package fundamental

import (
	"sort"

	"github.com/stockpulse/stockpulse/pkg/models"
)

// PeerMetrics is the latest key-metric snapshot for one ticker.
// Latest is nil when the ticker has no data.
type PeerMetrics struct {
	Ticker string                `json:"ticker"`
	Latest *models.KeyMetricYear `json:"latest"`
}

// ComparisonCell is one ticker's reading of one metric.
type ComparisonCell struct {
	Ticker    string        `json:"ticker"`
	Value     float64       `json:"value"`
	Display   string        `json:"display"`
	Rating    models.Rating `json:"rating,omitempty"`
	Available bool          `json:"available"`
}

// ComparisonRow is one metric across every compared ticker.
type ComparisonRow struct {
	Metric models.MetricDefinition `json:"metric"`
	Cells  []ComparisonCell        `json:"cells"`
	Best   string                  `json:"best,omitempty"` // ticker with the most favourable value
}

// Comparison is a side-by-side metric table.
type Comparison struct {
	Tickers []string        `json:"tickers"`
	Rows    []ComparisonRow `json:"rows"`
	Ranking []PeerScore     `json:"ranking"`
}

// PeerScore counts how many metrics rated excellent or good per ticker.
type PeerScore struct {
	Ticker    string `json:"ticker"`
	Excellent int    `json:"excellent"`
	Good      int    `json:"good"`
	Score     int    `json:"score"` // 3 per excellent, 2 per good, 1 per fair
	Rank      int    `json:"rank"`
}

// CompareMetrics rates every catalog metric for each peer and ranks the
// peers by a composite of their ratings. Peer order is preserved in rows.
func CompareMetrics(peers []PeerMetrics) Comparison {
	cmp := Comparison{Tickers: make([]string, len(peers))}
	scores := make([]PeerScore, len(peers))
	for i, p := range peers {
		cmp.Tickers[i] = p.Ticker
		scores[i].Ticker = p.Ticker
	}

	for _, def := range catalog {
		row := ComparisonRow{Metric: def, Cells: make([]ComparisonCell, len(peers))}
		bestIdx := -1
		bestVal := 0.0

		for i, p := range peers {
			cell := ComparisonCell{Ticker: p.Ticker, Display: "N/A"}
			if p.Latest != nil {
				v, _ := KeyMetricValue(*p.Latest, def.Key)
				if finite(v) {
					cell.Value = v
					cell.Available = true
					cell.Rating = Rate(def, v)
					cell.Display = FormatMetricValue(def, v)
					scores[i].add(cell.Rating)

					if bestIdx < 0 || better(def, v, bestVal) {
						bestIdx, bestVal = i, v
					}
				}
			}
			row.Cells[i] = cell
		}
		if bestIdx >= 0 {
			row.Best = peers[bestIdx].Ticker
		}
		cmp.Rows = append(cmp.Rows, row)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	cmp.Ranking = scores
	return cmp
}

// better reports whether a beats b for this metric. Negative multiples
// never win a lower-is-better comparison.
func better(def models.MetricDefinition, a, b float64) bool {
	if def.HigherIsBetter {
		return a > b
	}
	if a < 0 {
		return false
	}
	return b < 0 || a < b
}

func (s *PeerScore) add(r models.Rating) {
	switch r {
	case models.RatingExcellent:
		s.Excellent++
		s.Score += 3
	case models.RatingGood:
		s.Good++
		s.Score += 2
	case models.RatingFair:
		s.Score++
	}
}
