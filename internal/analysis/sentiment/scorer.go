// Package sentiment scores news headlines with a fixed keyword lexicon.
// It is deterministic and needs no network access.
package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

type keyword struct {
	term   string
	weight float64
}

// Lexicons are slices rather than maps so sums are accumulated in a stable order.
var bullish = []keyword{
	{"all-time high", 0.7}, {"beats estimate", 0.6}, {"breakout", 0.6},
	{"bullish", 0.7}, {"beat", 0.5}, {"buyback", 0.4}, {"dividend", 0.4},
	{"exceeds", 0.5}, {"expansion", 0.4}, {"growth", 0.4}, {"outperform", 0.6},
	{"positive", 0.4}, {"profit", 0.3}, {"rally", 0.6}, {"record high", 0.7},
	{"recovery", 0.5}, {"strong", 0.4}, {"surge", 0.7}, {"upbeat", 0.5},
	{"upgrade", 0.6},
}

var bearish = []keyword{
	{"bearish", 0.7}, {"concern", 0.3}, {"correction", 0.5}, {"crash", 0.8},
	{"cut", 0.3}, {"decline", 0.5}, {"downgrade", 0.6}, {"fall", 0.4},
	{"fraud", 0.8}, {"investigation", 0.5}, {"lawsuit", 0.5}, {"loss", 0.4},
	{"miss", 0.5}, {"negative", 0.4}, {"plunge", 0.7}, {"recall", 0.4},
	{"selloff", 0.7}, {"slump", 0.6}, {"underperform", 0.6}, {"warning", 0.5},
	{"weak", 0.4},
}

// Labels for aggregate scores.
const (
	LabelBullish         = "Bullish"
	LabelSlightlyBullish = "Slightly Bullish"
	LabelNeutral         = "Neutral"
	LabelSlightlyBearish = "Slightly Bearish"
	LabelBearish         = "Bearish"
)

// ScoreText returns a score in [-1, 1] and a confidence in [0.1, 0.85].
// Text with no lexicon hits scores 0 with confidence 0.1.
func ScoreText(text string) (score, confidence float64) {
	lower := strings.ToLower(text)

	var bull, bear float64
	matches := 0
	for _, k := range bullish {
		if strings.Contains(lower, k.term) {
			bull += k.weight
			matches++
		}
	}
	for _, k := range bearish {
		if strings.Contains(lower, k.term) {
			bear += k.weight
			matches++
		}
	}
	if matches == 0 {
		return 0, 0.1
	}

	score = (bull - bear) / (bull + bear)
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)
	return score, confidence
}

// Scored is a headline with its sentiment.
type Scored struct {
	models.NewsArticle
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// ScoreArticle scores the title and summary of a.
func ScoreArticle(a models.NewsArticle) Scored {
	text := a.Title
	if a.Summary != "" {
		text += " " + a.Summary
	}
	score, conf := ScoreText(text)
	return Scored{
		NewsArticle: a,
		Score:       utils.RoundHalfUp(score, 2),
		Confidence:  utils.RoundHalfUp(conf, 2),
	}
}

// Summary is the time-weighted sentiment across a set of headlines.
type Summary struct {
	Ticker     string   `json:"ticker"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Label      string   `json:"label"`
	Articles   []Scored `json:"articles"`
}

// HalfLife is the age at which a headline's weight is halved.
const HalfLife = 24 * time.Hour

// Aggregate scores every article and weights each by confidence and by an
// exponential decay on its age relative to now. Undated articles get the
// weight of an article published now.
func Aggregate(ticker string, articles []models.NewsArticle, now time.Time) Summary {
	s := Summary{Ticker: ticker, Label: LabelNeutral, Articles: make([]Scored, 0, len(articles))}
	if len(articles) == 0 {
		return s
	}

	var weighted, total, confSum float64
	for _, a := range articles {
		sc := ScoreArticle(a)
		s.Articles = append(s.Articles, sc)

		age := 0.0
		if !a.PublishedAt.IsZero() {
			age = math.Max(now.Sub(a.PublishedAt).Hours(), 0)
		}
		w := math.Exp(-math.Ln2*age/HalfLife.Hours()) * sc.Confidence
		weighted += sc.Score * w
		total += w
		confSum += sc.Confidence
	}

	score := 0.0
	if total > 0 {
		score = weighted / total
	}
	s.Score = utils.RoundHalfUp(score, 2)
	s.Confidence = utils.RoundHalfUp(confSum/float64(len(articles)), 2)
	s.Label = Label(score)
	return s
}

// Label buckets an aggregate score.
func Label(score float64) string {
	switch {
	case score > 0.3:
		return LabelBullish
	case score > 0.1:
		return LabelSlightlyBullish
	case score < -0.3:
		return LabelBearish
	case score < -0.1:
		return LabelSlightlyBearish
	}
	return LabelNeutral
}
