package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/stockpulse/stockpulse/pkg/models"
)

func TestScoreTextBullish(t *testing.T) {
	score, conf := ScoreText("Apple shares rally on strong growth")
	if score != 1 {
		t.Errorf("score = %.4f, want 1", score)
	}
	if math.Abs(conf-0.65) > 1e-9 {
		t.Errorf("confidence = %.4f, want 0.65", conf)
	}
}

func TestScoreTextBearish(t *testing.T) {
	score, _ := ScoreText("Stocks plunge amid fraud investigation")
	if score != -1 {
		t.Errorf("score = %.4f, want -1", score)
	}
}

func TestScoreTextMixed(t *testing.T) {
	score, conf := ScoreText("Upgrade despite loss")
	if math.Abs(score-0.2) > 1e-9 {
		t.Errorf("score = %.4f, want 0.2", score)
	}
	if math.Abs(conf-0.5) > 1e-9 {
		t.Errorf("confidence = %.4f, want 0.5", conf)
	}
}

func TestScoreTextNoHits(t *testing.T) {
	score, conf := ScoreText("Company opens office in Austin")
	if score != 0 || conf != 0.1 {
		t.Errorf("got (%.4f, %.4f), want (0, 0.1)", score, conf)
	}
}

func TestScoreArticleKeepsArticle(t *testing.T) {
	a := models.NewsArticle{Ticker: "AAPL", Title: "Analysts upgrade Apple", Source: "Yahoo"}
	s := ScoreArticle(a)
	if s.Source != "Yahoo" || s.Ticker != "AAPL" {
		t.Errorf("article fields lost: %+v", s.NewsArticle)
	}
	if s.Score <= 0 {
		t.Errorf("score = %.2f, want positive", s.Score)
	}
}

func TestAggregateDecaysOlderHeadlines(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	articles := []models.NewsArticle{
		{Title: "Apple rally", PublishedAt: now},
		{Title: "Shares plunge", PublishedAt: now.Add(-24 * time.Hour)},
	}

	s := Aggregate("AAPL", articles, now)
	if s.Score != 0.33 {
		t.Errorf("score = %.2f, want 0.33", s.Score)
	}
	if s.Label != LabelBullish {
		t.Errorf("label = %q, want %q", s.Label, LabelBullish)
	}
	if s.Confidence != 0.35 {
		t.Errorf("confidence = %.2f, want 0.35", s.Confidence)
	}
	if len(s.Articles) != 2 {
		t.Errorf("articles = %d, want 2", len(s.Articles))
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate("AAPL", nil, time.Now())
	if s.Label != LabelNeutral || s.Score != 0 {
		t.Errorf("got %+v, want neutral zero", s)
	}
	if s.Articles == nil {
		t.Error("Articles should be an empty slice, not nil")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, LabelBullish},
		{0.2, LabelSlightlyBullish},
		{0.1, LabelNeutral},
		{0, LabelNeutral},
		{-0.1, LabelNeutral},
		{-0.2, LabelSlightlyBearish},
		{-0.31, LabelBearish},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
