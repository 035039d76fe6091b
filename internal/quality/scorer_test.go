package quality

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"newsforge/internal/domain"
)

func testScorer() *Scorer {
	return New(NewReputationTable(), slog.New(slog.DiscardHandler))
}

func richArticle() *domain.Article {
	return &domain.Article{
		ID:    "q1",
		Title: "Why Bitcoin ETF Inflows Keep Breaking Records",
		Content: "Bitcoin climbed past $50,000 on Tuesday as spot ETF inflows hit a record for the third week.\n\n" +
			"Trading volumes on major exchanges rose sharply, and analysts pointed to fresh institutional demand. " +
			"A research report published Monday put cumulative inflows above $10 billion.\n\n" +
			"The market reaction spread to equities tied to crypto, with exchange stocks posting gains. " +
			"Data from the derivatives market showed funding rates climbing as well.\n\n" +
			"What happens next depends on whether the inflows persist through the quarter.",
		Summary:     "Record ETF inflows pushed bitcoin past $50,000.",
		Author:      "Jane Smith",
		Source:      "reuters",
		URL:         "https://example.com/bitcoin-etf",
		Category:    "crypto",
		PublishedAt: time.Now().Add(-30 * time.Minute),
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := testScorer()
	fixed := time.Now()
	s.now = func() time.Time { return fixed }

	article := richArticle()
	first := s.Score(article)
	second := s.Score(article)

	if *first != *second {
		t.Fatalf("scoring is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestScoreBoundsAndRollup(t *testing.T) {
	s := testScorer()
	score := s.Score(richArticle())

	for i, f := range score.Factors() {
		if f < 0 || f > 1 {
			t.Errorf("factor %d out of range: %v", i, f)
		}
	}
	if score.OverallScore < 0 || score.OverallScore > 1 {
		t.Fatalf("overall out of range: %v", score.OverallScore)
	}
	if score.Confidence < 0 || score.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", score.Confidence)
	}
	if score.Grade != domain.GradeFor(score.OverallScore) {
		t.Fatalf("grade %s does not match score %v", score.Grade, score.OverallScore)
	}
	if score.Recommendation == "" {
		t.Fatal("recommendation missing")
	}

	// Rounded to three decimals.
	scaled := score.OverallScore * 1000
	if diff := scaled - float64(int64(scaled+0.5)); diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("overall not rounded to 3 decimals: %v", score.OverallScore)
	}
}

func TestScoreOrdersGoodAboveBad(t *testing.T) {
	s := testScorer()

	good := s.Score(richArticle())
	bad := s.Score(&domain.Article{
		ID:          "q2",
		Content:     "short.",
		PublishedAt: time.Now().Add(-180 * 24 * time.Hour),
	})

	if good.OverallScore <= bad.OverallScore {
		t.Fatalf("rich article scored %v, sparse one %v", good.OverallScore, bad.OverallScore)
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.Grade
	}{
		{0.99, domain.GradeAPlus},
		{0.95, domain.GradeAPlus},
		{0.90, domain.GradeA},
		{0.85, domain.GradeA},
		{0.70, domain.GradeB},
		{0.60, domain.GradeC},
		{0.55, domain.GradeC},
		{0.45, domain.GradeD},
		{0.40, domain.GradeD},
		{0.10, domain.GradeF},
		{0, domain.GradeF},
	}

	for _, tt := range tests {
		if got := domain.GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScoreContentLength(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{0, 0},
		{500, 1},
		{3000, 1},
	}
	for _, tt := range tests {
		if got := scoreContentLength(tt.length); got != tt.want {
			t.Errorf("scoreContentLength(%d) = %v, want %v", tt.length, got, tt.want)
		}
	}
	if scoreContentLength(50) >= scoreContentLength(300) {
		t.Error("longer content under the ramp should score higher")
	}
	if decayed := scoreContentLength(50000); decayed < 0.6 {
		t.Errorf("long content should floor at 0.6, got %v", decayed)
	}
}

func TestReputationTable(t *testing.T) {
	table := NewReputationTable()

	known := table.SourceReputation("Reuters")
	unknown := table.SourceReputation("some-random-blog.example")
	if known <= unknown {
		t.Fatalf("known source %v should beat unknown %v", known, unknown)
	}
	if unknown != 0.5 {
		t.Fatalf("unknown source should default to 0.5, got %v", unknown)
	}
	if got := table.AuthorReputation(""); got != 0.2 {
		t.Fatalf("missing author should default to 0.2, got %v", got)
	}

	table.UpdateSourceReputation("newwire", 0.9)
	if got := table.SourceReputation("NewWire"); got != 0.9 {
		t.Fatalf("update not visible through normalized lookup: %v", got)
	}

	table.UpdateSourceReputation("newwire", 7)
	if got := table.SourceReputation("newwire"); got != 1 {
		t.Fatalf("reputation should clamp to 1, got %v", got)
	}
}

func TestScoreTimelinessSteps(t *testing.T) {
	s := testScorer()
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if got := s.scoreTimeliness(time.Time{}); got != 0.5 {
		t.Fatalf("unknown date should be 0.5, got %v", got)
	}
	fresh := s.scoreTimeliness(fixed.Add(-30 * time.Minute))
	stale := s.scoreTimeliness(fixed.Add(-100 * 24 * time.Hour))
	if fresh != 1 || stale != 0.2 {
		t.Fatalf("fresh=%v stale=%v", fresh, stale)
	}
}

func TestScoreCompleteness(t *testing.T) {
	full := scoreCompleteness(richArticle())
	if full != 1 {
		t.Fatalf("fully populated article should be 1, got %v", full)
	}
	sparse := scoreCompleteness(&domain.Article{Content: strings.Repeat("x", 10)})
	if sparse >= full {
		t.Fatalf("sparse article %v should be below full %v", sparse, full)
	}
}
