package structurer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"newsforge/internal/domain"
)

func testStructurer() *Structurer {
	return New(slog.New(slog.DiscardHandler))
}

const marketBody = `# Market Overview

Bitcoin surged past $50,000 on Tuesday after BlackRock reported record ETF inflows.
The SEC approved two additional spot products last week, according to filings.

## Key Drivers

- Institutional inflows reached a new record
- The Federal Reserve signaled a pause on rate hikes
- Coinbase reported higher trading volumes

Analysts expect continued volatility through the quarter.`

func TestStructureExtractsSections(t *testing.T) {
	s := testStructurer()
	article := &domain.Article{ID: "s1", Title: "Bitcoin Surges", Content: marketBody}

	content, stats := s.Structure(context.Background(), article)
	if stats.SectionsFound < 2 {
		t.Fatalf("expected at least 2 sections, got %d", stats.SectionsFound)
	}

	var headings []string
	for _, sec := range content.Sections {
		headings = append(headings, sec.Heading)
	}
	joined := strings.Join(headings, "|")
	if !strings.Contains(joined, "Market Overview") || !strings.Contains(joined, "Key Drivers") {
		t.Fatalf("markdown headings missing from sections: %v", headings)
	}

	if got, ok := article.GetMetadata("structured"); !ok || got != true {
		t.Fatal("structured metadata flag missing")
	}
	if content.ReadingTime < 1 {
		t.Fatalf("reading time should be at least 1 minute, got %d", content.ReadingTime)
	}
}

func TestStructureExtractsKeyPointsFromBullets(t *testing.T) {
	s := testStructurer()
	article := &domain.Article{ID: "s2", Content: marketBody}

	content, stats := s.Structure(context.Background(), article)
	if stats.KeyPointsFound == 0 {
		t.Fatal("expected key points from bullet lines")
	}
	found := false
	for _, kp := range content.KeyPoints {
		if strings.Contains(kp, "Institutional inflows") {
			found = true
		}
	}
	if !found {
		t.Fatalf("bullet content missing from key points: %v", content.KeyPoints)
	}
	if len(content.KeyPoints) > 10 {
		t.Fatalf("key points should be capped at 10, got %d", len(content.KeyPoints))
	}
}

func TestExtractEntities(t *testing.T) {
	entities := ExtractEntities(marketBody)

	if got := entities["cryptocurrencies"]; len(got) == 0 || !containsFold(got, "bitcoin") {
		t.Errorf("bitcoin not recognized: %v", got)
	}
	if got := entities["companies"]; !containsFold(got, "blackrock") || !containsFold(got, "coinbase") {
		t.Errorf("companies missing: %v", got)
	}
	if got := entities["regulators"]; !containsFold(got, "sec") {
		t.Errorf("regulator missing: %v", got)
	}
}

func TestKeywordSentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"positive", "Shares surged as profits soared to a record and analysts turned bullish.", "positive"},
		{"negative", "The token crashed amid fears of fraud, and losses deepened during the selloff.", "negative"},
		{"no signal", "The committee will meet again in March to review the schedule.", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeywordSentiment(tt.text); got != tt.want {
				t.Errorf("KeywordSentiment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructureEmptyContentYieldsMinimalResult(t *testing.T) {
	s := testStructurer()
	article := &domain.Article{ID: "s3", Content: ""}

	content, _ := s.Structure(context.Background(), article)
	if len(content.Sections) == 0 {
		t.Fatal("expected a fallback section")
	}
	if content.UrgencyLevel == "" {
		t.Fatal("expected an urgency level")
	}
}

func TestStructureGeneratesSummaryWhenMissing(t *testing.T) {
	s := testStructurer()
	article := &domain.Article{
		ID: "s4",
		Content: "The exchange resumed withdrawals after a six-hour outage caused by a failed database migration. " +
			"Customer funds were never at risk, the company said in a statement on Tuesday morning.",
	}

	content, stats := s.Structure(context.Background(), article)
	if !stats.SummaryGenerated {
		t.Fatal("expected a generated summary")
	}
	if content.Summary == "" || article.GetSummary() == "" {
		t.Fatal("summary should be set on both the result and the article")
	}
}

type stubSentimentClient struct {
	result domain.AnalysisResult
	err    error
}

func (c *stubSentimentClient) AnalyzeSentiment(context.Context, *domain.Article) (domain.AnalysisResult, error) {
	return c.result, c.err
}

func TestAugmentedAnalyzerFallsBack(t *testing.T) {
	article := &domain.Article{
		ID:      "s5",
		Content: "Shares surged as profits soared to a record high across the sector.",
	}

	failing := NewAugmentedAnalyzer(NewKeywordAnalyzer(), &stubSentimentClient{err: errors.New("model down")}, 0.5)
	analysis, err := failing.Analyze(context.Background(), article)
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if analysis.Sentiment != "positive" {
		t.Fatalf("expected keyword fallback sentiment, got %q", analysis.Sentiment)
	}

	confident := NewAugmentedAnalyzer(NewKeywordAnalyzer(), &stubSentimentClient{
		result: domain.AnalysisResult{Capability: domain.CapabilitySentiment, Text: "negative", Confidence: 0.9},
	}, 0.5)
	analysis, err = confident.Analyze(context.Background(), article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Sentiment != "negative" || analysis.Confidence != 0.9 {
		t.Fatalf("expected the model result to win, got %+v", analysis)
	}

	unsure := NewAugmentedAnalyzer(NewKeywordAnalyzer(), &stubSentimentClient{
		result: domain.AnalysisResult{Capability: domain.CapabilitySentiment, Text: "negative", Confidence: 0.2},
	}, 0.5)
	analysis, _ = unsure.Analyze(context.Background(), article)
	if analysis.Sentiment != "positive" {
		t.Fatalf("low-confidence model result should be ignored, got %q", analysis.Sentiment)
	}
}

func TestStructureUsesConfiguredAnalyzer(t *testing.T) {
	client := &stubSentimentClient{
		result: domain.AnalysisResult{Capability: domain.CapabilitySentiment, Text: "negative", Confidence: 0.9},
	}
	s := NewWithAnalyzer(
		NewAugmentedAnalyzer(NewKeywordAnalyzer(), client, 0.5),
		slog.New(slog.DiscardHandler),
	)

	// Keyword analysis alone would read this as positive.
	article := &domain.Article{
		ID:      "s6",
		Content: "Shares surged as profits soared to a record high across the sector.",
	}

	content, _ := s.Structure(context.Background(), article)
	if content.Sentiment != "negative" {
		t.Fatalf("configured analyzer was bypassed, sentiment %q", content.Sentiment)
	}
	if got, _ := article.GetMetadata("sentiment"); got != "negative" {
		t.Fatalf("article metadata carries the wrong sentiment: %v", got)
	}
}

func containsFold(list []string, want string) bool {
	for _, item := range list {
		if strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}
