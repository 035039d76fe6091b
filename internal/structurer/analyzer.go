package structurer

import (
	"context"
	"fmt"

	"newsforge/internal/domain"
)

// Analysis is the sentiment/entity view an Analyzer produces.
type Analysis struct {
	Sentiment  string              `json:"sentiment"`
	Entities   map[string][]string `json:"entities"`
	Confidence float64             `json:"confidence"`
}

// Analyzer is the capability interface for sentiment/entity analysis.
// Variants are chosen at construction, never swapped at runtime.
type Analyzer interface {
	Analyze(ctx context.Context, article *domain.Article) (Analysis, error)
}

// SentimentClient is the slice of the LLM surface the augmented
// analyzer needs.
type SentimentClient interface {
	AnalyzeSentiment(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error)
}

// KeywordAnalyzer is the plain, model-free variant.
type KeywordAnalyzer struct{}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

func (a *KeywordAnalyzer) Analyze(_ context.Context, article *domain.Article) (Analysis, error) {
	text := article.GetContent()
	sentiment := KeywordSentiment(text)
	confidence := 0.6
	if sentiment == "none" {
		confidence = 0.3
	}
	return Analysis{
		Sentiment:  sentiment,
		Entities:   ExtractEntities(text),
		Confidence: confidence,
	}, nil
}

// AugmentedAnalyzer composes the keyword analyzer with an LLM sentiment
// call, falling back to the plain result when the model is unavailable
// or unsure.
type AugmentedAnalyzer struct {
	plain               Analyzer
	client              SentimentClient
	confidenceThreshold float64
}

func NewAugmentedAnalyzer(plain Analyzer, client SentimentClient, confidenceThreshold float64) *AugmentedAnalyzer {
	return &AugmentedAnalyzer{
		plain:               plain,
		client:              client,
		confidenceThreshold: confidenceThreshold,
	}
}

func (a *AugmentedAnalyzer) Analyze(ctx context.Context, article *domain.Article) (Analysis, error) {
	analysis, err := a.plain.Analyze(ctx, article)
	if err != nil {
		return Analysis{}, fmt.Errorf("plain analysis: %w", err)
	}

	result, err := a.client.AnalyzeSentiment(ctx, article)
	if err != nil || result.Confidence < a.confidenceThreshold {
		// Keep the keyword result; the model call is an upgrade,
		// not a dependency.
		return analysis, nil
	}

	analysis.Sentiment = result.Text
	analysis.Confidence = result.Confidence
	return analysis, nil
}
