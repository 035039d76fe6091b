package llm

import (
	"context"

	"newsforge/internal/domain"
)

// Client is the pluggable AI analysis surface. Each capability is an
// independent call; one failing never affects the others. A nil Client
// simply skips the LLM analysis stage.
type Client interface {
	Summarize(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error)
	AnalyzeSentiment(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error)
	ExtractEntities(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error)
	AssessMarketImpact(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error)
}
