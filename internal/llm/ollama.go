package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/sony/gobreaker/v2"

	"newsforge/internal/config"
	"newsforge/internal/domain"
)

// maxPromptContent keeps prompts inside small-model context windows.
const maxPromptContent = 6000

// OllamaClient implements Client against a local ollama server. All
// generate calls share one circuit breaker, so a dead model server stops
// costing a timeout per capability per article.
type OllamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[string]
}

func NewOllamaClient(cfg config.LLMConfig) (*OllamaClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "ollama",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &OllamaClient{
		client:  client,
		model:   cfg.Model,
		timeout: config.Duration(cfg.MaxProcessingTime, 30*time.Second),
		breaker: breaker,
	}, nil
}

func (c *OllamaClient) Summarize(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error) {
	prompt := fmt.Sprintf(`You are a professional news editor. Provide a single, information-dense sentence that summarizes the main event. Avoid fluff like "This article is about."

Article Title: %s

Article Content:
"""
%s
"""

Short Summary:`, article.Title, clipContent(article.GetContent()))

	text, err := c.generate(ctx, prompt, false)
	if err != nil {
		return domain.AnalysisResult{Capability: domain.CapabilitySummarize}, err
	}
	return domain.AnalysisResult{
		Capability: domain.CapabilitySummarize,
		Text:       text,
		Confidence: 0.85,
	}, nil
}

func (c *OllamaClient) AnalyzeSentiment(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error) {
	prompt := fmt.Sprintf(`Classify the market sentiment of this news article as "positive", "negative" or "neutral". Respond with JSON: {"label": "...", "confidence": 0.0}

Article:
"""
%s
"""`, clipContent(article.GetContent()))

	raw, err := c.generate(ctx, prompt, true)
	if err != nil {
		return domain.AnalysisResult{Capability: domain.CapabilitySentiment}, err
	}

	var parsed struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.AnalysisResult{Capability: domain.CapabilitySentiment},
			fmt.Errorf("parse sentiment response: %w", err)
	}
	return domain.AnalysisResult{
		Capability: domain.CapabilitySentiment,
		Text:       strings.ToLower(parsed.Label),
		Confidence: parsed.Confidence,
	}, nil
}

func (c *OllamaClient) ExtractEntities(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error) {
	prompt := fmt.Sprintf(`List the companies, assets, people and regulators this article is about. Respond with JSON: {"entities": ["..."], "confidence": 0.0}

Article:
"""
%s
"""`, clipContent(article.GetContent()))

	raw, err := c.generate(ctx, prompt, true)
	if err != nil {
		return domain.AnalysisResult{Capability: domain.CapabilityEntities}, err
	}

	var parsed struct {
		Entities   []string `json:"entities"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.AnalysisResult{Capability: domain.CapabilityEntities},
			fmt.Errorf("parse entities response: %w", err)
	}
	return domain.AnalysisResult{
		Capability: domain.CapabilityEntities,
		Labels:     parsed.Entities,
		Confidence: parsed.Confidence,
	}, nil
}

func (c *OllamaClient) AssessMarketImpact(ctx context.Context, article *domain.Article) (domain.AnalysisResult, error) {
	prompt := fmt.Sprintf(`Assess the likely market impact of this news in one short paragraph: which assets move, which direction, and how strongly.

Article Title: %s

Article:
"""
%s
"""

Assessment:`, article.Title, clipContent(article.GetContent()))

	text, err := c.generate(ctx, prompt, false)
	if err != nil {
		return domain.AnalysisResult{Capability: domain.CapabilityMarketImpact}, err
	}
	return domain.AnalysisResult{
		Capability: domain.CapabilityMarketImpact,
		Text:       text,
		Confidence: 0.7,
	}, nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt string, jsonFormat bool) (string, error) {
	return c.breaker.Execute(func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req := &api.GenerateRequest{
			Model:  c.model,
			Prompt: prompt,
			Stream: new(bool),
		}
		if jsonFormat {
			req.Format = json.RawMessage(`"json"`)
		}

		var response string
		respFunc := func(resp api.GenerateResponse) error {
			if resp.Done {
				response = resp.Response
			}
			return nil
		}

		if err := c.client.Generate(callCtx, req, respFunc); err != nil {
			return "", fmt.Errorf("ollama generate: %w", err)
		}
		return strings.TrimSpace(response), nil
	})
}

func clipContent(content string) string {
	if len(content) <= maxPromptContent {
		return content
	}
	return content[:maxPromptContent]
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
