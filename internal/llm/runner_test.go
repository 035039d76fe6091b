package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"newsforge/internal/config"
	"newsforge/internal/domain"
	"newsforge/internal/store"
)

// fakeClient counts calls per capability and lets tests script failures.
type fakeClient struct {
	calls        atomic.Int64
	sentimentErr error
	confidence   float64
}

func newFakeClient() *fakeClient {
	return &fakeClient{confidence: 0.9}
}

func (c *fakeClient) result(capability domain.Capability, text string) (domain.AnalysisResult, error) {
	c.calls.Add(1)
	return domain.AnalysisResult{Capability: capability, Text: text, Confidence: c.confidence}, nil
}

func (c *fakeClient) Summarize(_ context.Context, _ *domain.Article) (domain.AnalysisResult, error) {
	return c.result(domain.CapabilitySummarize, "a one sentence summary")
}

func (c *fakeClient) AnalyzeSentiment(_ context.Context, _ *domain.Article) (domain.AnalysisResult, error) {
	if c.sentimentErr != nil {
		c.calls.Add(1)
		return domain.AnalysisResult{Capability: domain.CapabilitySentiment}, c.sentimentErr
	}
	return c.result(domain.CapabilitySentiment, "positive")
}

func (c *fakeClient) ExtractEntities(_ context.Context, _ *domain.Article) (domain.AnalysisResult, error) {
	c.calls.Add(1)
	return domain.AnalysisResult{
		Capability: domain.CapabilityEntities,
		Labels:     []string{"bitcoin", "sec"},
		Confidence: c.confidence,
	}, nil
}

func (c *fakeClient) AssessMarketImpact(_ context.Context, _ *domain.Article) (domain.AnalysisResult, error) {
	return c.result(domain.CapabilityMarketImpact, "mildly bullish for majors")
}

func testRunner(client Client, cache store.Store, cfg config.LLMConfig) *Runner {
	return NewRunner(client, cache, cfg, slog.New(slog.DiscardHandler))
}

func testArticle() *domain.Article {
	return &domain.Article{ID: "llm1", Title: "Bitcoin Surges", Content: "Bitcoin climbed sharply on Tuesday."}
}

func TestAnalyzeAllRunsEveryCapability(t *testing.T) {
	client := newFakeClient()
	r := testRunner(client, nil, config.LLMConfig{Enabled: true, ConfidenceThreshold: 0.5})

	outcome := r.AnalyzeAll(context.Background(), testArticle())
	if outcome.Completed() != len(domain.Capabilities) {
		t.Fatalf("expected %d results, got %d (errors: %v)",
			len(domain.Capabilities), outcome.Completed(), outcome.Errors)
	}
	for _, capability := range domain.Capabilities {
		if _, ok := outcome.Results[capability]; !ok {
			t.Errorf("capability %s missing from results", capability)
		}
	}
}

func TestAnalyzeAllIsolatesFailures(t *testing.T) {
	client := newFakeClient()
	client.sentimentErr = errors.New("model unavailable")
	r := testRunner(client, nil, config.LLMConfig{Enabled: true, ConfidenceThreshold: 0.5})

	outcome := r.AnalyzeAll(context.Background(), testArticle())
	if outcome.Completed() != 3 {
		t.Fatalf("expected 3 surviving results, got %d", outcome.Completed())
	}
	if _, failed := outcome.Errors[domain.CapabilitySentiment]; !failed {
		t.Fatal("sentiment failure not recorded")
	}
	if _, ok := outcome.Results[domain.CapabilitySummarize]; !ok {
		t.Fatal("sibling capability was dragged down by the failure")
	}
}

func TestAnalyzeAllDropsLowConfidence(t *testing.T) {
	client := newFakeClient()
	client.confidence = 0.1
	r := testRunner(client, nil, config.LLMConfig{Enabled: true, ConfidenceThreshold: 0.5})

	outcome := r.AnalyzeAll(context.Background(), testArticle())
	if outcome.Completed() != 0 {
		t.Fatalf("low-confidence results should be dropped, got %d", outcome.Completed())
	}
	if len(outcome.Errors) != len(domain.Capabilities) {
		t.Fatalf("expected an error per capability, got %d", len(outcome.Errors))
	}
}

func TestAnalyzeAllCachesResults(t *testing.T) {
	client := newFakeClient()
	cache := store.NewMemory(time.Minute)
	defer cache.Close()

	r := testRunner(client, cache, config.LLMConfig{
		Enabled:             true,
		CachingEnabled:      true,
		CacheTTL:            "1h",
		ConfidenceThreshold: 0.5,
	})

	article := testArticle()
	first := r.AnalyzeAll(context.Background(), article)
	if first.Completed() != len(domain.Capabilities) {
		t.Fatalf("warmup run incomplete: %v", first.Errors)
	}
	callsAfterFirst := client.calls.Load()

	second := r.AnalyzeAll(context.Background(), article)
	if second.Completed() != len(domain.Capabilities) {
		t.Fatalf("cached run incomplete: %v", second.Errors)
	}
	if client.calls.Load() != callsAfterFirst {
		t.Fatalf("cached run still hit the client: %d calls vs %d",
			client.calls.Load(), callsAfterFirst)
	}

	// A different article must not reuse the cache.
	other := testArticle()
	other.ID = "llm2"
	r.AnalyzeAll(context.Background(), other)
	if client.calls.Load() == callsAfterFirst {
		t.Fatal("different article reused another article's cache entries")
	}
}
