package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsforge/internal/config"
	"newsforge/internal/domain"
	"newsforge/internal/store"
)

// Runner fans the four sub-analyses out over one article, caching each
// result independently. A capability failing or timing out never blocks
// its siblings; all four settle before AnalyzeAll returns.
type Runner struct {
	client   Client
	cache    store.Store
	cfg      config.LLMConfig
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewRunner(client Client, cache store.Store, cfg config.LLMConfig, logger *slog.Logger) *Runner {
	return &Runner{
		client:   client,
		cache:    cache,
		cfg:      cfg,
		cacheTTL: config.Duration(cfg.CacheTTL, time.Hour),
		logger:   logger,
	}
}

// Outcome collects what the four capabilities produced for one article.
type Outcome struct {
	Results map[domain.Capability]domain.AnalysisResult
	Errors  map[domain.Capability]error
}

// Completed reports how many capabilities produced an accepted result.
func (o *Outcome) Completed() int {
	return len(o.Results)
}

// AnalyzeAll runs every capability concurrently and waits for all of
// them. Low-confidence results are dropped, recorded as errors.
func (r *Runner) AnalyzeAll(ctx context.Context, article *domain.Article) *Outcome {
	outcome := &Outcome{
		Results: make(map[domain.Capability]domain.AnalysisResult, len(domain.Capabilities)),
		Errors:  make(map[domain.Capability]error),
	}

	calls := map[domain.Capability]func(context.Context, *domain.Article) (domain.AnalysisResult, error){
		domain.CapabilitySummarize:    r.client.Summarize,
		domain.CapabilitySentiment:    r.client.AnalyzeSentiment,
		domain.CapabilityEntities:     r.client.ExtractEntities,
		domain.CapabilityMarketImpact: r.client.AssessMarketImpact,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for capability, call := range calls {
		wg.Add(1)
		go func(capability domain.Capability, call func(context.Context, *domain.Article) (domain.AnalysisResult, error)) {
			defer wg.Done()
			result, err := r.analyzeOne(ctx, article, capability, call)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.Errors[capability] = err
				return
			}
			outcome.Results[capability] = result
		}(capability, call)
	}
	wg.Wait()

	return outcome
}

func (r *Runner) analyzeOne(
	ctx context.Context,
	article *domain.Article,
	capability domain.Capability,
	call func(context.Context, *domain.Article) (domain.AnalysisResult, error),
) (domain.AnalysisResult, error) {
	cacheKey := fmt.Sprintf("llm:%s:%s", article.ID, capability)

	if r.cfg.CachingEnabled && r.cache != nil {
		if cached, ok := r.cachedResult(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	result, err := call(ctx, article)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%s: %w", capability, err)
	}
	if result.Confidence < r.cfg.ConfidenceThreshold {
		return domain.AnalysisResult{}, fmt.Errorf("%s: confidence %.2f below threshold %.2f",
			capability, result.Confidence, r.cfg.ConfidenceThreshold)
	}

	if r.cfg.CachingEnabled && r.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := r.cache.Set(ctx, cacheKey, data, r.cacheTTL); err != nil {
				r.logger.Warn("llm result cache write failed", "key", cacheKey, "error", err)
			}
		}
	}

	return result, nil
}

func (r *Runner) cachedResult(ctx context.Context, key string) (domain.AnalysisResult, bool) {
	data, found, err := r.cache.Get(ctx, key)
	if err != nil || !found {
		return domain.AnalysisResult{}, false
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.AnalysisResult{}, false
	}
	return result, true
}
