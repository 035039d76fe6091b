package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsforge/internal/config"
	"newsforge/internal/dedupe"
	"newsforge/internal/domain"
	"newsforge/internal/llm"
	"newsforge/internal/noise"
	"newsforge/internal/preprocess"
	"newsforge/internal/quality"
	"newsforge/internal/store"
	"newsforge/internal/structurer"
)

// errStageSkipped marks a stage that ran its gate and decided it had
// nothing to do. Skipped stages are neither completed nor failed.
var errStageSkipped = errors.New("stage skipped")

// noiseFilter is the slice of the noise package the manager calls.
type noiseFilter interface {
	FilterNoise(article *domain.Article) (noise.Stats, error)
}

// Manager wires the stages together and runs batches through them in the
// fixed order: preprocessing, deduplication, noise filtering,
// structuring, quality scoring, LLM analysis. Articles fail
// independently; a batch never fails because one article did.
type Manager struct {
	cfg *config.Config

	preprocessor *preprocess.Preprocessor
	engine       *dedupe.Engine
	noiseFilter  noiseFilter
	structurer   *structurer.Structurer
	reputation   *quality.ReputationTable
	scorer       *quality.Scorer
	runner       *llm.Runner

	kv      store.Store
	metrics *Metrics
	logger  *slog.Logger

	timeout time.Duration

	mu             sync.Mutex
	running        bool
	processedTotal int64
	lastBatchAt    time.Time
	ledger         []*domain.ProcessingResult
}

// ledgerCap bounds how many completed results the manager retains.
const ledgerCap = 1000

// New builds a manager from cfg. A nil client disables LLM analysis
// regardless of configuration.
func New(cfg *config.Config, client llm.Client, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	kv, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}

	reputation := quality.NewReputationTable()

	// With a client configured, structuring upgrades its sentiment to
	// the model-backed analyzer; without one it stays keyword-based.
	var analyzer structurer.Analyzer = structurer.NewKeywordAnalyzer()
	if client != nil {
		analyzer = structurer.NewAugmentedAnalyzer(
			structurer.NewKeywordAnalyzer(), client, cfg.LLM.ConfidenceThreshold)
	}

	m := &Manager{
		cfg:          cfg,
		preprocessor: preprocess.New(cfg.Preprocess, logger),
		engine:       dedupe.NewEngine(cfg.Dedupe, kv, logger),
		noiseFilter:  noise.New(cfg.Noise, logger),
		structurer:   structurer.NewWithAnalyzer(analyzer, logger),
		reputation:   reputation,
		scorer:       quality.New(reputation, logger),
		kv:           kv,
		metrics:      NewMetrics(),
		logger:       logger,
		timeout:      config.Duration(cfg.Pipeline.ProcessingTimeout, time.Minute),
	}
	if client != nil {
		m.runner = llm.NewRunner(client, kv, cfg.LLM, logger)
	}
	return m, nil
}

// articleOutcome is what processing one article produced, including the
// per-stage accounting the batch rollup needs.
type articleOutcome struct {
	result      *domain.ProcessingResult
	timings     map[domain.Stage]time.Duration
	stageErrors map[domain.Stage]int
}

// Process runs every article through the pipeline and returns one result
// per article, in input order. Per-article failures travel inside
// ProcessingResults; the returned error covers batch-level problems only.
func (m *Manager) Process(ctx context.Context, articles []*domain.Article) (*domain.PipelineResult, error) {
	started := time.Now()

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.processedTotal += int64(len(articles))
		m.lastBatchAt = time.Now()
		m.mu.Unlock()
	}()

	result := &domain.PipelineResult{
		Articles:          articles,
		ProcessingResults: make([]*domain.ProcessingResult, 0, len(articles)),
		Stats:             domain.NewPipelineStats(),
	}
	result.Stats.TotalArticles = len(articles)

	if len(articles) == 0 {
		result.ExecutionTime = time.Since(started)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("batch not started: %v", err))
		result.ExecutionTime = time.Since(started)
		return result, nil
	}

	// Upstream sources occasionally hand over articles without ids;
	// every downstream key (fingerprints, LLM cache, results) needs one.
	for _, article := range articles {
		if article.ID == "" {
			article.ID = uuid.NewString()
		}
	}

	m.logger.Info("batch started",
		"articles", len(articles),
		"parallel", m.cfg.Pipeline.EnableParallelProcessing)

	outcomes := make([]*articleOutcome, len(articles))
	if m.cfg.Pipeline.EnableParallelProcessing {
		wave := m.cfg.Pipeline.MaxBatchSize
		if wave <= 0 {
			wave = len(articles)
		}
		for start := 0; start < len(articles); start += wave {
			end := min(start+wave, len(articles))
			m.processParallel(ctx, articles[start:end], outcomes[start:end])
		}
	} else {
		m.processSerial(ctx, articles, outcomes)
	}

	m.aggregate(result, outcomes)
	m.engine.Sweep()

	result.ExecutionTime = time.Since(started)
	m.metrics.batchDuration.Observe(result.ExecutionTime.Seconds())

	m.logger.Info("batch finished",
		"articles", len(articles),
		"completed", result.Stats.Completed,
		"failed", result.Stats.Failed,
		"skipped", result.Stats.Skipped,
		"duplicates", result.Stats.Duplicates,
		"duration", result.ExecutionTime)

	return result, nil
}

// processSerial runs articles one by one. Deduplication sees the
// completed articles that came before in the same batch, so in-batch
// near-duplicates are caught.
func (m *Manager) processSerial(ctx context.Context, articles []*domain.Article, outcomes []*articleOutcome) {
	priors := make([]*domain.Article, 0, len(articles))
	for i, article := range articles {
		out := m.processArticle(ctx, article, priors)
		outcomes[i] = out
		if out.result.Status == domain.StatusCompleted {
			priors = append(priors, article)
		}
	}
}

// processParallel fans a wave of articles out over a bounded worker
// pool. In-flight articles are not visible to each other's
// deduplication; exact duplicates are still caught through the shared
// fingerprint cache. Workers never return errors, so one article cannot
// cancel the wave.
func (m *Manager) processParallel(ctx context.Context, wave []*domain.Article, outcomes []*articleOutcome) {
	g, gctx := errgroup.WithContext(ctx)
	if limit := m.cfg.Pipeline.MaxConcurrency; limit > 0 {
		g.SetLimit(limit)
	}
	for i, article := range wave {
		g.Go(func() error {
			outcomes[i] = m.processArticle(gctx, article, nil)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) processArticle(parent context.Context, article *domain.Article, priors []*domain.Article) *articleOutcome {
	m.metrics.inFlight.Inc()
	defer m.metrics.inFlight.Dec()

	result := domain.NewProcessingResult(article.ID)
	result.Status = domain.StatusProcessing
	out := &articleOutcome{
		result:      result,
		timings:     make(map[domain.Stage]time.Duration, len(domain.Stages)),
		stageErrors: make(map[domain.Stage]int),
	}

	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("article processing fault",
				"article_id", article.ID, "panic", r)
			result.AddError(domain.NewStageError(domain.StagePreprocessing,
				domain.KindInternalFault, article.ID, fmt.Errorf("%v", r)))
		}
		finalize(result)
		m.metrics.observeFinal(result)
	}()

	steps := []struct {
		stage   domain.Stage
		enabled bool
		run     func(context.Context) error
	}{
		{domain.StagePreprocessing, m.cfg.Preprocess.Enabled, func(context.Context) error {
			stats, err := m.preprocessor.Preprocess(article)
			result.Metadata["preprocess"] = stats
			if err != nil {
				// Content is untouched after a preprocessing fault;
				// the rest of the pipeline can still run on it.
				m.logger.Warn("preprocessing degraded",
					"article_id", article.ID, "error", err)
				return errStageSkipped
			}
			return nil
		}},
		{domain.StageDeduplication, m.cfg.Dedupe.Enabled, func(ctx context.Context) error {
			decision := m.engine.Deduplicate(ctx, article, priors)
			result.IsDuplicate = decision.IsDuplicate
			result.DuplicateGroupID = decision.GroupID
			result.Metadata["dedupe"] = decision
			article.AddMetadata("isDuplicate", decision.IsDuplicate)
			if decision.GroupID != "" {
				article.AddMetadata("duplicateGroupID", decision.GroupID)
			}
			return nil
		}},
		{domain.StageNoiseFiltering, m.cfg.Noise.Enabled, func(context.Context) error {
			stats, err := m.noiseFilter.FilterNoise(article)
			result.Metadata["noise"] = stats
			return err
		}},
		{domain.StageStructuring, m.cfg.Pipeline.EnableStructuring, func(ctx context.Context) error {
			content, stats := m.structurer.Structure(ctx, article)
			result.Metadata["structure"] = stats
			result.Metadata["keyPoints"] = content.KeyPoints
			return nil
		}},
		{domain.StageQualityScoring, m.cfg.Quality.Enabled, func(context.Context) error {
			score := m.scorer.Score(article)
			result.QualityScore = score
			article.AddMetadata("qualityScore", score.OverallScore)
			article.AddMetadata("qualityGrade", string(score.Grade))
			return nil
		}},
		{domain.StageLLMAnalysis, m.cfg.LLM.Enabled, func(ctx context.Context) error {
			if m.runner == nil {
				return errStageSkipped
			}
			if result.QualityScore == nil ||
				result.QualityScore.OverallScore < m.cfg.LLM.MinQualityThreshold {
				m.logger.Debug("quality below LLM threshold, skipping analysis",
					"article_id", article.ID)
				return errStageSkipped
			}
			m.applyAnalysis(ctx, article, result)
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			result.AddError(domain.NewStageError(step.stage,
				domain.KindExternalTimeout, article.ID, err))
			out.stageErrors[step.stage]++
			m.metrics.observeStageError(step.stage)
			break
		}
		if !step.enabled {
			continue
		}
		// Everything past deduplication is pointless for duplicates and
		// unsafe after an error.
		if postDedupe(step.stage) && (result.HasErrors() || result.IsDuplicate) {
			continue
		}
		m.runStage(ctx, step.stage, out, step.run)
	}

	return out
}

// runStage times one stage, completes it on success and converts both
// returned errors and panics into recorded stage failures.
func (m *Manager) runStage(ctx context.Context, stage domain.Stage, out *articleOutcome, run func(context.Context) error) {
	result := out.result
	started := time.Now()

	defer func() {
		d := time.Since(started)
		out.timings[stage] = d
		m.metrics.observeStage(stage, d)

		if r := recover(); r != nil {
			result.AddError(domain.NewStageError(stage, domain.KindInternalFault,
				result.ArticleID, fmt.Errorf("%v", r)))
			out.stageErrors[stage]++
			m.metrics.observeStageError(stage)
			m.logger.Error("stage fault",
				"stage", stage, "article_id", result.ArticleID, "panic", r)
		}
	}()

	err := run(ctx)
	switch {
	case err == nil:
		result.CompleteStage(stage)
	case errors.Is(err, errStageSkipped):
	default:
		result.AddError(err)
		out.stageErrors[stage]++
		m.metrics.observeStageError(stage)
		m.logger.Warn("stage failed",
			"stage", stage, "article_id", result.ArticleID, "error", err)
	}
}

// applyAnalysis runs the four LLM capabilities and folds whatever they
// produced into the article. Capability failures are recorded as
// metadata, never as stage errors: partial analysis is still progress.
func (m *Manager) applyAnalysis(ctx context.Context, article *domain.Article, result *domain.ProcessingResult) {
	outcome := m.runner.AnalyzeAll(ctx, article)

	if summary, ok := outcome.Results[domain.CapabilitySummarize]; ok {
		if article.GetSummary() == "" {
			article.SetSummary(summary.Text)
		}
		article.AddMetadata("llmSummary", summary.Text)
	}
	if sentiment, ok := outcome.Results[domain.CapabilitySentiment]; ok {
		article.AddMetadata("llmSentiment", sentiment.Text)
	}
	if entities, ok := outcome.Results[domain.CapabilityEntities]; ok {
		article.AddMetadata("llmEntities", entities.Labels)
	}
	if impact, ok := outcome.Results[domain.CapabilityMarketImpact]; ok {
		article.AddMetadata("llmMarketImpact", impact.Text)
	}

	result.Metadata["llmCompleted"] = outcome.Completed()
	if len(outcome.Errors) > 0 {
		msgs := make(map[string]string, len(outcome.Errors))
		for capability, err := range outcome.Errors {
			msgs[string(capability)] = err.Error()
		}
		result.Metadata["llmErrors"] = msgs
	}
}

func (m *Manager) aggregate(result *domain.PipelineResult, outcomes []*articleOutcome) {
	stats := result.Stats
	qualitySum := 0.0
	qualityCount := 0

	for _, out := range outcomes {
		if out == nil {
			continue
		}
		res := out.result
		result.ProcessingResults = append(result.ProcessingResults, res)

		switch res.Status {
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusSkipped:
			stats.Skipped++
		}
		if res.IsDuplicate {
			stats.Duplicates++
		}
		if res.QualityScore != nil {
			qualitySum += res.QualityScore.OverallScore
			qualityCount++
			stats.GradeHistogram[res.QualityScore.Grade]++
		}
		for stage, d := range out.timings {
			stats.StageDurations[stage] += d
		}
		for stage, n := range out.stageErrors {
			stats.ErrorsByStage[stage] += n
		}
	}

	if qualityCount > 0 {
		stats.AverageQuality = qualitySum / float64(qualityCount)
	}

	m.recordCompleted(result.ProcessingResults)
}

// recordCompleted appends completed results to the bounded ledger.
func (m *Manager) recordCompleted(results []*domain.ProcessingResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range results {
		if res.Status != domain.StatusCompleted {
			continue
		}
		m.ledger = append(m.ledger, res)
	}
	if overflow := len(m.ledger) - ledgerCap; overflow > 0 {
		m.ledger = append(m.ledger[:0], m.ledger[overflow:]...)
	}
}

// CompletedResults returns a snapshot of the retained completed results,
// oldest first.
func (m *Manager) CompletedResults() []*domain.ProcessingResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ProcessingResult, len(m.ledger))
	copy(out, m.ledger)
	return out
}

func finalize(result *domain.ProcessingResult) {
	switch {
	case result.HasErrors():
		result.Status = domain.StatusFailed
	case result.IsDuplicate:
		result.Status = domain.StatusSkipped
	default:
		result.Status = domain.StatusCompleted
	}
	result.FinishedAt = time.Now()
}

func postDedupe(stage domain.Stage) bool {
	switch stage {
	case domain.StageNoiseFiltering, domain.StageStructuring,
		domain.StageQualityScoring, domain.StageLLMAnalysis:
		return true
	}
	return false
}

// ManagerStatus is a point-in-time snapshot for operators.
type ManagerStatus struct {
	Running          bool      `json:"running"`
	ProcessedTotal   int64     `json:"processed_total"`
	LastBatchAt      time.Time `json:"last_batch_at"`
	FingerprintCount int       `json:"fingerprint_count"`
}

func (m *Manager) Status() ManagerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ManagerStatus{
		Running:          m.running,
		ProcessedTotal:   m.processedTotal,
		LastBatchAt:      m.lastBatchAt,
		FingerprintCount: m.engine.CacheSize(),
	}
}

// Metrics exposes the manager's prometheus registry for serving.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// UpdateSourceReputation adjusts the credibility table feeding the
// quality scorer.
func (m *Manager) UpdateSourceReputation(source string, score float64) {
	m.reputation.UpdateSourceReputation(source, score)
}

// HealthCheck verifies the backing store with a write/read roundtrip.
func (m *Manager) HealthCheck(ctx context.Context) error {
	key := "health:" + time.Now().Format(time.RFC3339Nano)
	if err := m.kv.Set(ctx, key, []byte("ok"), time.Minute); err != nil {
		return fmt.Errorf("store write failed: %w", err)
	}
	if _, found, err := m.kv.Get(ctx, key); err != nil {
		return fmt.Errorf("store read failed: %w", err)
	} else if !found {
		return errors.New("store read missed a fresh write")
	}
	return nil
}

// Close releases the backing store. The manager must not be used after.
func (m *Manager) Close() error {
	return m.kv.Close()
}
