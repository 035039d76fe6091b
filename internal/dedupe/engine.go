package dedupe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"newsforge/internal/config"
	"newsforge/internal/domain"
	"newsforge/internal/store"
	"newsforge/internal/textutil"
)

const (
	sweepInterval    = time.Hour
	exactConfidence  = 0.95
	storeKeyPrefix   = "fp:"
	fingerprintIDLen = 16
)

// Weights of the combined similarity blend.
const (
	contentWeight  = 0.5
	titleWeight    = 0.3
	semanticWeight = 0.2
)

// Engine fingerprints articles and decides duplicate membership. One
// engine owns its cache exclusively; concurrent batches share it only
// through the engine's methods.
//
// An internal fault never marks an article duplicate: the engine prefers
// false negatives over discarding real coverage.
type Engine struct {
	cfg        config.DedupeConfig
	cache      *fingerprintCache
	persistent store.Store
	ttl        time.Duration
	window     time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(cfg config.DedupeConfig, persistent store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		cache:      newFingerprintCache(),
		persistent: persistent,
		ttl:        config.Duration(cfg.FingerprintTTL, 24*time.Hour),
		window:     time.Duration(cfg.TimeWindowHours) * time.Hour,
		logger:     logger,
		now:        time.Now,
	}
}

// Deduplicate decides whether article duplicates the persistent cache or
// any of priors. Priors must be the already-accepted non-duplicates of
// the current batch; duplicates are never comparison targets.
func (e *Engine) Deduplicate(ctx context.Context, article *domain.Article, priors []*domain.Article) (decision domain.DedupeDecision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("deduplication fault, passing article through",
				"article_id", article.ID, "panic", r)
			decision = domain.DedupeDecision{IsDuplicate: false, Confidence: 0}
		}
	}()

	now := e.now()
	e.cache.sweep(now, sweepInterval)

	fp := e.Fingerprint(article, now)
	decision.Fingerprint = fp

	// Exact match: same fingerprint already registered. Resubmitting
	// the same article is itself an exact duplicate.
	if hit, ok := e.lookupFingerprint(ctx, fp.FingerprintID, now); ok {
		e.cache.addMember(hit.GroupID, article.ID)
		e.logger.Debug("exact duplicate via fingerprint cache",
			"article_id", article.ID, "group_id", hit.GroupID)
		return domain.DedupeDecision{
			IsDuplicate: true,
			GroupID:     hit.GroupID,
			Similarity:  1.0,
			MatchedID:   hit.ArticleID,
			Fingerprint: fp,
			Confidence:  exactConfidence,
		}
	}

	// Near match: best combined similarity over priors inside the
	// publish-time window.
	bestSim := 0.0
	var bestMatch *domain.Article
	for _, prior := range priors {
		if prior.ID == article.ID {
			continue
		}
		if !e.withinWindow(article, prior) {
			continue
		}
		sim := e.CombinedSimilarity(article, prior)
		if sim > bestSim {
			bestSim = sim
			bestMatch = prior
		}
	}

	if bestMatch != nil && bestSim >= e.cfg.SimilarityThreshold {
		fp.GroupID = bestMatch.ID
		e.register(ctx, fp)
		return domain.DedupeDecision{
			IsDuplicate: true,
			GroupID:     bestMatch.ID,
			Similarity:  bestSim,
			MatchedID:   bestMatch.ID,
			Fingerprint: fp,
			Confidence:  math.Min(0.9, bestSim+0.1),
		}
	}

	// New content: open a group keyed by the article's own id.
	fp.GroupID = article.ID
	e.register(ctx, fp)
	return domain.DedupeDecision{
		IsDuplicate: false,
		GroupID:     article.ID,
		Similarity:  bestSim,
		Fingerprint: fp,
		Confidence:  1 - bestSim,
	}
}

// Fingerprint derives the content, semantic and source fingerprints.
func (e *Engine) Fingerprint(article *domain.Article, now time.Time) *domain.ContentFingerprint {
	content := article.GetContent()
	contentHash := textutil.NormalizedHash(content)

	vec := textutil.Vector(content, e.cfg.VectorDims)
	semanticHash := textutil.Hash(vectorBytes(vec))

	sourceFingerprint := textutil.Hash([]byte(strings.Join([]string{
		article.Title, article.Author, article.Source,
	}, "|")))

	return &domain.ContentFingerprint{
		FingerprintID:     contentHash[:fingerprintIDLen] + semanticHash[:fingerprintIDLen],
		ArticleID:         article.ID,
		ContentHash:       contentHash,
		SemanticHash:      semanticHash,
		SourceFingerprint: sourceFingerprint,
		CreatedAt:         now,
		ExpiresAt:         now.Add(e.ttl),
	}
}

// CombinedSimilarity blends content, title and semantic similarity.
// The semantic channel falls back to content similarity when either
// vector is empty or the cosine sits below the semantic threshold;
// hashed 256-dim vectors are too coarse to trust at low similarity.
func (e *Engine) CombinedSimilarity(a, b *domain.Article) float64 {
	contentSim := textutil.Jaccard(
		textutil.WordSet(a.GetContent()),
		textutil.WordSet(b.GetContent()),
	)
	titleSim := textutil.TitleSimilarity(a.Title, b.Title)

	vecA := textutil.Vector(a.GetContent(), e.cfg.VectorDims)
	vecB := textutil.Vector(b.GetContent(), e.cfg.VectorDims)
	semanticSim := contentSim
	if !textutil.IsZero(vecA) && !textutil.IsZero(vecB) {
		if cos := textutil.Cosine(vecA, vecB); cos >= e.cfg.SemanticThreshold {
			semanticSim = cos
		}
	}

	return contentSim*contentWeight + titleSim*titleWeight + semanticSim*semanticWeight
}

// GroupMembers lists the article ids registered under groupID.
func (e *Engine) GroupMembers(groupID string) []string {
	return e.cache.groupMembers(groupID)
}

// Sweep removes expired fingerprints. The pipeline calls this between
// batches; the engine also self-sweeps at most once per hour.
func (e *Engine) Sweep() int {
	return e.cache.sweep(e.now(), 0)
}

// CacheSize reports the number of live fingerprints.
func (e *Engine) CacheSize() int {
	return e.cache.size()
}

func (e *Engine) withinWindow(a, b *domain.Article) bool {
	if a.PublishedAt.IsZero() || b.PublishedAt.IsZero() {
		// Unknown publish times cannot be excluded by the window.
		return true
	}
	diff := a.PublishedAt.Sub(b.PublishedAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= e.window
}

// lookupFingerprint consults the in-memory cache first, then the
// persistent store for cross-run hits.
func (e *Engine) lookupFingerprint(ctx context.Context, id string, now time.Time) (*domain.ContentFingerprint, bool) {
	if fp, ok := e.cache.lookup(id, now); ok {
		return fp, true
	}
	if e.persistent == nil {
		return nil, false
	}

	data, found, err := e.persistent.Get(ctx, storeKeyPrefix+id)
	if err != nil {
		e.logger.Warn("fingerprint store lookup failed", "fingerprint_id", id, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var fp domain.ContentFingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		e.logger.Warn("corrupt persisted fingerprint", "fingerprint_id", id, "error", err)
		return nil, false
	}
	if fp.Expired(now) {
		return nil, false
	}
	// Rehydrate into the in-memory cache for the rest of the run.
	e.cache.register(&fp)
	return &fp, true
}

func (e *Engine) register(ctx context.Context, fp *domain.ContentFingerprint) {
	e.cache.register(fp)
	if e.persistent == nil {
		return
	}
	data, err := json.Marshal(fp)
	if err != nil {
		e.logger.Warn("fingerprint marshal failed", "fingerprint_id", fp.FingerprintID, "error", err)
		return
	}
	if err := e.persistent.Set(ctx, storeKeyPrefix+fp.FingerprintID, data, e.ttl); err != nil {
		e.logger.Warn("fingerprint persist failed", "fingerprint_id", fp.FingerprintID, "error", err)
	}
}

func vectorBytes(vec []float32) []byte {
	buf := make([]byte, 0, len(vec)*8)
	for _, v := range vec {
		// Quantize so tiny float noise does not change the hash.
		buf = fmt.Appendf(buf, "%.4f,", v)
	}
	return buf
}
