package domain

import "time"

// ContentFingerprint is the derived identity of one article's content.
// Immutable once created; owned by the dedupe engine's cache.
type ContentFingerprint struct {
	FingerprintID     string    `json:"fingerprint_id"`
	ArticleID         string    `json:"article_id"`
	ContentHash       string    `json:"content_hash"`
	SemanticHash      string    `json:"semantic_hash"`
	SourceFingerprint string    `json:"source_fingerprint"`
	GroupID           string    `json:"group_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

func (f *ContentFingerprint) Expired(now time.Time) bool {
	return now.After(f.ExpiresAt)
}

// DedupeDecision is the outcome of deduplicating one article.
type DedupeDecision struct {
	IsDuplicate bool                `json:"is_duplicate"`
	GroupID     string              `json:"group_id,omitempty"`
	Similarity  float64             `json:"similarity"`
	MatchedID   string              `json:"matched_id,omitempty"`
	Fingerprint *ContentFingerprint `json:"fingerprint,omitempty"`
	Confidence  float64             `json:"confidence"`
}
