package quality

import (
	"strings"
	"sync"
)

const (
	defaultSourceReputation = 0.5
	defaultAuthorReputation = 0.2
)

// defaultSourceTable ships a baseline reputation for the outlets the
// pipeline most often sees. Values are conventional, not learned.
var defaultSourceTable = map[string]float64{
	"reuters":             0.95,
	"bloomberg":           0.95,
	"associated press":    0.9,
	"wall street journal": 0.9,
	"financial times":     0.9,
	"cnbc":                0.8,
	"coindesk":            0.75,
	"cointelegraph":       0.7,
	"the block":           0.75,
	"decrypt":             0.65,
	"medium":              0.4,
	"substack":            0.4,
	"reddit":              0.3,
}

// ReputationTable holds source and author reputation scores. Reads are
// concurrent; updates go through the explicit setters, which are the
// only writers.
type ReputationTable struct {
	mu      sync.RWMutex
	sources map[string]float64
	authors map[string]float64
}

func NewReputationTable() *ReputationTable {
	sources := make(map[string]float64, len(defaultSourceTable))
	for k, v := range defaultSourceTable {
		sources[k] = v
	}
	return &ReputationTable{
		sources: sources,
		authors: make(map[string]float64),
	}
}

func (t *ReputationTable) SourceReputation(source string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rep, ok := t.sources[normalizeKey(source)]; ok {
		return rep
	}
	return defaultSourceReputation
}

func (t *ReputationTable) AuthorReputation(author string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rep, ok := t.authors[normalizeKey(author)]; ok {
		return rep
	}
	return defaultAuthorReputation
}

func (t *ReputationTable) UpdateSourceReputation(source string, reputation float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources[normalizeKey(source)] = clamp01(reputation)
}

func (t *ReputationTable) UpdateAuthorReputation(author string, reputation float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.authors[normalizeKey(author)] = clamp01(reputation)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
