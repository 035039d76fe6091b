package noise

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"newsforge/internal/config"
	"newsforge/internal/domain"
	"newsforge/internal/preprocess"
)

var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:sponsored|promoted) (?:content|post|by)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\bbuy now\b[^.\n]*`),
	regexp.MustCompile(`(?i)\blimited time offer\b[^.\n]*`),
	regexp.MustCompile(`(?i)\b(?:\d+%|percent) (?:off|discount)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\bfree (?:trial|shipping|download)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\buse (?:promo|coupon|discount) code\b[^.\n]*`),
}

var disclaimerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bthis (?:article|content) (?:is|was) (?:provided|sponsored) by\b[^.\n]*\.?`),
	regexp.MustCompile(`(?i)\b(?:disclaimer|disclosure)\s*:[^\n]*`),
	regexp.MustCompile(`(?i)\bnot (?:financial|investment) advice\b[^.\n]*\.?`),
	regexp.MustCompile(`(?i)\bpast performance (?:is|does) not[^.\n]*\.?`),
	regexp.MustCompile(`(?i)\bthe views expressed (?:here|in this article)[^.\n]*\.?`),
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bclick here\b[^.\n]*`),
	regexp.MustCompile(`(?i)\bsign up (?:now|today|here)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\bdon'?t miss (?:out|this)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\bact (?:now|fast|today)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\bjoin (?:our|my) (?:telegram|discord|channel)\b[^.\n]*`),
	regexp.MustCompile(`(?i)\b(?:100% guaranteed|guaranteed (?:profit|returns))\b[^.\n]*`),
}

// offTopicKeywords flag content that drifted away from market-relevant
// news. Hitting the cap fails the relevance gate.
var offTopicKeywords = []string{
	"celebrity", "gossip", "horoscope", "astrology", "lottery",
	"recipe", "fashion week", "red carpet", "box office", "dating",
}

const (
	offTopicHitCap = 4
	adSpamHitCap   = 10
	minRunLength   = 20
	maxCharRepeat  = 5
)

// Stats reports what one filtering pass removed.
type Stats struct {
	RemovedAds         int  `json:"removed_ads"`
	RemovedDisclaimers int  `json:"removed_disclaimers"`
	RemovedSpam        int  `json:"removed_spam"`
	RemovedRepetition  int  `json:"removed_repetition"`
	Rejected           bool `json:"rejected"`
	RelevanceFailed    bool `json:"relevance_failed"`
}

// Filter strips ads, disclaimers, spam and literal repetition from
// article content. Rejection means the article passes through unchanged,
// never that it is dropped.
type Filter struct {
	cfg    config.NoiseConfig
	logger *slog.Logger
}

func New(cfg config.NoiseConfig, logger *slog.Logger) *Filter {
	return &Filter{cfg: cfg, logger: logger}
}

// FilterNoise cleans article content in place and returns what changed.
// An internal fault restores the original content and surfaces as a
// typed error; the caller decides what that means for the article.
func (f *Filter) FilterNoise(article *domain.Article) (stats Stats, err error) {
	original := article.GetContent()

	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("noise filtering fault, keeping original content",
				"article_id", article.ID, "panic", r)
			article.SetContent(original)
			stats = Stats{}
			err = domain.NewStageError(domain.StageNoiseFiltering, domain.KindInternalFault,
				article.ID, fmt.Errorf("%v", r))
		}
	}()

	if !f.passesQualityGate(original) {
		stats.Rejected = true
		return stats, nil
	}

	filtered := original
	filtered, stats.RemovedAds = stripPatterns(filtered, adPatterns)
	filtered, stats.RemovedDisclaimers = stripPatterns(filtered, disclaimerPatterns)
	filtered, stats.RemovedSpam = stripPatterns(filtered, spamPatterns)
	filtered, stats.RemovedRepetition = collapseRepetition(filtered)

	if !f.passesRelevanceGate(original) {
		// Too noisy to trust the stripping heuristics; keep the
		// pre-filter text rather than risk eating real content.
		stats.RelevanceFailed = true
		article.SetContent(original)
		article.AddMetadata("noiseFiltered", false)
		return stats, nil
	}

	filtered = normalizeWhitespace(filtered)

	if len(filtered) < f.cfg.MinContentLength {
		stats.Rejected = true
		article.SetContent(original)
		return stats, nil
	}

	article.SetContent(filtered)
	article.AddMetadata("noiseFiltered", true)
	return stats, nil
}

// NoiseScore estimates how noisy text is, in [0,1].
func (f *Filter) NoiseScore(text string) float64 {
	adHits := countMatches(text, adPatterns)
	spamHits := countMatches(text, spamPatterns)

	score := min(float64(adHits)/3, 1)*0.3 +
		min(float64(spamHits)/3, 1)*0.3 +
		repetitionRatio(text)*0.4
	if score > 1 {
		return 1
	}
	return score
}

func (f *Filter) passesQualityGate(text string) bool {
	if len(text) < f.cfg.MinContentLength {
		return false
	}
	if len(strings.Fields(text)) < f.cfg.MinWordCount {
		return false
	}
	return preprocess.UniqueCharRatio(text) >= 0.3
}

func (f *Filter) passesRelevanceGate(text string) bool {
	lower := strings.ToLower(text)
	offTopic := 0
	for _, kw := range offTopicKeywords {
		offTopic += strings.Count(lower, kw)
	}
	if offTopic > offTopicHitCap {
		return false
	}
	adSpam := countMatches(text, adPatterns) + countMatches(text, spamPatterns)
	return adSpam <= adSpamHitCap
}

func stripPatterns(text string, patterns []*regexp.Regexp) (string, int) {
	removed := 0
	for _, pattern := range patterns {
		matches := pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		removed += len(matches)
		text = pattern.ReplaceAllString(text, "")
	}
	return text, removed
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	total := 0
	for _, pattern := range patterns {
		total += len(pattern.FindAllString(text, -1))
	}
	return total
}

// collapseRepetition removes adjacent repeats of runs at least
// minRunLength long and caps single-character runs at maxCharRepeat.
func collapseRepetition(text string) (string, int) {
	removed := 0

	// Adjacent duplicated chunks: greedily drop the second copy. The
	// window is capped; blocks longer than that are left alone.
	maxWindow := min(len(text)/2, 240)
	for window := maxWindow; window >= minRunLength; window-- {
		for i := 0; i+2*window <= len(text); i++ {
			if text[i:i+window] == text[i+window:i+2*window] {
				text = text[:i+window] + text[i+2*window:]
				removed++
				window = min(window, len(text)/2)
				i--
			}
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	var last rune = -1
	run := 0
	for _, r := range text {
		if r == last {
			run++
		} else {
			last = r
			run = 1
		}
		if run < maxCharRepeat {
			b.WriteString(string(r))
		} else if run == maxCharRepeat {
			// Drop the whole run down to a single occurrence.
			trimmed := strings.TrimRight(b.String(), string(r))
			b.Reset()
			b.WriteString(trimmed)
			b.WriteRune(r)
			removed++
		}
	}

	return b.String(), removed
}

// repetitionRatio is the share of words that are repeats of the
// previous word window.
func repetitionRatio(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 2 {
		return 0
	}
	seen := make(map[string]int, len(words))
	repeats := 0
	for _, w := range words {
		seen[w]++
		if seen[w] > 2 {
			repeats++
		}
	}
	return float64(repeats) / float64(len(words))
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimSpace(strings.Join(strings.Fields(line), " "))
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
