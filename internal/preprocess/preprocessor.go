package preprocess

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"newsforge/internal/config"
	"newsforge/internal/domain"
	"newsforge/internal/textutil"
)

const urlPlaceholder = "[URL]"

var (
	urlPattern        = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	blankLinePattern  = regexp.MustCompile(`\n{3,}`)
)

// defaultBoilerplate covers the filler lines wire services and blogs
// append to article bodies.
var defaultBoilerplate = []string{
	"click here to subscribe",
	"subscribe to our newsletter",
	"sign up for our newsletter",
	"follow us on twitter",
	"follow us on facebook",
	"all rights reserved",
	"read more at",
	"this article was originally published",
	"share this article",
	"advertisement",
}

// Stats reports what one preprocessing pass changed.
type Stats struct {
	OriginalLength     int  `json:"original_length"`
	CleanedLength      int  `json:"cleaned_length"`
	URLsReplaced       int  `json:"urls_replaced"`
	BoilerplateRemoved int  `json:"boilerplate_removed"`
	Truncated          bool `json:"truncated"`
	Skipped            bool `json:"skipped"`
}

// Preprocessor cleans raw article text before any other stage sees it.
// An internal fault leaves the article untouched.
type Preprocessor struct {
	cfg         config.PreprocessConfig
	sanitizer   *bluemonday.Policy
	boilerplate []string
	logger      *slog.Logger
}

func New(cfg config.PreprocessConfig, logger *slog.Logger) *Preprocessor {
	phrases := cfg.BoilerplatePhrases
	if len(phrases) == 0 {
		phrases = defaultBoilerplate
	}
	return &Preprocessor{
		cfg:         cfg,
		sanitizer:   bluemonday.StrictPolicy(),
		boilerplate: phrases,
		logger:      logger,
	}
}

// Preprocess cleans article content, title and summary in place.
// Articles under the minimum length pass through unchanged with
// zero-effect stats. An internal fault restores the original content
// and surfaces as a typed error the pipeline treats as non-fatal.
func (p *Preprocessor) Preprocess(article *domain.Article) (stats Stats, err error) {
	original := article.GetContent()
	stats.OriginalLength = len(original)
	stats.CleanedLength = len(original)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("preprocessing fault, keeping original content",
				"article_id", article.ID, "panic", r)
			article.SetContent(original)
			stats = Stats{OriginalLength: len(original), CleanedLength: len(original)}
			err = domain.NewStageError(domain.StagePreprocessing, domain.KindInternalFault,
				article.ID, fmt.Errorf("%v", r))
		}
	}()

	if len(original) < p.cfg.MinContentLength {
		stats.Skipped = true
		return stats, nil
	}

	cleaned, urls := p.cleanText(original, p.cfg.MaxContentLength)
	stats.URLsReplaced = urls

	withoutBoilerplate, removed := p.stripBoilerplate(cleaned)
	stats.BoilerplateRemoved = removed
	cleaned = normalizeWhitespace(withoutBoilerplate)

	if len(cleaned) > p.cfg.MaxContentLength {
		cleaned = truncate(cleaned, p.cfg.MaxContentLength)
		stats.Truncated = true
	}

	article.SetContent(cleaned)
	stats.CleanedLength = len(cleaned)

	if article.Title != "" {
		title, _ := p.cleanText(article.Title, p.cfg.MaxTitleLength)
		article.Title = truncate(normalizeWhitespace(title), p.cfg.MaxTitleLength)
	}
	if summary := article.GetSummary(); summary != "" {
		cleanedSummary, _ := p.cleanText(summary, p.cfg.MaxSummaryLength)
		article.SetSummary(truncate(normalizeWhitespace(cleanedSummary), p.cfg.MaxSummaryLength))
	}

	article.AddMetadata("preprocessed", true)
	return stats, nil
}

// ContentHash hashes the normalized text, so callers can detect exact
// duplicates regardless of case or spacing.
func (p *Preprocessor) ContentHash(text string) string {
	return textutil.NormalizedHash(text)
}

// Validate checks text for minimum length, word count and character
// diversity. Low-diversity text is usually repeated-character spam.
func (p *Preprocessor) Validate(text string) bool {
	if len(text) < p.cfg.MinContentLength {
		return false
	}
	if len(strings.Fields(text)) < 3 {
		return false
	}
	return UniqueCharRatio(text) >= 0.3
}

// UniqueCharRatio is the count of distinct non-space runes over a sample
// of the text, capped at 1.
func UniqueCharRatio(text string) float64 {
	const sample = 500
	seen := make(map[rune]struct{})
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		seen[r] = struct{}{}
		if total >= sample {
			break
		}
	}
	if total == 0 {
		return 0
	}
	// Natural language plateaus well under 1.0; normalize against the
	// alphabet-sized vocabulary a real article exhibits.
	ratio := float64(len(seen)) / float64(min(total, 40))
	if ratio > 1 {
		return 1
	}
	return ratio
}

func (p *Preprocessor) cleanText(text string, maxLen int) (string, int) {
	decoded := html.UnescapeString(p.sanitizer.Sanitize(text))
	decoded = norm.NFC.String(decoded)

	urls := len(urlPattern.FindAllString(decoded, -1))
	decoded = urlPattern.ReplaceAllString(decoded, urlPlaceholder)

	decoded = filterAllowed(decoded)
	decoded = collapseRuns(decoded, 3)
	return decoded, urls
}

func (p *Preprocessor) stripBoilerplate(text string) (string, int) {
	removed := 0
	lower := strings.ToLower(text)
	for _, phrase := range p.boilerplate {
		for {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				break
			}
			text = text[:idx] + text[idx+len(phrase):]
			lower = lower[:idx] + lower[idx+len(phrase):]
			removed++
		}
	}
	return text, removed
}

// filterAllowed keeps Latin letters, digits, base punctuation and
// whitespace; everything else is dropped.
func filterAllowed(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Latin, r),
			unicode.IsDigit(r),
			unicode.IsSpace(r),
			strings.ContainsRune(`.,;:!?'"()[]{}%$&@#*+=/\-_|`, r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// collapseRuns caps any run of one repeated rune at max occurrences.
func collapseRuns(text string, max int) string {
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
		if run <= max {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeWhitespace(text string) string {
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = blankLinePattern.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// truncate cuts at maxLen without splitting a multi-byte rune, backing up
// to the previous word boundary when one is close.
func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	if idx := strings.LastIndexByte(text[:cut], ' '); idx > maxLen-100 && idx > 0 {
		cut = idx
	}
	return strings.TrimSpace(text[:cut])
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
