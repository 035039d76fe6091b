package structurer

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"newsforge/internal/domain"
)

const maxKeyPoints = 10

// Section is one heading-delimited block of article content.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// StructuredContent is the structured view of one article.
type StructuredContent struct {
	Sections     []Section           `json:"sections"`
	KeyPoints    []string            `json:"key_points"`
	Entities     map[string][]string `json:"entities"`
	Sentiment    string              `json:"sentiment"`
	Summary      string              `json:"summary"`
	ReadingTime  int                 `json:"reading_time_minutes"`
	UrgencyLevel string              `json:"urgency_level"`
	WordCount    int                 `json:"word_count"`
}

// Stats reports what structuring extracted.
type Stats struct {
	SectionsFound    int  `json:"sections_found"`
	KeyPointsFound   int  `json:"key_points_found"`
	EntitiesFound    int  `json:"entities_found"`
	SummaryGenerated bool `json:"summary_generated"`
}

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	underline       = regexp.MustCompile(`^(=+|-{3,})\s*$`)
	bulletLine      = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|[a-z][.)])\s+(.+)$`)
	sentenceEnd     = regexp.MustCompile(`[.!?]+\s+`)
)

var entityDictionaries = map[string]*regexp.Regexp{
	"cryptocurrencies": regexp.MustCompile(`(?i)\b(bitcoin|btc|ethereum|eth|solana|sol|ripple|xrp|cardano|dogecoin|tether|usdt|usdc|binance coin|bnb|litecoin)\b`),
	"companies":        regexp.MustCompile(`(?i)\b(apple|microsoft|google|alphabet|amazon|meta|tesla|nvidia|coinbase|binance|blackrock|goldman sachs|jpmorgan|morgan stanley|fidelity|visa|mastercard|paypal)\b`),
	"countries":        regexp.MustCompile(`(?i)\b(united states|u\.s\.|usa|china|japan|germany|france|united kingdom|u\.k\.|india|brazil|russia|south korea|singapore|switzerland|el salvador)\b`),
	"regulators":       regexp.MustCompile(`(?i)\b(sec|cftc|federal reserve|fed|ecb|imf|fca|finra|occ|fdic|treasury|doj|european commission)\b`),
}

var (
	positiveKeywords = []string{
		"surge", "surged", "gain", "gains", "rally", "rallied", "rise", "rose",
		"bullish", "growth", "profit", "soar", "soared", "record", "beat",
		"optimistic", "upgrade", "breakthrough", "adoption",
	}
	negativeKeywords = []string{
		"crash", "crashed", "fall", "fell", "drop", "dropped", "bearish",
		"loss", "losses", "decline", "declined", "plunge", "plunged", "fear",
		"lawsuit", "fraud", "hack", "downgrade", "selloff", "liquidation",
	}
	neutralKeywords = []string{
		"stable", "unchanged", "steady", "flat", "sideways", "hold", "pause",
	}
	importanceKeywords = []string{
		"announced", "launched", "reported", "according to", "revealed",
		"confirmed", "expects", "plans", "warned", "filed", "approved",
		"rejected", "surged", "record",
	}
	urgencyKeywords = []string{
		"breaking", "urgent", "alert", "just in", "crash", "emergency",
		"halt", "halted", "flash", "exploit",
	}
)

// Structurer extracts sections, key points, entities, sentiment and a
// summary. Every sub-step is best effort; one failing never blocks the
// rest, and a top-level fault still yields a minimal structure.
//
// Sentiment and entities go through the configured Analyzer. The
// variant is fixed at construction.
type Structurer struct {
	analyzer Analyzer
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Structurer {
	return NewWithAnalyzer(NewKeywordAnalyzer(), logger)
}

func NewWithAnalyzer(analyzer Analyzer, logger *slog.Logger) *Structurer {
	if analyzer == nil {
		analyzer = NewKeywordAnalyzer()
	}
	return &Structurer{analyzer: analyzer, logger: logger}
}

// Structure analyzes article content and enriches its metadata in place.
func (s *Structurer) Structure(ctx context.Context, article *domain.Article) (content StructuredContent, stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("structuring fault, returning minimal structure",
				"article_id", article.ID, "panic", r)
			content = minimalContent(article)
			stats = Stats{SectionsFound: len(content.Sections)}
		}
	}()

	text := article.GetContent()
	content = minimalContent(article)

	s.step(article.ID, "sections", func() {
		content.Sections = extractSections(text)
		stats.SectionsFound = len(content.Sections)
	})
	s.step(article.ID, "key_points", func() {
		content.KeyPoints = extractKeyPoints(text)
		stats.KeyPointsFound = len(content.KeyPoints)
	})
	s.step(article.ID, "analysis", func() {
		analysis, err := s.analyzer.Analyze(ctx, article)
		if err != nil {
			s.logger.Warn("analyzer failed, using keyword analysis",
				"article_id", article.ID, "error", err)
			analysis = Analysis{
				Sentiment: KeywordSentiment(text),
				Entities:  ExtractEntities(text),
			}
		}
		content.Sentiment = analysis.Sentiment
		content.Entities = analysis.Entities
		for _, list := range content.Entities {
			stats.EntitiesFound += len(list)
		}
	})
	s.step(article.ID, "summary", func() {
		if existing := article.GetSummary(); existing != "" {
			content.Summary = existing
			return
		}
		content.Summary = generateSummary(text)
		if content.Summary != "" {
			article.SetSummary(content.Summary)
			stats.SummaryGenerated = true
		}
	})
	s.step(article.ID, "urgency", func() {
		content.UrgencyLevel = urgencyLevel(article, content.KeyPoints)
	})

	article.AddMetadata("structured", true)
	article.AddMetadata("sectionsCount", len(content.Sections))
	article.AddMetadata("sentiment", content.Sentiment)
	article.AddMetadata("urgencyLevel", content.UrgencyLevel)
	article.AddMetadata("readingTime", content.ReadingTime)

	return content, stats
}

// step runs one extraction sub-step, recovering so siblings still run.
func (s *Structurer) step(articleID, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("structuring sub-step fault", "article_id", articleID,
				"step", name, "panic", r)
		}
	}()
	fn()
}

func minimalContent(article *domain.Article) StructuredContent {
	text := article.GetContent()
	words := len(strings.Fields(text))
	return StructuredContent{
		Sections:     []Section{{Heading: "Main Content", Body: text}},
		Entities:     map[string][]string{},
		Sentiment:    "none",
		UrgencyLevel: "normal",
		WordCount:    words,
		ReadingTime:  readingTime(words),
	}
}

func readingTime(words int) int {
	minutes := words / 250
	if minutes < 1 {
		return 1
	}
	return minutes
}

func extractSections(text string) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section
	current := Section{Heading: "Main Content"}
	var body []string

	flush := func() {
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Body != "" || current.Heading != "Main Content" {
			sections = append(sections, current)
		}
		body = body[:0]
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := markdownHeading.FindStringSubmatch(line); m != nil {
			flush()
			current = Section{Heading: strings.TrimSpace(m[1])}
			continue
		}
		if i+1 < len(lines) && line != "" && underline.MatchString(strings.TrimSpace(lines[i+1])) {
			flush()
			current = Section{Heading: line}
			i++
			continue
		}
		if isAllCapsHeading(line) {
			flush()
			current = Section{Heading: line}
			continue
		}
		body = append(body, lines[i])
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Heading: "Main Content", Body: strings.TrimSpace(text)}}
	}
	return sections
}

// isAllCapsHeading treats a short line of upper-case letters as a
// heading, e.g. "MARKET OUTLOOK".
func isAllCapsHeading(line string) bool {
	if len(line) < 3 || len(line) > 80 {
		return false
	}
	letters := 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 3
}

func extractKeyPoints(text string) []string {
	var points []string
	seen := make(map[string]struct{})

	add := func(p string) bool {
		p = strings.TrimSpace(p)
		if len(p) < 10 {
			return false
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		points = append(points, p)
		return len(points) >= maxKeyPoints
	}

	for _, line := range strings.Split(text, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if add(m[1]) {
				return points
			}
		}
	}
	if len(points) > 0 {
		return points
	}

	// No list markers; fall back to sentences carrying importance cues.
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, kw := range importanceKeywords {
			if strings.Contains(lower, kw) {
				if add(sentence) {
					return points
				}
				break
			}
		}
	}
	return points
}

// ExtractEntities matches the category dictionaries against text,
// deduplicating case-insensitively per category.
func ExtractEntities(text string) map[string][]string {
	entities := make(map[string][]string, len(entityDictionaries))
	for category, pattern := range entityDictionaries {
		matches := pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(matches))
		var list []string
		for _, m := range matches {
			key := strings.ToLower(m)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			list = append(list, key)
		}
		entities[category] = list
	}
	return entities
}

// KeywordSentiment estimates sentiment from keyword hit ratios. "none"
// means no sentiment keyword matched at all, which is distinct from a
// balanced "neutral".
func KeywordSentiment(text string) string {
	lower := strings.ToLower(text)
	pos := countKeywordHits(lower, positiveKeywords)
	neg := countKeywordHits(lower, negativeKeywords)
	neu := countKeywordHits(lower, neutralKeywords)

	total := pos + neg + neu
	if total == 0 {
		return "none"
	}

	switch {
	case pos > neg && pos >= neu:
		return "positive"
	case neg > pos && neg >= neu:
		return "negative"
	default:
		return "neutral"
	}
}

func countKeywordHits(lower string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		hits += strings.Count(lower, kw)
	}
	return hits
}

func generateSummary(text string) string {
	var qualified []string
	for _, sentence := range splitSentences(text) {
		if len(sentence) < 30 || len(sentence) > 300 {
			continue
		}
		qualified = append(qualified, sentence)
		if len(qualified) == 2 {
			break
		}
	}
	return strings.Join(qualified, " ")
}

func urgencyLevel(article *domain.Article, keyPoints []string) string {
	candidates := append([]string{article.Title, article.Category}, keyPoints...)
	for _, c := range candidates {
		lower := strings.ToLower(c)
		for _, kw := range urgencyKeywords {
			if strings.Contains(lower, kw) {
				return "high"
			}
		}
	}
	return "normal"
}

func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	parts := sentenceEnd.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasSuffix(p, ".") && !strings.HasSuffix(p, "!") && !strings.HasSuffix(p, "?") {
			p += "."
		}
		sentences = append(sentences, p)
	}
	return sentences
}
