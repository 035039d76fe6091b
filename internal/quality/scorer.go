package quality

import (
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"newsforge/internal/domain"
)

// Factor weights, fixed. Order mirrors domain.QualityScore.
const (
	weightContentLength     = 0.15
	weightReadability       = 0.15
	weightSourceCredibility = 0.20
	weightTimeliness        = 0.10
	weightCompleteness      = 0.10
	weightStructure         = 0.10
	weightRelevance         = 0.10
	weightOriginality       = 0.05
	weightEngagement        = 0.05
)

var (
	linkPattern   = regexp.MustCompile(`\[URL\]|https?://\S+`)
	listPattern   = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)
	headerPattern = regexp.MustCompile(`(?m)^#{1,6}\s+|^[A-Z][A-Z0-9 ]{2,79}$`)
	quoteMarkers  = []string{"\"", "said", "according to", "reported by", "originally published", "reposted", "via "}
)

var domainKeywords = []string{
	"market", "price", "trading", "investor", "investment", "bitcoin",
	"crypto", "stock", "equity", "bond", "etf", "regulation", "earnings",
	"inflation", "rate", "fund", "exchange", "token", "blockchain",
	"revenue", "forecast",
}

var engagementKeywords = []string{
	"data", "analysis", "chart", "research", "survey", "study", "report",
}

var genericCategories = map[string]struct{}{
	"": {}, "general": {}, "news": {}, "other": {}, "misc": {},
}

// Scorer computes the deterministic nine-factor quality score.
// Scoring the same article twice yields the same result.
type Scorer struct {
	reputation *ReputationTable
	logger     *slog.Logger
	now        func() time.Time
}

func New(reputation *ReputationTable, logger *slog.Logger) *Scorer {
	return &Scorer{
		reputation: reputation,
		logger:     logger,
		now:        time.Now,
	}
}

// Score computes the quality score for article. A fault degrades to the
// neutral default rather than failing the stage.
func (s *Scorer) Score(article *domain.Article) (score *domain.QualityScore) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("quality scoring fault, returning neutral score",
				"article_id", article.ID, "panic", r)
			score = &domain.QualityScore{
				OverallScore:   0.5,
				Grade:          domain.GradeC,
				Confidence:     0,
				Recommendation: "review",
			}
		}
	}()

	content := article.GetContent()

	score = &domain.QualityScore{
		ContentLength:     scoreContentLength(len(content)),
		Readability:       scoreReadability(content),
		SourceCredibility: s.scoreCredibility(article),
		Timeliness:        s.scoreTimeliness(article.PublishedAt),
		Completeness:      scoreCompleteness(article),
		Structure:         scoreStructure(content),
		Relevance:         scoreRelevance(article),
		Originality:       scoreOriginality(content),
		Engagement:        scoreEngagement(article),
	}

	overall := score.ContentLength*weightContentLength +
		score.Readability*weightReadability +
		score.SourceCredibility*weightSourceCredibility +
		score.Timeliness*weightTimeliness +
		score.Completeness*weightCompleteness +
		score.Structure*weightStructure +
		score.Relevance*weightRelevance +
		score.Originality*weightOriginality +
		score.Engagement*weightEngagement

	score.OverallScore = math.Round(overall*1000) / 1000
	score.Grade = domain.GradeFor(score.OverallScore)
	score.Confidence = clamp01(1 - stddev(score.Factors()))
	score.Recommendation = recommendationFor(score.Grade)

	return score
}

// scoreContentLength ramps up between 100 and 500 chars, stays flat to
// 3000, then decays gently.
func scoreContentLength(length int) float64 {
	l := float64(length)
	switch {
	case length <= 0:
		return 0
	case length < 100:
		return 0.2 * l / 100
	case length < 500:
		return 0.2 + 0.8*(l-100)/400
	case length <= 3000:
		return 1
	default:
		return math.Max(0.6, 1-(l-3000)/20000)
	}
}

func scoreReadability(content string) float64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / float64(len(words))
	wordFit := rangeFit(avgWordLen, 4, 7, 12)

	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentenceCount := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}
	sentenceFit := 0.5
	if sentenceCount > 0 {
		avgSentenceLen := float64(len(words)) / float64(sentenceCount)
		sentenceFit = rangeFit(avgSentenceLen, 8, 25, 60)
	}

	paragraphs := countParagraphs(content)
	var paragraphFit float64
	switch {
	case paragraphs >= 4:
		paragraphFit = 1
	case paragraphs >= 2:
		paragraphFit = 0.8
	case paragraphs == 1:
		paragraphFit = 0.5
	}

	return clamp01(wordFit*0.4 + sentenceFit*0.4 + paragraphFit*0.2)
}

func (s *Scorer) scoreCredibility(article *domain.Article) float64 {
	return clamp01(0.4*s.reputation.SourceReputation(article.Source) +
		0.3*s.reputation.AuthorReputation(article.Author))
}

// scoreTimeliness is a step function of article age; unknown dates
// score the middle of the range.
func (s *Scorer) scoreTimeliness(publishedAt time.Time) float64 {
	if publishedAt.IsZero() {
		return 0.5
	}
	age := s.now().Sub(publishedAt)
	switch {
	case age <= time.Hour:
		return 1
	case age <= 6*time.Hour:
		return 0.9
	case age <= 24*time.Hour:
		return 0.8
	case age <= 3*24*time.Hour:
		return 0.6
	case age <= 7*24*time.Hour:
		return 0.5
	case age <= 30*24*time.Hour:
		return 0.35
	case age <= 90*24*time.Hour:
		return 0.25
	default:
		return 0.2
	}
}

func scoreCompleteness(article *domain.Article) float64 {
	fields := []bool{
		article.Title != "",
		article.GetContent() != "",
		article.GetSummary() != "",
		article.Author != "",
		article.Source != "",
		article.URL != "",
	}
	present := 0
	for _, ok := range fields {
		if ok {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}

func scoreStructure(content string) float64 {
	score := 0.0
	if countParagraphs(content) >= 3 {
		score += 0.4
	} else if countParagraphs(content) == 2 {
		score += 0.2
	}
	if headerPattern.MatchString(content) {
		score += 0.2
	}
	if listPattern.MatchString(content) {
		score += 0.2
	}
	if linkPattern.MatchString(content) {
		score += 0.2
	}
	return clamp01(score)
}

func scoreRelevance(article *domain.Article) float64 {
	lower := strings.ToLower(article.GetContent() + " " + article.Title)
	hits := 0
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	ratio := math.Min(float64(hits)/8, 1)

	categoryBonus := 0.0
	if _, generic := genericCategories[strings.ToLower(article.Category)]; !generic {
		categoryBonus = 0.3
	}
	return clamp01(ratio*0.7 + categoryBonus)
}

// scoreOriginality starts neutral, drops with quote/repost markers and
// recovers a little when the text carries its own copyright notice.
func scoreOriginality(content string) float64 {
	score := 0.5
	lower := strings.ToLower(content)
	for _, marker := range quoteMarkers {
		if strings.Contains(lower, marker) {
			score -= 0.08
		}
	}
	if strings.Contains(lower, "copyright") || strings.Contains(content, "©") {
		score += 0.2
	}
	return clamp01(score)
}

func scoreEngagement(article *domain.Article) float64 {
	score := 0.0
	title := strings.ToLower(article.Title)

	for _, hook := range []string{"how ", "why ", "what ", "top ", "breaking"} {
		if strings.Contains(title, hook) {
			score += 0.15
			break
		}
	}
	if strings.Contains(article.Title, "?") {
		score += 0.15
	}
	content := strings.ToLower(article.GetContent())
	if strings.Contains(content, "?") {
		score += 0.2
	}
	hits := 0
	for _, kw := range engagementKeywords {
		if strings.Contains(content, kw) {
			hits++
		}
	}
	score += math.Min(float64(hits)*0.15, 0.5)
	return clamp01(score)
}

// rangeFit returns 1 inside [low, high], decaying linearly to 0 at
// zero on the left and at hard on the right.
func rangeFit(value, low, high, hard float64) float64 {
	switch {
	case value >= low && value <= high:
		return 1
	case value < low:
		return clamp01(value / low)
	case value >= hard:
		return 0
	default:
		return clamp01(1 - (value-high)/(hard-high))
	}
}

func countParagraphs(content string) int {
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func recommendationFor(grade domain.Grade) string {
	switch grade {
	case domain.GradeAPlus, domain.GradeA:
		return "publish"
	case domain.GradeB, domain.GradeC:
		return "review"
	default:
		return "reject"
	}
}
