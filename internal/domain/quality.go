package domain

// Grade is the letter derived from the overall quality score.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// GradeFor maps an overall score to its letter, highest threshold first.
func GradeFor(score float64) Grade {
	switch {
	case score >= 0.95:
		return GradeAPlus
	case score >= 0.85:
		return GradeA
	case score >= 0.70:
		return GradeB
	case score >= 0.55:
		return GradeC
	case score >= 0.40:
		return GradeD
	default:
		return GradeF
	}
}

// QualityScore holds the nine factor scores plus the weighted rollup.
// Computed once per run and never patched afterwards.
type QualityScore struct {
	ContentLength     float64 `json:"content_length"`
	Readability       float64 `json:"readability"`
	SourceCredibility float64 `json:"source_credibility"`
	Timeliness        float64 `json:"timeliness"`
	Completeness      float64 `json:"completeness"`
	Structure         float64 `json:"structure"`
	Relevance         float64 `json:"relevance"`
	Originality       float64 `json:"originality"`
	Engagement        float64 `json:"engagement"`

	OverallScore   float64 `json:"overall_score"`
	Grade          Grade   `json:"grade"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// Factors returns the nine factor scores in declaration order.
func (q *QualityScore) Factors() []float64 {
	return []float64{
		q.ContentLength,
		q.Readability,
		q.SourceCredibility,
		q.Timeliness,
		q.Completeness,
		q.Structure,
		q.Relevance,
		q.Originality,
		q.Engagement,
	}
}
