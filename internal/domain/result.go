package domain

import "time"

// Stage names one independently failable pipeline step.
type Stage string

const (
	StagePreprocessing  Stage = "preprocessing"
	StageDeduplication  Stage = "deduplication"
	StageNoiseFiltering Stage = "noise_filtering"
	StageStructuring    Stage = "structuring"
	StageQualityScoring Stage = "quality_scoring"
	StageLLMAnalysis    Stage = "llm_analysis"
)

// Stages is the fixed execution order.
var Stages = []Stage{
	StagePreprocessing,
	StageDeduplication,
	StageNoiseFiltering,
	StageStructuring,
	StageQualityScoring,
	StageLLMAnalysis,
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// ProcessingResult tracks one article through the pipeline. Created when
// processing starts, finalized exactly once at the end.
type ProcessingResult struct {
	ArticleID        string         `json:"article_id"`
	Status           Status         `json:"status"`
	StagesCompleted  []Stage        `json:"stages_completed"`
	Errors           []string       `json:"errors,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	QualityScore     *QualityScore  `json:"quality_score,omitempty"`
	IsDuplicate      bool           `json:"is_duplicate"`
	DuplicateGroupID string         `json:"duplicate_group_id,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
}

func NewProcessingResult(articleID string) *ProcessingResult {
	return &ProcessingResult{
		ArticleID:       articleID,
		Status:          StatusPending,
		StagesCompleted: make([]Stage, 0, len(Stages)),
		Metadata:        make(map[string]any),
		StartedAt:       time.Now(),
	}
}

func (r *ProcessingResult) CompleteStage(stage Stage) {
	r.StagesCompleted = append(r.StagesCompleted, stage)
}

func (r *ProcessingResult) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

func (r *ProcessingResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// PipelineStats is the read-only rollup over one batch.
type PipelineStats struct {
	TotalArticles    int                      `json:"total_articles"`
	Completed        int                      `json:"completed"`
	Failed           int                      `json:"failed"`
	Skipped          int                      `json:"skipped"`
	Duplicates       int                      `json:"duplicates"`
	StageDurations   map[Stage]time.Duration  `json:"stage_durations"`
	GradeHistogram   map[Grade]int            `json:"grade_histogram"`
	AverageQuality   float64                  `json:"average_quality"`
	ErrorsByStage    map[Stage]int            `json:"errors_by_stage"`
}

func NewPipelineStats() *PipelineStats {
	return &PipelineStats{
		StageDurations: make(map[Stage]time.Duration),
		GradeHistogram: make(map[Grade]int),
		ErrorsByStage:  make(map[Stage]int),
	}
}

// PipelineResult is everything the batch entry point returns. Failures
// travel as data inside ProcessingResults, never as the call's error.
type PipelineResult struct {
	Articles          []*Article          `json:"articles"`
	ProcessingResults []*ProcessingResult `json:"processing_results"`
	Stats             *PipelineStats      `json:"stats"`
	ExecutionTime     time.Duration       `json:"execution_time"`
	Errors            []string            `json:"errors,omitempty"`
}
