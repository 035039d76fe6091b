package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies stage failures so the pipeline can decide skipping
// without using errors for normal control flow.
type ErrorKind string

const (
	KindTooShort        ErrorKind = "too_short"
	KindLowQuality      ErrorKind = "low_quality"
	KindExternalTimeout ErrorKind = "external_timeout"
	KindInternalFault   ErrorKind = "internal_fault"
)

// StageError records which stage failed for which article and why.
type StageError struct {
	Stage     Stage
	Kind      ErrorKind
	ArticleID string
	Err       error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stage %s failed for article %s: %s", e.Stage, e.ArticleID, e.Kind)
	}
	return fmt.Sprintf("stage %s failed for article %s: %s: %v", e.Stage, e.ArticleID, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage Stage, kind ErrorKind, articleID string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, ArticleID: articleID, Err: err}
}

// IsStageKind reports whether err is a StageError of the given kind.
func IsStageKind(err error, kind ErrorKind) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
