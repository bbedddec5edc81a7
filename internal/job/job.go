package job

import (
	"errors"
	"time"

	"github.com/conformadev/conforma/internal/analysis"
)

// Status is the externally observable state of a job.
type Status string

const (
	StatusPending       Status = "pending"
	StatusExtracting    Status = "extracting"
	StatusAnalyzing     Status = "analyzing"
	StatusConsolidating Status = "consolidating"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusCancelled     Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Strategy selects how a document is analyzed.
type Strategy string

const (
	// StrategySingle analyzes the whole document in one provider call.
	StrategySingle Strategy = "single"
	// StrategyIncremental fans out per-chunk analyses and consolidates.
	StrategyIncremental Strategy = "incremental"
)

// Progress milestones. Progress is monotonic within a job; the analyzing
// phase interpolates between its milestone and the consolidation one.
const (
	progressExtracting    = 10
	progressAnalyzing     = 20
	progressConsolidating = 90
	progressDone          = 100
)

var (
	// ErrJobNotFound indicates an unknown job ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrAlreadyCompleted indicates a cancel attempt on a completed job.
	ErrAlreadyCompleted = errors.New("job already completed")
	// ErrEmptyDocument indicates a submission with no document text.
	ErrEmptyDocument = errors.New("document text is empty")
)

// Job is the only mutable, externally visible entity of the pipeline. The
// state machine (Runner + Store) is the sole writer of Status and Progress.
type Job struct {
	ID           string                `json:"id"`
	Status       Status                `json:"status"`
	Progress     int                   `json:"progress"`
	Strategy     Strategy              `json:"strategy"`
	DocumentType analysis.DocumentType `json:"documentType"`
	NormCodes    []string              `json:"normCodes,omitempty"`
	ErrorDetail  string                `json:"errorDetail,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	StartedAt    *time.Time            `json:"startedAt,omitempty"`
	CompletedAt  *time.Time            `json:"completedAt,omitempty"`
}

// ElapsedSeconds returns the wall time the job ran for, if it started.
func (j *Job) ElapsedSeconds() float64 {
	if j.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return end.Sub(*j.StartedAt).Seconds()
}
