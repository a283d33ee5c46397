package models

import (
	"time"

	"github.com/studyhall/homework-service/internal/payload"
)

// Feedback is one grading record bound to a submission version. Several
// records may exist per version; the most recently created one is
// authoritative for deriving the submission's status.
type Feedback struct {
	ID               string         `json:"id" db:"id"`
	SubmissionID     string         `json:"submission_id" db:"submission_id"`
	TeacherID        string         `json:"teacher_id" db:"teacher_id"`
	Score            *float64       `json:"score,omitempty" db:"score"`
	Comments         string         `json:"comments" db:"comments"`
	RequiresRevision bool           `json:"requires_revision" db:"requires_revision"`
	Content          payload.Bundle `json:"content"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// StatusEffect is the submission status this record dictates while it is
// the authoritative one.
func (f *Feedback) StatusEffect() SubmissionStatus {
	if f.RequiresRevision {
		return StatusNeedsRevision
	}
	return StatusGraded
}

const (
	MinScore = 0
	MaxScore = 100
)

func IsValidScore(score float64) bool {
	return score >= MinScore && score <= MaxScore
}
