package models

import (
	"time"

	"github.com/studyhall/homework-service/internal/payload"
)

type SubmissionStatus string

const (
	StatusSubmitted     SubmissionStatus = "submitted"
	StatusGraded        SubmissionStatus = "graded"
	StatusNeedsRevision SubmissionStatus = "needs_revision"
	StatusRevised       SubmissionStatus = "revised"

	// StatusNotSubmitted only ever appears in statistics output; no
	// submission row carries it.
	StatusNotSubmitted SubmissionStatus = "not_submitted"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

func IsValidSubmissionStatus(status string) bool {
	switch SubmissionStatus(status) {
	case StatusSubmitted, StatusGraded, StatusNeedsRevision, StatusRevised:
		return true
	default:
		return false
	}
}

// Revisable reports whether a student may still edit the submission in
// place. Only a graded submission is closed to edits; re-grading reopens it
// by moving it to needs_revision.
func (s SubmissionStatus) Revisable() bool {
	switch s {
	case StatusSubmitted, StatusNeedsRevision, StatusRevised:
		return true
	default:
		return false
	}
}

// Submission is one ledger row: a single version of a student's work on an
// assignment. Versions for a fixed (assignment, student) pair are exactly
// 1..N with no gaps; the maximum version is the authoritative one for every
// status query.
type Submission struct {
	ID           string           `json:"id" db:"id"`
	AssignmentID string           `json:"assignment_id" db:"assignment_id"`
	StudentID    string           `json:"student_id" db:"student_id"`
	Version      int              `json:"version" db:"version"`
	Status       SubmissionStatus `json:"status" db:"status"`
	Comment      string           `json:"comment" db:"comment"`
	Content      payload.Bundle   `json:"content"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

type SubmissionWithDetails struct {
	Submission
	StudentName     string `json:"student_name" db:"student_name"`
	StudentEmail    string `json:"student_email" db:"student_email"`
	AssignmentTitle string `json:"assignment_title" db:"assignment_title"`
}
