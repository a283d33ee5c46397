package models

import (
	"time"
)

// AssignmentKind is fixed at creation and never mutated; changing it would
// silently invalidate the content semantics of historical submissions.
type AssignmentKind string

const (
	KindEssay AssignmentKind = "essay"
	KindOral  AssignmentKind = "oral"
)

func (k AssignmentKind) String() string {
	return string(k)
}

func IsValidAssignmentKind(kind string) bool {
	switch AssignmentKind(kind) {
	case KindEssay, KindOral:
		return true
	default:
		return false
	}
}

type Assignment struct {
	ID          string         `json:"id" db:"id"`
	CourseID    string         `json:"course_id" db:"course_id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Kind        AssignmentKind `json:"kind" db:"kind"`
	DueAt       *time.Time     `json:"due_at,omitempty" db:"due_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// IsPastDue reports whether the instant falls after the due instant. The due
// instant is advisory only; lateness never blocks a submission.
func (a *Assignment) IsPastDue(at time.Time) bool {
	return a.DueAt != nil && at.After(*a.DueAt)
}

// AssignmentStatistics is the aggregator output for one assignment.
// StatusCounts is computed over each student's current (max-version)
// submission only.
type AssignmentStatistics struct {
	TotalRoster    int            `json:"total_roster"`
	SubmittedCount int            `json:"submitted_count"`
	StatusCounts   map[string]int `json:"status_counts"`
	SubmissionRate float64        `json:"submission_rate"`
}
