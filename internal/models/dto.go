package models

import (
	"time"
)

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description"`
	TeacherID   string `json:"teacher_id" validate:"required,uuid4"`
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=student teacher admin"`
}

type CreateAssignmentRequest struct {
	CourseID    string     `json:"course_id" validate:"required,uuid4"`
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description"`
	Kind        string     `json:"kind" validate:"required,oneof=essay oral"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// UpdateAssignmentRequest deliberately has no kind field: the kind is fixed
// at creation.
type UpdateAssignmentRequest struct {
	Title       string     `json:"title" validate:"omitempty,max=100"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

type CreateSubmissionRequest struct {
	AssignmentID string                 `json:"assignment_id" validate:"required,uuid4"`
	StudentID    string                 `json:"student_id" validate:"required,uuid4"`
	Comment      string                 `json:"comment"`
	Content      map[string]interface{} `json:"content"`
}

type ReviseSubmissionRequest struct {
	Comment *string                `json:"comment,omitempty"`
	Content map[string]interface{} `json:"content"`
}

type CreateFeedbackRequest struct {
	SubmissionID     string                 `json:"submission_id" validate:"required,uuid4"`
	Score            *float64               `json:"score,omitempty"`
	Comments         string                 `json:"comments"`
	RequiresRevision bool                   `json:"requires_revision"`
	Content          map[string]interface{} `json:"content"`
}

type AmendFeedbackRequest struct {
	Score            *float64               `json:"score,omitempty"`
	Comments         *string                `json:"comments,omitempty"`
	RequiresRevision *bool                  `json:"requires_revision,omitempty"`
	Content          map[string]interface{} `json:"content"`
}

type SubmissionResponse struct {
	Submission
	Late bool `json:"late,omitempty"`
}

type SubmissionsResponse struct {
	Submissions []SubmissionWithDetails `json:"submissions"`
	Total       int                     `json:"total"`
	Page        int                     `json:"page"`
	Limit       int                     `json:"limit"`
}

// SubmissionFilter narrows role-scoped submission listings.
// CourseTeacherID restricts to submissions in courses owned by that
// teacher; the service sets it, never the caller.
type SubmissionFilter struct {
	AssignmentID    string
	StudentID       string
	CourseID        string
	CourseTeacherID string
	Status          string
}

type StatisticsResponse struct {
	Assignment Assignment           `json:"assignment"`
	Statistics AssignmentStatistics `json:"statistics"`
}
