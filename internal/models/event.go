package models

type SubmissionEvent struct {
	SubmissionID string `json:"submission_id"`
	AssignmentID string `json:"assignment_id"`
	StudentID    string `json:"student_id"`
	Version      int    `json:"version"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"`
}

type FeedbackEvent struct {
	FeedbackID   string   `json:"feedback_id"`
	SubmissionID string   `json:"submission_id"`
	TeacherID    string   `json:"teacher_id"`
	Score        *float64 `json:"score,omitempty"`
	Status       string   `json:"status"`
	Timestamp    int64    `json:"timestamp"`
}
