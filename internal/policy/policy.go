// Package policy holds every role- and ownership-based authorization rule
// in one pure decision function. It performs no I/O; callers load the
// entities and pass them in.
package policy

import (
	"github.com/studyhall/homework-service/internal/models"
)

type Action string

const (
	ActionCreateSubmission Action = "submission.create"
	ActionReviseSubmission Action = "submission.revise"
	ActionReadSubmission   Action = "submission.read"
	ActionDeleteSubmission Action = "submission.delete"

	ActionGradeSubmission Action = "feedback.grade"
	ActionAmendFeedback   Action = "feedback.amend"
	ActionDeleteFeedback  Action = "feedback.delete"
	ActionReadFeedback    Action = "feedback.read"

	ActionManageAssignment Action = "assignment.manage"
	ActionReadStatistics   Action = "assignment.statistics"
	ActionManageRoster     Action = "course.roster"
)

// Target carries the already-loaded entities a decision may need. Fields
// irrelevant to the action may be left nil.
type Target struct {
	Course     *models.Course
	Roster     *models.Roster
	Assignment *models.Assignment
	Submission *models.Submission
	Feedback   *models.Feedback
}

// CanAct decides whether the actor may perform the action on the target.
// Administrators bypass ownership but not state-machine legality; legality
// is enforced by the services, never here.
func CanAct(actor models.Actor, action Action, t Target) bool {
	if actor.IsAdmin() {
		return true
	}

	switch action {
	case ActionCreateSubmission:
		// Students submit their own work, and only for courses they are
		// enrolled in.
		if !actor.IsStudent() || t.Submission == nil {
			return false
		}
		if t.Submission.StudentID != actor.ID {
			return false
		}
		return t.Roster != nil && t.Roster.Contains(actor.ID)

	case ActionReviseSubmission:
		return actor.IsStudent() && t.Submission != nil && t.Submission.StudentID == actor.ID

	case ActionDeleteSubmission:
		// Administrative override only; not part of the grading cycle.
		return false

	case ActionReadSubmission:
		if t.Submission == nil {
			return false
		}
		if actor.IsStudent() {
			return t.Submission.StudentID == actor.ID
		}
		return actor.IsTeacher() && ownsCourse(actor, t)

	case ActionGradeSubmission:
		return actor.IsTeacher() && ownsCourse(actor, t)

	case ActionAmendFeedback, ActionDeleteFeedback:
		return actor.IsTeacher() && t.Feedback != nil && t.Feedback.TeacherID == actor.ID

	case ActionReadFeedback:
		if t.Submission == nil {
			return false
		}
		if actor.IsStudent() {
			return t.Submission.StudentID == actor.ID
		}
		return actor.IsTeacher() && ownsCourse(actor, t)

	case ActionManageAssignment, ActionReadStatistics, ActionManageRoster:
		return actor.IsTeacher() && ownsCourse(actor, t)

	default:
		return false
	}
}

func ownsCourse(actor models.Actor, t Target) bool {
	if t.Course != nil {
		return t.Course.TeacherID == actor.ID
	}
	if t.Roster != nil {
		return t.Roster.TeacherID == actor.ID
	}
	return false
}
