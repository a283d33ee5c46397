package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyhall/homework-service/internal/models"
)

var (
	student      = models.Actor{ID: "student-1", Role: models.RoleStudent}
	otherStudent = models.Actor{ID: "student-2", Role: models.RoleStudent}
	teacher      = models.Actor{ID: "teacher-1", Role: models.RoleTeacher}
	otherTeacher = models.Actor{ID: "teacher-2", Role: models.RoleTeacher}
	admin        = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func courseTarget() Target {
	return Target{
		Course: &models.Course{ID: "course-1", TeacherID: teacher.ID},
		Roster: &models.Roster{CourseID: "course-1", TeacherID: teacher.ID, StudentIDs: []string{student.ID}},
	}
}

func TestCanAct_CreateSubmission(t *testing.T) {
	target := courseTarget()
	target.Submission = &models.Submission{StudentID: student.ID}

	assert.True(t, CanAct(student, ActionCreateSubmission, target))
	assert.False(t, CanAct(otherStudent, ActionCreateSubmission, target), "only the owner submits")
	assert.False(t, CanAct(teacher, ActionCreateSubmission, target), "teachers do not submit")
	assert.True(t, CanAct(admin, ActionCreateSubmission, target))
}

func TestCanAct_CreateSubmission_RequiresEnrollment(t *testing.T) {
	target := courseTarget()
	target.Roster.StudentIDs = nil
	target.Submission = &models.Submission{StudentID: student.ID}

	assert.False(t, CanAct(student, ActionCreateSubmission, target))
}

func TestCanAct_ReviseSubmission(t *testing.T) {
	target := Target{Submission: &models.Submission{StudentID: student.ID}}

	assert.True(t, CanAct(student, ActionReviseSubmission, target))
	assert.False(t, CanAct(otherStudent, ActionReviseSubmission, target))
	assert.False(t, CanAct(teacher, ActionReviseSubmission, target))
}

func TestCanAct_DeleteSubmission_AdminOnly(t *testing.T) {
	target := Target{Submission: &models.Submission{StudentID: student.ID}}

	assert.False(t, CanAct(student, ActionDeleteSubmission, target), "even the owner cannot delete")
	assert.False(t, CanAct(teacher, ActionDeleteSubmission, target))
	assert.True(t, CanAct(admin, ActionDeleteSubmission, target))
}

func TestCanAct_ReadSubmission(t *testing.T) {
	target := courseTarget()
	target.Submission = &models.Submission{StudentID: student.ID}

	assert.True(t, CanAct(student, ActionReadSubmission, target))
	assert.False(t, CanAct(otherStudent, ActionReadSubmission, target))
	assert.True(t, CanAct(teacher, ActionReadSubmission, target))
	assert.False(t, CanAct(otherTeacher, ActionReadSubmission, target), "course ownership is required")
	assert.True(t, CanAct(admin, ActionReadSubmission, target))
}

func TestCanAct_GradeSubmission(t *testing.T) {
	target := courseTarget()
	target.Submission = &models.Submission{StudentID: student.ID}

	assert.True(t, CanAct(teacher, ActionGradeSubmission, target))
	assert.False(t, CanAct(otherTeacher, ActionGradeSubmission, target))
	assert.False(t, CanAct(student, ActionGradeSubmission, target))
	assert.True(t, CanAct(admin, ActionGradeSubmission, target))
}

func TestCanAct_AmendFeedback_OriginalAuthorOnly(t *testing.T) {
	target := Target{Feedback: &models.Feedback{TeacherID: teacher.ID}}

	assert.True(t, CanAct(teacher, ActionAmendFeedback, target))
	assert.False(t, CanAct(otherTeacher, ActionAmendFeedback, target))
	assert.True(t, CanAct(admin, ActionAmendFeedback, target))

	assert.True(t, CanAct(teacher, ActionDeleteFeedback, target))
	assert.False(t, CanAct(otherTeacher, ActionDeleteFeedback, target))
}

func TestCanAct_ManageAssignmentAndStatistics(t *testing.T) {
	target := courseTarget()

	assert.True(t, CanAct(teacher, ActionManageAssignment, target))
	assert.False(t, CanAct(otherTeacher, ActionManageAssignment, target))
	assert.False(t, CanAct(student, ActionReadStatistics, target))
	assert.True(t, CanAct(teacher, ActionReadStatistics, target))
	assert.True(t, CanAct(teacher, ActionManageRoster, target))
	assert.False(t, CanAct(student, ActionManageRoster, target))
}

func TestCanAct_UnknownAction(t *testing.T) {
	assert.False(t, CanAct(teacher, Action("bogus"), Target{}))
	assert.True(t, CanAct(admin, Action("bogus"), Target{}), "admin bypasses ownership checks entirely")
}
