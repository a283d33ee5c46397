package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/homework-service/internal/models"
)

func TestAssignmentService_Create(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	due := time.Now().UTC().Add(48 * time.Hour)
	assignment, err := f.assignments.Create(ctx, f.teacher, &models.CreateAssignmentRequest{
		CourseID: f.course.ID,
		Title:    "Book report",
		Kind:     "essay",
		DueAt:    &due,
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindEssay, assignment.Kind)
	assert.False(t, assignment.IsPastDue(time.Now().UTC()))
}

func TestAssignmentService_Create_OnlyCourseTeacher(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stranger := models.Actor{ID: "teacher-elsewhere", Role: models.RoleTeacher}
	_, err := f.assignments.Create(ctx, stranger, &models.CreateAssignmentRequest{
		CourseID: f.course.ID,
		Title:    "Unwanted homework",
		Kind:     "essay",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.Create(ctx, f.student, &models.CreateAssignmentRequest{
		CourseID: f.course.ID,
		Title:    "Self-assigned",
		Kind:     "oral",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssignmentService_Update_KindIsImmutable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	updated, err := f.assignments.Update(ctx, f.teacher, f.essay.ID, &models.UpdateAssignmentRequest{
		Title: "Essay on rivers, revised brief",
	})
	require.NoError(t, err)
	assert.Equal(t, "Essay on rivers, revised brief", updated.Title)
	assert.Equal(t, models.KindEssay, updated.Kind)
}

func TestAssignmentService_Delete_BlockedBySubmissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.submissions.Create(ctx, f.student, &models.CreateSubmissionRequest{
		AssignmentID: f.essay.ID,
		StudentID:    f.student.ID,
		Content:      textContent("anchor"),
	})
	require.NoError(t, err)

	err = f.assignments.Delete(ctx, f.teacher, f.essay.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// An untouched assignment deletes cleanly.
	err = f.assignments.Delete(ctx, f.teacher, f.oral.ID)
	require.NoError(t, err)
	_, err = f.assignments.GetByID(ctx, f.oral.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignmentService_Statistics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Roster of 10: the seeded student plus nine more. Four submit.
	students := []models.Actor{f.student}
	for i := 0; i < 9; i++ {
		students = append(students, f.addStudent(ctx,
			fmt.Sprintf("Student %d", i+2),
			fmt.Sprintf("student%d@school.test", i+2)))
	}

	var subs []*models.SubmissionResponse
	for _, actor := range students[:4] {
		resp, err := f.submissions.Create(ctx, actor, &models.CreateSubmissionRequest{
			AssignmentID: f.essay.ID,
			StudentID:    actor.ID,
			Content:      textContent("work of " + actor.ID),
		})
		require.NoError(t, err)
		subs = append(subs, resp)
	}

	// One graded, one sent back and revised, two left as submitted.
	score := 90.0
	_, err := f.feedback.Grade(ctx, f.teacher, &models.CreateFeedbackRequest{
		SubmissionID: subs[0].ID,
		Score:        &score,
	})
	require.NoError(t, err)

	_, err = f.feedback.Grade(ctx, f.teacher, &models.CreateFeedbackRequest{
		SubmissionID:     subs[1].ID,
		RequiresRevision: true,
	})
	require.NoError(t, err)
	_, err = f.submissions.Revise(ctx, students[1], subs[1].ID, &models.ReviseSubmissionRequest{
		Content: textContent("reworked"),
	})
	require.NoError(t, err)

	stats, err := f.assignments.Statistics(ctx, f.teacher, f.essay.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalRoster)
	assert.Equal(t, 4, stats.SubmittedCount)
	assert.InDelta(t, 0.4, stats.SubmissionRate, 1e-9)
	assert.Equal(t, 2, stats.StatusCounts[models.StatusSubmitted.String()])
	assert.Equal(t, 1, stats.StatusCounts[models.StatusGraded.String()])
	assert.Equal(t, 1, stats.StatusCounts[models.StatusRevised.String()])
	assert.Equal(t, 0, stats.StatusCounts[models.StatusNeedsRevision.String()])
	assert.Equal(t, 6, stats.StatusCounts[models.StatusNotSubmitted.String()])
}

func TestAssignmentService_Statistics_OldVersionsDoNotInflate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, text := range []string{"v1", "v2", "v3"} {
		_, err := f.submissions.Create(ctx, f.student, &models.CreateSubmissionRequest{
			AssignmentID: f.essay.ID,
			StudentID:    f.student.ID,
			Content:      textContent(text),
		})
		require.NoError(t, err)
	}

	stats, err := f.assignments.Statistics(ctx, f.teacher, f.essay.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SubmittedCount, "one student, however many versions")
	assert.Equal(t, 1, stats.StatusCounts[models.StatusSubmitted.String()])
}

func TestAssignmentService_Statistics_EmptyRoster(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	now := time.Now().UTC()
	empty := &models.Course{
		ID: "course-empty", Title: "Ghost town", TeacherID: f.teacher.ID,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.courseRepo.Create(ctx, empty))

	assignment := &models.Assignment{
		ID: "assignment-empty", CourseID: empty.ID, Title: "Nobody's homework",
		Kind: models.KindEssay, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.assignmentRepo.Create(ctx, assignment))

	stats, err := f.assignments.Statistics(ctx, f.teacher, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRoster)
	assert.Equal(t, 0.0, stats.SubmissionRate)
	assert.Equal(t, 0, stats.StatusCounts[models.StatusNotSubmitted.String()])
}

func TestAssignmentService_Statistics_ScopedToCourseTeacher(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.assignments.Statistics(ctx, f.student, f.essay.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	stranger := models.Actor{ID: "teacher-elsewhere", Role: models.RoleTeacher}
	_, err = f.assignments.Statistics(ctx, stranger, f.essay.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.assignments.Statistics(ctx, f.admin, f.essay.ID)
	assert.NoError(t, err)
}
