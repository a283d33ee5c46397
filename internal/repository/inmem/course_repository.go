package inmem

import (
	"context"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/repository"
)

type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) repository.CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(_ context.Context, course *models.Course) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	c := *course
	r.db.courses[c.ID] = &c
	return nil
}

func (r *courseRepository) GetByID(_ context.Context, id string) (*models.Course, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if c, ok := r.db.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *courseRepository) Exists(_ context.Context, id string) (bool, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	_, ok := r.db.courses[id]
	return ok, nil
}

func (r *courseRepository) Roster(_ context.Context, courseID string) (*models.Roster, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	course, ok := r.db.courses[courseID]
	if !ok {
		return nil, nil
	}

	roster := &models.Roster{
		CourseID:  courseID,
		TeacherID: course.TeacherID,
	}
	for _, e := range r.db.enrollments[courseID] {
		roster.StudentIDs = append(roster.StudentIDs, e.StudentID)
	}
	return roster, nil
}

func (r *courseRepository) Enroll(_ context.Context, enrollment *models.Enrollment) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, e := range r.db.enrollments[enrollment.CourseID] {
		if e.StudentID == enrollment.StudentID {
			return nil
		}
	}
	r.db.enrollments[enrollment.CourseID] = append(r.db.enrollments[enrollment.CourseID], *enrollment)
	return nil
}

func (r *courseRepository) Unenroll(_ context.Context, courseID, studentID string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	kept := r.db.enrollments[courseID][:0]
	for _, e := range r.db.enrollments[courseID] {
		if e.StudentID != studentID {
			kept = append(kept, e)
		}
	}
	r.db.enrollments[courseID] = kept
	return nil
}
