package inmem

import (
	"context"
	"sort"

	"github.com/studyhall/homework-service/internal/models"
	"github.com/studyhall/homework-service/internal/repository"
)

type assignmentRepository struct {
	db *DB
}

func NewAssignmentRepository(db *DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(_ context.Context, assignment *models.Assignment) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	a := *assignment
	r.db.assignments[a.ID] = &a
	return nil
}

func (r *assignmentRepository) GetByID(_ context.Context, id string) (*models.Assignment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if a, ok := r.db.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *assignmentRepository) GetByCourseID(_ context.Context, courseID string) ([]models.Assignment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var assignments []models.Assignment
	for _, a := range r.db.assignments {
		if a.CourseID == courseID {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].CreatedAt.After(assignments[j].CreatedAt)
	})
	return assignments, nil
}

func (r *assignmentRepository) Update(_ context.Context, assignment *models.Assignment) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, ok := r.db.assignments[assignment.ID]
	if !ok {
		return nil
	}
	existing.Title = assignment.Title
	existing.Description = assignment.Description
	existing.DueAt = assignment.DueAt
	existing.UpdatedAt = assignment.UpdatedAt
	return nil
}

func (r *assignmentRepository) Delete(_ context.Context, id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	delete(r.db.assignments, id)
	return nil
}

func (r *assignmentRepository) Exists(_ context.Context, id string) (bool, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	_, ok := r.db.assignments[id]
	return ok, nil
}
